package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/couchcryptid/pm25-stats/internal/config"
	"github.com/couchcryptid/pm25-stats/internal/domain"
)

// MissingValue is the sentinel the source files use for an unreported reading.
const MissingValue = "NA"

// ctxCheckEvery is how many rows are read between context checks.
const ctxCheckEvery = 4096

// Loader reads city datasets from CSV files under a root directory.
// It implements pipeline.DatasetLoader.
type Loader struct {
	root   string
	logger *slog.Logger
}

// NewLoader creates a Loader rooted at the dataset directory.
func NewLoader(root string, logger *slog.Logger) *Loader {
	return &Loader{root: root, logger: logger}
}

// LoadCity reads the city's CSV and returns its dataset with the reference
// column held apart from the stations.
func (l *Loader) LoadCity(ctx context.Context, city config.City) (domain.Dataset, error) {
	path := city.Path(l.root)
	table, err := ReadColumns(ctx, path, city.Columns())
	if err != nil {
		return domain.Dataset{}, err
	}
	l.logger.Debug("dataset loaded", "city", city.ID, "path", path, "rows", len(table.Rows), "dropped", table.Dropped)
	return domain.NewDataset(city.ID, city.Stations, city.Reference, table)
}

// ReadColumns reads the CSV at path, keeps only cols (in that order), drops
// every row with a missing value, and truncates the rest to whole numbers.
func ReadColumns(ctx context.Context, path string, cols []string) (domain.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.Table{}, fmt.Errorf("%w: %s", domain.ErrFileNotFound, path)
		}
		return domain.Table{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	table, err := readColumns(ctx, f, cols)
	if err != nil {
		return domain.Table{}, fmt.Errorf("read %s: %w", path, err)
	}
	return table, nil
}

func readColumns(ctx context.Context, r io.Reader, cols []string) (domain.Table, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return domain.Table{}, fmt.Errorf("%w: missing header row", domain.ErrDataFormat)
	}
	if err != nil {
		return domain.Table{}, fmt.Errorf("%w: header: %w", domain.ErrDataFormat, err)
	}

	idx, err := columnIndexes(header, cols)
	if err != nil {
		return domain.Table{}, err
	}

	table := domain.Table{Columns: append([]string(nil), cols...)}
	for line := 2; ; line++ {
		if line%ctxCheckEvery == 0 && ctx.Err() != nil {
			return domain.Table{}, ctx.Err()
		}

		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.Table{}, fmt.Errorf("%w: %w", domain.ErrDataFormat, err)
		}

		row, ok, err := parseRow(rec, idx)
		if err != nil {
			return domain.Table{}, fmt.Errorf("line %d: %w", line, err)
		}
		if !ok {
			table.Dropped++
			continue
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// columnIndexes resolves each requested column to its position in the header.
func columnIndexes(header, cols []string) ([]int, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		pos[strings.TrimSpace(h)] = i
	}

	idx := make([]int, len(cols))
	for i, c := range cols {
		p, ok := pos[c]
		if !ok {
			return nil, fmt.Errorf("%w: column %q not in header", domain.ErrDataFormat, c)
		}
		idx[i] = p
	}
	return idx, nil
}

// parseRow extracts the selected fields. ok is false when any field is missing.
// A malformed field is an error even if another field of the row is missing.
func parseRow(rec []string, idx []int) ([]float64, bool, error) {
	row := make([]float64, len(idx))
	complete := true
	for i, p := range idx {
		v, present, err := ParseField(rec[p])
		if err != nil {
			return nil, false, err
		}
		if !present {
			complete = false
			continue
		}
		row[i] = math.Trunc(v)
	}
	if !complete {
		return nil, false, nil
	}
	return row, true, nil
}

// ParseField converts one CSV field. present is false for the "NA" sentinel
// and for a literal NaN; any other non-numeric text is ErrDataFormat.
func ParseField(s string) (value float64, present bool, err error) {
	s = strings.TrimSpace(s)
	if s == MissingValue {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %q is not a number", domain.ErrDataFormat, s)
	}
	if math.IsNaN(v) {
		return 0, false, nil
	}
	return v, true, nil
}
