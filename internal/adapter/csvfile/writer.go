package csvfile

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/pm25-stats/internal/domain"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Output file names.
const (
	SummaryFileName      = "polluted_percentage.csv"
	monthlyFileSuffix    = "_month_stats.csv"
	monthLabelColumnName = "month"
)

// MonthlyFileName returns the monthly statistics file name for a city.
func MonthlyFileName(city string) string {
	return city + monthlyFileSuffix
}

// MonthlyTable lays out monthly averages as a dataframe: a "month" label
// column followed by one mean column per station.
func MonthlyTable(stations []string, months []domain.MonthlyAverage) (dataframe.DataFrame, error) {
	labels := make([]string, len(months))
	for i, m := range months {
		labels[i] = m.Label
	}

	cols := make([]series.Series, 0, len(stations)+1)
	cols = append(cols, series.New(labels, series.String, monthLabelColumnName))
	for j, name := range stations {
		vals := make([]float64, len(months))
		for i, m := range months {
			if len(m.Means) != len(stations) {
				return dataframe.DataFrame{}, fmt.Errorf("month %s has %d means, want %d", m.Label, len(m.Means), len(stations))
			}
			vals[i] = m.Means[j]
		}
		cols = append(cols, series.New(vals, series.Float, name))
	}

	df := dataframe.New(cols...)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("build monthly table: %w", df.Err)
	}
	return df, nil
}

// SummaryTable lays out band shares as a dataframe with two rows per city,
// one per source: city, source, heavy, medium, light, good.
func SummaryTable(reports []domain.CityReport) (dataframe.DataFrame, error) {
	n := len(reports) * len(domain.Sources)
	cities := make([]string, 0, n)
	sources := make([]string, 0, n)
	shares := make([][]float64, len(domain.Bands))
	for i := range shares {
		shares[i] = make([]float64, 0, n)
	}

	for _, r := range reports {
		for _, src := range domain.Sources {
			cities = append(cities, r.City)
			sources = append(sources, string(src))
			s := r.Shares(src)
			for i, b := range domain.Bands {
				shares[i] = append(shares[i], s.Share(b))
			}
		}
	}

	cols := []series.Series{
		series.New(cities, series.String, "city"),
		series.New(sources, series.String, "source"),
	}
	for i, b := range domain.Bands {
		cols = append(cols, series.New(shares[i], series.Float, b.String()))
	}

	df := dataframe.New(cols...)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("build summary table: %w", df.Err)
	}
	return df, nil
}

// MonthlyWriter writes <city>_month_stats.csv for each report.
// It implements pipeline.ReportSink.
type MonthlyWriter struct {
	dir    string
	logger *slog.Logger
}

// NewMonthlyWriter creates a writer for the output directory.
func NewMonthlyWriter(dir string, logger *slog.Logger) *MonthlyWriter {
	return &MonthlyWriter{dir: dir, logger: logger}
}

func (w *MonthlyWriter) WriteReport(_ context.Context, report domain.CityReport) error {
	df, err := MonthlyTable(report.Stations, report.Monthly)
	if err != nil {
		return fmt.Errorf("city %s: %w", report.City, err)
	}
	path := filepath.Join(w.dir, MonthlyFileName(report.City))
	if err := writeFrame(path, df); err != nil {
		return err
	}
	w.logger.Info("monthly statistics saved", "city", report.City, "path", path, "months", len(report.Monthly))
	return nil
}

// SummaryWriter writes polluted_percentage.csv once all cities are processed.
// It implements pipeline.SummarySink.
type SummaryWriter struct {
	dir    string
	logger *slog.Logger
}

// NewSummaryWriter creates a writer for the output directory.
func NewSummaryWriter(dir string, logger *slog.Logger) *SummaryWriter {
	return &SummaryWriter{dir: dir, logger: logger}
}

func (w *SummaryWriter) WriteSummary(_ context.Context, reports []domain.CityReport) error {
	df, err := SummaryTable(reports)
	if err != nil {
		return err
	}
	path := filepath.Join(w.dir, SummaryFileName)
	if err := writeFrame(path, df); err != nil {
		return err
	}
	w.logger.Info("severity summary saved", "path", path, "cities", len(reports))
	return nil
}

func writeFrame(path string, df dataframe.DataFrame) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	return encodeFrame(f, df)
}

func encodeFrame(w io.Writer, df dataframe.DataFrame) error {
	if err := df.WriteCSV(w); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}
