// Command validate checks the files written by a batch run against values
// recomputed from the source CSVs: every monthly statistics file and the
// severity summary. It verifies headers, row counts, month ordering, values
// within tolerance, and that every set of band shares sums to one.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -dataset-dir data/mock \
//	  -output-dir data/output
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"

	"github.com/couchcryptid/pm25-stats/internal/adapter/csvfile"
	"github.com/couchcryptid/pm25-stats/internal/config"
	"github.com/couchcryptid/pm25-stats/internal/domain"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	datasetDir := flag.String("dataset-dir", "", "directory containing the source city CSV files")
	outputDir := flag.String("output-dir", "", "directory the batch wrote its output to")
	citiesFile := flag.String("cities", "", "optional YAML city list (defaults to the five built-in cities)")
	tolerance := flag.Float64("tolerance", 1e-4, "absolute tolerance for recomputed values")
	flag.Parse()

	if *datasetDir == "" || *outputDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	cities := config.DefaultCities()
	if *citiesFile != "" {
		var err error
		if cities, err = config.LoadCities(*citiesFile); err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
			os.Exit(1)
		}
	}

	if code := run(*datasetDir, *outputDir, cities, *tolerance); code != 0 {
		os.Exit(code)
	}
}

func run(datasetDir, outputDir string, cities []config.City, tol float64) int {
	fmt.Println("=== PM2.5 Output Validation ===")
	fmt.Println()

	// ── Recompute from source ──
	reports, source := recompute(datasetDir, cities)

	// ── Run validation phases ──
	phases := []*phase{
		source,
		validateMonthlyFiles(outputDir, reports, tol),
		validateSummary(outputDir, reports, tol),
	}

	// ── Report results ──
	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Cities: %d configured, %d recomputed\n", len(cities), len(reports))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Source Recompute ──
// Reloads every city and recomputes its statistics with the domain package.

func recompute(datasetDir string, cities []config.City) ([]domain.CityReport, *phase) {
	p := &phase{name: "Phase 1: Source Recompute"}
	loader := csvfile.NewLoader(datasetDir, slog.New(slog.DiscardHandler))

	var reports []domain.CityReport
	for _, c := range cities {
		ds, err := loader.LoadCity(context.Background(), c)
		if err != nil {
			p.errorf("%s: %v", c.ID, err)
			continue
		}
		r, err := domain.Analyze(ds)
		if err != nil {
			p.errorf("%s: %v", c.ID, err)
			continue
		}
		reports = append(reports, r)
	}
	return reports, p
}

// ── Phase 2: Monthly Statistics ──
// Each <city>_month_stats.csv must hold one row per observed month, in order,
// with per-station means matching the recomputed values.

func validateMonthlyFiles(dir string, reports []domain.CityReport, tol float64) *phase {
	p := &phase{name: "Phase 2: Monthly Statistics Files"}
	for _, r := range reports {
		checkMonthlyFile(p, filepath.Join(dir, csvfile.MonthlyFileName(r.City)), r, tol)
	}
	return p
}

func checkMonthlyFile(p *phase, path string, r domain.CityReport, tol float64) {
	df, err := readFrame(path)
	if err != nil {
		p.errorf("%s: %v", r.City, err)
		return
	}

	wantHeader := append([]string{"month"}, r.Stations...)
	if got := df.Names(); !slices.Equal(got, wantHeader) {
		p.errorf("%s: header %v, want %v", r.City, got, wantHeader)
		return
	}
	if df.Nrow() != len(r.Monthly) {
		p.errorf("%s: %d months, want %d", r.City, df.Nrow(), len(r.Monthly))
		return
	}

	labels := df.Col("month").Records()
	for i, m := range r.Monthly {
		if labels[i] != m.Label {
			p.errorf("%s: row %d label %q, want %q", r.City, i+1, labels[i], m.Label)
		}
		if i > 0 && labels[i] <= labels[i-1] {
			p.errorf("%s: row %d label %q not after %q", r.City, i+1, labels[i], labels[i-1])
		}
	}

	for j, station := range r.Stations {
		got := df.Col(station).Float()
		for i, m := range r.Monthly {
			if !approxEq(got[i], m.Means[j], tol) {
				p.errorf("%s %s %s: mean %g, want %g", r.City, m.Label, station, got[i], m.Means[j])
			}
		}
	}
}

// ── Phase 3: Severity Summary ──
// polluted_percentage.csv must hold one row per (city, source) with shares
// that sum to one and match the recomputed shares.

func validateSummary(dir string, reports []domain.CityReport, tol float64) *phase {
	p := &phase{name: "Phase 3: Severity Summary"}

	df, err := readFrame(filepath.Join(dir, csvfile.SummaryFileName))
	if err != nil {
		p.errorf("%v", err)
		return p
	}

	wantHeader := []string{"city", "source"}
	for _, b := range domain.Bands {
		wantHeader = append(wantHeader, b.String())
	}
	if got := df.Names(); !slices.Equal(got, wantHeader) {
		p.errorf("header %v, want %v", got, wantHeader)
		return p
	}
	if want := len(reports) * len(domain.Sources); df.Nrow() != want {
		p.errorf("%d rows, want %d", df.Nrow(), want)
	}

	expected := make(map[string]domain.BandShares, df.Nrow())
	for _, r := range reports {
		for _, src := range domain.Sources {
			expected[r.City+"/"+string(src)] = r.Shares(src)
		}
	}

	cities := df.Col("city").Records()
	sources := df.Col("source").Records()
	bandCols := make([][]float64, len(domain.Bands))
	for i, b := range domain.Bands {
		bandCols[i] = df.Col(b.String()).Float()
	}

	for row := range df.Nrow() {
		key := cities[row] + "/" + sources[row]
		want, ok := expected[key]
		if !ok {
			p.errorf("row %d: unexpected %s", row+1, key)
			continue
		}
		var sum float64
		for i, b := range domain.Bands {
			got := bandCols[i][row]
			sum += got
			if got < 0 || got > 1 {
				p.errorf("%s: %s share %g outside [0, 1]", key, b, got)
			}
			if !approxEq(got, want.Share(b), tol) {
				p.errorf("%s: %s share %g, want %g", key, b, got, want.Share(b))
			}
		}
		if !approxEq(sum, 1, tol) {
			p.errorf("%s: shares sum to %g", key, sum)
		}
	}
	return p
}

// ── Helpers ──

// readFrame loads a CSV with every column as text so labels are never
// reinterpreted; numeric columns are converted by the caller.
func readFrame(path string) (dataframe.DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	defer f.Close()

	df := dataframe.ReadCSV(f,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("read %s: %w", path, df.Err)
	}
	return df, nil
}

func approxEq(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}
