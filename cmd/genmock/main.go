// Command genmock writes synthetic hourly PM2.5 CSV files in the layout of
// the source dataset, one per configured city, and a JSON fixture holding the
// reports the batch is expected to produce for them. The fixture is computed
// with the real loader and domain package so it tracks batch behavior.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -out data/mock \
//	  -from 2013-01-01 -days 365 \
//	  -na-rate 0.05 -seed 42 \
//	  -expected-out data/mock/expected_reports.json
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/couchcryptid/pm25-stats/internal/adapter/csvfile"
	"github.com/couchcryptid/pm25-stats/internal/config"
	"github.com/couchcryptid/pm25-stats/internal/domain"
	"github.com/jonboulle/clockwork"
)

// Weather columns that follow the PM columns in the source files. Their
// values are irrelevant to the batch and only keep the layout realistic.
var weatherColumns = []string{"DEWP", "HUMI", "PRES", "TEMP", "cbwd", "Iws", "precipitation", "Iprec"}

var windDirections = []string{"NE", "NW", "SE", "cv"}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out", "", "directory to write city CSV files to")
	citiesFile := flag.String("cities", "", "optional YAML city list (defaults to the five built-in cities)")
	from := flag.String("from", "2013-01-01", "first day to generate (YYYY-MM-DD)")
	days := flag.Int("days", 365, "number of days to generate")
	naRate := flag.Float64("na-rate", 0.05, "probability that any single reading is NA")
	seed := flag.Uint64("seed", 1, "random seed")
	expectedOut := flag.String("expected-out", "", "optional output path for the expected reports JSON fixture")
	flag.Parse()

	if *outDir == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	if *naRate < 0 || *naRate >= 1 {
		return fmt.Errorf("-na-rate must be in [0, 1), got %g", *naRate)
	}
	if *days <= 0 {
		return fmt.Errorf("-days must be positive, got %d", *days)
	}
	start, err := time.Parse(time.DateOnly, *from)
	if err != nil {
		return fmt.Errorf("parse -from: %w", err)
	}

	cities := config.DefaultCities()
	if *citiesFile != "" {
		if cities, err = config.LoadCities(*citiesFile); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return err
	}

	rng := rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))
	for _, c := range cities {
		path := c.Path(*outDir)
		n, err := writeCity(path, c, start, *days, *naRate, rng)
		if err != nil {
			return fmt.Errorf("generating %s: %w", c.ID, err)
		}
		log.Printf("%s: %d hourly rows -> %s", c.ID, n, path)
	}

	if *expectedOut == "" {
		return nil
	}

	// Fixed clock for a reproducible GeneratedAt.
	domain.SetClock(clockwork.NewFakeClockAt(start.AddDate(0, 0, *days)))
	defer domain.SetClock(nil)

	reports, err := expectedReports(*outDir, cities)
	if err != nil {
		return err
	}
	if err := writeJSON(*expectedOut, reports); err != nil {
		return fmt.Errorf("writing expected fixture: %w", err)
	}
	log.Printf("wrote expected fixture: %s", *expectedOut)

	printStats(reports)
	return nil
}

func writeCity(path string, c config.City, start time.Time, days int, naRate float64, rng *rand.Rand) (n int, err error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	w := csv.NewWriter(f)
	header := []string{"No", "year", "month", "day", "hour", "season"}
	header = append(header, c.Stations...)
	header = append(header, c.Reference)
	header = append(header, weatherColumns...)
	if err := w.Write(header); err != nil {
		return 0, err
	}

	row := make([]string, len(header))
	end := start.AddDate(0, 0, days)
	for ts := start; ts.Before(end); ts = ts.Add(time.Hour) {
		n++
		row[0] = strconv.Itoa(n)
		row[1] = strconv.Itoa(ts.Year())
		row[2] = strconv.Itoa(int(ts.Month()))
		row[3] = strconv.Itoa(ts.Day())
		row[4] = strconv.Itoa(ts.Hour())
		row[5] = strconv.Itoa(season(ts.Month()))

		base := baseline(ts, rng)
		col := 6
		for range c.Stations {
			row[col] = reading(base*(0.8+0.4*rng.Float64()), naRate, rng)
			col++
		}
		row[col] = reading(base*(0.9+0.3*rng.Float64()), naRate, rng)
		col++
		fillWeather(row[col:], ts, rng)

		if err := w.Write(row); err != nil {
			return n, err
		}
	}
	w.Flush()
	return n, w.Error()
}

// baseline is a winter-heavy, log-normally distributed hourly level.
func baseline(ts time.Time, rng *rand.Rand) float64 {
	winter := math.Cos(2 * math.Pi * float64(ts.YearDay()) / 365)
	mu := 4.0 + 0.5*winter
	return math.Exp(mu + 0.7*rng.NormFloat64())
}

func reading(v float64, naRate float64, rng *rand.Rand) string {
	if rng.Float64() < naRate {
		return csvfile.MissingValue
	}
	return strconv.Itoa(max(1, int(math.Round(v))))
}

func fillWeather(cols []string, ts time.Time, rng *rand.Rand) {
	temp := 12 - 15*math.Cos(2*math.Pi*float64(ts.YearDay())/365) + 3*rng.NormFloat64()
	cols[0] = strconv.FormatFloat(math.Round(temp-8), 'f', 0, 64)
	cols[1] = strconv.FormatFloat(math.Round(30+50*rng.Float64()), 'f', 0, 64)
	cols[2] = strconv.FormatFloat(math.Round(1000+25*rng.Float64()), 'f', 0, 64)
	cols[3] = strconv.FormatFloat(math.Round(temp), 'f', 0, 64)
	cols[4] = windDirections[rng.IntN(len(windDirections))]
	cols[5] = strconv.FormatFloat(math.Round(100*rng.ExpFloat64())/10, 'f', 1, 64)
	cols[6] = "0"
	cols[7] = "0"
}

// season uses the source numbering: 1 spring, 2 summer, 3 autumn, 4 winter.
func season(m time.Month) int {
	switch m {
	case time.March, time.April, time.May:
		return 1
	case time.June, time.July, time.August:
		return 2
	case time.September, time.October, time.November:
		return 3
	default:
		return 4
	}
}

func expectedReports(dir string, cities []config.City) ([]domain.CityReport, error) {
	loader := csvfile.NewLoader(dir, slog.New(slog.DiscardHandler))
	reports := make([]domain.CityReport, 0, len(cities))
	for _, c := range cities {
		ds, err := loader.LoadCity(context.Background(), c)
		if err != nil {
			return nil, fmt.Errorf("reload %s: %w", c.ID, err)
		}
		r, err := domain.Analyze(ds)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(reports []domain.CityReport) {
	fmt.Println("\n=== Stats for updating test assertions ===")
	for _, r := range reports {
		fmt.Printf("%s: hours=%d dropped=%d months=%d\n", r.City, r.Hours, r.Dropped, len(r.Monthly))
		for _, src := range domain.Sources {
			sh := r.Shares(src)
			fmt.Printf("  %-9s heavy=%.4f medium=%.4f light=%.4f good=%.4f\n",
				src, sh.Heavy, sh.Medium, sh.Light, sh.Good)
		}
	}
}
