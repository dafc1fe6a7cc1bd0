package domain

import (
	"fmt"
	"time"
)

// Common columns prepended to every per-city column selection.
const (
	ColumnYear  = "year"
	ColumnMonth = "month"
)

// Table is the rectangular numeric result of reading selected CSV columns.
// Rows hold whole numbers in the order of Columns; rows with a missing value
// were dropped and are only counted.
type Table struct {
	Columns []string
	Rows    [][]float64
	Dropped int
}

// Record is one retained hour of readings.
type Record struct {
	Year      int
	Month     int
	Stations  []float64 // one value per Dataset.Stations column
	Reference float64
}

// Dataset is the immutable, chronologically ordered set of records for a city.
type Dataset struct {
	City      string
	Stations  []string // station column names, in record order
	Reference string   // reference column name, e.g. "PM_US Post"
	Records   []Record
	Dropped   int // source rows discarded for missing values
}

// NewDataset maps a Table laid out as [year, month, stations..., reference]
// onto typed records. The column layout is checked against the names given so
// the reference column can never be confused with a station.
func NewDataset(city string, stations []string, reference string, t Table) (Dataset, error) {
	if len(stations) == 0 {
		return Dataset{}, fmt.Errorf("city %s: no station columns: %w", city, ErrDataFormat)
	}
	want := make([]string, 0, len(stations)+3)
	want = append(want, ColumnYear, ColumnMonth)
	want = append(want, stations...)
	want = append(want, reference)

	if len(t.Columns) != len(want) {
		return Dataset{}, fmt.Errorf("city %s: table has %d columns, want %d: %w", city, len(t.Columns), len(want), ErrDataFormat)
	}
	for i, name := range want {
		if t.Columns[i] != name {
			return Dataset{}, fmt.Errorf("city %s: column %d is %q, want %q: %w", city, i, t.Columns[i], name, ErrDataFormat)
		}
	}

	ds := Dataset{
		City:      city,
		Stations:  append([]string(nil), stations...),
		Reference: reference,
		Records:   make([]Record, 0, len(t.Rows)),
		Dropped:   t.Dropped,
	}
	last := len(want) - 1
	for i, row := range t.Rows {
		if len(row) != len(want) {
			return Dataset{}, fmt.Errorf("city %s: row %d has %d values, want %d: %w", city, i, len(row), len(want), ErrDataFormat)
		}
		ds.Records = append(ds.Records, Record{
			Year:      int(row[0]),
			Month:     int(row[1]),
			Stations:  row[2:last:last],
			Reference: row[last],
		})
	}
	return ds, nil
}

// Len returns the number of retained records.
func (d Dataset) Len() int { return len(d.Records) }

// CityReport bundles every statistic computed for one city in a run.
type CityReport struct {
	City            string           `json:"city"`
	Stations        []string         `json:"stations"`
	ReferenceColumn string           `json:"reference_column"`
	Hours           int              `json:"hours"`
	Dropped         int              `json:"dropped"`
	Domestic        BandShares       `json:"domestic"`
	Reference       BandShares       `json:"reference"`
	Monthly         []MonthlyAverage `json:"monthly"`
	GeneratedAt     time.Time        `json:"generated_at"`
}

// Shares returns the band shares for the given source.
func (r CityReport) Shares(src Source) BandShares {
	if src == SourceReference {
		return r.Reference
	}
	return r.Domestic
}

// Analyze computes band shares for both sources and the monthly averages.
func Analyze(ds Dataset) (CityReport, error) {
	domestic, reference, err := CompareSources(ds)
	if err != nil {
		return CityReport{}, fmt.Errorf("city %s: %w", ds.City, err)
	}
	monthly, err := MonthlyAverages(ds)
	if err != nil {
		return CityReport{}, fmt.Errorf("city %s: %w", ds.City, err)
	}
	return CityReport{
		City:            ds.City,
		Stations:        ds.Stations,
		ReferenceColumn: ds.Reference,
		Hours:           ds.Len(),
		Dropped:         ds.Dropped,
		Domestic:        domestic,
		Reference:       reference,
		Monthly:         monthly,
		GeneratedAt:     clock.Now(),
	}, nil
}
