package domain

import (
	"cmp"
	"fmt"
	"slices"

	"gonum.org/v1/gonum/floats"
)

// MonthlyAverage holds the per-station mean for one observed (year, month).
type MonthlyAverage struct {
	Year  int       `json:"year"`
	Month int       `json:"month"`
	Label string    `json:"label"`
	Means []float64 `json:"means"` // aligned with Dataset.Stations
	Hours int       `json:"hours"`
}

// MonthLabel formats a (year, month) key as "YYYY-MM".
func MonthLabel(year, month int) string {
	return fmt.Sprintf("%d-%02d", year, month)
}

type monthKey struct {
	year, month int
}

type monthBucket struct {
	sums  []float64
	hours int
}

// MonthlyAverages partitions ds by (year, month) and averages each station
// column within a partition. Entries are ordered by year, then month; only
// months present in the data appear.
func MonthlyAverages(ds Dataset) ([]MonthlyAverage, error) {
	if len(ds.Records) == 0 {
		return nil, ErrEmptyDataset
	}

	buckets := make(map[monthKey]*monthBucket)
	for _, rec := range ds.Records {
		k := monthKey{year: rec.Year, month: rec.Month}
		b, ok := buckets[k]
		if !ok {
			b = &monthBucket{sums: make([]float64, len(rec.Stations))}
			buckets[k] = b
		}
		floats.Add(b.sums, rec.Stations)
		b.hours++
	}

	keys := make([]monthKey, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b monthKey) int {
		if c := cmp.Compare(a.year, b.year); c != 0 {
			return c
		}
		return cmp.Compare(a.month, b.month)
	})

	out := make([]MonthlyAverage, 0, len(keys))
	for _, k := range keys {
		b := buckets[k]
		floats.Scale(1/float64(b.hours), b.sums)
		out = append(out, MonthlyAverage{
			Year:  k.year,
			Month: k.month,
			Label: MonthLabel(k.year, k.month),
			Means: b.sums,
			Hours: b.hours,
		})
	}
	return out, nil
}
