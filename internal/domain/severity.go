package domain

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// Band is a PM2.5 severity band.
type Band int

// Bands in descending order of severity.
const (
	BandHeavy Band = iota
	BandMedium
	BandLight
	BandGood
)

// Bands lists every band in report order.
var Bands = [...]Band{BandHeavy, BandMedium, BandLight, BandGood}

// Band thresholds in µg/m³. Each bound belongs to the band below it.
const (
	heavyAbove  = 150.0
	mediumAbove = 75.0
	lightAbove  = 35.0
)

func (b Band) String() string {
	switch b {
	case BandHeavy:
		return "heavy"
	case BandMedium:
		return "medium"
	case BandLight:
		return "light"
	case BandGood:
		return "good"
	default:
		return fmt.Sprintf("band(%d)", int(b))
	}
}

// Classify maps a PM2.5 value to its severity band.
func Classify(v float64) Band {
	switch {
	case v > heavyAbove:
		return BandHeavy
	case v > mediumAbove:
		return BandMedium
	case v > lightAbove:
		return BandLight
	default:
		return BandGood
	}
}

// ValueRule extracts the representative PM2.5 value of a record.
type ValueRule func(Record) float64

// DomesticValue is the mean of the station readings.
func DomesticValue(r Record) float64 {
	return stat.Mean(r.Stations, nil)
}

// ReferenceValue is the reference (US post) reading.
func ReferenceValue(r Record) float64 {
	return r.Reference
}

// Source names one of the two compared measurement sources.
type Source string

const (
	SourceDomestic  Source = "domestic"
	SourceReference Source = "reference"
)

// Sources lists both sources in report order.
var Sources = [...]Source{SourceDomestic, SourceReference}

// Rule returns the value rule for the source.
func (s Source) Rule() ValueRule {
	if s == SourceReference {
		return ReferenceValue
	}
	return DomesticValue
}

// BandShares holds the fraction of hours falling in each band.
type BandShares struct {
	Heavy  float64 `json:"heavy"`
	Medium float64 `json:"medium"`
	Light  float64 `json:"light"`
	Good   float64 `json:"good"`
	Hours  int     `json:"hours"`
}

// Share returns the fraction for a single band.
func (s BandShares) Share(b Band) float64 {
	switch b {
	case BandHeavy:
		return s.Heavy
	case BandMedium:
		return s.Medium
	case BandLight:
		return s.Light
	case BandGood:
		return s.Good
	default:
		return 0
	}
}

// Values returns the shares in report order: heavy, medium, light, good.
func (s BandShares) Values() []float64 {
	return []float64{s.Heavy, s.Medium, s.Light, s.Good}
}

// SeverityShares classifies every record of ds by the value the rule extracts
// and returns the fraction of records per band.
func SeverityShares(ds Dataset, rule ValueRule) (BandShares, error) {
	n := len(ds.Records)
	if n == 0 {
		return BandShares{}, ErrEmptyDataset
	}

	var counts [len(Bands)]int
	for _, rec := range ds.Records {
		counts[Classify(rule(rec))]++
	}

	total := float64(n)
	return BandShares{
		Heavy:  float64(counts[BandHeavy]) / total,
		Medium: float64(counts[BandMedium]) / total,
		Light:  float64(counts[BandLight]) / total,
		Good:   float64(counts[BandGood]) / total,
		Hours:  n,
	}, nil
}

// CompareSources computes the band shares of the domestic and reference sources.
func CompareSources(ds Dataset) (domestic, reference BandShares, err error) {
	domestic, err = SeverityShares(ds, SourceDomestic.Rule())
	if err != nil {
		return BandShares{}, BandShares{}, fmt.Errorf("domestic shares: %w", err)
	}
	reference, err = SeverityShares(ds, SourceReference.Rule())
	if err != nil {
		return BandShares{}, BandShares{}, fmt.Errorf("reference shares: %w", err)
	}
	return domestic, reference, nil
}
