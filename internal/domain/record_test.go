package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testReference = "PM_US Post"

func testTable(rows ...[]float64) Table {
	return Table{
		Columns: []string{ColumnYear, ColumnMonth, "PM_A", "PM_B", testReference},
		Rows:    rows,
	}
}

func TestNewDataset(t *testing.T) {
	table := testTable(
		[]float64{2013, 3, 117, 166, 140},
		[]float64{2013, 3, 90, 80, 70},
	)
	table.Dropped = 4

	ds, err := NewDataset("beijing", []string{"PM_A", "PM_B"}, testReference, table)
	require.NoError(t, err)

	assert.Equal(t, "beijing", ds.City)
	assert.Equal(t, testReference, ds.Reference)
	assert.Equal(t, 2, ds.Len())
	assert.Equal(t, 4, ds.Dropped)
	assert.Equal(t, Record{Year: 2013, Month: 3, Stations: []float64{117, 166}, Reference: 140}, ds.Records[0])
}

func TestNewDataset_LayoutMismatch(t *testing.T) {
	tests := []struct {
		name      string
		stations  []string
		reference string
		table     Table
	}{
		{"no stations", nil, testReference, testTable()},
		{"column count", []string{"PM_A"}, testReference, testTable()},
		{"reference swapped", []string{"PM_A", testReference}, "PM_B", testTable()},
		{"short row", []string{"PM_A", "PM_B"}, testReference, testTable([]float64{2013, 3, 1})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDataset("x", tt.stations, tt.reference, tt.table)
			require.ErrorIs(t, err, ErrDataFormat)
		})
	}
}

func TestAnalyze(t *testing.T) {
	fixed := time.Date(2018, time.October, 1, 8, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(fixed))
	t.Cleanup(func() { SetClock(nil) })

	ds := testDataset(
		rec(2013, 3, 100, 120, 110),
		rec(2013, 4, 10, 20, 200),
	)
	ds.Dropped = 3

	report, err := Analyze(ds)
	require.NoError(t, err)

	assert.Equal(t, "testcity", report.City)
	assert.Equal(t, testReference, report.ReferenceColumn)
	assert.Equal(t, 2, report.Hours)
	assert.Equal(t, 3, report.Dropped)
	assert.Equal(t, fixed, report.GeneratedAt)
	assert.InDelta(t, 0.5, report.Domestic.Medium, shareTolerance)
	assert.InDelta(t, 0.5, report.Domestic.Good, shareTolerance)
	assert.InDelta(t, 0.5, report.Reference.Heavy, shareTolerance)
	assert.Equal(t, report.Reference, report.Shares(SourceReference))
	assert.Equal(t, report.Domestic, report.Shares(SourceDomestic))
	require.Len(t, report.Monthly, 2)
	assert.Equal(t, "2013-03", report.Monthly[0].Label)
}

func TestAnalyze_EmptyDataset(t *testing.T) {
	_, err := Analyze(testDataset())
	require.ErrorIs(t, err, ErrEmptyDataset)
	assert.Contains(t, err.Error(), "testcity")
}
