package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/couchcryptid/pm25-stats/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2018, 10, 1, 8, 0, 0, 0, time.UTC)
	report := domain.CityReport{
		City:            "guangzhou",
		Stations:        []string{"PM_City Station", "PM_5th Middle School"},
		ReferenceColumn: "PM_US Post",
		Hours:           2,
		Domestic:        domain.BandShares{Light: 1, Hours: 2},
		Reference:       domain.BandShares{Medium: 0.5, Good: 0.5, Hours: 2},
		Monthly: []domain.MonthlyAverage{
			{Year: 2013, Month: 3, Label: "2013-03", Means: []float64{50, 60}, Hours: 2},
		},
		GeneratedAt: now,
	}

	msg, err := serializeToMessage(report)
	require.NoError(t, err)

	assert.Equal(t, []byte("guangzhou"), msg.Key)
	assert.Contains(t, string(msg.Value), `"reference_column":"PM_US Post"`)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "city", msg.Headers[0].Key)
	assert.Equal(t, []byte("guangzhou"), msg.Headers[0].Value)
	assert.Equal(t, "generated_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[1].Value)

	var decoded domain.CityReport
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, report.Monthly, decoded.Monthly)
	assert.InDelta(t, 0.5, decoded.Reference.Medium, 1e-9)
}
