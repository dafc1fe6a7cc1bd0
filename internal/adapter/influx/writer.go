// Package influx writes city reports to InfluxDB as time series points.
package influx

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/pm25-stats/internal/domain"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

const (
	measurementMonthly  = "pm25_monthly"
	measurementSeverity = "pm25_severity"
)

// Writer sends one point per (month, station) and one per source for each
// city report. It implements pipeline.ReportSink.
type Writer struct {
	client influxdb2.Client
	org    string
	bucket string
	logger *slog.Logger
}

// NewWriter creates an InfluxDB client for the given server and bucket.
func NewWriter(url, token, org, bucket string, logger *slog.Logger) *Writer {
	return &Writer{
		client: influxdb2.NewClient(url, token),
		org:    org,
		bucket: bucket,
		logger: logger,
	}
}

func (w *Writer) WriteReport(ctx context.Context, report domain.CityReport) error {
	points := buildPoints(report)
	writeAPI := w.client.WriteAPIBlocking(w.org, w.bucket)
	if err := writeAPI.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("write influx points for %s: %w", report.City, err)
	}
	w.logger.Debug("report written to influx", "city", report.City, "points", len(points), "bucket", w.bucket)
	return nil
}

func (w *Writer) Close() error {
	w.client.Close()
	return nil
}

// buildPoints converts a report into InfluxDB points. Monthly points are
// stamped at the first instant of their month in UTC, severity points at the
// report's generation time.
func buildPoints(report domain.CityReport) []*write.Point {
	points := make([]*write.Point, 0, len(report.Monthly)*len(report.Stations)+len(domain.Sources))

	for _, m := range report.Monthly {
		ts := time.Date(m.Year, time.Month(m.Month), 1, 0, 0, 0, 0, time.UTC)
		for i, station := range report.Stations {
			if i >= len(m.Means) {
				break
			}
			points = append(points, influxdb2.NewPoint(
				measurementMonthly,
				map[string]string{"city": report.City, "station": station},
				map[string]any{"mean": m.Means[i], "hours": m.Hours},
				ts,
			))
		}
	}

	for _, src := range domain.Sources {
		sh := report.Shares(src)
		fields := make(map[string]any, len(domain.Bands)+1)
		for _, b := range domain.Bands {
			fields[b.String()] = sh.Share(b)
		}
		fields["hours"] = sh.Hours
		points = append(points, influxdb2.NewPoint(
			measurementSeverity,
			map[string]string{"city": report.City, "source": string(src)},
			fields,
			report.GeneratedAt,
		))
	}
	return points
}
