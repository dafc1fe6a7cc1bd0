package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/pm25-stats/internal/config"
	"github.com/couchcryptid/pm25-stats/internal/domain"
	"github.com/couchcryptid/pm25-stats/internal/observability"
)

// DatasetLoader reads the dataset of one city.
type DatasetLoader interface {
	LoadCity(ctx context.Context, city config.City) (domain.Dataset, error)
}

// Analyzer computes the statistics of one city's dataset.
type Analyzer interface {
	Analyze(ctx context.Context, ds domain.Dataset) (domain.CityReport, error)
}

// ReportSink receives each city report as soon as it is computed.
type ReportSink interface {
	WriteReport(ctx context.Context, report domain.CityReport) error
}

// SummarySink receives the reports of every successful city once the run ends.
type SummarySink interface {
	WriteSummary(ctx context.Context, reports []domain.CityReport) error
}

// Sink is a named output. Either or both of Report and Summary may be set.
type Sink struct {
	Name    string
	Report  ReportSink
	Summary SummarySink
}

// CityFailure records a city that was skipped.
type CityFailure struct {
	City   string
	Reason string
	Err    error
}

// RunSummary describes the outcome of one batch run.
type RunSummary struct {
	Processed  []string
	Failed     []CityFailure
	SinkErrors int
	Duration   time.Duration
}

// ErrAllCitiesFailed is returned by Run when no city could be processed.
var ErrAllCitiesFailed = errors.New("no city could be processed")

// Pipeline loads, analyzes, and publishes the statistics of each city in turn.
type Pipeline struct {
	loader   DatasetLoader
	analyzer Analyzer
	sinks    []Sink
	logger   *slog.Logger
	metrics  *observability.Metrics
	ready    atomic.Bool

	mu      sync.RWMutex
	reports []domain.CityReport
}

// New creates a Pipeline with the given stages, observability, and sinks.
func New(l DatasetLoader, a Analyzer, logger *slog.Logger, metrics *observability.Metrics, sinks ...Sink) *Pipeline {
	return &Pipeline{
		loader:   l,
		analyzer: a,
		sinks:    sinks,
		logger:   logger,
		metrics:  metrics,
	}
}

// CheckReadiness returns nil once a run has completed.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("batch has not completed yet")
	}
	return nil
}

// Reports returns the city reports of the last completed run.
func (p *Pipeline) Reports() []domain.CityReport {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.reports)
}

// Run processes cities sequentially. A city that fails to load or analyze is
// logged and skipped; a failing sink is logged and counted but does not fail
// the city. Summary sinks run once after the last city.
func (p *Pipeline) Run(ctx context.Context, cities []config.City) (RunSummary, error) {
	start := time.Now()
	p.logger.Info("batch started", "cities", len(cities), "sinks", len(p.sinks))
	p.metrics.BatchRunning.Set(1)
	defer p.metrics.BatchRunning.Set(0)

	var summary RunSummary
	reports := make([]domain.CityReport, 0, len(cities))

	for _, city := range cities {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		report, err := p.processCity(ctx, city, &summary)
		if err != nil {
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			reason := failureReason(err)
			p.logger.Warn("city skipped", "city", city.ID, "reason", reason, "error", err)
			p.metrics.CityFailures.WithLabelValues(reason).Inc()
			summary.Failed = append(summary.Failed, CityFailure{City: city.ID, Reason: reason, Err: err})
			continue
		}
		reports = append(reports, report)
		summary.Processed = append(summary.Processed, city.ID)
	}

	if len(reports) > 0 {
		p.writeSummaries(ctx, reports, &summary)
	}

	p.mu.Lock()
	p.reports = reports
	p.mu.Unlock()
	p.ready.Store(true)

	summary.Duration = time.Since(start)
	p.logger.Info("batch finished",
		"processed", len(summary.Processed),
		"failed", len(summary.Failed),
		"sink_errors", summary.SinkErrors,
		"duration", summary.Duration,
	)

	if len(cities) > 0 && len(reports) == 0 {
		return summary, ErrAllCitiesFailed
	}
	return summary, nil
}

func (p *Pipeline) processCity(ctx context.Context, city config.City, summary *RunSummary) (domain.CityReport, error) {
	start := time.Now()

	ds, err := p.loader.LoadCity(ctx, city)
	if err != nil {
		return domain.CityReport{}, fmt.Errorf("load: %w", err)
	}
	p.metrics.RowsRead.WithLabelValues(city.ID).Add(float64(ds.Len() + ds.Dropped))
	p.metrics.RowsDropped.WithLabelValues(city.ID).Add(float64(ds.Dropped))

	report, err := p.analyzer.Analyze(ctx, ds)
	if err != nil {
		return domain.CityReport{}, fmt.Errorf("analyze: %w", err)
	}

	for _, src := range domain.Sources {
		shares := report.Shares(src)
		for _, b := range domain.Bands {
			p.metrics.SeverityShare.WithLabelValues(report.City, string(src), b.String()).Set(shares.Share(b))
		}
	}

	for _, s := range p.sinks {
		if s.Report == nil {
			continue
		}
		if err := s.Report.WriteReport(ctx, report); err != nil {
			p.sinkFailed(s.Name, err, summary, "city", city.ID)
		}
	}

	p.metrics.CitiesProcessed.Inc()
	p.metrics.CityProcessingDuration.Observe(time.Since(start).Seconds())
	p.logger.Info("city processed",
		"city", city.ID,
		"hours", report.Hours,
		"dropped", report.Dropped,
		"months", len(report.Monthly),
	)
	return report, nil
}

func (p *Pipeline) writeSummaries(ctx context.Context, reports []domain.CityReport, summary *RunSummary) {
	for _, s := range p.sinks {
		if s.Summary == nil {
			continue
		}
		if err := s.Summary.WriteSummary(ctx, reports); err != nil {
			p.sinkFailed(s.Name, err, summary)
		}
	}
}

func (p *Pipeline) sinkFailed(name string, err error, summary *RunSummary, attrs ...any) {
	p.logger.Error("sink write failed", append([]any{"sink", name, "error", err}, attrs...)...)
	p.metrics.SinkErrors.WithLabelValues(name).Inc()
	summary.SinkErrors++
}

// failureReason maps an error to the city_failures_total reason label.
func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrFileNotFound):
		return "file_not_found"
	case errors.Is(err, domain.ErrDataFormat):
		return "data_format"
	case errors.Is(err, domain.ErrEmptyDataset):
		return "empty_dataset"
	default:
		return "other"
	}
}
