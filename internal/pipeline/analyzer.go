package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/pm25-stats/internal/domain"
)

// StatsAnalyzer implements Analyzer using the domain statistics functions.
type StatsAnalyzer struct {
	logger *slog.Logger
}

// NewAnalyzer creates a StatsAnalyzer.
func NewAnalyzer(logger *slog.Logger) *StatsAnalyzer {
	return &StatsAnalyzer{logger: logger}
}

func (a *StatsAnalyzer) Analyze(ctx context.Context, ds domain.Dataset) (domain.CityReport, error) {
	if err := ctx.Err(); err != nil {
		return domain.CityReport{}, err
	}
	report, err := domain.Analyze(ds)
	if err != nil {
		return domain.CityReport{}, err
	}
	a.logger.Debug("city analyzed",
		"city", report.City,
		"hours", report.Hours,
		"months", len(report.Monthly),
		"domestic_heavy", report.Domestic.Heavy,
		"reference_heavy", report.Reference.Heavy,
	)
	return report, nil
}
