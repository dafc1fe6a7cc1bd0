package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/pm25-stats/internal/adapter/chart"
	"github.com/couchcryptid/pm25-stats/internal/adapter/csvfile"
	httpadapter "github.com/couchcryptid/pm25-stats/internal/adapter/http"
	"github.com/couchcryptid/pm25-stats/internal/adapter/influx"
	kafkaadapter "github.com/couchcryptid/pm25-stats/internal/adapter/kafka"
	"github.com/couchcryptid/pm25-stats/internal/adapter/sqlite"
	"github.com/couchcryptid/pm25-stats/internal/config"
	"github.com/couchcryptid/pm25-stats/internal/observability"
	"github.com/couchcryptid/pm25-stats/internal/pipeline"
	"github.com/joho/godotenv"
)

func main() {
	// A .env file is optional; real environment variables take precedence.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	if err := os.MkdirAll(cfg.OutputPath, 0o755); err != nil {
		logger.Error("failed to create output directory", "path", cfg.OutputPath, "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sinks, closers, err := buildSinks(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize sinks", "error", err)
		closeAll(closers, logger)
		os.Exit(1)
	}
	defer closeAll(closers, logger)

	loader := csvfile.NewLoader(cfg.DatasetPath, logger)
	analyzer := pipeline.NewAnalyzer(logger)
	p := pipeline.New(loader, analyzer, logger, metrics, sinks...)

	var srv *httpadapter.Server
	if cfg.HTTPAddr != "" {
		srv = httpadapter.NewServer(cfg.HTTPAddr, p, p, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	_, runErr := p.Run(ctx, cfg.Cities)
	if runErr != nil {
		logger.Error("batch failed", "error", runErr)
	}

	if srv != nil && ctx.Err() == nil {
		logger.Info("serving results until interrupted", "addr", cfg.HTTPAddr)
		<-ctx.Done()
	}

	if srv != nil {
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}

	if runErr != nil {
		closeAll(closers, logger)
		os.Exit(1)
	}
	logger.Info("done")
}

type namedCloser struct {
	name string
	c    io.Closer
}

// buildSinks wires the output sinks enabled by cfg, local files first.
func buildSinks(ctx context.Context, cfg *config.Config, logger *slog.Logger) ([]pipeline.Sink, []namedCloser, error) {
	var (
		sinks   []pipeline.Sink
		closers []namedCloser
	)

	if cfg.SaveMonthly {
		sinks = append(sinks, pipeline.Sink{Name: "monthly_csv", Report: csvfile.NewMonthlyWriter(cfg.OutputPath, logger)})
	}
	if cfg.SaveSummary {
		sinks = append(sinks, pipeline.Sink{Name: "summary_csv", Summary: csvfile.NewSummaryWriter(cfg.OutputPath, logger)})
	}
	if cfg.PlotEnabled {
		sinks = append(sinks, pipeline.Sink{Name: "chart", Report: chart.NewRenderer(cfg.OutputPath, logger)})
	}

	if cfg.SQLitePath != "" {
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, closers, err
		}
		closers = append(closers, namedCloser{"sqlite", db})
		store := sqlite.NewStore(db, logger)
		if err := store.Init(ctx); err != nil {
			return nil, closers, err
		}
		sinks = append(sinks, pipeline.Sink{Name: "sqlite", Report: store})
		logger.Info("sqlite sink enabled", "path", cfg.SQLitePath)
	}

	if len(cfg.KafkaBrokers) > 0 {
		w := kafkaadapter.NewWriter(cfg, logger)
		closers = append(closers, namedCloser{"kafka", w})
		sinks = append(sinks, pipeline.Sink{Name: "kafka", Report: w})
		logger.Info("kafka sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	if cfg.InfluxURL != "" {
		w := influx.NewWriter(cfg.InfluxURL, cfg.InfluxToken, cfg.InfluxOrg, cfg.InfluxBucket, logger)
		closers = append(closers, namedCloser{"influxdb", w})
		sinks = append(sinks, pipeline.Sink{Name: "influxdb", Report: w})
		logger.Info("influxdb sink enabled", "url", cfg.InfluxURL, "bucket", cfg.InfluxBucket)
	}

	if len(sinks) == 0 {
		logger.Warn("no output sinks enabled; statistics will only be logged")
	}
	return sinks, closers, nil
}

func closeAll(closers []namedCloser, logger *slog.Logger) {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].c.Close(); err != nil {
			logger.Error("close error", "sink", closers[i].name, "error", err)
		}
	}
}
