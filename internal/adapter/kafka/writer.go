package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/pm25-stats/internal/config"
	"github.com/couchcryptid/pm25-stats/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer publishes one message per city report to a Kafka topic.
// It implements pipeline.ReportSink.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// WriteReport serializes a city report and publishes it keyed by city, so
// successive runs for the same city land on the same partition.
func (w *Writer) WriteReport(ctx context.Context, report domain.CityReport) error {
	msg, err := serializeToMessage(report)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish city %s: %w", report.City, err)
	}
	w.logger.Debug("report published", "city", report.City, "topic", w.writer.Topic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a CityReport into a Kafka message.
func serializeToMessage(report domain.CityReport) (kafkago.Message, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize city report: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(report.City),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "city", Value: []byte(report.City)},
			{Key: "generated_at", Value: []byte(report.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}
