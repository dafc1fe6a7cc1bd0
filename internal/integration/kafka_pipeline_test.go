//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/couchcryptid/pm25-stats/internal/adapter/csvfile"
	"github.com/couchcryptid/pm25-stats/internal/adapter/kafka"
	"github.com/couchcryptid/pm25-stats/internal/adapter/sqlite"
	"github.com/couchcryptid/pm25-stats/internal/config"
	"github.com/couchcryptid/pm25-stats/internal/domain"
	"github.com/couchcryptid/pm25-stats/internal/observability"
	"github.com/couchcryptid/pm25-stats/internal/pipeline"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const testTopic = "test-pm25-city-stats"

const cityCSV = `No,year,month,day,hour,season,PM_Dongsi,PM_Dongsihuan,PM_US Post,TEMP
1,2015,1,1,0,4,200,180,250,-5
2,2015,1,1,1,4,NA,100,120,-5
3,2015,1,1,2,4,60,70,80,-6
4,2015,2,1,0,4,20,30,10,-2
`

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	ctr, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("pm25-test"))
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err, "start kafka container")

	brokers, err := ctr.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrlConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrlConn.Close()

	require.NoError(t, ctrlConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// TestPipelinePublishesReports runs the batch over a real CSV file with the
// Kafka and SQLite sinks enabled and reads the published report back.
func TestPipelinePublishesReports(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	dataDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "beijing.csv"), []byte(cityCSV), 0o600))

	cfg := &config.Config{
		KafkaBrokers: []string{broker},
		KafkaTopic:   testTopic,
	}
	city := config.City{
		ID:        "beijing",
		File:      "beijing.csv",
		Stations:  []string{"PM_Dongsi", "PM_Dongsihuan"},
		Reference: "PM_US Post",
	}

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "stats.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	store := sqlite.NewStore(db, discardLogger())
	require.NoError(t, store.Init(ctx))

	p := pipeline.New(
		csvfile.NewLoader(dataDir, discardLogger()),
		pipeline.NewAnalyzer(discardLogger()),
		discardLogger(),
		observability.NewMetricsForTesting(),
		pipeline.Sink{Name: "kafka", Report: writer},
		pipeline.Sink{Name: "sqlite", Report: store},
	)

	summary, err := p.Run(ctx, []config.City{city})
	require.NoError(t, err)
	require.Equal(t, []string{"beijing"}, summary.Processed)
	require.Zero(t, summary.SinkErrors)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:   []string{broker},
		Topic:     testTopic,
		Partition: 0,
		MaxWait:   500 * time.Millisecond,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
	defer readCancel()
	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read published report")

	assert.Equal(t, "beijing", string(msg.Key))
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "beijing", headers["city"])
	assert.NotEmpty(t, headers["generated_at"])

	var report domain.CityReport
	require.NoError(t, json.Unmarshal(msg.Value, &report))
	assert.Equal(t, 3, report.Hours)
	assert.Equal(t, 1, report.Dropped)
	// domestic: 190 heavy, 65 light, 25 good; reference: 250 heavy, 80 medium, 10 good
	assert.InDelta(t, 1.0/3, report.Domestic.Heavy, 1e-9)
	assert.InDelta(t, 1.0/3, report.Domestic.Light, 1e-9)
	assert.InDelta(t, 1.0/3, report.Reference.Medium, 1e-9)
	require.Len(t, report.Monthly, 2)
	assert.Equal(t, "2015-01", report.Monthly[0].Label)
	assert.InDelta(t, 130, report.Monthly[0].Means[0], 1e-9)
	assert.InDelta(t, 125, report.Monthly[0].Means[1], 1e-9)

	shares, _, err := store.Shares(ctx, "beijing", domain.SourceReference)
	require.NoError(t, err)
	assert.InDelta(t, 1.0/3, shares.Heavy, 1e-9)
}
