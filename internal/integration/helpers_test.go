//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/couchcryptid/water-budget-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const kafkaImage = "confluentinc/confluent-local:7.5.0"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node Kafka container and returns its broker address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, kafkaImage, tckafka.WithClusterID("water-budget-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = container.Terminate(stopCtx)
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a single-partition topic through the cluster controller.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// referenceGeodata serves the reference scenario's inputs for any location,
// in the wire units of the geodata service (PET in tenths of a millimeter).
func referenceGeodata(t *testing.T) *httptest.Server {
	t.Helper()
	env := *domain.ReferenceScenario().Inputs
	valueOf := func(r domain.Reading) float64 {
		v, _ := r.Value()
		return v
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		var body any
		switch r.URL.Path {
		case "/v1/ndvi":
			body = map[string]any{"value": valueOf(env.Greenness)}
		case "/v1/precipitation":
			body = map[string]any{"value": valueOf(env.Rainfall)}
		case "/v1/pet":
			months := make([]map[string]any, 0, len(env.ET0))
			for _, rec := range env.ET0 {
				months = append(months, map[string]any{"month": rec.Month, "value": valueOf(rec.ET0) * 10})
			}
			body = map[string]any{"months": months}
		default:
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// planRequest is the reference scenario without inputs, so the pipeline has
// to fetch them.
func planRequest(t *testing.T, id string, lat float64) []byte {
	t.Helper()
	req := domain.ReferenceScenario()
	req.ID = id
	req.Inputs = nil
	req.Location.Lat = lat
	data, err := json.Marshal(req)
	require.NoError(t, err)
	return data
}
