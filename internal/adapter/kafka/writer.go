package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/water-budget-service/internal/config"
	"github.com/couchcryptid/water-budget-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Report header keys and status values.
const (
	headerUnits       = "units"
	headerGeneratedAt = "generated_at"
	headerStatus      = "status"

	statusOK         = "ok"
	statusDegenerate = "degenerate"
)

// Writer produces plan reports to a Kafka topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch serializes and publishes reports in a single WriteMessages call.
// Reports are keyed by request id so replies for one request stay ordered.
func (w *Writer) LoadBatch(ctx context.Context, reports []domain.Report) error {
	if len(reports) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(reports))
	for i := range reports {
		msg, err := serializeToMessage(reports[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d reports: %w", len(msgs), err)
	}
	w.logger.Debug("reports written", "count", len(msgs), "topic", w.writer.Topic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a Report into a Kafka message.
func serializeToMessage(report domain.Report) (kafkago.Message, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize report %s: %w", report.RequestID, err)
	}
	status := statusOK
	if report.Degenerate {
		status = statusDegenerate
	}
	return kafkago.Message{
		Key:   []byte(report.RequestID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: headerUnits, Value: []byte(report.Units)},
			{Key: headerGeneratedAt, Value: []byte(report.GeneratedAt.Format(time.RFC3339))},
			{Key: headerStatus, Value: []byte(status)},
		},
	}, nil
}
