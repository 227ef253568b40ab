package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/couchcryptid/water-budget-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapMessageToRawRequest(t *testing.T) {
	now := time.Now()
	msg := kafkago.Message{
		Key:       []byte("req-1"),
		Value:     []byte(`{"location":{"lat":31.4,"lon":34.8}}`),
		Topic:     "irrigation-plan-requests",
		Partition: 2,
		Offset:    42,
		Time:      now,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte("field-app")},
		},
	}

	raw := mapMessageToRawRequest(msg)

	assert.Equal(t, []byte("req-1"), raw.Key)
	assert.JSONEq(t, `{"location":{"lat":31.4,"lon":34.8}}`, string(raw.Value))
	assert.Equal(t, "irrigation-plan-requests", raw.Topic)
	assert.Equal(t, 2, raw.Partition)
	assert.Equal(t, int64(42), raw.Offset)
	assert.Equal(t, now, raw.Timestamp)
	assert.Equal(t, "field-app", raw.Headers["source"])
	assert.Nil(t, raw.Commit)

	req, err := domain.ParsePlanRequest(raw)
	require.NoError(t, err)
	assert.Equal(t, "req-1", req.ID)
	assert.Equal(t, 31.4, req.Location.Lat)
}

func TestSerializeToMessage(t *testing.T) {
	generated := time.Date(2025, 8, 3, 9, 30, 0, 0, time.UTC)
	report := domain.Report{
		RequestID:       "req-1",
		Units:           domain.Imperial,
		TotalIrrigation: 12.8,
		GeneratedAt:     generated,
	}

	msg, err := serializeToMessage(report)
	require.NoError(t, err)

	assert.Equal(t, []byte("req-1"), msg.Key)
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, headerUnits, msg.Headers[0].Key)
	assert.Equal(t, []byte("imperial"), msg.Headers[0].Value)
	assert.Equal(t, headerGeneratedAt, msg.Headers[1].Key)
	assert.Equal(t, []byte(generated.Format(time.RFC3339)), msg.Headers[1].Value)
	assert.Equal(t, headerStatus, msg.Headers[2].Key)
	assert.Equal(t, []byte(statusOK), msg.Headers[2].Value)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "req-1", decoded["request_id"])
	assert.Equal(t, 12.8, decoded["total_irrigation"])
}

func TestSerializeToMessage_Degenerate(t *testing.T) {
	msg, err := serializeToMessage(domain.Report{RequestID: "req-2", Degenerate: true})
	require.NoError(t, err)
	assert.Equal(t, []byte(statusDegenerate), msg.Headers[2].Value)
}
