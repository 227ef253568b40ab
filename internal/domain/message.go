package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// RawRequest is a plan request message as read from a transport, before
// decoding. Commit acknowledges it; nil means nothing to acknowledge.
type RawRequest struct {
	Key       []byte
	Value     []byte
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Headers   map[string]string
	Commit    func(ctx context.Context) error
}

// ParsePlanRequest decodes a raw message. The message key stands in for a
// missing request id.
func ParsePlanRequest(raw RawRequest) (PlanRequest, error) {
	var req PlanRequest
	if err := json.Unmarshal(raw.Value, &req); err != nil {
		return PlanRequest{}, &InputError{
			Field: "payload",
			Err:   fmt.Errorf("%w: decode plan request at %s/%d/%d: %v", ErrInvalidRange, raw.Topic, raw.Partition, raw.Offset, err),
		}
	}
	if req.ID == "" {
		req.ID = string(raw.Key)
	}
	return req, nil
}
