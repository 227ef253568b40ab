package domain

import (
	"context"
	"errors"
)

// ErrUpstream means the input provider could not deliver an answer
// (transport failure, server error, open circuit). It is distinct from
// ErrNoData, where the provider answered but had no observation.
var ErrUpstream = errors.New("input provider unavailable")

// InputProvider fetches the sensed environmental inputs for a location.
// Implementations own retries and caching; the model never calls them.
type InputProvider interface {
	FetchInputs(ctx context.Context, loc Location) (EnvironmentalInputs, error)
}
