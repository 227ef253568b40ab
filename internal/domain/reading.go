package domain

import (
	"bytes"
	"encoding/json"
	"math"
)

// Reading is a sensed scalar that may be absent. The zero value is missing,
// so a legitimate 0 (bare soil NDVI, a dry winter) must be built with Observed.
type Reading struct {
	value float64
	ok    bool
}

// Observed wraps a sensed value. NaN is treated as absent.
func Observed(v float64) Reading {
	if math.IsNaN(v) {
		return Reading{}
	}
	return Reading{value: v, ok: true}
}

// Missing returns an absent reading.
func Missing() Reading { return Reading{} }

// Value returns the reading and whether it was observed.
func (r Reading) Value() (float64, bool) { return r.value, r.ok }

// Valid reports whether the reading was observed.
func (r Reading) Valid() bool { return r.ok }

// MarshalJSON encodes a missing reading as null.
func (r Reading) MarshalJSON() ([]byte, error) {
	if !r.ok {
		return []byte("null"), nil
	}
	return json.Marshal(r.value)
}

// UnmarshalJSON decodes null as missing.
func (r *Reading) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*r = Reading{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*r = Observed(v)
	return nil
}

// UnmarshalYAML decodes a YAML scalar; an explicit null is missing.
func (r *Reading) UnmarshalYAML(unmarshal func(any) error) error {
	var v *float64
	if err := unmarshal(&v); err != nil {
		return err
	}
	if v == nil {
		*r = Reading{}
		return nil
	}
	*r = Observed(*v)
	return nil
}
