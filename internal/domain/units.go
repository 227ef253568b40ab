package domain

import (
	"fmt"
	"strings"
)

// UnitSystem selects the depth unit of model output.
// Sensed inputs always arrive in millimeters; the model scales them once.
type UnitSystem string

const (
	Metric   UnitSystem = "metric"
	Imperial UnitSystem = "imperial"
)

// mmToInches converts millimeters to inches.
const mmToInches = 0.03937

// ParseUnitSystem accepts "metric" or "imperial" (case-insensitive).
// An empty string means metric.
func ParseUnitSystem(s string) (UnitSystem, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "metric", "mm":
		return Metric, nil
	case "imperial", "in", "inches":
		return Imperial, nil
	default:
		return "", &InputError{Field: "units", Err: fmt.Errorf("%w: unknown unit system %q", ErrInvalidRange, s)}
	}
}

// Scale returns the factor applied to millimeter depths.
func (u UnitSystem) Scale() float64 {
	if u == Imperial {
		return mmToInches
	}
	return 1
}

// Label returns the display unit.
func (u UnitSystem) Label() string {
	if u == Imperial {
		return "inches"
	}
	return "mm"
}
