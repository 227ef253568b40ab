package domain

import (
	"math"
)

// MonthsPerYear is the fixed length of every monthly series.
const MonthsPerYear = 12

// MaxDepthMM caps every accepted water depth, monthly or seasonal. It sits
// far above any physical value and keeps the model arithmetic finite.
const MaxDepthMM = 100_000

// checkDepth rejects a depth that is negative, not finite, or above limit.
func checkDepth(field string, v, limit float64) error {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return outOfRange(field, "depth %g is negative or not finite", v)
	}
	if v > limit {
		return outOfRange(field, "depth %g exceeds %g", v, limit)
	}
	return nil
}

// Location is a WGS-84 point picked by the user.
type Location struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// Validate rejects coordinates outside the WGS-84 range.
func (l Location) Validate() error {
	if math.IsNaN(l.Lat) || l.Lat < -90 || l.Lat > 90 {
		return outOfRange("location.lat", "%g not in [-90, 90]", l.Lat)
	}
	if math.IsNaN(l.Lon) || l.Lon < -180 || l.Lon > 180 {
		return outOfRange("location.lon", "%g not in [-180, 180]", l.Lon)
	}
	return nil
}

// SeasonBounds is the inclusive range of irrigation-active months.
type SeasonBounds struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// DefaultSeason is March through October.
var DefaultSeason = SeasonBounds{Start: 3, End: 10}

// growingWindow is the canonical growing season whose ET0 is always counted.
var growingWindow = SeasonBounds{Start: 3, End: 10}

// Validate requires 1 <= Start <= End <= 12.
func (s SeasonBounds) Validate() error {
	if s.Start < 1 || s.Start > MonthsPerYear {
		return outOfRange("season.start", "month %d not in [1, 12]", s.Start)
	}
	if s.End < 1 || s.End > MonthsPerYear {
		return outOfRange("season.end", "month %d not in [1, 12]", s.End)
	}
	if s.Start > s.End {
		return outOfRange("season", "start %d after end %d", s.Start, s.End)
	}
	return nil
}

// Contains reports whether month falls inside the bounds.
func (s SeasonBounds) Contains(month int) bool {
	return month >= s.Start && month <= s.End
}

// Len is the number of months in the season.
func (s SeasonBounds) Len() int {
	if s.End < s.Start {
		return 0
	}
	return s.End - s.Start + 1
}

// IsZero reports whether the bounds were left unset.
func (s SeasonBounds) IsZero() bool { return s.Start == 0 && s.End == 0 }

// MonthlyET is one record of a monthly ET0 series as delivered by the
// input adapter, in millimeters.
type MonthlyET struct {
	Month int     `json:"month" yaml:"month"`
	ET0   Reading `json:"et0" yaml:"et0"`
}

// MonthlyETSeries holds one validated ET0 depth per calendar month;
// index 0 is January.
type MonthlyETSeries [MonthsPerYear]float64

// NewMonthlyETSeries validates adapter records: exactly one observed,
// non-negative value for every month 1..12, in any order.
func NewMonthlyETSeries(records []MonthlyET) (MonthlyETSeries, error) {
	var series MonthlyETSeries
	if len(records) == 0 {
		return series, noData("et0")
	}
	if len(records) != MonthsPerYear {
		return series, outOfRange("et0", "got %d monthly records, want 12", len(records))
	}

	var seen [MonthsPerYear]bool
	for _, rec := range records {
		if rec.Month < 1 || rec.Month > MonthsPerYear {
			return series, outOfRange("et0", "month %d not in [1, 12]", rec.Month)
		}
		if seen[rec.Month-1] {
			return series, outOfRange("et0", "duplicate month %d", rec.Month)
		}
		seen[rec.Month-1] = true

		v, ok := rec.ET0.Value()
		if !ok {
			return series, noData("et0")
		}
		if err := checkDepth("et0", v, MaxDepthMM); err != nil {
			return series, err
		}
		series[rec.Month-1] = v
	}
	return series, nil
}

// Records returns the series as calendar-ordered adapter records.
func (s MonthlyETSeries) Records() []MonthlyET {
	out := make([]MonthlyET, MonthsPerYear)
	for i, v := range s {
		out[i] = MonthlyET{Month: i + 1, ET0: Observed(v)}
	}
	return out
}

// ModelInputs is everything the irrigation model consumes besides the
// scale factor. Depths from the sensing layer are millimeters; winter
// irrigation is already in output units.
type ModelInputs struct {
	Greenness        Reading
	Rainfall         Reading // sensed cool-season total, mm
	RainfallOverride Reading // field-corrected total, mm; wins when observed
	ET0              MonthlyETSeries
	WinterIrrigation float64
	Season           SeasonBounds
	Units            UnitSystem
}

// AppliedRainfall is the rainfall total that drives the computation.
func (in ModelInputs) AppliedRainfall() (float64, bool) {
	if v, ok := in.RainfallOverride.Value(); ok {
		return v, true
	}
	return in.Rainfall.Value()
}

// Validate checks every input before any arithmetic. Missing sensed values
// fail with ErrNoData; out-of-domain values fail with ErrInvalidRange.
func (in ModelInputs) Validate() error {
	g, ok := in.Greenness.Value()
	if !ok {
		return noData("greenness")
	}
	if g < 0 || g > 1 || math.IsNaN(g) {
		return outOfRange("greenness", "%g not in [0, 1]", g)
	}

	if !in.Rainfall.Valid() {
		return noData("rainfall")
	}
	rain, _ := in.Rainfall.Value()
	if err := checkDepth("rainfall", rain, MaxDepthMM); err != nil {
		return err
	}
	if v, ok := in.RainfallOverride.Value(); ok {
		if err := checkDepth("rainfall_override", v, MaxDepthMM); err != nil {
			return err
		}
	}

	for _, v := range in.ET0 {
		if err := checkDepth("et0", v, MaxDepthMM); err != nil {
			return err
		}
	}

	if in.Units != Metric && in.Units != Imperial {
		return outOfRange("units", "unknown unit system %q", in.Units)
	}

	// Winter irrigation is already in output units.
	if err := checkDepth("winter_irrigation", in.WinterIrrigation, MaxDepthMM*in.Units.Scale()); err != nil {
		return err
	}

	return in.Season.Validate()
}

// EnvironmentalInputs is what the input adapter returns for one location.
// Any field may be absent; absence is surfaced, never defaulted.
type EnvironmentalInputs struct {
	Greenness Reading     `json:"ndvi" yaml:"ndvi"`
	Rainfall  Reading     `json:"rainfall_mm" yaml:"rainfall_mm"`
	ET0       []MonthlyET `json:"et0" yaml:"et0"`
}

// Complete reports whether every quantity was observed.
func (e EnvironmentalInputs) Complete() bool {
	if !e.Greenness.Valid() || !e.Rainfall.Valid() || len(e.ET0) != MonthsPerYear {
		return false
	}
	for _, rec := range e.ET0 {
		if !rec.ET0.Valid() {
			return false
		}
	}
	return true
}
