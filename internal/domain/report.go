package domain

import (
	"math"
	"time"
)

// PlanRequest asks for an irrigation plan at one location. Inputs, when
// set, bypass the remote input adapter (offline runs, replays, tests).
type PlanRequest struct {
	ID               string               `json:"id,omitempty" yaml:"id"`
	Location         Location             `json:"location" yaml:"location"`
	Units            UnitSystem           `json:"units,omitempty" yaml:"units"`
	WinterIrrigation float64              `json:"winter_irrigation" yaml:"winter_irrigation"` // output units
	Season           SeasonBounds         `json:"season" yaml:"season"`
	RainfallOverride Reading              `json:"rainfall_override_mm" yaml:"rainfall_override_mm"`
	TargetAllocation Reading              `json:"target_allocation" yaml:"target_allocation"` // output units
	Inputs           *EnvironmentalInputs `json:"inputs,omitempty" yaml:"inputs"`
}

// Normalize fills the unit system and season defaults and validates the
// request-level fields.
func (r PlanRequest) Normalize(defaultUnits UnitSystem) (PlanRequest, error) {
	if r.Units == "" {
		r.Units = defaultUnits
	}
	units, err := ParseUnitSystem(string(r.Units))
	if err != nil {
		return r, err
	}
	r.Units = units

	if r.Season.IsZero() {
		r.Season = DefaultSeason
	}
	if err := r.Season.Validate(); err != nil {
		return r, err
	}
	if err := r.Location.Validate(); err != nil {
		return r, err
	}
	return r, nil
}

// ModelInputs combines the request adjustments with the sensed inputs.
func (r PlanRequest) ModelInputs(env EnvironmentalInputs) (ModelInputs, error) {
	// Scalars first so a missing greenness is reported before ET0 problems.
	if !env.Greenness.Valid() {
		return ModelInputs{}, noData("greenness")
	}
	if !env.Rainfall.Valid() {
		return ModelInputs{}, noData("rainfall")
	}
	et0, err := NewMonthlyETSeries(env.ET0)
	if err != nil {
		return ModelInputs{}, err
	}
	in := ModelInputs{
		Greenness:        env.Greenness,
		Rainfall:         env.Rainfall,
		RainfallOverride: r.RainfallOverride,
		ET0:              et0,
		WinterIrrigation: r.WinterIrrigation,
		Season:           r.Season,
		Units:            r.Units,
	}
	return in, in.Validate()
}

// Recommend computes the unconstrained schedule (scale factor 1) and wraps
// it as an Allocation so callers handle both paths alike.
func Recommend(in ModelInputs) (Allocation, error) {
	s, err := Compute(in, 1)
	if err != nil {
		return Allocation{}, err
	}
	total := s.TotalIrrigation()
	return Allocation{
		ReferenceTotal: total,
		ScaleFactor:    1,
		Degenerate:     total <= 0,
		Schedule:       s,
	}, nil
}

// Plan builds the model inputs for a normalized request and runs the
// allocation solve when a target is set, the recommendation otherwise.
func Plan(req PlanRequest, env EnvironmentalInputs) (ModelInputs, Allocation, error) {
	in, err := req.ModelInputs(env)
	if err != nil {
		return ModelInputs{}, Allocation{}, err
	}

	var alloc Allocation
	if target, ok := req.TargetAllocation.Value(); ok {
		alloc, err = SolveForAllocation(target, in)
	} else {
		alloc, err = Recommend(in)
	}
	if err != nil {
		return ModelInputs{}, Allocation{}, err
	}
	return in, alloc, nil
}

// InputBounds are the adjustment ranges offered to a user, in output units.
type InputBounds struct {
	WinterIrrigationMax  float64 `json:"winter_irrigation_max"`
	WinterIrrigationStep float64 `json:"winter_irrigation_step"`
	RainfallOverrideMax  float64 `json:"rainfall_override_max"`
	AllocationMax        float64 `json:"allocation_max"`
	AllocationStep       float64 `json:"allocation_step"`
}

// Bounds scales the metric adjustment ranges to the unit system, rounded
// to whole units.
func Bounds(units UnitSystem) InputBounds {
	scale := units.Scale()
	whole := func(mm float64) float64 { return math.RoundToEven(mm * scale) }
	return InputBounds{
		WinterIrrigationMax:  whole(700),
		WinterIrrigationStep: whole(20),
		RainfallOverrideMax:  whole(1000),
		AllocationMax:        whole(1500),
		AllocationStep:       whole(20),
	}
}

// Report is the rendered outcome of a plan request.
type Report struct {
	RequestID             string       `json:"request_id"`
	Location              Location     `json:"location"`
	Units                 UnitSystem   `json:"units"`
	UnitLabel             string       `json:"unit_label"`
	NDVI                  float64      `json:"ndvi"`
	CropCoefficient       float64      `json:"crop_coefficient"`
	SensedRainfall        float64      `json:"sensed_rainfall"`
	AppliedRainfall       float64      `json:"applied_rainfall"`
	RainfallOverridden    bool         `json:"rainfall_overridden"`
	TotalET0              float64      `json:"total_et0"`
	RecommendedIrrigation float64      `json:"recommended_irrigation"`
	ScaleFactor           float64      `json:"scale_factor"`
	TotalIrrigation       float64      `json:"total_irrigation"`
	Degenerate            bool         `json:"degenerate"`
	DroughtMonths         []int        `json:"drought_months"`
	Schedule              Schedule     `json:"schedule"`
	Table                 []DisplayRow `json:"table"`
	Bounds                InputBounds  `json:"bounds"`
	GeneratedAt           time.Time    `json:"generated_at"`
}

// BuildReport assembles a report. Rainfall figures are shown in output
// units; the raw sensed value is kept next to the applied one.
func BuildReport(req PlanRequest, in ModelInputs, alloc Allocation) Report {
	scale := in.Units.Scale()
	ndvi, _ := in.Greenness.Value()
	sensed, _ := in.Rainfall.Value()
	applied, _ := in.AppliedRainfall()

	return Report{
		RequestID:             req.ID,
		Location:              req.Location,
		Units:                 in.Units,
		UnitLabel:             in.Units.Label(),
		NDVI:                  ndvi,
		CropCoefficient:       alloc.Schedule.CropCoefficient,
		SensedRainfall:        sensed * scale,
		AppliedRainfall:       applied * scale,
		RainfallOverridden:    in.RainfallOverride.Valid(),
		TotalET0:              alloc.Schedule.TotalET0(),
		RecommendedIrrigation: alloc.ReferenceTotal,
		ScaleFactor:           alloc.ScaleFactor,
		TotalIrrigation:       alloc.Schedule.TotalIrrigation(),
		Degenerate:            alloc.Degenerate,
		DroughtMonths:         alloc.Schedule.DroughtMonths(),
		Schedule:              alloc.Schedule,
		Table:                 alloc.Schedule.Table(),
		Bounds:                Bounds(in.Units),
		GeneratedAt:           clock.Now(),
	}
}
