package domain

// Allocation is the result of solving for a user-chosen total irrigation
// volume.
type Allocation struct {
	ReferenceTotal float64  `json:"reference_total"` // unconstrained recommendation
	ScaleFactor    float64  `json:"scale_factor"`
	Degenerate     bool     `json:"degenerate"` // no demand to scale; schedule is all zero irrigation
	Schedule       Schedule `json:"schedule"`
}

// SolveForAllocation finds the scale factor whose schedule totals
// desiredTotal. The model runs once at factor 1 to get the reference total,
// then again at desiredTotal/reference. The relationship is treated as
// linear in the factor.
//
// A zero reference total is not an error: the factor is 0 and the schedule
// carries no irrigation whatever the desired total.
func SolveForAllocation(desiredTotal float64, in ModelInputs) (Allocation, error) {
	if err := checkDepth("target_allocation", desiredTotal, MaxDepthMM*in.Units.Scale()); err != nil {
		return Allocation{}, err
	}

	reference, err := Compute(in, 1)
	if err != nil {
		return Allocation{}, err
	}
	referenceTotal := reference.TotalIrrigation()

	var factor float64
	if referenceTotal > 0 {
		factor = desiredTotal / referenceTotal
	}

	schedule, err := Compute(in, factor)
	if err != nil {
		return Allocation{}, err
	}

	return Allocation{
		ReferenceTotal: referenceTotal,
		ScaleFactor:    factor,
		Degenerate:     referenceTotal <= 0,
		Schedule:       schedule,
	}, nil
}
