package domain

import "fmt"

// Fixture pins a plan request and the schedule the model produces for it.
// Golden files under testdata are Fixtures; cmd/genfixture writes them and
// cmd/validate checks them.
type Fixture struct {
	Request         PlanRequest `json:"request"`
	Schedule        Schedule    `json:"schedule"`
	TotalIrrigation float64     `json:"total_irrigation"`
}

// ReferenceScenario is the canonical regression case: a half-green orchard
// with 300 mm of winter rain and the default March–October season.
func ReferenceScenario() PlanRequest {
	et0 := []float64{10, 15, 30, 50, 80, 100, 110, 100, 70, 40, 20, 10}
	records := make([]MonthlyET, len(et0))
	for i, v := range et0 {
		records[i] = MonthlyET{Month: i + 1, ET0: Observed(v)}
	}
	return PlanRequest{
		ID:       "reference",
		Units:    Metric,
		Season:   DefaultSeason,
		Location: Location{Lat: 31.3929, Lon: 34.8126},
		Inputs: &EnvironmentalInputs{
			Greenness: Observed(0.5),
			Rainfall:  Observed(300),
			ET0:       records,
		},
	}
}

// NewFixture runs a request with explicit inputs through the model.
func NewFixture(req PlanRequest) (Fixture, error) {
	if req.Inputs == nil {
		return Fixture{}, fmt.Errorf("fixture %q: %w", req.ID, noData("inputs"))
	}
	req, err := req.Normalize(Metric)
	if err != nil {
		return Fixture{}, fmt.Errorf("fixture %q: %w", req.ID, err)
	}
	_, alloc, err := Plan(req, *req.Inputs)
	if err != nil {
		return Fixture{}, fmt.Errorf("fixture %q: %w", req.ID, err)
	}

	return Fixture{
		Request:         req,
		Schedule:        alloc.Schedule,
		TotalIrrigation: alloc.Schedule.TotalIrrigation(),
	}, nil
}
