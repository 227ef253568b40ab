// Command validate recomputes plan fixtures and checks the model's
// invariants against them: the stored schedule matches a fresh run,
// depths are non-negative, the allocation solver round-trips, imperial
// output is the metric output scaled, and repeated runs are identical.
//
// Usage:
//
//	go run ./cmd/validate -fixture internal/domain/testdata/reference_scenario.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/couchcryptid/water-budget-service/internal/domain"
)

const tolerance = 1e-9

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	fixturePath := flag.String("fixture", "", "path to a plan fixture JSON file")
	flag.Parse()

	if *fixturePath == "" {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(*fixturePath))
}

func run(path string) int {
	fmt.Println("=== Water Budget Fixture Validation ===")
	fmt.Println()

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read fixture: %v\n", err)
		return 1
	}
	var stored domain.Fixture
	if err := json.Unmarshal(data, &stored); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: decode fixture: %v\n", err)
		return 1
	}

	req, err := stored.Request.Normalize(domain.Metric)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: fixture request: %v\n", err)
		return 1
	}
	if req.Inputs == nil {
		fmt.Fprintln(os.Stderr, "FATAL: fixture request carries no inputs")
		return 1
	}
	in, err := req.ModelInputs(*req.Inputs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: fixture inputs: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateGolden(stored),
		validateNonNegative(in),
		validateRoundTrip(in),
		validateUnits(in),
		validateIdempotence(in),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Golden ──
// The stored schedule must equal a fresh computation.

func validateGolden(stored domain.Fixture) *phase {
	p := &phase{name: "Phase 1: Golden schedule"}

	fresh, err := domain.NewFixture(stored.Request)
	if err != nil {
		p.errorf("recompute: %v", err)
		return p
	}
	if !floatEq(fresh.TotalIrrigation, stored.TotalIrrigation) {
		p.errorf("total irrigation: stored %g, computed %g", stored.TotalIrrigation, fresh.TotalIrrigation)
	}
	for i := range fresh.Schedule.Months {
		got, want := fresh.Schedule.Months[i], stored.Schedule.Months[i]
		if !floatEq(got.Irrigation, want.Irrigation) {
			p.errorf("month %d irrigation: stored %g, computed %g", want.Month, want.Irrigation, got.Irrigation)
		}
		if !floatEq(got.SoilWater, want.SoilWater) {
			p.errorf("month %d soil water: stored %g, computed %g", want.Month, want.SoilWater, got.SoilWater)
		}
		if got.Status != want.Status {
			p.errorf("month %d status: stored %s, computed %s", want.Month, want.Status, got.Status)
		}
	}
	return p
}

// ── Phase 2: Non-negativity ──

func validateNonNegative(in domain.ModelInputs) *phase {
	p := &phase{name: "Phase 2: Non-negative depths"}
	for _, factor := range []float64{0, 0.5, 1, 2} {
		s, err := domain.Compute(in, factor)
		if err != nil {
			p.errorf("factor %g: %v", factor, err)
			continue
		}
		for _, m := range s.Months {
			if m.Irrigation < 0 || m.SoilWater < 0 {
				p.errorf("factor %g month %d: irrigation %g, soil water %g", factor, m.Month, m.Irrigation, m.SoilWater)
			}
			if !in.Season.Contains(m.Month) && m.Irrigation != 0 {
				p.errorf("factor %g month %d: irrigation %g outside the season", factor, m.Month, m.Irrigation)
			}
		}
	}
	return p
}

// ── Phase 3: Allocation round-trip ──

func validateRoundTrip(in domain.ModelInputs) *phase {
	p := &phase{name: "Phase 3: Allocation round-trip"}
	rec, err := domain.Recommend(in)
	if err != nil {
		p.errorf("recommend: %v", err)
		return p
	}
	if rec.Degenerate {
		fmt.Println("  Note: reference schedule needs no irrigation; round-trip is trivially zero")
		return p
	}
	for _, frac := range []float64{0, 0.25, 0.5, 1, 1.5} {
		target := rec.ReferenceTotal * frac
		alloc, err := domain.SolveForAllocation(target, in)
		if err != nil {
			p.errorf("target %g: %v", target, err)
			continue
		}
		if got := alloc.Schedule.TotalIrrigation(); math.Abs(got-target) > 1e-6*math.Max(1, target) {
			p.errorf("target %g: schedule totals %g", target, got)
		}
	}
	return p
}

// ── Phase 4: Unit consistency ──

func validateUnits(in domain.ModelInputs) *phase {
	p := &phase{name: "Phase 4: Unit consistency"}
	metricIn := in
	metricIn.Units = domain.Metric
	imperialIn := in
	imperialIn.Units = domain.Imperial
	// Winter irrigation is in output units and has to be converted too.
	imperialIn.WinterIrrigation = in.WinterIrrigation * domain.Imperial.Scale()

	m, err := domain.Compute(metricIn, 1)
	if err != nil {
		p.errorf("metric: %v", err)
		return p
	}
	imp, err := domain.Compute(imperialIn, 1)
	if err != nil {
		p.errorf("imperial: %v", err)
		return p
	}
	scale := domain.Imperial.Scale()
	for i := range m.Months {
		want := m.Months[i].Irrigation * scale
		if math.Abs(imp.Months[i].Irrigation-want) > 1e-6 {
			p.errorf("month %d: imperial %g, metric×scale %g", i+1, imp.Months[i].Irrigation, want)
		}
	}
	return p
}

// ── Phase 5: Idempotence ──

func validateIdempotence(in domain.ModelInputs) *phase {
	p := &phase{name: "Phase 5: Idempotence"}
	first, err := domain.Compute(in, 1)
	if err != nil {
		p.errorf("first run: %v", err)
		return p
	}
	for run := 2; run <= 3; run++ {
		again, err := domain.Compute(in, 1)
		if err != nil {
			p.errorf("run %d: %v", run, err)
			continue
		}
		if again != first {
			p.errorf("run %d differs from the first", run)
		}
	}
	return p
}

func floatEq(a, b float64) bool {
	return math.Abs(a-b) < tolerance
}
