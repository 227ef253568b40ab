package domain

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Regenerate with: go run ./cmd/genfixture -out internal/domain/testdata/reference_scenario.json
func TestReferenceScenario_Golden(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "reference_scenario.json"))
	require.NoError(t, err)

	var want Fixture
	require.NoError(t, json.Unmarshal(data, &want))

	got, err := NewFixture(ReferenceScenario())
	require.NoError(t, err)

	opts := cmp.Options{
		cmp.AllowUnexported(Reading{}),
		cmpopts.EquateApprox(0, floatTolerance),
	}
	if diff := cmp.Diff(want, got, opts); diff != "" {
		t.Errorf("reference scenario mismatch (-golden +got):\n%s", diff)
	}
}

func TestReferenceScenario_KnownValues(t *testing.T) {
	got, err := NewFixture(ReferenceScenario())
	require.NoError(t, err)

	s := got.Schedule
	assert.InDelta(t, 0.6214958718812562, s.CropCoefficient, floatTolerance)
	assert.Equal(t, 240.0, s.EffectiveRainfall)
	assert.InDelta(t, 23.75, s.SoilWaterIndex, floatTolerance)
	assert.Empty(t, s.DroughtMonths())
	assert.InDelta(t, referenceTotal, got.TotalIrrigation, floatTolerance)

	// July gives up a fifth of its demand to August and September.
	assert.InDelta(t, 59.13090960792937, s.Months[6].Irrigation, floatTolerance)
	assert.InDelta(t, 70.94821551525813, s.Months[7].Irrigation, floatTolerance)
}
