package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/couchcryptid/water-budget-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const referenceTotal = 324.95372241589814

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestPlan_Table(t *testing.T) {
	out, err := run(t, "plan", "testdata/field.yaml")
	require.NoError(t, err)

	assert.Contains(t, out, "Irrigation plan reference")
	assert.Contains(t, out, "325 mm")
	assert.Contains(t, out, "Mar")
	assert.Contains(t, out, "Oct")
	assert.NotContains(t, out, "Nov")
	assert.NotContains(t, out, "scale factor")
}

func TestPlan_JSON(t *testing.T) {
	out, err := run(t, "plan", "testdata/field.yaml", "--json")
	require.NoError(t, err)

	var report domain.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "reference", report.RequestID)
	assert.InDelta(t, referenceTotal, report.RecommendedIrrigation, 1e-9)
	assert.InDelta(t, 1.0, report.ScaleFactor, 1e-12)
	assert.Len(t, report.Table, 8)
}

func TestPlan_UnitsOverride(t *testing.T) {
	out, err := run(t, "plan", "testdata/field.yaml", "--json", "--units", "imperial")
	require.NoError(t, err)

	var report domain.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, domain.Imperial, report.Units)
	assert.Equal(t, "inches", report.UnitLabel)
	assert.InDelta(t, 300/25.4, report.SensedRainfall, 1e-9)
}

func TestSolve(t *testing.T) {
	t.Run("scales to target", func(t *testing.T) {
		out, err := run(t, "solve", "testdata/field.yaml", "--target", "650", "--json")
		require.NoError(t, err)

		var report domain.Report
		require.NoError(t, json.Unmarshal([]byte(out), &report))
		assert.InDelta(t, 650/referenceTotal, report.ScaleFactor, 1e-9)
		assert.InDelta(t, 650, report.TotalIrrigation, 1e-6)
	})

	t.Run("table shows allocation", func(t *testing.T) {
		out, err := run(t, "solve", "testdata/field.yaml", "-t", "650")
		require.NoError(t, err)
		assert.Contains(t, out, "Allocated irrigation")
		assert.Contains(t, out, "650 mm")
	})

	t.Run("target is required", func(t *testing.T) {
		_, err := run(t, "solve", "testdata/field.yaml")
		require.Error(t, err)
	})
}

func TestPlan_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing file", []string{"plan", "testdata/absent.yaml"}},
		{"no inputs", []string{"plan", "testdata/no_inputs.yaml"}},
		{"unknown units", []string{"plan", "testdata/field.yaml", "--units", "furlongs"}},
		{"no arguments", []string{"plan"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestPlan_InvalidUnitsIsInputError(t *testing.T) {
	_, err := run(t, "plan", "testdata/field.yaml", "--units", "furlongs")
	assert.ErrorIs(t, err, domain.ErrInvalidRange)
}

func TestWindows(t *testing.T) {
	out, err := run(t, "windows", "--json")
	require.NoError(t, err)

	var w domain.AcquisitionWindows
	require.NoError(t, json.Unmarshal([]byte(out), &w))
	assert.True(t, w.Greenness.Start.Before(w.Greenness.End))
	assert.True(t, w.Rainfall.Start.Before(w.Rainfall.End))
	assert.Equal(t, domain.ET0Window, w.ET0)
}

func TestPlan_DegenerateNote(t *testing.T) {
	data, err := os.ReadFile("testdata/field.yaml")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "bare.yaml")
	require.NoError(t, os.WriteFile(path, []byte(strings.Replace(string(data), "ndvi: 0.5", "ndvi: 0", 1)), 0o600))

	out, err := run(t, "plan", path)
	require.NoError(t, err)
	assert.Contains(t, out, "no irrigation demand to scale")
	assert.NotContains(t, out, "rainfall covers")
}
