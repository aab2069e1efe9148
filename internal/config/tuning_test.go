package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadTuningEmptyPathReturnsDefaults(t *testing.T) {
	got, err := LoadTuning("")
	require.NoError(t, err)
	assert.Equal(t, DefaultTuning(), got)
}

func TestLoadTuningJSONOverlaysDefaults(t *testing.T) {
	p := writeFile(t, "tuning.json", `{"physics": {"maxForce": 150, "gravityEnabled": true}}`)

	got, err := LoadTuning(p)
	require.NoError(t, err)
	assert.Equal(t, 150.0, got.Physics.MaxForce)
	assert.True(t, got.Physics.GravityEnabled)
	// untouched keys keep defaults
	assert.Equal(t, 0.01, got.Physics.FrictionCoefficient)
	assert.Equal(t, 30.0, got.Planner.SpreadAngle)
}

func TestLoadTuningYAML(t *testing.T) {
	p := writeFile(t, "tuning.yaml", `
physics:
  frictionCoefficient: 0.012
  gravityLagWindow: 120
planner:
  overlapFactor: 0.85
`)

	got, err := LoadTuning(p)
	require.NoError(t, err)
	assert.Equal(t, 0.012, got.Physics.FrictionCoefficient)
	assert.Equal(t, int64(120), got.Physics.GravityLagWindow)
	assert.Equal(t, 0.85, got.Planner.OverlapFactor)
}

func TestLoadTuningRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"negative max force", `{"physics": {"maxForce": -1}}`},
		{"friction of one", `{"physics": {"frictionCoefficient": 1}}`},
		{"unknown section", `{"render": {}}`},
		{"unknown key", `{"planner": {"bogus": 1}}`},
		{"wrong type", `{"physics": {"gravityEnabled": "yes"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := writeFile(t, "tuning.json", tt.body)
			_, err := LoadTuning(p)
			assert.Error(t, err)
		})
	}
}

func TestLoadTuningMissingFile(t *testing.T) {
	_, err := LoadTuning(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
