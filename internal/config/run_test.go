package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestEmptyConfigDefaults(t *testing.T) {
	cfg := EmptyRunConfig()

	assert.Equal(t, 2000.0, cfg.GetWavenumberLow())
	assert.Equal(t, 2100.0, cfg.GetWavenumberHigh())
	assert.Equal(t, 0.1, cfg.GetWavenumberSpacing())
	assert.Equal(t, 100, cfg.GetOversample())
	assert.Equal(t, 1e-8, cfg.GetEthresh())
	assert.Equal(t, 20.0, cfg.GetToomuch())
	assert.Equal(t, 60, cfg.GetDopplerBins())
	assert.Equal(t, 60, cfg.GetLorentzBins())
	assert.Equal(t, 50.0, cfg.GetHalfRangeFactor())
	assert.Equal(t, 1, cfg.GetTauLevel())
	assert.Equal(t, 1, cfg.GetModulationLevel())
	assert.Equal(t, 6.96e10, cfg.GetStarRadius())
	assert.Equal(t, 1.0, cfg.GetRefractivity())
	assert.Equal(t, "", cfg.GetCheckpointPath())
	assert.Equal(t, "spectrum.dat", cfg.GetOutputPath())
	assert.Equal(t, "", cfg.GetDBPath())
}

func TestLoadPartialConfig(t *testing.T) {
	path := writeConfig(t, `{
		"wavenumber_low": 1500,
		"wavenumber_high": 1600,
		"oversample": 20,
		"toomuch": 30,
		"checkpoint_path": "ext.chk"
	}`)

	cfg, err := LoadRunConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 1500.0, cfg.GetWavenumberLow())
	assert.Equal(t, 1600.0, cfg.GetWavenumberHigh())
	assert.Equal(t, 20, cfg.GetOversample())
	assert.Equal(t, 30.0, cfg.GetToomuch())
	assert.Equal(t, "ext.chk", cfg.GetCheckpointPath())

	// Unspecified fields keep their defaults.
	assert.Equal(t, 0.1, cfg.GetWavenumberSpacing())
	assert.Equal(t, 1e-8, cfg.GetEthresh())
}

func TestLoadRejectsNonJSONExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0644))

	_, err := LoadRunConfig(path)
	assert.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"inverted wavenumber range": `{"wavenumber_low": 2100, "wavenumber_high": 2000}`,
		"zero spacing":              `{"wavenumber_spacing": 0}`,
		"zero oversample":           `{"oversample": 0}`,
		"negative toomuch":          `{"toomuch": -1}`,
		"ethresh at 1":              `{"ethresh": 1}`,
		"bad tau level":             `{"tau_level": 3}`,
		"bad modulation level":      `{"modulation_level": 2}`,
		"tiny impact grid":          `{"impact_count": 2}`,
		"inverted impact range":     `{"impact_low": 2, "impact_high": 1}`,
		"negative star radius":      `{"star_radius": -1}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadRunConfig(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	_, err := LoadRunConfig(writeConfig(t, `{"oversample": `))
	assert.Error(t, err)
}
