// Package config loads the run configuration: a JSON file with pointer-typed
// fields so omitted keys fall back to defaults through the Get* accessors.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// RunConfig represents the root configuration for a spectrum run. Fields are
// pointers so a partial JSON file only overrides what it names; the Get*
// methods supply defaults for the rest.
type RunConfig struct {
	// Wavenumber grid (cm-1)
	WavenumberLow     *float64 `json:"wavenumber_low,omitempty"`
	WavenumberHigh    *float64 `json:"wavenumber_high,omitempty"`
	WavenumberSpacing *float64 `json:"wavenumber_spacing,omitempty"`
	Oversample        *int     `json:"oversample,omitempty"`

	// Extinction params
	Ethresh *float64 `json:"ethresh,omitempty"`
	Toomuch *float64 `json:"toomuch,omitempty"`

	// Profile cache sizing
	DopplerBins     *int     `json:"doppler_bins,omitempty"`
	LorentzBins     *int     `json:"lorentz_bins,omitempty"`
	HalfRangeFactor *float64 `json:"half_range_factor,omitempty"`
	MaxHalfPoints   *int     `json:"max_half_points,omitempty"`

	// Ray geometry params
	TauLevel        *int     `json:"tau_level,omitempty"`
	ModulationLevel *int     `json:"modulation_level,omitempty"`
	StarRadius      *float64 `json:"star_radius,omitempty"` // cm
	Refractivity    *float64 `json:"refractivity,omitempty"`

	// Impact parameter grid, in units of the atmosphere's radius scale
	ImpactLow   *float64 `json:"impact_low,omitempty"`
	ImpactHigh  *float64 `json:"impact_high,omitempty"`
	ImpactCount *int     `json:"impact_count,omitempty"`
	ImpactScale *float64 `json:"impact_scale,omitempty"` // cm per grid unit

	// Checkpoint params
	CheckpointPath *string `json:"checkpoint_path,omitempty"`

	// Output params
	OutputPath *string `json:"output_path,omitempty"`
	DBPath     *string `json:"db_path,omitempty"`
}

// EmptyRunConfig returns a RunConfig with all fields set to nil.
func EmptyRunConfig() *RunConfig {
	return &RunConfig{}
}

// LoadRunConfig loads a RunConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadRunConfig(path string) (*RunConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyRunConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *RunConfig) Validate() error {
	if c.WavenumberLow != nil && c.WavenumberHigh != nil {
		if *c.WavenumberHigh <= *c.WavenumberLow {
			return fmt.Errorf("wavenumber_high (%g) must exceed wavenumber_low (%g)",
				*c.WavenumberHigh, *c.WavenumberLow)
		}
	}
	if c.WavenumberSpacing != nil && *c.WavenumberSpacing <= 0 {
		return fmt.Errorf("wavenumber_spacing must be positive, got %g", *c.WavenumberSpacing)
	}
	if c.Oversample != nil && *c.Oversample < 1 {
		return fmt.Errorf("oversample must be at least 1, got %d", *c.Oversample)
	}
	if c.Ethresh != nil && (*c.Ethresh < 0 || *c.Ethresh >= 1) {
		return fmt.Errorf("ethresh must be in [0, 1), got %g", *c.Ethresh)
	}
	if c.Toomuch != nil && *c.Toomuch <= 0 {
		return fmt.Errorf("toomuch must be positive, got %g", *c.Toomuch)
	}
	if c.DopplerBins != nil && *c.DopplerBins < 2 {
		return fmt.Errorf("doppler_bins must be at least 2, got %d", *c.DopplerBins)
	}
	if c.LorentzBins != nil && *c.LorentzBins < 2 {
		return fmt.Errorf("lorentz_bins must be at least 2, got %d", *c.LorentzBins)
	}
	if c.HalfRangeFactor != nil && *c.HalfRangeFactor <= 0 {
		return fmt.Errorf("half_range_factor must be positive, got %g", *c.HalfRangeFactor)
	}
	if c.MaxHalfPoints != nil && *c.MaxHalfPoints < 1 {
		return fmt.Errorf("max_half_points must be at least 1, got %d", *c.MaxHalfPoints)
	}
	if c.TauLevel != nil && (*c.TauLevel < 1 || *c.TauLevel > 2) {
		return fmt.Errorf("tau_level must be 1 or 2, got %d", *c.TauLevel)
	}
	if c.ModulationLevel != nil && *c.ModulationLevel != 1 {
		return fmt.Errorf("modulation_level must be 1, got %d", *c.ModulationLevel)
	}
	if c.StarRadius != nil && *c.StarRadius <= 0 {
		return fmt.Errorf("star_radius must be positive, got %g", *c.StarRadius)
	}
	if c.Refractivity != nil && *c.Refractivity <= 0 {
		return fmt.Errorf("refractivity must be positive, got %g", *c.Refractivity)
	}
	if c.ImpactCount != nil && *c.ImpactCount < 3 {
		return fmt.Errorf("impact_count must be at least 3, got %d", *c.ImpactCount)
	}
	if c.ImpactLow != nil && c.ImpactHigh != nil {
		if *c.ImpactHigh <= *c.ImpactLow {
			return fmt.Errorf("impact_high (%g) must exceed impact_low (%g)", *c.ImpactHigh, *c.ImpactLow)
		}
	}
	return nil
}

// GetWavenumberLow returns the wavenumber_low value or the default.
func (c *RunConfig) GetWavenumberLow() float64 {
	if c.WavenumberLow == nil {
		return 2000.0
	}
	return *c.WavenumberLow
}

// GetWavenumberHigh returns the wavenumber_high value or the default.
func (c *RunConfig) GetWavenumberHigh() float64 {
	if c.WavenumberHigh == nil {
		return 2100.0
	}
	return *c.WavenumberHigh
}

// GetWavenumberSpacing returns the wavenumber_spacing value or the default.
func (c *RunConfig) GetWavenumberSpacing() float64 {
	if c.WavenumberSpacing == nil {
		return 0.1
	}
	return *c.WavenumberSpacing
}

// GetOversample returns the oversample value or the default.
func (c *RunConfig) GetOversample() int {
	if c.Oversample == nil {
		return 100
	}
	return *c.Oversample
}

// GetEthresh returns the ethresh value or the default.
func (c *RunConfig) GetEthresh() float64 {
	if c.Ethresh == nil {
		return 1e-8
	}
	return *c.Ethresh
}

// GetToomuch returns the toomuch value or the default.
func (c *RunConfig) GetToomuch() float64 {
	if c.Toomuch == nil {
		return 20.0
	}
	return *c.Toomuch
}

// GetDopplerBins returns the doppler_bins value or the default.
func (c *RunConfig) GetDopplerBins() int {
	if c.DopplerBins == nil {
		return 60
	}
	return *c.DopplerBins
}

// GetLorentzBins returns the lorentz_bins value or the default.
func (c *RunConfig) GetLorentzBins() int {
	if c.LorentzBins == nil {
		return 60
	}
	return *c.LorentzBins
}

// GetHalfRangeFactor returns the half_range_factor value or the default.
func (c *RunConfig) GetHalfRangeFactor() float64 {
	if c.HalfRangeFactor == nil {
		return 50.0
	}
	return *c.HalfRangeFactor
}

// GetMaxHalfPoints returns the max_half_points value or the default.
func (c *RunConfig) GetMaxHalfPoints() int {
	if c.MaxHalfPoints == nil {
		return 1 << 21
	}
	return *c.MaxHalfPoints
}

// GetTauLevel returns the tau_level value or the default.
func (c *RunConfig) GetTauLevel() int {
	if c.TauLevel == nil {
		return 1
	}
	return *c.TauLevel
}

// GetModulationLevel returns the modulation_level value or the default.
func (c *RunConfig) GetModulationLevel() int {
	if c.ModulationLevel == nil {
		return 1
	}
	return *c.ModulationLevel
}

// GetStarRadius returns the star_radius value or the default (one solar
// radius, cm).
func (c *RunConfig) GetStarRadius() float64 {
	if c.StarRadius == nil {
		return 6.96e10
	}
	return *c.StarRadius
}

// GetRefractivity returns the refractivity value or the default (no bending).
func (c *RunConfig) GetRefractivity() float64 {
	if c.Refractivity == nil {
		return 1.0
	}
	return *c.Refractivity
}

// GetImpactLow returns the impact_low value or the default.
func (c *RunConfig) GetImpactLow() float64 {
	if c.ImpactLow == nil {
		return 0
	}
	return *c.ImpactLow
}

// GetImpactHigh returns the impact_high value or the default. Zero means
// "use the outermost atmospheric radius".
func (c *RunConfig) GetImpactHigh() float64 {
	if c.ImpactHigh == nil {
		return 0
	}
	return *c.ImpactHigh
}

// GetImpactCount returns the impact_count value or the default. Zero means
// "one ray per atmospheric layer".
func (c *RunConfig) GetImpactCount() int {
	if c.ImpactCount == nil {
		return 0
	}
	return *c.ImpactCount
}

// GetImpactScale returns the impact_scale value or the default.
func (c *RunConfig) GetImpactScale() float64 {
	if c.ImpactScale == nil {
		return 1.0
	}
	return *c.ImpactScale
}

// GetCheckpointPath returns the checkpoint_path value or empty (no checkpoint).
func (c *RunConfig) GetCheckpointPath() string {
	if c.CheckpointPath == nil {
		return ""
	}
	return *c.CheckpointPath
}

// GetOutputPath returns the output_path value or the default.
func (c *RunConfig) GetOutputPath() string {
	if c.OutputPath == nil {
		return "spectrum.dat"
	}
	return *c.OutputPath
}

// GetDBPath returns the db_path value or empty (no database recording).
func (c *RunConfig) GetDBPath() string {
	if c.DBPath == nil {
		return ""
	}
	return *c.DBPath
}
