package voigt

import (
	"fmt"

	"github.com/exoatmos/transitspec/internal/monitoring"
	"github.com/exoatmos/transitspec/internal/numutil"
)

// Cache holds Voigt profiles precomputed on a log-spaced grid of Doppler and
// Lorentz widths. It is built once per run and shared read-only across all
// layers and lines.
type Cache struct {
	Doppler []float64 // ascending width samples
	Lorentz []float64

	Spacing         float64 // wavenumber spacing of every cached profile
	HalfRangeFactor float64
	MaxHalfPoints   int

	profiles [][][]float64 // [doppler bin][lorentz bin]
	halfSize [][]int
}

// NewCache precomputes nDop*nLor profiles sampled at spacing, covering the
// width ranges [dopMin, dopMax] and [lorMin, lorMax] with logarithmic bins.
func NewCache(nDop, nLor int, dopMin, dopMax, lorMin, lorMax, spacing, halfRangeFactor float64, maxHalfPoints int) (*Cache, error) {
	if nDop < 1 || nLor < 1 {
		return nil, fmt.Errorf("voigt: cache needs at least one bin per axis, got %dx%d", nDop, nLor)
	}
	if dopMin <= 0 || lorMin <= 0 {
		return nil, fmt.Errorf("voigt: width ranges must be positive, got doppler %g, lorentz %g", dopMin, lorMin)
	}
	c := &Cache{
		Doppler:         numutil.Logspace(dopMin, dopMax, nDop),
		Lorentz:         numutil.Logspace(lorMin, lorMax, nLor),
		Spacing:         spacing,
		HalfRangeFactor: halfRangeFactor,
		MaxHalfPoints:   maxHalfPoints,
	}
	c.profiles = make([][][]float64, nDop)
	c.halfSize = make([][]int, nDop)
	var samples int
	for i := range c.profiles {
		c.profiles[i] = make([][]float64, nLor)
		c.halfSize[i] = make([]int, nLor)
		for j := range c.profiles[i] {
			p, half, err := Synthesize(spacing, c.Doppler[i], c.Lorentz[j], halfRangeFactor, maxHalfPoints)
			if err != nil {
				return nil, fmt.Errorf("cache bin (%d,%d): %w", i, j, err)
			}
			c.profiles[i][j] = p
			c.halfSize[i][j] = half
			samples += len(p)
		}
	}
	monitoring.Logf("[Voigt] cached %dx%d profiles (%d samples, spacing %.6g)", nDop, nLor, samples, spacing)
	return c, nil
}

// FindDoppler returns the width bin whose Doppler sample is nearest below w.
func (c *Cache) FindDoppler(w float64) int {
	return numutil.FindFloorIndex(c.Doppler, w, 0, len(c.Doppler))
}

// FindLorentz returns the width bin whose Lorentz sample is nearest below w.
func (c *Cache) FindLorentz(w float64) int {
	return numutil.FindFloorIndex(c.Lorentz, w, 0, len(c.Lorentz))
}

// Profile returns the cached samples and half size for a width bin pair.
func (c *Cache) Profile(iDop, iLor int) ([]float64, int) {
	return c.profiles[iDop][iLor], c.halfSize[iDop][iLor]
}
