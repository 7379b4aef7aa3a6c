package atmo

import (
	"fmt"
	"math"

	"github.com/exoatmos/transitspec/internal/numutil"
)

// WavenumberGrid is the output sampling grid plus its oversampled companion.
// Values are ascending and equispaced; Fine holds the same range sampled
// Oversample times finer. Divisors is the ascending candidate list for the
// per-layer dynamic sampling factor; every candidate divides Oversample so a
// dynamic grid always downsamples back onto Values exactly.
type WavenumberGrid struct {
	Values  []float64
	Spacing float64

	Oversample  int
	Fine        []float64
	FineSpacing float64

	Divisors []int
}

// NewWavenumberGrid builds the output grid covering [lo, hi] at the given
// spacing together with its oversampled variant.
func NewWavenumberGrid(lo, hi, spacing float64, oversample int) (*WavenumberGrid, error) {
	if spacing <= 0 || hi <= lo {
		return nil, fmt.Errorf("atmo: bad wavenumber range [%g, %g] spacing %g", lo, hi, spacing)
	}
	if oversample < 1 {
		return nil, fmt.Errorf("atmo: oversample factor %d < 1", oversample)
	}
	// Rounding, not truncation: (hi-lo)/spacing lands just under the integer
	// count for many decimal spacings and would drop the top sample.
	n := int(math.Round((hi-lo)/spacing)) + 1
	g := &WavenumberGrid{
		Values:      make([]float64, n),
		Spacing:     spacing,
		Oversample:  oversample,
		FineSpacing: spacing / float64(oversample),
		Divisors:    numutil.Divisors(oversample),
	}
	for i := range g.Values {
		g.Values[i] = lo + float64(i)*spacing
	}
	on := (n-1)*oversample + 1
	g.Fine = make([]float64, on)
	for i := range g.Fine {
		g.Fine[i] = lo + float64(i)*g.FineSpacing
	}
	return g, nil
}

// ImpactGrid holds impact-parameter samples in descending order, with a
// scale factor converting the stored values to cm.
type ImpactGrid struct {
	Values []float64 // descending
	Scale  float64
}

// NewImpactGrid builds a descending, equispaced impact-parameter grid from
// hi down to lo with n samples.
func NewImpactGrid(lo, hi float64, n int, scale float64) (*ImpactGrid, error) {
	if n < 3 {
		return nil, fmt.Errorf("atmo: impact grid needs at least 3 samples, got %d", n)
	}
	if hi <= lo {
		return nil, fmt.Errorf("atmo: bad impact range [%g, %g]", lo, hi)
	}
	g := &ImpactGrid{Values: make([]float64, n), Scale: scale}
	step := (hi - lo) / float64(n-1)
	for i := range g.Values {
		g.Values[i] = hi - float64(i)*step
	}
	return g, nil
}
