// Package slantpath integrates optical depth along rays through a
// spherically symmetric atmosphere and folds the result into the transit
// modulation. Rays are parameterized by impact parameter; the geometry is
// either straight (constant refractivity) or bent (refractivity varying
// with radius, closest approach solved iteratively).
package slantpath

import (
	"errors"
	"fmt"
	"math"

	"github.com/exoatmos/transitspec/internal/atmo"
	"github.com/exoatmos/transitspec/internal/numutil"
)

var (
	ErrImpactParamRange    = errors.New("slantpath: closest approach outside sampled radius range")
	ErrConvergence         = errors.New("slantpath: closest-approach iteration did not converge")
	ErrUnsupportedLevel    = errors.New("slantpath: unsupported detail level")
	ErrInsufficientSamples = errors.New("slantpath: not enough samples for integration")
)

// Geometry selects the ray solution.
type Geometry int

const (
	Straight Geometry = iota + 1
	Bent
)

// RaySolution describes one ray-geometry variant: its display name, whether
// the impact-parameter grid must be equispaced, and how many detail levels
// its modulation function supports.
type RaySolution struct {
	Name                     string
	Geometry                 Geometry
	RequiresEquispacedImpact bool
	ModulationLevels         int
}

// Solutions enumerates the supported ray solutions, keyed by tau detail level.
var Solutions = map[int]RaySolution{
	1: {Name: "slant path", Geometry: Straight, RequiresEquispacedImpact: true, ModulationLevels: 1},
	2: {Name: "slant path (refractive)", Geometry: Bent, RequiresEquispacedImpact: true, ModulationLevels: 1},
}

// CheckImpact validates the impact-parameter grid against the solution's
// sampling requirements.
func (s RaySolution) CheckImpact(ip *atmo.ImpactGrid) error {
	if !s.RequiresEquispacedImpact {
		return nil
	}
	v := ip.Values
	if len(v) < 2 {
		return fmt.Errorf("%w: %d impact parameters", ErrInsufficientSamples, len(v))
	}
	step := v[1] - v[0]
	for i := 2; i < len(v); i++ {
		if d := v[i] - v[i-1]; math.Abs(d-step) > 1e-9*math.Abs(step) {
			return fmt.Errorf("slantpath: %s needs an equispaced impact grid (step %g at sample %d, expected %g)",
				s.Name, d, i, step)
		}
	}
	return nil
}

// maxIterations caps the bent-path closest-approach fixed-point iteration.
const maxIterations = 50

// TotalTau computes the optical depth along the ray with impact parameter b
// through extinction samples ex on the ascending radius grid rad. Level 1 is
// the straight-path solution (refr[0] used as a constant refractivity);
// level 2 is the bent-path solution (refr per radius). Any other level fails
// with ErrUnsupportedLevel.
func TotalTau(level int, b float64, rad, refr, ex []float64) (float64, error) {
	switch level {
	case 1:
		return totalTauStraight(b, rad, refr[0], ex)
	case 2:
		return totalTauBent(b, rad, refr, ex)
	default:
		return 0, fmt.Errorf("%w: tau level %d", ErrUnsupportedLevel, level)
	}
}

// totalTauStraight integrates along an unbent ray. The closest-approach
// extinction is estimated by parabolic interpolation, the remaining radii
// are remapped to path-length coordinates, and the integral is evaluated by
// spline quadrature, or in closed form when only the outermost interval
// remains. The input slices are never modified.
func totalTauStraight(b float64, rad []float64, refr float64, ex []float64) (float64, error) {
	n := len(rad)
	if n < 3 {
		return 0, fmt.Errorf("%w: %d radii", ErrInsufficientSamples, n)
	}
	r0 := b / refr

	// A ray whose closest approach lies at or beyond the outermost sampled
	// radius misses the atmosphere entirely.
	if r0 >= rad[n-1] {
		return 0, nil
	}
	if r0 < rad[0] {
		return 0, fmt.Errorf("%w: %g not in [%g, %g]", ErrImpactParamRange, r0, rad[0], rad[n-1])
	}
	rs := numutil.FindFloorIndex(rad, r0, 0, n)

	// Work on local copies so the shared grid stays untouched: the sample
	// below the closest approach is replaced by the interpolated value at r0.
	m := n - rs
	radp := make([]float64, m)
	exp0 := make([]float64, m)
	copy(radp, rad[rs:])
	copy(exp0, ex[rs:])
	if m == 2 {
		exp0[0] = numutil.InterpParab(rad[rs-1:rs+2], ex[rs-1:rs+2], r0)
	} else {
		exp0[0] = numutil.InterpParab(rad[rs:rs+3], ex[rs:rs+3], r0)
	}
	radp[0] = r0
	dr := radp[1] - radp[0]

	var res float64
	if m > 2 {
		// Remap radii to distance along the path from the closest approach.
		s := make([]float64, m)
		bigDr := radp[2] - radp[1]
		cte := dr * (dr + 2*r0)
		for i := 1; i < m; i++ {
			fi := float64(i - 1)
			s[i] = math.Sqrt(cte + fi*bigDr*(2*(r0+dr)+fi*bigDr))
		}
		var err error
		res, err = numutil.SplineIntegral(s, exp0, s[0], s[m-1])
		if err != nil {
			return 0, fmt.Errorf("straight path integral: %w", err)
		}
	} else {
		res = analyticTail(exp0[0], exp0[1], r0, radp[1], dr)
	}
	// Both halves of the path through the closest approach.
	return 2 * res, nil
}

// totalTauBent integrates along a refraction-bent ray. The closest approach
// satisfies r0 = b/refr(r0) and is solved by fixed-point iteration; the
// near-field term is closed analytically and the far field integrated
// numerically over radius.
func totalTauBent(b float64, rad, refr, ex []float64) (float64, error) {
	n := len(rad)
	if n < 2 {
		return 0, fmt.Errorf("%w: %d radii", ErrInsufficientSamples, n)
	}

	r0a := b
	var r0 float64
	for i := 0; ; i++ {
		r0 = b / numutil.InterpLineGrid(rad, refr, r0a)
		if r0 == r0a || math.Abs(r0-r0a) <= 1e-12*math.Abs(r0) {
			break
		}
		if i > maxIterations {
			return 0, fmt.Errorf("%w: %d iterations (%.6g != %.6g)", ErrConvergence, maxIterations, r0, r0a)
		}
		r0a = r0
	}

	if r0 >= rad[n-1] {
		return 0, nil
	}
	if r0 < rad[0] {
		return 0, fmt.Errorf("%w: %g not in [%g, %g]", ErrImpactParamRange, r0, rad[0], rad[n-1])
	}
	rs := numutil.FindFloorIndex(rad, r0, 0, n) + 1

	// Analytic near-field: the integrand diverges at the closest approach,
	// so the first interval is closed in form assuming linear extinction.
	res := analyticTail(ex[rs-1], ex[rs], r0, rad[rs], rad[rs]-rad[rs-1])

	// Far field: dt = ex / sqrt(1 - (b/(n r))^2) over the remaining radii.
	dt := make([]float64, n-rs)
	for i := rs; i < n; i++ {
		q := b / (refr[i] * rad[i])
		if q > 1 {
			return 0, fmt.Errorf("slantpath: bent path b/(n r) = %g > 1 at radius %g", q, rad[i])
		}
		dt[i-rs] = ex[i] / math.Sqrt(1-q*q)
	}

	switch {
	case n-rs > 2:
		tail, err := numutil.SplineIntegral(rad[rs:], dt, rad[rs], rad[n-1])
		if err != nil {
			return 0, fmt.Errorf("bent path integral: %w", err)
		}
		res += tail
	case n-rs > 1:
		tail, err := numutil.IntegSimpTrap(rad[1]-rad[0], dt)
		if err != nil {
			return 0, fmt.Errorf("bent path integral: %w", err)
		}
		res += tail
	}
	return 2 * res, nil
}

// analyticTail closes the integral over the interval just above the closest
// approach r0: constant extinction integrates to ex0*r0*sqrt((rm/r0)^2-1),
// linearly varying extinction to a log/sqrt form whose sign follows the
// slope.
func analyticTail(ex0, ex1, r0, rm, dr float64) float64 {
	if ex1 == ex0 {
		return ex0 * r0 * math.Sqrt(rm*rm/(r0*r0)-1)
	}
	alpha := (ex1 - ex0) / dr
	root := rm * math.Sqrt(rm*rm-r0*r0)
	lg := r0 * r0 * math.Log(math.Sqrt(rm*rm/(r0*r0)-1)+rm/r0)
	if alpha < 0 {
		return -alpha * (root - lg) / 2
	}
	return alpha * (root + lg) / 2
}
