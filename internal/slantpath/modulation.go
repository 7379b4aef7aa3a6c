package slantpath

import (
	"fmt"
	"math"

	"github.com/exoatmos/transitspec/internal/atmo"
	"github.com/exoatmos/transitspec/internal/numutil"
)

// StarGeometry carries the stellar parameters the modulation needs: the
// stellar radius in the same physical unit the impact grid's Scale maps to.
type StarGeometry struct {
	Radius float64
}

// ModulationPerWn computes the transit modulation at one wavenumber from
// the per-impact-parameter optical depths. Level 1 is the only supported
// detail level.
//
// tau holds optical depths indexed like the descending impact grid: tau[0]
// belongs to the outermost ray and tau[last] to the innermost ray actually
// computed. Rays below index last were cut off once tau reached the
// saturation threshold toomuch.
func ModulationPerWn(level int, tau []float64, last int, toomuch float64, ip *atmo.ImpactGrid, star *StarGeometry) (float64, error) {
	if level != 1 {
		return 0, fmt.Errorf("%w: modulation level %d", ErrUnsupportedLevel, level)
	}
	return modulation(tau, last, toomuch, ip, star)
}

// modulation evaluates
//
//	M = (2 * Integral[ exp(-tau) b db ] + Rs^2 - bmax^2 + exp(-toomuch) bmin^2) / Rs^2
//
// over the sampled impact parameters, re-indexed ascending. Below the
// innermost computed ray the atmosphere is treated as opaque at the
// saturation level; up to two padding samples continue the grid downward so
// the spline has support there.
func modulation(tau []float64, last int, toomuch float64, ip *atmo.ImpactGrid, star *StarGeometry) (float64, error) {
	nv := len(ip.Values)
	if last < 0 || last >= nv {
		return 0, fmt.Errorf("slantpath: last computed ray %d out of range [0, %d)", last, nv)
	}

	// Ascending span from the innermost computed ray to the outermost one,
	// plus up to two pads below it at the saturation opacity.
	npad := nv - 1 - last
	if npad > 2 {
		npad = 2
	}
	n := last + 1 + npad
	if n < 3 {
		return 0, fmt.Errorf("%w: %d impact samples", ErrInsufficientSamples, n)
	}

	ipv := make([]float64, n)
	rinteg := make([]float64, n)
	emm := math.Exp(-toomuch)
	for i := 0; i < npad; i++ {
		ipv[i] = ip.Values[last+npad-i] * ip.Scale
		rinteg[i] = emm * ipv[i]
	}
	for i := npad; i < n; i++ {
		ipv[i] = ip.Values[last+npad-i] * ip.Scale
		rinteg[i] = math.Exp(-tau[last+npad-i]) * ipv[i]
	}

	res, err := numutil.SplineIntegral(ipv, rinteg, ipv[0], ipv[n-1])
	if err != nil {
		return 0, fmt.Errorf("modulation integral: %w", err)
	}

	// Beyond the outermost ray the planet is transparent; below the
	// innermost sample it blocks at the saturation level.
	srad := star.Radius
	bmax := ipv[n-1]
	bmin := ipv[0]
	return (2*res + srad*srad - bmax*bmax + emm*bmin*bmin) / (srad * srad), nil
}
