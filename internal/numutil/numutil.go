// Package numutil provides the shared numerical primitives used by the
// extinction and slant-path engines: grid searches, local interpolation,
// equispaced integration, and box downsampling.
package numutil

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/interp"
)

// ErrTooFewPoints reports an integration or interpolation call with fewer
// samples than the scheme requires.
var ErrTooFewPoints = errors.New("numutil: too few points")

// FindFloorIndex returns the index k in [lo, hi) of an ascending grid such
// that grid[k] <= target < grid[k+1]. Targets below grid[lo] clamp to lo and
// targets at or above grid[hi-1] clamp to hi-1.
func FindFloorIndex(grid []float64, target float64, lo, hi int) int {
	if target <= grid[lo] {
		return lo
	}
	if target >= grid[hi-1] {
		return hi - 1
	}
	i, f := lo, hi-1
	for f-i > 1 {
		m := (f + i) / 2
		if grid[m] > target {
			f = m
		} else {
			i = m
		}
	}
	return i
}

// InterpParab evaluates at xr the parabola through three equispaced samples
// (x[0..2], y[0..2]). Spacing and element count are not rechecked here.
func InterpParab(x, y []float64, xr float64) float64 {
	dx := x[1] - x[0]
	x0 := x[0] / dx
	my := y[0] + y[2] - 2*y[1]
	a := my / (2 * dx * dx)
	b := (y[2] - y[1] - (x0+1.5)*my) / dx
	c := y[0] + x0*(y[2]-4*y[1]+3*y[0]+x0*my)/2
	return xr*xr*a + xr*b + c
}

// InterpLine evaluates at xr the line through (x[0], y[0]) and (x[1], y[1]).
func InterpLine(x, y []float64, xr float64) float64 {
	m := (y[1] - y[0]) / (x[1] - x[0])
	return y[0] + (xr-x[0])*m
}

// InterpLineGrid linearly interpolates y(xr) on an ascending grid, clamping
// xr to the grid's end intervals.
func InterpLineGrid(x, y []float64, xr float64) float64 {
	k := FindFloorIndex(x, xr, 0, len(x))
	if k >= len(x)-1 {
		k = len(x) - 2
	}
	return InterpLine(x[k:k+2], y[k:k+2], xr)
}

// IntegSimpTrap integrates y sampled at spacing dx using the composite
// Simpson rule, closing the final interval with a trapezoid when the sample
// count is even.
func IntegSimpTrap(dx float64, y []float64) (float64, error) {
	n := len(y)
	if n < 2 {
		return 0, fmt.Errorf("%w: need at least 2, got %d", ErrTooFewPoints, n)
	}
	var restrap, res float64
	if n%2 == 0 {
		n--
		restrap = 0.5 * dx * (y[n] + y[n-1])
	}
	if n > 2 {
		n--
		for i := 1; i < n; i += 2 {
			res += y[i]
		}
		res *= 2
		for i := 2; i < n; i += 2 {
			res += y[i]
		}
		res *= 2
		res += y[0] + y[n]
	}
	return res*dx/3 + restrap, nil
}

// splineRefine controls how many sub-intervals each sample interval is split
// into before the quadrature pass in SplineIntegral.
const splineRefine = 8

// SplineIntegral integrates y(x) between a and b by fitting a natural cubic
// spline to the samples and applying Simpson quadrature on a refined
// equispaced grid. x must be strictly increasing and hold at least 3 points.
func SplineIntegral(x, y []float64, a, b float64) (float64, error) {
	if len(x) < 3 {
		return 0, fmt.Errorf("%w: spline needs at least 3, got %d", ErrTooFewPoints, len(x))
	}
	var spl interp.NaturalCubic
	if err := spl.Fit(x, y); err != nil {
		return 0, fmt.Errorf("spline fit: %w", err)
	}
	m := splineRefine*(len(x)-1) + 1
	xs := make([]float64, m)
	fs := make([]float64, m)
	h := (b - a) / float64(m-1)
	for i := range xs {
		xs[i] = a + float64(i)*h
		fs[i] = spl.Predict(xs[i])
	}
	xs[m-1] = b
	return integrate.Simpsons(xs, fs), nil
}

// Downsample reduces input by an integer scale factor into out, which must
// hold 1+(len(input)-1)/scale elements. Interior points average the scale
// samples around each resampled position; with an even scale the kernel
// boundary samples are half-weighted and shared between neighbours, so the
// integral under the curve is nearly conserved. The first and last input
// samples map onto the first and last output samples.
func Downsample(input, out []float64, scale int) error {
	n := len(input)
	m := 1 + (n-1)/scale
	if len(out) != m {
		return fmt.Errorf("numutil: downsample output size %d, want %d", len(out), m)
	}
	if scale == 1 {
		copy(out, input)
		return nil
	}
	ks := 2*(scale/2) + 1
	even := scale%2 == 0

	out[0] = 0
	for i := 0; i < ks/2+1; i++ {
		out[0] += input[i]
	}
	if even {
		out[0] -= 0.5 * input[ks/2]
	}
	out[0] /= 0.5 * float64(scale+1)

	for j := 1; j < m-1; j++ {
		out[j] = 0
		for i := -ks / 2; i < ks/2+1; i++ {
			out[j] += input[scale*j+i]
		}
		if even {
			out[j] -= 0.5 * (input[scale*j-ks/2] + input[scale*j+ks/2])
		}
		out[j] /= float64(scale)
	}

	out[m-1] = 0
	for i := n - 1 - ks/2; i < n; i++ {
		out[m-1] += input[i]
	}
	if even {
		out[m-1] -= 0.5 * input[n-ks/2]
	}
	out[m-1] /= 0.5 * float64(scale+1)
	return nil
}

// Divisors returns the positive divisors of n in ascending order. Used to
// build the dynamic-sampling candidate list from an oversampling factor.
func Divisors(n int) []int {
	var divs []int
	for d := 1; d <= n; d++ {
		if n%d == 0 {
			divs = append(divs, d)
		}
	}
	return divs
}

// Logspace returns n logarithmically spaced values between lo and hi
// inclusive. lo and hi must be positive.
func Logspace(lo, hi float64, n int) []float64 {
	if n == 1 {
		return []float64{lo}
	}
	return floats.LogSpan(make([]float64, n), lo, hi)
}
