package slantpath

import (
	"errors"
	"math"
	"testing"

	"github.com/exoatmos/transitspec/internal/atmo"
)

func equispacedRadii(lo, hi float64, n int) []float64 {
	rad := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range rad {
		rad[i] = lo + float64(i)*step
	}
	return rad
}

func constSlice(v float64, n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = v
	}
	return s
}

func TestCheckImpactEquispaced(t *testing.T) {
	sol := Solutions[1]
	if !sol.RequiresEquispacedImpact {
		t.Fatal("straight solution must require an equispaced impact grid")
	}

	ip := &atmo.ImpactGrid{Values: []float64{2, 1.75, 1.5, 1.25, 1}, Scale: 1}
	if err := sol.CheckImpact(ip); err != nil {
		t.Fatalf("equispaced grid rejected: %v", err)
	}

	ip.Values = []float64{2, 1.8, 1.5, 1.25, 1}
	if err := sol.CheckImpact(ip); err == nil {
		t.Fatal("accepted unevenly spaced impact grid")
	}
}

func TestTotalTauUnsupportedLevel(t *testing.T) {
	rad := equispacedRadii(10, 20, 5)
	_, err := TotalTau(7, 12, rad, constSlice(1, 5), constSlice(0, 5))
	if !errors.Is(err, ErrUnsupportedLevel) {
		t.Fatalf("expected ErrUnsupportedLevel, got %v", err)
	}
}

func TestStraightTauOutermostRayIsZero(t *testing.T) {
	rad := equispacedRadii(10, 20, 11)
	refr := constSlice(1, 11)
	ex := constSlice(3, 11)

	for _, b := range []float64{20, 25} {
		tau, err := TotalTau(1, b, rad, refr, ex)
		if err != nil {
			t.Fatalf("b=%g: %v", b, err)
		}
		if tau != 0 {
			t.Errorf("b=%g: tau = %g, want 0", b, tau)
		}
	}
}

func TestStraightTauBelowInnermostFails(t *testing.T) {
	rad := equispacedRadii(10, 20, 11)
	_, err := TotalTau(1, 5, rad, constSlice(1, 11), constSlice(3, 11))
	if !errors.Is(err, ErrImpactParamRange) {
		t.Fatalf("expected ErrImpactParamRange, got %v", err)
	}
}

func TestStraightTauConstantExtinction(t *testing.T) {
	// With uniform extinction k the chord through radius R at impact
	// parameter b has optical depth 2k*sqrt(R^2-b^2).
	rad := equispacedRadii(10, 20, 41)
	refr := constSlice(1, 41)
	k := 2.5
	ex := constSlice(k, 41)

	for _, b := range []float64{10.7, 12.3, 15, 19.1} {
		want := 2 * k * math.Sqrt(20*20-b*b)
		got, err := TotalTau(1, b, rad, refr, ex)
		if err != nil {
			t.Fatalf("b=%g: %v", b, err)
		}
		if math.Abs(got-want)/want > 1e-6 {
			t.Errorf("b=%g: tau = %g, want %g", b, got, want)
		}
	}
}

func TestStraightTauDecreasesOutward(t *testing.T) {
	rad := equispacedRadii(10, 20, 41)
	refr := constSlice(1, 41)
	// Extinction falling off with radius, like a real atmosphere.
	ex := make([]float64, 41)
	for i := range ex {
		ex[i] = math.Exp(-(rad[i] - 10) / 2)
	}

	prev := math.Inf(1)
	for _, b := range []float64{10.5, 12, 14, 16, 18, 19.5} {
		tau, err := TotalTau(1, b, rad, refr, ex)
		if err != nil {
			t.Fatalf("b=%g: %v", b, err)
		}
		if tau >= prev {
			t.Errorf("tau(%g) = %g not below tau at smaller b (%g)", b, tau, prev)
		}
		prev = tau
	}
}

func TestStraightTauTooFewSamples(t *testing.T) {
	rad := equispacedRadii(10, 20, 2)
	_, err := TotalTau(1, 12, rad, constSlice(1, 2), constSlice(1, 2))
	if !errors.Is(err, ErrInsufficientSamples) {
		t.Fatalf("expected ErrInsufficientSamples, got %v", err)
	}
}

func TestBentTauNoRefractionMatchesStraight(t *testing.T) {
	rad := equispacedRadii(10, 20, 81)
	refr := constSlice(1, 81)
	k := 0.8
	ex := constSlice(k, 81)

	for _, b := range []float64{12.3, 15, 18} {
		straight, err := TotalTau(1, b, rad, refr, ex)
		if err != nil {
			t.Fatalf("straight b=%g: %v", b, err)
		}
		bent, err := TotalTau(2, b, rad, refr, ex)
		if err != nil {
			t.Fatalf("bent b=%g: %v", b, err)
		}
		if math.Abs(bent-straight)/straight > 0.05 {
			t.Errorf("b=%g: bent %g vs straight %g", b, bent, straight)
		}
	}
}

func TestBentTauOutermostRayIsZero(t *testing.T) {
	rad := equispacedRadii(10, 20, 11)
	tau, err := TotalTau(2, 21, rad, constSlice(1, 11), constSlice(1, 11))
	if err != nil {
		t.Fatal(err)
	}
	if tau != 0 {
		t.Fatalf("tau = %g, want 0 above the atmosphere", tau)
	}
}

func TestBentTauBelowInnermostFails(t *testing.T) {
	rad := equispacedRadii(10, 20, 11)
	_, err := TotalTau(2, 3, rad, constSlice(1, 11), constSlice(1, 11))
	if !errors.Is(err, ErrImpactParamRange) {
		t.Fatalf("expected ErrImpactParamRange, got %v", err)
	}
}
