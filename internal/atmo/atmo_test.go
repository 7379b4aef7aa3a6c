package atmo

import (
	"math"
	"testing"
)

func validAtmosphere() *Atmosphere {
	return &Atmosphere{
		Radius:      []float64{1.0e9, 1.1e9, 1.2e9},
		Temperature: []float64{1400, 1200, 1000},
		Pressure:    []float64{1e6, 1e5, 1e4},
		Molecules: []Molecule{
			{ID: 1, Name: "H2O", Mass: 18.01, CollisionRadius: 1.6e-8,
				Density: []float64{1e-6, 1e-7, 1e-8}},
		},
		Isotopes: []Isotope{
			{Name: "1H2-16O", Mass: 18.01, Ratio: 0.997, MoleculeIndex: 0,
				Partition: []float64{300, 250, 200}},
		},
	}
}

func TestAtmosphereValidate(t *testing.T) {
	if err := validAtmosphere().Validate(); err != nil {
		t.Fatalf("valid atmosphere rejected: %v", err)
	}

	a := validAtmosphere()
	a.Temperature = a.Temperature[:2]
	if err := a.Validate(); err == nil {
		t.Error("accepted mismatched temperature count")
	}

	a = validAtmosphere()
	a.Radius[0], a.Radius[2] = a.Radius[2], a.Radius[0]
	if err := a.Validate(); err == nil {
		t.Error("accepted descending radius grid")
	}

	a = validAtmosphere()
	a.Isotopes[0].MoleculeIndex = 5
	if err := a.Validate(); err == nil {
		t.Error("accepted out-of-range molecule index")
	}

	a = validAtmosphere()
	a.Molecules[0].Density = a.Molecules[0].Density[:1]
	if err := a.Validate(); err == nil {
		t.Error("accepted short density table")
	}
}

func TestMoleculeByID(t *testing.T) {
	a := validAtmosphere()
	if got := a.MoleculeByID(1); got != 0 {
		t.Errorf("MoleculeByID(1) = %d, want 0", got)
	}
	if got := a.MoleculeByID(42); got != -1 {
		t.Errorf("MoleculeByID(42) = %d, want -1", got)
	}
}

func TestLineListValidate(t *testing.T) {
	ll := LineList{
		{Wavenumber: 2000.1}, {Wavenumber: 2000.2}, {Wavenumber: 2000.2},
	}
	if err := ll.Validate(); err != nil {
		t.Fatalf("sorted list rejected: %v", err)
	}
	ll = LineList{{Wavenumber: 2000.2}, {Wavenumber: 2000.1}}
	if err := ll.Validate(); err == nil {
		t.Fatal("accepted unsorted line list")
	}
}

func TestNewWavenumberGrid(t *testing.T) {
	g, err := NewWavenumberGrid(2000, 2001, 0.1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(g.Values) != 11 {
		t.Fatalf("coarse grid has %d values, want 11", len(g.Values))
	}
	if len(g.Fine) != 101 {
		t.Fatalf("fine grid has %d values, want 101", len(g.Fine))
	}
	if math.Abs(g.FineSpacing-0.01) > 1e-12 {
		t.Fatalf("fine spacing = %g, want 0.01", g.FineSpacing)
	}
	for _, d := range g.Divisors {
		if g.Oversample%d != 0 {
			t.Errorf("divisor %d does not divide oversample %d", d, g.Oversample)
		}
	}
	if g.Fine[len(g.Fine)-1] < g.Values[len(g.Values)-1]-1e-9 {
		t.Error("fine grid does not reach the top of the range")
	}
}

func TestNewWavenumberGridKeepsTopSample(t *testing.T) {
	// (2000.3-2000)/0.1 evaluates just below 3 in floating point; a
	// truncating count would lose the top of the range.
	g, err := NewWavenumberGrid(2000, 2000.3, 0.1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(g.Values) != 4 {
		t.Fatalf("coarse grid has %d values, want 4", len(g.Values))
	}
	if top := g.Values[len(g.Values)-1]; math.Abs(top-2000.3) > 1e-9 {
		t.Fatalf("grid ends at %.9f, want 2000.3", top)
	}
}

func TestNewWavenumberGridRejectsBadRange(t *testing.T) {
	if _, err := NewWavenumberGrid(2001, 2000, 0.1, 10); err == nil {
		t.Error("accepted inverted range")
	}
	if _, err := NewWavenumberGrid(2000, 2001, 0, 10); err == nil {
		t.Error("accepted zero spacing")
	}
	if _, err := NewWavenumberGrid(2000, 2001, 0.1, 0); err == nil {
		t.Error("accepted zero oversample")
	}
}

func TestNewImpactGrid(t *testing.T) {
	g, err := NewImpactGrid(1, 2, 5, 1e9)
	if err != nil {
		t.Fatal(err)
	}
	if len(g.Values) != 5 {
		t.Fatalf("%d samples, want 5", len(g.Values))
	}
	if g.Values[0] != 2 || g.Values[4] != 1 {
		t.Fatalf("grid %v not descending from 2 to 1", g.Values)
	}
	for i := 1; i < len(g.Values); i++ {
		if g.Values[i] >= g.Values[i-1] {
			t.Fatalf("grid %v not strictly descending", g.Values)
		}
	}

	if _, err := NewImpactGrid(1, 2, 2, 1); err == nil {
		t.Error("accepted 2-sample grid")
	}
}
