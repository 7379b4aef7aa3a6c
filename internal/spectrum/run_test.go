package spectrum

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/exoatmos/transitspec/internal/atmo"
	"github.com/exoatmos/transitspec/internal/config"
	"github.com/exoatmos/transitspec/internal/monitoring"
	"github.com/exoatmos/transitspec/internal/slantpath"
)

func init() {
	monitoring.SetLogger(nil)
}

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }
func sptr(v string) *string   { return &v }

func testConfig(t *testing.T) *config.RunConfig {
	t.Helper()
	cfg := &config.RunConfig{
		WavenumberLow:     fptr(2000),
		WavenumberHigh:    fptr(2001),
		WavenumberSpacing: fptr(0.1),
		Oversample:        iptr(10),
		DopplerBins:       iptr(12),
		LorentzBins:       iptr(12),
		HalfRangeFactor:   fptr(20),
		MaxHalfPoints:     iptr(4000),
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func testAtmosphere() *atmo.Atmosphere {
	return &atmo.Atmosphere{
		Radius:      []float64{1.0e9, 1.1e9, 1.2e9},
		Temperature: []float64{1400, 1200, 1000},
		Pressure:    []float64{1e6, 1e5, 1e4},
		Molecules: []atmo.Molecule{
			{ID: 1, Name: "H2O", Mass: 18.01, CollisionRadius: 1.6e-8,
				Density: []float64{1e-6, 1e-7, 1e-8}},
		},
		Isotopes: []atmo.Isotope{
			{Name: "1H2-16O", Mass: 18.01, Ratio: 0.997, MoleculeIndex: 0,
				Partition: []float64{300, 250, 200}},
		},
	}
}

func testLines() atmo.LineList {
	// One strong line in the middle of the band.
	return atmo.LineList{
		{Wavenumber: 2000.5, IsotopeIndex: 0, LowEnergy: 100, GF: 1e13},
	}
}

func TestRunProducesAbsorptionDip(t *testing.T) {
	runner, err := NewRunner(testConfig(t), testAtmosphere(), testLines())
	if err != nil {
		t.Fatal(err)
	}

	sp, err := runner.Run()
	if err != nil {
		t.Fatal(err)
	}
	if len(sp.Wavenumber) != 11 || len(sp.Modulation) != 11 {
		t.Fatalf("spectrum has %d/%d points, want 11", len(sp.Wavenumber), len(sp.Modulation))
	}

	for i, m := range sp.Modulation {
		if m <= 0 || m > 1+1e-9 {
			t.Fatalf("modulation[%d] = %g outside (0, 1]", i, m)
		}
	}

	// The line sits at 2000.5 (index 5): absorption must deepen the transit
	// there relative to the band edges.
	if sp.Modulation[5] >= sp.Modulation[0] {
		t.Errorf("no dip at line centre: m[5] = %.10f, m[0] = %.10f",
			sp.Modulation[5], sp.Modulation[0])
	}
	if sp.Modulation[5] >= sp.Modulation[10] {
		t.Errorf("no dip at line centre: m[5] = %.10f, m[10] = %.10f",
			sp.Modulation[5], sp.Modulation[10])
	}
}

func TestNewRunnerRejectsUnsupportedModulationLevel(t *testing.T) {
	cfg := testConfig(t)
	cfg.ModulationLevel = iptr(3)
	_, err := NewRunner(cfg, testAtmosphere(), testLines())
	if !errors.Is(err, slantpath.ErrUnsupportedLevel) {
		t.Fatalf("expected ErrUnsupportedLevel, got %v", err)
	}
}

func TestRunSaturatedLineCore(t *testing.T) {
	// A strong line plus a low saturation threshold makes the optical-depth
	// walk stop partway down the impact grid at the line centre, while the
	// transparent band edges are walked to the innermost ray.
	cfg := testConfig(t)
	cfg.ImpactCount = iptr(8)
	cfg.Toomuch = fptr(1)

	lines := atmo.LineList{
		{Wavenumber: 2000.5, IsotopeIndex: 0, LowEnergy: 100, GF: 1e16},
	}
	runner, err := NewRunner(cfg, testAtmosphere(), lines)
	if err != nil {
		t.Fatal(err)
	}
	sp, err := runner.Run()
	if err != nil {
		t.Fatal(err)
	}

	for i, m := range sp.Modulation {
		if m <= 0 || m > 1+1e-9 {
			t.Fatalf("modulation[%d] = %g outside (0, 1]", i, m)
		}
	}

	coreDepth := 1 - sp.Modulation[5]
	edgeDepth := 1 - sp.Modulation[0]
	if coreDepth <= edgeDepth {
		t.Errorf("core depth %.3e not below edge depth %.3e", coreDepth, edgeDepth)
	}
	// The absorbing disk at the line centre extends above the innermost
	// sampled ray, so the dip beats a transparent atmosphere over the
	// solid planet.
	solid := runner.Atmos.Radius[0] / cfg.GetStarRadius()
	floor := solid * solid * (1 - math.Exp(-cfg.GetToomuch()))
	if coreDepth <= floor {
		t.Errorf("core depth %.3e not beyond the clear-atmosphere depth %.3e", coreDepth, floor)
	}
}

func TestRunCheckpointReuse(t *testing.T) {
	dir := t.TempDir()
	chk := filepath.Join(dir, "extinction.chk")

	cfg := testConfig(t)
	cfg.CheckpointPath = sptr(chk)

	first, err := NewRunner(cfg, testAtmosphere(), testLines())
	if err != nil {
		t.Fatal(err)
	}
	if err := first.FillExtinction(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(chk); err != nil {
		t.Fatalf("checkpoint not written: %v", err)
	}

	second, err := NewRunner(cfg, testAtmosphere(), testLines())
	if err != nil {
		t.Fatal(err)
	}
	if err := second.FillExtinction(); err != nil {
		t.Fatal(err)
	}

	for r := 0; r < 3; r++ {
		a := append([]float64(nil), first.builder.Grid.Row(r)...)
		b := append([]float64(nil), second.builder.Grid.Row(r)...)
		if diff := cmp.Diff(a, b); diff != "" {
			t.Fatalf("restored layer %d differs:\n%s", r, diff)
		}
	}
}

func TestRunIgnoresCorruptCheckpoint(t *testing.T) {
	dir := t.TempDir()
	chk := filepath.Join(dir, "extinction.chk")
	if err := os.WriteFile(chk, []byte("garbage"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := testConfig(t)
	cfg.CheckpointPath = sptr(chk)

	runner, err := NewRunner(cfg, testAtmosphere(), testLines())
	if err != nil {
		t.Fatal(err)
	}
	if err := runner.FillExtinction(); err != nil {
		t.Fatalf("corrupt checkpoint should be ignored, got %v", err)
	}
	for r, c := range runner.builder.Grid.Computed {
		if !c {
			t.Fatalf("layer %d not computed after ignoring checkpoint", r)
		}
	}
}

func TestWriteText(t *testing.T) {
	sp := &Spectrum{
		Wavenumber: []float64{2000, 2000.1},
		Modulation: []float64{0.9999, 0.9998},
	}
	path := filepath.Join(t.TempDir(), "spectrum.dat")
	if err := sp.WriteText(path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Fatal("empty spectrum file")
	}
}
