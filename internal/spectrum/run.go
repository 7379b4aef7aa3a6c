// Package spectrum orchestrates a full transit-spectrum run: profile cache
// construction, extinction grid fill (with optional checkpoint reuse),
// per-wavenumber optical depth, and the final modulation series.
package spectrum

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/exoatmos/transitspec/internal/atmo"
	"github.com/exoatmos/transitspec/internal/config"
	"github.com/exoatmos/transitspec/internal/extinction"
	"github.com/exoatmos/transitspec/internal/monitoring"
	"github.com/exoatmos/transitspec/internal/slantpath"
	"github.com/exoatmos/transitspec/internal/voigt"
)

// Spectrum is the run output: per-wavenumber transit modulation.
type Spectrum struct {
	Wavenumber []float64 // 1/cm
	Modulation []float64
}

// Runner wires the pipeline stages together for one configuration.
type Runner struct {
	Cfg   *config.RunConfig
	Atmos *atmo.Atmosphere
	Lines atmo.LineList

	Wn     *atmo.WavenumberGrid
	Impact *atmo.ImpactGrid
	Cache  *voigt.Cache

	builder *extinction.Builder
	star    *slantpath.StarGeometry
}

// NewRunner builds the sampling grids and the profile cache from the
// configuration and atmosphere, sizing the cache's width ranges from the
// actual broadening extremes across layers and isotopes.
func NewRunner(cfg *config.RunConfig, a *atmo.Atmosphere, lines atmo.LineList) (*Runner, error) {
	sol, ok := slantpath.Solutions[cfg.GetTauLevel()]
	if !ok {
		return nil, fmt.Errorf("%w: tau level %d", slantpath.ErrUnsupportedLevel, cfg.GetTauLevel())
	}
	monitoring.Logf("[Spectrum] ray solution %q (geometry %d)", sol.Name, sol.Geometry)

	wn, err := atmo.NewWavenumberGrid(cfg.GetWavenumberLow(), cfg.GetWavenumberHigh(),
		cfg.GetWavenumberSpacing(), cfg.GetOversample())
	if err != nil {
		return nil, err
	}

	iHigh := cfg.GetImpactHigh()
	if iHigh == 0 {
		iHigh = a.Radius[a.NLayers()-1] / cfg.GetImpactScale()
	}
	iLow := cfg.GetImpactLow()
	if iLow == 0 {
		iLow = a.Radius[0] / cfg.GetImpactScale()
	}
	iCount := cfg.GetImpactCount()
	if iCount == 0 {
		iCount = a.NLayers()
	}
	impact, err := atmo.NewImpactGrid(iLow, iHigh, iCount, cfg.GetImpactScale())
	if err != nil {
		return nil, err
	}
	if err := sol.CheckImpact(impact); err != nil {
		return nil, err
	}
	if ml := cfg.GetModulationLevel(); ml < 1 || ml > sol.ModulationLevels {
		return nil, fmt.Errorf("%w: modulation level %d for %s", slantpath.ErrUnsupportedLevel, ml, sol.Name)
	}

	dopMin, dopMax, lorMin, lorMax := widthRanges(a, wn)
	cache, err := voigt.NewCache(cfg.GetDopplerBins(), cfg.GetLorentzBins(),
		dopMin, dopMax, lorMin, lorMax,
		wn.FineSpacing, cfg.GetHalfRangeFactor(), cfg.GetMaxHalfPoints())
	if err != nil {
		return nil, err
	}

	builder, err := extinction.NewBuilder(a, lines, wn, cache, cfg.GetEthresh())
	if err != nil {
		return nil, err
	}

	return &Runner{
		Cfg:     cfg,
		Atmos:   a,
		Lines:   lines,
		Wn:      wn,
		Impact:  impact,
		Cache:   cache,
		builder: builder,
		star:    &slantpath.StarGeometry{Radius: cfg.GetStarRadius()},
	}, nil
}

// widthRanges scans every layer and isotope for the extreme Doppler and
// Lorentz half widths the extinction pass can request, so the cache's bins
// cover them all.
func widthRanges(a *atmo.Atmosphere, wn *atmo.WavenumberGrid) (dopMin, dopMax, lorMin, lorMax float64) {
	dopMin, lorMin = math.Inf(1), math.Inf(1)
	wnLo := wn.Values[0]
	wnHi := wn.Values[len(wn.Values)-1]
	for r := 0; r < a.NLayers(); r++ {
		temp := a.Temperature[r]
		fdoppler := math.Sqrt(2*atmo.Boltzmann*temp/atmo.AMU) * atmo.SqrtLn2 / atmo.LightSpeed
		florentz := math.Sqrt(2*atmo.Boltzmann*temp/math.Pi/atmo.AMU) / (atmo.AMU * atmo.LightSpeed)
		for i := range a.Isotopes {
			iso := &a.Isotopes[i]
			ad := fdoppler / math.Sqrt(iso.Mass)
			dopMin = math.Min(dopMin, ad*wnLo)
			dopMax = math.Max(dopMax, ad*wnHi)

			var al float64
			for j := range a.Molecules {
				mol := &a.Molecules[j]
				csdiameter := mol.CollisionRadius + a.Molecules[iso.MoleculeIndex].CollisionRadius
				al += mol.Density[r] / mol.Mass * csdiameter * csdiameter *
					math.Sqrt(1/iso.Mass+1/mol.Mass)
			}
			al *= florentz
			lorMin = math.Min(lorMin, al)
			lorMax = math.Max(lorMax, al)
		}
	}
	// Pad the ends so floor lookups near the extremes stay in range.
	dopMin *= 0.99
	dopMax *= 1.01
	lorMin *= 0.99
	lorMax *= 1.01
	return dopMin, dopMax, lorMin, lorMax
}

// FillExtinction computes or restores the extinction grid. When a checkpoint
// path is configured, a readable file with matching dimensions replaces the
// computation; an unreadable or malformed file is logged and ignored. After
// computing, the grid is saved back to the same path.
func (r *Runner) FillExtinction() error {
	path := r.Cfg.GetCheckpointPath()
	if path != "" {
		err := extinction.Restore(path, r.builder.Grid)
		switch {
		case err == nil:
			if allComputed(r.builder.Grid) {
				monitoring.Logf("[Spectrum] restored extinction grid from %s", path)
				return nil
			}
			monitoring.Logf("[Spectrum] checkpoint %s is partial; computing remaining layers", path)
		case errors.Is(err, os.ErrNotExist):
			monitoring.Logf("[Spectrum] no checkpoint at %s; computing", path)
		case errors.Is(err, extinction.ErrInvalidFormat), errors.Is(err, extinction.ErrTruncated):
			monitoring.Logf("[Spectrum] ignoring unusable checkpoint %s: %v", path, err)
		default:
			return fmt.Errorf("restore checkpoint: %w", err)
		}
	}

	start := time.Now()
	for layer := 0; layer < r.builder.Grid.NLayers; layer++ {
		if r.builder.Grid.Computed[layer] {
			continue
		}
		if err := r.builder.ComputeLayer(layer); err != nil {
			return err
		}
	}
	monitoring.Logf("[Spectrum] extinction grid filled in %v (co-added=%d skipped=%d evaluated=%d)",
		time.Since(start).Round(time.Millisecond), r.builder.CoAdded, r.builder.Skipped, r.builder.Evaluated)

	if path != "" {
		if err := extinction.Save(path, r.builder.Grid); err != nil {
			monitoring.Logf("[Spectrum] could not save checkpoint %s: %v", path, err)
		}
	}
	return nil
}

func allComputed(g *extinction.Grid) bool {
	for _, c := range g.Computed {
		if !c {
			return false
		}
	}
	return true
}

// WriteDiagnosticTable emits the single-layer extinction table when the run
// is configured with exactly one layer.
func (r *Runner) WriteDiagnosticTable(path string) error {
	fp, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open diagnostic table: %w", err)
	}
	defer fp.Close()
	return r.builder.WriteSingleLayerTable(fp)
}

// Run produces the transit spectrum: for each wavenumber it walks the impact
// parameters from the outermost ray inward, accumulating optical depth until
// it saturates at toomuch, then folds the depths into the modulation.
func (r *Runner) Run() (*Spectrum, error) {
	if err := r.FillExtinction(); err != nil {
		return nil, err
	}

	nwn := len(r.Wn.Values)
	nb := len(r.Impact.Values)
	toomuch := r.Cfg.GetToomuch()
	tauLevel := r.Cfg.GetTauLevel()
	modLevel := r.Cfg.GetModulationLevel()

	refr := make([]float64, r.Atmos.NLayers())
	for i := range refr {
		refr[i] = r.Cfg.GetRefractivity()
	}

	out := &Spectrum{
		Wavenumber: make([]float64, nwn),
		Modulation: make([]float64, nwn),
	}
	copy(out.Wavenumber, r.Wn.Values)

	start := time.Now()
	tau := make([]float64, nb)
	ex := make([]float64, r.Atmos.NLayers())
	for i := 0; i < nwn; i++ {
		r.builder.Grid.Column(i, ex)

		last := nb - 1
		for j := 0; j < nb; j++ {
			b := r.Impact.Values[j] * r.Impact.Scale
			t, err := slantpath.TotalTau(tauLevel, b, r.Atmos.Radius, refr, ex)
			if err != nil {
				return nil, fmt.Errorf("wavenumber %.4f, ray %d: %w", r.Wn.Values[i], j, err)
			}
			tau[j] = t
			if t >= toomuch {
				last = j
				break
			}
		}

		m, err := slantpath.ModulationPerWn(modLevel, tau, last, toomuch, r.Impact, r.star)
		if err != nil {
			return nil, fmt.Errorf("wavenumber %.4f: %w", r.Wn.Values[i], err)
		}
		out.Modulation[i] = m
	}
	monitoring.Logf("[Spectrum] %d wavenumbers in %v", nwn, time.Since(start).Round(time.Millisecond))
	return out, nil
}

// WriteText writes the spectrum as two whitespace-separated columns.
func (s *Spectrum) WriteText(path string) error {
	fp, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open spectrum output: %w", err)
	}
	defer fp.Close()
	fmt.Fprintf(fp, "#wavenumber[cm-1]   modulation\n")
	for i, wn := range s.Wavenumber {
		fmt.Fprintf(fp, "%12.6f  %.10g\n", wn, s.Modulation[i])
	}
	return nil
}
