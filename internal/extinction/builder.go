package extinction

import (
	"errors"
	"fmt"
	"math"

	"github.com/exoatmos/transitspec/internal/atmo"
	"github.com/exoatmos/transitspec/internal/monitoring"
	"github.com/exoatmos/transitspec/internal/numutil"
	"github.com/exoatmos/transitspec/internal/voigt"
)

// Input validation failures. These abort the run gracefully before any
// computation starts.
var (
	ErrNoLayers     = errors.New("extinction: no atmospheric layers")
	ErrNoResolution = errors.New("extinction: need at least 2 wavenumber points")
	ErrNoIsotopes   = errors.New("extinction: no isotopes")
)

// Builder fills the extinction grid one layer at a time by co-adding Voigt
// line profiles on a per-layer dynamic sampling grid and downsampling the
// result onto the output wavenumber grid.
type Builder struct {
	Atmos *atmo.Atmosphere
	Lines atmo.LineList
	Wn    *atmo.WavenumberGrid
	Cache *voigt.Cache

	// Ethresh is the extinction culling threshold: lines weaker than
	// Ethresh times the layer's strongest line are skipped. Zero disables
	// culling.
	Ethresh float64

	Grid *Grid

	// Diagnostic tallies across ComputeLayer calls. No correctness impact.
	CoAdded   int64
	Skipped   int64
	Evaluated int64
}

// NewBuilder validates the inputs and allocates the extinction grid.
func NewBuilder(a *atmo.Atmosphere, lines atmo.LineList, wn *atmo.WavenumberGrid, cache *voigt.Cache, ethresh float64) (*Builder, error) {
	if a.NLayers() < 1 {
		return nil, ErrNoLayers
	}
	if len(wn.Values) < 2 {
		return nil, ErrNoResolution
	}
	if len(a.Isotopes) < 1 {
		return nil, ErrNoIsotopes
	}
	grid, err := NewGrid(a.NLayers(), len(wn.Values))
	if err != nil {
		return nil, err
	}
	return &Builder{
		Atmos:   a,
		Lines:   lines,
		Wn:      wn,
		Cache:   cache,
		Ethresh: ethresh,
		Grid:    grid,
	}, nil
}

// lineStrength computes the unnormalized strength of one transition in one
// layer: density times abundance, Boltzmann level population, stimulated
// emission correction, divided by isotope mass and partition function.
func (b *Builder) lineStrength(r int, ln *atmo.Line, wavn, temp float64) float64 {
	iso := &b.Atmos.Isotopes[ln.IsotopeIndex]
	mol := &b.Atmos.Molecules[iso.MoleculeIndex]
	return mol.Density[r] * iso.Ratio * atmo.SigCte * ln.GF *
		math.Exp(-atmo.ExpCte*ln.LowEnergy/temp) *
		(1 - math.Exp(-atmo.ExpCte*wavn/temp)) /
		iso.Mass / iso.Partition[r]
}

// ComputeLayer fills the extinction row for layer r and marks it computed.
// It is idempotent: re-running with unchanged inputs rewrites the same row.
func (b *Builder) ComputeLayer(r int) error {
	if r < 0 || r >= b.Grid.NLayers {
		return fmt.Errorf("extinction: layer %d out of range [0, %d)", r, b.Grid.NLayers)
	}
	temp := b.Atmos.Temperature[r]
	niso := len(b.Atmos.Isotopes)
	nmol := len(b.Atmos.Molecules)

	wn0 := b.Wn.Values[0]
	fine := b.Wn.Fine
	onwn := len(fine)
	odwn := b.Wn.FineSpacing

	// Broadening factors for this layer's temperature.
	fdoppler := math.Sqrt(2*atmo.Boltzmann*temp/atmo.AMU) * atmo.SqrtLn2 / atmo.LightSpeed
	florentz := math.Sqrt(2*atmo.Boltzmann*temp/math.Pi/atmo.AMU) / (atmo.AMU * atmo.LightSpeed)

	alphal := make([]float64, niso)
	alphad := make([]float64, niso)
	idop := make([]int, niso)
	ilor := make([]int, niso)

	minwidth := math.Inf(1)
	for i := 0; i < niso; i++ {
		iso := &b.Atmos.Isotopes[i]
		for j := 0; j < nmol; j++ {
			mol := &b.Atmos.Molecules[j]
			csdiameter := mol.CollisionRadius + b.Atmos.Molecules[iso.MoleculeIndex].CollisionRadius
			alphal[i] += mol.Density[r] / mol.Mass * csdiameter * csdiameter *
				math.Sqrt(1/iso.Mass+1/mol.Mass)
		}
		alphal[i] *= florentz
		alphad[i] = fdoppler / math.Sqrt(iso.Mass)

		maxwidth := math.Max(alphal[i], alphad[i]*wn0)
		minwidth = math.Min(minwidth, maxwidth)

		idop[i] = b.Cache.FindDoppler(alphad[i] * wn0)
		ilor[i] = b.Cache.FindLorentz(alphal[i])
	}
	monitoring.Logf("[Extinction] layer %d: T=%.1fK lorentz=%.9f doppler=%.9f",
		r, temp, alphal[0], alphad[0]*wn0)

	// Dynamic sampling: pick the largest divisor that still resolves the
	// narrowest line with at least two samples per half width.
	divs := b.Wn.Divisors
	i := 1
	for ; i < len(divs); i++ {
		if float64(divs[i])*odwn >= 0.5*minwidth {
			break
		}
	}
	ofactor := divs[i-1]
	ddwn := odwn * float64(ofactor)
	dnwn := 1 + (onwn-1)/ofactor

	// First pass: strength extrema for the culling threshold.
	var kmax, kmin float64
	for ln := range b.Lines {
		wavn := b.Lines[ln].Wavenumber
		if wavn < wn0 || wavn > fine[onwn-1] {
			continue
		}
		k := b.lineStrength(r, &b.Lines[ln], wavn, temp)
		if kmax == 0 {
			kmax, kmin = k, k
		} else {
			kmax = math.Max(kmax, k)
			kmin = math.Min(kmin, k)
		}
	}

	// Second pass: co-add, cull, and convolve each surviving line into the
	// dynamic-resolution accumulator.
	ktmp := make([]float64, dnwn)
	var nadd, nskip, neval int64
	nlines := len(b.Lines)
	for ln := 0; ln < nlines; ln++ {
		wavn := b.Lines[ln].Wavenumber
		iso := b.Lines[ln].IsotopeIndex
		if wavn < wn0 || wavn > fine[onwn-1] {
			continue
		}
		propto := b.lineStrength(r, &b.Lines[ln], wavn, temp)

		// Nearest oversampled bin to the line centre.
		iown := int((wavn - wn0) / odwn)
		if iown+1 < onwn && math.Abs(wavn-fine[iown+1]) < math.Abs(wavn-fine[iown]) {
			iown++
		}

		// Merge following same-isotope lines that land in the same bin.
		for ln != nlines-1 && b.Lines[ln+1].IsotopeIndex == iso {
			next := b.Lines[ln+1].Wavenumber
			if math.Abs(next-fine[iown]) >= odwn {
				break
			}
			nadd++
			ln++
			propto += b.lineStrength(r, &b.Lines[ln], next, temp)
		}

		if propto < b.Ethresh*kmax {
			nskip++
			continue
		}

		idwn := int((wavn - wn0) / ddwn)

		// The Doppler width scales with absolute wavenumber; re-resolve the
		// bin unless the Lorentz width dominates anyway.
		if alphad[iso]*wavn/alphal[iso] >= 0.1 {
			idop[iso] = b.Cache.FindDoppler(alphad[iso] * wavn)
		}

		profile, half := b.Cache.Profile(idop[iso], ilor[iso])

		// Offset between the profile samples and the dynamic-grid indices.
		// The loop bounds clip the profile support [0, 2*half] onto the
		// dynamic grid; a narrow profile can cover fewer samples than one
		// dynamic interval.
		subw := iown - idwn*ofactor
		offset := ofactor*idwn - half + subw
		minj := 0
		if offset > 0 {
			minj = (offset + ofactor - 1) / ofactor
		}
		maxj := (offset+2*half)/ofactor + 1
		if maxj > dnwn {
			maxj = dnwn
		}
		for j := minj; j < maxj; j++ {
			ktmp[j] += propto * profile[ofactor*j-offset]
		}
		neval++
	}

	if err := numutil.Downsample(ktmp, b.Grid.Row(r), b.Wn.Oversample/ofactor); err != nil {
		return fmt.Errorf("layer %d: %w", r, err)
	}
	b.Grid.Computed[r] = true

	b.CoAdded += nadd
	b.Skipped += nskip
	b.Evaluated += neval
	monitoring.Logf("[Extinction] layer %d: dynamic factor %d (interval %.9f), kmin=%.5e kmax=%.5e, co-added=%d skipped=%d evaluated=%d",
		r, ofactor, ddwn, kmin, kmax, nadd, nskip, neval)
	return nil
}
