// Package atmo defines the atmospheric data model consumed by the extinction
// and slant-path engines: layered atmosphere state, molecular and isotopic
// properties, the sorted line-transition list, and the sampling grids.
//
// All quantities are CGS: wavenumbers in 1/cm, radii in cm, temperatures in
// K, densities in g/cm3, masses in AMU.
package atmo

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
)

// Physical constants (CGS).
const (
	Boltzmann  = 1.380658e-16    // erg/K
	AMU        = 1.66053886e-24  // g
	LightSpeed = 2.99792458e10   // cm/s
	SqrtLn2    = 0.8325546111576977
	SigCte     = 8.852821681e-13 // pi e^2 / (me c^2), cm
	ExpCte     = 1.4387687       // h c / k, cm K
)

// Molecule holds the per-species properties needed for pressure broadening
// and density scaling.
type Molecule struct {
	ID              int       `json:"id"` // HITRAN-style molecule id
	Name            string    `json:"name"`
	Mass            float64   `json:"mass"`             // AMU
	CollisionRadius float64   `json:"collision_radius"` // cm
	Density         []float64 `json:"density"`          // g/cm3, per layer
}

// Isotope holds one isotopologue: its mass, abundance ratio, parent molecule
// and per-layer partition-function values. Immutable once loaded.
type Isotope struct {
	Name          string    `json:"name"`
	Mass          float64   `json:"mass"`  // AMU
	Ratio         float64   `json:"ratio"` // abundance relative to parent molecule
	MoleculeIndex int       `json:"molecule_index"`
	Partition     []float64 `json:"partition"` // per layer
}

// Line is one transition record. Wavenumber in 1/cm, LowEnergy in 1/cm,
// GF the line strength factor.
type Line struct {
	Wavenumber   float64 `json:"wavenumber"`
	IsotopeIndex int     `json:"isotope_index"`
	LowEnergy    float64 `json:"low_energy"`
	GF           float64 `json:"gf"`
}

// LineList is a wavenumber-ordered sequence of transitions. Ordering matters:
// adjacent same-isotope lines inside one dynamic bin are co-added.
type LineList []Line

// Validate checks the wavenumber ordering the co-adding pass relies on.
func (ll LineList) Validate() error {
	if !sort.SliceIsSorted(ll, func(i, j int) bool { return ll[i].Wavenumber < ll[j].Wavenumber }) {
		return errors.New("atmo: line list is not sorted by wavenumber")
	}
	return nil
}

// Atmosphere is the layered atmospheric state plus the species tables.
// Layers are ordered by ascending radius.
type Atmosphere struct {
	Radius      []float64  `json:"radius"`      // cm, ascending
	Temperature []float64  `json:"temperature"` // K, per layer
	Pressure    []float64  `json:"pressure"`    // dyn/cm2, per layer
	Molecules   []Molecule `json:"molecules"`
	Isotopes    []Isotope  `json:"isotopes"`
}

// NLayers returns the number of atmospheric layers.
func (a *Atmosphere) NLayers() int { return len(a.Radius) }

// Validate checks cross-table consistency of the loaded atmosphere.
func (a *Atmosphere) Validate() error {
	n := a.NLayers()
	if len(a.Temperature) != n {
		return fmt.Errorf("atmo: %d temperatures for %d layers", len(a.Temperature), n)
	}
	if !sort.Float64sAreSorted(a.Radius) {
		return errors.New("atmo: radius samples must ascend")
	}
	for _, m := range a.Molecules {
		if len(m.Density) != n {
			return fmt.Errorf("atmo: molecule %q has %d density samples for %d layers", m.Name, len(m.Density), n)
		}
		if m.Mass <= 0 {
			return fmt.Errorf("atmo: molecule %q has non-positive mass", m.Name)
		}
	}
	for _, iso := range a.Isotopes {
		if iso.MoleculeIndex < 0 || iso.MoleculeIndex >= len(a.Molecules) {
			return fmt.Errorf("atmo: isotope %q references molecule %d of %d", iso.Name, iso.MoleculeIndex, len(a.Molecules))
		}
		if len(iso.Partition) != n {
			return fmt.Errorf("atmo: isotope %q has %d partition samples for %d layers", iso.Name, len(iso.Partition), n)
		}
	}
	return nil
}

// MoleculeByID returns the index of the molecule with the given id, or -1.
func (a *Atmosphere) MoleculeByID(id int) int {
	for i := range a.Molecules {
		if a.Molecules[i].ID == id {
			return i
		}
	}
	return -1
}

// LoadAtmosphere reads an atmosphere table from a JSON file.
func LoadAtmosphere(path string) (*Atmosphere, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read atmosphere file: %w", err)
	}
	var a Atmosphere
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parse atmosphere file: %w", err)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

// LoadLineList reads a line-transition list from a JSON file and validates
// its ordering.
func LoadLineList(path string) (LineList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read line list: %w", err)
	}
	var ll LineList
	if err := json.Unmarshal(data, &ll); err != nil {
		return nil, fmt.Errorf("parse line list: %w", err)
	}
	if err := ll.Validate(); err != nil {
		return nil, err
	}
	return ll, nil
}
