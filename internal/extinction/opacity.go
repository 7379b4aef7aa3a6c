package extinction

import (
	"fmt"

	"github.com/exoatmos/transitspec/internal/numutil"
)

// OpacityTable is a precomputed opacity grid: per-molecule extinction cross
// sections tabulated over temperature, layer and wavenumber. Loaded
// externally; immutable here.
type OpacityTable struct {
	MoleculeIDs []int
	Temps       []float64 // ascending temperature grid, K

	// Values is indexed [molecule][temperature][layer][wavenumber].
	Values [][][][]float64
}

// InterpolateLayer fills the extinction row for layer r from the opacity
// table instead of the line list: for each wavenumber the tabulated opacity
// is linearly interpolated between the two bracketing temperature grid
// points, scaled by molecular density, and accumulated across molecules.
func (b *Builder) InterpolateLayer(r int, op *OpacityTable) error {
	if r < 0 || r >= b.Grid.NLayers {
		return fmt.Errorf("extinction: layer %d out of range [0, %d)", r, b.Grid.NLayers)
	}
	temp := b.Atmos.Temperature[r]
	nt := len(op.Temps)
	if nt < 2 {
		return fmt.Errorf("extinction: opacity table needs at least 2 temperature samples, got %d", nt)
	}

	itemp := numutil.FindFloorIndex(op.Temps, temp, 0, nt)
	if temp < op.Temps[itemp] {
		itemp--
	}
	// A temperature exactly at the top of the grid interpolates within the
	// last interval; the floor lookup clamps it onto the final point.
	if itemp == nt-1 && temp <= op.Temps[nt-1] {
		itemp--
	}
	if itemp < 0 || itemp+1 >= nt {
		return fmt.Errorf("extinction: layer %d temperature %.1fK outside opacity grid [%.1f, %.1f]",
			r, temp, op.Temps[0], op.Temps[nt-1])
	}
	t0, t1 := op.Temps[itemp], op.Temps[itemp+1]

	row := b.Grid.Row(r)
	for i := range row {
		row[i] = 0
	}
	for m := range op.MoleculeIDs {
		imol := b.Atmos.MoleculeByID(op.MoleculeIDs[m])
		if imol < 0 {
			return fmt.Errorf("extinction: opacity table molecule id %d not in atmosphere", op.MoleculeIDs[m])
		}
		density := b.Atmos.Molecules[imol].Density[r]
		lo := op.Values[m][itemp][r]
		hi := op.Values[m][itemp+1][r]
		for i := range row {
			ext := (lo[i]*(t1-temp) + hi[i]*(temp-t0)) / (t1 - t0)
			row[i] += density * ext
		}
	}
	b.Grid.Computed[r] = true
	return nil
}
