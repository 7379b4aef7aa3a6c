package extinction

import (
	"bufio"
	"fmt"
	"io"

	"github.com/exoatmos/transitspec/internal/atmo"
)

// WriteSingleLayerTable emits the one-layer diagnostic table: wavenumber,
// wavelength, extinction and the equivalent cross-section of the first
// isotope. Only meaningful when the run was configured with a single
// atmospheric layer.
func (b *Builder) WriteSingleLayerTable(w io.Writer) error {
	if b.Grid.NLayers != 1 {
		return fmt.Errorf("extinction: diagnostic table needs exactly 1 layer, have %d", b.Grid.NLayers)
	}
	if !b.Grid.Computed[0] {
		return fmt.Errorf("extinction: layer 0 not computed")
	}
	iso := &b.Atmos.Isotopes[0]
	density := b.Atmos.Molecules[iso.MoleculeIndex].Density[0]

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "#wavenumber[cm-1]   wavelength[nm]   extinction[cm-1]   cross-section[cm2]\n")
	row := b.Grid.Row(0)
	for i, wn := range b.Wn.Values {
		fmt.Fprintf(bw, "%12.6f%14.6f%17.7g%17.7g\n",
			wn, 1e7/wn, row[i], AMUCrossSection(row[i], iso.Mass, density))
	}
	return bw.Flush()
}

// AMUCrossSection converts an extinction coefficient (1/cm) to a per-particle
// cross-section (cm2) for an isotope of the given mass in a gas of the given
// mass density.
func AMUCrossSection(extinction, isoMass, density float64) float64 {
	return atmo.AMU * extinction * isoMass / density
}
