// Package extinction builds the per-layer extinction-coefficient grid from a
// line-transition list (or a precomputed opacity table) and persists it to a
// resumable binary checkpoint.
package extinction

import "fmt"

// Grid is the [layer x wavenumber] extinction-coefficient array. Storage is
// one contiguous buffer with a row stride of NWave; rows are handed out as
// subslices. Computed marks which layers hold valid data; values in
// uncomputed rows are undefined and must not be consumed.
type Grid struct {
	NLayers int
	NWave   int

	data     []float64
	Computed []bool
}

// NewGrid allocates a zeroed grid with all layers marked uncomputed.
func NewGrid(nLayers, nWave int) (*Grid, error) {
	if nLayers < 1 || nWave < 1 {
		return nil, fmt.Errorf("extinction: bad grid dimensions %dx%d", nLayers, nWave)
	}
	return &Grid{
		NLayers:  nLayers,
		NWave:    nWave,
		data:     make([]float64, nLayers*nWave),
		Computed: make([]bool, nLayers),
	}, nil
}

// Row returns the extinction samples for one layer. The builder writes rows
// in place; everyone else treats them as read-only.
func (g *Grid) Row(r int) []float64 {
	return g.data[r*g.NWave : (r+1)*g.NWave]
}

// At returns the extinction coefficient for one layer and wavenumber index.
func (g *Grid) At(r, i int) float64 {
	return g.data[r*g.NWave+i]
}

// Column copies the extinction values at wavenumber index i across all
// layers into dst, which must hold NLayers elements.
func (g *Grid) Column(i int, dst []float64) {
	for r := 0; r < g.NLayers; r++ {
		dst[r] = g.data[r*g.NWave+i]
	}
}

// raw exposes the contiguous buffer for checkpoint I/O.
func (g *Grid) raw() []float64 { return g.data }
