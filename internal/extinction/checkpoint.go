package extinction

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// Checkpoint failure classes. Callers treat ErrInvalidFormat and
// ErrTruncated as warnings (the file is ignored and the grid recomputed);
// ErrDimensionMismatch on a typed restore is left to the caller's policy.
var (
	ErrInvalidFormat     = errors.New("extinction: not a valid checkpoint file")
	ErrTruncated         = errors.New("extinction: truncated checkpoint file")
	ErrDimensionMismatch = errors.New("extinction: checkpoint dimensions mismatch")
)

// checkpointMagic tags the untyped checkpoint format. There is no version
// field; format changes are breaking.
var checkpointMagic = [5]byte{'@', 'E', '@', 'S', '@'}

// Sanity bounds for the typed restore header.
const (
	maxIsotopes = 10000
	maxSamples  = 10000000
)

// Save writes the grid and its computed flags to a binary checkpoint:
// the 5-byte magic tag, NLayers*NWave little-endian doubles in row-major
// order, then NLayers one-byte flags. A failure here is non-fatal for the
// run; the caller logs it and continues without caching.
func Save(path string, g *Grid) error {
	fp, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open checkpoint for writing: %w", err)
	}
	defer fp.Close()

	w := bufio.NewWriter(fp)
	if _, err := w.Write(checkpointMagic[:]); err != nil {
		return fmt.Errorf("write checkpoint magic: %w", err)
	}
	if err := writeBody(w, g); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush checkpoint: %w", err)
	}
	return nil
}

// Restore reads a checkpoint written by Save into g. A missing file or a
// wrong magic tag leaves the grid untouched and returns an error the caller
// downgrades to a warning (check errors.Is against os.ErrNotExist or
// ErrInvalidFormat). Short reads fail with ErrTruncated.
func Restore(path string, g *Grid) error {
	fp, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open checkpoint: %w", err)
	}
	defer fp.Close()

	r := bufio.NewReader(fp)
	var magic [5]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if magic != checkpointMagic {
		return fmt.Errorf("%w: magic %q", ErrInvalidFormat, magic[:])
	}
	return readBody(r, g)
}

// SaveWithHeader writes the typed checkpoint variant: a dimension header
// {nrad int64, niso int16, nwave int64} followed by the magic-less body.
func SaveWithHeader(path string, g *Grid, niso int) error {
	fp, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open checkpoint for writing: %w", err)
	}
	defer fp.Close()

	w := bufio.NewWriter(fp)
	hdr := checkpointHeader{NRad: int64(g.NLayers), NIso: int16(niso), NWave: int64(g.NWave)}
	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("write checkpoint header: %w", err)
	}
	if err := writeBody(w, g); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush checkpoint: %w", err)
	}
	return nil
}

// RestoreWithHeader reads the typed variant, validating the persisted
// dimensions against sanity bounds and against the caller's grid before
// touching it.
func RestoreWithHeader(path string, g *Grid, niso int) error {
	fp, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open checkpoint: %w", err)
	}
	defer fp.Close()

	r := bufio.NewReader(fp)
	var hdr checkpointHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("%w: header: %v", ErrTruncated, err)
	}
	if hdr.NIso > maxIsotopes || hdr.NRad > maxSamples || hdr.NWave > maxSamples {
		return fmt.Errorf("%w: implausible header %d radii, %d isotopes, %d wavenumbers",
			ErrDimensionMismatch, hdr.NRad, hdr.NIso, hdr.NWave)
	}
	if hdr.NRad != int64(g.NLayers) || hdr.NWave != int64(g.NWave) || hdr.NIso != int16(niso) {
		return fmt.Errorf("%w: file %dx%d (%d isotopes), want %dx%d (%d isotopes)",
			ErrDimensionMismatch, hdr.NRad, hdr.NWave, hdr.NIso, g.NLayers, g.NWave, niso)
	}
	return readBody(r, g)
}

type checkpointHeader struct {
	NRad  int64
	NIso  int16
	NWave int64
}

func writeBody(w io.Writer, g *Grid) error {
	if err := binary.Write(w, binary.LittleEndian, g.raw()); err != nil {
		return fmt.Errorf("write checkpoint grid: %w", err)
	}
	flags := make([]byte, g.NLayers)
	for i, c := range g.Computed {
		if c {
			flags[i] = 1
		}
	}
	if _, err := w.Write(flags); err != nil {
		return fmt.Errorf("write checkpoint flags: %w", err)
	}
	return nil
}

// readBody reads grid values and flags into scratch buffers first so a short
// read leaves g untouched.
func readBody(r io.Reader, g *Grid) error {
	values := make([]float64, g.NLayers*g.NWave)
	if err := binary.Read(r, binary.LittleEndian, values); err != nil {
		return fmt.Errorf("%w: grid values: %v", ErrTruncated, err)
	}
	flags := make([]byte, g.NLayers)
	if _, err := io.ReadFull(r, flags); err != nil {
		return fmt.Errorf("%w: computed flags: %v", ErrTruncated, err)
	}
	copy(g.raw(), values)
	for i, f := range flags {
		g.Computed[i] = f != 0
	}
	return nil
}
