// Package imageio is the external I/O collaborator spec.md §1 treats
// as out of scope for the core: reading projection files and writing
// reconstructed volume slices. It is kept as a pair of narrow
// interfaces so the pipeline core never imports os/path directly,
// grounded on the teacher's io.ReadFrom/WriteTo but specialized to the
// single-precision image formats of spec.md §6.
package imageio

import (
	"fmt"
	"os"

	"github.com/j-stephan/ddafa/internal/ddferr"
)

// ProjectionSource reads a single 2-D single-precision projection by
// index; angle derivation is the caller's responsibility (index * Δφ).
type ProjectionSource interface {
	Read(index int) (pixels []float32, width, height int, err error)
}

// VolumeSink writes one reconstructed z-slice.
type VolumeSink interface {
	WriteSlice(z int, pixels []float32, width, height int) error
}

// DirSource reads raw float32 projections from a directory, one file
// per rotation index, named by the convention the CLI's --input flag
// points at.
type DirSource struct {
	Dir    string
	Width  int
	Height int
	Ext    string
}

func (s *DirSource) Read(index int) ([]float32, int, int, error) {
	path := fmt.Sprintf("%s/%06d.%s", s.Dir, index, s.Ext)
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, ddferr.IO(path, err)
	}
	defer f.Close()

	pixels, err := readFloat32s(f, s.Width*s.Height)
	if err != nil {
		return nil, 0, 0, ddferr.IO(path, err)
	}
	return pixels, s.Width, s.Height, nil
}

// DirSink writes reconstructed slices as "{prefix}_{slice:06d}.{ext}"
// files under Dir, per spec.md §6.
type DirSink struct {
	Dir    string
	Prefix string
	Ext    string
}

func (s *DirSink) WriteSlice(z int, pixels []float32, width, height int) error {
	path := fmt.Sprintf("%s/%s_%06d.%s", s.Dir, s.Prefix, z, s.Ext)
	f, err := os.Create(path)
	if err != nil {
		return ddferr.IO(path, err)
	}
	defer f.Close()

	if err := writeFloat32s(f, pixels); err != nil {
		return ddferr.IO(path, err)
	}
	return nil
}
