package fdk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackprojectVoxelMissesWhenOutsideDetector(t *testing.T) {
	p := &ProjectionSample{
		Pixels: make([]float32, 16*16),
		NH:     16, NV: 16,
		PitchH: 1, PitchV: 1,
		HMin: -8, VMin: -8,
		Phi: 0,
	}
	// Far outside the reconstructed field of view: the ray through this
	// voxel lands off the detector panel entirely.
	got := BackprojectVoxel(1000, 1000, 1000, 100, 200, 0.01, p)
	assert.Zero(t, got)
}

func TestBackprojectVoxelSingularMagnificationIsSkipped(t *testing.T) {
	p := &ProjectionSample{
		Pixels: make([]float32, 16*16),
		NH:     16, NV: 16,
		PitchH: 1, PitchV: 1,
		HMin: -8, VMin: -8,
		Phi: 0,
	}
	// t = y at phi=0, so denom = dso - t is ~0 when y == dso.
	got := BackprojectVoxel(0, 100, 0, 100, 200, 0.01, p)
	assert.Zero(t, got)
}

// TestCenterVoxelClosedForm is the E1 scenario: for a projection of a
// uniform disk centered on the rotation axis, every angle contributes
// the same value at the isocenter, so the central voxel's closed-form
// contribution per projection is u^2 * p* * deltaPhi with u == 1
// (isocenter is unmagnified) and p* equal to the forward-projected
// center-ray value.
func TestCenterVoxelClosedForm(t *testing.T) {
	const (
		dso, dsd       = 500.0, 1000.0
		nH, nV         = 64, 64
		pitchH, pitchV = 1.0, 1.0
	)
	hMin := -(float64(nH-1) / 2) * pitchH
	vMin := -(float64(nV-1) / 2) * pitchV

	disk := SheppLoganDisk(40, 1.0)
	phi := 0.3
	pixels := ForwardProject(disk, dso, dsd, phi, nH, nV, pitchH, pitchV, hMin, vMin, 2000)

	p := &ProjectionSample{
		Pixels: pixels,
		NH:     nH, NV: nV,
		PitchH: float32(pitchH), PitchV: float32(pitchV),
		HMin: float32(hMin), VMin: float32(vMin),
		Phi: float32(phi),
	}

	got := BackprojectVoxel(0, 0, 0, dso, dsd, 1.0, p)
	require.NotZero(t, got)

	// At the isocenter u == 1 regardless of phi, so the contribution
	// reduces to the forward-projected center-ray value itself. With
	// even nH/nV the fractional detector coordinate lands exactly on
	// pixel index nH/2-1, nV/2-1 (see BackprojectVoxel's i/j derivation).
	centerPixel := float64(pixels[(nV/2-1)*nH+(nH/2-1)])
	assert.InDelta(t, centerPixel, got, math.Abs(centerPixel)*0.15+1e-6)
}

// TestOpposingProjectionsAgreeAtIsocenter is the E2 scenario: for a
// rotationally symmetric phantom, forward projections taken pi radians
// apart are mirror images of each other, so their contribution at the
// isocenter (where u == 1 independent of phi) is equal.
func TestOpposingProjectionsAgreeAtIsocenter(t *testing.T) {
	const (
		dso, dsd       = 500.0, 1000.0
		nH, nV         = 64, 64
		pitchH, pitchV = 1.0, 1.0
	)
	hMin := -(float64(nH-1) / 2) * pitchH
	vMin := -(float64(nV-1) / 2) * pitchV

	disk := SheppLoganDisk(40, 1.0)

	phi1 := 0.4
	phi2 := phi1 + math.Pi

	p1pix := ForwardProject(disk, dso, dsd, phi1, nH, nV, pitchH, pitchV, hMin, vMin, 2000)
	p2pix := ForwardProject(disk, dso, dsd, phi2, nH, nV, pitchH, pitchV, hMin, vMin, 2000)

	mk := func(pixels []float32, phi float64) *ProjectionSample {
		return &ProjectionSample{
			Pixels: pixels, NH: nH, NV: nV,
			PitchH: float32(pitchH), PitchV: float32(pitchV),
			HMin: float32(hMin), VMin: float32(vMin),
			Phi: float32(phi),
		}
	}

	c1 := BackprojectVoxel(0, 0, 0, dso, dsd, 1.0, mk(p1pix, phi1))
	c2 := BackprojectVoxel(0, 0, 0, dso, dsd, 1.0, mk(p2pix, phi2))

	assert.InDelta(t, c1, c2, math.Abs(c1)*0.15+1e-6)
}
