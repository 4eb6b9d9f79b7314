// Package geometry implements the closed-form detector and volume
// geometry derivations used by the FDK kernels: magnification,
// coordinate origins, and subvolume (slab) sizing.
package geometry

import "math"

// Detector describes the flat-panel detector. It is immutable after
// construction and freely shared by value across pipelines.
type Detector struct {
	NH, NV         int     // pixel counts: columns, rows
	PitchH, PitchV float32 // pixel pitch, mm
	DSO            float32 // source-to-isocenter distance
	DSD            float32 // source-to-detector distance
}

// HMin returns the detector-space coordinate of the left edge of pixel
// column 0, centered so that the detector is symmetric about u=0.
func (d Detector) HMin() float32 {
	return -(float32(d.NH-1) / 2) * d.PitchH
}

// VMin is the row analogue of HMin.
func (d Detector) VMin() float32 {
	return -(float32(d.NV-1) / 2) * d.PitchV
}

// Volume describes the reconstructed voxel grid. Derived from a
// Detector by Derive unless overridden by an ROI.
type Volume struct {
	NX, NY, NZ         int
	VoxelSize          float32 // isotropic voxel size
	XMin, YMin, ZMin   float32
}

// ROI is an axis-aligned clip of the volume, expressed in volume-space
// voxel indices (half-open on the high end, inclusive on the low end,
// matching spec.md's x1,x2 convention).
type ROI struct {
	X1, X2 int
	Y1, Y2 int
	Z1, Z2 int
}

// Derive computes volume extents from detector geometry using the
// standard FDK magnification formula, optionally narrowed by roi.
func Derive(det Detector, roi *ROI) Volume {
	vx := det.PitchH * det.DSO / det.DSD

	nx, ny, nz := det.NH, det.NH, det.NV
	xMin := -(float32(nx-1) / 2) * vx
	yMin := -(float32(ny-1) / 2) * vx
	zMin := -(float32(nz-1) / 2) * vx

	vol := Volume{NX: nx, NY: ny, NZ: nz, VoxelSize: vx, XMin: xMin, YMin: yMin, ZMin: zMin}
	if roi == nil {
		return vol
	}

	clamp := func(lo, hi, n int) (int, int) {
		if lo < 0 {
			lo = 0
		}
		if hi > n {
			hi = n
		}
		return lo, hi
	}

	x1, x2 := clamp(roi.X1, roi.X2, vol.NX)
	y1, y2 := clamp(roi.Y1, roi.Y2, vol.NY)
	z1, z2 := clamp(roi.Z1, roi.Z2, vol.NZ)

	return Volume{
		NX:        x2 - x1,
		NY:        y2 - y1,
		NZ:        z2 - z1,
		VoxelSize: vx,
		XMin:      vol.XMin + float32(x1)*vx,
		YMin:      vol.YMin + float32(y1)*vx,
		ZMin:      vol.ZMin + float32(z1)*vx,
	}
}

// NextPow2 returns the smallest power of two >= n, n > 0.
func NextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << int(math.Ceil(math.Log2(float64(n))))
}
