package fdk

import "math"

// SheppLoganDisk returns the attenuation of a single uniform-density
// disk of the given radius centered at the origin in the x-y plane; z
// is ignored, so in 3-D it is a cylinder along the rotation axis — a minimal stand-in
// for the classic Shepp-Logan phantom, just enough to exercise the
// round-trip and symmetry properties spec.md §8 calls for without
// pulling in a full phantom generator.
func SheppLoganDisk(radius, density float64) func(x, y, z float64) float64 {
	return func(x, y, z float64) float64 {
		if x*x+y*y <= radius*radius {
			return density
		}
		return 0
	}
}

// ForwardProject computes the line-integral projection of a density
// field through a cone-beam geometry at angle phi, sampling along the
// ray from source to each detector pixel. It is the inverse operation
// of BackprojectVoxel, used only by tests to build synthetic
// projections of a known phantom (spec.md §8 property 1).
func ForwardProject(density func(x, y, z float64) float64, dso, dsd float64, phi float64, nH, nV int, pitchH, pitchV, hMin, vMin float64, steps int) []float32 {
	out := make([]float32, nH*nV)
	cphi := math.Cos(phi)
	sphi := math.Sin(phi)

	// Source position in world space: the source sits at distance dso
	// from the isocenter, rotated by phi.
	srcX := -dso * sphi
	srcY := dso * cphi

	for v := 0; v < nV; v++ {
		dz := float64(v)*pitchV + vMin + pitchV/2
		for u := 0; u < nH; u++ {
			du := float64(u)*pitchH + hMin + pitchH/2

			// Detector pixel position: offset du along the in-plane
			// detector axis, dz along z, at distance dsd from the
			// source along the view direction.
			detX := srcX + dsd*sphi + du*cphi
			detY := srcY - dsd*cphi + du*sphi
			detZ := dz

			var sum float64
			for s := 0; s < steps; s++ {
				t := float64(s) / float64(steps-1)
				x := srcX + t*(detX-srcX)
				y := srcY + t*(detY-srcY)
				z := t * detZ
				sum += density(x, y, z)
			}
			length := math.Sqrt((detX-srcX)*(detX-srcX) + (detY-srcY)*(detY-srcY) + detZ*detZ)
			out[v*nH+u] = float32(sum * length / float64(steps))
		}
	}
	return out
}
