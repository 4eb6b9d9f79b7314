package fdk

import "math"

// WeightPixel computes the FDK cosine/distance pre-weight for one
// detector pixel at (u, v), in lock-step with
// internal/stage/kernels/weighting.cl's device kernel, so the formula
// itself is unit-testable without an accelerator per spec.md §4.4.
func WeightPixel(value float64, u, v int, pitchH, pitchV, hMin, vMin, dsd float64) float64 {
	du := float64(u)*pitchH + hMin + pitchH/2
	dv := float64(v)*pitchV + vMin + pitchV/2
	w := dsd / math.Sqrt(dsd*dsd+du*du+dv*dv)
	return value * w
}
