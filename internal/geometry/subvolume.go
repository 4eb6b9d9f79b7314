package geometry

// SubvolumeInfo describes how the volume's z-extent is sliced into
// slabs sized to fit device memory alongside in-flight projections and
// FFT scratch space.
type SubvolumeInfo struct {
	NZSub  int // slab height in voxels
	NSlabs int // number of slabs, ceil(NZ / NZSub)
}

// MemoryBudget captures the device-memory constraints the planner must
// respect when choosing a slab height.
type MemoryBudget struct {
	UsableBytes          int64
	ConservativeFraction float64 // e.g. 0.8: use at most 80% of UsableBytes
	ParallelProjections  int
	ProjectionBytes      int64
	FFTScratchBytes      int64
}

// PlanSubvolumes chooses NZSub so that one slab, the in-flight
// projections, and FFT scratch fit within budget, then derives the
// slab count. The final slab may be shorter; the remainder is handled
// by the caller via ZStart/ZEnd (see plan.PlanTasks).
func PlanSubvolumes(vol Volume, budget MemoryBudget) SubvolumeInfo {
	available := float64(budget.UsableBytes) * budget.ConservativeFraction
	available -= float64(budget.ParallelProjections) * float64(budget.ProjectionBytes)
	available -= float64(budget.FFTScratchBytes)

	bytesPerZ := float64(vol.NX) * float64(vol.NY) * 4 // float32 voxels
	if bytesPerZ <= 0 || available <= 0 {
		return SubvolumeInfo{NZSub: 1, NSlabs: vol.NZ}
	}

	nzSub := int(available / bytesPerZ)
	if nzSub < 1 {
		nzSub = 1
	}
	if nzSub > vol.NZ {
		nzSub = vol.NZ
	}

	nSlabs := (vol.NZ + nzSub - 1) / nzSub
	return SubvolumeInfo{NZSub: nzSub, NSlabs: nSlabs}
}
