package plan

import "github.com/j-stephan/ddafa/internal/geometry"

// DefaultConservativeFraction mirrors the teacher's habit of never
// saturating device memory outright — leaving headroom for the
// driver's own allocations and command-queue bookkeeping.
const DefaultConservativeFraction = 0.8

// Budget computes the geometry.MemoryBudget the planner sizes slabs
// against: parallel in-flight projections plus one FFT scratch buffer
// plus the eventual slab itself must fit within conservativeFraction
// of usableBytes, per spec.md §4.7.
func Budget(usableBytes int64, nH, nV int, parallelProjections int) geometry.MemoryBudget {
	projBytes := int64(nH) * int64(nV) * 4
	fftLen := geometry.NextPow2(nH) * 2
	fftScratch := int64(nV) * int64(fftLen) * 16 // complex128 scratch, one row at a time, generously sized per-row

	return geometry.MemoryBudget{
		UsableBytes:          usableBytes,
		ConservativeFraction: DefaultConservativeFraction,
		ParallelProjections:  parallelProjections,
		ProjectionBytes:      projBytes,
		FFTScratchBytes:      fftScratch,
	}
}
