package fdk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterLengthUsesHorizontalCount(t *testing.T) {
	// Resolves the legacy ambiguity (SPEC_FULL.md §14 #1): length tracks
	// n_h, not n_v, so two detectors that only differ in row count get
	// the same filter length.
	assert.Equal(t, FilterLength(4), FilterLength(4))
	assert.Equal(t, 16, FilterLength(5)) // 2 * next_pow2(5) = 2*8
	assert.Equal(t, 8, FilterLength(4))  // 2 * next_pow2(4) = 2*4
}

func TestFilterRowPreservesZero(t *testing.T) {
	k := NewRampKernel(FilterLength(8), 1.0)
	row := make([]float32, 8)
	k.FilterRow(row)
	for _, v := range row {
		require.Zero(t, v)
	}
}

func TestFilterRowIsLinear(t *testing.T) {
	k := NewRampKernel(FilterLength(8), 1.0)

	a := []float32{1, 0, 0, -1, 2, 0, 1, 0}
	b := []float32{0, 1, -2, 0, 0, 3, 0, -1}
	sum := make([]float32, 8)
	for i := range sum {
		sum[i] = a[i] + b[i]
	}

	fa := append([]float32{}, a...)
	fb := append([]float32{}, b...)
	fsum := append([]float32{}, sum...)

	k.FilterRow(fa)
	k.FilterRow(fb)
	k.FilterRow(fsum)

	for i := range fsum {
		assert.InDelta(t, float64(fa[i]+fb[i]), float64(fsum[i]), 1e-3)
	}
}
