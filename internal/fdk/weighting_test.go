package fdk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWeightPixelAtCenterIsUnattenuated(t *testing.T) {
	// The central pixel sits on the optic axis: du = dv = 0, so the
	// weight collapses to d_sd / d_sd = 1.
	got := WeightPixel(2.0, 0, 0, 1.0, 1.0, -0.5, -0.5, 100.0)
	assert.InDelta(t, 2.0, got, 1e-9)
}

func TestWeightPixelDecreasesWithDistanceFromCenter(t *testing.T) {
	center := WeightPixel(1.0, 0, 0, 1.0, 1.0, -0.5, -0.5, 100.0)
	edge := WeightPixel(1.0, 50, 50, 1.0, 1.0, -0.5, -0.5, 100.0)
	assert.Less(t, edge, center)
}

func TestWeightPixelNaNPropagates(t *testing.T) {
	got := WeightPixel(math.NaN(), 0, 0, 1.0, 1.0, -0.5, -0.5, 100.0)
	assert.True(t, math.IsNaN(got))
}
