package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j-stephan/ddafa/internal/geometry"
)

func testDetector() geometry.Detector {
	return geometry.Detector{NH: 64, NV: 64, PitchH: 1, PitchV: 1, DSO: 500, DSD: 1000}
}

func TestPlanTasksCoversEveryZSlice(t *testing.T) {
	det := testDetector()
	budget := Budget(1, det.NH, det.NV, 5) // budget too small for even one projection: one z-slice per slab
	tasks := PlanTasks(det, nil, 2, 360, budget)

	require.NotEmpty(t, tasks)

	vol := geometry.Derive(det, nil)
	covered := make([]bool, vol.NZ)
	for _, tk := range tasks {
		for z := tk.ZStart; z < tk.ZEnd; z++ {
			require.False(t, covered[z], "z slice %d covered twice", z)
			covered[z] = true
		}
		assert.Equal(t, 0, tk.Proj.Start)
		assert.Equal(t, 360, tk.Proj.End)
	}
	for z, c := range covered {
		require.True(t, c, "z slice %d never covered", z)
	}
}

func TestPlanTasksAssignsDevicesRoundRobin(t *testing.T) {
	det := testDetector()
	budget := Budget(1, det.NH, det.NV, 5)
	tasks := PlanTasks(det, nil, 3, 360, budget)
	require.True(t, len(tasks) > 3)

	for i, tk := range tasks {
		assert.Equal(t, i%3, tk.DeviceID)
	}
}

// TestROIMatchesFullVolumeSlice is the E3 scenario: planning against an
// ROI that selects a z-subrange produces the same z-range a full-volume
// plan would produce for that subrange, just relabeled as its own task.
func TestROIMatchesFullVolumeSlice(t *testing.T) {
	det := testDetector()
	full := geometry.Derive(det, nil)

	roi := &geometry.ROI{X1: 0, X2: full.NX, Y1: 0, Y2: full.NY, Z1: 0, Z2: 4}
	budget := Budget(1<<30, det.NH, det.NV, 5) // generous: one slab covers the whole ROI

	tasks := PlanTasks(det, roi, 1, 360, budget)
	require.Len(t, tasks, 1)
	assert.Equal(t, 0, tasks[0].ZStart)
	assert.Equal(t, 4, tasks[0].ZEnd)
}
