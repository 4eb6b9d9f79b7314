// Package plan turns detector geometry and a device count into the
// static list of tasks the shared task.Queue is pre-loaded with. There
// is no equivalent in the teacher, which ran one fixed kernel over a
// fixed payload set; this generalizes that shape — a static queue of
// work items consumed by a worker pool — from "one kernel" to "N
// geometry-dependent subvolumes," per spec.md §4.7.
package plan

import (
	"github.com/j-stephan/ddafa/internal/geometry"
	"github.com/j-stephan/ddafa/internal/task"
)

// PlanTasks computes the ROI-clipped volume, slices its z-extent into
// slabs sized against budget, and assigns slabs round-robin across
// devices. Every task's projection range is the full [0, projCount)
// sweep: FDK back-projection needs every view to reconstruct any
// slab, so slicing happens only along z, never along the projection
// axis.
func PlanTasks(det geometry.Detector, roi *geometry.ROI, devices int, projCount int, budget geometry.MemoryBudget) []task.Task {
	if devices < 1 {
		devices = 1
	}

	vol := geometry.Derive(det, roi)
	info := geometry.PlanSubvolumes(vol, budget)

	tasks := make([]task.Task, 0, info.NSlabs)
	for i := 0; i < info.NSlabs; i++ {
		zStart := i * info.NZSub
		zEnd := zStart + info.NZSub
		if zEnd > vol.NZ {
			zEnd = vol.NZ
		}
		if zStart >= zEnd {
			break
		}

		tasks = append(tasks, task.Task{
			SubvolumeID: i,
			ZStart:      zStart,
			ZEnd:        zEnd,
			DeviceID:    i % devices,
			Proj:        task.ProjRange{Start: 0, End: projCount},
		})
	}
	return tasks
}
