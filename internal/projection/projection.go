// Package projection defines the Projection value carried between
// pipeline stages and the device-memory Handle type it wraps once it
// has been uploaded.
package projection

import (
	"github.com/j-stephan/ddafa/internal/device"
	"github.com/j-stephan/ddafa/internal/task"
)

// Projection is one 2-D detector image at rotation angle Phi. Before
// upload the pixels are a plain host-resident slice in Host; once
// Preloader has run, Data is an owning handle into the device pool and
// Host is cleared, so Source and Preloader share one type. Task travels with the
// projection so Reconstruction — the only stage that needs to know
// where one task ends and the next begins — can detect the boundary
// without a second in-band signal; spec.md §3 invariant (ii) reserves
// the sentinel for end-of-pipeline only.
type Projection struct {
	Host   []float32      // host-resident pixels, valid before upload
	Data   *device.Handle // device-resident pixels, valid after upload
	Width  int
	Height int
	Pitch  int // row pitch in elements, >= Width
	Index  int
	Phi    float32 // rotation angle, radians
	Valid  bool    // false denotes the poison pill
	Stream *device.Stream
	Task   task.Task
}

// Sentinel builds the poison-pill projection that propagates through
// every stage exactly once per pipeline.
func Sentinel() Projection {
	return Projection{Valid: false}
}
