package stage

import (
	"context"
	"unsafe"

	"github.com/j-stephan/ddafa/internal/ddferr"
	"github.com/j-stephan/ddafa/internal/device"
	"github.com/j-stephan/ddafa/internal/fdk"
	"github.com/j-stephan/ddafa/internal/log"
	"github.com/j-stephan/ddafa/internal/pipeline"
	"github.com/j-stephan/ddafa/internal/task"
)

// Filter applies the 1-D ramp filter to every row of each incoming
// projection. The OpenCL binding available to this module has no FFT
// kernel, so the row-wise pad/FFT/multiply/IFFT/unpad math
// (internal/fdk.RampKernel) runs on the host: the stage downloads the
// projection, filters it, and re-uploads it before handing it to
// Reconstruction. This is the one host-side numeric kernel in an
// otherwise device-resident pipeline; see DESIGN.md.
type Filter struct {
	deviceID int
	accel    *device.Accelerator
	ramp     *fdk.RampKernel

	pull func(ctx context.Context) (pipeline.Item, bool)
	push func(ctx context.Context, it pipeline.Item)
}

// NewFilter builds the Filter stage's ramp kernel once, per spec.md
// §4.5 ("once per device at startup").
func NewFilter(deviceID int, accel *device.Accelerator, nH int, pitchH float32) *Filter {
	l := fdk.FilterLength(nH)
	return &Filter{deviceID: deviceID, accel: accel, ramp: fdk.NewRampKernel(l, pitchH)}
}

func (f *Filter) Name() string { return "filter" }

func (f *Filter) AssignTask(task.Task) {}

func (f *Filter) SetInput(pull func(ctx context.Context) (pipeline.Item, bool)) {
	f.pull = pull
}
func (f *Filter) SetOutput(push func(ctx context.Context, it pipeline.Item)) {
	f.push = push
}

func (f *Filter) Run(ctx context.Context) error {
	logger := log.Stage(f.Name(), f.deviceID)
	for {
		it, ok := f.pull(ctx)
		if !ok {
			return ctx.Err()
		}
		if !it.Valid {
			f.push(ctx, it)
			return nil
		}

		if err := f.apply(it); err != nil {
			return ddferr.Kernel(f.Name(), f.deviceID, err)
		}

		logger.WithField("projection", it.Index).Debug("filtered projection")
		f.push(ctx, it)
	}
}

func (f *Filter) apply(it pipeline.Item) error {
	n := it.Width * it.Height
	host := make([]float32, n)

	if _, err := it.Stream.Queue.EnqueueReadBuffer(it.Data.Mem, true, 0, 4*n, unsafe.Pointer(&host[0]), nil); err != nil {
		return err
	}

	for row := 0; row < it.Height; row++ {
		f.ramp.FilterRow(host[row*it.Width : (row+1)*it.Width])
	}

	if _, err := it.Stream.Queue.EnqueueWriteBuffer(it.Data.Mem, true, 0, 4*n, unsafe.Pointer(&host[0]), nil); err != nil {
		return err
	}
	return nil
}
