package stage

import (
	"context"
	_ "embed"

	"github.com/jgillich/go-opencl/cl"

	"github.com/j-stephan/ddafa/internal/ddferr"
	"github.com/j-stephan/ddafa/internal/device"
	"github.com/j-stephan/ddafa/internal/geometry"
	"github.com/j-stephan/ddafa/internal/log"
	"github.com/j-stephan/ddafa/internal/pipeline"
	"github.com/j-stephan/ddafa/internal/task"
)

//go:embed kernels/weighting.cl
var weightingSource string

// Weighting applies the FDK cosine/distance pre-weight in place, on
// device, using the projection's own stream, per spec.md §4.4.
// Grounded on the teacher's kernel_runner.go enqueue pattern.
type Weighting struct {
	deviceID int
	accel    *device.Accelerator
	det      geometry.Detector

	kernel *cl.Kernel

	pull func(ctx context.Context) (pipeline.Item, bool)
	push func(ctx context.Context, it pipeline.Item)
}

func NewWeighting(deviceID int, accel *device.Accelerator, det geometry.Detector) (*Weighting, error) {
	program, err := accel.Context.CreateProgramWithSource([]string{weightingSource})
	if err != nil {
		return nil, ddferr.Construction("create weighting program", err)
	}
	if err := program.BuildProgram(nil, ""); err != nil {
		return nil, ddferr.Construction("build weighting program", err)
	}
	kernel, err := program.CreateKernel("weighting")
	if err != nil {
		return nil, ddferr.Construction("create weighting kernel", err)
	}

	return &Weighting{deviceID: deviceID, accel: accel, det: det, kernel: kernel}, nil
}

func (w *Weighting) Name() string { return "weighting" }

func (w *Weighting) AssignTask(task.Task) {}

func (w *Weighting) SetInput(pull func(ctx context.Context) (pipeline.Item, bool)) {
	w.pull = pull
}
func (w *Weighting) SetOutput(push func(ctx context.Context, it pipeline.Item)) {
	w.push = push
}

func (w *Weighting) Run(ctx context.Context) error {
	logger := log.Stage(w.Name(), w.deviceID)
	for {
		it, ok := w.pull(ctx)
		if !ok {
			return ctx.Err()
		}
		if !it.Valid {
			w.push(ctx, it)
			return nil
		}

		if err := w.apply(it); err != nil {
			return ddferr.Kernel(w.Name(), w.deviceID, err)
		}

		logger.WithField("projection", it.Index).Debug("weighted projection")
		w.push(ctx, it)
	}
}

func (w *Weighting) apply(it pipeline.Item) error {
	args := []interface{}{
		it.Data.Mem,
		int32(it.Width), int32(it.Height),
		w.det.PitchH, w.det.PitchV,
		w.det.HMin(), w.det.VMin(),
		w.det.DSD,
	}
	if err := w.kernel.SetArgs(args...); err != nil {
		return err
	}

	global := []int{it.Width, it.Height}
	if _, err := it.Stream.Queue.EnqueueNDRangeKernel(w.kernel, nil, global, nil, nil); err != nil {
		return err
	}
	return it.Stream.Sync()
}

