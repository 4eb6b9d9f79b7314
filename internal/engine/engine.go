// Package engine assembles one staged pipeline per accelerator and
// runs them concurrently against a single shared task queue and Sink,
// the way original_source/src/main.cpp's launch_pipeline loop spins up
// one future per CUDA device. internal/cmd calls Run once per process.
package engine

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/j-stephan/ddafa/internal/config"
	"github.com/j-stephan/ddafa/internal/device"
	"github.com/j-stephan/ddafa/internal/geometry"
	"github.com/j-stephan/ddafa/internal/imageio"
	"github.com/j-stephan/ddafa/internal/log"
	"github.com/j-stephan/ddafa/internal/pipeline"
	"github.com/j-stephan/ddafa/internal/plan"
	"github.com/j-stephan/ddafa/internal/stage"
	"github.com/j-stephan/ddafa/internal/task"
)

// parallelProjections bounds how many projections may be in flight on
// one device at once — the pool limit every Preloader allocates
// against, matching the prototype's launch_pipeline constant of the
// same name.
const parallelProjections = 5

// Run enumerates every visible accelerator, plans the task set,
// assembles one pipeline per device sharing a single task queue and
// Sink, and runs them to completion.
func Run(ctx context.Context, cfg config.Config) error {
	det := geometry.Detector{
		NH: cfg.NH, NV: cfg.NV,
		PitchH: float32(cfg.PitchH), PitchV: float32(cfg.PitchV),
		DSO: float32(cfg.DSO), DSD: float32(cfg.DSD),
	}
	roi := roiToGeometry(cfg.ROI)

	if !cfg.EnableIO {
		// Dry run: geometry/ROI were already validated by
		// config.Config.Validate; nothing else to do, per spec.md §6's
		// enable_io switch.
		log.Base().Info("enable-io is false, skipping reconstruction")
		return nil
	}

	clDevices, err := device.EnumerateDevices()
	if err != nil {
		return err
	}

	accels := make([]*device.Accelerator, len(clDevices))
	minMem := int64(0)
	for i, d := range clDevices {
		accel, err := device.BindDevice(i, d)
		if err != nil {
			return err
		}
		accels[i] = accel
		if m := accel.GlobalMemSize(); minMem == 0 || m < minMem {
			minMem = m
		}
	}

	budget := plan.Budget(minMem, det.NH, det.NV, parallelProjections)
	tasks := plan.PlanTasks(det, roi, len(accels), cfg.NumProjections, budget)
	queue := task.NewQueue(tasks)

	reader := &imageio.DirSource{Dir: cfg.InputDir, Width: det.NH, Height: det.NV, Ext: "bin"}
	writer := &imageio.DirSink{Dir: cfg.OutputDir, Prefix: cfg.Prefix, Ext: "bin"}
	sink := stage.NewSink(writer, len(tasks))

	g, ctx := errgroup.WithContext(ctx)
	for _, accel := range accels {
		pipe, err := buildPipeline(accel, det, roi, float32(cfg.DeltaPhi), queue, reader, sink)
		if err != nil {
			return err
		}
		g.Go(func() error { return pipe.Run(ctx) })
	}

	if err := g.Wait(); err != nil {
		return err
	}

	for _, accel := range accels {
		accel.Pool.Destroy()
	}

	if !sink.Done() {
		log.Base().Warn("pipeline finished but not every planned task reported a subvolume")
	}
	return nil
}

func buildPipeline(accel *device.Accelerator, det geometry.Detector, roi *geometry.ROI, deltaPhi float32, queue *task.Queue, reader imageio.ProjectionSource, sink *stage.Sink) (*pipeline.Pipeline, error) {
	accel.Pool = device.NewPool(accel, 4, parallelProjections)

	source := stage.NewSource(accel.ID, queue, reader, deltaPhi)
	preloader := stage.NewPreloader(accel.ID, accel, accel.Pool)

	weighting, err := stage.NewWeighting(accel.ID, accel, det)
	if err != nil {
		return nil, err
	}

	filter := stage.NewFilter(accel.ID, accel, det.NH, det.PitchH)

	reconstruction, err := stage.NewReconstruction(accel.ID, accel, det, roi, deltaPhi, sink.Submit)
	if err != nil {
		return nil, err
	}

	return pipeline.New(source, preloader, weighting, filter, reconstruction), nil
}

func roiToGeometry(r *config.ROI) *geometry.ROI {
	if r == nil {
		return nil
	}
	return &geometry.ROI{X1: r.X1, X2: r.X2, Y1: r.Y1, Y2: r.Y2, Z1: r.Z1, Z2: r.Z2}
}
