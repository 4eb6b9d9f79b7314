package stage

import (
	_ "embed"
	"unsafe"

	"context"

	"github.com/jgillich/go-opencl/cl"

	"github.com/j-stephan/ddafa/internal/ddferr"
	"github.com/j-stephan/ddafa/internal/device"
	"github.com/j-stephan/ddafa/internal/geometry"
	"github.com/j-stephan/ddafa/internal/log"
	"github.com/j-stephan/ddafa/internal/pipeline"
	"github.com/j-stephan/ddafa/internal/task"
	"github.com/j-stephan/ddafa/internal/volume"
)

//go:embed kernels/backproject.cl
var backprojectSource string

// Reconstruction differentially back-projects each incoming filtered
// projection into the subvolume owned by the current task, per
// spec.md §4.6. Task boundaries are taken from the Task each projection
// carries: when it changes, the completed subvolume is flushed to Sink
// and a new one is started. On the sentinel it flushes the last
// subvolume and returns; it is the last stage of the pipeline, so the
// sentinel is not pushed any further.
type Reconstruction struct {
	deviceID int
	accel    *device.Accelerator
	det      geometry.Detector
	vol      geometry.Volume // ROI-clipped volume shared by every task on this device
	deltaPhi float32

	kernel *cl.Kernel

	current task.Task
	slab    *volume.Slab

	pull   func(ctx context.Context) (pipeline.Item, bool)
	toSink func(ctx context.Context, s volume.Slab) error
}

// NewReconstruction builds a Reconstruction stage for one accelerator.
// roi, if non-nil, clips the reconstructed volume per spec.md §4.7;
// every task this stage ever receives is expected to address z-ranges
// within that same ROI-derived volume.
func NewReconstruction(deviceID int, accel *device.Accelerator, det geometry.Detector, roi *geometry.ROI, deltaPhi float32, toSink func(ctx context.Context, s volume.Slab) error) (*Reconstruction, error) {
	program, err := accel.Context.CreateProgramWithSource([]string{backprojectSource})
	if err != nil {
		return nil, ddferr.Construction("create backproject program", err)
	}
	if err := program.BuildProgram(nil, ""); err != nil {
		return nil, ddferr.Construction("build backproject program", err)
	}
	kernel, err := program.CreateKernel("backproject")
	if err != nil {
		return nil, ddferr.Construction("create backproject kernel", err)
	}

	vol := geometry.Derive(det, roi)
	return &Reconstruction{deviceID: deviceID, accel: accel, det: det, vol: vol, deltaPhi: deltaPhi, kernel: kernel, toSink: toSink}, nil
}

func (r *Reconstruction) Name() string { return "reconstruction" }

// AssignTask zero-initializes the subvolume for the new task, per
// spec.md §4.6 ("The subvolume is zero-initialized at task start.").
func (r *Reconstruction) AssignTask(t task.Task) {
	r.current = t
	nz := t.ZEnd - t.ZStart

	zero := make([]byte, 4*r.vol.NX*r.vol.NY*nz)
	mem, err := r.accel.Context.CreateEmptyBuffer(cl.MemReadWrite, len(zero))
	if err != nil {
		log.Stage(r.Name(), r.deviceID).WithError(err).Fatal("failed to allocate subvolume")
	}
	if _, err := r.accel.QueueKernel.EnqueueWriteBuffer(mem, true, 0, len(zero), unsafe.Pointer(&zero[0]), nil); err != nil {
		log.Stage(r.Name(), r.deviceID).WithError(err).Fatal("failed to zero-init subvolume")
	}

	r.slab = &volume.Slab{
		SubvolumeID: t.SubvolumeID,
		Data:        &device.Handle{Mem: mem, Width: r.vol.NX, Height: r.vol.NY * nz},
		XExtent:     r.vol.NX,
		YExtent:     r.vol.NY,
		ZExtent:     nz,
		ZOffset:     t.ZStart,
		Stream:      &device.Stream{Queue: r.accel.QueueRead},
	}
}

func (r *Reconstruction) SetInput(pull func(ctx context.Context) (pipeline.Item, bool)) {
	r.pull = pull
}
func (r *Reconstruction) SetOutput(func(ctx context.Context, it pipeline.Item)) {}

func (r *Reconstruction) Run(ctx context.Context) error {
	logger := log.Stage(r.Name(), r.deviceID)

	started := false

	for {
		it, ok := r.pull(ctx)
		if !ok {
			return ctx.Err()
		}
		if !it.Valid {
			if r.slab != nil {
				if err := r.toSink(ctx, *r.slab); err != nil {
					return err
				}
			}
			logger.Info("received sentinel, stage done")
			return nil
		}

		if !started || it.Task.SubvolumeID != r.current.SubvolumeID {
			if r.slab != nil {
				if err := r.toSink(ctx, *r.slab); err != nil {
					return err
				}
				logger.WithField("subvolume", r.current.SubvolumeID).Debug("flushed completed subvolume")
			}
			r.AssignTask(it.Task)
			started = true
		}

		if err := r.apply(it); err != nil {
			return ddferr.Kernel(r.Name(), r.deviceID, err)
		}

		it.Data.Release()
		logger.WithField("projection", it.Index).Debug("back-projected")
	}
}

func (r *Reconstruction) apply(it pipeline.Item) error {
	nz := r.slab.ZExtent
	zMin := r.vol.ZMin + float32(r.slab.ZOffset)*r.vol.VoxelSize

	args := []interface{}{
		r.slab.Data.Mem,
		int32(r.vol.NX), int32(r.vol.NY), int32(nz),
		r.vol.VoxelSize, r.vol.XMin, r.vol.YMin, zMin,
		it.Data.Mem,
		int32(r.det.NH), int32(r.det.NV),
		r.det.PitchH, r.det.PitchV,
		r.det.HMin(), r.det.VMin(),
		r.det.DSO, r.det.DSD,
		it.Phi, r.deltaPhi,
	}
	if err := r.kernel.SetArgs(args...); err != nil {
		return err
	}

	global := []int{r.vol.NX, r.vol.NY, nz}
	if _, err := it.Stream.Queue.EnqueueNDRangeKernel(r.kernel, nil, global, nil, nil); err != nil {
		return err
	}
	return it.Stream.Sync()
}
