package stage

import (
	"context"
	"unsafe"

	"github.com/j-stephan/ddafa/internal/ddferr"
	"github.com/j-stephan/ddafa/internal/device"
	"github.com/j-stephan/ddafa/internal/log"
	"github.com/j-stephan/ddafa/internal/pipeline"
	"github.com/j-stephan/ddafa/internal/task"
)

// Preloader uploads each incoming host projection to the device: it
// allocates a 2-D buffer from the pool, opens a dedicated stream,
// asynchronously zero-fills and copies the pixels in, and forwards the
// projection carrying that stream. It synchronizes the stream exactly
// once, right before releasing the host source buffer, so downstream
// kernels can remain asynchronous — grounded on the teacher's
// writer.go write-buffer pattern.
type Preloader struct {
	device int
	accel  *device.Accelerator
	pool   *device.Pool

	pull func(ctx context.Context) (pipeline.Item, bool)
	push func(ctx context.Context, it pipeline.Item)
}

func NewPreloader(deviceID int, accel *device.Accelerator, pool *device.Pool) *Preloader {
	return &Preloader{device: deviceID, accel: accel, pool: pool}
}

func (p *Preloader) Name() string { return "preloader" }

func (p *Preloader) AssignTask(task.Task) {}

func (p *Preloader) SetInput(pull func(ctx context.Context) (pipeline.Item, bool)) {
	p.pull = pull
}
func (p *Preloader) SetOutput(push func(ctx context.Context, it pipeline.Item)) {
	p.push = push
}

func (p *Preloader) Run(ctx context.Context) error {
	logger := log.Stage(p.Name(), p.device)
	for {
		it, ok := p.pull(ctx)
		if !ok {
			return ctx.Err()
		}
		if !it.Valid {
			p.push(ctx, it)
			return nil
		}

		stream, err := p.accel.NewStream()
		if err != nil {
			return ddferr.Kernel(p.Name(), p.device, err)
		}

		handle, err := p.pool.AllocateSmart(it.Width, it.Height)
		if err != nil {
			return ddferr.Allocation(p.device, err)
		}

		zero := make([]byte, 4*it.Width*it.Height)
		if _, err := stream.Queue.EnqueueWriteBuffer(handle.Mem, false, 0, len(zero), unsafe.Pointer(&zero[0]), nil); err != nil {
			return ddferr.Kernel(p.Name(), p.device, err)
		}

		byteSize := 4 * len(it.Host)
		if _, err := stream.Queue.EnqueueWriteBuffer(handle.Mem, false, 0, byteSize, unsafe.Pointer(&it.Host[0]), nil); err != nil {
			return ddferr.Kernel(p.Name(), p.device, err)
		}

		// Synchronize once, right before the host buffer goes out of
		// scope, per spec.md §4.3.
		if err := stream.Sync(); err != nil {
			return ddferr.Kernel(p.Name(), p.device, err)
		}

		it.Data = handle
		it.Stream = stream
		it.Host = nil

		logger.WithField("projection", it.Index).Debug("uploaded projection")
		p.push(ctx, it)
	}
}

