// Package device binds OpenCL platforms/devices to accelerators and
// implements the per-device pitched-allocation pool that backs every
// projection and subvolume buffer in the pipeline.
package device

import (
	"github.com/jgillich/go-opencl/cl"

	"github.com/j-stephan/ddafa/internal/ddferr"
	"github.com/j-stephan/ddafa/internal/log"
)

// Stream is the opaque per-projection execution context on the
// accelerator. It carries a dedicated command queue so kernel launches
// and copies enqueued on it can run concurrently with other streams.
type Stream struct {
	Queue *cl.CommandQueue
}

// Sync blocks the host until every command previously enqueued on the
// stream has completed.
func (s *Stream) Sync() error {
	if s == nil || s.Queue == nil {
		return nil
	}
	return s.Queue.Finish()
}

// Accelerator is one bound OpenCL device: a context plus the three
// command queues the pipeline needs (kernel launches, device reads,
// device writes).
type Accelerator struct {
	ID          int
	Device      *cl.Device
	Context     *cl.Context
	QueueKernel *cl.CommandQueue
	QueueRead   *cl.CommandQueue
	QueueWrite  *cl.CommandQueue

	// Pool is the projection buffer pool bound to this accelerator,
	// assigned once by the engine that builds the per-device pipeline.
	Pool *Pool
}

// EnumerateDevices discovers every OpenCL device visible on the
// default platform, matching spec.md §6's "all visible devices are
// used" accelerator selection policy.
func EnumerateDevices() ([]*cl.Device, error) {
	platforms, err := cl.GetPlatforms()
	if err != nil {
		return nil, ddferr.Construction("get platforms", err)
	}
	if len(platforms) == 0 {
		return nil, ddferr.Construction("get platforms", errNoPlatforms)
	}

	devices, err := platforms[0].GetDevices(cl.DeviceTypeAll)
	if err != nil {
		return nil, ddferr.Construction("get devices", err)
	}
	if len(devices) == 0 {
		return nil, ddferr.Construction("get devices", errNoDevices)
	}

	for _, d := range devices {
		log.Base().WithFields(map[string]interface{}{
			"name":              d.Name(),
			"vendor":            d.Vendor(),
			"global_mem_bytes":  d.GlobalMemSize(),
			"max_compute_units": d.MaxComputeUnits(),
		}).Debug("discovered accelerator")
	}

	return devices, nil
}

// BindDevice creates one context and three command queues for dev,
// mirroring the teacher's Streamer.init device/queue setup.
func BindDevice(id int, dev *cl.Device) (*Accelerator, error) {
	ctx, err := cl.CreateContext([]*cl.Device{dev})
	if err != nil {
		return nil, ddferr.Construction("create context", err)
	}

	qKernel, err := ctx.CreateCommandQueue(dev, 0)
	if err != nil {
		return nil, ddferr.Construction("create kernel queue", err)
	}
	qRead, err := ctx.CreateCommandQueue(dev, 0)
	if err != nil {
		return nil, ddferr.Construction("create read queue", err)
	}
	qWrite, err := ctx.CreateCommandQueue(dev, 0)
	if err != nil {
		return nil, ddferr.Construction("create write queue", err)
	}

	return &Accelerator{
		ID:          id,
		Device:      dev,
		Context:     ctx,
		QueueKernel: qKernel,
		QueueRead:   qRead,
		QueueWrite:  qWrite,
	}, nil
}

// NewStream opens a non-default command queue bound to the
// accelerator's context, used as the per-projection stream so kernels
// launched on it can run concurrently with other in-flight projections.
func (a *Accelerator) NewStream() (*Stream, error) {
	q, err := a.Context.CreateCommandQueue(a.Device, 0)
	if err != nil {
		return nil, ddferr.Allocation(a.ID, err)
	}
	return &Stream{Queue: q}, nil
}

// GlobalMemSize reports the device's total global memory, used by the
// planner's memory budget.
func (a *Accelerator) GlobalMemSize() int64 {
	return int64(a.Device.GlobalMemSize())
}

var (
	errNoPlatforms = simpleErr("GetPlatforms returned 0 platforms")
	errNoDevices   = simpleErr("GetDevices returned 0 devices")
)

type simpleErr string

func (e simpleErr) Error() string { return string(e) }
