package stage

import (
	"context"
	"sync"
	"unsafe"

	"github.com/j-stephan/ddafa/internal/ddferr"
	"github.com/j-stephan/ddafa/internal/imageio"
	"github.com/j-stephan/ddafa/internal/log"
	"github.com/j-stephan/ddafa/internal/volume"
)

// Sink is shared by every per-device pipeline: each submitted subvolume
// is downloaded from device memory and its z-slices are written through
// the injected VolumeSink right away. Slabs are not held back until
// every task has reported; Done only tells whether the planned number
// of slabs has been submitted. Writes are serialized under its own lock
// but submissions may arrive concurrently from any device's
// Reconstruction stage, per spec.md §5.
//
// The legacy prototype wrote to a hard-coded path
// ("/home/ufxray/.../out.tif", see original_source/src/pipeline/SinkStage.h);
// this port takes path and prefix exclusively from configuration, per
// spec.md §9.
type Sink struct {
	writer     imageio.VolumeSink
	totalTasks int

	mu       sync.Mutex
	received int
}

func NewSink(writer imageio.VolumeSink, totalTasks int) *Sink {
	return &Sink{writer: writer, totalTasks: totalTasks}
}

// Submit is called by each device's Reconstruction stage with one
// completed subvolume. It downloads the slab, writes its slices, and
// tracks how many of the planned tasks have reported.
func (s *Sink) Submit(ctx context.Context, slab volume.Slab) error {
	host, err := s.download(slab)
	if err != nil {
		return ddferr.Kernel("sink", -1, err)
	}

	s.mu.Lock()
	for z := 0; z < slab.ZExtent; z++ {
		plane := host[z*slab.XExtent*slab.YExtent : (z+1)*slab.XExtent*slab.YExtent]
		if err := s.writer.WriteSlice(slab.ZOffset+z, plane, slab.XExtent, slab.YExtent); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	s.received++
	done := s.received
	s.mu.Unlock()

	log.Stage("sink", -1).WithFields(map[string]interface{}{
		"subvolume": slab.SubvolumeID,
		"done":      done,
		"total":     s.totalTasks,
	}).Info("wrote subvolume")

	return nil
}

func (s *Sink) download(slab volume.Slab) ([]float32, error) {
	n := slab.XExtent * slab.YExtent * slab.ZExtent
	host := make([]float32, n)

	if slab.Stream == nil {
		return nil, errNoReadQueue
	}
	if _, err := slab.Stream.Queue.EnqueueReadBuffer(slab.Data.Mem, true, 0, 4*n, unsafe.Pointer(&host[0]), nil); err != nil {
		return nil, err
	}
	return host, nil
}

// Done reports whether every planned task has been submitted.
func (s *Sink) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.received >= s.totalTasks
}

var errNoReadQueue = simpleSinkErr("subvolume has no bound read queue")

type simpleSinkErr string

func (e simpleSinkErr) Error() string { return string(e) }
