// Package stage implements the five per-device pipeline stages:
// Source, Preloader, Weighting, Filter, Reconstruction. Sink lives
// here too, shared by every per-device pipeline.
package stage

import (
	"context"

	"github.com/j-stephan/ddafa/internal/imageio"
	"github.com/j-stephan/ddafa/internal/log"
	"github.com/j-stephan/ddafa/internal/pipeline"
	"github.com/j-stephan/ddafa/internal/projection"
	"github.com/j-stephan/ddafa/internal/task"
)

// Source drains the shared task queue and, for the current task's
// projection range, reads each projection from the I/O collaborator in
// index order, tagging it with its rotation angle.
type Source struct {
	device   int
	queue    *task.Queue
	reader   imageio.ProjectionSource
	deltaPhi float32

	current task.Task
	idx     int

	push func(ctx context.Context, it pipeline.Item)
}

// NewSource builds a Source stage bound to the shared task queue and
// the projection reader collaborator.
func NewSource(device int, queue *task.Queue, reader imageio.ProjectionSource, deltaPhi float32) *Source {
	return &Source{device: device, queue: queue, reader: reader, deltaPhi: deltaPhi}
}

func (s *Source) Name() string { return "source" }

func (s *Source) AssignTask(t task.Task) {
	s.current = t
	s.idx = t.Proj.Start
}

func (s *Source) SetInput(func(ctx context.Context) (pipeline.Item, bool)) {}
func (s *Source) SetOutput(push func(ctx context.Context, it pipeline.Item)) {
	s.push = push
}

// Run takes this device's tasks from the shared queue one by one; for
// each task it streams every projection in the task's range, then (once
// no task for this device is left, whatever other devices still have
// queued) pushes exactly one sentinel downstream and returns.
func (s *Source) Run(ctx context.Context) error {
	logger := log.Stage(s.Name(), s.device)
	for {
		t, ok := s.queue.PopForDevice(s.device)
		if !ok {
			s.push(ctx, pipeline.Sentinel())
			logger.Info("task queue drained, emitted sentinel")
			return nil
		}
		s.AssignTask(t)
		logger.WithField("task", t.SubvolumeID).Info("starting task")

		for s.idx < s.current.Proj.End {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			pixels, width, height, err := s.reader.Read(s.idx)
			if err != nil {
				return err
			}

			p := projection.Projection{
				Host:   pixels,
				Width:  width,
				Height: height,
				Pitch:  width,
				Index:  s.idx,
				Phi:    float32(s.idx) * s.deltaPhi,
				Valid:  true,
				Task:   s.current,
			}
			s.push(ctx, p)
			s.idx++
		}
	}
}
