package pipeline

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j-stephan/ddafa/internal/task"
)

// passthroughStage forwards every item unchanged, pausing before each
// push so tests can observe backpressure. It needs no device, pool or
// kernel, so it exercises the pipeline's wiring in isolation.
type passthroughStage struct {
	name  string
	delay time.Duration
	pull  func(ctx context.Context) (Item, bool)
	push  func(ctx context.Context, it Item)
	seen  []int
}

func (s *passthroughStage) Name() string           { return s.name }
func (s *passthroughStage) AssignTask(task.Task)    {}
func (s *passthroughStage) SetInput(pull func(ctx context.Context) (Item, bool)) {
	s.pull = pull
}
func (s *passthroughStage) SetOutput(push func(ctx context.Context, it Item)) {
	s.push = push
}
func (s *passthroughStage) Run(ctx context.Context) error {
	for {
		it, ok := s.pull(ctx)
		if !ok {
			return ctx.Err()
		}
		if !it.Valid {
			s.push(ctx, it)
			return nil
		}
		if s.delay > 0 {
			time.Sleep(s.delay)
		}
		s.seen = append(s.seen, it.Index)
		s.push(ctx, it)
	}
}

// sourceStage emits a fixed number of items, then one sentinel, and
// never pulls from anything (it has no upstream).
type sourceStage struct {
	count int
	push  func(ctx context.Context, it Item)
}

func (s *sourceStage) Name() string                                             { return "source" }
func (s *sourceStage) AssignTask(task.Task)                                      {}
func (s *sourceStage) SetInput(func(ctx context.Context) (Item, bool))           {}
func (s *sourceStage) SetOutput(push func(ctx context.Context, it Item)) {
	s.push = push
}
func (s *sourceStage) Run(ctx context.Context) error {
	for i := 0; i < s.count; i++ {
		s.push(ctx, Item{Valid: true, Index: i})
	}
	s.push(ctx, Sentinel())
	return nil
}

// sinkStage pulls until the sentinel and records everything it saw.
type sinkStage struct {
	pull func(ctx context.Context) (Item, bool)
	seen []int
	done chan struct{}
}

func (s *sinkStage) Name() string                                  { return "sink" }
func (s *sinkStage) AssignTask(task.Task)                          {}
func (s *sinkStage) SetInput(pull func(ctx context.Context) (Item, bool)) {
	s.pull = pull
}
func (s *sinkStage) SetOutput(func(ctx context.Context, it Item)) {}
func (s *sinkStage) Run(ctx context.Context) error {
	defer close(s.done)
	for {
		it, ok := s.pull(ctx)
		if !ok {
			return ctx.Err()
		}
		if !it.Valid {
			return nil
		}
		s.seen = append(s.seen, it.Index)
	}
}

// TestPipelineTerminatesOnSentinel is property 7: a pipeline with no
// errors runs every stage to completion and returns once the sentinel
// has propagated through the last stage.
func TestPipelineTerminatesOnSentinel(t *testing.T) {
	src := &sourceStage{count: 5}
	mid := &passthroughStage{name: "mid"}
	snk := &sinkStage{done: make(chan struct{})}

	p := New(src, mid, snk)

	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(context.Background()) }()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline did not terminate")
	}

	assert.Equal(t, []int{0, 1, 2, 3, 4}, snk.seen)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, mid.seen)
}

// TestPipelineBackpressureBoundsInFlightItems is property 8: with an
// edge capacity of 1, a slow downstream stage limits how far ahead an
// upstream stage can run — the producer blocks rather than buffering
// unboundedly.
func TestPipelineBackpressureBoundsInFlightItems(t *testing.T) {
	src := &sourceStage{count: 20}
	slow := &passthroughStage{name: "slow", delay: 10 * time.Millisecond}
	snk := &sinkStage{done: make(chan struct{})}

	p := NewWithLimit(1, src, slow, snk)

	// Count how far the source gets ahead of the slow stage. With edge
	// capacity 1, after the k-th push returns the slow stage has
	// received at least k-1 items, and at most one of those receives may
	// not be counted yet, so the source is never more than 2 ahead.
	var pushed, pulled, maxAhead int64
	srcPush := src.push
	src.push = func(ctx context.Context, it Item) {
		srcPush(ctx, it)
		if !it.Valid {
			return
		}
		if ahead := atomic.AddInt64(&pushed, 1) - atomic.LoadInt64(&pulled); ahead > maxAhead {
			maxAhead = ahead
		}
	}
	slowPull := slow.pull
	slow.pull = func(ctx context.Context) (Item, bool) {
		it, ok := slowPull(ctx)
		if ok && it.Valid {
			atomic.AddInt64(&pulled, 1)
		}
		return it, ok
	}

	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(context.Background()) }()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not terminate")
	}

	assert.Len(t, snk.seen, 20)
	assert.LessOrEqual(t, maxAhead, int64(2), "source ran ahead of the slow stage beyond the edge capacity")
}
