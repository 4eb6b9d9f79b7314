// Package pipeline implements the generic N-stage streaming graph
// described in spec.md §4.1: stages are wired by bounded channels,
// run as independent goroutines, and shut down via an in-band poison
// pill that is guaranteed to propagate through every stage exactly
// once.
package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/j-stephan/ddafa/internal/log"
	"github.com/j-stephan/ddafa/internal/projection"
	"github.com/j-stephan/ddafa/internal/task"
)

// Item is the envelope every stage edge carries: either a live
// projection or the sentinel, matching spec.md §9 design note 1's
// Data(P) | End sum type, realized here as the projection's own Valid
// flag rather than a separate tagged union, because no stage in this
// pipeline ever needs a second, non-terminating "End" payload.
type Item = projection.Projection

// Sentinel is the in-band shutdown marker.
func Sentinel() Item { return projection.Sentinel() }

// Stage is one node of the pipeline. AssignTask configures per-task
// parameters; the pipeline itself never calls it, and the stages that
// track tasks (Source, Reconstruction) call it from inside Run whenever
// a new task begins. SetInput
// and SetOutput inject the upstream pull and downstream push
// callables; Run blocks until the stage observes the sentinel (which
// it then forwards and returns) or a fatal error occurs.
type Stage interface {
	Name() string
	AssignTask(t task.Task)
	SetInput(pull func(ctx context.Context) (Item, bool))
	SetOutput(push func(ctx context.Context, it Item))
	Run(ctx context.Context) error
}

// Edge is a bounded single-producer/single-consumer channel between
// two stages. Capacity equals the configured input limit: a full edge
// blocks its producer, which is exactly the backpressure spec.md §4.1
// requires.
type Edge struct {
	ch chan Item
}

// NewEdge creates an edge with the given capacity.
func NewEdge(capacity int) *Edge {
	if capacity < 1 {
		capacity = 1
	}
	return &Edge{ch: make(chan Item, capacity)}
}

// Push sends an item downstream, blocking if the edge is full.
func (e *Edge) Push(ctx context.Context, it Item) {
	select {
	case e.ch <- it:
	case <-ctx.Done():
	}
}

// Pull receives the next item, blocking if the edge is empty. ok is
// false only if ctx was cancelled before an item arrived.
func (e *Edge) Pull(ctx context.Context) (Item, bool) {
	select {
	case it := <-e.ch:
		return it, true
	case <-ctx.Done():
		return Item{}, false
	}
}

// Pipeline is a linear chain of stages connected by Edges.
type Pipeline struct {
	stages []Stage
	edges  []*Edge // len(stages)-1
}

// InputLimit is the default edge capacity: small, to bound memory, per
// spec.md §4.1.
const InputLimit = 1

// New wires stages into a linear chain, one edge per adjacent pair,
// each sized to InputLimit.
func New(stages ...Stage) *Pipeline {
	return NewWithLimit(InputLimit, stages...)
}

// NewWithLimit is New with an explicit edge capacity.
func NewWithLimit(limit int, stages ...Stage) *Pipeline {
	p := &Pipeline{stages: stages}
	for i := 0; i < len(stages)-1; i++ {
		edge := NewEdge(limit)
		p.edges = append(p.edges, edge)
		stages[i].SetOutput(edge.Push)
		stages[i+1].SetInput(edge.Pull)
	}
	return p
}

// Run starts every stage as an independent goroutine and waits for all
// of them to finish. The first stage error cancels ctx, which poisons
// every other stage's blocking channel operations so the whole graph
// drains instead of deadlocking, per spec.md §5.
func (p *Pipeline) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, s := range p.stages {
		stage := s
		g.Go(func() error {
			if err := stage.Run(ctx); err != nil {
				log.Stage(stage.Name(), -1).WithError(err).Error("stage failed")
				return err
			}
			return nil
		})
	}
	return g.Wait()
}
