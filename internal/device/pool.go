package device

import (
	"sync"

	"github.com/jgillich/go-opencl/cl"

	"github.com/j-stephan/ddafa/internal/ddferr"
)

// Handle is an owning handle into a Pool allocation. Dropping it (via
// Release) returns the buffer to the pool rather than freeing it,
// matching the prototype's smart-pointer-backed pool allocator.
type Handle struct {
	pool   *Pool
	Mem    *cl.MemObject
	Width  int
	Height int
	Pitch  int // row pitch in elements

	released bool
}

// Release returns the handle's backing buffer to its pool, or — for a
// handle allocated outside any pool, such as a task-scoped subvolume —
// releases the device memory directly. Calling Release twice is a
// no-op.
func (h *Handle) Release() {
	if h == nil || h.released {
		return
	}
	h.released = true
	if h.pool != nil {
		h.pool.put(h)
		return
	}
	if h.Mem != nil {
		h.Mem.Release()
	}
}

// Pool is a per-device, per-element-type pool of pitched 2-D
// allocations. It hands out owning Handles that return to the pool on
// Release instead of freeing the underlying cl.MemObject, grounded on
// the teacher's payloadPool sync.Pool but generalized to block once
// Limit live buffers are outstanding, per spec.md §4.2.
type Pool struct {
	accel    *Accelerator
	elemSize int
	limit    int

	// allocFn creates the backing buffer for a w x h allocation. It is
	// the real OpenCL path by default; tests in this package substitute
	// an allocator that creates no buffer at all so the pool's
	// bookkeeping (reuse, blocking at the limit) is exercised without a
	// physical accelerator.
	allocFn func(w, h int) (*cl.MemObject, error)

	mu   sync.Mutex
	cond *sync.Cond
	live int
	free []*Handle // buffers currently checked back in, keyed loosely by size
}

// NewPool builds a pool bound to one accelerator, capped at limit
// concurrently live allocations.
func NewPool(accel *Accelerator, elemSize, limit int) *Pool {
	p := &Pool{accel: accel, elemSize: elemSize, limit: limit}
	p.cond = sync.NewCond(&p.mu)
	p.allocFn = func(w, h int) (*cl.MemObject, error) {
		return accel.Context.CreateEmptyBuffer(cl.MemReadWrite, elemSize*w*h)
	}
	return p
}

// AllocateSmart returns a handle to a w x h buffer. A free buffer of
// matching size is reused if one is available; otherwise a new one is
// lazily created, unless the pool is already at its limit, in which
// case the call blocks until a handle is released.
func (p *Pool) AllocateSmart(w, h int) (*Handle, error) {
	p.mu.Lock()
	for {
		// Re-issuance does not re-allocate if a compatible buffer is free.
		for i, h2 := range p.free {
			if h2.Width == w && h2.Height == h {
				p.free = append(p.free[:i], p.free[i+1:]...)
				h2.released = false
				p.mu.Unlock()
				return h2, nil
			}
		}
		if p.live < p.limit {
			p.live++
			p.mu.Unlock()
			return p.allocate(w, h)
		}
		// Pool is saturated and nothing free-and-compatible exists: block.
		p.cond.Wait()
	}
}

func (p *Pool) allocate(w, h int) (*Handle, error) {
	pitch := w // single-precision, unpadded pitch; device backends that
	// require alignment can round this up without changing the contract.
	mem, err := p.allocFn(w, h)
	if err != nil {
		p.mu.Lock()
		p.live--
		p.mu.Unlock()
		device := -1
		if p.accel != nil {
			device = p.accel.ID
		}
		return nil, ddferr.Allocation(device, err)
	}
	return &Handle{pool: p, Mem: mem, Width: w, Height: h, Pitch: pitch}, nil
}

func (p *Pool) put(h *Handle) {
	p.mu.Lock()
	p.free = append(p.free, h)
	p.mu.Unlock()
	p.cond.Signal()
}

// Destroy releases every buffer currently checked back into the pool;
// buffers still held by outstanding handles are not tracked and are not
// released by it. The caller must ensure the pool's device context is
// current. Destroy never panics and reports nothing: MemObject.Release
// returns no error.
func (p *Pool) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, h := range p.free {
		if h.Mem != nil {
			h.Mem.Release()
		}
	}
	p.free = nil
	p.live = 0
}
