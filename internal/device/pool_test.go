package device

import (
	"sync"
	"testing"
	"time"

	"github.com/jgillich/go-opencl/cl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestPool builds a pool whose allocator never touches a real
// accelerator, so the pool's reuse/blocking bookkeeping can be
// exercised without OpenCL hardware present.
func newTestPool(limit int) *Pool {
	p := &Pool{limit: limit}
	p.cond = sync.NewCond(&p.mu)
	p.allocFn = func(w, h int) (*cl.MemObject, error) {
		return nil, nil
	}
	return p
}

func TestPoolReusesCompatibleBuffer(t *testing.T) {
	p := newTestPool(2)

	h1, err := p.AllocateSmart(64, 64)
	require.NoError(t, err)
	h1.Release()

	h2, err := p.AllocateSmart(64, 64)
	require.NoError(t, err)

	assert.Same(t, h1, h2, "a released buffer of matching size should be reissued, not reallocated")
	assert.Equal(t, 1, p.live)
}

func TestPoolBlocksAtLimitUntilRelease(t *testing.T) {
	p := newTestPool(1)

	h1, err := p.AllocateSmart(32, 32)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		h2, err := p.AllocateSmart(32, 32)
		require.NoError(t, err)
		assert.Same(t, h1, h2)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("AllocateSmart returned before the only live buffer was released")
	case <-time.After(50 * time.Millisecond):
	}

	h1.Release()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("AllocateSmart did not unblock after Release")
	}
}

func TestHandleReleaseIsIdempotent(t *testing.T) {
	p := newTestPool(1)
	h, err := p.AllocateSmart(16, 16)
	require.NoError(t, err)

	h.Release()
	h.Release() // must not double-free or panic

	assert.Len(t, p.free, 1)
}
