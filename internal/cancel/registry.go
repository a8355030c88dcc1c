// Package cancel tracks the active call per cancellation key.
//
// Acquiring a key that already has an active handle aborts the previous
// handle first, so only the newest call for a key can be cancelled.
package cancel

import (
	"context"
	"sync"
)

// Handle is the cancellation token of one call.
type Handle struct {
	key      string
	ctx      context.Context
	cancel   context.CancelFunc
	registry *Registry

	mu      sync.Mutex
	aborted bool
}

// Key returns the key the handle is registered under.
func (h *Handle) Key() string {
	return h.key
}

// Context returns a context that ends when the handle is aborted or released.
func (h *Handle) Context() context.Context {
	return h.ctx
}

// Aborted reports whether the handle was cancelled.
func (h *Handle) Aborted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.aborted
}

// Commit runs fn unless the handle was aborted, and reports whether it ran.
// Abort waits for a running fn, so nothing fn does can follow a cancel.
func (h *Handle) Commit(fn func()) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.aborted {
		return false
	}

	fn()

	return true
}

// Release unregisters the handle if it is still the active one for its key
// and frees its context. It is safe to call more than once.
func (h *Handle) Release() {
	h.registry.release(h)
	h.cancel()
}

func (h *Handle) abort() bool {
	h.mu.Lock()
	if h.aborted {
		h.mu.Unlock()

		return false
	}

	h.aborted = true
	h.mu.Unlock()

	h.cancel()

	return true
}

// Registry maps keys to their active handle.
type Registry struct {
	mu      sync.Mutex
	handles map[string]*Handle
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handles: make(map[string]*Handle)}
}

// Acquire registers a new handle for key derived from ctx, aborting the
// handle it replaces.
func (r *Registry) Acquire(ctx context.Context, key string) *Handle {
	hctx, cancel := context.WithCancel(ctx)

	handle := &Handle{
		key:      key,
		ctx:      hctx,
		cancel:   cancel,
		registry: r,
	}

	r.mu.Lock()
	previous := r.handles[key]
	r.handles[key] = handle
	r.mu.Unlock()

	if previous != nil {
		previous.abort()
	}

	return handle
}

// Cancel aborts and removes the active handle for key. It reports whether
// there was one.
func (r *Registry) Cancel(key string) bool {
	r.mu.Lock()
	handle, ok := r.handles[key]
	delete(r.handles, key)
	r.mu.Unlock()

	if !ok {
		return false
	}

	return handle.abort()
}

// CancelAll aborts every active handle and returns how many there were.
func (r *Registry) CancelAll() int {
	r.mu.Lock()
	handles := r.handles
	r.handles = make(map[string]*Handle)
	r.mu.Unlock()

	cancelled := 0

	for _, handle := range handles {
		if handle.abort() {
			cancelled++
		}
	}

	return cancelled
}

// Active returns the number of registered handles.
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.handles)
}

func (r *Registry) release(handle *Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.handles[handle.key] == handle {
		delete(r.handles, handle.key)
	}
}
