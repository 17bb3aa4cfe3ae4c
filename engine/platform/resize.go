package platform

import "sync"

/**
 * @brief Single-slot inbox for framebuffer resizes. Later posts overwrite
 * earlier ones; Take consumes the pending flag.
 */
type ResizeInbox struct {
	mu      sync.Mutex
	pending bool
	width   int
	height  int
}

func (r *ResizeInbox) Post(width, height int) {
	r.mu.Lock()
	r.pending = true
	r.width, r.height = width, height
	r.mu.Unlock()
}

// Take reports whether a resize arrived since the last call.
func (r *ResizeInbox) Take() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	pending := r.pending
	r.pending = false
	return pending
}

// Last returns the most recently posted size.
func (r *ResizeInbox) Last() (width, height int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width, r.height
}
