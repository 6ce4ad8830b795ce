package cache

import "sync"

// subscriberHub fans out change notifications to watchers. Channels have a
// buffer of one and notifications coalesce: a slow watcher sees "something
// changed" at least once, never a backlog.
type subscriberHub struct {
	mu     sync.Mutex
	subs   map[chan struct{}]struct{}
	closed bool
}

func (h *subscriberHub) add() chan struct{} {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan struct{}, 1)

	if h.closed {
		close(ch)
		return ch
	}

	if h.subs == nil {
		h.subs = make(map[chan struct{}]struct{})
	}

	h.subs[ch] = struct{}{}

	return ch
}

func (h *subscriberHub) remove(ch chan struct{}) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
}

func (h *subscriberHub) notify() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs {
		select {
		case ch <- struct{}{}:
		default: // already pending, coalesce
		}
	}
}

func (h *subscriberHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true

	for ch := range h.subs {
		close(ch)
	}

	h.subs = nil
}

// Subscribe returns a channel that receives a signal after every cache write.
// The channel closes when the store closes or cancel is called. Call cancel
// when done watching.
func (s *SQLiteStore) Subscribe() (ch <-chan struct{}, cancel func()) {
	c := s.hub.add()

	return c, func() { s.hub.remove(c) }
}
