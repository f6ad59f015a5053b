package logserver

import (
	"bytes"
	"sync"
	"sync/atomic"
)

// DefaultHistoryLines is the number of log lines kept for late clients.
const DefaultHistoryLines = 1 << 20

const subscriberDepth = 256

// Hub is an io.Writer that keeps recent log lines and broadcasts each new
// line to followers. Followers that fall behind lose lines.
type Hub struct {
	mu          sync.Mutex
	history     []string
	historySize int
	partial     []byte
	subs        map[*Subscription]struct{}
}

// NewHub constructs a hub keeping at most historySize lines.
func NewHub(historySize int) *Hub {
	if historySize <= 0 {
		historySize = DefaultHistoryLines
	}
	return &Hub{
		historySize: historySize,
		subs:        make(map[*Subscription]struct{}),
	}
}

// Write records every complete line in p. A trailing fragment is held
// until its newline arrives.
func (h *Hub) Write(p []byte) (int, error) {
	h.mu.Lock()
	h.partial = append(h.partial, p...)
	var lines []string
	for {
		idx := bytes.IndexByte(h.partial, '\n')
		if idx < 0 {
			break
		}
		lines = append(lines, string(h.partial[:idx]))
		h.partial = h.partial[idx+1:]
	}
	if len(h.partial) == 0 {
		h.partial = nil
	}
	if len(lines) == 0 {
		h.mu.Unlock()
		return len(p), nil
	}
	h.history = append(h.history, lines...)
	if len(h.history) > h.historySize {
		h.history = h.history[len(h.history)-h.historySize:]
	}
	// Sends happen under the lock so Close cannot close a channel mid-send.
	for sub := range h.subs {
		for _, line := range lines {
			select {
			case sub.ch <- line:
			default:
				sub.dropped.Add(1)
			}
		}
	}
	h.mu.Unlock()
	return len(p), nil
}

// History returns a copy of the retained lines, oldest first.
func (h *Hub) History() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.history...)
}

// Subscribe registers a follower and returns it with the history that
// precedes its first line.
func (h *Hub) Subscribe() (*Subscription, []string) {
	sub := &Subscription{ch: make(chan string, subscriberDepth), hub: h}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[sub] = struct{}{}
	return sub, append([]string(nil), h.history...)
}

// Subscribers reports the number of followers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Subscription receives lines written after it was created.
type Subscription struct {
	ch      chan string
	hub     *Hub
	dropped atomic.Uint64
	once    sync.Once
}

// Lines returns the channel of new lines. It is closed by Close.
func (s *Subscription) Lines() <-chan string { return s.ch }

// TakeDropped returns and resets the number of lines lost since the last call.
func (s *Subscription) TakeDropped() uint64 { return s.dropped.Swap(0) }

// Close unregisters the subscription.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s)
		close(s.ch)
		s.hub.mu.Unlock()
	})
}
