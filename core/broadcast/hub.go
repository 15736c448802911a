package broadcast

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/driveinsight/fleet/core/logger"
	"github.com/driveinsight/fleet/core/metrics"
	"github.com/driveinsight/fleet/core/model"
)

var (
	// ErrClosed is returned when sending to a closed subscriber or
	// registering on a closed hub.
	ErrClosed = errors.New("broadcast: closed")
	// ErrSubscriberFull is returned when a subscriber cannot accept more
	// notifications without blocking.
	ErrSubscriberFull = errors.New("broadcast: subscriber queue full")
)

// Subscriber receives notifications. Send must not block for long; a
// non-nil error disconnects the subscriber.
type Subscriber interface {
	ID() string
	Send(n model.Notification) error
	Close() error
}

// Publisher delivers a notification to every connected subscriber.
type Publisher interface {
	Publish(ctx context.Context, n model.Notification)
}

// Hub tracks connected subscribers and fans notifications out to them.
type Hub struct {
	mu     sync.RWMutex
	subs   []Subscriber
	closed bool

	// pub serialises Publish so every subscriber sees notifications in
	// publish order.
	pub sync.Mutex

	sink metrics.MetricsSink
	log  logger.Logger
}

// NewHub returns an empty hub. Nil arguments fall back to no-op
// implementations.
func NewHub(log logger.Logger, sink metrics.MetricsSink) *Hub {
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Hub{log: logger.OrNop(log), sink: sink}
}

// Register adds s to the connected set. A subscriber already registered
// under the same ID is replaced and closed.
func (h *Hub) Register(s Subscriber) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = s.Close()
		return ErrClosed
	}
	var replaced Subscriber
	for i, cur := range h.subs {
		if cur.ID() == s.ID() {
			replaced = cur
			h.subs = append(h.subs[:i], h.subs[i+1:]...)
			break
		}
	}
	h.subs = append(h.subs, s)
	n := len(h.subs)
	h.mu.Unlock()

	if replaced != nil {
		_ = replaced.Close()
	}
	h.log.Debugf("subscriber %s registered (%d connected)", s.ID(), n)
	h.recordSubscribers(n)
	return nil
}

// Unregister removes s. It does not close s and is a no-op when s is not
// connected.
func (h *Hub) Unregister(s Subscriber) {
	if h.remove(s) {
		h.log.Debugf("subscriber %s unregistered", s.ID())
	}
}

func (h *Hub) remove(s Subscriber) bool {
	h.mu.Lock()
	removed := false
	for i, cur := range h.subs {
		if cur == s {
			h.subs = append(h.subs[:i], h.subs[i+1:]...)
			removed = true
			break
		}
	}
	n := len(h.subs)
	h.mu.Unlock()
	if removed {
		h.recordSubscribers(n)
	}
	return removed
}

// Publish sends n to every subscriber connected when the call starts.
// Subscribers whose Send fails are unregistered and closed. Publish never
// fails. The fan-out ignores ctx cancellation: Send never blocks, and a
// committed write is announced even when its caller has gone away.
func (h *Hub) Publish(_ context.Context, n model.Notification) {
	h.pub.Lock()
	defer h.pub.Unlock()

	snapshot := h.snapshot()
	ev := metrics.PublishEvent{Type: n.Type, Subscribers: len(snapshot), Time: time.Now()}
	for _, s := range snapshot {
		if err := s.Send(n); err != nil {
			ev.Dropped++
			h.log.Warnf("dropping subscriber %s: %v", s.ID(), err)
			if h.remove(s) {
				_ = s.Close()
			}
			continue
		}
		ev.Delivered++
	}
	if rec, ok := h.sink.(metrics.PublishRecorder); ok {
		if err := rec.RecordPublish(ev); err != nil {
			h.log.Errorf("publish metrics error: %v", err)
		}
	}
}

func (h *Hub) snapshot() []Subscriber {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return nil
	}
	return append([]Subscriber(nil), h.subs...)
}

// Len returns the number of connected subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close disconnects and closes every subscriber. Later registrations fail
// with ErrClosed.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	subs := h.subs
	h.subs = nil
	h.mu.Unlock()

	for _, s := range subs {
		_ = s.Close()
	}
	h.recordSubscribers(0)
}

func (h *Hub) recordSubscribers(n int) {
	if rec, ok := h.sink.(metrics.SubscriberRecorder); ok {
		if err := rec.RecordSubscribers(n); err != nil {
			h.log.Errorf("subscriber metrics error: %v", err)
		}
	}
}
