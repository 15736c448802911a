package broadcast

import (
	"sync"

	"github.com/driveinsight/fleet/core/model"
)

// ChanSubscriber is an in-process subscriber backed by a buffered channel.
type ChanSubscriber struct {
	id string
	ch chan model.Notification

	mu     sync.RWMutex
	closed bool
}

// NewChanSubscriber creates a subscriber buffering up to size notifications.
func NewChanSubscriber(id string, size int) *ChanSubscriber {
	if size <= 0 {
		size = 8
	}
	return &ChanSubscriber{id: id, ch: make(chan model.Notification, size)}
}

func (c *ChanSubscriber) ID() string { return c.id }

// C returns the receive side. It is closed by Close.
func (c *ChanSubscriber) C() <-chan model.Notification { return c.ch }

// Send enqueues n without blocking.
func (c *ChanSubscriber) Send(n model.Notification) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.ch <- n:
		return nil
	default:
		return ErrSubscriberFull
	}
}

// Close closes the channel. It is safe to call more than once.
func (c *ChanSubscriber) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.ch)
	}
	return nil
}
