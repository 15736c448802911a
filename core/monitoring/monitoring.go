package monitoring

import (
	"fmt"
	"sync"
	"time"
)

// Monitor reports errors and panics to an external tracker.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	CapturePanic(v any, tags map[string]string)
	Flush(timeout time.Duration)
}

type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) CapturePanic(any, map[string]string)       {}
func (NopMonitor) Flush(time.Duration)                       {}

var (
	mu      sync.RWMutex
	current Monitor = NopMonitor{}
)

// Init sets the global monitor implementation. A nil monitor is ignored.
func Init(m Monitor) {
	if m == nil {
		return
	}
	mu.Lock()
	current = m
	mu.Unlock()
}

func get() Monitor {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// CaptureException records err with optional tags.
func CaptureException(err error, tags map[string]string) {
	if err == nil {
		return
	}
	get().CaptureException(err, tags)
}

// CapturePanic records a recovered panic value.
func CapturePanic(v any, tags map[string]string) {
	get().CapturePanic(v, tags)
}

// Guard runs fn and converts a panic into a reported error so long-running
// loops survive a single bad iteration.
func Guard(component string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			CapturePanic(r, map[string]string{"component": component})
			err = fmt.Errorf("%s: panic: %v", component, r)
		}
	}()
	fn()
	return nil
}

// Flush flushes buffered events.
func Flush(d time.Duration) {
	get().Flush(d)
}
