package mqtt

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/driveinsight/fleet/core/broadcast"
	"github.com/driveinsight/fleet/core/logger"
	"github.com/driveinsight/fleet/core/model"
	"github.com/driveinsight/fleet/core/monitoring"
)

// Bridge forwards hub notifications to an MQTT broker. It is a
// broadcast.Subscriber; publishing happens on a worker goroutine so Send
// never waits on the network.
type Bridge struct {
	cli     Client
	prefix  string
	qos     byte
	retain  bool
	retries int
	backoff time.Duration
	log     logger.Logger

	queue chan model.Notification
	done  chan struct{}

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

// NewBridge connects to the broker described by cfg and starts the
// publishing worker.
func NewBridge(cfg Config, log logger.Logger) (*Bridge, error) {
	cfg.SetDefaults()
	cli, err := Dial(cfg, "bridge", log, nil)
	if err != nil {
		return nil, err
	}
	return newBridge(cli, cfg, log), nil
}

func newBridge(cli Client, cfg Config, log logger.Logger) *Bridge {
	cfg.SetDefaults()
	b := &Bridge{
		cli:     cli,
		prefix:  cfg.TopicPrefix,
		qos:     cfg.QoS,
		retain:  cfg.Retain,
		retries: cfg.MaxRetries,
		backoff: time.Duration(cfg.BackoffMS) * time.Millisecond,
		log:     logger.OrNop(log),
		queue:   make(chan model.Notification, cfg.QueueSize),
		done:    make(chan struct{}),
	}
	go b.loop()
	return b
}

func (b *Bridge) ID() string { return "mqtt-bridge" }

// Send queues n for publishing. When the queue is full the notification is
// dropped and the bridge stays connected; a broker outage must not cost
// the bridge its subscription.
func (b *Bridge) Send(n model.Notification) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return broadcast.ErrClosed
	}
	select {
	case b.queue <- n:
	default:
		b.dropped.Add(1)
		b.log.Warnf("bridge queue full, dropping %s for %s", n.Type, n.VehicleID)
	}
	return nil
}

// Close stops accepting notifications, flushes the queue and disconnects.
func (b *Bridge) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.queue)
	b.mu.Unlock()
	<-b.done
	if b.cli.IsConnected() {
		b.cli.Disconnect(250)
	}
	return nil
}

// Dropped reports how many notifications were discarded, either because
// the queue was full or because the broker refused them after all retries.
func (b *Bridge) Dropped() int { return int(b.dropped.Load()) }

func (b *Bridge) loop() {
	defer close(b.done)
	for n := range b.queue {
		if err := b.publish(n); err != nil {
			b.dropped.Add(1)
			b.log.Errorf("bridge publish %s: %v", n.VehicleID, err)
			monitoring.CaptureException(err, map[string]string{"module": "mqtt", "vehicle_id": n.VehicleID})
		}
	}
}

func (b *Bridge) publish(n model.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	topic := UpdateTopic(b.prefix, n.VehicleID)
	var publishErr error
	for attempt := 0; attempt <= b.retries; attempt++ {
		token := b.cli.Publish(topic, b.qos, b.retain, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			b.log.Debugf("published %s to %s", n.Type, topic)
			return nil
		}
		b.log.Warnf("publish attempt %d to %s failed: %v", attempt+1, topic, publishErr)
		if attempt < b.retries {
			time.Sleep(b.backoff * time.Duration(1<<attempt))
		}
	}
	return fmt.Errorf("publish %s after %d attempts: %w", topic, b.retries+1, publishErr)
}
