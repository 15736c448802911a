package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/driveinsight/fleet/core/broadcast"
	"github.com/driveinsight/fleet/core/logger"
	"github.com/driveinsight/fleet/core/model"
)

// subscriber adapts one WebSocket connection to broadcast.Subscriber. Send
// only enqueues; a single writer goroutine owns every write to the
// connection so frames leave in FIFO order.
type subscriber struct {
	id   string
	conn *websocket.Conn
	opts Options
	log  logger.Logger

	send chan model.Notification
	done chan struct{}

	mu     sync.RWMutex
	closed bool
}

func newSubscriber(id string, conn *websocket.Conn, opts Options, log logger.Logger) *subscriber {
	return &subscriber{
		id:   id,
		conn: conn,
		opts: opts,
		log:  logger.OrNop(log),
		send: make(chan model.Notification, opts.QueueSize),
		done: make(chan struct{}),
	}
}

func (s *subscriber) ID() string { return s.id }

func (s *subscriber) Send(n model.Notification) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return broadcast.ErrClosed
	}
	select {
	case s.send <- n:
		return nil
	default:
		return broadcast.ErrSubscriberFull
	}
}

// Close stops the writer, which sends a close frame and closes the
// connection. Safe to call more than once.
func (s *subscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.done)
	}
	return nil
}

func (s *subscriber) writePump() {
	ping := time.NewTicker(s.opts.PingInterval)
	defer func() {
		ping.Stop()
		_ = s.conn.Close()
	}()
	for {
		select {
		case n := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
			if err := s.conn.WriteJSON(n); err != nil {
				s.log.Warnf("ws %s write: %v", s.id, err)
				return
			}
		case <-ping.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.log.Warnf("ws %s ping: %v", s.id, err)
				return
			}
		case <-s.done:
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "")
			_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(s.opts.WriteTimeout))
			return
		}
	}
}

// readPump discards client frames and returns once the connection fails or
// the peer stops answering pings.
func (s *subscriber) readPump() {
	pongWait := 2 * s.opts.PingInterval
	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warnf("ws %s read: %v", s.id, err)
			}
			return
		}
	}
}
