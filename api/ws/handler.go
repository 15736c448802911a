// Package ws serves live vehicle notifications over WebSocket.
package ws

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/driveinsight/fleet/core/broadcast"
	"github.com/driveinsight/fleet/core/logger"
)

const maxMessageSize = 512

// Options tunes each connection.
type Options struct {
	WriteTimeout time.Duration
	PingInterval time.Duration
	QueueSize    int
	// AllowedOrigins lists accepted Origin headers; "*" accepts any. Empty
	// keeps the same-origin check.
	AllowedOrigins []string
}

func (o *Options) setDefaults() {
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
	if o.PingInterval <= 0 {
		o.PingInterval = 30 * time.Second
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 32
	}
}

// Registry is the part of broadcast.Hub the handler uses.
type Registry interface {
	Register(s broadcast.Subscriber) error
	Unregister(s broadcast.Subscriber)
}

type Handler struct {
	reg      Registry
	opts     Options
	log      logger.Logger
	upgrader websocket.Upgrader
}

func NewHandler(reg Registry, opts Options, log logger.Logger) *Handler {
	opts.setDefaults()
	h := &Handler{reg: reg, opts: opts, log: logger.OrNop(log)}
	h.upgrader = websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024}
	if len(opts.AllowedOrigins) > 0 {
		allowed := make(map[string]bool, len(opts.AllowedOrigins))
		for _, o := range opts.AllowedOrigins {
			allowed[o] = true
		}
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			return allowed["*"] || allowed[r.Header.Get("Origin")]
		}
	}
	return h
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.Handle("GET /ws", h)
}

// ServeHTTP upgrades the request and blocks until the client goes away.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnf("ws upgrade error: %v", err)
		return
	}
	sub := newSubscriber("ws-"+uuid.NewString(), conn, h.opts, h.log)
	go sub.writePump()
	if err := h.reg.Register(sub); err != nil {
		h.log.Warnf("ws register %s: %v", sub.id, err)
		_ = sub.Close()
		return
	}
	h.log.Infof("ws client %s connected from %s", sub.id, r.RemoteAddr)

	sub.readPump()

	h.reg.Unregister(sub)
	_ = sub.Close()
	h.log.Infof("ws client %s disconnected", sub.id)
}
