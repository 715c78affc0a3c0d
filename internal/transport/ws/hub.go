// Package ws serves a session host over WebSocket and dials it from the
// client side. Commands and messages travel as JSON text frames.
package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-offline-player/internal/domain/session"
)

// BroadcastBuffer bounds messages waiting for the hub loop.
const BroadcastBuffer = 1024

// Hub owns the connected peers and fans host messages out to them. It is
// subscribed to the host as a single sink.
type Hub struct {
	peers      map[*peer]bool
	broadcast  chan []byte
	register   chan *peer
	unregister chan *peer
	closed     chan struct{}
	closeOnce  sync.Once
	stopped    chan struct{}
	count      chan chan int
}

// NewHub creates a hub. Run must be started before peers connect.
func NewHub() *Hub {
	return &Hub{
		peers:      make(map[*peer]bool),
		broadcast:  make(chan []byte, BroadcastBuffer),
		register:   make(chan *peer),
		unregister: make(chan *peer),
		closed:     make(chan struct{}),
		stopped:    make(chan struct{}),
		count:      make(chan chan int),
	}
}

// Run services the hub until ctx is done or the host closes it.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)
	for {
		select {
		case <-ctx.Done():
			h.disconnectAll()
			return

		case <-h.closed:
			h.flush()
			h.disconnectAll()
			return

		case p := <-h.register:
			h.peers[p] = true
			log.Debug().Str("remote", p.conn.RemoteAddr().String()).Int("peers", len(h.peers)).Msg("WebSocket peer registered")

		case p := <-h.unregister:
			h.remove(p)

		case data := <-h.broadcast:
			h.deliver(data)

		case reply := <-h.count:
			reply <- len(h.peers)
		}
	}
}

func (h *Hub) deliver(data []byte) {
	for p := range h.peers {
		select {
		case p.send <- data:
		default:
			log.Warn().Str("remote", p.conn.RemoteAddr().String()).Msg("Dropping slow WebSocket peer")
			h.remove(p)
		}
	}
}

func (h *Hub) flush() {
	for {
		select {
		case data := <-h.broadcast:
			h.deliver(data)
		default:
			return
		}
	}
}

func (h *Hub) remove(p *peer) {
	if _, ok := h.peers[p]; ok {
		delete(h.peers, p)
		close(p.send)
	}
}

func (h *Hub) disconnectAll() {
	for p := range h.peers {
		h.remove(p)
	}
}

// Peers returns the number of connected peers.
func (h *Hub) Peers() int {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
		return <-reply
	case <-h.stopped:
		return 0
	}
}

// Send implements session.Sink.
func (h *Hub) Send(msg session.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("event", msg.Event).Msg("Failed to encode message")
		return
	}
	select {
	case <-h.closed:
	case h.broadcast <- data:
	default:
		log.Warn().Str("event", msg.Event).Msg("Hub broadcast buffer full, dropping message")
	}
}

// Close implements session.Sink. Queued messages are delivered before the
// peers are disconnected.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.closed) })
}

// join hands p to the hub loop. It fails when the hub has stopped.
func (h *Hub) join(p *peer) bool {
	select {
	case h.register <- p:
		return true
	case <-h.stopped:
		return false
	}
}

func (h *Hub) leave(p *peer) {
	select {
	case h.unregister <- p:
	case <-h.stopped:
	}
}

// closeMessage is sent to peers when the hub goes away.
var closeMessage = websocket.FormatCloseMessage(websocket.CloseGoingAway, "player shut down")
