package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/edumarques81/stellar-offline-player/internal/domain/session"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 << 20
	sendBuffer     = 256
	commandTimeout = 10 * time.Second
)

// Dispatcher runs commands received from peers.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd session.Command) error
}

// Server upgrades HTTP requests to peers of a hub.
type Server struct {
	hub      *Hub
	d        Dispatcher
	upgrader websocket.Upgrader
}

// NewServer creates a handler for hub. With no allowed origins every origin
// is accepted.
func NewServer(hub *Hub, d Dispatcher, allowedOrigins ...string) *Server {
	s := &Server{hub: hub, d: d}
	s.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			return lo.Contains(allowedOrigins, r.Header.Get("Origin"))
		},
	}
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	p := &peer{hub: s.hub, d: s.d, conn: conn, send: make(chan []byte, sendBuffer)}
	if !s.hub.join(p) {
		_ = conn.WriteControl(websocket.CloseMessage, closeMessage, time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	log.Info().Str("remote", conn.RemoteAddr().String()).Msg("WebSocket client connected")

	go p.writePump()
	go p.readPump()
}

type peer struct {
	hub  *Hub
	d    Dispatcher
	conn *websocket.Conn
	send chan []byte
}

func (p *peer) readPump() {
	defer func() {
		p.hub.leave(p)
		_ = p.conn.Close()
		log.Info().Str("remote", p.conn.RemoteAddr().String()).Msg("WebSocket client disconnected")
	}()

	p.conn.SetReadLimit(maxMessageSize)
	_ = p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("WebSocket read failed")
			}
			return
		}

		var cmd session.Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			log.Warn().Err(err).Msg("Ignoring malformed command")
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		if err := p.d.Dispatch(ctx, cmd); err != nil {
			log.Debug().Err(err).Str("action", cmd.Action).Msg("Command rejected")
		}
		cancel()
	}
}

func (p *peer) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = p.conn.Close()
	}()

	for {
		select {
		case data, ok := <-p.send:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = p.conn.WriteMessage(websocket.CloseMessage, closeMessage)
				return
			}
			if err := p.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
