package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-offline-player/internal/client"
	"github.com/edumarques81/stellar-offline-player/internal/domain/session"
	"github.com/edumarques81/stellar-offline-player/internal/version"
)

// Dial connects to a host served at url (ws:// or wss://).
func Dial(ctx context.Context, url string, header http.Header) (session.Channel, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}
	conn.SetReadLimit(maxMessageSize)

	c := &channel{
		conn: conn,
		out:  make(chan session.Message, sendBuffer),
		done: make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Dialer returns a client.Dialer for url.
func Dialer(url string) client.Dialer {
	return func(ctx context.Context) (session.Channel, error) {
		return Dial(ctx, url, http.Header{"User-Agent": {version.UserAgent()}})
	}
}

type channel struct {
	conn *websocket.Conn
	out  chan session.Message

	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

func (c *channel) readLoop() {
	defer close(c.out)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warn().Err(err).Msg("WebSocket connection lost")
				}
			}
			return
		}

		var msg session.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Warn().Err(err).Msg("Ignoring malformed message")
			continue
		}
		select {
		case c.out <- msg:
		case <-c.done:
			return
		}
	}
}

func (c *channel) Send(ctx context.Context, cmd session.Command) error {
	select {
	case <-c.done:
		return session.ErrChannelClosed
	default:
	}

	data, err := json.Marshal(cmd)
	if err != nil {
		return err
	}

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(deadline)
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *channel) Messages() <-chan session.Message {
	return c.out
}

func (c *channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}
