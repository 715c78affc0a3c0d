// Package client is the facade a front end uses to drive a session host.
// It keeps a mirrored copy of the host state, replays it to listeners on
// (re)connect and guards every command with the connection state.
package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-offline-player/internal/domain/player"
	"github.com/edumarques81/stellar-offline-player/internal/domain/playlist"
	"github.com/edumarques81/stellar-offline-player/internal/domain/session"
)

// ErrNotConnected is returned when a command is dropped because the client is
// disconnected and auto-connect is off.
var ErrNotConnected = errors.New("client not connected")

// ConnectTimeout bounds connections started by auto-connect.
const ConnectTimeout = 10 * time.Second

// SendTimeout bounds a single command send.
const SendTimeout = 5 * time.Second

// ConnectState is the connection state machine.
type ConnectState int

// Connection states
const (
	Disconnected ConnectState = iota
	Connecting
	Connected
)

func (s ConnectState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Dialer opens a channel to a host.
type Dialer func(ctx context.Context) (session.Channel, error)

// Option configures a Client.
type Option func(*Client)

// WithClock overrides the clock used to extrapolate progress.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithAutoConnect sets the initial auto-connect flag.
func WithAutoConnect(auto bool) Option {
	return func(c *Client) { c.autoConnect = auto }
}

// Client mirrors one player session.
type Client struct {
	dial  Dialer
	token string
	now   func() time.Time
	bus   *player.Bus

	mu          sync.Mutex
	state       ConnectState
	autoConnect bool
	ch          session.Channel
	ready       chan struct{}
	pending     *session.Command
	mirror      player.State
	playlist    playlist.Playlist

	listenersMu sync.Mutex
	nextID      int
	listeners   map[int]func(bool)
}

// New creates a disconnected client.
func New(dial Dialer, opts ...Option) *Client {
	c := &Client{
		dial:      dial,
		token:     uuid.NewString(),
		now:       time.Now,
		bus:       player.NewBus(),
		mirror:    player.NewState(),
		playlist:  playlist.Empty(),
		listeners: make(map[int]func(bool)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token identifies this client in sync requests.
func (c *Client) Token() string {
	return c.token
}

// ConnectState returns the current connection state.
func (c *Client) ConnectState() ConnectState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsConnected reports whether the client is connected and synced.
func (c *Client) IsConnected() bool {
	return c.ConnectState() == Connected
}

// SetAutoConnect controls whether commands issued while disconnected start
// a connection.
func (c *Client) SetAutoConnect(auto bool) {
	c.mu.Lock()
	c.autoConnect = auto
	c.mu.Unlock()
}

// IsAutoConnect reports the auto-connect flag.
func (c *Client) IsAutoConnect() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.autoConnect
}

// Connect dials the host, requests a sync and waits for the matching reply.
// Calling Connect while a connection is in progress waits for it.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case Connected:
		c.mu.Unlock()
		return nil
	case Connecting:
		ready := c.ready
		c.mu.Unlock()
		return c.wait(ctx, ready)
	}
	c.state = Connecting
	ready := make(chan struct{})
	c.ready = ready
	c.mu.Unlock()

	log.Debug().Str("token", c.token).Msg("Connecting to player")
	ch, err := c.dial(ctx)
	if err != nil {
		c.abort(ready)
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.mu.Lock()
	if c.ready != ready {
		// Disconnected while dialing.
		c.mu.Unlock()
		_ = ch.Close()
		return ErrNotConnected
	}
	c.ch = ch
	c.mu.Unlock()

	go c.readLoop(ch)

	if err := ch.Send(ctx, session.NewCommand(session.ActionSync, session.ArgToken, c.token)); err != nil {
		c.drop(ch)
		return fmt.Errorf("failed to sync: %w", err)
	}
	return c.wait(ctx, ready)
}

func (c *Client) wait(ctx context.Context, ready chan struct{}) error {
	if ready == nil {
		return ErrNotConnected
	}
	select {
	case <-ready:
		if !c.IsConnected() {
			return ErrNotConnected
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// abort ends a connection attempt that never got a channel.
func (c *Client) abort(ready chan struct{}) {
	c.mu.Lock()
	if c.ready != ready {
		c.mu.Unlock()
		return
	}
	c.state = Disconnected
	c.ready = nil
	c.pending = nil
	c.mu.Unlock()

	close(ready)
	c.notifyConnectState(false)
}

// Disconnect closes the channel. Pending commands are discarded.
func (c *Client) Disconnect() {
	c.mu.Lock()
	ch := c.ch
	was := c.state
	ready := c.ready
	c.ch = nil
	c.ready = nil
	c.pending = nil
	c.state = Disconnected
	c.mu.Unlock()

	if ch != nil {
		_ = ch.Close()
	}
	if ready != nil {
		close(ready)
	}
	if was != Disconnected {
		log.Debug().Str("token", c.token).Msg("Disconnected from player")
		c.notifyConnectState(false)
	}
}

// drop tears down ch if it is still the active channel.
func (c *Client) drop(ch session.Channel) {
	c.mu.Lock()
	if c.ch != ch {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.Disconnect()
}

func (c *Client) readLoop(ch session.Channel) {
	for msg := range ch.Messages() {
		c.handle(ch, msg)
	}
	c.drop(ch)
}

func (c *Client) handle(ch session.Channel, msg session.Message) {
	if msg.Event == session.EventSync {
		c.onSync(ch, msg)
		return
	}

	ev, err := session.DecodeEvent(msg)
	if err != nil {
		log.Warn().Err(err).Str("event", msg.Event).Msg("Ignoring undecodable message")
		return
	}

	c.mu.Lock()
	if c.ch != ch || c.state != Connected {
		c.mu.Unlock()
		return
	}
	c.mirror.Apply(ev)
	if pc, ok := ev.(player.PlaylistChanged); ok {
		c.playlist = pc.Playlist
	}
	c.mu.Unlock()

	c.bus.Publish(ev)
}

func (c *Client) onSync(ch session.Channel, msg session.Message) {
	token, s, p, err := session.DecodeSync(msg)
	if err != nil {
		log.Warn().Err(err).Msg("Ignoring malformed sync")
		return
	}
	if token != c.token {
		return
	}

	c.mu.Lock()
	if c.ch != ch {
		c.mu.Unlock()
		return
	}
	c.mirror = s
	c.playlist = p
	c.state = Connected
	ready := c.ready
	c.ready = nil
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	log.Debug().Str("token", c.token).Str("status", s.Playback.String()).Msg("Player synced")
	c.notifyConnectState(true)
	c.replay(c.bus.Publish, nil)
	if ready != nil {
		close(ready)
	}

	if pending != nil {
		c.sendOn(ch, *pending)
	}
}

// OnConnectStateChange registers fn and calls it at once with the current
// connection state. The returned function removes it.
func (c *Client) OnConnectStateChange(fn func(connected bool)) func() {
	c.listenersMu.Lock()
	c.nextID++
	id := c.nextID
	c.listeners[id] = fn
	c.listenersMu.Unlock()

	fn(c.IsConnected())

	return func() {
		c.listenersMu.Lock()
		delete(c.listeners, id)
		c.listenersMu.Unlock()
	}
}

func (c *Client) notifyConnectState(connected bool) {
	c.listenersMu.Lock()
	fns := make([]func(bool), 0, len(c.listeners))
	for id := 1; id <= c.nextID; id++ {
		if fn, ok := c.listeners[id]; ok {
			fns = append(fns, fn)
		}
	}
	c.listenersMu.Unlock()

	for _, fn := range fns {
		fn(connected)
	}
}

// Subscribe registers fn for the given kinds, or every kind when none are
// given. When connected, fn immediately receives the current state of its
// categories.
func (c *Client) Subscribe(fn player.Listener, kinds ...player.Kind) func() {
	cancel := c.bus.Subscribe(fn, kinds...)
	if c.IsConnected() {
		c.replay(fn, kinds)
	}
	return cancel
}

// send runs cmd now when connected. Otherwise it is parked in the pending
// slot and a connection is started, or dropped when auto-connect is off.
func (c *Client) send(cmd session.Command) error {
	c.mu.Lock()
	switch {
	case c.state == Connected:
		ch := c.ch
		c.mu.Unlock()
		return c.sendOn(ch, cmd)
	case !c.autoConnect:
		c.mu.Unlock()
		log.Debug().Str("action", cmd.Action).Msg("Dropping command while disconnected")
		return ErrNotConnected
	}
	c.pending = &cmd
	start := c.state == Disconnected
	c.mu.Unlock()

	if start {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), ConnectTimeout)
			defer cancel()
			if err := c.Connect(ctx); err != nil {
				log.Warn().Err(err).Msg("Auto-connect failed")
			}
		}()
	}
	return nil
}

// sendIfConnected drops cmd silently when not connected.
func (c *Client) sendIfConnected(cmd session.Command) error {
	c.mu.Lock()
	if c.state != Connected {
		c.mu.Unlock()
		return nil
	}
	ch := c.ch
	c.mu.Unlock()
	return c.sendOn(ch, cmd)
}

func (c *Client) sendOn(ch session.Channel, cmd session.Command) error {
	ctx, cancel := context.WithTimeout(context.Background(), SendTimeout)
	defer cancel()
	if err := ch.Send(ctx, cmd); err != nil {
		log.Debug().Err(err).Str("action", cmd.Action).Msg("Command failed")
		return err
	}
	return nil
}
