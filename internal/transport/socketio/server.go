// Package socketio provides the Socket.io server for web UI clients.
package socketio

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/spf13/afero"
	"github.com/zishang520/socket.io/servers/socket/v3"
	"github.com/zishang520/socket.io/v3/pkg/types"

	"github.com/edumarques81/stellar-offline-player/internal/audio"
	"github.com/edumarques81/stellar-offline-player/internal/domain/player"
	"github.com/edumarques81/stellar-offline-player/internal/domain/playlist"
	"github.com/edumarques81/stellar-offline-player/internal/domain/session"
	"github.com/edumarques81/stellar-offline-player/internal/domain/track"
	"github.com/edumarques81/stellar-offline-player/internal/infra/network"
)

// Defaults
const (
	DefaultMaxExternal    = 4
	DefaultDebounceWindow = 50 * time.Millisecond
	commandTimeout        = 10 * time.Second
)

// Host is the session the server exposes.
type Host interface {
	Dispatch(ctx context.Context, cmd session.Command) error
	State() player.State
	Playlist() playlist.Playlist
	Subscribe(sink session.Sink) func()
}

// Options configure a Server.
type Options struct {
	MaxExternal    int
	DebounceWindow time.Duration
	Clock          func() time.Time

	// PlayerID and Fs feed getSystemInfo. Network, when set, answers
	// getNetworkStatus.
	PlayerID string
	Fs       afero.Fs
	Network  func() network.Status
}

// Server handles Socket.io connections and events.
type Server struct {
	io        *socket.Server
	host      Host
	limiter   *ConnectionLimiter
	debouncer *BroadcastDebouncer
	now       func() time.Time
	cancel    func()
	system    SystemInfo
	network   func() network.Status

	mu      sync.RWMutex
	clients map[string]*socket.Socket

	stateMu   sync.Mutex
	lastState map[string]interface{}
}

// stateCompareKeys are the pushState fields that make a broadcast worth
// sending. seek is left out: the web UI extrapolates it.
var stateCompareKeys = []string{
	"status", "position", "progress", "progressUpdated", "playMode", "speed",
	"preparing", "prepared", "stalled", "bufferedProgress", "errorCode",
	"sleepTimer", "uri", "title", "artist", "album", "albumart", "duration",
}

// NewServer creates a Socket.io server bound to h.
func NewServer(h Host, o Options) (*Server, error) {
	opts := socket.DefaultServerOptions()
	opts.SetPingTimeout(20 * time.Second)
	opts.SetPingInterval(25 * time.Second)
	opts.SetCors(&types.Cors{
		Origin:      "*",
		Credentials: true,
	})

	if o.MaxExternal <= 0 {
		o.MaxExternal = DefaultMaxExternal
	}
	if o.DebounceWindow <= 0 {
		o.DebounceWindow = DefaultDebounceWindow
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}

	s := &Server{
		io:      socket.NewServer(nil, opts),
		host:    h,
		limiter: NewConnectionLimiter(o.MaxExternal),
		now:     o.Clock,
		system:  GetSystemInfo(o.Fs, o.PlayerID),
		network: o.Network,
		clients: make(map[string]*socket.Socket),
	}
	s.debouncer = NewBroadcastDebouncer(o.DebounceWindow, s.BroadcastState, s.BroadcastQueue)
	s.setupHandlers()
	s.cancel = h.Subscribe(sink{s})

	return s, nil
}

// setupHandlers registers all Socket.io event handlers.
func (s *Server) setupHandlers() {
	s.io.On("connection", func(clients ...any) {
		client := clients[0].(*socket.Socket)
		clientID := string(client.Id())
		remote := remoteIP(client.Handshake().Address)

		_, evicted := s.limiter.TryAdd(clientID, remote)
		log.Info().Str("id", clientID).Str("remote", remote).Msg("Client connected")

		s.mu.Lock()
		s.clients[clientID] = client
		old := s.clients[evicted]
		s.mu.Unlock()
		if old != nil {
			log.Info().Str("id", evicted).Msg("Evicting oldest external client")
			old.Emit("pushToastMessage", map[string]string{
				"type":    "warning",
				"title":   "Disconnected",
				"message": "Too many remote clients",
			})
			old.Disconnect(true)
		}

		// Send initial state after small delay
		go func() {
			time.Sleep(100 * time.Millisecond)
			s.pushState(client)
			s.pushQueue(client)
		}()

		client.On("disconnect", func(args ...any) {
			reason := ""
			if len(args) > 0 {
				if r, ok := args[0].(string); ok {
					reason = r
				}
			}
			log.Info().Str("id", clientID).Str("reason", reason).Msg("Client disconnected")

			s.limiter.Remove(clientID)
			s.mu.Lock()
			delete(s.clients, clientID)
			s.mu.Unlock()
		})

		client.On("getState", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("getState")
			s.pushState(client)
		})

		client.On("getQueue", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("getQueue")
			s.pushQueue(client)
		})

		client.On("getSystemInfo", func(args ...any) {
			client.Emit("pushSystemInfo", s.system)
		})

		client.On("getNetworkStatus", func(args ...any) {
			if s.network != nil {
				client.Emit("pushNetworkStatus", s.network())
			}
		})

		for _, event := range controlEvents {
			client.On(event, func(args ...any) {
				log.Debug().Str("id", clientID).Interface("data", args).Msg(event)
				cmd, ok := translate(event, args)
				if !ok {
					log.Warn().Str("id", clientID).Str("event", event).Msg("Ignoring malformed request")
					return
				}
				s.dispatch(client, cmd)
			})
		}
	})
}

func (s *Server) dispatch(client *socket.Socket, cmd session.Command) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	if err := s.host.Dispatch(ctx, cmd); err != nil {
		log.Error().Err(err).Str("action", cmd.Action).Msg("Command failed")
		client.Emit("pushToastMessage", map[string]string{
			"type":    "error",
			"title":   cmd.Action,
			"message": err.Error(),
		})
	}
}

// pushState sends current state to a client.
func (s *Server) pushState(client *socket.Socket) {
	client.Emit("pushState", s.host.State().ToJSON(s.now()))
}

// pushQueue sends current queue to a client.
func (s *Server) pushQueue(client *socket.Socket) {
	client.Emit("pushQueue", queueJSON(s.host.Playlist()))
}

// BroadcastState sends state to all connected clients.
func (s *Server) BroadcastState() {
	state := s.host.State().ToJSON(s.now())
	if s.isStateSame(state) {
		return
	}
	s.saveLastState(state)
	s.io.Emit("pushState", state)

	if log.Debug().Enabled() {
		data, _ := json.Marshal(state)
		log.Debug().RawJSON("state", data).Int("clients", s.Clients()).Msg("Broadcast state")
	}
}

func (s *Server) isStateSame(state map[string]interface{}) bool {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.lastState == nil {
		return false
	}
	return lo.EveryBy(stateCompareKeys, func(k string) bool {
		return fmt.Sprint(state[k]) == fmt.Sprint(s.lastState[k])
	})
}

func (s *Server) saveLastState(state map[string]interface{}) {
	s.stateMu.Lock()
	s.lastState = state
	s.stateMu.Unlock()
}

// BroadcastQueue sends queue to all connected clients.
func (s *Server) BroadcastQueue() {
	s.io.Emit("pushQueue", queueJSON(s.host.Playlist()))
}

// BroadcastAudioStatus sends audio status to all connected clients.
func (s *Server) BroadcastAudioStatus(status audio.Status) {
	s.io.Emit("pushAudioStatus", status)
	log.Debug().Bool("attached", status.Attached).Interface("format", status.Format).Msg("Broadcast audio status")
}

// BroadcastNetworkStatus pushes a network change to all clients.
func (s *Server) BroadcastNetworkStatus(status network.Status) {
	s.io.Emit("pushNetworkStatus", status)
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// ServeHTTP implements http.Handler for the Socket.io server.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.io.ServeHandler(nil).ServeHTTP(w, r)
}

// Close detaches the server from the host and closes the Socket.io server.
func (s *Server) Close() error {
	s.cancel()
	s.debouncer.Stop()
	s.io.Close(nil)
	return nil
}

// sink receives host messages. State and queue pushes are debounced; the
// other messages are forwarded as player events.
type sink struct{ s *Server }

func (k sink) Send(msg session.Message) {
	if msg.Event == session.EventSync {
		return
	}
	kind, ok := player.KindFromString(msg.Event)
	if !ok {
		return
	}
	k.s.debouncer.Trigger(kind)

	switch kind {
	case player.KindSeekComplete, player.KindRepeat, player.KindError,
		player.KindSleepTimerStart, player.KindSleepTimerEnd, player.KindShutdown:
		k.s.io.Emit("pushPlayerEvent", eventJSON(msg))
	}
}

func (k sink) Close() {
	k.s.debouncer.Stop()
}

// queueJSON lists the playlist the way the web UI expects a queue.
func queueJSON(p playlist.Playlist) []map[string]any {
	return lo.Map(p.Items(), func(t track.Track, _ int) map[string]any {
		return map[string]any{
			"uri":      t.URI,
			"name":     t.Title,
			"title":    t.Title,
			"artist":   t.Artist,
			"album":    t.Album,
			"albumart": t.IconURI,
			"duration": t.Duration / 1000,
			"id":       t.ID,
		}
	})
}

// eventJSON drops binary arguments, which the web UI has no use for.
func eventJSON(msg session.Message) map[string]any {
	return map[string]any{
		"event": msg.Event,
		"args": session.Args(lo.OmitBy(map[string]interface{}(msg.Args), func(_ string, v interface{}) bool {
			_, binary := v.([]byte)
			return binary
		})),
	}
}

// remoteIP strips the port from a socket address.
func remoteIP(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
