// Package relay mirrors a session over Redis pub/sub: host messages are
// published on <channel>.events and commands published on
// <channel>.commands are dispatched to the host.
package relay

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-offline-player/internal/domain/session"
)

// QueueSize bounds the messages waiting to be published.
const QueueSize = 256

// Dispatcher runs commands received from Redis.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd session.Command) error
}

// Relay is a session sink backed by Redis.
type Relay struct {
	rdb     *redis.Client
	channel string
	queue   chan session.Message
	done    chan struct{}
	once    sync.Once
}

// New creates a relay publishing under channel.
func New(rdb *redis.Client, channel string) *Relay {
	return &Relay{
		rdb:     rdb,
		channel: channel,
		queue:   make(chan session.Message, QueueSize),
		done:    make(chan struct{}),
	}
}

// EventsChannel is where messages are published.
func (r *Relay) EventsChannel() string { return r.channel + ".events" }

// CommandsChannel is where commands are received.
func (r *Relay) CommandsChannel() string { return r.channel + ".commands" }

// Send implements session.Sink. Messages are dropped when the queue is full.
func (r *Relay) Send(msg session.Message) {
	select {
	case <-r.done:
		return
	default:
	}
	select {
	case r.queue <- msg:
	default:
		log.Warn().Str("event", msg.Event).Msg("Relay queue full, dropping message")
	}
}

// Close implements session.Sink.
func (r *Relay) Close() {
	r.once.Do(func() { close(r.done) })
}

// Run publishes queued messages until ctx is done or the relay is closed.
func (r *Relay) Run(ctx context.Context) {
	log.Info().Str("channel", r.EventsChannel()).Msg("Redis relay started")
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.done:
			r.drain(ctx)
			log.Info().Msg("Redis relay stopped")
			return
		case msg := <-r.queue:
			r.publish(ctx, msg)
		}
	}
}

func (r *Relay) drain(ctx context.Context) {
	for {
		select {
		case msg := <-r.queue:
			r.publish(ctx, msg)
		default:
			return
		}
	}
}

func (r *Relay) publish(ctx context.Context, msg session.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("event", msg.Event).Msg("Failed to encode message")
		return
	}
	if err := r.rdb.Publish(ctx, r.EventsChannel(), data).Err(); err != nil {
		log.Error().Err(err).Str("event", msg.Event).Msg("Failed to publish message")
	}
}

// Listen subscribes to the commands channel and dispatches every command
// until ctx is done.
func (r *Relay) Listen(ctx context.Context, d Dispatcher) error {
	sub := r.rdb.Subscribe(ctx, r.CommandsChannel())
	defer sub.Close()

	// Wait for the subscription to be confirmed.
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	log.Info().Str("channel", r.CommandsChannel()).Msg("Listening for remote commands")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var cmd session.Command
			if err := json.Unmarshal([]byte(msg.Payload), &cmd); err != nil {
				log.Warn().Err(err).Msg("Ignoring malformed remote command")
				continue
			}
			if err := d.Dispatch(ctx, cmd); err != nil {
				log.Warn().Err(err).Str("action", cmd.Action).Msg("Remote command failed")
			}
		}
	}
}
