package player

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-offline-player/internal/infra/store"
)

const (
	keyPlayProgress = "play_progress"
	keyMusicItem    = "music_item"
	keyPosition     = "position"
	keyPlayMode     = "play_mode"
	keySpeed        = "speed"
)

// PersistentState stores the persistent fields of a State so a restarted
// host resumes where it stopped.
type PersistentState struct {
	ns store.Namespace
}

// NewPersistentState returns the persistent state of playerID.
func NewPersistentState(backend store.Backend, playerID string) *PersistentState {
	return &PersistentState{ns: backend.Namespace("PlayerState:" + playerID)}
}

// Load restores a state. Playback is PAUSED when a track was saved and NONE
// otherwise.
func (p *PersistentState) Load(ctx context.Context) (State, error) {
	s := NewState()

	data, ok, err := p.ns.Get(ctx, keyMusicItem)
	if err != nil {
		return s, fmt.Errorf("failed to load music item: %w", err)
	}
	if ok {
		t, err := DecodeTrack(data)
		if err != nil {
			log.Warn().Err(err).Msg("Discarding unreadable saved track")
		} else {
			s.Track = &t
		}
	}

	if s.Progress, err = store.GetInt64(ctx, p.ns, keyPlayProgress, 0); err != nil {
		log.Warn().Err(err).Str("key", keyPlayProgress).Msg("Invalid saved value")
	}
	if s.Position, err = store.GetInt(ctx, p.ns, keyPosition, 0); err != nil {
		log.Warn().Err(err).Str("key", keyPosition).Msg("Invalid saved value")
	}
	mode, err := store.GetInt(ctx, p.ns, keyPlayMode, ModePlaylistLoop.ID())
	if err != nil {
		log.Warn().Err(err).Str("key", keyPlayMode).Msg("Invalid saved value")
	}
	s.Mode = PlayModeFromID(mode)
	speed, err := store.GetFloat(ctx, p.ns, keySpeed, DefaultSpeed)
	if err != nil {
		log.Warn().Err(err).Str("key", keySpeed).Msg("Invalid saved value")
	}
	s.Speed = ClampSpeed(speed)

	if s.Track == nil {
		s.Progress = 0
		s.Playback = StateNone
	} else {
		if s.ForbidSeek() {
			s.Progress = 0
		}
		s.Playback = StatePaused
	}
	return s, nil
}

// Save writes the persistent fields of s.
func (p *PersistentState) Save(ctx context.Context, s State) error {
	progress := s.Progress
	if s.ForbidSeek() {
		progress = 0
	}

	if s.Track == nil {
		if err := p.ns.Delete(ctx, keyMusicItem); err != nil {
			return fmt.Errorf("failed to clear music item: %w", err)
		}
	} else {
		data, err := EncodeTrack(*s.Track)
		if err != nil {
			return err
		}
		if err := p.ns.Put(ctx, keyMusicItem, data); err != nil {
			return fmt.Errorf("failed to save music item: %w", err)
		}
	}

	if err := store.PutInt64(ctx, p.ns, keyPlayProgress, progress); err != nil {
		return err
	}
	if err := store.PutInt(ctx, p.ns, keyPosition, s.Position); err != nil {
		return err
	}
	if err := store.PutInt(ctx, p.ns, keyPlayMode, s.Mode.ID()); err != nil {
		return err
	}
	return store.PutFloat(ctx, p.ns, keySpeed, s.Speed)
}
