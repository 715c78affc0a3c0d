package session

import (
	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-offline-player/internal/domain/player"
)

// LogNotifier writes notification updates to the log. It is the notifier
// of a headless host.
type LogNotifier struct{}

func (LogNotifier) Update(s player.State) {
	if s.Track == nil {
		return
	}
	log.Info().
		Str("title", s.Track.Title).
		Str("artist", s.Track.Artist).
		Str("playback", s.Playback.String()).
		Msg("Now playing")
}

func (LogNotifier) Hide() {
	log.Debug().Msg("Notification hidden")
}
