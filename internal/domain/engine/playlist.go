package engine

import (
	"context"
	"slices"

	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-offline-player/internal/domain/player"
	"github.com/edumarques81/stellar-offline-player/internal/domain/playlist"
	"github.com/edumarques81/stellar-offline-player/internal/domain/track"
)

// SetPlaylist replaces the playlist and makes position current.
func (e *Engine) SetPlaylist(p playlist.Playlist, position int, play bool) error {
	log.Debug().
		Str("player", e.id).
		Int("size", p.Size()).
		Int("position", position).
		Bool("play", play).
		Msg("setPlaylist")
	return e.call(func() error { return e.setPlaylist(p, position, play) })
}

// SkipToNext plays the next track for the current mode.
func (e *Engine) SkipToNext() error {
	return e.run(e.skipToNext)
}

// SkipToPrevious plays the previous track for the current mode.
func (e *Engine) SkipToPrevious() error {
	return e.run(e.skipToPrevious)
}

// SkipToPosition plays the track at position unless it is already current.
func (e *Engine) SkipToPosition(position int) error {
	return e.call(func() error { return e.skipToPosition(position) })
}

// PlayPauseAt toggles the track at position when it is current, or plays it.
func (e *Engine) PlayPauseAt(position int) error {
	return e.call(func() error { return e.playPauseAt(position) })
}

// InsertMusicItem inserts t at position. A track already in the playlist is
// moved there instead.
func (e *Engine) InsertMusicItem(position int, t track.Track) error {
	return e.call(func() error { return e.insert(position, t) })
}

// AppendMusicItem adds t at the end of the playlist.
func (e *Engine) AppendMusicItem(t track.Track) error {
	return e.call(func() error { return e.insert(-1, t) })
}

// MoveMusicItem moves the track at from to index to.
func (e *Engine) MoveMusicItem(from, to int) error {
	return e.call(func() error { return e.move(from, to) })
}

// RemoveMusicItem removes t from the playlist.
func (e *Engine) RemoveMusicItem(t track.Track) error {
	return e.call(func() error { return e.remove(t) })
}

// RemoveMusicItemAt removes the track at position.
func (e *Engine) RemoveMusicItemAt(position int) error {
	return e.call(func() error { return e.removeAt(position) })
}

// SetNextPlay queues t to play right after the current track, whatever the
// play mode.
func (e *Engine) SetNextPlay(t track.Track) error {
	return e.call(func() error { return e.setNextPlay(t) })
}

// deferUntilLoaded queues fn while the playlist is loading and reports
// whether it did.
func (e *Engine) deferUntilLoaded(fn func()) bool {
	if !e.loading {
		return false
	}
	e.playlistLoadedAction = fn
	return true
}

func (e *Engine) reloadPlaylist() {
	e.loading = true
	e.loadOp.dispose()
	e.loadOp = async(e, e.playlists.Load, func(p playlist.Playlist, err error) {
		if err != nil {
			log.Error().Err(err).Str("player", e.id).Msg("Failed to load playlist")
		}
		e.playlist = p
		e.loading = false

		log.Debug().Str("player", e.id).Int("size", p.Size()).Msg("Playlist restored")

		if action := e.playlistLoadedAction; action != nil {
			e.playlistLoadedAction = nil
			action()
		}
	})
}

// updatePlaylist makes p active and saves it. Only the latest save is
// written; continuations of superseded saves run when it completes.
func (e *Engine) updatePlaylist(p playlist.Playlist, doOnSaved func()) {
	e.playlist = p
	if doOnSaved != nil {
		e.savedActions = append(e.savedActions, doOnSaved)
	}

	e.saveOp.dispose()
	e.saveOp = async(e, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, e.playlists.Save(ctx, p)
	}, func(_ struct{}, err error) {
		if err != nil {
			log.Error().Err(err).Str("player", e.id).Msg("Failed to save playlist")
		}
		actions := e.savedActions
		e.savedActions = nil
		for _, action := range actions {
			action()
		}
	})
}

func (e *Engine) setPlaylist(p playlist.Playlist, position int, play bool) error {
	if position < 0 || (p.Size() > 0 && position >= p.Size()) {
		return ErrOutOfRange
	}

	if e.loading {
		e.loadOp.dispose()
		e.loading = false
		e.playlistLoadedAction = nil
	}

	e.updatePlaylist(p, func() {
		e.stop()
		e.notifyPlaylistChanged(position, p)
		e.changeTrackAt(position, play)
	})
	return nil
}

func (e *Engine) skipToNext() {
	if e.deferUntilLoaded(e.skipToNext) {
		return
	}
	size := e.playlist.Size()
	if size < 1 {
		return
	}
	next := player.NextPosition(e.state.Mode, e.state.Position, size, e.confirmNextPlay, e.rnd)
	if e.state.Mode != player.ModeLoop {
		e.confirmNextPlay = false
	}
	e.changeTrackAt(next, true)
}

func (e *Engine) skipToPrevious() {
	if e.deferUntilLoaded(e.skipToPrevious) {
		return
	}
	size := e.playlist.Size()
	if size < 1 {
		return
	}
	e.changeTrackAt(player.PreviousPosition(e.state.Mode, e.state.Position, size, e.rnd), true)
}

func (e *Engine) skipToPosition(position int) error {
	if e.deferUntilLoaded(func() { e.logViolation(e.skipToPosition(position)) }) {
		return nil
	}
	if position == e.state.Position && e.state.Track != nil {
		return nil
	}
	return e.playPauseAt(position)
}

func (e *Engine) playPauseAt(position int) error {
	if e.deferUntilLoaded(func() { e.logViolation(e.playPauseAt(position)) }) {
		return nil
	}
	if position < 0 || position >= e.playlist.Size() {
		return ErrOutOfRange
	}
	if position == e.state.Position && e.state.Track != nil {
		e.playPause()
		return nil
	}
	e.changeTrackAt(position, true)
	return nil
}

// rebuild produces an edited copy of the playlist keeping its name,
// editability and extra bag.
func (e *Engine) rebuild(items []track.Track, position int) (playlist.Playlist, int) {
	return e.playlist.Builder().AppendAll(items).SetPosition(position).BuildAt()
}

func (e *Engine) insert(position int, t track.Track) error {
	if t.IsZero() {
		return ErrNilTrack
	}
	if e.deferUntilLoaded(func() { e.logViolation(e.insert(position, t)) }) {
		return nil
	}
	if !e.playlist.Editable() {
		return ErrNotEditable
	}

	size := e.playlist.Size()
	if position == -1 {
		position = size
	}
	if position < 0 || position > size {
		return ErrOutOfRange
	}
	if idx := e.playlist.IndexOf(t); idx >= 0 {
		return e.move(idx, min(position, size-1))
	}

	items := slices.Insert(e.playlist.Items(), position, t)
	current := e.state.Position
	if e.state.Track != nil {
		current = player.InsertedPosition(current, position)
	}
	p, current := e.rebuild(items, current)
	e.state.Position = current

	e.updatePlaylist(p, func() {
		e.notifyPlaylistChanged(e.state.Position, e.playlist)
	})
	return nil
}

func (e *Engine) move(from, to int) error {
	if e.deferUntilLoaded(func() { e.logViolation(e.move(from, to)) }) {
		return nil
	}
	if !e.playlist.Editable() {
		return ErrNotEditable
	}

	size := e.playlist.Size()
	if from < 0 || from >= size || to < 0 || to >= size {
		return ErrOutOfRange
	}
	if from == to {
		return nil
	}

	items := e.playlist.Items()
	moved := items[from]
	items = slices.Delete(items, from, from+1)
	items = slices.Insert(items, to, moved)

	current := e.state.Position
	if e.state.Track != nil {
		current = player.MovedPosition(current, from, to)
	}
	p, current := e.rebuild(items, current)
	e.state.Position = current

	e.updatePlaylist(p, func() {
		e.notifyPlaylistChanged(e.state.Position, e.playlist)
	})
	return nil
}

func (e *Engine) remove(t track.Track) error {
	if t.IsZero() {
		return ErrNilTrack
	}
	if e.deferUntilLoaded(func() { e.logViolation(e.remove(t)) }) {
		return nil
	}
	if !e.playlist.Editable() {
		return ErrNotEditable
	}
	idx := e.playlist.IndexOf(t)
	if idx < 0 {
		return nil
	}
	return e.removeAt(idx)
}

func (e *Engine) removeAt(position int) error {
	if e.deferUntilLoaded(func() { e.logViolation(e.removeAt(position)) }) {
		return nil
	}
	if !e.playlist.Editable() {
		return ErrNotEditable
	}
	size := e.playlist.Size()
	if position < 0 || position >= size {
		return ErrOutOfRange
	}

	items := slices.Delete(e.playlist.Items(), position, position+1)

	current := e.state.Position
	removedCurrent := false
	if e.state.Track != nil {
		current, removedCurrent = player.RemovedPosition(current, position)
		if removedCurrent {
			mode := e.state.Mode
			if mode == player.ModeLoop {
				mode = player.ModePlaylistLoop
			}
			current = player.NextPosition(mode, current, len(items), false, e.rnd)
		}
	}
	p, current := e.rebuild(items, current)
	e.state.Position = current

	e.updatePlaylist(p, func() {
		e.notifyPlaylistChanged(e.state.Position, e.playlist)

		if e.playlist.IsEmpty() {
			e.changeTrack(nil, 0, false)
			e.notifyStopped()
			return
		}
		if removedCurrent {
			next := e.state.Position
			if next >= e.playlist.Size() {
				next = 0
			}
			e.changeTrackAt(next, e.isPlaying() || e.playOnPrepared)
		}
	})
	return nil
}

func (e *Engine) setNextPlay(t track.Track) error {
	if t.IsZero() {
		return ErrNilTrack
	}
	if e.deferUntilLoaded(func() { e.logViolation(e.setNextPlay(t)) }) {
		return nil
	}
	if e.state.Track != nil && track.Equal(*e.state.Track, t) {
		return nil
	}
	if !e.playlist.Editable() {
		return ErrNotEditable
	}

	current := e.state.Position
	target := current + 1
	if e.state.Track == nil {
		target = 0
	}

	var err error
	if idx := e.playlist.IndexOf(t); idx >= 0 {
		if idx < current {
			target = current
		}
		err = e.move(idx, min(target, e.playlist.Size()-1))
	} else {
		err = e.insert(min(target, e.playlist.Size()), t)
	}
	if err == nil {
		e.confirmNextPlay = true
	}
	return err
}

func (e *Engine) logViolation(err error) {
	if err != nil {
		log.Warn().Err(err).Str("player", e.id).Msg("Deferred playlist command rejected")
	}
}
