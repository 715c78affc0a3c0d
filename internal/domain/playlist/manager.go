package playlist

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-offline-player/internal/infra/store"
)

const (
	keyPlaylist     = "playlist"
	keyPlaylistSize = "playlist_size"
	keyName         = "name"
	keyToken        = "token"
	keyEditable     = "editable"
	keyLastModified = "last_modified"
)

// Manager persists the active playlist of one player together with cheap
// metadata that can be read without decoding the list.
type Manager struct {
	ns  store.Namespace
	now func() time.Time
}

// NewManager returns the manager for playerID.
func NewManager(backend store.Backend, playerID string) *Manager {
	return &Manager{
		ns:  backend.Namespace("PlaylistManager:" + playerID),
		now: time.Now,
	}
}

// Load returns the stored playlist, or an empty editable playlist when none
// has been saved yet.
func (m *Manager) Load(ctx context.Context) (Playlist, error) {
	data, ok, err := m.ns.Get(ctx, keyPlaylist)
	if err != nil {
		return Empty(), fmt.Errorf("failed to load playlist: %w", err)
	}
	if !ok {
		return Empty(), nil
	}

	p, err := Decode(data)
	if err != nil {
		return Empty(), err
	}
	return p, nil
}

// Save writes the playlist and its metadata.
func (m *Manager) Save(ctx context.Context, p Playlist) error {
	data, err := p.MarshalBinary()
	if err != nil {
		return err
	}

	if err := m.ns.Put(ctx, keyPlaylist, data); err != nil {
		return err
	}
	if err := store.PutInt(ctx, m.ns, keyPlaylistSize, p.Size()); err != nil {
		return err
	}
	if err := store.PutString(ctx, m.ns, keyName, p.Name()); err != nil {
		return err
	}
	if err := store.PutString(ctx, m.ns, keyToken, p.Token()); err != nil {
		return err
	}
	if err := store.PutBool(ctx, m.ns, keyEditable, p.Editable()); err != nil {
		return err
	}
	if err := store.PutInt64(ctx, m.ns, keyLastModified, m.now().UnixMilli()); err != nil {
		return err
	}

	log.Debug().
		Str("name", p.Name()).
		Int("size", p.Size()).
		Str("token", p.Token()).
		Msg("Playlist saved")
	return nil
}

// Name returns the stored playlist name.
func (m *Manager) Name(ctx context.Context) (string, error) {
	return store.GetString(ctx, m.ns, keyName, "")
}

// Size returns the stored playlist size.
func (m *Manager) Size(ctx context.Context) (int, error) {
	return store.GetInt(ctx, m.ns, keyPlaylistSize, 0)
}

// Token returns the stored playlist token.
func (m *Manager) Token(ctx context.Context) (string, error) {
	return store.GetString(ctx, m.ns, keyToken, "")
}

// Editable returns whether the stored playlist is editable. Defaults to true.
func (m *Manager) Editable(ctx context.Context) (bool, error) {
	return store.GetBool(ctx, m.ns, keyEditable, true)
}

// LastModified returns when the playlist was last saved, or the zero time.
func (m *Manager) LastModified(ctx context.Context) (time.Time, error) {
	ms, err := store.GetInt64(ctx, m.ns, keyLastModified, 0)
	if err != nil || ms == 0 {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}
