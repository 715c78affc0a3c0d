// Package playlist provides the ordered, de-duplicated and size-capped track
// list played by the engine, plus its persistent manager record.
package playlist

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/samber/lo"

	"github.com/edumarques81/stellar-offline-player/internal/domain/track"
)

// MaxSize is the maximum number of tracks a playlist holds.
const MaxSize = 1000

// Playlist is an immutable ordered list of tracks.
// Use Builder (or Playlist.Builder for edits) to produce a new one.
type Playlist struct {
	name     string
	token    string
	items    []track.Track
	editable bool
	extra    map[string]string
}

// Empty returns an empty editable playlist.
func Empty() Playlist {
	return NewBuilder().Build()
}

// Name returns the playlist name.
func (p Playlist) Name() string { return p.name }

// Token returns the content fingerprint of the playlist.
func (p Playlist) Token() string { return p.token }

// Editable reports whether the playlist accepts insert/move/remove.
func (p Playlist) Editable() bool { return p.editable }

// Size returns the number of tracks.
func (p Playlist) Size() int { return len(p.items) }

// IsEmpty reports whether the playlist has no tracks.
func (p Playlist) IsEmpty() bool { return len(p.items) == 0 }

// Get returns a copy of the track at index i.
func (p Playlist) Get(i int) (track.Track, bool) {
	if i < 0 || i >= len(p.items) {
		return track.Track{}, false
	}
	return p.items[i].Clone(), true
}

// Items returns a copy of all tracks.
func (p Playlist) Items() []track.Track {
	return lo.Map(p.items, func(t track.Track, _ int) track.Track { return t.Clone() })
}

// Extra returns a copy of the extra bag.
func (p Playlist) Extra() map[string]string {
	return copyExtra(p.extra)
}

// IndexOf returns the index of the track equal to t, or -1.
func (p Playlist) IndexOf(t track.Track) int {
	_, idx, ok := lo.FindIndexOf(p.items, func(it track.Track) bool { return track.Equal(it, t) })
	if !ok {
		return -1
	}
	return idx
}

// Contains reports whether the playlist holds a track equal to t.
func (p Playlist) Contains(t track.Track) bool {
	return p.IndexOf(t) >= 0
}

// Builder returns a builder seeded with this playlist's name, editability
// and extra bag but no items.
func (p Playlist) Builder() *Builder {
	return NewBuilder().
		SetName(p.name).
		SetEditable(p.editable).
		SetExtra(p.extra)
}

// Token computes the fingerprint of an ordered track list: the hex SHA-256
// of the concatenated track URIs.
func Token(items []track.Track) string {
	h := sha256.New()
	for _, it := range items {
		h.Write([]byte(it.URI))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func copyExtra(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
