package playlist

import (
	"github.com/samber/lo"

	"github.com/edumarques81/stellar-offline-player/internal/domain/track"
)

// Builder assembles a Playlist.
// Defaults: empty name, editable, position 0.
type Builder struct {
	name     string
	items    []track.Track
	editable bool
	extra    map[string]string
	position int
}

// NewBuilder returns a builder with default settings.
func NewBuilder() *Builder {
	return &Builder{editable: true}
}

// SetName sets the playlist name.
func (b *Builder) SetName(name string) *Builder {
	b.name = name
	return b
}

// SetEditable sets whether the playlist can be mutated.
func (b *Builder) SetEditable(editable bool) *Builder {
	b.editable = editable
	return b
}

// SetExtra sets the extra bag.
func (b *Builder) SetExtra(extra map[string]string) *Builder {
	b.extra = copyExtra(extra)
	return b
}

// SetPosition sets the index the size-cap window is centred on.
func (b *Builder) SetPosition(position int) *Builder {
	b.position = position
	return b
}

// Append adds a track to the end.
func (b *Builder) Append(t track.Track) *Builder {
	b.items = append(b.items, t.Clone())
	return b
}

// AppendAll adds tracks to the end.
func (b *Builder) AppendAll(items []track.Track) *Builder {
	for _, t := range items {
		b.Append(t)
	}
	return b
}

// Remove drops every track equal to t.
func (b *Builder) Remove(t track.Track) *Builder {
	b.items = lo.Reject(b.items, func(it track.Track, _ int) bool { return track.Equal(it, t) })
	return b
}

// Build de-duplicates (keeping first occurrences), trims the list to MaxSize
// around the position and computes the token.
func (b *Builder) Build() Playlist {
	p, _ := b.BuildAt()
	return p
}

// BuildAt is Build that also returns where the position ended up in the
// trimmed list.
func (b *Builder) BuildAt() (Playlist, int) {
	items, position := dedup(b.items, b.position)
	items, position = trim(items, position)

	return Playlist{
		name:     b.name,
		token:    Token(items),
		items:    items,
		editable: b.editable,
		extra:    copyExtra(b.extra),
	}, position
}

// dedup keeps first occurrences. The returned position follows the track
// that was at position; a removed duplicate maps to its first occurrence.
// Out of range positions keep their distance from the end of the list.
func dedup(items []track.Track, position int) ([]track.Track, int) {
	out := make([]track.Track, 0, len(items))
	index := make(map[string]int, len(items))
	moved := position
	for i, t := range items {
		k := t.Key()
		at, ok := index[k]
		if !ok {
			at = len(out)
			index[k] = at
			out = append(out, t)
		}
		if i == position {
			moved = at
		}
	}
	if position >= len(items) {
		moved = len(out) + position - len(items)
	}
	return out, moved
}

func trim(items []track.Track, position int) ([]track.Track, int) {
	size := len(items)
	if size <= MaxSize {
		return items, position
	}

	position = lo.Clamp(position, 0, size-1)
	start := position - max(0, MaxSize-(size-position))
	end := position + min(MaxSize, size-position)

	out := make([]track.Track, end-start)
	copy(out, items[start:end])
	return out, position - start
}
