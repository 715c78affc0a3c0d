// Package track provides the playable track descriptor shared by the player,
// the playlist and the session protocol.
package track

// Track describes a playable audio item.
// Values are copied when they cross component boundaries; use Clone to get
// an independent copy of Extra.
type Track struct {
	ID         string            `msgpack:"id" json:"id"`
	Title      string            `msgpack:"title" json:"title"`
	Artist     string            `msgpack:"artist" json:"artist"`
	Album      string            `msgpack:"album" json:"album"`
	URI        string            `msgpack:"uri" json:"uri"`
	IconURI    string            `msgpack:"icon_uri" json:"iconUri"`
	Duration   int64             `msgpack:"duration" json:"duration"` // milliseconds
	ForbidSeek bool              `msgpack:"forbid_seek" json:"forbidSeek"`
	Extra      map[string]string `msgpack:"extra,omitempty" json:"extra,omitempty"`
}

// Builder assembles a Track.
type Builder struct {
	t Track
}

// NewBuilder returns an empty track builder.
func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) SetID(id string) *Builder { b.t.ID = id; return b }
func (b *Builder) SetTitle(title string) *Builder { b.t.Title = title; return b }
func (b *Builder) SetArtist(artist string) *Builder { b.t.Artist = artist; return b }
func (b *Builder) SetAlbum(album string) *Builder { b.t.Album = album; return b }
func (b *Builder) SetURI(uri string) *Builder { b.t.URI = uri; return b }
func (b *Builder) SetIconURI(uri string) *Builder { b.t.IconURI = uri; return b }
func (b *Builder) SetDuration(ms int64) *Builder { b.t.Duration = ms; return b }
func (b *Builder) SetForbidSeek(forbid bool) *Builder { b.t.ForbidSeek = forbid; return b }
func (b *Builder) PutExtra(key, value string) *Builder {
	if b.t.Extra == nil {
		b.t.Extra = make(map[string]string)
	}
	b.t.Extra[key] = value
	return b
}

// Build returns the track. Negative durations are clamped to 0.
func (b *Builder) Build() Track {
	t := b.t.Clone()
	if t.Duration < 0 {
		t.Duration = 0
	}
	return t
}

// Clone returns a deep copy of the track.
func (t Track) Clone() Track {
	c := t
	if t.Extra != nil {
		c.Extra = make(map[string]string, len(t.Extra))
		for k, v := range t.Extra {
			c.Extra[k] = v
		}
	}
	if c.Duration < 0 {
		c.Duration = 0
	}
	return c
}

// Equal reports whether two tracks identify the same item.
// Identity is the pair (ID, URI); metadata differences are ignored.
func Equal(a, b Track) bool {
	return a.ID == b.ID && a.URI == b.URI
}

// Key returns the dedup key of the track.
func (t Track) Key() string {
	return t.ID + "\x00" + t.URI
}

// IsZero reports whether t carries neither an id nor a uri.
func (t Track) IsZero() bool {
	return t.ID == "" && t.URI == ""
}

// Ptr returns a pointer to a copy of t.
func (t Track) Ptr() *Track {
	c := t.Clone()
	return &c
}
