package playlist

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/edumarques81/stellar-offline-player/internal/domain/track"
)

// FormatVersion is the leading byte of an encoded playlist.
const FormatVersion byte = 1

// ErrUnknownVersion is returned when decoding data written by an unknown format.
var ErrUnknownVersion = errors.New("unknown playlist format version")

// Wire is the encoded form of a playlist.
type Wire struct {
	Name     string            `msgpack:"name"`
	Token    string            `msgpack:"token"`
	Items    []track.Track     `msgpack:"items"`
	Editable bool              `msgpack:"editable"`
	Extra    map[string]string `msgpack:"extra,omitempty"`
}

// ToWire returns the wire form of p.
func (p Playlist) ToWire() Wire {
	return Wire{
		Name:     p.name,
		Token:    p.token,
		Items:    p.Items(),
		Editable: p.editable,
		Extra:    p.Extra(),
	}
}

// FromWire rebuilds a playlist. The token is recomputed from the items.
func FromWire(w Wire) Playlist {
	return NewBuilder().
		SetName(w.Name).
		SetEditable(w.Editable).
		SetExtra(w.Extra).
		AppendAll(w.Items).
		Build()
}

// MarshalBinary encodes the playlist with a leading format version byte.
func (p Playlist) MarshalBinary() ([]byte, error) {
	body, err := msgpack.Marshal(p.ToWire())
	if err != nil {
		return nil, fmt.Errorf("failed to encode playlist: %w", err)
	}
	return append([]byte{FormatVersion}, body...), nil
}

// Decode decodes data produced by MarshalBinary.
func Decode(data []byte) (Playlist, error) {
	if len(data) == 0 {
		return Playlist{}, fmt.Errorf("failed to decode playlist: empty data")
	}
	if data[0] != FormatVersion {
		return Playlist{}, fmt.Errorf("%w: %d", ErrUnknownVersion, data[0])
	}

	var w Wire
	if err := msgpack.Unmarshal(data[1:], &w); err != nil {
		return Playlist{}, fmt.Errorf("failed to decode playlist: %w", err)
	}
	return FromWire(w), nil
}
