package player

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/edumarques81/stellar-offline-player/internal/domain/playlist"
	"github.com/edumarques81/stellar-offline-player/internal/domain/track"
)

// FormatVersion is the leading byte of encoded states and tracks.
const FormatVersion byte = 1

// ErrUnknownVersion is returned when decoding data of an unknown format.
var ErrUnknownVersion = errors.New("unknown player format version")

func encode(what string, v interface{}) ([]byte, error) {
	body, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", what, err)
	}
	return append([]byte{FormatVersion}, body...), nil
}

func decode(what string, data []byte, v interface{}) error {
	if len(data) == 0 {
		return fmt.Errorf("failed to decode %s: empty data", what)
	}
	if data[0] != FormatVersion {
		return fmt.Errorf("failed to decode %s: %w %d", what, ErrUnknownVersion, data[0])
	}
	if err := msgpack.Unmarshal(data[1:], v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", what, err)
	}
	return nil
}

// EncodeState encodes a full state snapshot.
func EncodeState(s State) ([]byte, error) {
	return encode("state", s)
}

// DecodeState decodes data produced by EncodeState.
func DecodeState(data []byte) (State, error) {
	s := NewState()
	if err := decode("state", data, &s); err != nil {
		return NewState(), err
	}
	s.Mode = PlayModeFromID(s.Mode.ID())
	s.ErrorCode = ErrorCodeFromInt(int(s.ErrorCode))
	return s, nil
}

// EncodeTrack encodes a single track.
func EncodeTrack(t track.Track) ([]byte, error) {
	return encode("track", t)
}

// DecodeTrack decodes data produced by EncodeTrack.
func DecodeTrack(data []byte) (track.Track, error) {
	var t track.Track
	if err := decode("track", data, &t); err != nil {
		return track.Track{}, err
	}
	return t.Clone(), nil
}

// EncodePlaylist encodes a playlist.
func EncodePlaylist(p playlist.Playlist) ([]byte, error) {
	return p.MarshalBinary()
}

// DecodePlaylist decodes data produced by EncodePlaylist.
func DecodePlaylist(data []byte) (playlist.Playlist, error) {
	return playlist.Decode(data)
}
