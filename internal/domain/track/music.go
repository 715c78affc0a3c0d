package track

import (
	"fmt"
	"strconv"
)

// KeyAddTime is the Extra key holding the catalog add timestamp.
const KeyAddTime = "add_time"

// Music is an entry of the local music catalog.
type Music struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Album    string `json:"album"`
	URI      string `json:"uri"`
	IconURI  string `json:"iconUri"`
	Duration int64  `json:"duration"` // milliseconds
	AddTime  int64  `json:"addTime"`  // unix milliseconds
}

// FromMusic converts a catalog entry into a playable track.
func FromMusic(m Music) Track {
	return NewBuilder().
		SetID(strconv.FormatInt(m.ID, 10)).
		SetTitle(m.Title).
		SetArtist(m.Artist).
		SetAlbum(m.Album).
		SetURI(m.URI).
		SetIconURI(m.IconURI).
		SetDuration(m.Duration).
		PutExtra(KeyAddTime, strconv.FormatInt(m.AddTime, 10)).
		Build()
}

// ToMusic converts a track back into a catalog entry.
// The track id must be a decimal catalog id.
func ToMusic(t Track) (Music, error) {
	id, err := strconv.ParseInt(t.ID, 10, 64)
	if err != nil {
		return Music{}, fmt.Errorf("invalid catalog id %q: %w", t.ID, err)
	}

	var addTime int64
	if v, ok := t.Extra[KeyAddTime]; ok {
		addTime, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Music{}, fmt.Errorf("invalid add time %q: %w", v, err)
		}
	}

	return Music{
		ID:       id,
		Title:    t.Title,
		Artist:   t.Artist,
		Album:    t.Album,
		URI:      t.URI,
		IconURI:  t.IconURI,
		Duration: t.Duration,
		AddTime:  addTime,
	}, nil
}
