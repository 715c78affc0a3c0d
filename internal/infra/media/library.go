// Package media resolves track URIs to playable locations and reports which
// tracks are available offline.
package media

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/edumarques81/stellar-offline-player/internal/domain/player"
	"github.com/edumarques81/stellar-offline-player/internal/domain/track"
)

var (
	ErrNotFound       = errors.New("media file not found")
	ErrUnsupportedURI = errors.New("unsupported uri scheme")
)

// Library maps tracks onto a music directory and a download cache.
// It implements the engine's Resolver and CacheChecker.
type Library struct {
	fs       afero.Fs
	root     string
	cacheDir string
}

// New creates a library. Relative local URIs are resolved under root;
// remote tracks are looked up under cacheDir.
func New(fs afero.Fs, root, cacheDir string) *Library {
	return &Library{fs: fs, root: root, cacheDir: cacheDir}
}

// Resolve returns the location the decoder should open: a local path for
// files and cached downloads, the remote URI otherwise.
func (l *Library) Resolve(ctx context.Context, t track.Track, q player.SoundQuality) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	u, err := url.Parse(t.URI)
	if err != nil {
		return "", fmt.Errorf("failed to parse uri %q: %w", t.URI, err)
	}

	switch u.Scheme {
	case "", "file":
		p := l.localPath(u)
		ok, err := afero.Exists(l.fs, p)
		if err != nil {
			return "", fmt.Errorf("failed to stat %s: %w", p, err)
		}
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		return p, nil
	case "http", "https":
		cached := l.CachePath(t, q)
		if ok, _ := afero.Exists(l.fs, cached); ok {
			log.Debug().Str("track", t.ID).Str("path", cached).Msg("Playing cached copy")
			return cached, nil
		}
		return withQuality(u, q), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedURI, u.Scheme)
	}
}

// IsCached reports whether the track plays without network access.
func (l *Library) IsCached(ctx context.Context, t track.Track, q player.SoundQuality) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	u, err := url.Parse(t.URI)
	if err != nil {
		return false, fmt.Errorf("failed to parse uri %q: %w", t.URI, err)
	}
	switch u.Scheme {
	case "", "file":
		return afero.Exists(l.fs, l.localPath(u))
	default:
		return afero.Exists(l.fs, l.CachePath(t, q))
	}
}

// CachePath is where a downloaded copy of t at quality q is stored.
func (l *Library) CachePath(t track.Track, q player.SoundQuality) string {
	sum := sha256.Sum256([]byte(t.URI))
	name := hex.EncodeToString(sum[:8])
	if ext := path.Ext(strings.SplitN(t.URI, "?", 2)[0]); len(ext) > 1 && len(ext) <= 5 {
		name += ext
	}
	return filepath.Join(l.cacheDir, q.String(), name)
}

func (l *Library) localPath(u *url.URL) string {
	p := u.Path
	if u.Scheme == "" && u.Opaque != "" {
		p = u.Opaque
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(l.root, p)
	}
	return filepath.Clean(p)
}

func withQuality(u *url.URL, q player.SoundQuality) string {
	c := *u
	values := c.Query()
	values.Set("quality", q.String())
	c.RawQuery = values.Encode()
	return c.String()
}
