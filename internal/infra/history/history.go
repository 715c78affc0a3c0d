// Package history records played tracks in a file-backed list.
package history

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/metafates/gache"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/edumarques81/stellar-offline-player/internal/domain/track"
)

const (
	// DedupWindow suppresses repeated records of the same track.
	DedupWindow = 5 * time.Second
	// DefaultLimit caps the number of stored entries.
	DefaultLimit = 500
)

// Entry is one played track.
type Entry struct {
	ID       string      `json:"id"`
	Track    track.Track `json:"track"`
	PlayedAt time.Time   `json:"playedAt"`
}

// Recorder persists play history. Newest entries come first.
type Recorder struct {
	mu    sync.Mutex
	cache *gache.Cache[[]Entry]
	limit int
	now   func() time.Time
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithLimit caps the history size.
func WithLimit(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.limit = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// New creates a recorder storing its list at path on fs.
func New(fs afero.Fs, path string, opts ...Option) *Recorder {
	r := &Recorder{
		cache: gache.New[[]Entry](&gache.Options{
			Path:       path,
			FileSystem: gacheFs{fs},
		}),
		limit: DefaultLimit,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record adds t to the history unless the same track was recorded within
// the dedup window.
func (r *Recorder) Record(ctx context.Context, t track.Track) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.load()
	if err != nil {
		return err
	}

	now := r.now()
	if len(entries) > 0 {
		last := entries[0]
		if track.Equal(last.Track, t) && now.Sub(last.PlayedAt) < DedupWindow {
			return nil
		}
	}

	entry := Entry{ID: uuid.NewString(), Track: t.Clone(), PlayedAt: now}
	entries = append([]Entry{entry}, entries...)
	if len(entries) > r.limit {
		entries = entries[:r.limit]
	}

	if err := r.cache.Set(entries); err != nil {
		return err
	}
	log.Debug().Str("track", t.ID).Str("title", t.Title).Msg("Recorded history entry")
	return nil
}

// Recent returns up to n entries, newest first. n <= 0 returns all.
func (r *Recorder) Recent(n int) ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.load()
	if err != nil {
		return nil, err
	}
	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries, nil
}

// Clear removes every entry.
func (r *Recorder) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache.Set(nil)
}

func (r *Recorder) load() ([]Entry, error) {
	entries, expired, err := r.cache.Get()
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, nil
	}
	return entries, nil
}

// gacheFs adapts an afero filesystem to gache.
type gacheFs struct {
	fs afero.Fs
}

func (g gacheFs) OpenFile(name string, flag int, perm os.FileMode) (io.ReadWriteCloser, error) {
	return g.fs.OpenFile(name, flag, perm)
}

func (g gacheFs) MkdirAll(path string, perm os.FileMode) error {
	return g.fs.MkdirAll(path, perm)
}
