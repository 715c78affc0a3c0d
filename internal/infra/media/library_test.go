package media_test

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"

	"github.com/edumarques81/stellar-offline-player/internal/domain/player"
	"github.com/edumarques81/stellar-offline-player/internal/domain/track"
	"github.com/edumarques81/stellar-offline-player/internal/infra/media"
)

func newLibrary(t *testing.T) (*media.Library, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/music/Album/01.flac", []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return media.New(fs, "/music", "/cache"), fs
}

func TestResolveLocal(t *testing.T) {
	lib, _ := newLibrary(t)
	ctx := context.Background()

	tests := []struct {
		name string
		uri  string
		want string
	}{
		{"relative", "Album/01.flac", "/music/Album/01.flac"},
		{"absolute", "/music/Album/01.flac", "/music/Album/01.flac"},
		{"file scheme", "file:///music/Album/01.flac", "/music/Album/01.flac"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := lib.Resolve(ctx, track.Track{ID: "1", URI: tt.uri}, player.QualityStandard)
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestResolveMissingFile(t *testing.T) {
	lib, _ := newLibrary(t)

	_, err := lib.Resolve(context.Background(), track.Track{ID: "1", URI: "Album/02.flac"}, player.QualityStandard)
	if !errors.Is(err, media.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestResolveRemote(t *testing.T) {
	lib, fs := newLibrary(t)
	ctx := context.Background()
	remote := track.Track{ID: "r", URI: "https://example.com/stream/r.mp3?token=abc"}

	got, err := lib.Resolve(ctx, remote, player.QualityHigh)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != "https://example.com/stream/r.mp3?quality=high&token=abc" {
		t.Errorf("unexpected remote uri %s", got)
	}

	cached := lib.CachePath(remote, player.QualityHigh)
	if err := afero.WriteFile(fs, cached, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	got, err = lib.Resolve(ctx, remote, player.QualityHigh)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != cached {
		t.Errorf("expected cached copy %s, got %s", cached, got)
	}
}

func TestIsCached(t *testing.T) {
	lib, fs := newLibrary(t)
	ctx := context.Background()
	remote := track.Track{ID: "r", URI: "https://example.com/r.mp3"}

	if ok, _ := lib.IsCached(ctx, track.Track{URI: "Album/01.flac"}, player.QualityLow); !ok {
		t.Error("expected local file to count as cached")
	}
	if ok, _ := lib.IsCached(ctx, remote, player.QualityLow); ok {
		t.Error("expected remote track not cached")
	}

	_ = afero.WriteFile(fs, lib.CachePath(remote, player.QualityLow), []byte("x"), 0o644)
	if ok, _ := lib.IsCached(ctx, remote, player.QualityLow); !ok {
		t.Error("expected downloaded copy to count as cached")
	}
	if ok, _ := lib.IsCached(ctx, remote, player.QualitySuper); ok {
		t.Error("expected other qualities not cached")
	}
}

func TestResolveUnsupportedScheme(t *testing.T) {
	lib, _ := newLibrary(t)

	_, err := lib.Resolve(context.Background(), track.Track{URI: "smb://nas/a.flac"}, player.QualityStandard)
	if !errors.Is(err, media.ErrUnsupportedURI) {
		t.Errorf("expected ErrUnsupportedURI, got %v", err)
	}
}
