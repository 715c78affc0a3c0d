package player_test

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/edumarques81/stellar-offline-player/internal/domain/player"
)

type fixedRand []int

func (f *fixedRand) IntN(n int) int {
	v := (*f)[0]
	*f = (*f)[1:]
	return v % n
}

func TestNextPosition(t *testing.T) {
	tests := []struct {
		name    string
		mode    player.PlayMode
		current int
		confirm bool
		want    int
	}{
		{"playlist loop advances", player.ModePlaylistLoop, 1, false, 2},
		{"playlist loop wraps", player.ModePlaylistLoop, 4, false, 0},
		{"loop stays", player.ModeLoop, 3, false, 3},
		{"single once advances", player.ModeSingleOnce, 2, false, 3},
		{"confirm overrides shuffle", player.ModeShuffle, 2, true, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := player.NextPosition(tt.mode, tt.current, 5, tt.confirm, nil)
			if got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestPreviousPosition(t *testing.T) {
	tests := []struct {
		name    string
		mode    player.PlayMode
		current int
		want    int
	}{
		{"playlist loop steps back", player.ModePlaylistLoop, 2, 1},
		{"playlist loop wraps", player.ModePlaylistLoop, 0, 4},
		{"loop stays", player.ModeLoop, 3, 3},
		{"single once rewinds to start", player.ModeSingleOnce, 3, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := player.PreviousPosition(tt.mode, tt.current, 5, nil)
			if got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestRandomPositionExcludesCurrent(t *testing.T) {
	rnd := fixedRand{2, 2, 2, 4}
	if got := player.RandomPosition(5, 2, &rnd); got != 4 {
		t.Errorf("expected 4, got %d", got)
	}
}

func TestRandomPositionSingleTrack(t *testing.T) {
	rnd := rand.New(rand.NewPCG(1, 2))
	for range 10 {
		if got := player.NextPosition(player.ModeShuffle, 0, 1, false, rnd); got != 0 {
			t.Fatalf("expected 0, got %d", got)
		}
	}
}

func TestShuffleNeverRepeatsCurrent(t *testing.T) {
	rnd := rand.New(rand.NewPCG(7, 7))
	for i := range 200 {
		cur := i % 6
		if got := player.NextPosition(player.ModeShuffle, cur, 6, false, rnd); got == cur {
			t.Fatalf("expected a different index than %d", cur)
		}
	}
}

// Moving any track must keep the current track at the returned index.
func TestMovedPositionKeepsCurrentTrack(t *testing.T) {
	const size = 6
	for from := range size {
		for to := range size {
			for cur := range size {
				list := make([]int, size)
				for i := range list {
					list[i] = i
				}
				playing := list[cur]

				moved := slices.Delete(slices.Clone(list), from, from+1)
				moved = slices.Insert(moved, to, list[from])

				got := player.MovedPosition(cur, from, to)
				if moved[got] != playing {
					t.Fatalf("move(%d,%d) cur=%d: index %d holds %d, want %d",
						from, to, cur, got, moved[got], playing)
				}
			}
		}
	}
}

func TestInsertedPosition(t *testing.T) {
	if got := player.InsertedPosition(3, 3); got != 4 {
		t.Errorf("expected 4, got %d", got)
	}
	if got := player.InsertedPosition(3, 1); got != 4 {
		t.Errorf("expected 4, got %d", got)
	}
	if got := player.InsertedPosition(3, 5); got != 3 {
		t.Errorf("expected 3, got %d", got)
	}
}

func TestRemovedPosition(t *testing.T) {
	tests := []struct {
		name        string
		current     int
		pos         int
		want        int
		wantCurrent bool
	}{
		{"before current", 3, 1, 2, false},
		{"after current", 3, 5, 3, false},
		{"current", 3, 3, 2, true},
		{"first current", 0, 0, -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, removed := player.RemovedPosition(tt.current, tt.pos)
			if got != tt.want || removed != tt.wantCurrent {
				t.Errorf("expected (%d,%v), got (%d,%v)", tt.want, tt.wantCurrent, got, removed)
			}
		})
	}
}
