package player

// Rand draws uniformly distributed ints in [0, n).
type Rand interface {
	IntN(n int) int
}

// NextPosition resolves the index after current for the mode.
// confirmNext forces the sequential successor regardless of mode; it is set
// by "play next" so the inserted track wins over shuffle.
func NextPosition(mode PlayMode, current, size int, confirmNext bool, rnd Rand) int {
	if size <= 0 {
		return 0
	}
	if mode == ModeLoop {
		return current
	}
	if confirmNext || mode == ModePlaylistLoop || mode == ModeSingleOnce {
		next := current + 1
		if next >= size {
			return 0
		}
		return next
	}
	return RandomPosition(size, current, rnd)
}

// PreviousPosition resolves the index before current for the mode.
func PreviousPosition(mode PlayMode, current, size int, rnd Rand) int {
	if size <= 0 {
		return 0
	}
	switch mode {
	case ModeLoop:
		return current
	case ModeShuffle:
		return RandomPosition(size, current, rnd)
	case ModeSingleOnce:
		return 0
	default:
		prev := current - 1
		if prev < 0 {
			return size - 1
		}
		return prev
	}
}

// RandomPosition draws an index different from exclude. Playlists with
// fewer than two tracks always yield 0.
func RandomPosition(size, exclude int, rnd Rand) int {
	if size < 2 {
		return 0
	}
	for {
		p := rnd.IntN(size)
		if p != exclude {
			return p
		}
	}
}

// MovedPosition returns the current index after moving the track at from to
// index to. The track that was current stays current.
func MovedPosition(current, from, to int) int {
	if from == current {
		return to
	}
	low, high := from, to
	if low > high {
		low, high = high, low
	}
	if current < low || current > high {
		return current
	}
	if from < current {
		return current - 1
	}
	return current + 1
}

// InsertedPosition returns the current index after inserting at pos.
func InsertedPosition(current, pos int) int {
	if pos <= current {
		return current + 1
	}
	return current
}

// RemovedPosition returns the current index after removing the track at
// pos, and whether the removed track was the current one. When it was, the
// returned index is the predecessor; callers pick the successor from there.
func RemovedPosition(current, pos int) (int, bool) {
	switch {
	case pos < current:
		return current - 1, false
	case pos == current:
		return current - 1, true
	default:
		return current, false
	}
}
