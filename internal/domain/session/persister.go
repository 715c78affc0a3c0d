package session

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-offline-player/internal/domain/player"
	"github.com/edumarques81/stellar-offline-player/internal/worker"
)

// persister writes state snapshots in the background. The latest snapshot
// wins: a newer save cancels the one in flight and stale jobs are skipped.
type persister struct {
	ps   *player.PersistentState
	pool *worker.Pool

	seq    atomic.Uint64
	saveMu sync.Mutex

	mu     sync.Mutex
	cancel context.CancelFunc
	closed bool
}

func newPersister(ps *player.PersistentState, pool *worker.Pool) *persister {
	return &persister{ps: ps, pool: pool}
}

func (p *persister) save(s player.State) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	if p.cancel != nil {
		p.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	seq := p.seq.Add(1)
	p.mu.Unlock()

	p.pool.Go(ctx, func(ctx context.Context) {
		p.saveMu.Lock()
		defer p.saveMu.Unlock()
		if p.seq.Load() != seq {
			return
		}
		if err := p.ps.Save(ctx, s); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("Failed to persist player state")
		}
	})
}

// flush cancels pending saves and writes s synchronously.
func (p *persister) flush(s player.State) {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.seq.Add(1)
	p.mu.Unlock()

	p.saveMu.Lock()
	defer p.saveMu.Unlock()
	if err := p.ps.Save(context.Background(), s); err != nil {
		log.Error().Err(err).Msg("Failed to persist player state")
	}
}

func (p *persister) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}
