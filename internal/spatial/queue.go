package spatial

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Reindexer pushes one resource back into the search index.
type Reindexer interface {
	Reindex(ctx context.Context, resourceID uuid.UUID) error
}

// ReindexQueue collects resources whose index entries went stale after
// a spatial join. Draining is at-least-once: a resource that fails to
// reindex stays queued for the next drain, because stale index entries
// make permission rules under- or over-grant.
type ReindexQueue struct {
	mu      sync.Mutex
	pending map[uuid.UUID]int
	log     zerolog.Logger
}

func NewReindexQueue(log zerolog.Logger) *ReindexQueue {
	return &ReindexQueue{
		pending: make(map[uuid.UUID]int),
		log:     log,
	}
}

func (q *ReindexQueue) Enqueue(resourceID uuid.UUID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending[resourceID]++
}

// Len reports how many resources are waiting.
func (q *ReindexQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Drain attempts every pending resource once. Failures are logged and
// re-enqueued with their attempt count kept.
func (q *ReindexQueue) Drain(ctx context.Context, indexer Reindexer) {
	q.mu.Lock()
	batch := q.pending
	q.pending = make(map[uuid.UUID]int)
	q.mu.Unlock()

	for id, attempts := range batch {
		if err := indexer.Reindex(ctx, id); err != nil {
			q.log.Error().
				Err(err).
				Str("resource_id", id.String()).
				Int("attempts", attempts).
				Msg("reindex failed, will retry")
			q.mu.Lock()
			q.pending[id] += attempts
			q.mu.Unlock()
			continue
		}
		q.log.Debug().Str("resource_id", id.String()).Msg("resource reindexed")
	}
}
