package usecase

import (
	"context"
	"fmt"

	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/livescore/internal/domain/match"
)

// PooledFeed bounds the number of concurrent provider requests across all
// sessions with a shared worker pool.
type PooledFeed struct {
	feed match.Feed
	pool *ants.Pool
}

func NewPooledFeed(feed match.Feed, size int) (*PooledFeed, error) {
	if feed == nil {
		return nil, fmt.Errorf("%w: feed is required", ErrInvalidInput)
	}
	if size < 1 {
		size = 1
	}
	pool, err := ants.NewPool(size)
	if err != nil {
		return nil, fmt.Errorf("create fetch pool: %w", err)
	}
	return &PooledFeed{feed: feed, pool: pool}, nil
}

func (p *PooledFeed) FetchMatch(ctx context.Context, matchID string) (match.Snapshot, error) {
	return submitToPool(ctx, p.pool, func(ctx context.Context) (match.Snapshot, error) {
		return p.feed.FetchMatch(ctx, matchID)
	})
}

func (p *PooledFeed) ListMatches(ctx context.Context) ([]match.Summary, error) {
	return submitToPool(ctx, p.pool, func(ctx context.Context) ([]match.Summary, error) {
		return p.feed.ListMatches(ctx)
	})
}

func (p *PooledFeed) Running() int {
	return p.pool.Running()
}

func (p *PooledFeed) Release() {
	p.pool.Release()
}

type poolResult[T any] struct {
	value T
	err   error
}

func submitToPool[T any](ctx context.Context, pool *ants.Pool, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	results := make(chan poolResult[T], 1)
	if err := pool.Submit(func() {
		if err := ctx.Err(); err != nil {
			results <- poolResult[T]{err: err}
			return
		}
		value, err := fn(ctx)
		results <- poolResult[T]{value: value, err: err}
	}); err != nil {
		return zero, fmt.Errorf("%w: submit fetch to worker pool: %v", ErrDependencyUnavailable, err)
	}

	select {
	case res := <-results:
		return res.value, res.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
