package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/riskibarqy/livescore/internal/domain/match"
	matchmock "github.com/riskibarqy/livescore/internal/mocks/domain/match"
	"github.com/stretchr/testify/mock"
)

func TestPooledFeed_PassesThroughResults(t *testing.T) {
	t.Parallel()

	feed := matchmock.NewFeed(t)
	feed.On("FetchMatch", mock.Anything, "41881").Return(liveSnapshot(41, 2, "4.4"), nil).Once()
	feed.On("ListMatches", mock.Anything).Return(nil, ErrDependencyUnavailable).Once()

	pooled, err := NewPooledFeed(feed, 2)
	if err != nil {
		t.Fatalf("new pooled feed: %v", err)
	}
	t.Cleanup(pooled.Release)

	snapshot, err := pooled.FetchMatch(context.Background(), "41881")
	if err != nil {
		t.Fatalf("fetch match: %v", err)
	}
	if snapshot.Live.Score != 41 {
		t.Fatalf("unexpected score: %d", snapshot.Live.Score)
	}

	if _, err := pooled.ListMatches(context.Background()); !errors.Is(err, ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable, got %v", err)
	}
}

func TestPooledFeed_SkipsCancelledContext(t *testing.T) {
	t.Parallel()

	pooled, err := NewPooledFeed(matchmock.NewFeed(t), 1)
	if err != nil {
		t.Fatalf("new pooled feed: %v", err)
	}
	t.Cleanup(pooled.Release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := pooled.FetchMatch(ctx, "41881"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewPooledFeed_RequiresFeed(t *testing.T) {
	t.Parallel()

	var feed match.Feed
	if _, err := NewPooledFeed(feed, 1); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
