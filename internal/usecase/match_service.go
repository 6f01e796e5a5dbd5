package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/riskibarqy/livescore/internal/domain/commentary"
	"github.com/riskibarqy/livescore/internal/domain/match"
	"github.com/riskibarqy/livescore/internal/platform/cache"
	"github.com/riskibarqy/livescore/internal/platform/logging"
)

const listingCacheKey = "matches:list"

// MatchView is a read of one match: the committed session state when the
// match is being watched, otherwise a direct provider read.
type MatchView struct {
	Snapshot match.Snapshot
	Overs    []commentary.Over
	Phase    match.Phase
	Watched  bool
}

type MatchServiceConfig struct {
	ListingTTL time.Duration
}

type MatchService struct {
	feed     match.Feed
	registry *WatchRegistry
	listing  *cache.Store[[]match.Summary]
	logger   *logging.Logger
}

func NewMatchService(feed match.Feed, registry *WatchRegistry, cfg MatchServiceConfig, logger *logging.Logger) *MatchService {
	if logger == nil {
		logger = logging.Default()
	}
	ttl := cfg.ListingTTL
	if ttl <= 0 {
		ttl = defaultListingCacheDuration
	}
	return &MatchService{
		feed:     feed,
		registry: registry,
		listing:  cache.NewStore[[]match.Summary](ttl),
		logger:   logger,
	}
}

// ListMatches returns the provider's current match list ordered live first,
// then by start time.
func (s *MatchService) ListMatches(ctx context.Context) ([]match.Summary, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchService.ListMatches")
	defer span.End()

	items, err := s.listing.GetOrLoad(ctx, listingCacheKey, func(ctx context.Context) ([]match.Summary, error) {
		loaded, err := s.feed.ListMatches(ctx)
		if err != nil {
			return nil, err
		}
		sortSummaries(loaded)
		return loaded, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}

	out := make([]match.Summary, len(items))
	copy(out, items)
	return out, nil
}

func (s *MatchService) GetMatch(ctx context.Context, matchID string) (MatchView, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchService.GetMatch")
	defer span.End()

	matchID = strings.TrimSpace(matchID)
	if !matchIDRegex.MatchString(matchID) {
		return MatchView{}, fmt.Errorf("%w: invalid match id %q", ErrInvalidInput, matchID)
	}

	if s.registry != nil {
		if session, ok := s.registry.Lookup(matchID); ok {
			if snapshot, ok := session.CurrentSnapshot(); ok {
				return MatchView{
					Snapshot: snapshot,
					Overs:    session.OverHistory(),
					Phase:    session.LifecyclePhase(),
					Watched:  true,
				}, nil
			}
		}
	}

	snapshot, err := s.feed.FetchMatch(ctx, matchID)
	if err != nil {
		s.logger.WarnContext(ctx, "direct match fetch failed", "match_id", matchID, "error", err)
		return MatchView{}, fmt.Errorf("get match id=%s: %w", matchID, err)
	}

	return MatchView{
		Snapshot: snapshot,
		Overs:    commentary.Reconstruct(snapshot.Commentary, snapshot),
		Phase:    snapshot.Phase(),
	}, nil
}

func (s *MatchService) InvalidateListing(ctx context.Context) {
	s.listing.Delete(ctx, listingCacheKey)
}

func sortSummaries(items []match.Summary) {
	rank := func(p match.Phase) int {
		switch p {
		case match.PhaseLive:
			return 0
		case match.PhaseBreak:
			return 1
		case match.PhaseUpcoming:
			return 2
		default:
			return 3
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		ri, rj := rank(items[i].Phase()), rank(items[j].Phase())
		if ri != rj {
			return ri < rj
		}
		if !items[i].StartAt.Equal(items[j].StartAt) {
			return items[i].StartAt.Before(items[j].StartAt)
		}
		return items[i].MatchID < items[j].MatchID
	})
}
