package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/riskibarqy/livescore/internal/domain/commentary"
	"github.com/riskibarqy/livescore/internal/domain/match"
	"github.com/riskibarqy/livescore/internal/platform/logging"
)

type UpdateKind string

const (
	UpdateCommitted  UpdateKind = "committed"
	UpdateLoadFailed UpdateKind = "load_failed"
)

// Update is delivered to subscribers once per committed cycle, and once when
// the first load fails.
type Update struct {
	Kind        UpdateKind
	MatchID     string
	Snapshot    match.Snapshot
	Overs       []commentary.Over
	Phase       match.Phase
	Fingerprint Fingerprint
	Err         error
	At          time.Time
}

type MatchSessionConfig struct {
	MatchID      string
	Feed         match.Feed
	Cadence      Cadence
	FetchTimeout time.Duration
	Clock        Clock
	Observer     PollObserver
	Logger       *logging.Logger
}

// MatchSession owns the committed state of one watched match.
type MatchSession struct {
	matchID   string
	feed      match.Feed
	cadence   Cadence
	detector  *ChangeDetector
	scheduler *PollScheduler
	observer  PollObserver
	clock     Clock
	logger    *logging.Logger

	mu          sync.RWMutex
	snapshot    match.Snapshot
	hasSnapshot bool
	overs       []commentary.Over
	phase       match.Phase
	loadErr     error
	stopped     bool

	subMu   sync.Mutex
	subs    map[uint64]func(Update)
	nextSub uint64
}

func NewMatchSession(cfg MatchSessionConfig) (*MatchSession, error) {
	if cfg.MatchID == "" {
		return nil, fmt.Errorf("%w: match id is required", ErrInvalidInput)
	}
	if cfg.Feed == nil {
		return nil, fmt.Errorf("%w: feed is required", ErrInvalidInput)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	observer := cfg.Observer
	if observer == nil {
		observer = NopPollObserver()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = NewRealClock()
	}

	s := &MatchSession{
		matchID:  cfg.MatchID,
		feed:     cfg.Feed,
		cadence:  cfg.Cadence,
		detector: NewChangeDetector(),
		observer: observer,
		clock:    clock,
		logger:   logger.ForMatch(cfg.MatchID),
		phase:    match.PhaseUpcoming,
		overs:    []commentary.Over{},
		subs:     make(map[uint64]func(Update)),
	}
	s.scheduler = NewPollScheduler(PollSchedulerConfig{
		Cycle:        s.poll,
		Interval:     s.nextInterval,
		FetchTimeout: cfg.FetchTimeout,
		Clock:        clock,
		Logger:       s.logger,
	})

	return s, nil
}

func (s *MatchSession) MatchID() string {
	return s.matchID
}

func (s *MatchSession) Start(ctx context.Context) {
	s.scheduler.Start(ctx)
}

// Stop ends polling. Once it returns no further commit or notification
// happens, even for a fetch that is still in flight.
func (s *MatchSession) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.scheduler.Stop()
}

// live must be called with s.mu held.
func (s *MatchSession) live() bool {
	return !s.stopped && s.scheduler.Alive()
}

func (s *MatchSession) isLive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.live()
}

func (s *MatchSession) SetVisible(visible bool) {
	s.scheduler.SetVisible(visible)
}

func (s *MatchSession) Done() <-chan struct{} {
	return s.scheduler.Done()
}

func (s *MatchSession) SchedulerState() SchedulerState {
	return s.scheduler.State()
}

func (s *MatchSession) CurrentSnapshot() (match.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot, s.hasSnapshot
}

func (s *MatchSession) OverHistory() []commentary.Over {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]commentary.Over, len(s.overs))
	copy(out, s.overs)
	return out
}

func (s *MatchSession) LifecyclePhase() match.Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// LoadError is non-nil while no snapshot has ever been committed and the
// last fetch failed.
func (s *MatchSession) LoadError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadErr
}

// Subscribe registers fn for committed updates and returns a function that
// removes it.
func (s *MatchSession) Subscribe(fn func(Update)) func() {
	if fn == nil {
		return func() {}
	}

	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

func (s *MatchSession) nextInterval() time.Duration {
	s.mu.RLock()
	phase, snapshot := s.phase, s.snapshot
	s.mu.RUnlock()
	return s.cadence.IntervalFor(phase, snapshot)
}

func (s *MatchSession) poll(ctx context.Context) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchSession.poll")
	defer span.End()

	started := s.clock.Now()
	snapshot, err := s.feed.FetchMatch(ctx, s.matchID)
	elapsed := s.clock.Now().Sub(started)
	if !s.isLive() {
		return nil
	}
	if err != nil {
		s.handleFetchError(ctx, err, elapsed)
		return err
	}

	fp, changed := s.detector.Check(snapshot)
	if !changed {
		s.observer.ObservePoll(s.matchID, PollUnchanged, elapsed)
		return nil
	}

	overs := commentary.Reconstruct(snapshot.Commentary, snapshot)
	s.commit(ctx, snapshot, overs, fp, elapsed)
	return nil
}

// commit publishes a changed snapshot. It reports false when the session was
// stopped first, in which case nothing is stored or delivered.
func (s *MatchSession) commit(ctx context.Context, snapshot match.Snapshot, overs []commentary.Over, fp Fingerprint, elapsed time.Duration) bool {
	phase := snapshot.Phase()

	s.mu.Lock()
	if !s.live() {
		s.mu.Unlock()
		return false
	}
	prevPhase := s.phase
	s.snapshot = snapshot
	s.hasSnapshot = true
	s.overs = overs
	s.phase = phase
	s.loadErr = nil
	s.mu.Unlock()
	s.detector.Advance(fp)

	if prevPhase != phase {
		s.logger.InfoContext(ctx, "match phase changed", "from", prevPhase, "to", phase)
	}
	s.observer.ObservePoll(s.matchID, PollCommitted, elapsed)
	if !s.isLive() {
		return true
	}
	s.notify(Update{
		Kind:        UpdateCommitted,
		MatchID:     s.matchID,
		Snapshot:    snapshot,
		Overs:       overs,
		Phase:       phase,
		Fingerprint: fp,
		At:          s.clock.Now(),
	})
	return true
}

func (s *MatchSession) handleFetchError(ctx context.Context, err error, elapsed time.Duration) {
	result := PollFailed
	if errors.Is(err, ErrMalformedPayload) {
		result = PollMalformed
	} else if errors.Is(err, context.DeadlineExceeded) {
		result = PollTimeout
	}
	s.observer.ObservePoll(s.matchID, result, elapsed)

	s.mu.Lock()
	if !s.live() {
		s.mu.Unlock()
		return
	}
	firstFailure := !s.hasSnapshot && s.loadErr == nil
	if !s.hasSnapshot {
		s.loadErr = err
	}
	s.mu.Unlock()

	s.logger.WarnContext(ctx, "fetch match failed", "result", result, "error", err)
	if firstFailure && s.isLive() {
		s.notify(Update{
			Kind:    UpdateLoadFailed,
			MatchID: s.matchID,
			Phase:   s.LifecyclePhase(),
			Err:     err,
			At:      s.clock.Now(),
		})
	}
}

func (s *MatchSession) notify(update Update) {
	s.subMu.Lock()
	ids := make([]uint64, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	fns := make([]func(Update), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.subs[id])
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(update)
	}
}
