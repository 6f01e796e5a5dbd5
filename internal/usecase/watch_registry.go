package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/riskibarqy/livescore/internal/domain/match"
	idgen "github.com/riskibarqy/livescore/internal/platform/id"
	"github.com/riskibarqy/livescore/internal/platform/logging"
	"github.com/sourcegraph/conc"
)

var matchIDRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

type WatchRegistryConfig struct {
	Feed         match.Feed
	Cadence      Cadence
	FetchTimeout time.Duration
	IdleTimeout  time.Duration
	IDGenerator  idgen.Generator
	Observer     PollObserver
	Clock        Clock
	Logger       *logging.Logger
}

// WatchRegistry shares one MatchSession per match between all viewers. A
// session polls while at least one viewer is visible and is torn down after
// the last viewer has been gone for IdleTimeout.
type WatchRegistry struct {
	feed         match.Feed
	cadence      Cadence
	fetchTimeout time.Duration
	idleTimeout  time.Duration
	ids          idgen.Generator
	observer     PollObserver
	clock        Clock
	logger       *logging.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	entries map[string]*watchEntry
	closed  bool
}

type watchEntry struct {
	session *MatchSession
	viewers map[string]bool
	idle    *time.Timer
	idleGen uint64
}

func NewWatchRegistry(cfg WatchRegistryConfig) *WatchRegistry {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	observer := cfg.Observer
	if observer == nil {
		observer = NopPollObserver()
	}
	ids := cfg.IDGenerator
	if ids == nil {
		ids = idgen.NewUUIDGenerator()
	}
	idleTimeout := cfg.IdleTimeout
	if idleTimeout <= 0 {
		idleTimeout = defaultSessionIdleTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &WatchRegistry{
		feed:         cfg.Feed,
		cadence:      cfg.Cadence,
		fetchTimeout: cfg.FetchTimeout,
		idleTimeout:  idleTimeout,
		ids:          ids,
		observer:     observer,
		clock:        cfg.Clock,
		logger:       logger,
		ctx:          ctx,
		cancel:       cancel,
		entries:      make(map[string]*watchEntry),
	}
}

// Viewer is one attachment to a shared session.
type Viewer struct {
	id       string
	matchID  string
	session  *MatchSession
	registry *WatchRegistry
	once     sync.Once
}

func (v *Viewer) ID() string {
	return v.id
}

func (v *Viewer) MatchID() string {
	return v.matchID
}

func (v *Viewer) Session() *MatchSession {
	return v.session
}

func (v *Viewer) SetVisible(visible bool) {
	v.registry.setVisible(v.matchID, v.id, visible)
}

// Close detaches the viewer. It is safe to call more than once.
func (v *Viewer) Close() {
	v.once.Do(func() {
		v.registry.detach(v.matchID, v.id)
	})
}

// Watch attaches a viewer to the session for matchID, starting the session
// if none is running.
func (r *WatchRegistry) Watch(ctx context.Context, matchID string, visible bool) (*Viewer, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.WatchRegistry.Watch")
	defer span.End()

	matchID = strings.TrimSpace(matchID)
	if !matchIDRegex.MatchString(matchID) {
		return nil, fmt.Errorf("%w: invalid match id %q", ErrInvalidInput, matchID)
	}

	viewerID, err := r.ids.NewID()
	if err != nil {
		return nil, fmt.Errorf("generate viewer id: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrSessionClosed
	}

	entry, ok := r.entries[matchID]
	if !ok {
		session, err := NewMatchSession(MatchSessionConfig{
			MatchID:      matchID,
			Feed:         r.feed,
			Cadence:      r.cadence,
			FetchTimeout: r.fetchTimeout,
			Clock:        r.clock,
			Observer:     r.observer,
			Logger:       r.logger,
		})
		if err != nil {
			return nil, err
		}
		entry = &watchEntry{session: session, viewers: make(map[string]bool)}
		r.entries[matchID] = entry
		session.SetVisible(visible)
		session.Start(r.ctx)
		r.observer.SessionStarted(matchID)
		r.logger.InfoContext(ctx, "watch session started", "match_id", matchID)
	}

	if entry.idle != nil {
		entry.idle.Stop()
		entry.idle = nil
	}
	entry.viewers[viewerID] = visible
	entry.session.SetVisible(entry.anyVisible())

	return &Viewer{
		id:       viewerID,
		matchID:  matchID,
		session:  entry.session,
		registry: r,
	}, nil
}

func (r *WatchRegistry) Lookup(matchID string) (*MatchSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[strings.TrimSpace(matchID)]
	if !ok {
		return nil, false
	}
	return entry.session, true
}

func (r *WatchRegistry) ActiveSessions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Shutdown stops every session and waits for their poll loops to exit.
func (r *WatchRegistry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	sessions := make([]*MatchSession, 0, len(r.entries))
	for matchID, entry := range r.entries {
		if entry.idle != nil {
			entry.idle.Stop()
		}
		sessions = append(sessions, entry.session)
		delete(r.entries, matchID)
	}
	r.mu.Unlock()

	r.cancel()

	var wg conc.WaitGroup
	for _, session := range sessions {
		session := session
		wg.Go(func() {
			session.Stop()
			<-session.Done()
			r.observer.SessionStopped(session.MatchID())
		})
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown watch registry: %w", ctx.Err())
	}
}

func (r *WatchRegistry) setVisible(matchID, viewerID string, visible bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[matchID]
	if !ok {
		return
	}
	if _, attached := entry.viewers[viewerID]; !attached {
		return
	}
	entry.viewers[viewerID] = visible
	entry.session.SetVisible(entry.anyVisible())
}

func (r *WatchRegistry) detach(matchID, viewerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[matchID]
	if !ok {
		return
	}
	delete(entry.viewers, viewerID)
	entry.session.SetVisible(entry.anyVisible())
	if len(entry.viewers) > 0 || entry.idle != nil {
		return
	}

	entry.idleGen++
	gen := entry.idleGen
	entry.idle = time.AfterFunc(r.idleTimeout, func() {
		r.expire(matchID, gen)
	})
}

func (r *WatchRegistry) expire(matchID string, gen uint64) {
	r.mu.Lock()
	entry, ok := r.entries[matchID]
	if !ok || entry.idle == nil || entry.idleGen != gen || len(entry.viewers) > 0 {
		r.mu.Unlock()
		return
	}
	delete(r.entries, matchID)
	r.mu.Unlock()

	entry.session.Stop()
	r.observer.SessionStopped(matchID)
	r.logger.Info("watch session stopped", "match_id", matchID, "reason", "idle")
}

func (e *watchEntry) anyVisible() bool {
	for _, visible := range e.viewers {
		if visible {
			return true
		}
	}
	return false
}
