package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riskibarqy/livescore/internal/domain/match"
	matchmock "github.com/riskibarqy/livescore/internal/mocks/domain/match"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type updateRecorder struct {
	mu      sync.Mutex
	updates []Update
}

func (r *updateRecorder) record(u Update) {
	r.mu.Lock()
	r.updates = append(r.updates, u)
	r.mu.Unlock()
}

func (r *updateRecorder) snapshot() []Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Update, len(r.updates))
	copy(out, r.updates)
	return out
}

func newTestSession(t *testing.T, feed match.Feed, clock *fakeClock) *MatchSession {
	t.Helper()

	session, err := NewMatchSession(MatchSessionConfig{
		MatchID: "41881",
		Feed:    feed,
		Cadence: NewCadence(DefaultCadenceConfig()),
		Clock:   clock,
	})
	if err != nil {
		t.Fatalf("new match session: %v", err)
	}
	t.Cleanup(func() {
		session.Stop()
		<-session.Done()
	})
	return session
}

func TestMatchSession_IdenticalSnapshotsCommitOnce(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	feed := matchmock.NewFeed(t)
	var fetches atomic.Int32
	feed.On("FetchMatch", mock.Anything, "41881").
		Run(func(mock.Arguments) { fetches.Add(1) }).
		Return(liveSnapshot(41, 2, "4.4"), nil).
		Times(3)

	session := newTestSession(t, feed, clock)
	var recorder updateRecorder
	session.Subscribe(recorder.record)

	session.Start(context.Background())
	require.Eventually(t, func() bool { return fetches.Load() == 1 && clock.ActiveTimers() == 1 }, waitFor, time.Millisecond)

	for want := int32(2); want <= 3; want++ {
		clock.Advance(time.Second)
		require.Eventually(t, func() bool { return fetches.Load() == want && clock.ActiveTimers() == 1 }, waitFor, time.Millisecond)
	}

	updates := recorder.snapshot()
	if len(updates) != 1 {
		t.Fatalf("expected exactly 1 committed update, got=%d", len(updates))
	}
	if updates[0].Kind != UpdateCommitted || updates[0].Phase != match.PhaseLive {
		t.Fatalf("unexpected update: %+v", updates[0])
	}
	snapshot, ok := session.CurrentSnapshot()
	if !ok || snapshot.Live.Score != 41 {
		t.Fatalf("expected committed snapshot, got ok=%v score=%d", ok, snapshot.Live.Score)
	}
}

func TestMatchSession_FirstLoadFailureThenRecovery(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	feed := matchmock.NewFeed(t)
	var fetches atomic.Int32
	feed.On("FetchMatch", mock.Anything, "41881").
		Run(func(mock.Arguments) { fetches.Add(1) }).
		Return(match.Snapshot{}, ErrDependencyUnavailable).
		Once()
	feed.On("FetchMatch", mock.Anything, "41881").
		Run(func(mock.Arguments) { fetches.Add(1) }).
		Return(liveSnapshot(0, 0, "0.0"), nil).
		Once()

	session := newTestSession(t, feed, clock)
	var recorder updateRecorder
	session.Subscribe(recorder.record)

	session.Start(context.Background())
	require.Eventually(t, func() bool { return fetches.Load() == 1 && clock.ActiveTimers() == 1 }, waitFor, time.Millisecond)

	if err := session.LoadError(); !errors.Is(err, ErrDependencyUnavailable) {
		t.Fatalf("expected load error, got %v", err)
	}

	clock.Advance(defaultUpcomingInterval)
	require.Eventually(t, func() bool { return fetches.Load() == 2 && clock.ActiveTimers() == 1 }, waitFor, time.Millisecond)

	if err := session.LoadError(); err != nil {
		t.Fatalf("expected load error cleared after success, got %v", err)
	}
	updates := recorder.snapshot()
	if len(updates) != 2 {
		t.Fatalf("expected 2 updates, got=%d", len(updates))
	}
	if updates[0].Kind != UpdateLoadFailed || updates[1].Kind != UpdateCommitted {
		t.Fatalf("unexpected update kinds: %s, %s", updates[0].Kind, updates[1].Kind)
	}
}

func TestMatchSession_StopDiscardsInFlightFetch(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	feed := matchmock.NewFeed(t)
	var fetches atomic.Int32
	release := make(chan struct{})
	feed.On("FetchMatch", mock.Anything, "41881").
		Run(func(mock.Arguments) {
			fetches.Add(1)
			<-release
		}).
		Return(liveSnapshot(41, 2, "4.4"), nil).
		Once()

	session := newTestSession(t, feed, clock)
	var recorder updateRecorder
	session.Subscribe(recorder.record)

	session.Start(context.Background())
	require.Eventually(t, func() bool { return fetches.Load() == 1 }, waitFor, time.Millisecond)

	session.Stop()
	close(release)

	select {
	case <-session.Done():
	case <-time.After(waitFor):
		t.Fatalf("session did not stop")
	}
	if _, ok := session.CurrentSnapshot(); ok {
		t.Fatalf("fetch resolved after Stop must not be committed")
	}
	if got := len(recorder.snapshot()); got != 0 {
		t.Fatalf("expected no notifications after Stop, got=%d", got)
	}
}

func TestMatchSession_PhaseChangeRearmsCadence(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	feed := matchmock.NewFeed(t)
	var fetches atomic.Int32

	complete := liveSnapshot(180, 6, "20")
	complete.Header.State = "Complete"
	complete.Header.Status = "India won by 4 wkts"

	feed.On("FetchMatch", mock.Anything, "41881").
		Run(func(mock.Arguments) { fetches.Add(1) }).
		Return(liveSnapshot(170, 6, "19.4"), nil).
		Once()
	feed.On("FetchMatch", mock.Anything, "41881").
		Run(func(mock.Arguments) { fetches.Add(1) }).
		Return(complete, nil).
		Once()

	session := newTestSession(t, feed, clock)
	session.Start(context.Background())
	require.Eventually(t, func() bool { return fetches.Load() == 1 && clock.ActiveTimers() == 1 }, waitFor, time.Millisecond)
	if got := clock.LastArmed(); got != time.Second {
		t.Fatalf("expected live cadence, got=%s", got)
	}

	clock.Advance(time.Second)
	require.Eventually(t, func() bool { return fetches.Load() == 2 && clock.ActiveTimers() == 1 }, waitFor, time.Millisecond)
	if got := clock.LastArmed(); got != defaultCompleteInterval {
		t.Fatalf("expected complete cadence, got=%s", got)
	}
	if session.LifecyclePhase() != match.PhaseComplete {
		t.Fatalf("expected complete phase, got=%s", session.LifecyclePhase())
	}
}

func TestMatchSession_StateOnlyTransitionSlowsCadence(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	feed := matchmock.NewFeed(t)
	var fetches atomic.Int32

	complete := liveSnapshot(170, 6, "19.4")
	complete.Header.State = "Complete"

	feed.On("FetchMatch", mock.Anything, "41881").
		Run(func(mock.Arguments) { fetches.Add(1) }).
		Return(liveSnapshot(170, 6, "19.4"), nil).
		Once()
	feed.On("FetchMatch", mock.Anything, "41881").
		Run(func(mock.Arguments) { fetches.Add(1) }).
		Return(complete, nil).
		Once()

	session := newTestSession(t, feed, clock)
	var recorder updateRecorder
	session.Subscribe(recorder.record)
	session.Start(context.Background())
	require.Eventually(t, func() bool { return fetches.Load() == 1 && clock.ActiveTimers() == 1 }, waitFor, time.Millisecond)

	clock.Advance(time.Second)
	require.Eventually(t, func() bool { return fetches.Load() == 2 && clock.ActiveTimers() == 1 }, waitFor, time.Millisecond)
	if got := clock.LastArmed(); got != defaultCompleteInterval {
		t.Fatalf("expected complete cadence after a state-only change, got=%s", got)
	}
	if session.LifecyclePhase() != match.PhaseComplete {
		t.Fatalf("expected complete phase, got=%s", session.LifecyclePhase())
	}
	updates := recorder.snapshot()
	if len(updates) != 2 || updates[1].Phase != match.PhaseComplete {
		t.Fatalf("expected the state change to be delivered, got %+v", updates)
	}
}

func TestMatchSession_CommitRefusedAfterStop(t *testing.T) {
	t.Parallel()

	feed := matchmock.NewFeed(t)
	session := newTestSession(t, feed, newFakeClock())
	var recorder updateRecorder
	session.Subscribe(recorder.record)

	session.Stop()

	snapshot := liveSnapshot(41, 2, "4.4")
	fp, _ := ShouldCommit("", snapshot)
	if session.commit(context.Background(), snapshot, nil, fp, 0) {
		t.Fatalf("expected commit after Stop to be refused")
	}
	if _, ok := session.CurrentSnapshot(); ok {
		t.Fatalf("refused commit must not store the snapshot")
	}
	if session.detector.Last() != "" {
		t.Fatalf("refused commit must not advance the fingerprint")
	}
	if got := len(recorder.snapshot()); got != 0 {
		t.Fatalf("expected no notifications, got=%d", got)
	}
}

func TestMatchSession_UnsubscribeStopsDelivery(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	feed := matchmock.NewFeed(t)
	var fetches atomic.Int32
	feed.On("FetchMatch", mock.Anything, "41881").
		Run(func(mock.Arguments) { fetches.Add(1) }).
		Return(liveSnapshot(41, 2, "4.4"), nil).
		Once()

	session := newTestSession(t, feed, clock)
	var recorder updateRecorder
	unsubscribe := session.Subscribe(recorder.record)
	unsubscribe()
	unsubscribe()

	session.Start(context.Background())
	require.Eventually(t, func() bool { return fetches.Load() == 1 && clock.ActiveTimers() == 1 }, waitFor, time.Millisecond)
	if got := len(recorder.snapshot()); got != 0 {
		t.Fatalf("expected no updates after unsubscribe, got=%d", got)
	}
}

func TestNewMatchSession_Validation(t *testing.T) {
	t.Parallel()

	if _, err := NewMatchSession(MatchSessionConfig{Feed: matchmock.NewFeed(t)}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for missing id, got %v", err)
	}
	if _, err := NewMatchSession(MatchSessionConfig{MatchID: "41881"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for missing feed, got %v", err)
	}
}
