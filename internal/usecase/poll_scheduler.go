package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/riskibarqy/livescore/internal/platform/logging"
)

type SchedulerState string

const (
	SchedulerIdle   SchedulerState = "idle"
	SchedulerActive SchedulerState = "active"
	SchedulerPaused SchedulerState = "paused"
)

// PollCycle performs one fetch-and-commit cycle. ctx carries the fetch deadline.
type PollCycle func(ctx context.Context) error

type PollSchedulerConfig struct {
	Cycle        PollCycle
	Interval     func() time.Duration
	FetchTimeout time.Duration
	Clock        Clock
	Logger       *logging.Logger
}

// PollScheduler runs cycles on a single re-armable timer. Cycles run serially
// on one goroutine, so at most one fetch is in flight.
type PollScheduler struct {
	cycle        PollCycle
	interval     func() time.Duration
	fetchTimeout time.Duration
	clock        Clock
	logger       *logging.Logger

	alive atomic.Bool
	wake  chan struct{}
	done  chan struct{}

	mu          sync.Mutex
	state       SchedulerState
	wantVisible bool
	started     bool
	stopped     bool
	cancel      context.CancelFunc
}

func NewPollScheduler(cfg PollSchedulerConfig) *PollScheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = NewRealClock()
	}
	interval := cfg.Interval
	if interval == nil {
		interval = func() time.Duration { return defaultUpcomingInterval }
	}
	fetchTimeout := cfg.FetchTimeout
	if fetchTimeout <= 0 {
		fetchTimeout = defaultFetchTimeout
	}
	cycle := cfg.Cycle
	if cycle == nil {
		cycle = func(context.Context) error { return nil }
	}

	return &PollScheduler{
		cycle:        cycle,
		interval:     interval,
		fetchTimeout: fetchTimeout,
		clock:        clock,
		logger:       logger,
		wake:         make(chan struct{}, 1),
		done:         make(chan struct{}),
		state:        SchedulerIdle,
		wantVisible:  true,
	}
}

// Start runs one cycle immediately and then keeps polling until Stop or ctx
// is cancelled. Calling Start more than once is a no-op.
func (s *PollScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	if s.wantVisible {
		s.state = SchedulerActive
	} else {
		s.state = SchedulerPaused
	}
	s.alive.Store(true)
	s.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.done:
		}
	}()
	go s.run(runCtx)
}

// SetVisible pauses or resumes polling. It never blocks on an in-flight cycle.
func (s *PollScheduler) SetVisible(visible bool) {
	s.mu.Lock()
	s.wantVisible = visible
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Stop tears the scheduler down. In-flight work is cancelled and its result
// must be discarded by the cycle via Alive.
func (s *PollScheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.alive.Store(false)
	s.state = SchedulerIdle
	cancel := s.cancel
	started := s.started
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if !started {
		close(s.done)
	}
}

func (s *PollScheduler) Alive() bool {
	return s.alive.Load()
}

func (s *PollScheduler) State() SchedulerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Done is closed once the poll loop has exited.
func (s *PollScheduler) Done() <-chan struct{} {
	return s.done
}

func (s *PollScheduler) run(ctx context.Context) {
	defer close(s.done)

	visible := s.visible()
	var timer Timer
	if visible {
		s.runCycle(ctx)
		timer = s.clock.NewTimer(s.interval())
	}
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		var tick <-chan time.Time
		if visible && timer != nil {
			tick = timer.C()
		}

		select {
		case <-ctx.Done():
			return
		case <-s.wake:
			next := s.visible()
			if next == visible {
				continue
			}
			visible = next
			if !visible {
				if timer != nil {
					timer.Stop()
				}
				s.setState(SchedulerPaused)
				continue
			}
			s.setState(SchedulerActive)
			s.runCycle(ctx)
			timer = s.arm(timer)
		case <-tick:
			s.runCycle(ctx)
			timer = s.arm(timer)
		}
	}
}

// arm re-arms the timer from the current interval so a phase change applied
// by the last cycle takes effect on the very next tick.
func (s *PollScheduler) arm(timer Timer) Timer {
	interval := s.interval()
	if timer == nil {
		return s.clock.NewTimer(interval)
	}
	timer.Stop()
	timer.Reset(interval)
	return timer
}

func (s *PollScheduler) runCycle(ctx context.Context) {
	if !s.alive.Load() || ctx.Err() != nil {
		return
	}

	cycleCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	if err := s.cycle(cycleCtx); err != nil && s.alive.Load() {
		s.logger.DebugContext(ctx, "poll cycle failed", "error", err)
	}
}

func (s *PollScheduler) visible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wantVisible
}

func (s *PollScheduler) setState(state SchedulerState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.state = state
}
