package usecase

import (
	"sync"
	"time"

	"github.com/riskibarqy/livescore/internal/domain/match"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
	armed  []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) NewTimer(d time.Duration) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, ch: make(chan time.Time, 1), deadline: c.now.Add(d), active: true}
	c.timers = append(c.timers, t)
	c.armed = append(c.armed, d)
	return t
}

// Advance moves time forward and fires every timer whose deadline passed.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	for _, t := range c.timers {
		if t.active && !t.deadline.After(c.now) {
			t.active = false
			select {
			case t.ch <- c.now:
			default:
			}
		}
	}
}

func (c *fakeClock) ActiveTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if t.active {
			n++
		}
	}
	return n
}

func (c *fakeClock) LastArmed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.armed) == 0 {
		return 0
	}
	return c.armed[len(c.armed)-1]
}

type fakeTimer struct {
	clock    *fakeClock
	ch       chan time.Time
	deadline time.Time
	active   bool
}

func (t *fakeTimer) C() <-chan time.Time {
	return t.ch
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := t.active
	t.active = false
	t.drain()
	return was
}

func (t *fakeTimer) Reset(d time.Duration) bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := t.active
	t.active = true
	t.deadline = t.clock.now.Add(d)
	t.clock.armed = append(t.clock.armed, d)
	t.drain()
	return was
}

func (t *fakeTimer) drain() {
	select {
	case <-t.ch:
	default:
	}
}

func liveSnapshot(score, wickets int, overs string) match.Snapshot {
	return match.Snapshot{
		Header: match.Header{
			MatchID: "41881",
			State:   "In Progress",
			Status:  "India opt to bat",
			Team1:   match.Team{ID: "2", Name: "India", ShortName: "IND"},
			Team2:   match.Team{ID: "9", Name: "England", ShortName: "ENG"},
		},
		Innings: []match.Innings{{InningsID: 1, BattingTeam: "IND", Score: score, Wickets: wickets, Overs: overs}},
		Live: match.MiniScore{
			BattingTeam: "IND",
			Score:       score,
			Wickets:     wickets,
			Overs:       overs,
			Striker:     match.Batter{Name: "Gill", Runs: 20},
			NonStriker:  match.Batter{Name: "Rohit", Runs: 18},
			Bowler:      match.Bowler{Name: "Wood", Overs: "3", Runs: 22, Wickets: 1},
			RecentBalls: "... 1 4 | 0 1 W",
		},
	}
}
