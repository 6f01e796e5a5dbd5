package usecase

import (
	"testing"
	"time"

	"github.com/riskibarqy/livescore/internal/domain/match"
)

func TestComputeFingerprint_StableForEqualSnapshots(t *testing.T) {
	t.Parallel()

	a := liveSnapshot(41, 2, "4.4")
	b := liveSnapshot(41, 2, "4.4")
	b.FetchedAt = time.Now()
	b.Commentary = []match.CommentaryEvent{{InningsID: 1, Text: "Wood to Gill, no run"}}

	fa, fb := ComputeFingerprint(a), ComputeFingerprint(b)
	if fa != fb {
		t.Fatalf("expected equal fingerprints for equal salient fields: %s vs %s", fa, fb)
	}
	if len(fa) != 16 {
		t.Fatalf("expected 16 hex chars, got %q", fa)
	}
}

func TestComputeFingerprint_ChangesOnSalientFields(t *testing.T) {
	t.Parallel()

	base := liveSnapshot(41, 2, "4.4")
	baseFP := ComputeFingerprint(base)

	cases := map[string]func(*match.Snapshot){
		"score":         func(s *match.Snapshot) { s.Live.Score++ },
		"wickets":       func(s *match.Snapshot) { s.Live.Wickets++ },
		"overs":         func(s *match.Snapshot) { s.Live.Overs = "4.5" },
		"striker":       func(s *match.Snapshot) { s.Live.Striker.Runs++ },
		"non striker":   func(s *match.Snapshot) { s.Live.NonStriker.Runs++ },
		"bowler":        func(s *match.Snapshot) { s.Live.Bowler.Runs++ },
		"recent balls":  func(s *match.Snapshot) { s.Live.RecentBalls = "... 1 4 | 0 1 W 4" },
		"status":        func(s *match.Snapshot) { s.Header.Status = "Rain stops play" },
		"state only":    func(s *match.Snapshot) { s.Header.State = "Complete" },
		"innings break": func(s *match.Snapshot) { s.Header.State = "Innings Break" },
	}
	for name, mutate := range cases {
		name, mutate := name, mutate
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			next := liveSnapshot(41, 2, "4.4")
			mutate(&next)
			if got := ComputeFingerprint(next); got == baseFP {
				t.Fatalf("expected fingerprint to change on %s", name)
			}
		})
	}
}

func TestShouldCommit_StateOnlyTransition(t *testing.T) {
	t.Parallel()

	live := liveSnapshot(180, 6, "20")
	prev, _ := ShouldCommit("", live)

	finished := liveSnapshot(180, 6, "20")
	finished.Header.State = "Complete"
	if _, commit := ShouldCommit(prev, finished); !commit {
		t.Fatalf("expected a live to complete transition to commit")
	}

	respelled := liveSnapshot(180, 6, "20")
	respelled.Header.State = "  in   progress "
	if _, commit := ShouldCommit(prev, respelled); commit {
		t.Fatalf("expected a reformatted state in the same phase not to commit")
	}
}

func TestChangeDetector_CommitsOnceForRepeatedSnapshots(t *testing.T) {
	t.Parallel()

	detector := NewChangeDetector()
	snapshot := liveSnapshot(41, 2, "4.4")

	commits := 0
	for i := 0; i < 5; i++ {
		fp, changed := detector.Check(snapshot)
		if changed {
			commits++
			detector.Advance(fp)
		}
	}
	if commits != 1 {
		t.Fatalf("expected exactly 1 commit, got=%d", commits)
	}

	if _, changed := detector.Check(liveSnapshot(45, 2, "4.5")); !changed {
		t.Fatalf("expected changed snapshot to be reported")
	}
}

func TestChangeDetector_CheckDoesNotAdvance(t *testing.T) {
	t.Parallel()

	detector := NewChangeDetector()
	snapshot := liveSnapshot(41, 2, "4.4")

	if _, changed := detector.Check(snapshot); !changed {
		t.Fatalf("expected first snapshot to be a change")
	}
	if _, changed := detector.Check(snapshot); !changed {
		t.Fatalf("expected change to persist until Advance")
	}
	if detector.Last() != "" {
		t.Fatalf("expected empty fingerprint before Advance, got %q", detector.Last())
	}

	fp, _ := detector.Check(snapshot)
	detector.Advance(fp)
	detector.Reset()
	if _, changed := detector.Check(snapshot); !changed {
		t.Fatalf("expected change after Reset")
	}
}
