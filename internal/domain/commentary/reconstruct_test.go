package commentary

import (
	"reflect"
	"testing"

	"github.com/riskibarqy/livescore/internal/domain/match"
)

func delivery(over float64, ball int, token, batsman, bowler string) match.CommentaryEvent {
	o := over
	b := ball
	return match.CommentaryEvent{
		InningsID:  1,
		OverNumber: &o,
		BallNumber: &b,
		EventKind:  "ball",
		Text:       bowler + " to " + batsman + ", " + token,
		RunToken:   token,
		Batsman:    batsman,
		Bowler:     bowler,
	}
}

func overBreak(summary match.OverBreakSummary) match.CommentaryEvent {
	return match.CommentaryEvent{
		InningsID: 1,
		EventKind: match.EventKindOverBreak,
		OverBreak: &summary,
	}
}

func liveSnapshot(score, wickets int) match.Snapshot {
	return match.Snapshot{
		Header: match.Header{State: "In Progress"},
		Live:   match.MiniScore{Score: score, Wickets: wickets},
	}
}

func tokens(balls []Ball) []string {
	out := make([]string, 0, len(balls))
	for _, ball := range balls {
		out = append(out, ball.Code)
	}
	return out
}

func TestReconstruct_NewestFirstFeedToOverFourteen(t *testing.T) {
	t.Parallel()

	events := []match.CommentaryEvent{
		delivery(14, 4, "6", "Kohli", "Starc"),
		delivery(14, 3, "W", "Kohli", "Starc"),
		delivery(14, 2, "1", "Rohit", "Starc"),
		delivery(14, 1, "Wd", "Rohit", "Starc"),
	}

	overs := Reconstruct(events, liveSnapshot(120, 3))
	if len(overs) != 1 {
		t.Fatalf("expected one over, got %d", len(overs))
	}
	over := overs[0]
	if over.Number != 14 {
		t.Fatalf("expected over 14, got %d", over.Number)
	}
	if want := []string{CodeWide, "1", CodeWicket, CodeSix}; !reflect.DeepEqual(tokens(over.Balls), want) {
		t.Fatalf("unexpected bowled order: got=%v want=%v", tokens(over.Balls), want)
	}
	if want := []int{1, 2, 2, 8}; !reflect.DeepEqual(over.RunningTotals, want) {
		t.Fatalf("unexpected running totals: got=%v want=%v", over.RunningTotals, want)
	}
	if FormatOverNumber(over.Number) != "Over 14" {
		t.Fatalf("unexpected label: %q", FormatOverNumber(over.Number))
	}
}

func TestReconstruct_InProgressOverRunningTotals(t *testing.T) {
	t.Parallel()

	events := []match.CommentaryEvent{
		delivery(3.4, 4, "6", "Kohli", "Starc"),
		delivery(3.3, 3, "W", "Gill", "Starc"),
		delivery(3.2, 2, "1", "Rohit", "Starc"),
		delivery(3.1, 1, "wd", "Gill", "Starc"),
	}

	overs := Reconstruct(events, liveSnapshot(41, 2))
	if len(overs) != 1 {
		t.Fatalf("expected one over, got %d", len(overs))
	}

	over := overs[0]
	if over.Number != 3 {
		t.Fatalf("unexpected over number: %d", over.Number)
	}
	if !over.InProgress || over.Completed {
		t.Fatalf("expected in-progress over, got %+v", over)
	}
	if want := []int{1, 2, 2, 8}; !reflect.DeepEqual(over.RunningTotals, want) {
		t.Fatalf("unexpected running totals: got=%v want=%v", over.RunningTotals, want)
	}
	if over.OverRuns != 8 {
		t.Fatalf("unexpected over runs: %d", over.OverRuns)
	}
	if over.CumulativeScore != 41 || over.CumulativeWickets != 2 {
		t.Fatalf("expected live totals, got %d/%d", over.CumulativeScore, over.CumulativeWickets)
	}
	if over.Bowler != "Starc" || over.StrikerAtStart != "Gill" || over.NonStrikerAtStart != "Rohit" {
		t.Fatalf("unexpected attribution: bowler=%q striker=%q non_striker=%q", over.Bowler, over.StrikerAtStart, over.NonStrikerAtStart)
	}
	if over.Summary != "WD 1 W 6" {
		t.Fatalf("unexpected synthesized summary: %q", over.Summary)
	}
}

func TestReconstruct_OverBreakClosesOver(t *testing.T) {
	t.Parallel()

	events := []match.CommentaryEvent{
		delivery(4.1, 1, "1", "Rohit", "Cummins"),
		overBreak(match.OverBreakSummary{
			OverNumber: 3,
			Summary:    "1 0 4 W 1 1",
			Score:      30,
			Wickets:    1,
			Bowler:     "Starc",
			Batsmen:    [2]string{"Rohit", "Kohli"},
		}),
		delivery(3.6, 6, "1", "Kohli", "Starc"),
		delivery(3.5, 5, "1", "Rohit", "Starc"),
		delivery(3.4, 4, "W", "Gill", "Starc"),
		delivery(3.3, 3, "4", "Gill", "Starc"),
		delivery(3.2, 2, "0", "Gill", "Starc"),
		delivery(3.1, 1, "1", "Rohit", "Starc"),
	}

	overs := Reconstruct(events, liveSnapshot(31, 1))
	if len(overs) != 2 {
		t.Fatalf("expected two overs, got %d", len(overs))
	}

	current, finished := overs[0], overs[1]
	if current.Number != 4 || !current.InProgress {
		t.Fatalf("expected over 4 in progress, got %+v", current)
	}
	if current.CumulativeScore != 31 {
		t.Fatalf("unexpected in-progress cumulative score: %d", current.CumulativeScore)
	}

	if finished.Number != 3 || finished.InProgress || !finished.Completed {
		t.Fatalf("expected over 3 completed, got %+v", finished)
	}
	if finished.Summary != "1 0 4 W 1 1" {
		t.Fatalf("expected provider summary, got %q", finished.Summary)
	}
	if want := []int{1, 1, 5, 5, 6, 7}; !reflect.DeepEqual(finished.RunningTotals, want) {
		t.Fatalf("unexpected running totals: got=%v want=%v", finished.RunningTotals, want)
	}
	if finished.CumulativeScore != 30 || finished.CumulativeWickets != 1 {
		t.Fatalf("unexpected cumulative totals: %d/%d", finished.CumulativeScore, finished.CumulativeWickets)
	}
	if finished.StrikerAtStart != "Rohit" || finished.NonStrikerAtStart != "Kohli" {
		t.Fatalf("unexpected batsmen at start: %q %q", finished.StrikerAtStart, finished.NonStrikerAtStart)
	}
}

func TestReconstruct_NoInProgressWhenNewestOverHasSummary(t *testing.T) {
	t.Parallel()

	events := []match.CommentaryEvent{
		overBreak(match.OverBreakSummary{Summary: "0 0 1 0 0 0", Score: 1, Bowler: "Starc"}),
		delivery(0.6, 6, "0", "Rohit", "Starc"),
		delivery(0.5, 5, "0", "Rohit", "Starc"),
		delivery(0.4, 4, "0", "Rohit", "Starc"),
		delivery(0.3, 3, "1", "Gill", "Starc"),
		delivery(0.2, 2, "0", "Gill", "Starc"),
		delivery(0.1, 1, "0", "Gill", "Starc"),
	}

	overs := Reconstruct(events, liveSnapshot(1, 0))
	if len(overs) != 1 {
		t.Fatalf("expected one over, got %d", len(overs))
	}
	if overs[0].InProgress {
		t.Fatalf("finalized over must not be marked in progress")
	}
	if overs[0].Number != 0 || overs[0].CumulativeScore != 1 {
		t.Fatalf("expected unnumbered marker to close over 0, got %+v", overs[0])
	}
}

func TestReconstruct_DropsMalformedAndDuplicateEvents(t *testing.T) {
	t.Parallel()

	noOver := delivery(2.1, 1, "4", "Kohli", "Starc")
	noOver.OverNumber = nil
	noBowler := delivery(2.2, 2, "4", "Kohli", "")
	noBatsman := delivery(2.3, 3, "4", "", "Starc")
	noise := match.CommentaryEvent{Text: "Drinks are being taken"}

	events := []match.CommentaryEvent{
		noise,
		delivery(2.2, 2, "1", "Kohli", "Starc"),
		delivery(2.2, 2, "1", "Kohli", "Starc"),
		noOver,
		noBowler,
		noBatsman,
		delivery(2.1, 1, "2", "Kohli", "Starc"),
	}

	overs := Reconstruct(events, liveSnapshot(10, 0))
	if len(overs) != 1 {
		t.Fatalf("expected one over, got %d", len(overs))
	}
	if got := len(overs[0].Balls); got != 2 {
		t.Fatalf("expected two deliveries after dropping malformed and duplicate events, got %d", got)
	}
	if want := []int{2, 3}; !reflect.DeepEqual(overs[0].RunningTotals, want) {
		t.Fatalf("unexpected running totals: got=%v want=%v", overs[0].RunningTotals, want)
	}
}

func TestReconstruct_EmptyInput(t *testing.T) {
	t.Parallel()

	overs := Reconstruct(nil, match.Snapshot{})
	if overs == nil || len(overs) != 0 {
		t.Fatalf("expected empty non-nil history, got %#v", overs)
	}

	onlyNoise := []match.CommentaryEvent{{Text: "Welcome to the live coverage"}}
	if got := Reconstruct(onlyNoise, match.Snapshot{}); len(got) != 0 {
		t.Fatalf("expected empty history for noise-only input, got %d overs", len(got))
	}
}

func TestReconstruct_DeterministicAndOrdered(t *testing.T) {
	t.Parallel()

	events := []match.CommentaryEvent{
		delivery(6.2, 2, "4", "Kohli", "Hazlewood"),
		delivery(6.1, 1, "nb", "Kohli", "Hazlewood"),
		overBreak(match.OverBreakSummary{OverNumber: 5, Summary: "1 1 0 0 2 LB", Score: 44, Wickets: 2, Bowler: "Starc"}),
		delivery(5.6, 6, "1lb", "Rohit", "Starc"),
		delivery(5.5, 5, "2", "Rohit", "Starc"),
		delivery(5.4, 4, "0", "Rohit", "Starc"),
		delivery(5.3, 3, "0", "Rohit", "Starc"),
		delivery(5.2, 2, "1", "Kohli", "Starc"),
		delivery(5.1, 1, "1", "Rohit", "Starc"),
		overBreak(match.OverBreakSummary{OverNumber: 4, Summary: "4 4 W 0 1 0", Score: 39, Wickets: 2, Bowler: "Cummins"}),
		overBreak(match.OverBreakSummary{OverNumber: 3, Summary: "0 0 0 0 0 0", Score: 30, Wickets: 1, Bowler: "Hazlewood"}),
	}

	first := Reconstruct(events, liveSnapshot(49, 2))
	second := Reconstruct(events, liveSnapshot(49, 2))
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected deterministic reconstruction")
	}

	wantNumbers := []int{6, 5, 4, 3}
	if len(first) != len(wantNumbers) {
		t.Fatalf("unexpected over count: got=%d want=%d", len(first), len(wantNumbers))
	}
	seen := make(map[int]struct{}, len(first))
	for i, over := range first {
		if over.Number != wantNumbers[i] {
			t.Fatalf("unexpected order at %d: got=%d want=%d", i, over.Number, wantNumbers[i])
		}
		if _, dup := seen[over.Number]; dup {
			t.Fatalf("duplicate over number %d", over.Number)
		}
		seen[over.Number] = struct{}{}

		if len(over.Balls) != len(over.RunningTotals) {
			t.Fatalf("over %d: balls=%d totals=%d", over.Number, len(over.Balls), len(over.RunningTotals))
		}
		last := 0
		for _, total := range over.RunningTotals {
			if total < last {
				t.Fatalf("over %d: running totals decrease: %v", over.Number, over.RunningTotals)
			}
			last = total
		}
		if over.OverRuns != last {
			t.Fatalf("over %d: over runs %d != last total %d", over.Number, over.OverRuns, last)
		}
	}

	if first[0].Balls[0].Code != CodeNoBall || first[0].RunningTotals[1] != 5 {
		t.Fatalf("unexpected in-progress over: %+v", first[0])
	}
	if first[3].Summary != "0 0 0 0 0 0" || first[3].Bowler != "Hazlewood" {
		t.Fatalf("expected summary-only over to keep provider data, got %+v", first[3])
	}
	if first[2].OverRuns != 9 {
		t.Fatalf("expected over 4 runs from summary tokens, got %d", first[2].OverRuns)
	}
}

func TestReconstruct_FillsTotalsForOverWithoutMarker(t *testing.T) {
	t.Parallel()

	events := []match.CommentaryEvent{
		delivery(2.1, 1, "1", "Kohli", "Starc"),
		delivery(1.2, 2, "4", "Kohli", "Cummins"),
		delivery(1.1, 1, "W", "Gill", "Cummins"),
		overBreak(match.OverBreakSummary{Summary: "1 0 0 0 0 0", Score: 1, Bowler: "Starc"}),
	}

	overs := Reconstruct(events, liveSnapshot(6, 1))
	if len(overs) != 3 {
		t.Fatalf("expected three overs, got %d", len(overs))
	}
	middle := overs[1]
	if middle.Number != 1 || middle.InProgress {
		t.Fatalf("unexpected middle over: %+v", middle)
	}
	if middle.CumulativeScore != 5 || middle.CumulativeWickets != 1 {
		t.Fatalf("expected derived totals 5/1, got %d/%d", middle.CumulativeScore, middle.CumulativeWickets)
	}
}

func TestReconstruct_IgnoresPreviousInnings(t *testing.T) {
	t.Parallel()

	old := delivery(19.6, 6, "6", "Warner", "Bumrah")
	old.InningsID = 1
	current := delivery(0.1, 1, "1", "Rohit", "Starc")
	current.InningsID = 2

	overs := Reconstruct([]match.CommentaryEvent{current, old}, liveSnapshot(1, 0))
	if len(overs) != 1 || overs[0].Number != 0 {
		t.Fatalf("expected only the current innings, got %+v", overs)
	}
}

func TestReconstruct_DerivesOutcomeFromSanitizedText(t *testing.T) {
	t.Parallel()

	ev := delivery(0.1, 1, "", "Rohit", "Starc")
	ev.Text = "<b>Starc to Rohit</b>, FOUR, driven &amp; timed"

	overs := Reconstruct([]match.CommentaryEvent{ev}, liveSnapshot(4, 0))
	if len(overs) != 1 {
		t.Fatalf("expected one over, got %d", len(overs))
	}
	ball := overs[0].Balls[0]
	if ball.Code != CodeFour || ball.Runs != 4 {
		t.Fatalf("unexpected classification: %+v", ball)
	}
	if ball.RawText != "Starc to Rohit, FOUR, driven & timed" {
		t.Fatalf("unexpected sanitized text: %q", ball.RawText)
	}
}

func TestReconstruct_CompletedMatchClosesNewestOver(t *testing.T) {
	t.Parallel()

	snapshot := liveSnapshot(187, 6)
	snapshot.Header.State = "Complete"
	events := []match.CommentaryEvent{
		delivery(19.2, 2, "4", "Pandya", "Wood"),
		delivery(19.1, 1, "2", "Pandya", "Wood"),
	}

	overs := Reconstruct(events, snapshot)
	if len(overs) != 1 {
		t.Fatalf("expected one over, got %d", len(overs))
	}
	if overs[0].InProgress || !overs[0].Completed {
		t.Fatalf("final over of a finished match must be closed, got %+v", overs[0])
	}
	if overs[0].CumulativeScore != 187 || overs[0].CumulativeWickets != 6 {
		t.Fatalf("expected closing totals from the scorecard, got %d/%d", overs[0].CumulativeScore, overs[0].CumulativeWickets)
	}
}

func TestReconstruct_MarkerPairsByPositionAndEventOver(t *testing.T) {
	t.Parallel()

	fromEvent := overBreak(match.OverBreakSummary{Summary: "1 1 1 1 1 1", Score: 12, Bowler: "Starc"})
	at := 8.6
	fromEvent.OverNumber = &at

	events := []match.CommentaryEvent{
		delivery(9.1, 1, "0", "Rohit", "Wood"),
		fromEvent,
		delivery(8.6, 6, "1", "Rohit", "Starc"),
		overBreak(match.OverBreakSummary{Summary: "0 0 0 0 0 6", Score: 6, Bowler: "Archer"}),
		delivery(7.6, 6, "6", "Gill", "Archer"),
	}

	overs := Reconstruct(events, liveSnapshot(12, 0))
	if want := []int{9, 8, 7}; len(overs) != len(want) {
		t.Fatalf("unexpected overs: %+v", overs)
	}
	if overs[1].Number != 8 || overs[1].Summary != "1 1 1 1 1 1" || overs[1].CumulativeScore != 12 {
		t.Fatalf("expected event over number to key the marker, got %+v", overs[1])
	}
	if overs[2].Number != 7 || overs[2].Summary != "0 0 0 0 0 6" || overs[2].CumulativeScore != 6 {
		t.Fatalf("expected unnumbered marker to close the next older over, got %+v", overs[2])
	}
}
