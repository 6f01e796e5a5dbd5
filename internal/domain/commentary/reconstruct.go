package commentary

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/riskibarqy/livescore/internal/domain/match"
	"github.com/valyala/bytebufferpool"
)

// Over is one reconstructed over. Balls are in bowled order and
// RunningTotals[i] is the over's total after Balls[i].
type Over struct {
	Number            int
	Balls             []Ball
	RunningTotals     []int
	Bowler            string
	StrikerAtStart    string
	NonStrikerAtStart string
	OverRuns          int
	CumulativeScore   int
	CumulativeWickets int
	Summary           string
	Completed         bool
	InProgress        bool
}

type segment struct {
	number int
	balls  []Ball
}

type deliveryKey struct {
	over float64
	ball int
	text string
}

// Reconstruct rebuilds the per-over history of the current innings from a
// newest-first commentary feed. The result is ordered newest over first.
// Events without an over number, bowler or batsman are dropped.
func Reconstruct(events []match.CommentaryEvent, snapshot match.Snapshot) []Over {
	if len(events) == 0 {
		return []Over{}
	}

	innings := currentInnings(events)
	segments := make([]segment, 0, 8)
	summaries := make(map[int]match.OverBreakSummary)
	seen := make(map[deliveryKey]struct{}, len(events))

	var current *segment
	flush := func() {
		if current != nil && len(current.balls) > 0 {
			segments = append(segments, *current)
		}
		current = nil
	}

	// A marker without an over number closes whichever over comes next in
	// the feed, i.e. the one bowled just before it.
	var pending *match.OverBreakSummary
	keepSummary := func(summary match.OverBreakSummary) {
		if _, exists := summaries[summary.OverNumber]; !exists {
			summaries[summary.OverNumber] = summary
		}
	}

	for _, ev := range events {
		if innings != 0 && ev.InningsID != 0 && ev.InningsID != innings {
			continue
		}

		if ev.IsOverBreak() {
			flush()
			summary, numbered := markerSummary(ev)
			if numbered {
				keepSummary(summary)
				pending = nil
			} else {
				pending = &summary
			}
			continue
		}

		if !ev.IsDelivery() || !validOverNumber(*ev.OverNumber) {
			continue
		}

		text := CleanText(ev.Text)
		key := deliveryKey{over: *ev.OverNumber, text: text}
		if ev.BallNumber != nil {
			key.ball = *ev.BallNumber
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		number := overIndex(*ev.OverNumber)
		if current != nil && current.number != number {
			flush()
		}
		if current == nil {
			current = &segment{number: number}
			if pending != nil {
				pending.OverNumber = number
				keepSummary(*pending)
				pending = nil
			}
		}

		token := strings.TrimSpace(ev.RunToken)
		if token == "" {
			token = outcomeSegment(text)
		}
		ball := ClassifyBall(BallInput{Token: token, LegalRuns: ev.LegalRuns, EventKind: ev.EventKind})
		ball.Striker = strings.TrimSpace(ev.Batsman)
		ball.Bowler = strings.TrimSpace(ev.Bowler)
		ball.RawText = text

		current.balls = append(current.balls, ball)
	}
	flush()
	if pending != nil {
		// The oldest marker closed the over just before the oldest one seen.
		if oldest, ok := oldestOver(segments, summaries); ok && oldest > 0 {
			pending.OverNumber = oldest - 1
			keepSummary(*pending)
		}
	}

	live := snapshot.Phase() == match.PhaseLive
	overs := make([]Over, 0, len(segments)+len(summaries))
	used := make(map[int]struct{}, len(segments)+len(summaries))
	anchored := make(map[int]bool, len(segments)+len(summaries))
	for i, seg := range segments {
		if _, dup := used[seg.number]; dup {
			continue
		}
		used[seg.number] = struct{}{}

		summary, hasSummary := summaries[seg.number]
		over := buildOver(seg, summary, hasSummary)
		anchored[seg.number] = hasSummary
		if !hasSummary && i == 0 {
			// The newest over has no marker yet. It is still being bowled
			// only while the match is live; either way the live score is
			// its closing total.
			anchored[seg.number] = true
			over.InProgress = live
			over.Completed = !live
			over.CumulativeScore = snapshot.Live.Score
			over.CumulativeWickets = snapshot.Live.Wickets
		}
		overs = append(overs, over)
	}

	for number, summary := range summaries {
		if _, ok := used[number]; ok {
			continue
		}
		used[number] = struct{}{}
		anchored[number] = true
		overs = append(overs, overFromSummary(summary))
	}

	sort.SliceStable(overs, func(i, j int) bool {
		return overs[i].Number > overs[j].Number
	})
	fillCumulative(overs, anchored)

	return overs
}

func buildOver(seg segment, summary match.OverBreakSummary, hasSummary bool) Over {
	balls := make([]Ball, 0, len(seg.balls))
	for i := len(seg.balls) - 1; i >= 0; i-- {
		balls = append(balls, seg.balls[i])
	}

	over := Over{
		Number:    seg.number,
		Balls:     balls,
		Completed: true,
	}
	over.RunningTotals, over.OverRuns = runningTotals(balls)

	if len(balls) > 0 {
		over.Bowler = balls[0].Bowler
		over.StrikerAtStart = balls[0].Striker
	}
	if hasSummary {
		over.Bowler = firstNonEmpty(over.Bowler, summary.Bowler)
		over.StrikerAtStart = firstNonEmpty(over.StrikerAtStart, summary.Batsmen[0])
		over.CumulativeScore = summary.Score
		over.CumulativeWickets = summary.Wickets
		over.Summary = normalizeSummary(summary.Summary)
	}

	candidates := make([]string, 0, len(balls)+2)
	if hasSummary {
		candidates = append(candidates, summary.Batsmen[0], summary.Batsmen[1])
	}
	for _, b := range balls {
		candidates = append(candidates, b.Striker)
	}
	for _, name := range candidates {
		name = strings.TrimSpace(name)
		if name != "" && name != over.StrikerAtStart {
			over.NonStrikerAtStart = name
			break
		}
	}

	if over.Summary == "" {
		over.Summary = joinTokens(balls)
	}
	return over
}

// overFromSummary builds an over the commentary window no longer covers.
func overFromSummary(summary match.OverBreakSummary) Over {
	fields := strings.Fields(summary.Summary)
	balls := make([]Ball, 0, len(fields))
	for _, field := range fields {
		ball := ClassifyBall(BallInput{Token: field})
		ball.Bowler = summary.Bowler
		balls = append(balls, ball)
	}

	over := Over{
		Number:            summary.OverNumber,
		Balls:             balls,
		Bowler:            summary.Bowler,
		StrikerAtStart:    strings.TrimSpace(summary.Batsmen[0]),
		NonStrikerAtStart: strings.TrimSpace(summary.Batsmen[1]),
		CumulativeScore:   summary.Score,
		CumulativeWickets: summary.Wickets,
		Summary:           normalizeSummary(summary.Summary),
		Completed:         true,
	}
	over.RunningTotals, over.OverRuns = runningTotals(balls)
	return over
}

func runningTotals(balls []Ball) ([]int, int) {
	totals := make([]int, len(balls))
	total := 0
	for i, ball := range balls {
		if ball.Runs > 0 {
			total += ball.Runs
		}
		totals[i] = total
	}
	return totals, total
}

// fillCumulative derives totals for completed overs that had no over-break
// summary, walking oldest to newest. overs must be sorted newest first.
func fillCumulative(overs []Over, anchored map[int]bool) {
	score, wickets := 0, 0
	known := false
	for i := len(overs) - 1; i >= 0; i-- {
		over := &overs[i]
		if anchored[over.Number] {
			score, wickets = over.CumulativeScore, over.CumulativeWickets
			known = true
			continue
		}
		if !known {
			continue
		}
		score += over.OverRuns
		for _, ball := range over.Balls {
			if ball.Wicket {
				wickets++
			}
		}
		over.CumulativeScore, over.CumulativeWickets = score, wickets
	}
}

// markerSummary reads the over-break record of a marker event. numbered is
// false when neither the record nor the event says which over it closes.
func markerSummary(ev match.CommentaryEvent) (summary match.OverBreakSummary, numbered bool) {
	if ev.OverBreak != nil {
		summary = *ev.OverBreak
	}
	if summary.Bowler == "" {
		summary.Bowler = strings.TrimSpace(ev.Bowler)
	}
	if summary.Batsmen[0] == "" {
		summary.Batsmen[0] = strings.TrimSpace(ev.Batsman)
	}

	switch {
	case summary.OverNumber > 0:
		return summary, true
	case ev.OverNumber != nil && validOverNumber(*ev.OverNumber):
		summary.OverNumber = overIndex(*ev.OverNumber)
		return summary, true
	default:
		return summary, false
	}
}

func oldestOver(segments []segment, summaries map[int]match.OverBreakSummary) (int, bool) {
	oldest, found := 0, false
	for _, seg := range segments {
		if !found || seg.number < oldest {
			oldest, found = seg.number, true
		}
	}
	for number := range summaries {
		if !found || number < oldest {
			oldest, found = number, true
		}
	}
	return oldest, found
}

// currentInnings picks the innings of the newest event that declares one.
func currentInnings(events []match.CommentaryEvent) int {
	for _, ev := range events {
		if ev.InningsID > 0 {
			return ev.InningsID
		}
	}
	return 0
}

// overIndex keys a provider over number by its whole part: 14.3 and 14.6
// both belong to over 14.
func overIndex(value float64) int {
	return int(math.Floor(value))
}

func validOverNumber(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0) && value >= 0
}

func joinTokens(balls []Ball) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	for i, ball := range balls {
		if i > 0 {
			_ = buf.WriteByte(' ')
		}
		_, _ = buf.WriteString(ball.Token)
	}
	return buf.String()
}

func normalizeSummary(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// FormatOverNumber renders an over number for display, e.g. "Over 20".
func FormatOverNumber(number int) string {
	return "Over " + strconv.Itoa(number)
}
