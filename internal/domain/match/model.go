package match

import (
	"context"
	"strings"
	"time"
)

const EventKindOverBreak = "over-break"

// Team is one side of a match header.
type Team struct {
	ID        string
	Name      string
	ShortName string
}

// Header carries match metadata and the raw lifecycle state string.
type Header struct {
	MatchID      string
	SeriesName   string
	Description  string
	Format       string
	Venue        string
	State        string
	Status       string
	Team1        Team
	Team2        Team
	TossWinner   string
	TossDecision string
	StartAt      time.Time
}

type Innings struct {
	InningsID   int
	BattingTeam string
	Score       int
	Wickets     int
	Overs       string
	Declared    bool
}

type Batter struct {
	ID         int64
	Name       string
	Runs       int
	Balls      int
	Fours      int
	Sixes      int
	StrikeRate float64
}

type Bowler struct {
	ID      int64
	Name    string
	Overs   string
	Maidens int
	Runs    int
	Wickets int
	Economy float64
}

// MiniScore is the live scoreboard block of a snapshot.
type MiniScore struct {
	BattingTeam     string
	Score           int
	Wickets         int
	Overs           string
	Striker         Batter
	NonStriker      Batter
	Bowler          Bowler
	RecentBalls     string
	CurrentRunRate  float64
	RequiredRunRate float64
	Target          int
}

// OverBreakSummary is the end-of-over block the provider attaches to an
// over-break marker.
type OverBreakSummary struct {
	OverNumber int
	Summary    string
	Runs       int
	Score      int
	Wickets    int
	Bowler     string
	Batsmen    [2]string
}

// CommentaryEvent is one raw entry of the newest-first commentary feed.
// Nil pointers mean the provider omitted the field.
type CommentaryEvent struct {
	InningsID  int
	OverNumber *float64
	BallNumber *int
	EventKind  string
	Text       string
	RunToken   string
	LegalRuns  *int
	Batsman    string
	Bowler     string
	OverBreak  *OverBreakSummary
	Timestamp  time.Time
}

func (e CommentaryEvent) IsOverBreak() bool {
	return e.OverBreak != nil || strings.EqualFold(strings.TrimSpace(e.EventKind), EventKindOverBreak)
}

// IsDelivery reports whether the event carries enough metadata to be
// attributed to a ball.
func (e CommentaryEvent) IsDelivery() bool {
	return e.OverNumber != nil &&
		strings.TrimSpace(e.Bowler) != "" &&
		strings.TrimSpace(e.Batsman) != ""
}

// Snapshot is the full state returned by one provider fetch.
type Snapshot struct {
	Header     Header
	Innings    []Innings
	Live       MiniScore
	Commentary []CommentaryEvent
	FetchedAt  time.Time
}

func (s Snapshot) Phase() Phase {
	return ClassifyPhase(s.Header.State)
}

func (s Snapshot) HasInnings() bool {
	return len(s.Innings) > 0
}

// LatestOverBalls returns the most recent over segment of the recent-balls
// string, which the provider separates with "|".
func (s Snapshot) LatestOverBalls() string {
	raw := strings.TrimSpace(s.Live.RecentBalls)
	if raw == "" {
		return ""
	}
	segments := strings.Split(raw, "|")
	for i := len(segments) - 1; i >= 0; i-- {
		if segment := strings.TrimSpace(segments[i]); segment != "" {
			return strings.Join(strings.Fields(segment), " ")
		}
	}
	return ""
}

// Summary is one row of a match listing.
type Summary struct {
	MatchID    string
	SeriesName string
	Format     string
	Team1      Team
	Team2      Team
	State      string
	Status     string
	StartAt    time.Time
}

func (s Summary) Phase() Phase {
	return ClassifyPhase(s.State)
}

// Feed fetches match state from a remote provider.
type Feed interface {
	FetchMatch(ctx context.Context, matchID string) (Snapshot, error)
	ListMatches(ctx context.Context) ([]Summary, error)
}
