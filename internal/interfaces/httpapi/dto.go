package httpapi

import (
	"time"

	"github.com/riskibarqy/livescore/internal/domain/commentary"
	"github.com/riskibarqy/livescore/internal/domain/match"
)

type healthDTO struct {
	Status         string `json:"status"`
	ActiveSessions int    `json:"activeSessions"`
}

type listDTO[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

type summaryDTO struct {
	MatchID    string  `json:"matchId"`
	SeriesName string  `json:"seriesName"`
	Format     string  `json:"format"`
	Team1      teamDTO `json:"team1"`
	Team2      teamDTO `json:"team2"`
	State      string  `json:"state"`
	Status     string  `json:"status"`
	Phase      string  `json:"phase"`
	StartAt    string  `json:"startAt,omitempty"`
}

type teamDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"shortName"`
}

type inningsDTO struct {
	InningsID   int    `json:"inningsId"`
	BattingTeam string `json:"battingTeam"`
	Score       int    `json:"score"`
	Wickets     int    `json:"wickets"`
	Overs       string `json:"overs"`
	Declared    bool   `json:"declared"`
}

type batterDTO struct {
	Name       string  `json:"name"`
	Runs       int     `json:"runs"`
	Balls      int     `json:"balls"`
	Fours      int     `json:"fours"`
	Sixes      int     `json:"sixes"`
	StrikeRate float64 `json:"strikeRate"`
}

type bowlerDTO struct {
	Name    string  `json:"name"`
	Overs   string  `json:"overs"`
	Maidens int     `json:"maidens"`
	Runs    int     `json:"runs"`
	Wickets int     `json:"wickets"`
	Economy float64 `json:"economy"`
}

type liveDTO struct {
	BattingTeam     string    `json:"battingTeam"`
	Score           int       `json:"score"`
	Wickets         int       `json:"wickets"`
	Overs           string    `json:"overs"`
	Striker         batterDTO `json:"striker"`
	NonStriker      batterDTO `json:"nonStriker"`
	Bowler          bowlerDTO `json:"bowler"`
	RecentBalls     string    `json:"recentBalls"`
	LatestOver      string    `json:"latestOver"`
	CurrentRunRate  float64   `json:"currentRunRate"`
	RequiredRunRate float64   `json:"requiredRunRate,omitempty"`
	Target          int       `json:"target,omitempty"`
}

type matchDTO struct {
	MatchID      string       `json:"matchId"`
	SeriesName   string       `json:"seriesName"`
	Description  string       `json:"description"`
	Format       string       `json:"format"`
	Venue        string       `json:"venue"`
	State        string       `json:"state"`
	Status       string       `json:"status"`
	Phase        string       `json:"phase"`
	Team1        teamDTO      `json:"team1"`
	Team2        teamDTO      `json:"team2"`
	TossWinner   string       `json:"tossWinner,omitempty"`
	TossDecision string       `json:"tossDecision,omitempty"`
	StartAt      string       `json:"startAt,omitempty"`
	Innings      []inningsDTO `json:"innings"`
	Live         *liveDTO     `json:"live,omitempty"`
	Watched      bool         `json:"watched"`
	FetchedAt    string       `json:"fetchedAt,omitempty"`
}

type ballDTO struct {
	Code   string `json:"code"`
	Token  string `json:"token"`
	Runs   int    `json:"runs"`
	Wicket bool   `json:"wicket"`
	Extra  string `json:"extra,omitempty"`
}

type overDTO struct {
	Number            int       `json:"number"`
	Label             string    `json:"label"`
	Balls             []ballDTO `json:"balls"`
	RunningTotals     []int     `json:"runningTotals"`
	Bowler            string    `json:"bowler"`
	StrikerAtStart    string    `json:"strikerAtStart"`
	NonStrikerAtStart string    `json:"nonStrikerAtStart"`
	OverRuns          int       `json:"overRuns"`
	CumulativeScore   int       `json:"cumulativeScore"`
	CumulativeWickets int       `json:"cumulativeWickets"`
	Summary           string    `json:"summary"`
	Completed         bool      `json:"completed"`
	InProgress        bool      `json:"inProgress"`
}

func summaryToDTO(item match.Summary) summaryDTO {
	return summaryDTO{
		MatchID:    item.MatchID,
		SeriesName: item.SeriesName,
		Format:     item.Format,
		Team1:      teamDTO(item.Team1),
		Team2:      teamDTO(item.Team2),
		State:      item.State,
		Status:     item.Status,
		Phase:      item.Phase().String(),
		StartAt:    formatTime(item.StartAt),
	}
}

func matchToDTO(snapshot match.Snapshot, phase match.Phase, watched bool) matchDTO {
	header := snapshot.Header
	out := matchDTO{
		MatchID:      header.MatchID,
		SeriesName:   header.SeriesName,
		Description:  header.Description,
		Format:       header.Format,
		Venue:        header.Venue,
		State:        header.State,
		Status:       header.Status,
		Phase:        phase.String(),
		Team1:        teamDTO(header.Team1),
		Team2:        teamDTO(header.Team2),
		TossWinner:   header.TossWinner,
		TossDecision: header.TossDecision,
		StartAt:      formatTime(header.StartAt),
		Innings:      make([]inningsDTO, 0, len(snapshot.Innings)),
		Watched:      watched,
		FetchedAt:    formatTime(snapshot.FetchedAt),
	}
	for _, innings := range snapshot.Innings {
		out.Innings = append(out.Innings, inningsDTO(innings))
	}
	if snapshot.HasInnings() {
		live := liveToDTO(snapshot)
		out.Live = &live
	}
	return out
}

func liveToDTO(snapshot match.Snapshot) liveDTO {
	mini := snapshot.Live
	return liveDTO{
		BattingTeam:     mini.BattingTeam,
		Score:           mini.Score,
		Wickets:         mini.Wickets,
		Overs:           mini.Overs,
		Striker:         batterToDTO(mini.Striker),
		NonStriker:      batterToDTO(mini.NonStriker),
		Bowler:          bowlerToDTO(mini.Bowler),
		RecentBalls:     mini.RecentBalls,
		LatestOver:      snapshot.LatestOverBalls(),
		CurrentRunRate:  mini.CurrentRunRate,
		RequiredRunRate: mini.RequiredRunRate,
		Target:          mini.Target,
	}
}

func batterToDTO(b match.Batter) batterDTO {
	return batterDTO{
		Name:       b.Name,
		Runs:       b.Runs,
		Balls:      b.Balls,
		Fours:      b.Fours,
		Sixes:      b.Sixes,
		StrikeRate: b.StrikeRate,
	}
}

func bowlerToDTO(b match.Bowler) bowlerDTO {
	return bowlerDTO{
		Name:    b.Name,
		Overs:   b.Overs,
		Maidens: b.Maidens,
		Runs:    b.Runs,
		Wickets: b.Wickets,
		Economy: b.Economy,
	}
}

func overToDTO(over commentary.Over) overDTO {
	balls := make([]ballDTO, 0, len(over.Balls))
	for _, ball := range over.Balls {
		balls = append(balls, ballDTO{
			Code:   ball.Code,
			Token:  ball.Token,
			Runs:   ball.Runs,
			Wicket: ball.Wicket,
			Extra:  string(ball.Extra),
		})
	}
	totals := over.RunningTotals
	if totals == nil {
		totals = []int{}
	}

	return overDTO{
		Number:            over.Number,
		Label:             commentary.FormatOverNumber(over.Number),
		Balls:             balls,
		RunningTotals:     totals,
		Bowler:            over.Bowler,
		StrikerAtStart:    over.StrikerAtStart,
		NonStrikerAtStart: over.NonStrikerAtStart,
		OverRuns:          over.OverRuns,
		CumulativeScore:   over.CumulativeScore,
		CumulativeWickets: over.CumulativeWickets,
		Summary:           over.Summary,
		Completed:         over.Completed,
		InProgress:        over.InProgress,
	}
}

func oversToDTO(overs []commentary.Over) []overDTO {
	out := make([]overDTO, 0, len(overs))
	for _, over := range overs {
		out = append(out, overToDTO(over))
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
