package cricketfeed

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/livescore/internal/domain/match"
	"github.com/riskibarqy/livescore/internal/usecase"
)

type envelope[T any] struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    *T     `json:"data"`
}

func (e envelope[T]) validate() error {
	if !strings.EqualFold(strings.TrimSpace(e.Status), statusSuccess) {
		return fmt.Errorf("%w: provider status=%q message=%q", usecase.ErrMalformedPayload, e.Status, abbreviateBody([]byte(e.Message), ""))
	}
	if e.Data == nil {
		return fmt.Errorf("%w: provider payload has no data", usecase.ErrMalformedPayload)
	}
	return nil
}

type matchPayload struct {
	MatchHeader    matchHeaderDTO  `json:"matchHeader"`
	Miniscore      miniscoreDTO    `json:"miniscore"`
	CommentaryList []commentaryDTO `json:"commentaryList"`
}

type listingPayload struct {
	Matches []summaryDTO `json:"matches"`
}

type matchHeaderDTO struct {
	MatchID             flexString `json:"matchId"`
	MatchDescription    string     `json:"matchDescription"`
	MatchFormat         string     `json:"matchFormat"`
	State               string     `json:"state"`
	Status              string     `json:"status"`
	SeriesName          string     `json:"seriesName"`
	MatchStartTimestamp optNumber  `json:"matchStartTimestamp"`
	Team1               teamDTO    `json:"team1"`
	Team2               teamDTO    `json:"team2"`
	TossResults         tossDTO    `json:"tossResults"`
	Venue               venueDTO   `json:"venue"`
}

type teamDTO struct {
	ID        flexString `json:"id"`
	Name      string     `json:"name"`
	ShortName string     `json:"shortName"`
}

type tossDTO struct {
	TossWinnerName string `json:"tossWinnerName"`
	Decision       string `json:"decision"`
}

type venueDTO struct {
	Name string `json:"name"`
	City string `json:"city"`
}

type miniscoreDTO struct {
	InningsID         optNumber       `json:"inningsId"`
	BatTeam           batTeamDTO      `json:"batTeam"`
	Overs             flexString      `json:"overs"`
	BatsmanStriker    batterDTO       `json:"batsmanStriker"`
	BatsmanNonStriker batterDTO       `json:"batsmanNonStriker"`
	BowlerStriker     bowlerDTO       `json:"bowlerStriker"`
	CurrentRunRate    optNumber       `json:"currentRunRate"`
	RequiredRunRate   optNumber       `json:"requiredRunRate"`
	Target            optNumber       `json:"target"`
	RecentOvsStats    string          `json:"recentOvsStats"`
	MatchScoreDetails scoreDetailsDTO `json:"matchScoreDetails"`
}

type batTeamDTO struct {
	TeamID    flexString `json:"teamId"`
	TeamScore optNumber  `json:"teamScore"`
	TeamWkts  optNumber  `json:"teamWkts"`
}

type batterDTO struct {
	BatID         flexString `json:"batId"`
	BatName       string     `json:"batName"`
	BatRuns       optNumber  `json:"batRuns"`
	BatBalls      optNumber  `json:"batBalls"`
	BatFours      optNumber  `json:"batFours"`
	BatSixes      optNumber  `json:"batSixes"`
	BatStrikeRate optNumber  `json:"batStrikeRate"`
}

type bowlerDTO struct {
	BowlID      flexString `json:"bowlId"`
	BowlName    string     `json:"bowlName"`
	BowlOvs     flexString `json:"bowlOvs"`
	BowlMaidens optNumber  `json:"bowlMaidens"`
	BowlRuns    optNumber  `json:"bowlRuns"`
	BowlWkts    optNumber  `json:"bowlWkts"`
	BowlEcon    optNumber  `json:"bowlEcon"`
}

type scoreDetailsDTO struct {
	InningsScoreList []inningsScoreDTO `json:"inningsScoreList"`
}

type inningsScoreDTO struct {
	InningsID   optNumber  `json:"inningsId"`
	BatTeamName string     `json:"batTeamName"`
	Score       optNumber  `json:"score"`
	Wickets     optNumber  `json:"wickets"`
	Overs       flexString `json:"overs"`
	IsDeclared  bool       `json:"isDeclared"`
}

type commentaryDTO struct {
	CommText       string            `json:"commText"`
	Timestamp      optNumber         `json:"timestamp"`
	BallNbr        optNumber         `json:"ballNbr"`
	OverNumber     optNumber         `json:"overNumber"`
	InningsID      optNumber         `json:"inningsId"`
	Event          string            `json:"event"`
	Outcome        string            `json:"outcome"`
	LegalRuns      optNumber         `json:"legalRuns"`
	BatsmanStriker batterDTO         `json:"batsmanStriker"`
	BowlerStriker  bowlerDTO         `json:"bowlerStriker"`
	OverSeparator  *overSeparatorDTO `json:"overSeparator"`
}

type overSeparatorDTO struct {
	OverNum            optNumber `json:"overNum"`
	OSummary           string    `json:"o_summary"`
	Runs               optNumber `json:"runs"`
	Score              optNumber `json:"score"`
	Wickets            optNumber `json:"wickets"`
	BowlNames          []string  `json:"bowlNames"`
	BatStrikerNames    []string  `json:"batStrikerNames"`
	BatNonStrikerNames []string  `json:"batNonStrikerNames"`
}

type summaryDTO struct {
	MatchID     flexString `json:"matchId"`
	SeriesName  string     `json:"seriesName"`
	MatchFormat string     `json:"matchFormat"`
	State       string     `json:"state"`
	Status      string     `json:"status"`
	StartDate   optNumber  `json:"startDate"`
	Team1       teamDTO    `json:"team1"`
	Team2       teamDTO    `json:"team2"`
}

// optNumber decodes a JSON number, a numeric string, or null. Set is false
// for null, empty strings and unparseable text.
type optNumber struct {
	Value float64
	Set   bool
}

func (n *optNumber) UnmarshalJSON(data []byte) error {
	n.Value, n.Set = 0, false

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	text := string(trimmed)
	if trimmed[0] == '"' {
		if err := sonic.Unmarshal(trimmed, &text); err != nil {
			return err
		}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	parsed, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil
	}
	n.Value, n.Set = parsed, true
	return nil
}

func (n optNumber) Int() int {
	if !n.Set {
		return 0
	}
	return int(n.Value)
}

func (n optNumber) IntPtr() *int {
	if !n.Set {
		return nil
	}
	v := int(n.Value)
	return &v
}

func (n optNumber) FloatPtr() *float64 {
	if !n.Set {
		return nil
	}
	v := n.Value
	return &v
}

// flexString accepts either a JSON string or a bare number.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*s = ""
		return nil
	}
	if trimmed[0] == '"' {
		var text string
		if err := sonic.Unmarshal(trimmed, &text); err != nil {
			return err
		}
		*s = flexString(strings.TrimSpace(text))
		return nil
	}
	*s = flexString(trimmed)
	return nil
}

func (s flexString) String() string {
	return string(s)
}

func mapSnapshot(requestedID string, payload matchPayload, fetchedAt time.Time) match.Snapshot {
	header := mapHeader(requestedID, payload.MatchHeader)
	innings := mapInnings(payload.Miniscore.MatchScoreDetails.InningsScoreList)

	events := make([]match.CommentaryEvent, 0, len(payload.CommentaryList))
	for _, item := range payload.CommentaryList {
		events = append(events, mapCommentary(item))
	}

	return match.Snapshot{
		Header:     header,
		Innings:    innings,
		Live:       mapMiniScore(payload.Miniscore, header, innings),
		Commentary: events,
		FetchedAt:  fetchedAt,
	}
}

func mapHeader(requestedID string, src matchHeaderDTO) match.Header {
	matchID := firstNonEmpty(src.MatchID.String(), requestedID)
	return match.Header{
		MatchID:      matchID,
		SeriesName:   strings.TrimSpace(src.SeriesName),
		Description:  strings.TrimSpace(src.MatchDescription),
		Format:       strings.TrimSpace(src.MatchFormat),
		Venue:        joinVenue(src.Venue),
		State:        strings.TrimSpace(src.State),
		Status:       strings.TrimSpace(src.Status),
		Team1:        mapTeam(src.Team1),
		Team2:        mapTeam(src.Team2),
		TossWinner:   strings.TrimSpace(src.TossResults.TossWinnerName),
		TossDecision: strings.TrimSpace(src.TossResults.Decision),
		StartAt:      unixMillis(src.MatchStartTimestamp),
	}
}

func mapTeam(src teamDTO) match.Team {
	return match.Team{
		ID:        src.ID.String(),
		Name:      strings.TrimSpace(src.Name),
		ShortName: strings.TrimSpace(src.ShortName),
	}
}

func mapInnings(items []inningsScoreDTO) []match.Innings {
	out := make([]match.Innings, 0, len(items))
	for _, item := range items {
		if !item.InningsID.Set {
			continue
		}
		out = append(out, match.Innings{
			InningsID:   item.InningsID.Int(),
			BattingTeam: strings.TrimSpace(item.BatTeamName),
			Score:       item.Score.Int(),
			Wickets:     item.Wickets.Int(),
			Overs:       item.Overs.String(),
			Declared:    item.IsDeclared,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].InningsID < out[j].InningsID })
	return out
}

func mapMiniScore(src miniscoreDTO, header match.Header, innings []match.Innings) match.MiniScore {
	battingTeam := ""
	if src.InningsID.Set {
		for _, item := range innings {
			if item.InningsID == src.InningsID.Int() {
				battingTeam = item.BattingTeam
				break
			}
		}
	}
	if battingTeam == "" {
		switch teamID := src.BatTeam.TeamID.String(); {
		case teamID == "":
		case teamID == header.Team1.ID:
			battingTeam = firstNonEmpty(header.Team1.ShortName, header.Team1.Name)
		case teamID == header.Team2.ID:
			battingTeam = firstNonEmpty(header.Team2.ShortName, header.Team2.Name)
		}
	}

	return match.MiniScore{
		BattingTeam:     battingTeam,
		Score:           src.BatTeam.TeamScore.Int(),
		Wickets:         src.BatTeam.TeamWkts.Int(),
		Overs:           src.Overs.String(),
		Striker:         mapBatter(src.BatsmanStriker),
		NonStriker:      mapBatter(src.BatsmanNonStriker),
		Bowler:          mapBowler(src.BowlerStriker),
		RecentBalls:     strings.TrimSpace(src.RecentOvsStats),
		CurrentRunRate:  src.CurrentRunRate.Value,
		RequiredRunRate: src.RequiredRunRate.Value,
		Target:          src.Target.Int(),
	}
}

func mapBatter(src batterDTO) match.Batter {
	return match.Batter{
		ID:         src.BatID.String(),
		Name:       strings.TrimSpace(src.BatName),
		Runs:       src.BatRuns.Int(),
		Balls:      src.BatBalls.Int(),
		Fours:      src.BatFours.Int(),
		Sixes:      src.BatSixes.Int(),
		StrikeRate: src.BatStrikeRate.Value,
	}
}

func mapBowler(src bowlerDTO) match.Bowler {
	return match.Bowler{
		ID:      src.BowlID.String(),
		Name:    strings.TrimSpace(src.BowlName),
		Overs:   src.BowlOvs.String(),
		Maidens: src.BowlMaidens.Int(),
		Runs:    src.BowlRuns.Int(),
		Wickets: src.BowlWkts.Int(),
		Economy: src.BowlEcon.Value,
	}
}

func mapCommentary(src commentaryDTO) match.CommentaryEvent {
	eventKind := strings.ToLower(strings.TrimSpace(src.Event))
	var overBreak *match.OverBreakSummary
	if src.OverSeparator != nil {
		eventKind = match.EventKindOverBreak
		overBreak = mapOverSeparator(*src.OverSeparator)
	}

	return match.CommentaryEvent{
		InningsID:  src.InningsID.Int(),
		OverNumber: src.OverNumber.FloatPtr(),
		BallNumber: src.BallNbr.IntPtr(),
		EventKind:  eventKind,
		Text:       src.CommText,
		RunToken:   strings.TrimSpace(src.Outcome),
		LegalRuns:  src.LegalRuns.IntPtr(),
		Batsman:    strings.TrimSpace(src.BatsmanStriker.BatName),
		Bowler:     strings.TrimSpace(src.BowlerStriker.BowlName),
		OverBreak:  overBreak,
		Timestamp:  unixMillis(src.Timestamp),
	}
}

func mapOverSeparator(src overSeparatorDTO) *match.OverBreakSummary {
	return &match.OverBreakSummary{
		OverNumber: src.OverNum.Int(),
		Summary:    strings.TrimSpace(src.OSummary),
		Runs:       src.Runs.Int(),
		Score:      src.Score.Int(),
		Wickets:    src.Wickets.Int(),
		Bowler:     firstOf(src.BowlNames),
		Batsmen:    [2]string{firstOf(src.BatStrikerNames), firstOf(src.BatNonStrikerNames)},
	}
}

func mapSummaries(items []summaryDTO) []match.Summary {
	out := make([]match.Summary, 0, len(items))
	for _, item := range items {
		matchID := item.MatchID.String()
		if matchID == "" {
			continue
		}
		out = append(out, match.Summary{
			MatchID:    matchID,
			SeriesName: strings.TrimSpace(item.SeriesName),
			Format:     strings.TrimSpace(item.MatchFormat),
			Team1:      mapTeam(item.Team1),
			Team2:      mapTeam(item.Team2),
			State:      strings.TrimSpace(item.State),
			Status:     strings.TrimSpace(item.Status),
			StartAt:    unixMillis(item.StartDate),
		})
	}
	return out
}

func unixMillis(n optNumber) time.Time {
	if !n.Set || n.Value <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(int64(n.Value)).UTC()
}

func joinVenue(src venueDTO) string {
	name, city := strings.TrimSpace(src.Name), strings.TrimSpace(src.City)
	switch {
	case name != "" && city != "":
		return name + ", " + city
	default:
		return firstNonEmpty(name, city)
	}
}

func firstOf(values []string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
