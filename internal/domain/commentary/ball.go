package commentary

import (
	"regexp"
	"strconv"
	"strings"
)

type ExtraKind string

const (
	ExtraNone   ExtraKind = ""
	ExtraWide   ExtraKind = "wide"
	ExtraNoBall ExtraKind = "no-ball"
	ExtraLegBye ExtraKind = "leg-bye"
)

const (
	CodeWicket = "W"
	CodeWide   = "Wd"
	CodeNoBall = "NB"
	CodeLegBye = "LB"
	CodeSix    = "6"
	CodeFour   = "4"
)

var (
	digitsRegex  = regexp.MustCompile(`\d+`)
	wideRegex    = regexp.MustCompile(`wides?\b|(?:^|[^a-z])wd`)
	noBallRegex  = regexp.MustCompile(`no[ -]?balls?\b|(?:^|[^a-z])nb`)
	legByeRegex  = regexp.MustCompile(`leg[ -]?byes?\b|(?:^|[^a-z])lb`)
	wicketRegex  = regexp.MustCompile(`\b(?:out|wicket)\b`)
	runOutRegex  = regexp.MustCompile(`^ro?\b|\brun ?out\b`)
	sixRegex     = regexp.MustCompile(`\bsix\b`)
	fourRegex    = regexp.MustCompile(`\bfour\b`)
	wicketTokens = map[string]struct{}{"w": {}, "wkt": {}}
)

// BallInput is the raw material for classifying one delivery.
type BallInput struct {
	Token     string
	LegalRuns *int
	EventKind string
}

// Ball is a classified delivery. Code is the classification, Token the
// display form, Runs the contribution to the over's running total.
type Ball struct {
	Code    string
	Token   string
	Runs    int
	Wicket  bool
	Extra   ExtraKind
	Striker string
	Bowler  string
	RawText string
}

func (b Ball) IsExtra() bool {
	return b.Extra != ExtraNone
}

// ClassifyBall applies the first matching rule: wicket without extras, wide,
// no ball, boundary word, leg bye, then the embedded numeral or legal runs.
func ClassifyBall(in BallInput) Ball {
	token := strings.ToLower(strings.TrimSpace(in.Token))
	kind := strings.ToLower(strings.TrimSpace(in.EventKind))

	extra := extraKind(token)
	runOut := runOutRegex.MatchString(token)
	wicket := runOut || isWicketToken(token) || wicketRegex.MatchString(token) || kind == "wicket"

	if wicket && extra == ExtraNone {
		display := CodeWicket
		if runOut {
			display = "RO"
		}
		return Ball{Code: CodeWicket, Token: display, Wicket: true}
	}

	switch extra {
	case ExtraWide:
		return Ball{Code: CodeWide, Token: "WD", Runs: leadingNumeral(token, 0) + 1, Wicket: wicket, Extra: ExtraWide}
	case ExtraNoBall:
		return Ball{Code: CodeNoBall, Token: "NB", Runs: leadingNumeral(token, 0) + 1, Wicket: wicket, Extra: ExtraNoBall}
	}

	if sixRegex.MatchString(token) {
		return Ball{Code: CodeSix, Token: CodeSix, Runs: 6}
	}
	if fourRegex.MatchString(token) {
		return Ball{Code: CodeFour, Token: CodeFour, Runs: 4}
	}

	if extra == ExtraLegBye {
		return Ball{Code: CodeLegBye, Token: CodeLegBye, Runs: leadingNumeral(token, 0), Wicket: wicket, Extra: ExtraLegBye}
	}

	fallback := 0
	if in.LegalRuns != nil && *in.LegalRuns > 0 {
		fallback = *in.LegalRuns
	}
	runs := leadingNumeral(token, fallback)
	code := strconv.Itoa(runs)
	return Ball{Code: code, Token: code, Runs: runs}
}

func extraKind(token string) ExtraKind {
	switch {
	case wideRegex.MatchString(token):
		return ExtraWide
	case noBallRegex.MatchString(token):
		return ExtraNoBall
	case legByeRegex.MatchString(token):
		return ExtraLegBye
	default:
		return ExtraNone
	}
}

func isWicketToken(token string) bool {
	for _, field := range strings.Fields(token) {
		if _, ok := wicketTokens[strings.Trim(field, "+-!.")]; ok {
			return true
		}
	}
	return false
}

func leadingNumeral(token string, fallback int) int {
	match := digitsRegex.FindString(token)
	if match == "" {
		return fallback
	}
	value, err := strconv.Atoi(match)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
