package match

import "strings"

// Phase is the coarse lifecycle bucket that drives polling cadence.
type Phase string

const (
	PhaseUpcoming Phase = "upcoming"
	PhaseLive     Phase = "live"
	PhaseBreak    Phase = "break"
	PhaseComplete Phase = "complete"
)

func (p Phase) String() string {
	return string(p)
}

// ClassifyPhase maps a provider state string onto a Phase. Unknown or empty
// states are treated as upcoming.
func ClassifyPhase(state string) Phase {
	switch normalizeState(state) {
	case "in progress", "stumps":
		return PhaseLive
	case "innings break", "drinks break", "lunch break", "tea break":
		return PhaseBreak
	case "complete", "completed", "abandon", "abandoned", "no result":
		return PhaseComplete
	default:
		return PhaseUpcoming
	}
}

func IsLivePhase(state string) bool {
	return ClassifyPhase(state) == PhaseLive
}

func IsCompletePhase(state string) bool {
	return ClassifyPhase(state) == PhaseComplete
}

func normalizeState(state string) string {
	return strings.Join(strings.Fields(strings.ToLower(state)), " ")
}
