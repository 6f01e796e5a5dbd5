package usecase

import "time"

type PollResult string

const (
	PollCommitted PollResult = "committed"
	PollUnchanged PollResult = "unchanged"
	PollFailed    PollResult = "failed"
	PollTimeout   PollResult = "timeout"
	PollMalformed PollResult = "malformed"
)

// PollObserver receives poll outcomes and session lifecycle events, typically
// for metrics.
type PollObserver interface {
	ObservePoll(matchID string, result PollResult, elapsed time.Duration)
	SessionStarted(matchID string)
	SessionStopped(matchID string)
}

type nopPollObserver struct{}

func NopPollObserver() PollObserver {
	return nopPollObserver{}
}

func (nopPollObserver) ObservePoll(string, PollResult, time.Duration) {}

func (nopPollObserver) SessionStarted(string) {}

func (nopPollObserver) SessionStopped(string) {}
