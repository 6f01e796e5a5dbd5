package usecase

import (
	"time"

	"github.com/riskibarqy/livescore/internal/domain/match"
)

const (
	defaultLiveInterval         = 1 * time.Second
	defaultBreakInterval        = 30 * time.Second
	defaultPreInningsInterval   = 60 * time.Second
	defaultUpcomingInterval     = 60 * time.Second
	defaultCompleteInterval     = 30 * time.Second
	defaultFetchTimeout         = 5 * time.Second
	defaultSessionIdleTimeout   = 30 * time.Second
	defaultListingCacheDuration = 30 * time.Second
)

type CadenceConfig struct {
	Live       time.Duration
	Break      time.Duration
	PreInnings time.Duration
	Upcoming   time.Duration
	Complete   time.Duration
}

func DefaultCadenceConfig() CadenceConfig {
	return CadenceConfig{
		Live:       defaultLiveInterval,
		Break:      defaultBreakInterval,
		PreInnings: defaultPreInningsInterval,
		Upcoming:   defaultUpcomingInterval,
		Complete:   defaultCompleteInterval,
	}
}

// Cadence picks the polling interval for a lifecycle phase.
type Cadence struct {
	cfg CadenceConfig
}

func NewCadence(cfg CadenceConfig) Cadence {
	defaults := DefaultCadenceConfig()
	if cfg.Live <= 0 {
		cfg.Live = defaults.Live
	}
	if cfg.Break <= 0 {
		cfg.Break = defaults.Break
	}
	if cfg.PreInnings <= 0 {
		cfg.PreInnings = defaults.PreInnings
	}
	if cfg.Upcoming <= 0 {
		cfg.Upcoming = defaults.Upcoming
	}
	if cfg.Complete <= 0 {
		cfg.Complete = defaults.Complete
	}
	return Cadence{cfg: cfg}
}

// IntervalFor returns the delay before the next poll. A break before any
// innings has been recorded (a toss delay, rain before play) polls at the
// pre-innings rate.
func (c Cadence) IntervalFor(phase match.Phase, snapshot match.Snapshot) time.Duration {
	cfg := c.config()
	switch phase {
	case match.PhaseLive:
		return cfg.Live
	case match.PhaseBreak:
		if snapshot.HasInnings() {
			return cfg.Break
		}
		return cfg.PreInnings
	case match.PhaseComplete:
		return cfg.Complete
	default:
		return cfg.Upcoming
	}
}

func (c Cadence) config() CadenceConfig {
	if c.cfg.Live <= 0 {
		return NewCadence(c.cfg).cfg
	}
	return c.cfg
}
