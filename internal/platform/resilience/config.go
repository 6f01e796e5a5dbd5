package resilience

import "time"

const (
	defaultFailureThreshold = 5
	defaultOpenTimeout      = 15 * time.Second
	defaultHalfOpenProbes   = 2
)

// CircuitBreakerConfig tunes a breaker guarding one upstream. Zero values
// fall back to the package defaults; Enabled=false bypasses the breaker.
type CircuitBreakerConfig struct {
	Enabled          bool
	FailureThreshold int
	OpenTimeout      time.Duration
	HalfOpenMaxReq   int

	// OnStateChange runs under the breaker lock and must not call back into it.
	OnStateChange func(from, to CircuitState)
}

func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Enabled:          true,
		FailureThreshold: defaultFailureThreshold,
		OpenTimeout:      defaultOpenTimeout,
		HalfOpenMaxReq:   defaultHalfOpenProbes,
	}
}

// Normalized returns a copy with every unset limit replaced by its default.
func (c CircuitBreakerConfig) Normalized() CircuitBreakerConfig {
	c.FailureThreshold = atLeastOne(c.FailureThreshold, defaultFailureThreshold)
	c.HalfOpenMaxReq = atLeastOne(c.HalfOpenMaxReq, defaultHalfOpenProbes)
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = defaultOpenTimeout
	}
	return c
}

func atLeastOne(v, fallback int) int {
	if v < 1 {
		return fallback
	}
	return v
}
