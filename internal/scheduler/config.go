package scheduler

import (
	"time"
)

// Config controls emission task behavior.
type Config struct {
	// DrainTimeout bounds how long shutdown waits for in-flight
	// emissions before abandoning them.
	DrainTimeout time.Duration

	// DispatchTimeout bounds a single webhook handoff.
	DispatchTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		DrainTimeout:    5 * time.Second,
		DispatchTimeout: 30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.DrainTimeout <= 0 {
		c.DrainTimeout = defaults.DrainTimeout
	}
	if c.DispatchTimeout <= 0 {
		c.DispatchTimeout = defaults.DispatchTimeout
	}
	return c
}
