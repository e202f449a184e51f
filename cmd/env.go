package cmd

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// environment holds the settings read from the process environment.
type environment struct {
	LogLevel      string        `env:"FIBERFORGE_LOG_LEVEL" envDefault:"warn"`
	WatchDebounce time.Duration `env:"FIBERFORGE_WATCH_DEBOUNCE" envDefault:"250ms"`
	// NoColor disables styling when set to any value.
	NoColor string `env:"NO_COLOR"`
}

func loadEnvironment() (environment, error) {
	var e environment
	if err := env.Parse(&e); err != nil {
		return environment{}, usageErrorf("environment: %v", err)
	}
	if e.WatchDebounce <= 0 {
		return environment{}, usageErrorf("environment: FIBERFORGE_WATCH_DEBOUNCE must be positive, got %s", e.WatchDebounce)
	}
	return e, nil
}

func (e environment) String() string {
	return fmt.Sprintf("log level %s, watch debounce %s", e.LogLevel, e.WatchDebounce)
}
