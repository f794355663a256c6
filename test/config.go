package test

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// TEST_WAIT_TIMEOUT bounds every wait on asynchronous effects
	WaitTimeout time.Duration `envconfig:"TEST_WAIT_TIMEOUT" default:"5s"`
	// TEST_POLL_INTERVAL is the probing cadence inside those waits
	PollInterval time.Duration `envconfig:"TEST_POLL_INTERVAL" default:"20ms"`
	// TEST_RESTART_INTERVAL is the supervisor restart delay under test
	RestartInterval time.Duration `envconfig:"TEST_RESTART_INTERVAL" default:"100ms"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
