package scheduler

import (
	"strings"
	"time"

	"github.com/smallbiznis/shiftledger/internal/config"
)

// Config controls scheduler intervals and batch sizes.
type Config struct {
	Enabled            bool
	RunInterval        time.Duration
	BatchSize          int
	JobTimeout         time.Duration
	AutoCloseAfterDays int
	EnabledJobs        []string
	Location           *time.Location
}

func DefaultConfig() Config {
	return Config{
		Enabled:     true,
		RunInterval: time.Minute,
		BatchSize:   31,
		JobTimeout:  2 * time.Minute,
		Location:    time.UTC,
	}
}

func ProvideConfig(cfg config.Config) Config {
	loc, err := time.LoadLocation(strings.TrimSpace(cfg.Scheduler.Timezone))
	if err != nil {
		loc = time.UTC
	}
	return Config{
		Enabled:            cfg.Scheduler.Enabled,
		RunInterval:        cfg.Scheduler.RunInterval,
		AutoCloseAfterDays: cfg.Scheduler.AutoCloseAfterDays,
		EnabledJobs:        cfg.Scheduler.EnabledJobs,
		Location:           loc,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.AutoCloseAfterDays < 0 {
		c.AutoCloseAfterDays = 0
	}
	if c.Location == nil {
		c.Location = defaults.Location
	}
	return c
}
