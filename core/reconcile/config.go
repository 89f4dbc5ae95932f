package reconcile

import "time"

// Config holds the engine settings.
type Config struct {
	// Concurrency bounds the number of enumeration requests in flight.
	Concurrency int `mapstructure:"concurrency" default:"4"`
	// PassIntervalSeconds is the delay between passes in Run.
	PassIntervalSeconds int `mapstructure:"pass_interval_seconds" default:"60"`
	// FullPassEvery makes every Nth pass of Run a full pass; the others are dirty passes.
	FullPassEvery int `mapstructure:"full_pass_every" default:"10"`
}

func (c Config) concurrency() int64 {
	if c.Concurrency <= 0 {
		return 4
	}
	return int64(c.Concurrency)
}

func (c Config) passInterval() time.Duration {
	if c.PassIntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.PassIntervalSeconds) * time.Second
}

func (c Config) fullPassEvery() int {
	if c.FullPassEvery <= 0 {
		return 10
	}
	return c.FullPassEvery
}
