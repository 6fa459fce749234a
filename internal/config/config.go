// Package config loads the engine's and feeds' tunables from YAML on
// top of built-in defaults, following rahjooh-CryptoTrade's config.go
// layering. It also loads an optional .env file into the process
// environment via godotenv; no config field is read from the
// environment.
package config

import (
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EngineConfig controls the matching engine's static setup: which
// symbols to pre-register and how often cmd/server logs stats. The
// engine's SPSC request queue is unbounded and has no size setting.
type EngineConfig struct {
	Symbols        []uint32 `yaml:"symbols"`
	StatsIntervalS int      `yaml:"stats_interval_seconds"`
}

// FeedConfig mirrors spec.md §4.4/§6's latency-injection parameters.
// Defaults match §6 exactly: base_latency_ns=5000,
// jitter_normal_ns=1000, jitter_spike_ns=500000,
// spike_probability=1e-3, drop_probability=1e-4, is_primary_feed=true,
// volatile_jitter_multiplier=100.
type FeedConfig struct {
	BaseLatencyNs            int64   `yaml:"base_latency_ns"`
	JitterNormalNs           int64   `yaml:"jitter_normal_ns"`
	JitterSpikeNs            int64   `yaml:"jitter_spike_ns"`
	SpikeProbability         float64 `yaml:"spike_probability"`
	DropProbability          float64 `yaml:"drop_probability"`
	IsPrimaryFeed            bool    `yaml:"is_primary_feed"`
	VolatileMarket           bool    `yaml:"volatile_market"`
	VolatileJitterMultiplier float64 `yaml:"volatile_jitter_multiplier"`

	// SecondaryExtraLatencyNs is added to non-primary feeds per
	// spec.md §4.4 ("the reference value is 500 μs").
	SecondaryExtraLatencyNs int64 `yaml:"secondary_extra_latency_ns"`
}

// DefaultFeedConfig returns spec.md §6's reference defaults.
func DefaultFeedConfig() FeedConfig {
	return FeedConfig{
		BaseLatencyNs:            5000,
		JitterNormalNs:           1000,
		JitterSpikeNs:            500000,
		SpikeProbability:         1e-3,
		DropProbability:          1e-4,
		IsPrimaryFeed:            true,
		VolatileMarket:           false,
		VolatileJitterMultiplier: 100,
		SecondaryExtraLatencyNs:  500_000,
	}
}

// Clamp enforces spec.md §4.4's construction-time validation:
// probabilities outside [0,1] are clamped rather than rejected. Returns
// true if any field needed clamping, so callers can log a warning.
func (c *FeedConfig) Clamp() (clamped bool) {
	if c.SpikeProbability < 0 {
		c.SpikeProbability, clamped = 0, true
	} else if c.SpikeProbability > 1 {
		c.SpikeProbability, clamped = 1, true
	}
	if c.DropProbability < 0 {
		c.DropProbability, clamped = 0, true
	} else if c.DropProbability > 1 {
		c.DropProbability, clamped = 1, true
	}
	if c.VolatileJitterMultiplier < 1 {
		c.VolatileJitterMultiplier, clamped = 1, true
	}
	return clamped
}

// Config is the top-level document loaded from YAML.
type Config struct {
	Engine EngineConfig `yaml:"engine"`
	FeedA  FeedConfig   `yaml:"feed_a"`
	FeedB  FeedConfig   `yaml:"feed_b"`
}

// DefaultConfig returns a Config with feed defaults and B set up as a
// secondary per spec.md §4.6 (backup, higher latency and spike rate).
func DefaultConfig() Config {
	feedA := DefaultFeedConfig()
	feedB := DefaultFeedConfig()
	feedB.IsPrimaryFeed = false
	feedB.SpikeProbability *= 2
	return Config{
		Engine: EngineConfig{Symbols: []uint32{1}, StatsIntervalS: 5},
		FeedA:  feedA,
		FeedB:  feedB,
	}
}

// Load reads .env (if present; absence is not an error) into the
// process environment, then decodes path as YAML on top of the
// defaults, then clamps both feed configs. Environment variables do
// not override any config field.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()
	if path == "" {
		cfg.FeedA.Clamp()
		cfg.FeedB.Clamp()
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.FeedA.Clamp()
			cfg.FeedB.Clamp()
			return cfg, nil
		}
		return cfg, err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, err
	}
	cfg.FeedA.Clamp()
	cfg.FeedB.Clamp()
	return cfg, nil
}
