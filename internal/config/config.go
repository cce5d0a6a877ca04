// Package config loads simulation configuration via viper, mirroring the
// teacher's mapstructure-tagged Config struct (internal/config.Config) and
// viper.Unmarshal load path.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// TimeEngineConfig controls the discrete-event scheduler.
type TimeEngineConfig struct {
	MaxQueueSize     int     `mapstructure:"max_queue_size"`
	YieldEvery       int     `mapstructure:"yield_every"`
	InitialSpeed     float64 `mapstructure:"initial_speed"`
	WakeupIntervalUs int64   `mapstructure:"wakeup_interval_us"`
}

// StreamConfig controls the publication fabric's queue sizing.
type StreamConfig struct {
	MaxSize       int `mapstructure:"max_size"`
	DropTimeoutMs int `mapstructure:"drop_timeout_ms"`
}

// CandleConfig controls which timeframes are rolled up.
type CandleConfig struct {
	Timeframes []string `mapstructure:"timeframes"`
}

// AgentPoolConfig controls the smart agent pool's worker sizing.
type AgentPoolConfig struct {
	MaxWorkers int   `mapstructure:"max_workers"`
	Seed       int64 `mapstructure:"seed"`
}

// TransportConfig controls the demo HTTP/WebSocket adapter.
type TransportConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	DepthSampleMs int    `mapstructure:"depth_sample_ms"`
	DepthLevels   int    `mapstructure:"depth_levels"`
}

// MatchingConfig selects the matching engine implementation.
type MatchingConfig struct {
	EngineType string `mapstructure:"engine_type"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// Config is the top-level simulation configuration.
type Config struct {
	Symbol     string           `mapstructure:"symbol"`
	TimeEngine TimeEngineConfig `mapstructure:"time_engine"`
	Stream     StreamConfig     `mapstructure:"stream"`
	Candle     CandleConfig     `mapstructure:"candle"`
	AgentPool  AgentPoolConfig  `mapstructure:"agent_pool"`
	Transport  TransportConfig  `mapstructure:"transport"`
	Matching   MatchingConfig   `mapstructure:"matching"`
	Log        LogConfig        `mapstructure:"log"`
}

// Default returns the built-in zero-config defaults.
func Default() *Config {
	return &Config{
		Symbol: "BTC-USD",
		TimeEngine: TimeEngineConfig{
			MaxQueueSize:     100_000,
			YieldEvery:       256,
			InitialSpeed:     1.0,
			WakeupIntervalUs: 100_000,
		},
		Stream: StreamConfig{
			MaxSize:       1024,
			DropTimeoutMs: 1,
		},
		Candle: CandleConfig{
			Timeframes: []string{"1s", "5s", "1m", "5m", "1h"},
		},
		AgentPool: AgentPoolConfig{
			MaxWorkers: 64,
			Seed:       1,
		},
		Transport: TransportConfig{
			Host:          "0.0.0.0",
			Port:          8080,
			DepthSampleMs: 100,
			DepthLevels:   10,
		},
		Matching: MatchingConfig{
			EngineType: "standard",
		},
		Log: LogConfig{
			Level: "info",
			JSON:  true,
		},
	}
}

// Load reads configuration from path (if non-empty) and environment
// variables prefixed MARKSIM_, layered over Default(). An environment
// variable only takes effect for a key that the config file also sets;
// with no file, no environment variable is read.
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetEnvPrefix("MARKSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return cfg, nil
}
