// Package config loads server-wide tunables through viper, the way the
// teacher's service binaries load their configuration.
package config

import (
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every literal default named in spec §3-§5.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Session SessionConfig `mapstructure:"session"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Search  SearchConfig  `mapstructure:"search"`
	Sandbox SandboxConfig `mapstructure:"sandbox"`
	Storage StorageConfig `mapstructure:"storage"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig bounds the pace of accepted tool calls, a single global
// token bucket in front of the RPC dispatcher.
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

type ServerConfig struct {
	HTTPPort int  `mapstructure:"http_port"`
	Stdio    bool `mapstructure:"stdio"`
}

type SessionConfig struct {
	TTL               time.Duration `mapstructure:"ttl"`
	ScavengeInterval  time.Duration `mapstructure:"scavenge_interval"`
	MaxSessions       int           `mapstructure:"max_sessions"`
	MaxMemoryBytes    int64         `mapstructure:"max_memory_bytes"`
	MaxContexts       int           `mapstructure:"max_contexts"`
	MaxVariables      int           `mapstructure:"max_variables"`
	MaxHistoryEntries int           `mapstructure:"max_history_entries"`
	MaxContextBytes   int64         `mapstructure:"max_context_bytes"`
}

type CacheConfig struct {
	ChunkCacheEntries int `mapstructure:"chunk_cache_entries"`
	IndexCacheEntries int `mapstructure:"index_cache_entries"`
	QueryCacheEntries int `mapstructure:"query_cache_entries"`
	MaxChunks         int `mapstructure:"max_chunks"`
}

type SearchConfig struct {
	RegexBudget    time.Duration `mapstructure:"regex_budget"`
	MatchCap       int           `mapstructure:"match_cap"`
	MaxPatternLen  int           `mapstructure:"max_pattern_len"`
	ContextWindow  int           `mapstructure:"context_window"`
}

type SandboxConfig struct {
	TimeBudget  time.Duration `mapstructure:"time_budget"`
	OutputCap   int           `mapstructure:"output_cap"`
	HistoryCap  int           `mapstructure:"history_cap"`
	FindAllCap  int           `mapstructure:"find_all_cap"`
}

type StorageConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	BaseDir      string `mapstructure:"base_dir"`
	Snapshots    bool   `mapstructure:"snapshots"`
	MaxSnapshots int    `mapstructure:"max_snapshots"`
}

// Defaults mirrors the literal values spec.md names explicitly.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{HTTPPort: 8090, Stdio: true},
		Session: SessionConfig{
			TTL:               1 * time.Hour,
			ScavengeInterval:  60 * time.Second,
			MaxSessions:       1000,
			MaxMemoryBytes:    256 * 1024 * 1024,
			MaxContexts:       1000,
			MaxVariables:      1000,
			MaxHistoryEntries: 100,
			MaxContextBytes:   100 * 1024 * 1024,
		},
		Cache: CacheConfig{
			ChunkCacheEntries: 10000,
			IndexCacheEntries: 2000,
			QueryCacheEntries: 5000,
			MaxChunks:         100000,
		},
		Search: SearchConfig{
			RegexBudget:   1000 * time.Millisecond,
			MatchCap:      10000,
			MaxPatternLen: 500,
			ContextWindow: 50,
		},
		Sandbox: SandboxConfig{
			TimeBudget: 30 * time.Second,
			OutputCap:  50000,
			HistoryCap: 100,
			FindAllCap: 1000,
		},
		Storage: StorageConfig{
			Enabled:      false,
			Snapshots:    false,
			MaxSnapshots: 10,
		},
		RateLimit: RateLimitConfig{RPS: 50, Burst: 100},
	}
}

// Load reads defaults, then an optional config file, then RLM_-prefixed
// environment overrides, following the teacher's viper precedence order.
func Load(configFile string) (*Config, error) {
	cfg := Defaults()

	v := viper.New()
	v.SetEnvPrefix("RLM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv alone only answers explicit Get calls; bind every
	// section.field key so Unmarshal sees the RLM_ overrides too.
	rt := reflect.TypeOf(*cfg)
	for i := 0; i < rt.NumField(); i++ {
		sec := rt.Field(i)
		for j := 0; j < sec.Type.NumField(); j++ {
			_ = v.BindEnv(sec.Tag.Get("mapstructure") + "." + sec.Type.Field(j).Tag.Get("mapstructure"))
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
