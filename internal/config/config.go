// Package config loads the extraction engine's tunables from an optional
// TOML file plus environment overrides, the way the teacher repo parses its
// package-definition TOML with github.com/BurntSushi/toml (see
// src/holo-build/parser.go) — except here the document is the engine's own
// configuration rather than a package manifest.
package config

import (
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config holds the setters spec.md §6 exposes on MetadataExtractor.
type Config struct {
	Verbose             bool    `toml:"verbose"`
	ExtractDebugInfo    bool    `toml:"extract_debug_info"`
	SuppressWarnings    bool    `toml:"suppress_warnings"`
	ConfidenceThreshold float64 `toml:"confidence_threshold"`
	CacheSize           int     `toml:"cache_size"`
	ExcludeRuntimePkgs  bool    `toml:"exclude_runtime_packages"`
}

// Default returns the engine's built-in defaults: confidence threshold 0.7
// (spec.md §4.8 step 5), cache size 100 (spec.md §4.6), debug extraction on.
func Default() Config {
	return Config{
		ExtractDebugInfo:    true,
		ConfidenceThreshold: 0.7,
		CacheSize:           100,
	}
}

// Load reads an optional TOML file at path (ignored if path is empty or the
// file does not exist) on top of Default(), then applies environment
// variable overrides via a best-effort .env load plus direct os.Getenv
// reads. It never returns an error for a missing file; malformed TOML is
// reported.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return cfg, err
			}
		}
	}

	// .env is optional and silently ignored when absent; real environment
	// variables always win over it.
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v, ok := os.LookupEnv("HEIMDALL_VERBOSE"); ok {
		cfg.Verbose = parseBool(v, cfg.Verbose)
	}
	if v, ok := os.LookupEnv("HEIMDALL_SUPPRESS_WARNINGS"); ok {
		cfg.SuppressWarnings = parseBool(v, cfg.SuppressWarnings)
	}
	if v, ok := os.LookupEnv("HEIMDALL_EXTRACT_DEBUG_INFO"); ok {
		cfg.ExtractDebugInfo = parseBool(v, cfg.ExtractDebugInfo)
	}
	if v, ok := os.LookupEnv("HEIMDALL_CONFIDENCE_THRESHOLD"); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 1 {
			cfg.ConfidenceThreshold = f
		}
	}
	if v, ok := os.LookupEnv("HEIMDALL_CACHE_SIZE"); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CacheSize = n
		}
	}
}

func parseBool(s string, fallback bool) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return fallback
	}
	return b
}
