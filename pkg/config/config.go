// Copyright 2025 Certen Protocol
//
// Configuration (ambient stack)
// Flat struct loaded from environment variables with explicit defaults,
// validated once at startup, matching the teacher's Load()/Validate()
// idiom (pkg/config/config.go) scoped down to this service's actual
// surface: listen/RPC addresses, the data directory, chain identity, the
// signing key, and the migration override list.

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the core server.
type Config struct {
	// Server Configuration
	ListenAddr  string
	RPCAddr     string
	MetricsAddr string

	// Data & Chain Configuration
	DataDir     string
	ChainID     string
	GenesisPath string

	// Signing Key Configuration
	Ed25519KeyPath string

	// Dispatcher Configuration
	TimestampWindow    time.Duration
	DuplicateTTLBlocks uint64

	// Migration Configuration: the set of migration names this node
	// expects to be registered, validated against the statically
	// enumerated registry at startup (spec §4.7's "startup fails if the
	// configured set doesn't match the registered set").
	ConfiguredMigrations []string
	// MigrationHeights overrides the registry's default activation height
	// per migration name (see pkg/migration.BuildRegistry).
	MigrationHeights map[string]uint64

	LogLevel string
}

// Load reads configuration from environment variables. Call Validate()
// after Load() before starting the service.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:  getEnv("LISTEN_ADDR", "0.0.0.0:8080"),
		RPCAddr:     getEnv("RPC_ADDR", "tcp://127.0.0.1:26657"),
		MetricsAddr: getEnv("METRICS_ADDR", "0.0.0.0:9090"),

		DataDir:     getEnv("DATA_DIR", "./data"),
		ChainID:     getEnv("CHAIN_ID", ""),
		GenesisPath: getEnv("GENESIS_PATH", "./genesis.json"),

		Ed25519KeyPath: getEnv("ED25519_KEY_PATH", ""),

		TimestampWindow:    getEnvDuration("TIMESTAMP_WINDOW", 5*time.Minute),
		DuplicateTTLBlocks: uint64(getEnvInt64("DUPLICATE_TTL_BLOCKS", 2000)),

		ConfiguredMigrations: parseList(getEnv("CONFIGURED_MIGRATIONS", "")),
		MigrationHeights:     parseHeights(getEnv("MIGRATION_HEIGHTS", "")),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg, nil
}

// Validate checks that all required configuration is present.
func (c *Config) Validate() error {
	var errors []string

	if c.ChainID == "" {
		errors = append(errors, "CHAIN_ID is required but not set")
	}
	if c.Ed25519KeyPath == "" {
		errors = append(errors, "ED25519_KEY_PATH is required but not set")
	}
	if c.DataDir == "" {
		errors = append(errors, "DATA_DIR is required but not set")
	}
	if c.GenesisPath == "" {
		errors = append(errors, "GENESIS_PATH is required but not set")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// parseHeights parses a comma-separated "name=height" list (e.g.
// "token-migration=30,disable-token-mint=500") into a name->height map.
// Malformed entries are skipped.
func parseHeights(value string) map[string]uint64 {
	if value == "" {
		return nil
	}
	result := make(map[string]uint64)
	for _, entry := range strings.Split(value, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, heightStr, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		h, err := strconv.ParseUint(strings.TrimSpace(heightStr), 10, 64)
		if err != nil {
			continue
		}
		result[strings.TrimSpace(name)] = h
	}
	return result
}

// parseList parses a comma-separated list, trimming whitespace and
// dropping empty entries.
func parseList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
