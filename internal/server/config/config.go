// Package config handles configuration for the server component,
// including defaults, a JSON or YAML file overlay, environment variables
// and command-line flags.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config holds runtime settings for the CloudConfig server.
//
// Fields:
//   - ListenAddr: bind address for the HTTP API.
//   - DatabaseURL: ":memory:", a SQLite file ("file:..." or a path), or a
//     postgres:// URL for the remote mode.
//   - DatabaseAuthToken: credential for the remote mode, used as the
//     connection password when the URL carries none.
//   - MaxClockDrift: accepted distance between a request timestamp and now.
//   - MaxBodySize: request bodies above this size are rejected.
//   - NonceRetention / NoncePruneInterval: nonce pruning settings. A zero
//     interval disables the pruner.
//   - RequestTimeout: per-request deadline.
//   - S3*: object storage for config snapshots. Empty bucket disables it.
type Config struct {
	ListenAddr         string
	DatabaseURL        string
	DatabaseAuthToken  string
	MaxClockDrift      time.Duration
	MaxBodySize        int64
	NonceRetention     time.Duration
	NoncePruneInterval time.Duration
	RequestTimeout     time.Duration
	S3Bucket           string
	S3Region           string
	S3BaseEndpoint     string
	S3AccessKey        string
	S3SecretKey        string
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.ListenAddr = "0.0.0.0:8080"
	c.DatabaseURL = ":memory:"
	c.DatabaseAuthToken = ""
	c.MaxClockDrift = 300 * time.Second
	c.MaxBodySize = 1 << 20
	c.NonceRetention = time.Hour
	c.NoncePruneInterval = 10 * time.Minute
	c.RequestTimeout = 30 * time.Second
	c.S3Region = "us-east-1"
}

// IsRemote reports whether DatabaseURL selects the Postgres mode.
func (c *Config) IsRemote() bool {
	return strings.HasPrefix(c.DatabaseURL, "postgres://") || strings.HasPrefix(c.DatabaseURL, "postgresql://")
}

// SnapshotsEnabled reports whether object storage is configured.
func (c *Config) SnapshotsEnabled() bool {
	return c.S3Bucket != ""
}

// Validate rejects unusable settings and raises NonceRetention above two
// drift windows. A nonce pruned earlier than that could be replayed while
// its timestamp is still accepted.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return errors.New("listen address is empty")
	}
	if c.DatabaseURL == "" {
		return errors.New("database url is empty")
	}
	if c.MaxClockDrift < 0 {
		return fmt.Errorf("max clock drift must not be negative: %s", c.MaxClockDrift)
	}
	if c.MaxBodySize <= 0 {
		return fmt.Errorf("max body size must be positive: %d", c.MaxBodySize)
	}
	if c.NoncePruneInterval < 0 {
		return fmt.Errorf("nonce prune interval must not be negative: %s", c.NoncePruneInterval)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive: %s", c.RequestTimeout)
	}

	if c.IsRemote() {
		u, err := url.Parse(c.DatabaseURL)
		if err != nil {
			return fmt.Errorf("invalid database url: %w", err)
		}
		_, hasPassword := u.User.Password()
		if !hasPassword && c.DatabaseAuthToken == "" {
			return errors.New("remote database requires a password in the url or an auth token")
		}
	}

	if minRetention := 2*c.MaxClockDrift + time.Second; c.NonceRetention < minRetention {
		c.NonceRetention = minRetention
	}

	return nil
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional config file, the environment and finally command-line
// flags. The result is validated.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseFile(cfg); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
