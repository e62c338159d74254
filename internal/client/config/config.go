// Package config loads runtime configuration for the CloudConfig CLI.
//
// Sources, later ones winning:
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON or YAML file selected via -c or -config.
//  3. CLOUDCONFIG_* environment variables.
//  4. Command-line flags.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dmitrijs2005/cloudconfig/internal/flagx"
)

// Config holds runtime settings for the CloudConfig CLI.
//
// Fields:
//   - ServerURL: base URL of the CloudConfig server.
//   - ClientID: identity the requests are signed as.
//   - KeyFile: path to the PEM-encoded Ed25519 private key of ClientID.
//   - Timeout: per-request deadline.
type Config struct {
	ServerURL string
	ClientID  string
	KeyFile   string
	Timeout   time.Duration
}

// FileConfig is the on-disk shape of the CLI configuration.
type FileConfig struct {
	ServerURL      string `json:"server_url" yaml:"server_url"`
	ClientID       string `json:"client_id" yaml:"client_id"`
	KeyFile        string `json:"key_file" yaml:"key_file"`
	TimeoutSeconds int64  `json:"timeout_seconds" yaml:"timeout_seconds"`
}

var flagNames = []string{"-a", "-u", "-k", "-w"}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.Timeout = 10 * time.Second
}

// Validate reports missing credentials.
func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return errors.New("server url is empty")
	}
	if c.ClientID == "" {
		return errors.New("client id is not set (-u or CLOUDCONFIG_CLIENT_ID)")
	}
	if c.KeyFile == "" {
		return errors.New("key file is not set (-k or CLOUDCONFIG_KEY_FILE)")
	}
	return nil
}

// LoadConfig builds a Config from defaults, the config file named in args,
// the environment and the flags in args.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseFile(cfg, flagx.ConfigFileFlag(args)); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}

	cfg.ServerURL = strings.TrimRight(cfg.ServerURL, "/")
	return cfg, nil
}

func parseFile(cfg *Config, path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	fc := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, fc)
	default:
		err = json.Unmarshal(data, fc)
	}
	if err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}

	if fc.ServerURL != "" {
		cfg.ServerURL = fc.ServerURL
	}
	if fc.ClientID != "" {
		cfg.ClientID = fc.ClientID
	}
	if fc.KeyFile != "" {
		cfg.KeyFile = fc.KeyFile
	}
	if fc.TimeoutSeconds != 0 {
		cfg.Timeout = time.Duration(fc.TimeoutSeconds) * time.Second
	}
	return nil
}

func parseEnv(cfg *Config) error {
	if v, ok := os.LookupEnv("CLOUDCONFIG_SERVER_URL"); ok {
		cfg.ServerURL = v
	}
	if v, ok := os.LookupEnv("CLOUDCONFIG_CLIENT_ID"); ok {
		cfg.ClientID = v
	}
	if v, ok := os.LookupEnv("CLOUDCONFIG_KEY_FILE"); ok {
		cfg.KeyFile = v
	}
	if v, ok := os.LookupEnv("CLOUDCONFIG_TIMEOUT_SECONDS"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("CLOUDCONFIG_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Timeout = time.Duration(n) * time.Second
	}
	return nil
}

// parseFlags reads the CLI flags out of args.
//
//	-a string   server base URL
//	-u string   client id
//	-k string   private key file
//	-w int      request timeout, seconds
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("cli", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "server base URL")
	fs.StringVar(&cfg.ClientID, "u", cfg.ClientID, "client id")
	fs.StringVar(&cfg.KeyFile, "k", cfg.KeyFile, "private key file")
	timeout := fs.Int64("w", int64(cfg.Timeout/time.Second), "request timeout (in seconds)")

	if err := fs.Parse(flagx.FilterArgs(args, flagNames)); err != nil {
		return err
	}

	cfg.Timeout = time.Duration(*timeout) * time.Second
	return nil
}
