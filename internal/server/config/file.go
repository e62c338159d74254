package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dmitrijs2005/cloudconfig/internal/flagx"
)

// FileConfig is the on-disk shape of the server configuration. Durations are
// given in whole seconds. Zero values leave the current setting untouched.
type FileConfig struct {
	ListenAddr                string `json:"listen_addr" yaml:"listen_addr"`
	DatabaseURL               string `json:"database_url" yaml:"database_url"`
	DatabaseAuthToken         string `json:"database_auth_token" yaml:"database_auth_token"`
	MaxClockDriftSeconds      int64  `json:"max_clock_drift_seconds" yaml:"max_clock_drift_seconds"`
	MaxBodySizeBytes          int64  `json:"max_body_size_bytes" yaml:"max_body_size_bytes"`
	NonceRetentionSeconds     int64  `json:"nonce_retention_seconds" yaml:"nonce_retention_seconds"`
	NoncePruneIntervalSeconds *int64 `json:"nonce_prune_interval_seconds" yaml:"nonce_prune_interval_seconds"`
	RequestTimeoutSeconds     int64  `json:"request_timeout_seconds" yaml:"request_timeout_seconds"`
	S3Bucket                  string `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region                  string `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint            string `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	S3AccessKey               string `json:"s3_access_key" yaml:"s3_access_key"`
	S3SecretKey               string `json:"s3_secret_key" yaml:"s3_secret_key"`
}

// parseFile loads the file named by -c / -config, if any. Files ending in
// .yaml or .yml are decoded as YAML, everything else as JSON.
func parseFile(config *Config) error {
	path := flagx.ConfigFileFlag(os.Args[1:])

	// nothing to load
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

	fc.apply(config)
	return nil
}

func (fc *FileConfig) apply(config *Config) {
	setString(&config.ListenAddr, fc.ListenAddr)
	setString(&config.DatabaseURL, fc.DatabaseURL)
	setString(&config.DatabaseAuthToken, fc.DatabaseAuthToken)
	setSeconds(&config.MaxClockDrift, fc.MaxClockDriftSeconds)
	if fc.MaxBodySizeBytes != 0 {
		config.MaxBodySize = fc.MaxBodySizeBytes
	}
	setSeconds(&config.NonceRetention, fc.NonceRetentionSeconds)
	if fc.NoncePruneIntervalSeconds != nil {
		config.NoncePruneInterval = time.Duration(*fc.NoncePruneIntervalSeconds) * time.Second
	}
	setSeconds(&config.RequestTimeout, fc.RequestTimeoutSeconds)
	setString(&config.S3Bucket, fc.S3Bucket)
	setString(&config.S3Region, fc.S3Region)
	setString(&config.S3BaseEndpoint, fc.S3BaseEndpoint)
	setString(&config.S3AccessKey, fc.S3AccessKey)
	setString(&config.S3SecretKey, fc.S3SecretKey)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setSeconds(dst *time.Duration, v int64) {
	if v != 0 {
		*dst = time.Duration(v) * time.Second
	}
}
