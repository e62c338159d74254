package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// parseEnv overlays settings from environment variables. Unset variables
// are ignored; malformed numbers are an error.
func parseEnv(config *Config) error {
	lookupString("LISTEN_ADDR", &config.ListenAddr)
	lookupString("DATABASE_URL", &config.DatabaseURL)
	lookupString("DATABASE_AUTH_TOKEN", &config.DatabaseAuthToken)
	lookupString("S3_BUCKET", &config.S3Bucket)
	lookupString("S3_REGION", &config.S3Region)
	lookupString("S3_BASE_ENDPOINT", &config.S3BaseEndpoint)
	lookupString("S3_ACCESS_KEY", &config.S3AccessKey)
	lookupString("S3_SECRET_KEY", &config.S3SecretKey)

	if err := lookupSeconds("MAX_CLOCK_DRIFT_SECONDS", &config.MaxClockDrift); err != nil {
		return err
	}
	if err := lookupSeconds("NONCE_RETENTION_SECONDS", &config.NonceRetention); err != nil {
		return err
	}
	if err := lookupSeconds("NONCE_PRUNE_INTERVAL_SECONDS", &config.NoncePruneInterval); err != nil {
		return err
	}
	if err := lookupSeconds("REQUEST_TIMEOUT_SECONDS", &config.RequestTimeout); err != nil {
		return err
	}

	if v, ok := os.LookupEnv("MAX_BODY_SIZE_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("MAX_BODY_SIZE_BYTES: %w", err)
		}
		config.MaxBodySize = n
	}

	return nil
}

func lookupString(name string, dst *string) {
	if v, ok := os.LookupEnv(name); ok {
		*dst = v
	}
}

func lookupSeconds(name string, dst *time.Duration) error {
	v, ok := os.LookupEnv(name)
	if !ok {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = time.Duration(n) * time.Second
	return nil
}
