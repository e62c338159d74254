package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaults() *Config {
	c := &Config{}
	c.LoadDefaults()
	return c
}

func TestLoadDefaults(t *testing.T) {
	c := defaults()

	assert.Equal(t, "0.0.0.0:8080", c.ListenAddr)
	assert.Equal(t, ":memory:", c.DatabaseURL)
	assert.Empty(t, c.DatabaseAuthToken)
	assert.Equal(t, 300*time.Second, c.MaxClockDrift)
	assert.Equal(t, int64(1<<20), c.MaxBodySize)
	assert.Equal(t, time.Hour, c.NonceRetention)
	assert.Equal(t, 10*time.Minute, c.NoncePruneInterval)
	assert.Equal(t, 30*time.Second, c.RequestTimeout)
	assert.False(t, c.SnapshotsEnabled())
	assert.False(t, c.IsRemote())
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"server"}

	c, err := LoadConfig()
	require.NoError(t, err)
	require.NotNil(t, c, "LoadConfig must not return nil")

	assert.Empty(t, cmp.Diff(defaults(), c))
}

func TestLoadConfig_Precedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := writeTempFile(t, "cfg.json", `{"listen_addr":"file:1","database_url":"file.db","max_clock_drift_seconds":60}`)
	t.Setenv("DATABASE_URL", "env.db")
	t.Setenv("MAX_CLOCK_DRIFT_SECONDS", "90")

	os.Args = []string{"server", "serve", "-c", path, "-t", "120"}

	c, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "file:1", c.ListenAddr, "file overrides defaults")
	assert.Equal(t, "env.db", c.DatabaseURL, "env overrides file")
	assert.Equal(t, 120*time.Second, c.MaxClockDrift, "flags override env")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "zero drift allowed", mutate: func(c *Config) { c.MaxClockDrift = 0 }},
		{name: "negative drift", mutate: func(c *Config) { c.MaxClockDrift = -time.Second }, wantErr: true},
		{name: "zero body size", mutate: func(c *Config) { c.MaxBodySize = 0 }, wantErr: true},
		{name: "negative prune interval", mutate: func(c *Config) { c.NoncePruneInterval = -time.Second }, wantErr: true},
		{name: "zero timeout", mutate: func(c *Config) { c.RequestTimeout = 0 }, wantErr: true},
		{name: "empty listen addr", mutate: func(c *Config) { c.ListenAddr = "" }, wantErr: true},
		{name: "empty database url", mutate: func(c *Config) { c.DatabaseURL = "" }, wantErr: true},
		{
			name:    "remote without credential",
			mutate:  func(c *Config) { c.DatabaseURL = "postgres://app@db:5432/cloudconfig" },
			wantErr: true,
		},
		{
			name: "remote with password",
			mutate: func(c *Config) {
				c.DatabaseURL = "postgres://app:secret@db:5432/cloudconfig"
			},
		},
		{
			name: "remote with auth token",
			mutate: func(c *Config) {
				c.DatabaseURL = "postgresql://app@db:5432/cloudconfig"
				c.DatabaseAuthToken = "token"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := defaults()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_RaisesNonceRetention(t *testing.T) {
	c := defaults()
	c.MaxClockDrift = 10 * time.Minute
	c.NonceRetention = time.Minute

	require.NoError(t, c.Validate())
	assert.Greater(t, c.NonceRetention, 2*c.MaxClockDrift)

	c = defaults()
	require.NoError(t, c.Validate())
	assert.Equal(t, time.Hour, c.NonceRetention, "long enough retention is kept")
}
