package config

import (
	"flag"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/cloudconfig/internal/flagx"
)

var flagNames = []string{
	"-a", "-d", "-k", "-t", "-b", "-n", "-i", "-w",
	"-sb", "-sg", "-se", "-su", "-sp",
}

// parseFlags populates server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., "0.0.0.0:8080")
//	-d string   database URL (":memory:", SQLite path, or postgres://)
//	-k string   remote database auth token
//	-t int      max clock drift, seconds
//	-b int      max request body size, bytes
//	-n int      nonce retention, seconds
//	-i int      nonce prune interval, seconds (0 disables pruning)
//	-w int      request timeout, seconds
//	-sb string  S3 bucket for snapshots
//	-sg string  S3 region
//	-se string  S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-su string  S3 access key
//	-sp string  S3 secret key
//
// os.Args is first filtered with flagx.FilterArgs so subcommands and the
// config file flag do not collide with these.
func parseFlags(config *Config) error {
	args := flagx.FilterArgs(os.Args[1:], flagNames)

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.ListenAddr, "a", config.ListenAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseURL, "d", config.DatabaseURL, "database URL")
	fs.StringVar(&config.DatabaseAuthToken, "k", config.DatabaseAuthToken, "remote database auth token")

	drift := fs.Int64("t", int64(config.MaxClockDrift/time.Second), "max clock drift (in seconds)")
	fs.Int64Var(&config.MaxBodySize, "b", config.MaxBodySize, "max request body size (in bytes)")
	retention := fs.Int64("n", int64(config.NonceRetention/time.Second), "nonce retention (in seconds)")
	pruneInterval := fs.Int64("i", int64(config.NoncePruneInterval/time.Second), "nonce prune interval (in seconds)")
	timeout := fs.Int64("w", int64(config.RequestTimeout/time.Second), "request timeout (in seconds)")

	fs.StringVar(&config.S3Bucket, "sb", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "sg", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "se", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.S3AccessKey, "su", config.S3AccessKey, "S3 access key")
	fs.StringVar(&config.S3SecretKey, "sp", config.S3SecretKey, "S3 secret key")

	if err := fs.Parse(args); err != nil {
		return err
	}

	config.MaxClockDrift = time.Duration(*drift) * time.Second
	config.NonceRetention = time.Duration(*retention) * time.Second
	config.NoncePruneInterval = time.Duration(*pruneInterval) * time.Second
	config.RequestTimeout = time.Duration(*timeout) * time.Second

	return nil
}
