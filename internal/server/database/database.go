// Package database opens the backing store selected by the database URL and
// applies the embedded schema migrations.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/cloudconfig/internal/dbx"
	"github.com/dmitrijs2005/cloudconfig/internal/server/migrations"
)

// MemoryURL selects a private in-memory SQLite database.
const MemoryURL = ":memory:"

const sqlitePragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

// Pool limits for the remote mode.
const (
	maxOpenConns    = 10
	maxIdleConns    = 5
	connMaxIdleTime = 15 * time.Minute
	connMaxLifetime = time.Hour
	pingTimeout     = 5 * time.Second
)

// Open connects to the store named by databaseURL:
//
//	:memory:                  in-memory SQLite, one shared connection
//	file:... or a plain path  SQLite file
//	postgres://, postgresql:// remote Postgres through pgx
//
// For the remote mode authToken, when non-empty and the URL has no password,
// is used as the connection password. The connection is pinged before return.
func Open(ctx context.Context, databaseURL, authToken string) (*sql.DB, dbx.Dialect, error) {
	dialect, dsn, err := DSN(databaseURL, authToken)
	if err != nil {
		return nil, "", err
	}

	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", dialect, err)
	}

	switch dialect {
	case dbx.DialectPostgres:
		db.SetMaxOpenConns(maxOpenConns)
		db.SetMaxIdleConns(maxIdleConns)
		db.SetConnMaxIdleTime(connMaxIdleTime)
		db.SetConnMaxLifetime(connMaxLifetime)
	default:
		// SQLite allows one writer. A single connection also keeps an
		// in-memory database alive for the lifetime of the pool.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxIdleTime(0)
		db.SetConnMaxLifetime(0)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, "", fmt.Errorf("ping %s: %w", dialect, err)
	}

	return db, dialect, nil
}

// DSN maps a database URL to a dialect and a driver connection string.
func DSN(databaseURL, authToken string) (dbx.Dialect, string, error) {
	switch {
	case databaseURL == "":
		return "", "", errors.New("database url is empty")

	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		u, err := url.Parse(databaseURL)
		if err != nil {
			return "", "", fmt.Errorf("invalid database url: %w", err)
		}
		if _, ok := u.User.Password(); !ok && authToken != "" {
			u.User = url.UserPassword(u.User.Username(), authToken)
		}
		return dbx.DialectPostgres, u.String(), nil

	case databaseURL == MemoryURL:
		return dbx.DialectSQLite, "file::memory:?" + sqlitePragmas, nil

	default:
		dsn := databaseURL
		if !strings.HasPrefix(dsn, "file:") {
			dsn = "file:" + dsn
		}
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		return dbx.DialectSQLite, dsn + sep + sqlitePragmas, nil
	}
}

var gooseMu sync.Mutex

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Migrate applies the embedded migrations for dialect. goose keeps its
// settings in package state, so calls are serialized.
func Migrate(ctx context.Context, db *sql.DB, dialect dbx.Dialect) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(dialect.GooseDialect()); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}

	if err := gooseUpContext(ctx, db, string(dialect)); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// OpenAndMigrate opens the store and brings its schema up to date.
func OpenAndMigrate(ctx context.Context, databaseURL, authToken string) (*sql.DB, dbx.Dialect, error) {
	db, dialect, err := Open(ctx, databaseURL, authToken)
	if err != nil {
		return nil, "", err
	}
	if err := Migrate(ctx, db, dialect); err != nil {
		_ = db.Close()
		return nil, "", err
	}
	return db, dialect, nil
}
