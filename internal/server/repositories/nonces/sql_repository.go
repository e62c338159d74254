// Package nonces records request nonces per identity. The primary key on
// (client_id, nonce) is the only replay check: a second insert of the same
// pair fails inside the database, whatever the interleaving of callers.
package nonces

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/cloudconfig/internal/dbx"
)

// ErrReplay reports that the nonce was already recorded for the identity.
var ErrReplay = errors.New("nonce already used")

type SQLRepository struct {
	db      dbx.DBTX
	dialect dbx.Dialect
}

func NewSQLRepository(db dbx.DBTX, dialect dbx.Dialect) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect}
}

// Insert records (clientID, nonce). It returns ErrReplay when the pair exists.
func (r *SQLRepository) Insert(ctx context.Context, clientID, nonce string, seenAt time.Time) error {
	query :=
		`INSERT INTO nonce_records (client_id, nonce, created_at)
		 VALUES (?, ?, ?)`

	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(query), clientID, nonce, seenAt.Unix())
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return ErrReplay
		}
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

// DeleteOlderThan prunes records first seen before cutoff and returns how
// many were removed.
func (r *SQLRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM nonce_records WHERE created_at < ?`), cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return n, nil
}
