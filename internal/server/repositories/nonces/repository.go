package nonces

import (
	"context"
	"time"
)

type Repository interface {
	Insert(ctx context.Context, clientID, nonce string, seenAt time.Time) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
