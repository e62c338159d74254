package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/cloudconfig/internal/logging"
	"github.com/dmitrijs2005/cloudconfig/internal/server/repositories/repomanager"
)

// NoncePruner periodically deletes nonce records older than the retention.
// Retention is kept above two drift windows by config validation, so a
// pruned nonce always belongs to a timestamp the drift check rejects.
type NoncePruner struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	retention   time.Duration
	interval    time.Duration
	logger      logging.Logger
	now         func() time.Time
}

func NewNoncePruner(db *sql.DB, m repomanager.RepositoryManager, retention, interval time.Duration, logger logging.Logger) *NoncePruner {
	return &NoncePruner{
		db:          db,
		repomanager: m,
		retention:   retention,
		interval:    interval,
		logger:      logger,
		now:         time.Now,
	}
}

// PruneOnce removes expired records and returns how many were deleted.
func (p *NoncePruner) PruneOnce(ctx context.Context) (int64, error) {
	return p.repomanager.Nonces(p.db).DeleteOlderThan(ctx, p.now().Add(-p.retention))
}

// Run prunes every interval until ctx is done. A non-positive interval
// disables pruning and Run returns at once.
func (p *NoncePruner) Run(ctx context.Context) {
	if p.interval <= 0 {
		return
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.PruneOnce(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				p.logger.Error(ctx, "nonce pruning failed", "error", err)
				continue
			}
			if n > 0 {
				p.logger.Debug(ctx, "nonce records pruned", "count", n)
			}
		}
	}
}
