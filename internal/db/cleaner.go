package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const deleteStaleStorage = `DELETE FROM local_storage WHERE updated_at < $1`

// SweepStaleStorage deletes local_storage rows last written before cutoff
// and reports how many were removed.
func SweepStaleStorage(ctx context.Context, db *sql.DB, cutoff time.Time) (int64, error) {
	res, err := db.ExecContext(ctx, deleteStaleStorage, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep local storage: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sweep local storage: %w", err)
	}
	return removed, nil
}

// StartStaleStorageCleaner sweeps rows older than retention every interval
// until ctx is done. Profiles abandoned by their browser would otherwise keep
// their isLoggedIn and savedUserId rows forever.
func StartStaleStorageCleaner(
	ctx context.Context,
	db *sql.DB,
	interval time.Duration,
	retention time.Duration,
	log *zap.Logger,
) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				removed, err := SweepStaleStorage(ctx, db, now.Add(-retention))
				switch {
				case err != nil:
					log.Error("failed to clean stale local storage", zap.Error(err))
				case removed > 0:
					log.Info("cleaned stale local storage", zap.Int64("removed", removed))
				}
			}
		}
	}()
}
