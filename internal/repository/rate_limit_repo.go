package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/muni_commerce/internal/models"
)

// RateLimitRepository persists fixed-window counters in the rate_limit table.
type RateLimitRepository struct {
	db *sqlx.DB
}

// NewRateLimitRepository creates a new RateLimitRepository.
func NewRateLimitRepository(db *sqlx.DB) *RateLimitRepository {
	return &RateLimitRepository{db: db}
}

// Apply loads the counter for (ip, endpoint), hands it to fn (nil when absent)
// and stores the record fn returns, all in one transaction. A nil return from
// fn leaves the row untouched. Rows never expire, so window is unused.
//
// The read is a plain SELECT: two concurrent requests may both read the same
// count before either writes.
func (r *RateLimitRepository) Apply(ctx context.Context, ip, endpoint string, _ time.Duration, fn func(cur *models.RateLimitRecord) *models.RateLimitRecord) error {
	return NewTransactor(r.db).WithinTx(ctx, func(tx *sqlx.Tx) error {
		cur, err := getRateLimit(ctx, tx, ip, endpoint)
		if err != nil {
			return err
		}

		next := fn(cur)
		if next == nil {
			return nil
		}

		q := tx.Rebind(`
            INSERT INTO rate_limit (ip, endpoint, count, window_start)
            VALUES (?, ?, ?, ?)
            ON CONFLICT (ip, endpoint) DO UPDATE SET
                count = excluded.count,
                window_start = excluded.window_start`)
		_, err = tx.ExecContext(ctx, q, ip, endpoint, next.Count, next.WindowStart.UTC())
		return err
	})
}

// Get returns the stored counter or nil when none exists.
func (r *RateLimitRepository) Get(ctx context.Context, ip, endpoint string) (*models.RateLimitRecord, error) {
	return getRateLimit(ctx, r.db, ip, endpoint)
}

func getRateLimit(ctx context.Context, db DBTX, ip, endpoint string) (*models.RateLimitRecord, error) {
	var rec models.RateLimitRecord
	q := db.Rebind(`SELECT ip, endpoint, count, window_start FROM rate_limit WHERE ip = ? AND endpoint = ?`)
	if err := db.GetContext(ctx, &rec, q, ip, endpoint); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}
