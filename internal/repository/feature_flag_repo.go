package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/muni_commerce/internal/models"
)

// FeatureFlagRepository handles data access for feature flags.
type FeatureFlagRepository struct {
	db DBTX
}

// NewFeatureFlagRepository creates a new FeatureFlagRepository.
func NewFeatureFlagRepository(db DBTX) *FeatureFlagRepository {
	return &FeatureFlagRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *FeatureFlagRepository) WithTx(tx *sqlx.Tx) *FeatureFlagRepository {
	return &FeatureFlagRepository{db: tx}
}

// Get returns the flag stored under key, or sql.ErrNoRows.
func (r *FeatureFlagRepository) Get(ctx context.Context, key string) (*models.FeatureFlag, error) {
	var f models.FeatureFlag
	q := r.db.Rebind(`SELECT flag_key, active FROM feature_flag WHERE flag_key = ?`)
	if err := r.db.GetContext(ctx, &f, q, key); err != nil {
		return nil, err
	}
	return &f, nil
}

// List returns every stored flag ordered by key.
func (r *FeatureFlagRepository) List(ctx context.Context) ([]models.FeatureFlag, error) {
	flags := []models.FeatureFlag{}
	if err := r.db.SelectContext(ctx, &flags, `SELECT flag_key, active FROM feature_flag ORDER BY flag_key`); err != nil {
		return nil, err
	}
	return flags, nil
}

// Toggle flips the stored value and returns the new one. found is false when
// the key does not exist, in which case nothing changes.
func (r *FeatureFlagRepository) Toggle(ctx context.Context, key string) (active bool, found bool, err error) {
	q := r.db.Rebind(`UPDATE feature_flag SET active = NOT active WHERE flag_key = ? RETURNING active`)
	if err := r.db.GetContext(ctx, &active, q, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, false, nil
		}
		return false, false, err
	}
	return active, true, nil
}

// InsertIfMissing stores key as active unless a row already exists.
// It reports whether a row was inserted.
func (r *FeatureFlagRepository) InsertIfMissing(ctx context.Context, key string) (bool, error) {
	q := r.db.Rebind(`INSERT INTO feature_flag (flag_key, active) VALUES (?, ?) ON CONFLICT (flag_key) DO NOTHING`)
	res, err := r.db.ExecContext(ctx, q, key, true)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
