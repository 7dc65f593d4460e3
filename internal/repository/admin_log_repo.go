package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/muni_commerce/internal/models"
)

// AdminLogRepository appends and reads audit entries. There is no update or
// delete: the log is append-only.
type AdminLogRepository struct {
	db DBTX
}

// NewAdminLogRepository creates a new AdminLogRepository.
func NewAdminLogRepository(db DBTX) *AdminLogRepository {
	return &AdminLogRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *AdminLogRepository) WithTx(tx *sqlx.Tx) *AdminLogRepository {
	return &AdminLogRepository{db: tx}
}

// Append stores a new entry.
func (r *AdminLogRepository) Append(ctx context.Context, action string, at time.Time) (*models.AdminLogEntry, error) {
	entry := &models.AdminLogEntry{Action: action, CreatedAt: at.UTC()}
	q := r.db.Rebind(`INSERT INTO admin_log (action, created_at) VALUES (?, ?) RETURNING id`)
	if err := r.db.GetContext(ctx, &entry.ID, q, entry.Action, entry.CreatedAt); err != nil {
		return nil, err
	}
	return entry, nil
}

// Recent returns up to limit entries, newest first.
func (r *AdminLogRepository) Recent(ctx context.Context, limit int) ([]models.AdminLogEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	entries := []models.AdminLogEntry{}
	q := r.db.Rebind(`SELECT id, action, created_at FROM admin_log ORDER BY id DESC LIMIT ?`)
	if err := r.db.SelectContext(ctx, &entries, q, limit); err != nil {
		return nil, err
	}
	return entries, nil
}
