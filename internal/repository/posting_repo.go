package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/muni_commerce/internal/models"
)

// PostingRepository handles data access for job postings.
type PostingRepository struct {
	db DBTX
}

// NewPostingRepository creates a new PostingRepository.
func NewPostingRepository(db DBTX) *PostingRepository {
	return &PostingRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *PostingRepository) WithTx(tx *sqlx.Tx) *PostingRepository {
	return &PostingRepository{db: tx}
}

// List returns all postings in creation order.
func (r *PostingRepository) List(ctx context.Context) ([]models.Posting, error) {
	postings := []models.Posting{}
	if err := r.db.SelectContext(ctx, &postings, `SELECT id, title, created_at FROM postings ORDER BY id ASC`); err != nil {
		return nil, err
	}
	return postings, nil
}

// Create inserts a posting and sets its generated ID.
func (r *PostingRepository) Create(ctx context.Context, p *models.Posting) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	q := r.db.Rebind(`INSERT INTO postings (title, created_at) VALUES (?, ?) RETURNING id`)
	return r.db.GetContext(ctx, &p.ID, q, p.Title, p.CreatedAt)
}

// Delete removes a posting by id and reports whether a row was removed.
func (r *PostingRepository) Delete(ctx context.Context, id int) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM postings WHERE id = ?`), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
