package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/muni_commerce/internal/models"
)

const productColumns = `id, designation, category, is_footer, price, image_url, image_asset_id, created_at`

// ProductRepository handles data access for products.
type ProductRepository struct {
	db DBTX
}

// NewProductRepository creates a new ProductRepository.
func NewProductRepository(db DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *ProductRepository) WithTx(tx *sqlx.Tx) *ProductRepository {
	return &ProductRepository{db: tx}
}

// List returns products in creation order. An empty category lists every product.
func (r *ProductRepository) List(ctx context.Context, category string) ([]models.Product, error) {
	q := r.db.Rebind(`
        SELECT ` + productColumns + ` FROM products
        WHERE (? = '' OR category = ?)
        ORDER BY id ASC`)

	products := []models.Product{}
	if err := r.db.SelectContext(ctx, &products, q, category, category); err != nil {
		return nil, err
	}
	return products, nil
}

// GetByID returns a single product by id, or sql.ErrNoRows.
func (r *ProductRepository) GetByID(ctx context.Context, id int) (*models.Product, error) {
	q := r.db.Rebind(`SELECT ` + productColumns + ` FROM products WHERE id = ?`)

	var p models.Product
	if err := r.db.GetContext(ctx, &p, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, err
	}
	return &p, nil
}

// Create inserts a product and sets its generated ID.
func (r *ProductRepository) Create(ctx context.Context, p *models.Product) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	q := r.db.Rebind(`
        INSERT INTO products (designation, category, is_footer, price, image_url, image_asset_id, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
        RETURNING id`)

	return r.db.GetContext(ctx, &p.ID, q,
		p.Designation,
		p.Category,
		p.IsFooter,
		p.Price,
		p.ImageURL,
		p.ImageAssetID,
		p.CreatedAt,
	)
}

// Delete removes a product by id and reports whether a row was removed.
func (r *ProductRepository) Delete(ctx context.Context, id int) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM products WHERE id = ?`), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
