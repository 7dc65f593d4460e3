package models

import "time"

// Product represents a catalogue entry shown on the commerce pages.
// Products are never edited in place: the admin adds and deletes them.
type Product struct {
	ID           int       `db:"id" json:"id"`
	Designation  string    `db:"designation" json:"designation"`
	Category     string    `db:"category" json:"category"`
	IsFooter     bool      `db:"is_footer" json:"isFooter"`
	Price        float64   `db:"price" json:"price"`
	ImageURL     *string   `db:"image_url" json:"image,omitempty"`
	ImageAssetID *string   `db:"image_asset_id" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// HasAsset reports whether the product references an image on the asset host.
func (p *Product) HasAsset() bool {
	return p.ImageAssetID != nil && *p.ImageAssetID != ""
}
