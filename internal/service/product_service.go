package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cast"

	"github.com/GTDGit/muni_commerce/internal/config"
	"github.com/GTDGit/muni_commerce/internal/metrics"
	"github.com/GTDGit/muni_commerce/internal/models"
	"github.com/GTDGit/muni_commerce/internal/repository"
	"github.com/GTDGit/muni_commerce/internal/utils"
)

// ProductService handles catalogue add, delete and listing.
type ProductService struct {
	repo      *repository.ProductRepository
	tx        *repository.Transactor
	audit     *AuditService
	assets    AssetStore
	moderator ImageModerator
	catalog   config.CatalogConfig
	metrics   *metrics.Metrics
}

// NewProductService constructs a ProductService. assets and moderator may be nil:
// without an asset store, products cannot carry images.
func NewProductService(
	repo *repository.ProductRepository,
	tx *repository.Transactor,
	audit *AuditService,
	assets AssetStore,
	moderator ImageModerator,
	catalog config.CatalogConfig,
	m *metrics.Metrics,
) *ProductService {
	return &ProductService{
		repo:      repo,
		tx:        tx,
		audit:     audit,
		assets:    assets,
		moderator: moderator,
		catalog:   catalog,
		metrics:   m,
	}
}

// AddProductRequest is the admin form input for a new product.
type AddProductRequest struct {
	Designation string
	Category    string
	IsFooter    bool
	Price       string
	Image       []byte
}

// ParsePrice converts form input to a price. Anything that is not a finite,
// non-negative number becomes 0: a bad price never rejects the product.
func ParsePrice(raw string) float64 {
	p := cast.ToFloat64(strings.TrimSpace(raw))
	if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
		return 0
	}
	return p
}

// Add validates the request, uploads the image if any, then inserts the
// product and its audit entry in one transaction. An upload failure aborts
// before the database is touched.
func (s *ProductService) Add(ctx context.Context, req AddProductRequest) (*models.Product, error) {
	product := &models.Product{
		Designation: CleanText(req.Designation),
		Category:    strings.ToLower(strings.TrimSpace(req.Category)),
		IsFooter:    req.IsFooter,
		Price:       ParsePrice(req.Price),
	}
	if product.Designation == "" {
		return nil, utils.ErrInvalidDesignation
	}
	if _, ok := s.catalog.SectionLabel(product.Category); !ok {
		return nil, fmt.Errorf("%w: %q", utils.ErrInvalidCategory, product.Category)
	}

	var uploaded *UploadedAsset
	if len(req.Image) > 0 {
		var err error
		uploaded, err = s.uploadImage(ctx, req.Image)
		if err != nil {
			return nil, err
		}
		product.ImageURL = &uploaded.URL
		product.ImageAssetID = &uploaded.AssetID
	}

	err := s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.repo.WithTx(tx).Create(ctx, product); err != nil {
			return err
		}
		return s.audit.RecordTx(ctx, tx, "product added: "+product.Designation)
	})
	if err != nil {
		if uploaded != nil {
			s.deleteAsset(ctx, uploaded.AssetID)
		}
		return nil, err
	}

	s.metrics.RecordAdminAction("product_add")
	log.Info().Int("product_id", product.ID).Str("category", product.Category).Msg("Product added")
	return product, nil
}

func (s *ProductService) uploadImage(ctx context.Context, data []byte) (*UploadedAsset, error) {
	if s.assets == nil {
		return nil, utils.ErrAssetsDisabled
	}
	contentType, _, ok := detectImageType(data)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported type %s", utils.ErrImageRejected, contentType)
	}
	if s.moderator != nil {
		if err := s.moderator.Check(ctx, data); err != nil {
			return nil, err
		}
	}
	uploaded, err := s.assets.Upload(ctx, data, contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrAssetUpload, err)
	}
	return uploaded, nil
}

// Delete removes a product. A missing id is a no-op (removed is false). When
// the product has an image, the asset host is asked to delete it once the
// row is gone; a failure there is logged and counted, never returned.
func (s *ProductService) Delete(ctx context.Context, id int) (removed bool, err error) {
	var product *models.Product
	err = s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		repo := s.repo.WithTx(tx)
		p, err := repo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return err
		}
		if _, err := repo.Delete(ctx, id); err != nil {
			return err
		}
		product = p
		return s.audit.RecordTx(ctx, tx, fmt.Sprintf("product deleted: %d", p.ID))
	})
	if err != nil || product == nil {
		return false, err
	}

	s.metrics.RecordAdminAction("product_delete")
	if product.HasAsset() {
		s.deleteAsset(ctx, *product.ImageAssetID)
	}
	return true, nil
}

func (s *ProductService) deleteAsset(ctx context.Context, assetID string) {
	if s.assets == nil {
		log.Warn().Str("asset_id", assetID).Msg("No asset store configured, image left on host")
		s.metrics.RecordAssetDeleteFailure()
		return
	}
	if err := s.assets.Delete(ctx, assetID); err != nil {
		log.Warn().Err(err).Str("asset_id", assetID).Msg("Image deletion failed")
		s.metrics.RecordAssetDeleteFailure()
	}
}

// List returns products in creation order; an empty category lists all.
func (s *ProductService) List(ctx context.Context, category string) ([]models.Product, error) {
	return s.repo.List(ctx, category)
}

// BySection lists products of every configured section, keyed by section.
func (s *ProductService) BySection(ctx context.Context) (map[string][]models.Product, error) {
	all, err := s.repo.List(ctx, "")
	if err != nil {
		return nil, err
	}
	out := make(map[string][]models.Product, len(s.catalog.Sections))
	for _, sec := range s.catalog.Sections {
		out[sec.Key] = []models.Product{}
	}
	for _, p := range all {
		if _, ok := out[p.Category]; ok {
			out[p.Category] = append(out[p.Category], p)
		}
	}
	return out, nil
}

// Sections returns the configured catalogue sections.
func (s *ProductService) Sections() []config.Section {
	return s.catalog.Sections
}

// Section returns the configured section with the given key.
func (s *ProductService) Section(key string) (config.Section, bool) {
	for _, sec := range s.catalog.Sections {
		if sec.Key == key {
			return sec, true
		}
	}
	return config.Section{}, false
}
