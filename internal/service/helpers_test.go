package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/GTDGit/muni_commerce/internal/config"
	"github.com/GTDGit/muni_commerce/internal/metrics"
	"github.com/GTDGit/muni_commerce/internal/repository"
	"github.com/GTDGit/muni_commerce/internal/testutil"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)

type fakeAssets struct {
	mu        sync.Mutex
	uploadErr error
	deleteErr error
	uploads   int
	deleted   []string
}

func (f *fakeAssets) Upload(_ context.Context, _ []byte, contentType string) (*UploadedAsset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	f.uploads++
	id := "products/img_test" + imageExtensions[contentType]
	return &UploadedAsset{URL: "https://cdn.example/" + id, AssetID: id}, nil
}

func (f *fakeAssets) Delete(_ context.Context, assetID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, assetID)
	return f.deleteErr
}

type fakeModerator struct {
	err   error
	calls int
}

func (f *fakeModerator) Check(context.Context, []byte) error {
	f.calls++
	return f.err
}

type testEnv struct {
	db       *sqlx.DB
	metrics  *metrics.Metrics
	tx       *repository.Transactor
	audit    *AuditService
	flags    *FeatureFlagService
	postings *PostingService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewTestDB(t)
	m := metrics.New(prometheus.NewRegistry())
	tx := repository.NewTransactor(db)
	audit := NewAuditService(repository.NewAdminLogRepository(db))
	return &testEnv{
		db:       db,
		metrics:  m,
		tx:       tx,
		audit:    audit,
		flags:    NewFeatureFlagService(repository.NewFeatureFlagRepository(db), tx, audit, m),
		postings: NewPostingService(repository.NewPostingRepository(db), tx, audit, m),
	}
}

func (e *testEnv) products(assets AssetStore, moderator ImageModerator) *ProductService {
	catalog := config.CatalogConfig{Sections: config.DefaultSections, Flags: config.DefaultFlags}
	return NewProductService(repository.NewProductRepository(e.db), e.tx, e.audit, assets, moderator, catalog, e.metrics)
}

func (e *testEnv) auditActions(t *testing.T) []string {
	t.Helper()
	var actions []string
	if err := e.db.Select(&actions, "SELECT action FROM admin_log ORDER BY id"); err != nil {
		t.Fatal(err)
	}
	return actions
}

var errRemote = errors.New("remote failure")
