package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/muni_commerce/internal/models"
	"github.com/GTDGit/muni_commerce/internal/repository"
	"github.com/GTDGit/muni_commerce/internal/testutil"
)

func strPtr(s string) *string { return &s }

func TestProductRepositoryCreateListDelete(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewProductRepository(db)
	ctx := context.Background()

	p1 := &models.Product{Designation: "Savon", Category: "foyer", Price: 500}
	p2 := &models.Product{Designation: "Tomates", Category: "marche", Price: 250.5, IsFooter: true}
	p3 := &models.Product{
		Designation:  "Balai",
		Category:     "foyer",
		ImageURL:     strPtr("https://cdn.example/balai.jpg"),
		ImageAssetID: strPtr("products/balai.jpg"),
	}
	for _, p := range []*models.Product{p1, p2, p3} {
		require.NoError(t, repo.Create(ctx, p))
		assert.NotZero(t, p.ID)
	}

	all, err := repo.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int{p1.ID, p2.ID, p3.ID}, []int{all[0].ID, all[1].ID, all[2].ID})

	foyer, err := repo.List(ctx, "foyer")
	require.NoError(t, err)
	require.Len(t, foyer, 2)
	assert.Equal(t, "Savon", foyer[0].Designation)
	assert.Equal(t, "Balai", foyer[1].Designation)
	assert.True(t, foyer[1].HasAsset())
	assert.False(t, foyer[0].HasAsset())

	got, err := repo.GetByID(ctx, p2.ID)
	require.NoError(t, err)
	assert.Equal(t, 250.5, got.Price)
	assert.True(t, got.IsFooter)

	removed, err := repo.Delete(ctx, p2.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.Delete(ctx, p2.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = repo.GetByID(ctx, p2.ID)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestProductRepositoryListEmpty(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewProductRepository(db)

	products, err := repo.List(context.Background(), "marche")
	require.NoError(t, err)
	assert.NotNil(t, products)
	assert.Empty(t, products)
}

func TestPostingRepository(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewPostingRepository(db)
	ctx := context.Background()

	a := &models.Posting{Title: "Vendeur"}
	b := &models.Posting{Title: "Livreur"}
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Vendeur", list[0].Title)

	removed, err := repo.Delete(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, 1, testutil.Count(t, db, "postings"))
}

func TestFeatureFlagRepository(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewFeatureFlagRepository(db)
	ctx := context.Background()

	inserted, err := repo.InsertIfMissing(ctx, "commerce")
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.InsertIfMissing(ctx, "commerce")
	require.NoError(t, err)
	assert.False(t, inserted)

	f, err := repo.Get(ctx, "commerce")
	require.NoError(t, err)
	assert.True(t, f.Active)

	active, found, err := repo.Toggle(ctx, "commerce")
	require.NoError(t, err)
	assert.True(t, found)
	assert.False(t, active)

	_, found, err = repo.Toggle(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, found)

	_, err = repo.Get(ctx, "unknown")
	assert.True(t, errors.Is(err, sql.ErrNoRows))

	flags, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.FeatureFlag{{Key: "commerce", Active: false}}, flags)
}

func TestAdminLogRepository(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewAdminLogRepository(db)
	ctx := context.Background()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	for _, action := range []string{"admin login", "product added: Savon", "admin logout"} {
		_, err := repo.Append(ctx, action, now)
		require.NoError(t, err)
	}

	recent, err := repo.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "admin logout", recent[0].Action)
	assert.Equal(t, "product added: Savon", recent[1].Action)
	assert.True(t, recent[0].CreatedAt.Equal(now))
}

func TestRateLimitRepositoryApply(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewRateLimitRepository(db)
	ctx := context.Background()
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	var seen *models.RateLimitRecord
	err := repo.Apply(ctx, "1.2.3.4", "admin_login", time.Minute, func(cur *models.RateLimitRecord) *models.RateLimitRecord {
		seen = cur
		return &models.RateLimitRecord{Count: 1, WindowStart: start}
	})
	require.NoError(t, err)
	assert.Nil(t, seen)

	err = repo.Apply(ctx, "1.2.3.4", "admin_login", time.Minute, func(cur *models.RateLimitRecord) *models.RateLimitRecord {
		seen = cur
		next := *cur
		next.Count++
		return &next
	})
	require.NoError(t, err)
	require.NotNil(t, seen)
	assert.Equal(t, 1, seen.Count)

	rec, err := repo.Get(ctx, "1.2.3.4", "admin_login")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Count)
	assert.True(t, rec.WindowStart.Equal(start))

	// nil leaves the row as is
	require.NoError(t, repo.Apply(ctx, "1.2.3.4", "admin_login", time.Minute, func(*models.RateLimitRecord) *models.RateLimitRecord { return nil }))
	rec, err = repo.Get(ctx, "1.2.3.4", "admin_login")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Count)

	other, err := repo.Get(ctx, "1.2.3.4", "investissement")
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestTransactorRollsBack(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	products := repository.NewProductRepository(db)
	boom := errors.New("boom")

	err := repository.NewTransactor(db).WithinTx(ctx, func(tx *sqlx.Tx) error {
		if err := products.WithTx(tx).Create(ctx, &models.Product{Designation: "X", Category: "foyer"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, testutil.Count(t, db, "products"))
}
