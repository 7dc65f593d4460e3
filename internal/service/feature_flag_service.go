package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/muni_commerce/internal/metrics"
	"github.com/GTDGit/muni_commerce/internal/models"
	"github.com/GTDGit/muni_commerce/internal/repository"
)

// FeatureFlagService reads and toggles the section switches.
type FeatureFlagService struct {
	repo    *repository.FeatureFlagRepository
	tx      *repository.Transactor
	audit   *AuditService
	metrics *metrics.Metrics
}

// NewFeatureFlagService constructs a FeatureFlagService.
func NewFeatureFlagService(repo *repository.FeatureFlagRepository, tx *repository.Transactor, audit *AuditService, m *metrics.Metrics) *FeatureFlagService {
	return &FeatureFlagService{repo: repo, tx: tx, audit: audit, metrics: m}
}

// IsActive reports whether key is switched on. Unknown keys are inactive.
func (s *FeatureFlagService) IsActive(ctx context.Context, key string) (bool, error) {
	f, err := s.repo.Get(ctx, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return f.Active, nil
}

// All returns every flag as a key -> active map for templates.
func (s *FeatureFlagService) All(ctx context.Context) (map[string]bool, error) {
	flags, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(flags))
	for _, f := range flags {
		out[f.Key] = f.Active
	}
	return out, nil
}

// List returns the stored flags ordered by key.
func (s *FeatureFlagService) List(ctx context.Context) ([]models.FeatureFlag, error) {
	return s.repo.List(ctx)
}

// Toggle flips key and records the change. Unknown keys are a silent no-op:
// changed is false and nothing is written.
func (s *FeatureFlagService) Toggle(ctx context.Context, key string) (changed bool, active bool, err error) {
	err = s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		now, found, err := s.repo.WithTx(tx).Toggle(ctx, key)
		if err != nil || !found {
			return err
		}
		changed, active = true, now

		state := "off"
		if now {
			state = "on"
		}
		return s.audit.RecordTx(ctx, tx, fmt.Sprintf("flag toggled: %s -> %s", key, state))
	})
	if err != nil {
		return false, false, err
	}
	if changed {
		s.metrics.RecordAdminAction("flag_toggle")
	}
	return changed, active, nil
}

// EnsureDefaults inserts every missing key as active. Existing rows keep
// their value, so calling it on every startup is safe.
func (s *FeatureFlagService) EnsureDefaults(ctx context.Context, keys []string) error {
	for _, key := range keys {
		inserted, err := s.repo.InsertIfMissing(ctx, key)
		if err != nil {
			return fmt.Errorf("ensure flag %s: %w", key, err)
		}
		if inserted {
			log.Info().Str("flag", key).Msg("Feature flag initialised")
		}
	}
	return nil
}

// SectionDisplayName turns a flag key such as "recrutement" or
// "commerce_active" into the name shown on the unavailable page.
func SectionDisplayName(key string) string {
	name, _, _ := strings.Cut(strings.ToLower(key), "_")
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
