package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/muni_commerce/internal/models"
	"github.com/GTDGit/muni_commerce/internal/repository"
)

// AuditService appends admin actions to the admin_log table.
type AuditService struct {
	repo *repository.AdminLogRepository
	now  func() time.Time
}

// NewAuditService constructs an AuditService.
func NewAuditService(repo *repository.AdminLogRepository) *AuditService {
	return &AuditService{repo: repo, now: time.Now}
}

// Record appends action outside of any transaction.
func (s *AuditService) Record(ctx context.Context, action string) error {
	return s.record(ctx, s.repo, action)
}

// RecordTx appends action inside tx so it commits with the mutation it describes.
func (s *AuditService) RecordTx(ctx context.Context, tx *sqlx.Tx, action string) error {
	return s.record(ctx, s.repo.WithTx(tx), action)
}

// Recent returns the latest entries, newest first.
func (s *AuditService) Recent(ctx context.Context, limit int) ([]models.AdminLogEntry, error) {
	return s.repo.Recent(ctx, limit)
}

func (s *AuditService) record(ctx context.Context, repo *repository.AdminLogRepository, action string) error {
	entry, err := repo.Append(ctx, action, s.now())
	if err != nil {
		return err
	}
	log.Info().Int("audit_id", entry.ID).Str("action", action).Msg("Admin action recorded")
	return nil
}
