package service

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/muni_commerce/internal/metrics"
	"github.com/GTDGit/muni_commerce/internal/models"
	"github.com/GTDGit/muni_commerce/internal/repository"
	"github.com/GTDGit/muni_commerce/internal/utils"
)

// PostingService manages job postings.
type PostingService struct {
	repo    *repository.PostingRepository
	tx      *repository.Transactor
	audit   *AuditService
	metrics *metrics.Metrics
}

// NewPostingService constructs a PostingService.
func NewPostingService(repo *repository.PostingRepository, tx *repository.Transactor, audit *AuditService, m *metrics.Metrics) *PostingService {
	return &PostingService{repo: repo, tx: tx, audit: audit, metrics: m}
}

// Add creates a posting with its audit entry.
func (s *PostingService) Add(ctx context.Context, title string) (*models.Posting, error) {
	posting := &models.Posting{Title: CleanText(title)}
	if posting.Title == "" {
		return nil, utils.ErrInvalidTitle
	}
	err := s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.repo.WithTx(tx).Create(ctx, posting); err != nil {
			return err
		}
		return s.audit.RecordTx(ctx, tx, "posting added: "+posting.Title)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordAdminAction("posting_add")
	return posting, nil
}

// Delete removes a posting; a missing id is a no-op.
func (s *PostingService) Delete(ctx context.Context, id int) (removed bool, err error) {
	err = s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		ok, err := s.repo.WithTx(tx).Delete(ctx, id)
		if err != nil || !ok {
			return err
		}
		removed = true
		return s.audit.RecordTx(ctx, tx, fmt.Sprintf("posting deleted: %d", id))
	})
	if err != nil {
		return false, err
	}
	if removed {
		s.metrics.RecordAdminAction("posting_delete")
	}
	return removed, nil
}

// List returns postings in creation order.
func (s *PostingService) List(ctx context.Context) ([]models.Posting, error) {
	return s.repo.List(ctx)
}
