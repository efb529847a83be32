package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	obsmetrics "github.com/nordvolt/voltra/internal/observability/metrics"
	"github.com/nordvolt/voltra/internal/settlement/domain"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo domain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("settlement.service"),
		repo: p.Repo,
	}
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.SettlementWithLines, error) {
	settlement, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if settlement == nil {
		return nil, domain.ErrNotFound
	}
	lines, err := s.repo.ListLines(ctx, s.db, settlement.ID)
	if err != nil {
		return nil, err
	}
	return &domain.SettlementWithLines{Settlement: *settlement, Lines: lines}, nil
}

func (s *Service) List(ctx context.Context, filter domain.ListFilter) ([]domain.Settlement, error) {
	return s.repo.List(ctx, s.db, filter)
}

func (s *Service) Pending(ctx context.Context, limit, offset int) ([]domain.SettlementWithLines, error) {
	settlements, err := s.repo.List(ctx, s.db, domain.ListFilter{
		Status:      domain.StatusCalculated,
		OldestFirst: true,
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		return nil, err
	}
	return s.withLines(ctx, settlements)
}

func (s *Service) Corrections(ctx context.Context, limit, offset int) ([]domain.SettlementWithLines, error) {
	corrections := true
	settlements, err := s.repo.List(ctx, s.db, domain.ListFilter{
		IsCorrection: &corrections,
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		return nil, err
	}
	return s.withLines(ctx, settlements)
}

func (s *Service) Invoice(ctx context.Context, id int64, invoiceRef string, at time.Time) (*domain.Settlement, error) {
	if strings.TrimSpace(invoiceRef) == "" {
		return nil, domain.ErrMissingInvoiceRef
	}

	var settlement *domain.Settlement
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if found == nil {
			return domain.ErrNotFound
		}
		if err := found.MarkInvoiced(invoiceRef, at.UTC()); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, tx, found); err != nil {
			return err
		}
		settlement = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	obsmetrics.Worker().IncSettlementTransition(domain.StatusCalculated, domain.StatusInvoiced)
	s.log.Info("settlement invoiced",
		zap.Int64("settlement_id", settlement.ID),
		zap.String("document_number", settlement.DocumentNumber),
		zap.String("invoice_ref", settlement.InvoiceRef))
	return settlement, nil
}

func (s *Service) Issues(ctx context.Context, filter domain.IssueFilter) ([]domain.SettlementIssue, error) {
	return s.repo.ListIssues(ctx, s.db, filter)
}

func (s *Service) DismissIssue(ctx context.Context, id int64, at time.Time) (*domain.SettlementIssue, error) {
	var issue *domain.SettlementIssue
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := s.repo.FindIssueByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if found == nil {
			return domain.ErrIssueNotFound
		}
		if found.Status != domain.IssueStatusOpen {
			return domain.ErrIssueClosed
		}
		resolved := at.UTC()
		found.Status = domain.IssueStatusDismissed
		found.ResolvedAt = &resolved
		if err := s.repo.UpdateIssue(ctx, tx, found); err != nil {
			return err
		}
		issue = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("settlement issue dismissed",
		zap.Int64("issue_id", issue.ID),
		zap.String("kind", issue.Kind))
	return issue, nil
}

func (s *Service) withLines(ctx context.Context, settlements []domain.Settlement) ([]domain.SettlementWithLines, error) {
	out := make([]domain.SettlementWithLines, 0, len(settlements))
	for _, settlement := range settlements {
		lines, err := s.repo.ListLines(ctx, s.db, settlement.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.SettlementWithLines{Settlement: settlement, Lines: lines})
	}
	return out, nil
}
