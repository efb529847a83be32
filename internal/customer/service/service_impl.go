package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/nordvolt/voltra/internal/customer/domain"
	"github.com/nordvolt/voltra/internal/market"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("customer.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) EnsureIdentity(ctx context.Context, gln, name string) (*domain.SupplierIdentity, error) {
	parsed, err := market.ParseGLN(strings.TrimSpace(gln))
	if err != nil {
		return nil, domain.ErrInvalidGLN
	}

	identity, err := s.repo.FindIdentityByGLN(ctx, s.db, parsed.String())
	if err != nil {
		return nil, err
	}
	if identity != nil {
		return identity, nil
	}

	now := time.Now().UTC()
	identity = &domain.SupplierIdentity{
		ID:        s.genID.Generate().Int64(),
		GLN:       parsed.String(),
		Name:      strings.TrimSpace(name),
		Status:    domain.IdentityActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateIdentity(ctx, s.db, identity); err != nil {
		return nil, err
	}
	s.log.Info("supplier identity registered", zap.String("gln", identity.GLN), zap.String("name", identity.Name))
	return identity, nil
}

func (s *Service) IdentityByGLN(ctx context.Context, gln string) (*domain.SupplierIdentity, error) {
	identity, err := s.repo.FindIdentityByGLN(ctx, s.db, strings.TrimSpace(gln))
	if err != nil {
		return nil, err
	}
	if identity == nil {
		return nil, domain.ErrIdentityNotFound
	}
	return identity, nil
}

func (s *Service) EnsureCustomer(ctx context.Context, in domain.EnsureCustomerInput) (*domain.Customer, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	cpr := normalizeIdentifier(in.CPR)
	cvr := normalizeIdentifier(in.CVR)
	if cpr == nil && cvr == nil {
		return nil, domain.ErrMissingIdentifier
	}
	if cpr != nil && cvr != nil {
		return nil, domain.ErrAmbiguousIdentity
	}

	var (
		existing *domain.Customer
		err      error
	)
	if cpr != nil {
		existing, err = s.repo.FindCustomerByCPR(ctx, s.db, in.IdentityID, *cpr)
	} else {
		existing, err = s.repo.FindCustomerByCVR(ctx, s.db, in.IdentityID, *cvr)
	}
	if err != nil {
		return nil, err
	}

	if existing != nil {
		if existing.Name != name {
			existing.Name = name
			if err := s.repo.UpdateCustomer(ctx, s.db, existing); err != nil {
				return nil, err
			}
		}
		return existing, nil
	}

	now := time.Now().UTC()
	customer := &domain.Customer{
		ID:                 s.genID.Generate().Int64(),
		SupplierIdentityID: in.IdentityID,
		Name:               name,
		CPR:                cpr,
		CVR:                cvr,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.repo.CreateCustomer(ctx, s.db, customer); err != nil {
		return nil, err
	}
	s.log.Info("customer registered",
		zap.Int64("customer_id", customer.ID),
		zap.Bool("business", customer.IsBusiness()),
	)
	return customer, nil
}

func (s *Service) GetCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	customer, err := s.repo.FindCustomerByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, domain.ErrNotFound
	}
	return customer, nil
}

func normalizeIdentifier(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
