package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/nordvolt/voltra/internal/outbox/domain"
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
		log:   p.Log.Named("outbox.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Enqueue(ctx context.Context, in domain.EnqueueInput) (*domain.OutboxMessage, error) {
	if strings.TrimSpace(in.MessageID) == "" {
		return nil, domain.ErrMissingMessageID
	}
	if strings.TrimSpace(in.ReceiverGLN) == "" {
		return nil, domain.ErrMissingReceiver
	}

	now := time.Now().UTC()
	msg := &domain.OutboxMessage{
		ID:              s.genID.Generate().Int64(),
		MessageID:       in.MessageID,
		DocumentType:    in.DocumentType,
		BusinessProcess: in.BusinessProcess,
		SenderGLN:       in.SenderGLN,
		ReceiverGLN:     in.ReceiverGLN,
		Payload:         datatypes.JSON(in.Payload),
		ScheduledFor:    in.ScheduledFor,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Create(ctx, s.db, msg); err != nil {
		return nil, err
	}

	s.log.Info("outbound document enqueued",
		zap.String("message_id", msg.MessageID),
		zap.String("document_type", msg.DocumentType),
		zap.String("receiver_gln", msg.ReceiverGLN),
	)
	return msg, nil
}
