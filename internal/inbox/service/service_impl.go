package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/nordvolt/voltra/internal/inbox/domain"
	"github.com/nordvolt/voltra/internal/market"
	"github.com/nordvolt/voltra/pkg/db"
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
		log:   p.Log.Named("inbox.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Enqueue(ctx context.Context, raw []byte) (*domain.InboxMessage, error) {
	env, err := market.DecodeEnvelope(raw)
	if err != nil {
		return nil, err
	}
	messageID, ok := env.MessageID()
	if !ok || messageID == "" {
		return nil, domain.ErrMissingMessageID
	}

	msg := &domain.InboxMessage{
		ID:           s.genID.Generate().Int64(),
		MessageID:    messageID,
		DocumentType: env.DocumentName,
		Payload:      datatypes.JSON(raw),
		ReceivedAt:   time.Now().UTC(),
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	if sender, ok := env.Sender(); ok {
		msg.SenderGLN = sender.String()
	}
	if receiver, ok := env.Receiver(); ok {
		msg.ReceiverGLN = receiver.String()
	}
	// Best-effort classification for inspection; routing classifies again
	// and its verdict wins.
	if cls, err := market.Classify(env); err == nil {
		msg.BusinessProcess = string(cls.Process)
	}

	if err := s.repo.Create(ctx, s.db, msg); err != nil {
		if db.IsDuplicateKeyErr(err) {
			s.log.Debug("duplicate inbound message dropped", zap.String("message_id", messageID))
			return nil, domain.ErrDuplicateMessage
		}
		return nil, err
	}

	s.log.Info("market document enqueued",
		zap.String("message_id", messageID),
		zap.String("document_type", msg.DocumentType),
		zap.String("business_process", msg.BusinessProcess),
	)
	return msg, nil
}

func (s *Service) GetByMessageID(ctx context.Context, messageID string) (*domain.InboxMessage, error) {
	msg, err := s.repo.FindByMessageID(ctx, s.db, messageID)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, domain.ErrNotFound
	}
	return msg, nil
}
