package service

import (
	"context"
	"time"

	"github.com/cloo-solutions/converso/internal/channel"
	"github.com/cloo-solutions/converso/internal/domain"
	"github.com/cloo-solutions/converso/internal/telemetry"
)

// ChannelRepositoryInterface defines the repository interface for channel persistence
type ChannelRepositoryInterface interface {
	Create(ctx context.Context, c *domain.Channel) error
	GetByID(ctx context.Context, tenantID, id string) (*domain.Channel, error)
	GetActiveByPlatformID(ctx context.Context, platform domain.ChannelPlatform, platformID string) (*domain.Channel, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*domain.Channel, error)
	Update(ctx context.Context, c *domain.Channel) error
	TouchWebhook(ctx context.Context, id string, at time.Time) error
}

// WebhookService turns verified platform webhooks into persisted inbound
// messages and queued reply work. Everything here must stay cheap: the
// platform expects a fast acknowledgement, so reply generation never happens
// on this path.
type WebhookService struct {
	channels      ChannelRepositoryInterface
	messages      MessageRepositoryInterface
	conversations *ConversationService
	adapters      *channel.Registry
	txRunner      TxRunner
	uuidGen       UUIDGenerator
	verifyToken   string
}

func NewWebhookService(
	channels ChannelRepositoryInterface,
	messages MessageRepositoryInterface,
	conversations *ConversationService,
	adapters *channel.Registry,
	txRunner TxRunner,
	verifyToken string,
) *WebhookService {
	return &WebhookService{
		channels:      channels,
		messages:      messages,
		conversations: conversations,
		adapters:      adapters,
		txRunner:      txRunner,
		uuidGen:       &DefaultUUIDGenerator{},
		verifyToken:   verifyToken,
	}
}

// NewWebhookServiceWithUUIDGen creates a WebhookService with a custom UUID generator (for testing)
func NewWebhookServiceWithUUIDGen(
	channels ChannelRepositoryInterface,
	messages MessageRepositoryInterface,
	conversations *ConversationService,
	adapters *channel.Registry,
	txRunner TxRunner,
	verifyToken string,
	uuidGen UUIDGenerator,
) *WebhookService {
	s := NewWebhookService(channels, messages, conversations, adapters, txRunner, verifyToken)
	s.uuidGen = uuidGen
	return s
}

// VerifyChallenge answers the platform's subscription handshake.
func (s *WebhookService) VerifyChallenge(mode, token, challenge string) (string, error) {
	return channel.VerifyChallenge(mode, token, challenge, s.verifyToken)
}

// HandleEvent ingests one webhook delivery: resolve the channel from the
// payload, verify the signature over the raw body, then persist each new
// message and queue its reply job. Returns how many messages were accepted.
// Redelivered messages are skipped silently.
func (s *WebhookService) HandleEvent(ctx context.Context, platform domain.ChannelPlatform, signatureHeader string, body []byte) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "WebhookService.HandleEvent", telemetry.SpanAttributes{
		Operation: "webhook_event",
	})
	defer span.End()

	adapter, err := s.adapters.Get(platform)
	if err != nil {
		return 0, err
	}

	events, err := adapter.ParseEvents(body)
	if err != nil {
		return 0, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "malformed webhook payload", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	ch, err := s.channels.GetActiveByPlatformID(ctx, platform, events[0].PlatformID)
	if err != nil {
		return 0, err
	}

	if !adapter.VerifySignature(body, signatureHeader, ch.WebhookSecret) {
		return 0, domain.ErrInvalidWebhookSignature
	}

	now := time.Now().UTC()
	accepted := 0
	for _, ev := range events {
		if ev.PlatformID != ch.PlatformID {
			continue
		}

		duplicate, err := s.messages.ExistsExternal(ctx, ch.TenantID, ev.PlatformMessageID)
		if err != nil {
			span.SetError(err)
			return accepted, err
		}
		if duplicate {
			continue
		}

		ev := ev
		err = s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
			conv, err := s.conversations.ResolveForInbound(ctx, repos.Conversations(), ch.TenantID, ch.ID, ev.SenderID, now)
			if err != nil {
				return err
			}

			msg := domain.NewMessage(s.uuidGen.NewString(), conv.ID, ch.TenantID, domain.MessageDirectionInbound, ev.Text, now)
			msg.ExternalMessageID = ev.PlatformMessageID
			if err := domain.ValidateMessage(msg); err != nil {
				return err
			}
			if err := repos.Messages().Create(ctx, msg); err != nil {
				return err
			}
			if err := repos.Conversations().RecordMessage(ctx, conv.ID, now); err != nil {
				return err
			}

			job := domain.NewJob(s.uuidGen.NewString(), ch.TenantID, domain.JobKindMessage, msg.ID, now)
			return repos.Jobs().Create(ctx, job)
		})
		if err != nil {
			span.SetError(err)
			return accepted, err
		}
		accepted++
	}

	if err := s.channels.TouchWebhook(ctx, ch.ID, now); err != nil {
		span.SetError(err)
	}

	return accepted, nil
}

// CreateChannel registers a platform connection for a tenant.
type CreateChannelInput struct {
	TenantID      string
	Platform      domain.ChannelPlatform
	PlatformID    string
	WebhookSecret string
	AccessToken   string
}

func (s *WebhookService) CreateChannel(ctx context.Context, input CreateChannelInput) (*domain.Channel, error) {
	ch := domain.NewChannel(s.uuidGen.NewString(), input.TenantID, input.Platform, input.PlatformID, time.Now().UTC())
	ch.WebhookSecret = input.WebhookSecret
	ch.AccessToken = input.AccessToken

	if err := domain.ValidateChannel(ch); err != nil {
		return nil, err
	}

	if err := s.channels.Create(ctx, ch); err != nil {
		return nil, err
	}
	return ch, nil
}

func (s *WebhookService) ListChannels(ctx context.Context, tenantID string) ([]*domain.Channel, error) {
	if tenantID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "tenant ID is required")
	}
	return s.channels.ListByTenant(ctx, tenantID)
}
