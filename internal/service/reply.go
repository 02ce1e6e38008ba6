package service

import (
	"context"
	"time"

	"github.com/cloo-solutions/converso/internal/ai"
	"github.com/cloo-solutions/converso/internal/channel"
	"github.com/cloo-solutions/converso/internal/domain"
	"github.com/cloo-solutions/converso/internal/telemetry"
)

const defaultHistoryLimit = 10

// ReplyService generates and delivers the outbound reply for one inbound
// message. Invoked by the job executor, never directly from the webhook
// path.
type ReplyService struct {
	messages      MessageRepositoryInterface
	conversations ConversationRepositoryInterface
	channels      ChannelRepositoryInterface
	query         *QueryService
	adapters      *channel.Registry
	txRunner      TxRunner
	uuidGen       UUIDGenerator
	historyLimit  int
}

func NewReplyService(
	messages MessageRepositoryInterface,
	conversations ConversationRepositoryInterface,
	channels ChannelRepositoryInterface,
	query *QueryService,
	adapters *channel.Registry,
	txRunner TxRunner,
) *ReplyService {
	return &ReplyService{
		messages:      messages,
		conversations: conversations,
		channels:      channels,
		query:         query,
		adapters:      adapters,
		txRunner:      txRunner,
		uuidGen:       &DefaultUUIDGenerator{},
		historyLimit:  defaultHistoryLimit,
	}
}

// NewReplyServiceWithUUIDGen creates a ReplyService with a custom UUID generator (for testing)
func NewReplyServiceWithUUIDGen(
	messages MessageRepositoryInterface,
	conversations ConversationRepositoryInterface,
	channels ChannelRepositoryInterface,
	query *QueryService,
	adapters *channel.Registry,
	txRunner TxRunner,
	uuidGen UUIDGenerator,
) *ReplyService {
	s := NewReplyService(messages, conversations, channels, query, adapters, txRunner)
	s.uuidGen = uuidGen
	return s
}

// GenerateReply answers one inbound message. Replays are no-ops once the
// inbound message reached a terminal status, and a message whose
// predecessors in the conversation are still being handled returns
// ErrConversationBusy so the caller retries later.
func (s *ReplyService) GenerateReply(ctx context.Context, tenantID, messageID string) error {
	ctx, span := telemetry.StartSpan(ctx, "ReplyService.GenerateReply", telemetry.SpanAttributes{
		TenantID:  tenantID,
		Operation: "generate_reply",
	})
	defer span.End()

	msg, err := s.messages.GetByID(ctx, tenantID, messageID)
	if err != nil {
		return err
	}
	if msg.Direction != domain.MessageDirectionInbound {
		return domain.NewDomainError(domain.ErrCodeInvalidOperation, "reply jobs only apply to inbound messages")
	}
	if msg.Status == domain.MessageStatusSent {
		return nil
	}

	pending, err := s.messages.CountEarlierUnhandled(ctx, msg.ConversationID, msg.ID)
	if err != nil {
		return err
	}
	if pending > 0 {
		return domain.ErrConversationBusy
	}

	if err := s.messages.UpdateStatus(ctx, msg.ID, domain.MessageStatusProcessing, ""); err != nil {
		return err
	}

	conv, err := s.conversations.GetByID(ctx, tenantID, msg.ConversationID)
	if err != nil {
		return err
	}

	ch, err := s.channels.GetByID(ctx, tenantID, conv.ChannelID)
	if err != nil {
		return err
	}

	history, err := s.buildHistory(ctx, tenantID, conv.ID, msg.ID)
	if err != nil {
		return err
	}

	answer, err := s.query.Answer(ctx, tenantID, msg.Content, history)
	if err != nil {
		span.SetError(err)
		return s.failInbound(ctx, msg.ID, err)
	}

	now := time.Now().UTC()
	out := domain.NewMessage(s.uuidGen.NewString(), conv.ID, tenantID, domain.MessageDirectionOutbound, answer.Text, now)

	err = s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Messages().Create(ctx, out); err != nil {
			return err
		}
		return repos.Conversations().RecordMessage(ctx, conv.ID, now)
	})
	if err != nil {
		span.SetError(err)
		return s.failInbound(ctx, msg.ID, err)
	}

	adapter, err := s.adapters.Get(ch.Platform)
	if err != nil {
		return err
	}

	sendCfg := channel.SendConfig{PlatformID: ch.PlatformID, AccessToken: ch.AccessToken}
	if err := adapter.Send(ctx, sendCfg, conv.CustomerIdentifier, answer.Text); err != nil {
		span.SetError(err)
		_ = s.messages.UpdateStatus(ctx, out.ID, domain.MessageStatusFailed, err.Error())
		return s.failInbound(ctx, msg.ID, err)
	}

	if err := s.messages.UpdateStatus(ctx, out.ID, domain.MessageStatusSent, ""); err != nil {
		return err
	}
	return s.messages.UpdateStatus(ctx, msg.ID, domain.MessageStatusSent, "")
}

// buildHistory collects prior exchanges, oldest first, excluding the message
// being answered.
func (s *ReplyService) buildHistory(ctx context.Context, tenantID, conversationID, excludeID string) ([]ai.ChatTurn, error) {
	recent, err := s.messages.ListRecentByConversation(ctx, tenantID, conversationID, s.historyLimit)
	if err != nil {
		return nil, err
	}

	var turns []ai.ChatTurn
	for i := len(recent) - 1; i >= 0; i-- {
		m := recent[i]
		if m.ID == excludeID || m.Status == domain.MessageStatusFailed {
			continue
		}
		role := ai.RoleUser
		if m.Direction == domain.MessageDirectionOutbound {
			role = ai.RoleAssistant
		}
		turns = append(turns, ai.ChatTurn{Role: role, Content: m.Content})
	}
	return turns, nil
}

// failInbound records the failure on the inbound message. Retryable failures
// return the message to received so the next attempt starts clean; permanent
// ones are marked failed.
func (s *ReplyService) failInbound(ctx context.Context, messageID string, cause error) error {
	status := domain.MessageStatusFailed
	if domain.IsRetryable(cause) {
		status = domain.MessageStatusReceived
	}
	if err := s.messages.UpdateStatus(ctx, messageID, status, cause.Error()); err != nil {
		return err
	}
	return cause
}
