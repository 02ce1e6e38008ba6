package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/cloo-solutions/converso/internal/api"
	"github.com/cloo-solutions/converso/internal/api/middleware"
	"github.com/cloo-solutions/converso/internal/domain"
	"github.com/cloo-solutions/converso/internal/service"
	"github.com/go-chi/chi/v5"
)

type ConversationService interface {
	Get(ctx context.Context, tenantID, conversationID string) (*domain.Conversation, error)
	List(ctx context.Context, input service.ListConversationsInput) (*service.ListConversationsOutput, error)
	History(ctx context.Context, tenantID, conversationID string, limit int) ([]*domain.Message, error)
}

type ConversationHandler struct {
	svc ConversationService
}

func NewConversationHandler(svc ConversationService) *ConversationHandler {
	return &ConversationHandler{svc: svc}
}

type ConversationResponse struct {
	ID                 string `json:"id"`
	ChannelID          string `json:"channel_id"`
	CustomerIdentifier string `json:"customer_identifier"`
	Status             string `json:"status"`
	StartedAt          string `json:"started_at"`
	LastMessageAt      string `json:"last_message_at"`
	MessageCount       int    `json:"message_count"`
}

func conversationToResponse(c *domain.Conversation) *ConversationResponse {
	return &ConversationResponse{
		ID:                 c.ID,
		ChannelID:          c.ChannelID,
		CustomerIdentifier: c.CustomerIdentifier,
		Status:             string(c.Status),
		StartedAt:          c.StartedAt.Format("2006-01-02T15:04:05Z"),
		LastMessageAt:      c.LastMessageAt.Format("2006-01-02T15:04:05Z"),
		MessageCount:       c.MessageCount,
	}
}

type MessageResponse struct {
	ID          string `json:"id"`
	Direction   string `json:"direction"`
	Content     string `json:"content"`
	Status      string `json:"status"`
	ErrorDetail string `json:"error_detail,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func messageToResponse(m *domain.Message) *MessageResponse {
	return &MessageResponse{
		ID:          m.ID,
		Direction:   string(m.Direction),
		Content:     m.Content,
		Status:      string(m.Status),
		ErrorDetail: m.ErrorDetail,
		CreatedAt:   m.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

type ListConversationsResponse struct {
	Items   []*ConversationResponse `json:"items"`
	Cursor  string                  `json:"cursor,omitempty"`
	HasMore bool                    `json:"has_more"`
}

func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit := 0
	if rawLimit := r.URL.Query().Get("limit"); rawLimit != "" {
		parsed, err := strconv.Atoi(rawLimit)
		if err != nil || parsed < 0 {
			api.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	out, err := h.svc.List(r.Context(), service.ListConversationsInput{
		TenantID: tenantID,
		Cursor:   r.URL.Query().Get("cursor"),
		Limit:    limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*ConversationResponse, len(out.Items))
	for i, c := range out.Items {
		items[i] = conversationToResponse(c)
	}

	api.Success(w, http.StatusOK, ListConversationsResponse{
		Items:   items,
		Cursor:  out.Cursor,
		HasMore: out.HasMore,
	})
}

func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	conv, err := h.svc.Get(r.Context(), tenantID, chi.URLParam(r, "conversationID"))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, conversationToResponse(conv))
}

func (h *ConversationHandler) Messages(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit := 50
	if rawLimit := r.URL.Query().Get("limit"); rawLimit != "" {
		parsed, err := strconv.Atoi(rawLimit)
		if err != nil || parsed <= 0 {
			api.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	messages, err := h.svc.History(r.Context(), tenantID, chi.URLParam(r, "conversationID"), limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*MessageResponse, len(messages))
	for i, m := range messages {
		items[i] = messageToResponse(m)
	}

	api.Success(w, http.StatusOK, items)
}
