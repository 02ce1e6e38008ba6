package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cloo-solutions/converso/internal/ai"
	"github.com/cloo-solutions/converso/internal/api"
	"github.com/cloo-solutions/converso/internal/api/middleware"
	"github.com/cloo-solutions/converso/internal/service"
)

type QueryService interface {
	Answer(ctx context.Context, tenantID, question string, history []ai.ChatTurn) (*service.Answer, error)
}

type ChatHandler struct {
	svc QueryService
}

func NewChatHandler(svc QueryService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

type ChatRequest struct {
	Message string        `json:"message"`
	History []ChatMessage `json:"history,omitempty"`
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatSource struct {
	DocumentID     string  `json:"document_id"`
	Filename       string  `json:"filename"`
	ChunkRef       string  `json:"chunk_ref"`
	RelevanceScore float32 `json:"relevance_score"`
}

type ChatUsage struct {
	ContextChunks    int `json:"context_chunks"`
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

type ChatResponse struct {
	Response string       `json:"response"`
	Sources  []ChatSource `json:"sources"`
	Usage    ChatUsage    `json:"usage"`
}

// Ask answers a direct question against the tenant's documents. Used for
// testing a tenant's knowledge base outside the messaging channels.
func (h *ChatHandler) Ask(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Message == "" {
		api.Error(w, http.StatusBadRequest, "message is required")
		return
	}

	history := make([]ai.ChatTurn, 0, len(req.History))
	for _, m := range req.History {
		if m.Role != ai.RoleUser && m.Role != ai.RoleAssistant {
			api.Error(w, http.StatusBadRequest, "invalid history role")
			return
		}
		history = append(history, ai.ChatTurn{Role: m.Role, Content: m.Content})
	}

	answer, err := h.svc.Answer(r.Context(), tenantID, req.Message, history)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	sources := make([]ChatSource, len(answer.Sources))
	for i, s := range answer.Sources {
		sources[i] = ChatSource{
			DocumentID:     s.DocumentID,
			Filename:       s.Filename,
			ChunkRef:       s.ChunkRef,
			RelevanceScore: s.Score,
		}
	}

	api.Success(w, http.StatusOK, ChatResponse{
		Response: answer.Text,
		Sources:  sources,
		Usage: ChatUsage{
			ContextChunks:    answer.Usage.ContextChunks,
			PromptTokens:     answer.Usage.PromptTokens,
			CompletionTokens: answer.Usage.CompletionTokens,
		},
	})
}
