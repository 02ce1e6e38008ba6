package handlers

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/cloo-solutions/converso/internal/api"
	"github.com/cloo-solutions/converso/internal/domain"
	"github.com/go-chi/chi/v5"
)

type WebhookService interface {
	VerifyChallenge(mode, token, challenge string) (string, error)
	HandleEvent(ctx context.Context, platform domain.ChannelPlatform, signatureHeader string, body []byte) (int, error)
}

type WebhookHandler struct {
	svc WebhookService
}

func NewWebhookHandler(svc WebhookService) *WebhookHandler {
	return &WebhookHandler{svc: svc}
}

// Verify answers the platform's subscription handshake (GET with
// hub.challenge query parameters). The challenge is echoed back as plain
// text on success.
func (h *WebhookHandler) Verify(w http.ResponseWriter, r *http.Request) {
	if _, err := parsePlatform(r); err != nil {
		api.HandleError(w, err)
		return
	}

	q := r.URL.Query()
	challenge, err := h.svc.VerifyChallenge(
		q.Get("hub.mode"),
		q.Get("hub.verify_token"),
		q.Get("hub.challenge"),
	)
	if err != nil {
		api.Error(w, http.StatusForbidden, "verification failed")
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(challenge))
}

// Receive ingests a webhook delivery. The platform retries on non-2xx and
// may disable the subscription after repeated failures, so everything except
// a signature mismatch acknowledges with 200; processing errors are logged
// and the delivery relies on the platform's redelivery plus our dedupe.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	platform, err := parsePlatform(r)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "failed to read body")
		return
	}

	signature := r.Header.Get("X-Hub-Signature-256")

	accepted, err := h.svc.HandleEvent(r.Context(), platform, signature, body)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidWebhookSignature) {
			api.Error(w, http.StatusForbidden, "invalid signature")
			return
		}
		log.Printf("webhook processing error (platform=%s): %v", platform, err)
	}

	api.Success(w, http.StatusOK, map[string]int{"accepted": accepted})
}

func parsePlatform(r *http.Request) (domain.ChannelPlatform, error) {
	platform := domain.ChannelPlatform(chi.URLParam(r, "platform"))
	switch platform {
	case domain.ChannelPlatformWhatsApp, domain.ChannelPlatformInstagram:
		return platform, nil
	}
	return "", domain.NewDomainError(domain.ErrCodeValidation, "unknown platform")
}
