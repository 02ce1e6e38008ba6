package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cloo-solutions/converso/internal/domain"
)

// InstagramAdapter integrates Meta's Instagram Messaging API.
type InstagramAdapter struct {
	baseURL string
	client  *http.Client
}

// NewInstagramAdapter creates an InstagramAdapter against the public Graph API.
func NewInstagramAdapter() *InstagramAdapter {
	return NewInstagramAdapterWithBaseURL(GraphAPIBaseURL)
}

// NewInstagramAdapterWithBaseURL creates an InstagramAdapter against a
// custom endpoint, used by tests.
func NewInstagramAdapterWithBaseURL(baseURL string) *InstagramAdapter {
	return &InstagramAdapter{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// Platform returns the Instagram platform identifier.
func (a *InstagramAdapter) Platform() domain.ChannelPlatform {
	return domain.ChannelPlatformInstagram
}

// VerifySignature checks the X-Hub-Signature-256 header against the body.
func (a *InstagramAdapter) VerifySignature(body []byte, signatureHeader, secret string) bool {
	return VerifyMetaSignature(body, signatureHeader, secret)
}

// instagramPayload mirrors the Messenger-style webhook envelope Instagram uses.
type instagramPayload struct {
	Entry []struct {
		ID        string `json:"id"`
		Messaging []struct {
			Sender struct {
				ID string `json:"id"`
			} `json:"sender"`
			Timestamp int64 `json:"timestamp"`
			Message   struct {
				MID  string `json:"mid"`
				Text string `json:"text"`
			} `json:"message"`
		} `json:"messaging"`
	} `json:"entry"`
}

// ParseEvents extracts normalized inbound message events. Entries without a
// message body (reactions, read receipts) yield zero events.
func (a *InstagramAdapter) ParseEvents(body []byte) ([]InboundEvent, error) {
	var payload instagramPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "malformed instagram payload", err)
	}

	var events []InboundEvent
	for _, entry := range payload.Entry {
		for _, event := range entry.Messaging {
			if event.Message.Text == "" || event.Sender.ID == "" || event.Message.MID == "" {
				continue
			}

			ts := time.Now().UTC()
			if event.Timestamp > 0 {
				ts = time.UnixMilli(event.Timestamp).UTC()
			}

			events = append(events, InboundEvent{
				PlatformID:        entry.ID,
				SenderID:          event.Sender.ID,
				Text:              event.Message.Text,
				PlatformMessageID: event.Message.MID,
				Timestamp:         ts,
			})
		}
	}
	return events, nil
}

// Send delivers a text message to the Instagram-scoped recipient ID.
func (a *InstagramAdapter) Send(ctx context.Context, cfg SendConfig, recipient, text string) error {
	payload, err := json.Marshal(map[string]any{
		"recipient": map[string]string{"id": recipient},
		"message":   map[string]string{"text": text},
	})
	if err != nil {
		return domain.NewProviderError("instagram", false, err)
	}

	url := fmt.Sprintf("%s/%s/messages", a.baseURL, cfg.PlatformID)
	return sendGraphRequest(ctx, a.client, "instagram", url, cfg.AccessToken, payload)
}
