package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/cloo-solutions/converso/internal/domain"
)

// WhatsAppAdapter integrates Meta's WhatsApp Business Cloud API.
type WhatsAppAdapter struct {
	baseURL string
	client  *http.Client
}

// NewWhatsAppAdapter creates a WhatsAppAdapter against the public Graph API.
func NewWhatsAppAdapter() *WhatsAppAdapter {
	return NewWhatsAppAdapterWithBaseURL(GraphAPIBaseURL)
}

// NewWhatsAppAdapterWithBaseURL creates a WhatsAppAdapter against a custom
// endpoint, used by tests.
func NewWhatsAppAdapterWithBaseURL(baseURL string) *WhatsAppAdapter {
	return &WhatsAppAdapter{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// Platform returns the WhatsApp platform identifier.
func (a *WhatsAppAdapter) Platform() domain.ChannelPlatform {
	return domain.ChannelPlatformWhatsApp
}

// VerifySignature checks the X-Hub-Signature-256 header against the body.
func (a *WhatsAppAdapter) VerifySignature(body []byte, signatureHeader, secret string) bool {
	return VerifyMetaSignature(body, signatureHeader, secret)
}

// whatsappPayload mirrors the Cloud API webhook envelope.
type whatsappPayload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Metadata struct {
					PhoneNumberID string `json:"phone_number_id"`
				} `json:"metadata"`
				Messages []struct {
					From      string `json:"from"`
					ID        string `json:"id"`
					Timestamp string `json:"timestamp"`
					Type      string `json:"type"`
					Text      struct {
						Body string `json:"body"`
					} `json:"text"`
					Interactive struct {
						Type        string `json:"type"`
						ButtonReply struct {
							Title string `json:"title"`
						} `json:"button_reply"`
						ListReply struct {
							Title string `json:"title"`
						} `json:"list_reply"`
					} `json:"interactive"`
				} `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// ParseEvents extracts normalized inbound message events. Status updates and
// other non-message changes yield zero events, not errors.
func (a *WhatsAppAdapter) ParseEvents(body []byte) ([]InboundEvent, error) {
	var payload whatsappPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "malformed whatsapp payload", err)
	}

	var events []InboundEvent
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			phoneNumberID := change.Value.Metadata.PhoneNumberID
			for _, msg := range change.Value.Messages {
				text := msg.Text.Body
				if msg.Type == "interactive" {
					switch msg.Interactive.Type {
					case "button_reply":
						text = msg.Interactive.ButtonReply.Title
					case "list_reply":
						text = msg.Interactive.ListReply.Title
					}
				}
				if text == "" || msg.From == "" || msg.ID == "" {
					continue
				}

				events = append(events, InboundEvent{
					PlatformID:        phoneNumberID,
					SenderID:          msg.From,
					Text:              text,
					PlatformMessageID: msg.ID,
					Timestamp:         parseUnixSeconds(msg.Timestamp),
				})
			}
		}
	}
	return events, nil
}

// Send delivers a text message to recipient via the Cloud API.
func (a *WhatsAppAdapter) Send(ctx context.Context, cfg SendConfig, recipient, text string) error {
	payload, err := json.Marshal(map[string]any{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                recipient,
		"type":              "text",
		"text":              map[string]string{"body": text},
	})
	if err != nil {
		return domain.NewProviderError("whatsapp", false, err)
	}

	url := fmt.Sprintf("%s/%s/messages", a.baseURL, cfg.PlatformID)
	return sendGraphRequest(ctx, a.client, "whatsapp", url, cfg.AccessToken, payload)
}

func parseUnixSeconds(value string) time.Time {
	secs, err := strconv.ParseInt(value, 10, 64)
	if err != nil || secs <= 0 {
		return time.Now().UTC()
	}
	return time.Unix(secs, 0).UTC()
}
