// Package channel integrates messaging platforms (WhatsApp, Instagram)
// behind one adapter capability: signature verification, inbound event
// parsing, and outbound delivery via the Meta Graph API.
package channel

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloo-solutions/converso/internal/domain"
)

// GraphAPIBaseURL is the Meta Graph API endpoint used for outbound sends.
const GraphAPIBaseURL = "https://graph.facebook.com/v18.0"

// InboundEvent is a normalized inbound message extracted from a webhook
// payload. PlatformID identifies the receiving channel (phone number ID or
// page ID) and is used to resolve the tenant.
type InboundEvent struct {
	PlatformID        string
	SenderID          string
	Text              string
	PlatformMessageID string
	Timestamp         time.Time
}

// SendConfig carries the channel credentials needed for an outbound send.
type SendConfig struct {
	PlatformID  string
	AccessToken string
}

// Adapter unifies the platform variants. ParseEvents tolerates non-message
// payloads (delivery receipts, status updates) by returning zero events.
type Adapter interface {
	Platform() domain.ChannelPlatform
	VerifySignature(body []byte, signatureHeader, secret string) bool
	ParseEvents(body []byte) ([]InboundEvent, error)
	Send(ctx context.Context, cfg SendConfig, recipient, text string) error
}

// Registry resolves adapters by platform name.
type Registry struct {
	adapters map[domain.ChannelPlatform]Adapter
}

// NewRegistry creates a Registry holding the given adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	reg := &Registry{adapters: make(map[domain.ChannelPlatform]Adapter, len(adapters))}
	for _, a := range adapters {
		reg.adapters[a.Platform()] = a
	}
	return reg
}

// Get returns the adapter for platform, or an error for unknown platforms.
func (r *Registry) Get(platform domain.ChannelPlatform) (Adapter, error) {
	a, ok := r.adapters[platform]
	if !ok {
		return nil, domain.NewDomainError(domain.ErrCodeNotFound, fmt.Sprintf("no adapter for platform %q", platform))
	}
	return a, nil
}

// VerifyMetaSignature checks a Meta-style X-Hub-Signature-256 header:
// "sha256=" followed by the hex HMAC-SHA256 of the raw body under the
// shared secret. Comparison is constant time.
func VerifyMetaSignature(body []byte, signatureHeader, secret string) bool {
	const prefix = "sha256="
	if secret == "" || !strings.HasPrefix(signatureHeader, prefix) {
		return false
	}

	provided, err := hex.DecodeString(strings.TrimPrefix(signatureHeader, prefix))
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(provided, mac.Sum(nil))
}

// VerifyChallenge implements Meta's webhook subscription handshake: echo the
// challenge when the mode is "subscribe" and the verify token matches.
func VerifyChallenge(mode, token, challenge, verifyToken string) (string, error) {
	if mode != "subscribe" || verifyToken == "" || token != verifyToken {
		return "", domain.ErrWebhookChallengeRejected
	}
	return challenge, nil
}

// sendGraphRequest posts an outbound message payload to the Graph API and
// classifies failures for the retry policy.
func sendGraphRequest(ctx context.Context, client *http.Client, provider, url, accessToken string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(payload)))
	if err != nil {
		return domain.NewProviderError(provider, false, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := client.Do(req)
	if err != nil {
		return domain.NewProviderError(provider, true, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError
	return domain.NewProviderError(provider, retryable,
		fmt.Errorf("graph api returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail))))
}
