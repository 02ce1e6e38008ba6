package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeSignature        = "SIGNATURE_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeAlreadyExists    = "ALREADY_EXISTS"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeProvider         = "PROVIDER_ERROR"
	ErrCodeTerminal         = "TERMINAL_PROCESSING_ERROR"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
)

// Validation errors
var (
	ErrInvalidDocumentStatus    = NewDomainError(ErrCodeValidation, "invalid document status")
	ErrInvalidMessageDirection  = NewDomainError(ErrCodeValidation, "invalid message direction")
	ErrInvalidJobStatus         = NewDomainError(ErrCodeValidation, "invalid processing job status")
	ErrUnsupportedDocumentType  = NewDomainError(ErrCodeValidation, "unsupported document type")
	ErrMissingRequiredField     = NewDomainError(ErrCodeValidation, "missing required field")
	ErrWebhookPayloadMalformed  = NewDomainError(ErrCodeValidation, "malformed webhook payload")
	ErrInvalidWebhookSignature  = NewDomainError(ErrCodeSignature, "invalid webhook signature")
	ErrWebhookChallengeRejected = NewDomainError(ErrCodeSignature, "webhook verify token mismatch")
)

// Not found errors
var (
	ErrTenantNotFound       = NewDomainError(ErrCodeNotFound, "tenant not found")
	ErrChannelNotFound      = NewDomainError(ErrCodeNotFound, "channel not found")
	ErrDocumentNotFound     = NewDomainError(ErrCodeNotFound, "document not found")
	ErrConversationNotFound = NewDomainError(ErrCodeNotFound, "conversation not found")
	ErrMessageNotFound      = NewDomainError(ErrCodeNotFound, "message not found")
	ErrJobNotFound          = NewDomainError(ErrCodeNotFound, "processing job not found")
	ErrAPIKeyNotFound       = NewDomainError(ErrCodeNotFound, "api key not found")
)

// Already exists errors
var (
	ErrTenantAlreadyExists  = NewDomainError(ErrCodeAlreadyExists, "tenant already exists")
	ErrChannelAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "channel already exists")
	ErrDuplicateMessage     = NewDomainError(ErrCodeAlreadyExists, "message already received")
)

// Invalid operation errors
var (
	// ErrConversationBusy signals that an earlier inbound message in the
	// same conversation has not been replied to yet. The caller retries
	// later so replies go out in arrival order.
	ErrConversationBusy = NewDomainError(ErrCodeInvalidOperation, "earlier messages in conversation still processing")
)

// Authorization errors
var (
	ErrAPIKeyRevoked = NewDomainError(ErrCodeUnauthorized, "api key has been revoked")
	ErrInvalidAPIKey = NewDomainError(ErrCodeUnauthorized, "invalid api key")
)

// ProviderError wraps a failure from an embedding, LLM, or vector-store
// provider. Retryable failures (timeouts, rate limits, 5xx) are retried by
// the task executor; everything else fails the attempt immediately.
type ProviderError struct {
	Provider  string
	Retryable bool
	Err       error
}

func (e *ProviderError) Error() string {
	kind := "permanent"
	if e.Retryable {
		kind = "retryable"
	}
	return fmt.Sprintf("[%s] %s %s failure: %v", ErrCodeProvider, e.Provider, kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError creates a ProviderError for the given provider.
func NewProviderError(provider string, retryable bool, err error) *ProviderError {
	return &ProviderError{
		Provider:  provider,
		Retryable: retryable,
		Err:       err,
	}
}

// IsRetryable reports whether err is, or wraps, a retryable provider failure.
func IsRetryable(err error) bool {
	for err != nil {
		if pe, ok := err.(*ProviderError); ok {
			return pe.Retryable
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
