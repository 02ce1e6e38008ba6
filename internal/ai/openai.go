package ai

import (
	"context"
	"errors"
	"net/http"

	"github.com/cloo-solutions/converso/internal/domain"
	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultEmbeddingModel is the OpenAI model used for generating embeddings
	DefaultEmbeddingModel = openai.AdaEmbeddingV2
	// DefaultEmbeddingDimensions is the expected dimension of embeddings from ada-002
	DefaultEmbeddingDimensions = 1536
	// DefaultChatModel is the OpenAI model used for response generation
	DefaultChatModel = openai.GPT4oMini

	// embedBatchSize is the maximum number of inputs per embeddings API call
	embedBatchSize = 100
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrWrongDimensions is returned when an embedding has wrong dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
)

// Config holds OpenAI provider configuration.
type Config struct {
	APIKey              string
	EmbeddingModel      openai.EmbeddingModel
	EmbeddingDimensions int
	ChatModel           string
	MaxResponseTokens   int
	Temperature         float32
}

// OpenAIEmbedder generates embeddings through the OpenAI API.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
}

// NewOpenAIEmbedder creates a new OpenAIEmbedder with the given configuration.
func NewOpenAIEmbedder(cfg Config) *OpenAIEmbedder {
	model := cfg.EmbeddingModel
	if model == "" {
		model = DefaultEmbeddingModel
	}
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	return &OpenAIEmbedder{
		client:     openai.NewClient(cfg.APIKey),
		model:      model,
		dimensions: dimensions,
	}
}

// Dimensions returns the embedding dimension of the configured model.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// Embed generates an embedding for a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for multiple texts, batching API calls.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		resp, err := withRetry(ctx, func() (openai.EmbeddingResponse, error) {
			resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
				Input: batch,
				Model: e.model,
			})
			if err != nil {
				return openai.EmbeddingResponse{}, classifyOpenAIError("openai-embedding", err)
			}
			return resp, nil
		})
		if err != nil {
			return nil, err
		}

		if len(resp.Data) != len(batch) {
			return nil, domain.NewProviderError("openai-embedding", false,
				errors.New("embedding count does not match input count"))
		}

		for _, item := range resp.Data {
			if len(item.Embedding) != e.dimensions {
				return nil, ErrWrongDimensions
			}
			vectors = append(vectors, item.Embedding)
		}
	}

	return vectors, nil
}

// OpenAIGenerator produces chat completions through the OpenAI API.
type OpenAIGenerator struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// NewOpenAIGenerator creates a new OpenAIGenerator with the given configuration.
func NewOpenAIGenerator(cfg Config) *OpenAIGenerator {
	model := cfg.ChatModel
	if model == "" {
		model = DefaultChatModel
	}
	maxTokens := cfg.MaxResponseTokens
	if maxTokens <= 0 {
		maxTokens = 500
	}
	return &OpenAIGenerator{
		client:      openai.NewClient(cfg.APIKey),
		model:       model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
	}
}

// Generate produces a completion for the assembled prompt.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt Prompt) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(prompt.History)+2)
	if prompt.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: prompt.System,
		})
	}
	for _, turn := range prompt.History {
		role := openai.ChatMessageRoleUser
		if turn.Role == RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: turn.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt.User,
	})

	resp, err := withRetry(ctx, func() (openai.ChatCompletionResponse, error) {
		resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       g.model,
			Messages:    messages,
			MaxTokens:   g.maxTokens,
			Temperature: g.temperature,
		})
		if err != nil {
			return openai.ChatCompletionResponse{}, classifyOpenAIError("openai-chat", err)
		}
		return resp, nil
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", domain.NewProviderError("openai-chat", false, errors.New("no completion choices returned"))
	}

	return resp.Choices[0].Message.Content, nil
}

// classifyOpenAIError maps an OpenAI client error to a ProviderError,
// deciding whether the task executor may retry it. Timeouts, rate limits,
// and server errors are transient; everything else is permanent.
func classifyOpenAIError(provider string, err error) *domain.ProviderError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return domain.NewProviderError(provider, isRetryableStatus(apiErr.HTTPStatusCode), err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return domain.NewProviderError(provider, isRetryableStatus(reqErr.HTTPStatusCode), err)
	}

	// Transport-level failures (connection reset, timeout) have no status.
	return domain.NewProviderError(provider, true, err)
}

func isRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests ||
		status == http.StatusRequestTimeout ||
		status >= http.StatusInternalServerError
}
