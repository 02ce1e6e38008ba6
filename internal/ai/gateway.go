// Package ai defines the embedding and text-generation gateways and their
// provider implementations. Callers depend only on the interfaces; which
// provider backs them is decided by configuration at process startup.
package ai

import "context"

// Embedder converts text into fixed-dimension vectors. Embeddings must be a
// pure function of the input text for a fixed model identifier.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// ChatTurn is one prior exchange in a conversation, passed to the generator
// as rolling context.
type ChatTurn struct {
	Role    string
	Content string
}

// Prompt carries the assembled grounding prompt for one generation call.
type Prompt struct {
	System  string
	History []ChatTurn
	User    string
}

// Generator produces a text completion for an assembled prompt. Stateless;
// all conversation context travels inside the Prompt.
type Generator interface {
	Generate(ctx context.Context, prompt Prompt) (string, error)
}

// Conversation roles used in ChatTurn.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
