package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloo-solutions/converso/internal/ai"
	"github.com/cloo-solutions/converso/internal/chunker"
	"github.com/cloo-solutions/converso/internal/domain"
	"github.com/cloo-solutions/converso/internal/telemetry"
	"github.com/cloo-solutions/converso/internal/vector"
)

// NoContextReply is the exact reply sent when retrieval finds nothing
// relevant. Kept stable so channel automations can match on it.
const NoContextReply = "I don't have that information. Please contact us directly and we will be happy to help."

const (
	defaultTopK     = 5
	defaultMinScore = 0.15
)

// DocumentLookup resolves document metadata for answer attribution.
type DocumentLookup interface {
	GetByID(ctx context.Context, tenantID, id string) (*domain.Document, error)
}

// Source identifies one retrieved chunk that grounded an answer.
type Source struct {
	DocumentID string
	Filename   string
	ChunkRef   string
	Score      float32
}

// Usage reports context size and estimated token consumption for one answer.
type Usage struct {
	ContextChunks    int
	PromptTokens     int
	CompletionTokens int
}

// Answer is the outcome of one grounded query.
type Answer struct {
	Text    string
	Sources []Source
	Usage   Usage
}

// QueryService answers questions using only the asking tenant's documents.
// Retrieval runs inside the tenant's vector namespace; generation sees only
// the retrieved chunks and the tenant's own persona settings.
type QueryService struct {
	tenantRepo TenantRepository
	docs       DocumentLookup
	embedder   ai.Embedder
	generator  ai.Generator
	vectors    vector.Store
	topK       int
	minScore   float32
}

func NewQueryService(
	tenantRepo TenantRepository,
	docs DocumentLookup,
	embedder ai.Embedder,
	generator ai.Generator,
	vectors vector.Store,
	topK int,
	minScore float32,
) *QueryService {
	if topK <= 0 {
		topK = defaultTopK
	}
	if minScore <= 0 {
		minScore = defaultMinScore
	}
	return &QueryService{
		tenantRepo: tenantRepo,
		docs:       docs,
		embedder:   embedder,
		generator:  generator,
		vectors:    vectors,
		topK:       topK,
		minScore:   minScore,
	}
}

// Answer runs the retrieval-augmented pipeline for one question.
func (s *QueryService) Answer(ctx context.Context, tenantID, question string, history []ai.ChatTurn) (*Answer, error) {
	ctx, span := telemetry.StartSpan(ctx, "QueryService.Answer", telemetry.SpanAttributes{
		TenantID:  tenantID,
		Operation: "answer",
	})
	defer span.End()

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "question is required")
	}

	tenant, err := s.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	embedding, err := s.embedder.Embed(ctx, question)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	matches, err := s.vectors.Query(ctx, tenantID, embedding, s.topK)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	relevant := matches[:0:0]
	for _, m := range matches {
		if m.Score >= s.minScore {
			relevant = append(relevant, m)
		}
	}

	// Generation always runs, even with an empty context. The system prompt
	// instructs the model to return the fixed fallback reply when the
	// context cannot answer the question.
	prompt := BuildPrompt(tenant, relevant, history, question)

	text, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	filenames, err := s.resolveFilenames(ctx, tenantID, relevant)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	sources := make([]Source, len(relevant))
	for i, m := range relevant {
		sources[i] = Source{
			DocumentID: m.DocumentID,
			Filename:   filenames[m.DocumentID],
			ChunkRef:   m.Ref,
			Score:      m.Score,
		}
	}

	return &Answer{
		Text:    text,
		Sources: sources,
		Usage: Usage{
			ContextChunks:    len(relevant),
			PromptTokens:     chunker.EstimateTokens(prompt.System) + chunker.EstimateTokens(prompt.User),
			CompletionTokens: chunker.EstimateTokens(text),
		},
	}, nil
}

// resolveFilenames maps the distinct document IDs in matches to filenames.
// A document deleted between retrieval and lookup keeps an empty filename
// rather than failing the answer.
func (s *QueryService) resolveFilenames(ctx context.Context, tenantID string, matches []vector.Match) (map[string]string, error) {
	filenames := make(map[string]string, len(matches))
	for _, m := range matches {
		if _, seen := filenames[m.DocumentID]; seen {
			continue
		}
		doc, err := s.docs.GetByID(ctx, tenantID, m.DocumentID)
		if err != nil {
			if errors.Is(err, domain.ErrDocumentNotFound) {
				filenames[m.DocumentID] = ""
				continue
			}
			return nil, err
		}
		filenames[m.DocumentID] = doc.Filename
	}
	return filenames, nil
}

// BuildPrompt assembles the grounding prompt from the tenant persona, the
// retrieved chunks, and the rolling conversation history.
func BuildPrompt(tenant *domain.Tenant, matches []vector.Match, history []ai.ChatTurn, question string) ai.Prompt {
	var sys strings.Builder
	fmt.Fprintf(&sys, "You are a customer support assistant for %s.\n", tenant.BusinessName)
	fmt.Fprintf(&sys, "Respond in a %s tone.\n", tenant.ResponseTone)
	sys.WriteString("Answer using only the information in the provided context.\n")

	if len(tenant.BusinessFacts) > 0 {
		sys.WriteString("Facts about the business:\n")
		for _, fact := range tenant.BusinessFacts {
			fmt.Fprintf(&sys, "- %s\n", fact)
		}
	}

	if len(tenant.BlockedTopics) > 0 {
		fmt.Fprintf(&sys, "Never discuss the following topics: %s.\n", strings.Join(tenant.BlockedTopics, ", "))
	}

	fmt.Fprintf(&sys, "If the context does not contain the answer, reply exactly: %q\n", NoContextReply)

	var user strings.Builder
	user.WriteString("CONTEXT:\n")
	for _, m := range matches {
		user.WriteString(m.Text)
		user.WriteString("\n\n")
	}
	user.WriteString("QUESTION:\n")
	user.WriteString(question)

	return ai.Prompt{
		System:  sys.String(),
		History: history,
		User:    user.String(),
	}
}
