// Package chunker splits normalized document text into bounded overlapping
// segments for embedding. Splitting is deterministic for identical input and
// parameters, which keeps reprocessing idempotent.
package chunker

import (
	"strings"
	"unicode"
)

// charsPerToken is the character-to-token estimate used throughout the
// pipeline. Four characters per token tracks the embedding provider's
// tokenizer closely enough for sizing purposes.
const charsPerToken = 4

// Config controls chunk sizing in token-equivalents.
type Config struct {
	TargetTokens  int
	MaxTokens     int
	OverlapTokens int
}

// DefaultConfig provides sane defaults for chunking.
func DefaultConfig() Config {
	return Config{
		TargetTokens:  400,
		MaxTokens:     512,
		OverlapTokens: 50,
	}
}

// Chunk is one bounded segment of the input text.
type Chunk struct {
	Index         int
	Text          string
	TokenEstimate int
}

// EstimateTokens returns the token-equivalent estimate for text.
func EstimateTokens(text string) int {
	n := len([]rune(text))
	if n == 0 {
		return 0
	}
	return (n + charsPerToken - 1) / charsPerToken
}

// Split divides text into ordered chunks of at most cfg.MaxTokens
// token-equivalents, targeting cfg.TargetTokens, with each chunk after the
// first starting cfg.OverlapTokens before the previous chunk's end. Empty
// input yields no chunks; input shorter than the target yields one.
func Split(text string, cfg Config) []Chunk {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return nil
	}
	if cfg.TargetTokens <= 0 || cfg.MaxTokens <= 0 {
		cfg = DefaultConfig()
	}
	if cfg.TargetTokens > cfg.MaxTokens {
		cfg.TargetTokens = cfg.MaxTokens
	}

	targetChars := cfg.TargetTokens * charsPerToken
	overlapChars := cfg.OverlapTokens * charsPerToken

	runes := []rune(clean)
	if len(runes) <= targetChars {
		return []Chunk{{Index: 0, Text: clean, TokenEstimate: EstimateTokens(clean)}}
	}

	chunks := make([]Chunk, 0, len(runes)/targetChars+1)
	start := 0
	for start < len(runes) {
		end := start + targetChars
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = findBreak(runes, start, end)
		}

		if end <= start {
			break
		}

		segment := strings.TrimSpace(string(runes[start:end]))
		if segment != "" {
			chunks = append(chunks, Chunk{
				Index:         len(chunks),
				Text:          segment,
				TokenEstimate: EstimateTokens(segment),
			})
		}

		if end >= len(runes) {
			break
		}

		nextStart := end - overlapChars
		if nextStart <= start {
			nextStart = end
		}
		start = nextStart
	}

	return chunks
}

// findBreak picks the cut position nearest to end, preferring paragraph
// breaks, then sentence ends, then word boundaries, then a hard cut.
func findBreak(runes []rune, start, end int) int {
	min := func(window int) int {
		m := end - window
		if m < start+1 {
			m = start + 1
		}
		return m
	}

	for i := end; i >= min(200); i-- {
		if i+1 < len(runes) && runes[i] == '\n' && runes[i+1] == '\n' {
			return i + 2
		}
	}

	for i := end; i >= min(100); i-- {
		if isSentenceEnd(runes, i) {
			return i + 1
		}
	}

	for i := end; i >= min(50); i-- {
		if unicode.IsSpace(runes[i]) {
			return i + 1
		}
	}

	return end
}

func isSentenceEnd(runes []rune, i int) bool {
	if i >= len(runes) {
		return false
	}
	switch runes[i] {
	case '.', '!', '?':
	default:
		return false
	}
	if i+1 >= len(runes) {
		return true
	}
	next := runes[i+1]
	return next == ' ' || next == '\n'
}
