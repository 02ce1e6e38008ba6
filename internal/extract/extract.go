// Package extract converts uploaded document bytes into plain text.
package extract

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/cloo-solutions/converso/internal/domain"
)

// Extractor converts raw uploaded bytes into normalized plain text.
// Richer formats (PDF, DOCX) live behind separate implementations of this
// interface; this package handles the text-native types.
type Extractor interface {
	Extract(docType domain.DocumentType, data []byte) (string, error)
}

// TextExtractor handles txt, markdown, JSON, and CSV documents.
type TextExtractor struct{}

// NewTextExtractor creates a new TextExtractor
func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

// Extract returns the plain-text content of data according to docType.
func (e *TextExtractor) Extract(docType domain.DocumentType, data []byte) (string, error) {
	switch docType {
	case domain.DocumentTypeTxt, domain.DocumentTypeMarkdown, domain.DocumentTypeJSON:
		return extractPlain(data)
	case domain.DocumentTypeCSV:
		return extractCSV(data)
	}
	return "", domain.ErrUnsupportedDocumentType
}

func extractPlain(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", domain.NewDomainError(domain.ErrCodeValidation, "document is not valid UTF-8 text")
	}
	return normalize(string(data)), nil
}

// extractCSV renders each row as "header: value" pairs so tabular knowledge
// (price lists, opening hours) stays searchable as prose.
func extractCSV(data []byte) (string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err == io.EOF {
		return "", nil
	}
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid CSV document", err)
	}

	var parts []string
	parts = append(parts, "Headers: "+strings.Join(headers, ", "))

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid CSV document", err)
		}

		var fields []string
		for i, value := range row {
			if i >= len(headers) || strings.TrimSpace(value) == "" {
				continue
			}
			fields = append(fields, fmt.Sprintf("%s: %s", headers[i], value))
		}
		if len(fields) > 0 {
			parts = append(parts, strings.Join(fields, ", "))
		}
	}

	return strings.Join(parts, "\n"), nil
}

// normalize collapses Windows line endings and trims surrounding space so
// chunk boundaries do not depend on the uploader's platform.
func normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.TrimSpace(text)
}
