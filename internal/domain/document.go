package domain

import (
	"fmt"
	"strings"
	"time"
)

// DocumentType represents the file type of an uploaded document
type DocumentType string

const (
	DocumentTypeTxt      DocumentType = "txt"
	DocumentTypeMarkdown DocumentType = "md"
	DocumentTypeCSV      DocumentType = "csv"
	DocumentTypeJSON     DocumentType = "json"
)

// DocumentStatus represents the lifecycle state of a document
type DocumentStatus string

const (
	DocumentStatusUploading  DocumentStatus = "uploading"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusReady      DocumentStatus = "ready"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// Document represents an uploaded knowledge document. Its chunks and vectors
// are owned by it and removed when it is deleted or reprocessed.
type Document struct {
	ID          string
	TenantID    string
	Filename    string
	Type        DocumentType
	ByteSize    int64
	Status      DocumentStatus
	ErrorDetail string
	ChunkCount  int
	StorageKey  string
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// NewDocument creates a new Document instance in the uploading state
func NewDocument(id, tenantID, filename string, docType DocumentType, byteSize int64, createdAt time.Time) *Document {
	return &Document{
		ID:        id,
		TenantID:  tenantID,
		Filename:  filename,
		Type:      docType,
		ByteSize:  byteSize,
		Status:    DocumentStatusUploading,
		CreatedAt: createdAt,
	}
}

// DocumentTypeFromFilename derives the document type from a filename
// extension. Unknown extensions are rejected.
func DocumentTypeFromFilename(filename string) (DocumentType, error) {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 || idx == len(filename)-1 {
		return "", ErrUnsupportedDocumentType
	}
	ext := strings.ToLower(filename[idx+1:])
	switch ext {
	case "txt":
		return DocumentTypeTxt, nil
	case "md", "markdown":
		return DocumentTypeMarkdown, nil
	case "csv":
		return DocumentTypeCSV, nil
	case "json":
		return DocumentTypeJSON, nil
	}
	return "", ErrUnsupportedDocumentType
}

// ValidateDocument validates a Document instance
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}

	if d.ID == "" {
		return fmt.Errorf("document ID is required")
	}

	if d.TenantID == "" {
		return fmt.Errorf("document TenantID is required")
	}

	if d.Filename == "" {
		return fmt.Errorf("document Filename is required")
	}

	if !isValidDocumentType(d.Type) {
		return fmt.Errorf("document Type is invalid: %s", d.Type)
	}

	if !isValidDocumentStatus(d.Status) {
		return fmt.Errorf("document Status is invalid: %s", d.Status)
	}

	return nil
}

// isValidDocumentType checks if a DocumentType is valid
func isValidDocumentType(t DocumentType) bool {
	switch t {
	case DocumentTypeTxt, DocumentTypeMarkdown, DocumentTypeCSV, DocumentTypeJSON:
		return true
	}
	return false
}

// isValidDocumentStatus checks if a DocumentStatus is valid
func isValidDocumentStatus(s DocumentStatus) bool {
	switch s {
	case DocumentStatusUploading, DocumentStatusProcessing, DocumentStatusReady, DocumentStatusFailed:
		return true
	}
	return false
}
