package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentTypeFromFilename(t *testing.T) {
	tests := []struct {
		filename string
		expected DocumentType
	}{
		{"notes.txt", DocumentTypeTxt},
		{"faq.md", DocumentTypeMarkdown},
		{"guide.markdown", DocumentTypeMarkdown},
		{"prices.csv", DocumentTypeCSV},
		{"catalog.json", DocumentTypeJSON},
		{"FAQ.MD", DocumentTypeMarkdown},
		{"archive.backup.txt", DocumentTypeTxt},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			docType, err := DocumentTypeFromFilename(tt.filename)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, docType)
		})
	}
}

func TestDocumentTypeFromFilename_Unsupported(t *testing.T) {
	tests := []string{"setup.exe", "report.pdf", "noextension", "trailingdot."}

	for _, filename := range tests {
		t.Run(filename, func(t *testing.T) {
			_, err := DocumentTypeFromFilename(filename)
			assert.ErrorIs(t, err, ErrUnsupportedDocumentType)
		})
	}
}

func TestNewDocument(t *testing.T) {
	now := time.Now().UTC()
	doc := NewDocument("doc-1", "tenant-1", "faq.md", DocumentTypeMarkdown, 512, now)

	assert.Equal(t, "doc-1", doc.ID)
	assert.Equal(t, "tenant-1", doc.TenantID)
	assert.Equal(t, DocumentStatusUploading, doc.Status)
	assert.Equal(t, int64(512), doc.ByteSize)
	assert.Zero(t, doc.ChunkCount)
	assert.Nil(t, doc.ProcessedAt)
}

func TestValidateDocument(t *testing.T) {
	now := time.Now().UTC()
	valid := NewDocument("doc-1", "tenant-1", "faq.md", DocumentTypeMarkdown, 512, now)
	require.NoError(t, ValidateDocument(valid))

	tests := []struct {
		name   string
		mutate func(*Document)
	}{
		{"missing ID", func(d *Document) { d.ID = "" }},
		{"missing TenantID", func(d *Document) { d.TenantID = "" }},
		{"missing Filename", func(d *Document) { d.Filename = "" }},
		{"invalid Type", func(d *Document) { d.Type = "pdf" }},
		{"invalid Status", func(d *Document) { d.Status = "archived" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := NewDocument("doc-1", "tenant-1", "faq.md", DocumentTypeMarkdown, 512, now)
			tt.mutate(doc)
			assert.Error(t, ValidateDocument(doc))
		})
	}

	assert.Error(t, ValidateDocument(nil))
}
