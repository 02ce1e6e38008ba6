package service

import (
	"context"
	"fmt"
	"time"

	"github.com/cloo-solutions/converso/internal/ai"
	"github.com/cloo-solutions/converso/internal/chunker"
	"github.com/cloo-solutions/converso/internal/domain"
	"github.com/cloo-solutions/converso/internal/extract"
	"github.com/cloo-solutions/converso/internal/pagination"
	"github.com/cloo-solutions/converso/internal/telemetry"
	"github.com/cloo-solutions/converso/internal/vector"
)

// DocumentRepositoryInterface defines the repository interface for document persistence
type DocumentRepositoryInterface interface {
	Create(ctx context.Context, d *domain.Document) error
	GetByID(ctx context.Context, tenantID, id string) (*domain.Document, error)
	ListByTenantWithCursor(ctx context.Context, tenantID string, cursor *pagination.Cursor, limit int) (*DocumentPageResult, error)
	UpdateStatus(ctx context.Context, tenantID, id string, status domain.DocumentStatus, errorDetail string, chunkCount int) error
	Delete(ctx context.Context, tenantID, id string) error
}

// ChunkRepositoryInterface defines the repository interface for chunk persistence
type ChunkRepositoryInterface interface {
	InsertBatch(ctx context.Context, chunks []*domain.Chunk) error
	ListByDocument(ctx context.Context, tenantID, documentID string) ([]*domain.Chunk, error)
	DeleteByDocument(ctx context.Context, tenantID, documentID string) error
	CountByDocument(ctx context.Context, tenantID, documentID string) (int, error)
}

// JobRepositoryInterface defines the repository interface for job persistence
type JobRepositoryInterface interface {
	Create(ctx context.Context, job *domain.Job) error
}

// ObjectStore persists the raw uploaded bytes of a document.
type ObjectStore interface {
	PutObject(ctx context.Context, key, contentType string, data []byte) error
	GetObject(ctx context.Context, key string) ([]byte, error)
	DeleteObject(ctx context.Context, key string) error
}

type DocumentPageResult struct {
	Items      []*domain.Document
	NextCursor string
	HasMore    bool
}

// IngestionService owns the document lifecycle: accepting uploads, turning
// stored bytes into embedded chunks, and removing a document's footprint
// from both the relational store and the vector namespace.
type IngestionService struct {
	docRepo   DocumentRepositoryInterface
	chunkRepo ChunkRepositoryInterface
	txRunner  TxRunner
	store     ObjectStore
	extractor extract.Extractor
	embedder  ai.Embedder
	vectors   vector.Store
	chunkCfg  chunker.Config
	uuidGen   UUIDGenerator
}

func NewIngestionService(
	docRepo DocumentRepositoryInterface,
	chunkRepo ChunkRepositoryInterface,
	txRunner TxRunner,
	store ObjectStore,
	extractor extract.Extractor,
	embedder ai.Embedder,
	vectors vector.Store,
) *IngestionService {
	return &IngestionService{
		docRepo:   docRepo,
		chunkRepo: chunkRepo,
		txRunner:  txRunner,
		store:     store,
		extractor: extractor,
		embedder:  embedder,
		vectors:   vectors,
		chunkCfg:  chunker.DefaultConfig(),
		uuidGen:   &DefaultUUIDGenerator{},
	}
}

// NewIngestionServiceWithUUIDGen creates an IngestionService with a custom UUID generator (for testing)
func NewIngestionServiceWithUUIDGen(
	docRepo DocumentRepositoryInterface,
	chunkRepo ChunkRepositoryInterface,
	txRunner TxRunner,
	store ObjectStore,
	extractor extract.Extractor,
	embedder ai.Embedder,
	vectors vector.Store,
	uuidGen UUIDGenerator,
) *IngestionService {
	s := NewIngestionService(docRepo, chunkRepo, txRunner, store, extractor, embedder, vectors)
	s.uuidGen = uuidGen
	return s
}

// Upload stores the raw bytes, records the document, and queues processing.
// The document is visible immediately with status uploading.
func (s *IngestionService) Upload(ctx context.Context, tenantID, filename string, data []byte) (*domain.Document, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestionService.Upload", telemetry.SpanAttributes{
		TenantID:  tenantID,
		Operation: "upload",
	})
	defer span.End()

	if tenantID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "tenant ID is required")
	}
	if len(data) == 0 {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "document is empty")
	}

	docType, err := domain.DocumentTypeFromFilename(filename)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	doc := domain.NewDocument(s.uuidGen.NewString(), tenantID, filename, docType, int64(len(data)), now)
	doc.StorageKey = fmt.Sprintf("documents/%s/%s", tenantID, doc.ID)

	if err := domain.ValidateDocument(doc); err != nil {
		return nil, err
	}

	if err := s.store.PutObject(ctx, doc.StorageKey, contentTypeFor(docType), data); err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to store document", err)
	}

	err = s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Documents().Create(ctx, doc); err != nil {
			return err
		}
		job := domain.NewJob(s.uuidGen.NewString(), tenantID, domain.JobKindDocument, doc.ID, now)
		return repos.Jobs().Create(ctx, job)
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	return doc, nil
}

// Process turns a document's stored bytes into embedded, searchable chunks.
// Safe to run again for the same document: the previous chunks and vectors
// are replaced wholesale, never merged.
func (s *IngestionService) Process(ctx context.Context, tenantID, documentID string) error {
	ctx, span := telemetry.StartSpan(ctx, "IngestionService.Process", telemetry.SpanAttributes{
		TenantID:   tenantID,
		DocumentID: documentID,
		Operation:  "process",
	})
	defer span.End()

	doc, err := s.docRepo.GetByID(ctx, tenantID, documentID)
	if err != nil {
		return err
	}

	if err := s.docRepo.UpdateStatus(ctx, tenantID, doc.ID, domain.DocumentStatusProcessing, "", 0); err != nil {
		return err
	}

	if err := s.process(ctx, doc); err != nil {
		span.SetError(err)
		detail := err.Error()
		if updateErr := s.docRepo.UpdateStatus(ctx, tenantID, doc.ID, domain.DocumentStatusFailed, detail, 0); updateErr != nil {
			return updateErr
		}
		return err
	}

	return nil
}

func (s *IngestionService) process(ctx context.Context, doc *domain.Document) error {
	data, err := s.store.GetObject(ctx, doc.StorageKey)
	if err != nil {
		return domain.NewProviderError("storage", true, err)
	}

	text, err := s.extractor.Extract(doc.Type, data)
	if err != nil {
		return err
	}

	pieces := chunker.Split(text, s.chunkCfg)
	if len(pieces) == 0 {
		// A document with no extractable text indexes cleanly as empty:
		// any chunks from a previous run are removed and the document
		// becomes ready with a zero chunk count.
		if err := s.vectors.DeleteByDocument(ctx, doc.TenantID, doc.ID); err != nil {
			return err
		}
		return s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
			if err := repos.Chunks().DeleteByDocument(ctx, doc.TenantID, doc.ID); err != nil {
				return err
			}
			return repos.Documents().UpdateStatus(ctx, doc.TenantID, doc.ID, domain.DocumentStatusReady, "", 0)
		})
	}

	texts := make([]string, len(pieces))
	for i, p := range pieces {
		texts[i] = p.Text
	}

	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	chunks := make([]*domain.Chunk, len(pieces))
	records := make([]vector.Record, len(pieces))
	for i, p := range pieces {
		ref := s.uuidGen.NewString()
		chunks[i] = &domain.Chunk{
			ID:            s.uuidGen.NewString(),
			DocumentID:    doc.ID,
			TenantID:      doc.TenantID,
			OrdinalIndex:  p.Index,
			Text:          p.Text,
			TokenEstimate: p.TokenEstimate,
			VectorRef:     ref,
			CreatedAt:     now,
		}
		records[i] = vector.Record{
			Ref:          ref,
			DocumentID:   doc.ID,
			OrdinalIndex: p.Index,
			Text:         p.Text,
			Embedding:    embeddings[i],
		}
	}

	// Replace the document's vectors before committing the chunk rows. If
	// the transaction below fails, the next attempt replaces them again.
	if err := s.vectors.DeleteByDocument(ctx, doc.TenantID, doc.ID); err != nil {
		return err
	}
	if err := s.vectors.Upsert(ctx, doc.TenantID, records); err != nil {
		return err
	}

	return s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Chunks().DeleteByDocument(ctx, doc.TenantID, doc.ID); err != nil {
			return err
		}
		if err := repos.Chunks().InsertBatch(ctx, chunks); err != nil {
			return err
		}
		return repos.Documents().UpdateStatus(ctx, doc.TenantID, doc.ID, domain.DocumentStatusReady, "", len(chunks))
	})
}

// Reprocess queues a fresh processing run for an existing document.
func (s *IngestionService) Reprocess(ctx context.Context, tenantID, documentID string) error {
	doc, err := s.docRepo.GetByID(ctx, tenantID, documentID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	return s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Documents().UpdateStatus(ctx, tenantID, doc.ID, domain.DocumentStatusProcessing, "", doc.ChunkCount); err != nil {
			return err
		}
		job := domain.NewJob(s.uuidGen.NewString(), tenantID, domain.JobKindDocument, doc.ID, now)
		return repos.Jobs().Create(ctx, job)
	})
}

// Delete removes the document together with its chunks, vectors, and stored
// bytes. Conversations that previously cited it keep their messages.
func (s *IngestionService) Delete(ctx context.Context, tenantID, documentID string) error {
	ctx, span := telemetry.StartSpan(ctx, "IngestionService.Delete", telemetry.SpanAttributes{
		TenantID:   tenantID,
		DocumentID: documentID,
		Operation:  "delete",
	})
	defer span.End()

	doc, err := s.docRepo.GetByID(ctx, tenantID, documentID)
	if err != nil {
		return err
	}

	if err := s.vectors.DeleteByDocument(ctx, tenantID, doc.ID); err != nil {
		span.SetError(err)
		return err
	}

	err = s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Chunks().DeleteByDocument(ctx, tenantID, doc.ID); err != nil {
			return err
		}
		return repos.Documents().Delete(ctx, tenantID, doc.ID)
	})
	if err != nil {
		span.SetError(err)
		return err
	}

	if doc.StorageKey != "" {
		if err := s.store.DeleteObject(ctx, doc.StorageKey); err != nil {
			// Orphaned blobs are harmless; the document row is already gone.
			span.SetError(err)
		}
	}

	return nil
}

func (s *IngestionService) Get(ctx context.Context, tenantID, documentID string) (*domain.Document, error) {
	return s.docRepo.GetByID(ctx, tenantID, documentID)
}

type ListDocumentsInput struct {
	TenantID string
	Cursor   string
	Limit    int
}

type ListDocumentsOutput struct {
	Items   []*domain.Document
	Cursor  string
	HasMore bool
}

func (s *IngestionService) List(ctx context.Context, input ListDocumentsInput) (*ListDocumentsOutput, error) {
	if input.TenantID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "tenant ID is required")
	}

	cursor, err := pagination.DecodeCursor(input.Cursor)
	if err != nil {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "invalid cursor")
	}

	page, err := s.docRepo.ListByTenantWithCursor(ctx, input.TenantID, cursor, input.Limit)
	if err != nil {
		return nil, err
	}

	return &ListDocumentsOutput{
		Items:   page.Items,
		Cursor:  page.NextCursor,
		HasMore: page.HasMore,
	}, nil
}

func contentTypeFor(docType domain.DocumentType) string {
	switch docType {
	case domain.DocumentTypeCSV:
		return "text/csv"
	case domain.DocumentTypeJSON:
		return "application/json"
	case domain.DocumentTypeMarkdown:
		return "text/markdown"
	default:
		return "text/plain"
	}
}
