package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cloo-solutions/converso/internal/api/middleware"
	"github.com/cloo-solutions/converso/internal/domain"
	"github.com/cloo-solutions/converso/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockIngestionService struct {
	mock.Mock
}

func (m *MockIngestionService) Upload(ctx context.Context, tenantID, filename string, data []byte) (*domain.Document, error) {
	args := m.Called(ctx, tenantID, filename, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockIngestionService) Get(ctx context.Context, tenantID, documentID string) (*domain.Document, error) {
	args := m.Called(ctx, tenantID, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockIngestionService) List(ctx context.Context, input service.ListDocumentsInput) (*service.ListDocumentsOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ListDocumentsOutput), args.Error(1)
}

func (m *MockIngestionService) Reprocess(ctx context.Context, tenantID, documentID string) error {
	args := m.Called(ctx, tenantID, documentID)
	return args.Error(0)
}

func (m *MockIngestionService) Delete(ctx context.Context, tenantID, documentID string) error {
	args := m.Called(ctx, tenantID, documentID)
	return args.Error(0)
}

func newTestDocument() *domain.Document {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	return &domain.Document{
		ID:        "doc-123",
		TenantID:  "tenant-456",
		Filename:  "faq.md",
		Type:      domain.DocumentTypeMarkdown,
		ByteSize:  512,
		Status:    domain.DocumentStatusUploading,
		CreatedAt: now,
	}
}

func multipartUploadRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/documents", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	ctx := context.WithValue(req.Context(), middleware.TenantIDKey, "tenant-456")
	return req.WithContext(ctx)
}

func documentRequest(method, url, documentID string) *http.Request {
	req := httptest.NewRequest(method, url, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("documentID", documentID)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	ctx = context.WithValue(ctx, middleware.TenantIDKey, "tenant-456")
	return req.WithContext(ctx)
}

func TestDocumentHandler_Upload_Success(t *testing.T) {
	mockSvc := new(MockIngestionService)
	handler := NewDocumentHandler(mockSvc)

	content := []byte("# FAQ\n\nWe open at 9am.")
	mockSvc.On("Upload", mock.Anything, "tenant-456", "faq.md", content).Return(newTestDocument(), nil)

	req := multipartUploadRequest(t, "faq.md", content)
	w := httptest.NewRecorder()

	handler.Upload(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)

	var resp struct {
		Data DocumentResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "doc-123", resp.Data.ID)
	assert.Equal(t, "uploading", resp.Data.Status)
	mockSvc.AssertExpectations(t)
}

func TestDocumentHandler_Upload_MissingFile(t *testing.T) {
	mockSvc := new(MockIngestionService)
	handler := NewDocumentHandler(mockSvc)

	req := httptest.NewRequest(http.MethodPost, "/documents", nil)
	ctx := context.WithValue(req.Context(), middleware.TenantIDKey, "tenant-456")
	w := httptest.NewRecorder()

	handler.Upload(w, req.WithContext(ctx))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "file field is required")
	mockSvc.AssertNotCalled(t, "Upload")
}

func TestDocumentHandler_Upload_MissingTenant(t *testing.T) {
	mockSvc := new(MockIngestionService)
	handler := NewDocumentHandler(mockSvc)

	req := httptest.NewRequest(http.MethodPost, "/documents", nil)
	w := httptest.NewRecorder()

	handler.Upload(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	mockSvc.AssertNotCalled(t, "Upload")
}

func TestDocumentHandler_Upload_UnsupportedType(t *testing.T) {
	mockSvc := new(MockIngestionService)
	handler := NewDocumentHandler(mockSvc)

	mockSvc.On("Upload", mock.Anything, "tenant-456", "setup.exe", mock.Anything).
		Return(nil, domain.ErrUnsupportedDocumentType)

	req := multipartUploadRequest(t, "setup.exe", []byte("MZ"))
	w := httptest.NewRecorder()

	handler.Upload(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDocumentHandler_Get_Success(t *testing.T) {
	mockSvc := new(MockIngestionService)
	handler := NewDocumentHandler(mockSvc)

	mockSvc.On("Get", mock.Anything, "tenant-456", "doc-123").Return(newTestDocument(), nil)

	req := documentRequest(http.MethodGet, "/documents/doc-123", "doc-123")
	w := httptest.NewRecorder()

	handler.Get(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data DocumentResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "faq.md", resp.Data.Filename)
}

func TestDocumentHandler_Get_NotFound(t *testing.T) {
	mockSvc := new(MockIngestionService)
	handler := NewDocumentHandler(mockSvc)

	mockSvc.On("Get", mock.Anything, "tenant-456", "missing").Return(nil, domain.ErrDocumentNotFound)

	req := documentRequest(http.MethodGet, "/documents/missing", "missing")
	w := httptest.NewRecorder()

	handler.Get(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDocumentHandler_List_Success(t *testing.T) {
	mockSvc := new(MockIngestionService)
	handler := NewDocumentHandler(mockSvc)

	mockSvc.On("List", mock.Anything, service.ListDocumentsInput{
		TenantID: "tenant-456",
		Cursor:   "abc",
		Limit:    10,
	}).Return(&service.ListDocumentsOutput{
		Items:   []*domain.Document{newTestDocument()},
		Cursor:  "next",
		HasMore: true,
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/documents?limit=10&cursor=abc", nil)
	ctx := context.WithValue(req.Context(), middleware.TenantIDKey, "tenant-456")
	w := httptest.NewRecorder()

	handler.List(w, req.WithContext(ctx))

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data ListDocumentsResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Items, 1)
	assert.Equal(t, "next", resp.Data.Cursor)
	assert.True(t, resp.Data.HasMore)
	mockSvc.AssertExpectations(t)
}

func TestDocumentHandler_List_InvalidLimit(t *testing.T) {
	mockSvc := new(MockIngestionService)
	handler := NewDocumentHandler(mockSvc)

	req := httptest.NewRequest(http.MethodGet, "/documents?limit=abc", nil)
	ctx := context.WithValue(req.Context(), middleware.TenantIDKey, "tenant-456")
	w := httptest.NewRecorder()

	handler.List(w, req.WithContext(ctx))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockSvc.AssertNotCalled(t, "List")
}

func TestDocumentHandler_Reprocess_Success(t *testing.T) {
	mockSvc := new(MockIngestionService)
	handler := NewDocumentHandler(mockSvc)

	mockSvc.On("Reprocess", mock.Anything, "tenant-456", "doc-123").Return(nil)

	req := documentRequest(http.MethodPost, "/documents/doc-123/reprocess", "doc-123")
	w := httptest.NewRecorder()

	handler.Reprocess(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), "queued")
}

func TestDocumentHandler_Delete_Success(t *testing.T) {
	mockSvc := new(MockIngestionService)
	handler := NewDocumentHandler(mockSvc)

	mockSvc.On("Delete", mock.Anything, "tenant-456", "doc-123").Return(nil)

	req := documentRequest(http.MethodDelete, "/documents/doc-123", "doc-123")
	w := httptest.NewRecorder()

	handler.Delete(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}
