// Package adaptermock holds mocks for types that depend on the adapter
// package. They live apart from tests/mocks so the adapter's own tests can
// import tests/mocks without a cycle.
package adaptermock

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/welldanyogia/couchkit/internal/adapter"
	"github.com/welldanyogia/couchkit/internal/models"
)

// MockAttachmentAdapter implements api.CouchAdapter
type MockAttachmentAdapter struct {
	mock.Mock
}

func (m *MockAttachmentAdapter) Find(ctx context.Context, store adapter.Store, id string) error {
	args := m.Called(ctx, store, id)
	return args.Error(0)
}

func (m *MockAttachmentAdapter) FindMany(ctx context.Context, store adapter.Store, ids []string) error {
	args := m.Called(ctx, store, ids)
	return args.Error(0)
}

// Create returns a channel that already holds the configured result
func (m *MockAttachmentAdapter) Create(ctx context.Context, store adapter.Store, record *models.Attachment) <-chan adapter.UploadResult {
	args := m.Called(ctx, store, record)
	results := make(chan adapter.UploadResult, 1)
	results <- args.Get(0).(adapter.UploadResult)
	close(results)
	return results
}

func (m *MockAttachmentAdapter) Update(ctx context.Context, store adapter.Store, record *models.Attachment) error {
	args := m.Called(ctx, store, record)
	return args.Error(0)
}

func (m *MockAttachmentAdapter) Delete(ctx context.Context, store adapter.Store, record *models.Attachment) error {
	args := m.Called(ctx, store, record)
	return args.Error(0)
}

func (m *MockAttachmentAdapter) Download(ctx context.Context, id string) (*adapter.Download, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*adapter.Download), args.Error(1)
}

func (m *MockAttachmentAdapter) FetchDocument(ctx context.Context, docID string) (*adapter.DocumentEnvelope, error) {
	args := m.Called(ctx, docID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*adapter.DocumentEnvelope), args.Error(1)
}

func (m *MockAttachmentAdapter) Database() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockAttachmentAdapter) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockDocumentIndexer implements handlers.DocumentIndexer
type MockDocumentIndexer struct {
	mock.Mock
}

func (m *MockDocumentIndexer) IndexDocument(ctx context.Context, db, docType string, env *adapter.DocumentEnvelope) ([]models.Attachment, error) {
	args := m.Called(ctx, db, docType, env)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Attachment), args.Error(1)
}
