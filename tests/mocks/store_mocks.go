package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/welldanyogia/couchkit/internal/models"
	"github.com/welldanyogia/couchkit/internal/serializer"
)

// MockStore implements adapter.Store
type MockStore struct {
	mock.Mock
}

// DidFindRecord materializes a single record
func (m *MockStore) DidFindRecord(ctx context.Context, hash serializer.Hash, id string) error {
	args := m.Called(ctx, hash, id)
	return args.Error(0)
}

// LoadMany materializes a batch of records
func (m *MockStore) LoadMany(ctx context.Context, hashes []serializer.Hash) error {
	args := m.Called(ctx, hashes)
	return args.Error(0)
}

// DidSaveRecord acknowledges a saved record
func (m *MockStore) DidSaveRecord(ctx context.Context, record *models.Attachment, hash serializer.Hash) error {
	args := m.Called(ctx, record, hash)
	return args.Error(0)
}

// DidFailRecord reports a failed save
func (m *MockStore) DidFailRecord(ctx context.Context, record *models.Attachment, err error) {
	m.Called(ctx, record, err)
}

// MockIndex implements adapter.Index
type MockIndex struct {
	mock.Mock
}

// Get looks up attachment metadata
func (m *MockIndex) Get(ctx context.Context, id string) (serializer.Hash, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(serializer.Hash), args.Error(1)
}

// MockPinger implements handlers.Pinger
type MockPinger struct {
	mock.Mock
}

func (m *MockPinger) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockRecordStore implements handlers.RecordStore
type MockRecordStore struct {
	MockStore
}

// Record returns a materialized record
func (m *MockRecordStore) Record(id string) (*models.Attachment, bool) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*models.Attachment), args.Bool(1)
}

// MockTypeRegistry implements handlers.TypeRegistry
type MockTypeRegistry struct {
	mock.Mock
}

func (m *MockTypeRegistry) Has(docType string) bool {
	args := m.Called(docType)
	return args.Bool(0)
}
