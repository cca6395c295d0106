package mocks

import (
	"io"

	"github.com/stretchr/testify/mock"
	"github.com/welldanyogia/couchkit/internal/storage"
)

// MockStagingArea implements storage.StagingArea
type MockStagingArea struct {
	mock.Mock
}

func (m *MockStagingArea) Stage(fileName string, content io.Reader) (*storage.Staged, error) {
	args := m.Called(fileName, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.Staged), args.Error(1)
}

func (m *MockStagingArea) Open(path string) (io.ReadCloser, error) {
	args := m.Called(path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *MockStagingArea) Remove(path string) error {
	args := m.Called(path)
	return args.Error(0)
}
