package adapter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	apperrors "github.com/welldanyogia/couchkit/internal/errors"
	"github.com/welldanyogia/couchkit/internal/models"
	"github.com/welldanyogia/couchkit/internal/registry"
	"github.com/welldanyogia/couchkit/internal/serializer"
	"github.com/welldanyogia/couchkit/tests/mocks"
)

func newTestAdapter(baseURL string, index Index) *AttachmentAdapter {
	return New(Config{BaseURL: baseURL, Database: "docs"}, serializer.New(registry.New()), index, nil)
}

func TestFind_HandsIndexEntryToStore(t *testing.T) {
	index := new(mocks.MockIndex)
	store := new(mocks.MockStore)
	hash := serializer.Hash{"_id": "t1/a.txt", "doc_id": "t1", "doc_type": "task"}

	index.On("Get", mock.Anything, "t1/a.txt").Return(hash, nil)
	store.On("DidFindRecord", mock.Anything, hash, "t1/a.txt").Return(nil)

	err := newTestAdapter("http://couch.invalid", index).Find(context.Background(), store, "t1/a.txt")

	require.NoError(t, err)
	index.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestFind_NotFound(t *testing.T) {
	index := new(mocks.MockIndex)
	store := new(mocks.MockStore)
	index.On("Get", mock.Anything, "missing").Return(nil, apperrors.ErrAttachmentNotFound)

	err := newTestAdapter("http://couch.invalid", index).Find(context.Background(), store, "missing")

	assert.ErrorIs(t, err, apperrors.ErrAttachmentNotFound)
	store.AssertNotCalled(t, "DidFindRecord", mock.Anything, mock.Anything, mock.Anything)
}

func TestFindMany_StampsDatabaseName(t *testing.T) {
	index := new(mocks.MockIndex)
	store := new(mocks.MockStore)

	index.On("Get", mock.Anything, "a").Return(serializer.Hash{"_id": "a", "db": "other"}, nil)
	index.On("Get", mock.Anything, "b").Return(serializer.Hash{"_id": "b"}, nil)
	store.On("LoadMany", mock.Anything, mock.MatchedBy(func(hashes []serializer.Hash) bool {
		return len(hashes) == 2 &&
			hashes[0]["_id"] == "a" && hashes[0]["db"] == "docs" &&
			hashes[1]["_id"] == "b" && hashes[1]["db"] == "docs"
	})).Return(nil)

	err := newTestAdapter("http://couch.invalid", index).FindMany(context.Background(), store, []string{"a", "b"})

	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestFindMany_StopsOnMissingID(t *testing.T) {
	index := new(mocks.MockIndex)
	store := new(mocks.MockStore)

	index.On("Get", mock.Anything, "a").Return(serializer.Hash{"_id": "a"}, nil)
	index.On("Get", mock.Anything, "b").Return(nil, apperrors.ErrAttachmentNotFound)

	err := newTestAdapter("http://couch.invalid", index).FindMany(context.Background(), store, []string{"a", "b"})

	assert.ErrorIs(t, err, apperrors.ErrAttachmentNotFound)
	store.AssertNotCalled(t, "LoadMany", mock.Anything, mock.Anything)
}

func TestFindMany_PropagatesStoreError(t *testing.T) {
	index := new(mocks.MockIndex)
	store := new(mocks.MockStore)
	storeErr := errors.New("materialize failed")

	index.On("Get", mock.Anything, "a").Return(serializer.Hash{"_id": "a"}, nil)
	store.On("LoadMany", mock.Anything, mock.Anything).Return(storeErr)

	err := newTestAdapter("http://couch.invalid", index).FindMany(context.Background(), store, []string{"a"})

	assert.ErrorIs(t, err, storeErr)
}

func TestUpdateAndDelete_AreNoOps(t *testing.T) {
	store := new(mocks.MockStore)
	a := newTestAdapter("http://couch.invalid", new(mocks.MockIndex))
	record := &models.Attachment{ID: "t1/a.txt"}

	assert.NoError(t, a.Update(context.Background(), store, record))
	assert.NoError(t, a.Delete(context.Background(), store, record))
	store.AssertExpectations(t)
}

func TestResourceURL_EscapesSegments(t *testing.T) {
	a := New(Config{BaseURL: "http://couch:5984/", Database: "docs"}, nil, nil, nil)

	assert.Equal(t, "http://couch:5984/docs/att1", a.resourceURL("att1", nil))
	assert.Equal(t, "http://couch:5984/docs/t1/my%20file.txt", a.resourceURL("t1/my file.txt", nil))
}
