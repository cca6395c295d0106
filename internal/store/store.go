// Package store is the host data layer: an identity map of materialized
// attachment records persisted into the local index.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/welldanyogia/couchkit/internal/adapter"
	apperrors "github.com/welldanyogia/couchkit/internal/errors"
	"github.com/welldanyogia/couchkit/internal/models"
	"github.com/welldanyogia/couchkit/internal/repository"
	"github.com/welldanyogia/couchkit/internal/serializer"
)

// State is the lifecycle state of a record in the store
type State string

const (
	StateLoaded State = "loaded"
	StateSaved  State = "saved"
	StateFailed State = "failed"
)

type entry struct {
	record *models.Attachment
	state  State
	err    error
}

// RecordStore implements adapter.Store
type RecordStore struct {
	mu      sync.RWMutex
	entries map[string]*entry

	serializer  *serializer.AttachmentSerializer
	attachments repository.AttachmentRepository
	documents   repository.DocumentRepository
	logger      *slog.Logger
}

var _ adapter.Store = (*RecordStore)(nil)

// New creates a new RecordStore
func New(
	ser *serializer.AttachmentSerializer,
	attachments repository.AttachmentRepository,
	documents repository.DocumentRepository,
	logger *slog.Logger,
) *RecordStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordStore{
		entries:     make(map[string]*entry),
		serializer:  ser,
		attachments: attachments,
		documents:   documents,
		logger:      logger,
	}
}

// DidFindRecord materializes a record found by the adapter
func (s *RecordStore) DidFindRecord(ctx context.Context, hash serializer.Hash, id string) error {
	record := &models.Attachment{ID: id}
	if err := s.materialize(ctx, record, hash); err != nil {
		return err
	}
	s.put(record, StateLoaded, nil)
	return nil
}

// LoadMany materializes a batch of records
func (s *RecordStore) LoadMany(ctx context.Context, hashes []serializer.Hash) error {
	for _, hash := range hashes {
		id, ok := serializer.ExtractID(hash)
		if !ok {
			return fmt.Errorf("%w: attachment hash without id", repository.ErrInvalidInput)
		}
		if err := s.DidFindRecord(ctx, hash, id); err != nil {
			return err
		}
	}
	return nil
}

// DidSaveRecord applies the database's answer to an uploaded record and
// writes it to the local index
func (s *RecordStore) DidSaveRecord(ctx context.Context, record *models.Attachment, hash serializer.Hash) error {
	err := s.materialize(ctx, record, hash)
	if errors.Is(err, apperrors.ErrDocumentNotFound) {
		err = s.adoptOwner(ctx, record, hash, err)
	}
	if err != nil {
		s.put(record, StateFailed, err)
		return err
	}
	if err := s.attachments.Upsert(ctx, record); err != nil {
		s.put(record, StateFailed, err)
		return err
	}

	s.logger.Info("attachment saved",
		slog.String("attachment_id", record.ID),
		slog.String("rev", record.Rev))
	s.put(record, StateSaved, nil)
	return nil
}

// DidFailRecord marks an upload as failed
func (s *RecordStore) DidFailRecord(ctx context.Context, record *models.Attachment, err error) {
	s.logger.Warn("attachment save failed",
		slog.String("attachment_id", record.ID),
		slog.Any("error", err))
	s.put(record, StateFailed, err)
}

// Record returns the materialized record with the given id
func (s *RecordStore) Record(id string) (*models.Attachment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	return e.record, true
}

// Status is the state of a record and the error that failed it, if any
type Status struct {
	State State
	Err   error
}

// Status returns the status of the record with the given id
func (s *RecordStore) Status(id string) (Status, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return Status{}, false
	}
	return Status{State: e.state, Err: e.err}, true
}

// IndexDocument records a document's revision and one index row per
// attachment stub. It returns the indexed attachments sorted by id.
func (s *RecordStore) IndexDocument(ctx context.Context, db, docType string, env *adapter.DocumentEnvelope) ([]models.Attachment, error) {
	doc := &models.Document{ID: env.ID, Type: docType, Rev: env.Rev}
	if err := s.documents.Upsert(ctx, doc); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(env.Attachments))
	for name := range env.Attachments {
		names = append(names, name)
	}
	sort.Strings(names)

	indexed := make([]models.Attachment, 0, len(names))
	for _, name := range names {
		stub := env.Attachments[name]
		attachment := models.Attachment{
			ID:          env.ID + "/" + name,
			DocID:       env.ID,
			DocType:     docType,
			ContentType: stub.ContentType,
			Length:      stub.Length,
			FileName:    name,
			DB:          db,
			Rev:         env.Rev,
			Digest:      stub.Digest,
		}
		if err := s.attachments.Upsert(ctx, &attachment); err != nil {
			return nil, err
		}
		indexed = append(indexed, attachment)
	}

	s.logger.Info("document indexed",
		slog.String("doc_id", env.ID),
		slog.String("doc_type", docType),
		slog.Int("attachments", len(indexed)))
	return indexed, nil
}

// materialize runs the serializer and persists the owning document's
// revision, which the serializer may have advanced
func (s *RecordStore) materialize(ctx context.Context, record *models.Attachment, hash serializer.Hash) error {
	if err := s.serializer.Materialize(ctx, record, hash); err != nil {
		return err
	}
	if record.Document == nil {
		return nil
	}

	stored, err := s.documents.AdvanceRevision(ctx, record.Document.ID, record.Document.Rev)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	record.Document.Rev = stored
	return nil
}

// adoptOwner indexes the owning document of a saved attachment when the
// local index has never seen it. The database created the document on
// upload, so its id and type come from the record itself. A document
// indexed under another type is left alone and cause is returned.
func (s *RecordStore) adoptOwner(ctx context.Context, record *models.Attachment, hash serializer.Hash, cause error) error {
	if record.DocID == "" || record.DocType == "" {
		return cause
	}
	_, err := s.documents.GetByID(ctx, record.DocID)
	if err == nil {
		return cause
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	if err := s.documents.Upsert(ctx, &models.Document{ID: record.DocID, Type: record.DocType}); err != nil {
		return err
	}
	s.logger.Info("owner document adopted",
		slog.String("doc_id", record.DocID),
		slog.String("doc_type", record.DocType))
	return s.materialize(ctx, record, hash)
}

func (s *RecordStore) put(record *models.Attachment, state State, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[record.ID] = &entry{record: record, state: state, err: err}
}
