package repository

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/welldanyogia/couchkit/internal/errors"
	"github.com/welldanyogia/couchkit/internal/models"
	"github.com/welldanyogia/couchkit/internal/registry"
	"github.com/welldanyogia/couchkit/internal/revision"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DocumentRepository stores the known revision of attachment owners
type DocumentRepository interface {
	Upsert(ctx context.Context, document *models.Document) error
	GetByID(ctx context.Context, id string) (*models.Document, error)
	AdvanceRevision(ctx context.Context, id, rev string) (string, error)
	Loader(docType string) registry.Loader
}

// documentRepository implements DocumentRepository using GORM
type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository creates a new DocumentRepository instance
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

// Upsert inserts the document or overwrites the row with the same id
func (r *documentRepository) Upsert(ctx context.Context, document *models.Document) error {
	if document.ID == "" || document.Type == "" {
		return fmt.Errorf("%w: document id and type are required", ErrInvalidInput)
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(document)
	if result.Error != nil {
		return fmt.Errorf("failed to upsert document: %w", result.Error)
	}
	return nil
}

// GetByID retrieves a document by its ID
func (r *documentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	var document models.Document
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&document)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get document by ID: %w", result.Error)
	}
	return &document, nil
}

// maxRevisionAttempts bounds the compare-and-set loop in AdvanceRevision
const maxRevisionAttempts = 5

// AdvanceRevision moves the stored revision of a document to rev when rev is
// strictly newer, and returns the revision stored afterwards. The write only
// applies if the row still holds the revision it was compared against, so a
// concurrent writer with a newer revision is never overwritten.
func (r *documentRepository) AdvanceRevision(ctx context.Context, id, rev string) (string, error) {
	for attempt := 0; attempt < maxRevisionAttempts; attempt++ {
		current, err := r.GetByID(ctx, id)
		if err != nil {
			return "", err
		}

		newer, err := revision.Newer(rev, current.Rev)
		if err != nil {
			return "", err
		}
		if !newer {
			return current.Rev, nil
		}

		result := r.db.WithContext(ctx).Model(&models.Document{}).
			Where("id = ? AND rev = ?", id, current.Rev).
			Update("rev", rev)
		if result.Error != nil {
			return "", fmt.Errorf("failed to advance document revision: %w", result.Error)
		}
		if result.RowsAffected == 1 {
			return rev, nil
		}
	}
	return "", fmt.Errorf("%w: revision of %s kept changing", ErrConflict, id)
}

// Loader returns a registry loader for documents of docType
func (r *documentRepository) Loader(docType string) registry.Loader {
	return registry.LoaderFunc(func(ctx context.Context, id string) (*models.Document, error) {
		document, err := r.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, fmt.Errorf("%w: %s/%s", apperrors.ErrDocumentNotFound, docType, id)
			}
			return nil, err
		}
		if document.Type != docType {
			return nil, fmt.Errorf("%w: %s is a %s, not a %s", apperrors.ErrDocumentNotFound, id, document.Type, docType)
		}
		return document, nil
	})
}
