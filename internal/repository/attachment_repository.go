package repository

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/welldanyogia/couchkit/internal/errors"
	"github.com/welldanyogia/couchkit/internal/models"
	"github.com/welldanyogia/couchkit/internal/serializer"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AttachmentRepository is the local attachment index
type AttachmentRepository interface {
	Upsert(ctx context.Context, attachment *models.Attachment) error
	GetByID(ctx context.Context, id string) (*models.Attachment, error)
	ListByDocument(ctx context.Context, docID string) ([]models.Attachment, error)
	Get(ctx context.Context, id string) (serializer.Hash, error)
}

// attachmentRepository implements AttachmentRepository using GORM
type attachmentRepository struct {
	db *gorm.DB
}

// NewAttachmentRepository creates a new AttachmentRepository instance
func NewAttachmentRepository(db *gorm.DB) AttachmentRepository {
	return &attachmentRepository{db: db}
}

// Upsert inserts the attachment or overwrites the row with the same id
func (r *attachmentRepository) Upsert(ctx context.Context, attachment *models.Attachment) error {
	if attachment.ID == "" {
		return fmt.Errorf("%w: attachment id is required", ErrInvalidInput)
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(attachment)
	if result.Error != nil {
		return fmt.Errorf("failed to upsert attachment: %w", result.Error)
	}
	return nil
}

// GetByID retrieves an attachment by its ID
func (r *attachmentRepository) GetByID(ctx context.Context, id string) (*models.Attachment, error) {
	var attachment models.Attachment
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&attachment)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get attachment by ID: %w", result.Error)
	}
	return &attachment, nil
}

// ListByDocument retrieves all attachments of a document
func (r *attachmentRepository) ListByDocument(ctx context.Context, docID string) ([]models.Attachment, error) {
	var attachments []models.Attachment
	result := r.db.WithContext(ctx).Where("doc_id = ?", docID).Order("id").Find(&attachments)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", result.Error)
	}
	return attachments, nil
}

// Get returns the attachment's metadata envelope as the adapter consumes it
func (r *attachmentRepository) Get(ctx context.Context, id string) (serializer.Hash, error) {
	attachment, err := r.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrAttachmentNotFound, id)
		}
		return nil, err
	}

	hash := serializer.Hash{
		"_id":          attachment.ID,
		"doc_id":       attachment.DocID,
		"doc_type":     attachment.DocType,
		"content_type": attachment.ContentType,
		"length":       attachment.Length,
		"file_name":    attachment.FileName,
		"db":           attachment.DB,
	}
	if attachment.Rev != "" {
		hash["rev"] = attachment.Rev
	}
	if attachment.Digest != "" {
		hash["digest"] = attachment.Digest
	}
	return hash, nil
}
