package handlers

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/couchkit/internal/adapter"
	"github.com/welldanyogia/couchkit/internal/api/response"
	apperrors "github.com/welldanyogia/couchkit/internal/errors"
	"github.com/welldanyogia/couchkit/internal/models"
	"github.com/welldanyogia/couchkit/internal/validator"
)

// DocumentFetcher reads documents from CouchDB
type DocumentFetcher interface {
	FetchDocument(ctx context.Context, docID string) (*adapter.DocumentEnvelope, error)
	Database() string
}

// DocumentIndexer writes a fetched document into the local index
type DocumentIndexer interface {
	IndexDocument(ctx context.Context, db, docType string, env *adapter.DocumentEnvelope) ([]models.Attachment, error)
}

// TypeRegistry reports which document types can be resolved
type TypeRegistry interface {
	Has(docType string) bool
}

// IndexResponse summarizes an indexed document
type IndexResponse struct {
	DocID       string              `json:"doc_id"`
	DocType     string              `json:"doc_type"`
	Rev         string              `json:"rev"`
	Attachments []models.Attachment `json:"attachments"`
}

// DocumentHandler handles document indexing requests
type DocumentHandler struct {
	fetcher DocumentFetcher
	indexer DocumentIndexer
	types   TypeRegistry
	logger  *slog.Logger
}

// NewDocumentHandler creates a new DocumentHandler
func NewDocumentHandler(fetcher DocumentFetcher, indexer DocumentIndexer, types TypeRegistry, log *slog.Logger) *DocumentHandler {
	if log == nil {
		log = slog.Default()
	}
	return &DocumentHandler{fetcher: fetcher, indexer: indexer, types: types, logger: log}
}

// Index handles POST /api/documents/:doc_type/:id/index
func (h *DocumentHandler) Index(c echo.Context) error {
	docType := c.Param("doc_type")
	if err := validator.ValidateDocType(docType); err != nil {
		return response.BadRequest(c, "invalid doc_type")
	}
	if !h.types.Has(docType) {
		return response.Error(c, apperrors.NewAppError(apperrors.ErrUnknownDocType,
			"unknown document type: "+docType, apperrors.CodeUnknownDocType))
	}

	docID, err := url.PathUnescape(c.Param("id"))
	if err != nil || validator.ValidateID(docID) != nil {
		return response.BadRequest(c, "invalid document ID")
	}

	ctx := c.Request().Context()
	env, err := h.fetcher.FetchDocument(ctx, docID)
	if err != nil {
		if apperrors.GetErrorCode(err) == apperrors.CodeInternalError {
			h.logger.Error("failed to fetch document", slog.String("doc_id", docID), slog.Any("error", err))
			return response.InternalError(c, "failed to fetch document")
		}
		return response.Error(c, err)
	}

	indexed, err := h.indexer.IndexDocument(ctx, h.fetcher.Database(), docType, env)
	if err != nil {
		h.logger.Error("failed to index document", slog.String("doc_id", docID), slog.Any("error", err))
		return response.InternalError(c, "failed to index document")
	}

	return response.SuccessWithMessage(c, IndexResponse{
		DocID:       env.ID,
		DocType:     docType,
		Rev:         env.Rev,
		Attachments: indexed,
	}, "document indexed")
}
