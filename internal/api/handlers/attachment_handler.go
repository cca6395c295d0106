package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/couchkit/internal/adapter"
	"github.com/welldanyogia/couchkit/internal/api/response"
	apperrors "github.com/welldanyogia/couchkit/internal/errors"
	"github.com/welldanyogia/couchkit/internal/logger"
	"github.com/welldanyogia/couchkit/internal/models"
	"github.com/welldanyogia/couchkit/internal/storage"
	"github.com/welldanyogia/couchkit/internal/validator"
)

// AttachmentAdapter is the adapter surface the handlers drive
type AttachmentAdapter interface {
	adapter.RecordAdapter
	Download(ctx context.Context, id string) (*adapter.Download, error)
	Database() string
}

// RecordStore is the host store the adapter hands records to
type RecordStore interface {
	adapter.Store
	Record(id string) (*models.Attachment, bool)
}

// ViewSource hands out progress views for uploads
type ViewSource interface {
	View(attachmentID string) models.UploadView
}

// AttachmentResponse is an attachment with its resolved owning document
type AttachmentResponse struct {
	*models.Attachment
	Document *models.Document `json:"document,omitempty"`
}

func newAttachmentResponse(record *models.Attachment) AttachmentResponse {
	return AttachmentResponse{Attachment: record, Document: record.Document}
}

// AttachmentHandler handles attachment-related HTTP requests
type AttachmentHandler struct {
	adapter  AttachmentAdapter
	store    RecordStore
	staging  storage.StagingArea
	views    ViewSource
	types    TypeRegistry
	security *logger.SecurityLogger
	logger   *slog.Logger
}

// NewAttachmentHandler creates a new AttachmentHandler
func NewAttachmentHandler(
	attachmentAdapter AttachmentAdapter,
	store RecordStore,
	staging storage.StagingArea,
	views ViewSource,
	types TypeRegistry,
	security *logger.SecurityLogger,
	log *slog.Logger,
) *AttachmentHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AttachmentHandler{
		adapter:  attachmentAdapter,
		store:    store,
		staging:  staging,
		views:    views,
		types:    types,
		security: security,
		logger:   log,
	}
}

// attachmentID reads :doc_id and :name and joins them into an attachment id
func attachmentID(c echo.Context) (docID, name, id string, err error) {
	if docID, err = url.PathUnescape(c.Param("doc_id")); err != nil {
		return "", "", "", err
	}
	if name, err = url.PathUnescape(c.Param("name")); err != nil {
		return "", "", "", err
	}
	if err = validator.ValidateID(docID); err != nil {
		return "", "", "", err
	}
	if name == "" || validator.SanitizeFilename(name) != name {
		return "", "", "", validator.ErrInvalidCharacter
	}
	return docID, name, docID + "/" + name, nil
}

// Get handles GET /api/attachments/:doc_id/:name
func (h *AttachmentHandler) Get(c echo.Context) error {
	_, _, id, err := attachmentID(c)
	if err != nil {
		return response.BadRequest(c, "invalid attachment ID")
	}

	if err := h.adapter.Find(c.Request().Context(), h.store, id); err != nil {
		return h.fail(c, "find", id, err)
	}

	record, ok := h.store.Record(id)
	if !ok {
		return response.InternalError(c, "attachment was not materialized")
	}
	return response.Success(c, newAttachmentResponse(record))
}

// List handles GET /api/attachments?ids=a/x.txt,b/y.png
func (h *AttachmentHandler) List(c echo.Context) error {
	ids, err := validator.ParseIDList(c.QueryParam("ids"))
	if err != nil {
		return response.BadRequest(c, fmt.Sprintf("invalid ids: %v", err))
	}

	if err := h.adapter.FindMany(c.Request().Context(), h.store, ids); err != nil {
		return h.fail(c, "find many", "", err)
	}

	records := make([]AttachmentResponse, 0, len(ids))
	for _, id := range ids {
		if record, ok := h.store.Record(id); ok {
			records = append(records, newAttachmentResponse(record))
		}
	}
	return response.Success(c, records)
}

// Upload handles PUT /api/attachments/:doc_id/:name?doc_type=&rev=
func (h *AttachmentHandler) Upload(c echo.Context) error {
	docID, name, id, err := attachmentID(c)
	if err != nil {
		return response.BadRequest(c, "invalid attachment ID")
	}

	docType := c.QueryParam("doc_type")
	if err := validator.ValidateDocType(docType); err != nil {
		return response.BadRequest(c, "invalid doc_type")
	}
	// the owner could never be resolved, so the save would fail after the bytes land
	if !h.types.Has(docType) {
		return response.Error(c, apperrors.NewAppError(apperrors.ErrUnknownDocType,
			"unknown document type: "+docType, apperrors.CodeUnknownDocType))
	}
	rev := c.QueryParam("rev")
	if err := validator.ValidateRevision(rev); err != nil {
		return response.BadRequest(c, "invalid rev")
	}

	staged, err := h.staging.Stage(name, c.Request().Body)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrBlockedExt), errors.Is(err, storage.ErrFileTooLarge):
			if h.security != nil {
				h.security.BlockedUpload(c.RealIP(), id, err.Error())
			}
			if errors.Is(err, storage.ErrFileTooLarge) {
				return c.JSON(http.StatusRequestEntityTooLarge, response.ErrorResponse{
					Success: false,
					Error:   err.Error(),
					Code:    apperrors.CodeInvalidInput,
				})
			}
			return response.BadRequest(c, err.Error())
		default:
			h.logger.Error("failed to stage upload", slog.String("attachment_id", id), slog.Any("error", err))
			return response.InternalError(c, "failed to stage upload")
		}
	}
	defer func() {
		if err := h.staging.Remove(staged.Path); err != nil {
			h.logger.Warn("failed to remove staged upload", slog.String("path", staged.Path), slog.Any("error", err))
		}
	}()

	payload, err := h.staging.Open(staged.Path)
	if err != nil {
		return response.InternalError(c, "failed to read staged upload")
	}
	defer payload.Close()

	contentType := c.Request().Header.Get(echo.HeaderContentType)
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}

	record := &models.Attachment{
		ID:          id,
		DocID:       docID,
		DocType:     docType,
		ContentType: contentType,
		Length:      staged.Size,
		FileName:    name,
		DB:          h.adapter.Database(),
		Rev:         rev,
		File:        payload,
	}
	if h.views != nil {
		record.View = h.views.View(id)
	}

	result := <-h.adapter.Create(c.Request().Context(), h.store, record)

	if result.Outcome != adapter.OutcomeSucceeded {
		return response.Error(c, result.Err)
	}
	if result.Err != nil {
		// CouchDB has the bytes; only the local index missed the update
		h.logger.Warn("upload stored but not indexed", slog.String("attachment_id", id), slog.Any("error", result.Err))
	}
	return response.Created(c, result.Hash)
}

// Download handles GET /api/attachments/:doc_id/:name/download
func (h *AttachmentHandler) Download(c echo.Context) error {
	_, name, id, err := attachmentID(c)
	if err != nil {
		return response.BadRequest(c, "invalid attachment ID")
	}

	dl, err := h.adapter.Download(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, "download", id, err)
	}
	defer dl.Body.Close()

	header := c.Response().Header()
	contentType := dl.ContentType
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}
	header.Set(echo.HeaderContentType, contentType)
	header.Set(echo.HeaderContentDisposition, contentDisposition(name))
	if dl.Length > 0 {
		header.Set(echo.HeaderContentLength, strconv.FormatInt(dl.Length, 10))
	}
	if dl.Digest != "" {
		header.Set("ETag", strconv.Quote(dl.Digest))
	}
	c.Response().WriteHeader(http.StatusOK)

	if _, err := io.Copy(c.Response().Writer, dl.Body); err != nil {
		// Headers are already sent
		h.logger.Warn("download interrupted", slog.String("attachment_id", id), slog.Any("error", err))
	}
	return nil
}

// contentDisposition quotes or RFC 2231 encodes name as needed
func contentDisposition(name string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": name}); v != "" {
		return v
	}
	return "attachment"
}

func (h *AttachmentHandler) fail(c echo.Context, op, id string, err error) error {
	if apperrors.GetErrorCode(err) == apperrors.CodeInternalError {
		h.logger.Error("attachment "+op+" failed", slog.String("attachment_id", id), slog.Any("error", err))
		return response.InternalError(c, "failed to "+op+" attachment")
	}
	return response.Error(c, err)
}
