package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	apperrors "github.com/welldanyogia/couchkit/internal/errors"
	"github.com/welldanyogia/couchkit/internal/models"
	"github.com/welldanyogia/couchkit/internal/serializer"
)

// Outcome is the terminal state of an upload
type Outcome int

const (
	// OutcomeSucceeded means the database answered 200 or 201
	OutcomeSucceeded Outcome = iota + 1
	// OutcomeRejected means the database answered with any other status
	OutcomeRejected
	// OutcomeTransportError means no response was received
	OutcomeTransportError
)

// String returns the outcome name
func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeRejected:
		return "rejected"
	case OutcomeTransportError:
		return "transport_error"
	default:
		return "unknown"
	}
}

// UploadResult is delivered once per Create call
type UploadResult struct {
	Outcome Outcome
	Status  int
	Hash    serializer.Hash
	Err     error
}

// maxErrorBody caps how much of a rejected response is kept for the error
const maxErrorBody = 1024

// Create uploads record's payload with PUT /{db}/{id}?rev={rev}. The request
// runs in its own goroutine; the returned channel yields exactly one result
// and is then closed. Successful uploads are acknowledged with
// store.DidSaveRecord, everything else with store.DidFailRecord.
func (a *AttachmentAdapter) Create(ctx context.Context, store Store, record *models.Attachment) <-chan UploadResult {
	results := make(chan UploadResult, 1)

	go func() {
		defer close(results)

		result := a.upload(ctx, record)
		if result.Outcome == OutcomeSucceeded {
			if err := store.DidSaveRecord(ctx, record, result.Hash); err != nil {
				a.logger.Error("failed to acknowledge saved attachment",
					slog.String("attachment_id", record.ID),
					slog.Any("error", err))
				result.Err = fmt.Errorf("failed to acknowledge save: %w", err)
			}
		} else {
			a.logger.Warn("attachment upload failed",
				slog.String("attachment_id", record.ID),
				slog.String("outcome", result.Outcome.String()),
				slog.Int("status", result.Status),
				slog.Any("error", result.Err))
			store.DidFailRecord(ctx, record, result.Err)
		}

		results <- result
	}()

	return results
}

func (a *AttachmentAdapter) upload(ctx context.Context, record *models.Attachment) UploadResult {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	if record.File == nil {
		return UploadResult{
			Outcome: OutcomeTransportError,
			Err:     fmt.Errorf("%w: attachment %s has no payload", apperrors.ErrInvalidInput, record.ID),
		}
	}

	query := url.Values{}
	if record.Rev != "" {
		query.Set("rev", record.Rev)
	}

	total := payloadLength(record)
	body := record.File
	if record.View != nil {
		record.View.StartUpload()
		body = &progressReader{r: body, total: total, view: record.View}
	}

	req, err := a.newRequest(ctx, http.MethodPut, a.resourceURL(record.ID, query), body)
	if err != nil {
		return UploadResult{Outcome: OutcomeTransportError, Err: fmt.Errorf("%w: %w", apperrors.ErrTransport, err)}
	}
	contentType := record.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	if total > 0 {
		req.ContentLength = total
	}

	a.logger.Debug("uploading attachment",
		slog.String("attachment_id", record.ID),
		slog.String("db", a.cfg.Database),
		slog.String("rev", record.Rev),
		slog.Int64("bytes", total))

	resp, err := a.client.Do(req)
	if err != nil {
		return UploadResult{Outcome: OutcomeTransportError, Err: fmt.Errorf("%w: %w", apperrors.ErrTransport, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return UploadResult{
			Outcome: OutcomeRejected,
			Status:  resp.StatusCode,
			Err:     &apperrors.UploadError{Status: resp.StatusCode, Body: string(snippet)},
		}
	}

	var data serializer.Hash
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return UploadResult{
			Outcome: OutcomeRejected,
			Status:  resp.StatusCode,
			Err:     fmt.Errorf("%w: invalid response body: %w", apperrors.ErrUploadRejected, err),
		}
	}

	return UploadResult{
		Outcome: OutcomeSucceeded,
		Status:  resp.StatusCode,
		Hash:    a.mergeSaved(record, data),
	}
}

// mergeSaved lays the response over the serialized record. CouchDB answers
// an attachment PUT with the owning document's id and new rev. The rev is
// mirrored to _rev; the id is left alone since _id must stay the
// attachment id.
func (a *AttachmentAdapter) mergeSaved(record *models.Attachment, data serializer.Hash) serializer.Hash {
	if data == nil {
		data = serializer.Hash{}
	}
	data["doc_type"] = record.DocType
	data["doc_id"] = record.DocID
	if _, ok := data["_rev"]; !ok {
		if rev, ok := data["rev"]; ok {
			data["_rev"] = rev
		}
	}

	merged := a.serializer.Serialize(record, serializer.Options{IncludeID: true})
	for k, v := range data {
		merged[k] = v
	}
	return merged
}

func payloadLength(record *models.Attachment) int64 {
	if record.Length > 0 {
		return record.Length
	}
	if l, ok := record.File.(interface{ Len() int }); ok {
		return int64(l.Len())
	}
	return 0
}

// progressReader reports the share of the payload read so far
type progressReader struct {
	r      io.Reader
	total  int64
	loaded int64
	view   models.UploadView
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.loaded += int64(n)
		if p.total > 0 {
			p.view.UpdateUpload(float64(p.loaded) / float64(p.total) * 100)
		}
	}
	return n, err
}
