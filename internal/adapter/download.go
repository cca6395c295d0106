package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/welldanyogia/couchkit/internal/errors"
)

// Download is an attachment body streamed from the database.
// The caller must close Body.
type Download struct {
	Body        io.ReadCloser
	ContentType string
	Length      int64
	Digest      string
}

// AttachmentStub is an entry of a document's _attachments map
type AttachmentStub struct {
	ContentType string `json:"content_type"`
	Revpos      int    `json:"revpos"`
	Digest      string `json:"digest"`
	Length      int64  `json:"length"`
	Stub        bool   `json:"stub"`
}

// DocumentEnvelope is the part of a document the index cares about
type DocumentEnvelope struct {
	ID          string                    `json:"_id"`
	Rev         string                    `json:"_rev"`
	Attachments map[string]AttachmentStub `json:"_attachments"`
}

// Download streams the attachment id (docID/name) from the database.
func (a *AttachmentAdapter) Download(ctx context.Context, id string) (*Download, error) {
	req, err := a.newRequest(ctx, http.MethodGet, a.resourceURL(id, nil), nil)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrTransport, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", apperrors.ErrAttachmentNotFound, id)
	case resp.StatusCode != http.StatusOK:
		resp.Body.Close()
		return nil, fmt.Errorf("failed to download attachment %s: status %d", id, resp.StatusCode)
	}

	return &Download{
		Body:        resp.Body,
		ContentType: resp.Header.Get("Content-Type"),
		Length:      resp.ContentLength,
		Digest:      strings.Trim(resp.Header.Get("ETag"), `"`),
	}, nil
}

// FetchDocument reads a document's revision and attachment stubs.
func (a *AttachmentAdapter) FetchDocument(ctx context.Context, docID string) (*DocumentEnvelope, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	req, err := a.newRequest(ctx, http.MethodGet, a.resourceURL(docID, nil), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrTransport, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", apperrors.ErrDocumentNotFound, docID)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("failed to fetch document %s: status %d", docID, resp.StatusCode)
	}

	var env DocumentEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode document %s: %w", docID, err)
	}
	if env.ID == "" {
		env.ID = docID
	}
	return &env, nil
}
