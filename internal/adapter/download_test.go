package adapter

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/welldanyogia/couchkit/internal/errors"
	"github.com/welldanyogia/couchkit/tests/mocks"
)

func newFakeCouch(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/docs/t1/report.pdf", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("ETag", `"md5-abc"`)
		w.Write([]byte("%PDF-1.4"))
	})
	mux.HandleFunc("/docs/t1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"_id": "t1",
			"_rev": "4-b",
			"title": "quarterly",
			"_attachments": {
				"report.pdf": {"content_type": "application/pdf", "revpos": 2, "digest": "md5-abc", "length": 8, "stub": true}
			}
		}`))
	})
	mux.HandleFunc("/docs", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/docs/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestDownload_StreamsBody(t *testing.T) {
	server := newFakeCouch(t)
	a := newTestAdapter(server.URL, new(mocks.MockIndex))

	dl, err := a.Download(context.Background(), "t1/report.pdf")
	require.NoError(t, err)
	defer dl.Body.Close()

	body, err := io.ReadAll(dl.Body)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(body))
	assert.Equal(t, "application/pdf", dl.ContentType)
	assert.Equal(t, "md5-abc", dl.Digest)
	assert.Equal(t, int64(8), dl.Length)
}

func TestDownload_NotFound(t *testing.T) {
	server := newFakeCouch(t)
	a := newTestAdapter(server.URL, new(mocks.MockIndex))

	dl, err := a.Download(context.Background(), "t1/missing.pdf")

	assert.ErrorIs(t, err, apperrors.ErrAttachmentNotFound)
	assert.Nil(t, dl)
}

func TestFetchDocument_ReadsStubs(t *testing.T) {
	server := newFakeCouch(t)
	a := newTestAdapter(server.URL, new(mocks.MockIndex))

	env, err := a.FetchDocument(context.Background(), "t1")
	require.NoError(t, err)

	assert.Equal(t, "t1", env.ID)
	assert.Equal(t, "4-b", env.Rev)
	require.Contains(t, env.Attachments, "report.pdf")
	stub := env.Attachments["report.pdf"]
	assert.Equal(t, "application/pdf", stub.ContentType)
	assert.Equal(t, int64(8), stub.Length)
	assert.Equal(t, 2, stub.Revpos)
	assert.True(t, stub.Stub)
}

func TestFetchDocument_NotFound(t *testing.T) {
	server := newFakeCouch(t)
	a := newTestAdapter(server.URL, new(mocks.MockIndex))

	_, err := a.FetchDocument(context.Background(), "nope")
	assert.ErrorIs(t, err, apperrors.ErrDocumentNotFound)
}

func TestFetchDocument_ServerError(t *testing.T) {
	server := newFakeCouch(t)
	a := newTestAdapter(server.URL, new(mocks.MockIndex))

	_, err := a.FetchDocument(context.Background(), "broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestPing(t *testing.T) {
	server := newFakeCouch(t)

	assert.NoError(t, newTestAdapter(server.URL, new(mocks.MockIndex)).Ping(context.Background()))

	missing := New(Config{BaseURL: server.URL, Database: "absent"}, nil, new(mocks.MockIndex), nil)
	err := missing.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestPing_TransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	err := newTestAdapter(server.URL, new(mocks.MockIndex)).Ping(context.Background())

	assert.ErrorIs(t, err, apperrors.ErrTransport)
}
