// Package adapter moves attachment records between the host store, the local
// attachment index and CouchDB.
package adapter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/welldanyogia/couchkit/internal/errors"
	"github.com/welldanyogia/couchkit/internal/models"
	"github.com/welldanyogia/couchkit/internal/serializer"
)

// Store is the host data layer that materializes records handed back by the adapter
type Store interface {
	DidFindRecord(ctx context.Context, hash serializer.Hash, id string) error
	LoadMany(ctx context.Context, hashes []serializer.Hash) error
	DidSaveRecord(ctx context.Context, record *models.Attachment, hash serializer.Hash) error
	DidFailRecord(ctx context.Context, record *models.Attachment, err error)
}

// Index looks up attachment metadata without touching the network
type Index interface {
	Get(ctx context.Context, id string) (serializer.Hash, error)
}

// RecordAdapter performs I/O for one record type
type RecordAdapter interface {
	Find(ctx context.Context, store Store, id string) error
	FindMany(ctx context.Context, store Store, ids []string) error
	Create(ctx context.Context, store Store, record *models.Attachment) <-chan UploadResult
	Update(ctx context.Context, store Store, record *models.Attachment) error
	Delete(ctx context.Context, store Store, record *models.Attachment) error
}

// Config holds the connection settings of an AttachmentAdapter
type Config struct {
	BaseURL  string
	Database string
	Username string
	Password string

	// Timeout bounds a single request. Zero means no timeout.
	Timeout time.Duration

	HTTPClient *http.Client
}

// AttachmentAdapter implements RecordAdapter for attachments
type AttachmentAdapter struct {
	cfg        Config
	client     *http.Client
	serializer *serializer.AttachmentSerializer
	index      Index
	logger     *slog.Logger
}

var _ RecordAdapter = (*AttachmentAdapter)(nil)

// New creates a new AttachmentAdapter
func New(cfg Config, ser *serializer.AttachmentSerializer, index Index, logger *slog.Logger) *AttachmentAdapter {
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &AttachmentAdapter{
		cfg:        cfg,
		client:     client,
		serializer: ser,
		index:      index,
		logger:     logger,
	}
}

// Database returns the configured database name
func (a *AttachmentAdapter) Database() string {
	return a.cfg.Database
}

// Find loads one record from the local index into the store
func (a *AttachmentAdapter) Find(ctx context.Context, store Store, id string) error {
	hash, err := a.index.Get(ctx, id)
	if err != nil {
		return err
	}
	return store.DidFindRecord(ctx, hash, id)
}

// FindMany loads several records from the local index, stamping each with
// the adapter's database before handing them to the store in one batch.
func (a *AttachmentAdapter) FindMany(ctx context.Context, store Store, ids []string) error {
	hashes := make([]serializer.Hash, 0, len(ids))
	for _, id := range ids {
		hash, err := a.index.Get(ctx, id)
		if err != nil {
			return err
		}
		hash["db"] = a.cfg.Database
		hashes = append(hashes, hash)
	}
	return store.LoadMany(ctx, hashes)
}

// Update is a no-op: attachments are immutable once created
func (a *AttachmentAdapter) Update(ctx context.Context, store Store, record *models.Attachment) error {
	return nil
}

// Delete is a no-op: attachments cannot be removed through this adapter
func (a *AttachmentAdapter) Delete(ctx context.Context, store Store, record *models.Attachment) error {
	return nil
}

// resourceURL builds {base}/{db}/{id}. Slashes inside id separate the
// document id from the attachment name and are kept.
func (a *AttachmentAdapter) resourceURL(id string, query url.Values) string {
	segments := strings.Split(id, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}

	u := fmt.Sprintf("%s/%s/%s", a.cfg.BaseURL, url.PathEscape(a.cfg.Database), strings.Join(segments, "/"))
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (a *AttachmentAdapter) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", method, err)
	}
	if a.cfg.Username != "" {
		req.SetBasicAuth(a.cfg.Username, a.cfg.Password)
	}
	return req, nil
}

func (a *AttachmentAdapter) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, a.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}

// Ping checks that the configured database exists and is reachable
func (a *AttachmentAdapter) Ping(ctx context.Context) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	target := fmt.Sprintf("%s/%s", a.cfg.BaseURL, url.PathEscape(a.cfg.Database))
	req, err := a.newRequest(ctx, http.MethodHead, target, nil)
	if err != nil {
		return err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrTransport, err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("database %q answered status %d", a.cfg.Database, resp.StatusCode)
	}
	return nil
}
