// Package serializer converts attachment records to and from the JSON
// metadata envelope CouchDB exchanges for them.
package serializer

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/welldanyogia/couchkit/internal/models"
	"github.com/welldanyogia/couchkit/internal/revision"
)

// Hash is a decoded JSON object
type Hash map[string]any

// Options controls Serialize
type Options struct {
	IncludeID bool
}

// Resolver finds the document that owns an attachment
type Resolver interface {
	Resolve(ctx context.Context, docType, id string) (*models.Document, error)
}

// AttachmentSerializer maps attachment records to wire hashes
type AttachmentSerializer struct {
	resolver Resolver
}

// New creates an AttachmentSerializer resolving owners through resolver
func New(resolver Resolver) *AttachmentSerializer {
	return &AttachmentSerializer{resolver: resolver}
}

// Materialize copies the hash onto record and resolves its owning document.
func (s *AttachmentSerializer) Materialize(ctx context.Context, record *models.Attachment, hash Hash) error {
	if id, ok := ExtractID(hash); ok {
		record.ID = id
	}
	if v := stringField(hash, "content_type"); v != "" {
		record.ContentType = v
	}
	if v, ok := int64Field(hash, "length"); ok {
		record.Length = v
	}
	if v := stringField(hash, "file_name"); v != "" {
		record.FileName = v
	}
	if v := stringField(hash, "db"); v != "" {
		record.DB = v
	}
	if v := stringField(hash, "doc_id"); v != "" {
		record.DocID = v
	}
	if v := stringField(hash, "doc_type"); v != "" {
		record.DocType = v
	}
	if v := stringField(hash, "digest"); v != "" {
		record.Digest = v
	}
	if rev := hashRevision(hash); rev != "" {
		record.Rev = rev
	}

	return s.ResolveAndReconcile(ctx, record, hash)
}

// ResolveAndReconcile attaches the owning document named by the hash's
// doc_type and doc_id to record. When the hash carries a strictly newer
// revision than the document, the document's revision is advanced in place.
func (s *AttachmentSerializer) ResolveAndReconcile(ctx context.Context, record *models.Attachment, hash Hash) error {
	rev := hashRevision(hash)
	docType := stringField(hash, "doc_type")
	docID := stringField(hash, "doc_id")

	document, err := s.resolver.Resolve(ctx, docType, docID)
	if err != nil {
		return fmt.Errorf("failed to resolve document %s/%s: %w", docType, docID, err)
	}
	record.Document = document

	if rev == "" || document.Rev == rev {
		return nil
	}
	newer, err := revision.Newer(rev, document.Rev)
	if err != nil {
		return err
	}
	if newer {
		document.Rev = rev
	}
	return nil
}

// Serialize renders record as a wire hash.
func (s *AttachmentSerializer) Serialize(record *models.Attachment, opts Options) Hash {
	json := Hash{
		"content_type": record.ContentType,
		"length":       record.Length,
		"file_name":    record.FileName,
		"db":           record.DB,
		"doc_id":       record.DocID,
		"doc_type":     record.DocType,
	}
	if opts.IncludeID {
		AddID(json, record.ID)
	}
	AddRevision(json, record, opts)
	return json
}

// ParseLeadingRevisionInteger returns the numeric sequence of a revision token.
func (s *AttachmentSerializer) ParseLeadingRevisionInteger(rev string) (int, error) {
	return revision.Sequence(rev)
}

// ExtractID returns hash._id, falling back to hash.id.
func ExtractID(hash Hash) (string, bool) {
	if id := stringField(hash, "_id"); id != "" {
		return id, true
	}
	if id := stringField(hash, "id"); id != "" {
		return id, true
	}
	return "", false
}

// AddID sets json._id
func AddID(json Hash, id string) {
	json["_id"] = id
}

// AddRevision sets json._rev when ids are requested and the record has a revision.
func AddRevision(json Hash, record *models.Attachment, opts Options) {
	if opts.IncludeID && record.Rev != "" {
		json["_rev"] = record.Rev
	}
}

func hashRevision(hash Hash) string {
	if rev := stringField(hash, "_rev"); rev != "" {
		return rev
	}
	return stringField(hash, "rev")
}

func stringField(hash Hash, key string) string {
	v, _ := hash[key].(string)
	return v
}

func int64Field(hash Hash, key string) (int64, bool) {
	switch v := hash[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}
