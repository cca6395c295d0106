// Package validator checks identifiers before they reach CouchDB URLs or the
// local index.
package validator

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	ErrEmptyInput       = errors.New("input cannot be empty")
	ErrInputTooLong     = errors.New("input exceeds maximum length")
	ErrInvalidCharacter = errors.New("input contains invalid characters")
	ErrInvalidDatabase  = errors.New("invalid database name")
	ErrInvalidDocType   = errors.New("invalid document type")
	ErrInvalidRevision  = errors.New("invalid revision token")
	ErrReservedID       = errors.New("identifier uses a reserved prefix")
	ErrTooManyIDs       = errors.New("too many ids requested")
)

const (
	// MaxDatabaseName matches CouchDB's database name limit
	MaxDatabaseName = 238

	// MaxIDLength bounds document and attachment ids
	MaxIDLength = 512

	// MaxIDsPerRequest bounds a bulk lookup
	MaxIDsPerRequest = 100
)

var (
	// CouchDB database names: lowercase letter first, then a-z 0-9 _ $ ( ) + - /
	databaseRegex = regexp.MustCompile(`^[a-z][a-z0-9_$()+/-]*$`)

	docTypeRegex = regexp.MustCompile(`^[a-z][a-z0-9_-]{0,63}$`)

	// "<seq>-<hash>"
	revisionRegex = regexp.MustCompile(`^[0-9]+-[0-9A-Za-z]+$`)
)

// ValidateDatabaseName validates a CouchDB database name
func ValidateDatabaseName(name string) error {
	if name == "" {
		return ErrEmptyInput
	}
	if len(name) > MaxDatabaseName {
		return ErrInputTooLong
	}
	if !databaseRegex.MatchString(name) {
		return ErrInvalidDatabase
	}
	return nil
}

// ValidateDocType validates a document-type identifier used by the registry
func ValidateDocType(docType string) error {
	if docType == "" {
		return ErrEmptyInput
	}
	if !docTypeRegex.MatchString(docType) {
		return ErrInvalidDocType
	}
	return nil
}

// ValidateID validates a document or attachment id. Ids starting with an
// underscore are reserved by CouchDB.
func ValidateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrEmptyInput
	}
	if utf8.RuneCountInString(id) > MaxIDLength {
		return ErrInputTooLong
	}
	if strings.HasPrefix(id, "_") {
		return ErrReservedID
	}
	if hasControl(id) || strings.Contains(id, "..") {
		return ErrInvalidCharacter
	}
	return nil
}

// ValidateRevision validates a revision token. The empty token is allowed
// since a first upload has no revision.
func ValidateRevision(rev string) error {
	if rev == "" {
		return nil
	}
	if !revisionRegex.MatchString(rev) {
		return ErrInvalidRevision
	}
	return nil
}

// ParseIDList splits a comma separated id list, dropping blanks and
// duplicates while keeping the caller's order.
func ParseIDList(raw string) ([]string, error) {
	seen := make(map[string]bool)
	ids := make([]string, 0)

	for _, part := range strings.Split(raw, ",") {
		id := strings.TrimSpace(part)
		if id == "" || seen[id] {
			continue
		}
		if err := ValidateID(id); err != nil {
			return nil, err
		}
		seen[id] = true
		ids = append(ids, id)
	}

	if len(ids) == 0 {
		return nil, ErrEmptyInput
	}
	if len(ids) > MaxIDsPerRequest {
		return nil, ErrTooManyIDs
	}
	return ids, nil
}

// SanitizeFilename removes dangerous characters from filename.
// Prevents path traversal and removes control characters.
func SanitizeFilename(filename string) string {
	filename = strings.ReplaceAll(filename, "/", "_")
	filename = strings.ReplaceAll(filename, "\\", "_")
	filename = strings.ReplaceAll(filename, "..", "_")

	filename = strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, filename)

	filename = strings.TrimSpace(filename)

	// Common filesystem limit
	if utf8.RuneCountInString(filename) > 255 {
		filename = string([]rune(filename)[:255])
	}

	if filename == "" {
		return "unnamed"
	}

	return filename
}

func hasControl(s string) bool {
	for _, r := range s {
		if r < 32 || r == 127 {
			return true
		}
	}
	return false
}
