// Package revision orders CouchDB revision tokens of the form "<seq>-<hash>".
package revision

import (
	"fmt"
	"strconv"
	"strings"

	apperrors "github.com/welldanyogia/couchkit/internal/errors"
)

// ErrMalformed is returned when a token's leading segment is not an integer
var ErrMalformed = apperrors.ErrMalformedRevision

// Sequence returns the leading integer of a revision token.
func Sequence(rev string) (int, error) {
	seq, _, _ := strings.Cut(rev, "-")
	n, err := strconv.Atoi(seq)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, rev)
	}
	return n, nil
}

// Compare orders two tokens by their leading integer only.
// The result is -1, 0 or 1 like strings.Compare.
func Compare(a, b string) (int, error) {
	sa, err := Sequence(a)
	if err != nil {
		return 0, err
	}
	sb, err := Sequence(b)
	if err != nil {
		return 0, err
	}
	switch {
	case sa < sb:
		return -1, nil
	case sa > sb:
		return 1, nil
	default:
		return 0, nil
	}
}

// Newer reports whether candidate strictly supersedes current.
// Any well-formed candidate supersedes an empty current revision,
// including one with sequence 0.
func Newer(candidate, current string) (bool, error) {
	cand, err := Sequence(candidate)
	if err != nil {
		return false, err
	}
	if current == "" {
		return true, nil
	}
	cur, err := Sequence(current)
	if err != nil {
		return false, err
	}
	return cand > cur, nil
}
