package revision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequence_ParsesLeadingInteger(t *testing.T) {
	tests := []struct {
		rev      string
		expected int
	}{
		{"1-x", 1},
		{"5-abc", 5},
		{"12-967a00dff5e02add41819138abb3284d", 12},
		{"7", 7},
	}

	for _, tt := range tests {
		t.Run(tt.rev, func(t *testing.T) {
			seq, err := Sequence(tt.rev)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, seq)
		})
	}
}

func TestSequence_Malformed(t *testing.T) {
	for _, rev := range []string{"", "abc-1", "-3", "x"} {
		t.Run(rev, func(t *testing.T) {
			_, err := Sequence(rev)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestCompare_OrdersByLeadingInteger(t *testing.T) {
	cmp, err := Compare("12-xyz", "5-abc")
	require.NoError(t, err)
	assert.Equal(t, 1, cmp)

	cmp, err = Compare("5-abc", "12-xyz")
	require.NoError(t, err)
	assert.Equal(t, -1, cmp)

	// Opaque suffix is ignored
	cmp, err = Compare("3-a", "3-b")
	require.NoError(t, err)
	assert.Equal(t, 0, cmp)
}

func TestCompare_Malformed(t *testing.T) {
	_, err := Compare("bad", "1-a")
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = Compare("1-a", "bad")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestNewer(t *testing.T) {
	newer, err := Newer("4-b", "3-a")
	require.NoError(t, err)
	assert.True(t, newer)

	newer, err = Newer("2-b", "3-a")
	require.NoError(t, err)
	assert.False(t, newer)

	newer, err = Newer("3-b", "3-a")
	require.NoError(t, err)
	assert.False(t, newer)
}

func TestNewer_EmptyCurrent(t *testing.T) {
	for _, rev := range []string{"1-a", "0-x"} {
		newer, err := Newer(rev, "")
		require.NoError(t, err)
		assert.True(t, newer, rev)
	}

	_, err := Newer("x-a", "")
	assert.ErrorIs(t, err, ErrMalformed)
}
