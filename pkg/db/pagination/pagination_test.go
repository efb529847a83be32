package pagination

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	token, err := EncodeCursor(Cursor{ID: 1948276401923477504})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	// Tokens travel inside query strings unescaped.
	require.Equal(t, token, url.QueryEscape(token))

	cursor, err := DecodeCursor(token)
	require.NoError(t, err)
	require.Equal(t, int64(1948276401923477504), cursor.ID)
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	_, err := DecodeCursor("not-a-token")
	require.Error(t, err)

	_, err = DecodeCursor("")
	require.Error(t, err)
}
