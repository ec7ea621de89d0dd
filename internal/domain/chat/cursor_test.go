package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 26, 53, 589793000, time.UTC)
	original := Cursor{Kind: CursorTimestamp, At: at, ID: "msg-42"}

	decoded, err := DecodeCursor(original.Encode())
	require.NoError(t, err)
	require.NotNil(t, decoded)
	assert.Equal(t, CursorTimestamp, decoded.Kind)
	assert.True(t, decoded.At.Equal(at))
	assert.Equal(t, "msg-42", decoded.ID)
}

func TestCursorIDRoundTrip(t *testing.T) {
	decoded, err := DecodeCursor(Cursor{Kind: CursorID, ID: "conv-7"}.Encode())
	require.NoError(t, err)
	require.NotNil(t, decoded)
	assert.Equal(t, CursorID, decoded.Kind)
	assert.Equal(t, "conv-7", decoded.ID)
}

func TestDecodeCursorEmpty(t *testing.T) {
	decoded, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Nil(t, decoded)
}

func TestDecodeCursorMalformed(t *testing.T) {
	for _, token := range []string{"not base64!!", "bm9wZQ", "dHN8YmFkLXRpbWV8aWQ"} {
		_, err := DecodeCursor(token)
		require.Error(t, err, token)
		assert.True(t, IsKind(err, KindInvalidRequest))
	}
}

func TestCursorBefore(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	cursor := &Cursor{Kind: CursorTimestamp, At: at, ID: "m"}

	assert.True(t, cursor.Before(at.Add(-time.Second), "z"), "older rows pass")
	assert.False(t, cursor.Before(at.Add(time.Second), "a"), "newer rows do not")
	assert.True(t, cursor.Before(at, "a"), "ties break on id")
	assert.False(t, cursor.Before(at, "m"), "the cursor row itself is excluded")
	assert.False(t, cursor.Before(at, "z"))
}

func TestNilCursorMatchesEverything(t *testing.T) {
	var cursor *Cursor
	assert.True(t, cursor.Before(time.Now(), "any"))
}
