package chat

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// CursorKind tags what the cursor value points at. The wire form is opaque;
// callers only ever see the encoded string.
type CursorKind string

const (
	CursorTimestamp CursorKind = "ts"
	CursorID        CursorKind = "id"
)

// Cursor is the resume point for a paginated listing. Both listings order by
// (time, id) descending, so a full cursor carries both; the id disambiguates
// rows sharing a millisecond.
type Cursor struct {
	Kind CursorKind
	At   time.Time
	ID   string
}

// Encode renders the cursor as an opaque token.
func (c Cursor) Encode() string {
	var raw string
	switch c.Kind {
	case CursorID:
		raw = string(CursorID) + "|" + c.ID
	default:
		raw = fmt.Sprintf("%s|%s|%s", CursorTimestamp, c.At.UTC().Format(time.RFC3339Nano), c.ID)
	}
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a token produced by Encode. An empty token yields a nil
// cursor; anything unparseable is an invalid request.
func DecodeCursor(token string) (*Cursor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, InvalidRequest("malformed cursor")
	}
	parts := strings.Split(string(data), "|")
	switch CursorKind(parts[0]) {
	case CursorID:
		if len(parts) != 2 || parts[1] == "" {
			return nil, InvalidRequest("malformed cursor")
		}
		return &Cursor{Kind: CursorID, ID: parts[1]}, nil
	case CursorTimestamp:
		if len(parts) != 3 {
			return nil, InvalidRequest("malformed cursor")
		}
		at, err := time.Parse(time.RFC3339Nano, parts[1])
		if err != nil {
			return nil, InvalidRequest("malformed cursor")
		}
		return &Cursor{Kind: CursorTimestamp, At: at, ID: parts[2]}, nil
	default:
		return nil, InvalidRequest("malformed cursor")
	}
}

// Before reports whether a row at (at, id) sits strictly after the cursor in
// descending (time, id) order, i.e. whether the row belongs on the next page.
func (c *Cursor) Before(at time.Time, id string) bool {
	if c == nil {
		return true
	}
	if c.Kind == CursorID {
		return id < c.ID
	}
	if at.Before(c.At) {
		return true
	}
	if at.Equal(c.At) {
		return id < c.ID
	}
	return false
}
