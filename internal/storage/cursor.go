package storage

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// cursor is the decoded form of a List pagination token: the
// (created_at, id) of the last row of the previous page, used to seek
// past it with a keyset WHERE clause rather than an OFFSET.
type cursor struct {
	CreatedAt time.Time
	ID        string
}

// EncodeCursor produces the opaque token returned as ListPage.NextCursor.
func EncodeCursor(createdAt time.Time, id string) string {
	raw := fmt.Sprintf("%d|%s", createdAt.UnixNano(), id)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a token produced by EncodeCursor. An empty token
// decodes to the zero cursor, meaning "start from the beginning".
func DecodeCursor(token string) (cursor, error) {
	if token == "" {
		return cursor{}, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return cursor{}, fmt.Errorf("storage: invalid cursor: %w", err)
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 {
		return cursor{}, fmt.Errorf("storage: invalid cursor: malformed token")
	}
	nanos, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return cursor{}, fmt.Errorf("storage: invalid cursor: %w", err)
	}
	return cursor{CreatedAt: time.Unix(0, nanos), ID: parts[1]}, nil
}
