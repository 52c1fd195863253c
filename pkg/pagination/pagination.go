// Package pagination implements the opaque cursor scheme used by the
// list operations. A cursor encodes an offset into a stable snapshot of
// the listing; callers treat it as an opaque string.
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	// DefaultLimit is the default page size for paginated results
	DefaultLimit = 50

	// MaxLimit is the maximum allowed page size for paginated results
	MaxLimit = 200
)

// ErrInvalidCursor is returned when a pagination cursor is malformed
var ErrInvalidCursor = errors.New("invalid pagination cursor format")

type cursorData struct {
	Offset int `json:"offset"`
}

// EncodeCursor encodes an offset as an opaque cursor string.
func EncodeCursor(offset int) string {
	data, _ := json.Marshal(cursorData{Offset: offset})
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeCursor decodes a cursor back into an offset. An empty cursor
// means the first page.
func DecodeCursor(cursor string) (int, error) {
	if cursor == "" {
		return 0, nil
	}

	raw, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}

	var data cursorData
	if err := json.Unmarshal(raw, &data); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}

	if data.Offset < 0 {
		return 0, fmt.Errorf("%w: negative offset", ErrInvalidCursor)
	}

	return data.Offset, nil
}

// ClampLimit normalizes a page size: non-positive values fall back to
// DefaultLimit and oversized values are capped at MaxLimit.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Page returns the window of items selected by cursor plus the cursor
// for the following page. The next cursor is empty when the listing is
// exhausted. An offset past the end of the snapshot yields an empty
// page rather than an error, which keeps cursors valid across
// concurrent removals.
func Page[T any](items []T, cursor string, limit int) ([]T, string, error) {
	offset, err := DecodeCursor(cursor)
	if err != nil {
		return nil, "", err
	}

	limit = ClampLimit(limit)

	if offset >= len(items) {
		return []T{}, "", nil
	}

	end := offset + limit
	if end > len(items) {
		end = len(items)
	}

	page := items[offset:end]

	next := ""
	if end < len(items) {
		next = EncodeCursor(end)
	}

	return page, next, nil
}
