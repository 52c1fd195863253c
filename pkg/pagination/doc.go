// Package pagination implements the opaque cursor scheme used by the
// list operations.
//
// Cursors are base64-encoded JSON carrying an offset into a stable
// snapshot of the listing. Clients treat them as opaque tokens: fetch a
// page, and if NextCursor is non-empty pass it back unchanged for the
// next page. It provides:
//
//   - Cursor handling: EncodeCursor and DecodeCursor round-trip offsets
//   - Page slicing: Page cuts one page out of a snapshot and mints the
//     follow-up cursor
//   - Limit clamping: ClampLimit keeps page sizes within [1, MaxLimit]
//
// # Serving pages
//
// A list handler snapshots its items, then lets Page do the slicing:
//
//	items, next, err := pagination.Page(snapshot, params.Cursor, pageSize)
//	if err != nil {
//		return nil, mcperrors.NewInvalidParams(err.Error())
//	}
//	return &protocol.ListToolsResult{Tools: items, NextCursor: next}, nil
//
// A malformed or negative cursor fails with an error wrapping
// ErrInvalidCursor; a cursor past the end of the snapshot yields an empty
// final page, so a listing that shrank between requests still terminates
// cleanly.
//
// # Consuming pages
//
// Clients loop until the cursor runs out:
//
//	var all []protocol.Tool
//	cursor := ""
//	for {
//		page, err := c.ListTools(ctx, cursor)
//		if err != nil {
//			return nil, err
//		}
//		all = append(all, page.Tools...)
//		if page.NextCursor == "" {
//			break
//		}
//		cursor = page.NextCursor
//	}
package pagination
