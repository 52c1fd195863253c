package pagination

import (
	"errors"
	"fmt"
	"testing"
)

func TestCursorRoundTrip(t *testing.T) {
	for _, offset := range []int{0, 1, 49, 50, 1000} {
		cursor := EncodeCursor(offset)
		if cursor == "" {
			t.Fatalf("Expected non-empty cursor for offset %d", offset)
		}

		decoded, err := DecodeCursor(cursor)
		if err != nil {
			t.Fatalf("DecodeCursor(%q) failed: %v", cursor, err)
		}
		if decoded != offset {
			t.Errorf("Expected offset %d, got %d", offset, decoded)
		}
	}
}

func TestDecodeCursorEmpty(t *testing.T) {
	offset, err := DecodeCursor("")
	if err != nil {
		t.Fatalf("Expected empty cursor to decode cleanly, got error: %v", err)
	}
	if offset != 0 {
		t.Errorf("Expected empty cursor to mean offset 0, got %d", offset)
	}
}

func TestDecodeCursorInvalid(t *testing.T) {
	cases := []struct {
		name   string
		cursor string
	}{
		{"not base64", "!!!not-base64!!!"},
		{"not json", "bm90LWpzb24="},     // base64("not-json")
		{"negative offset", "eyJvZmZzZXQiOi01fQ=="}, // base64(`{"offset":-5}`)
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeCursor(tc.cursor)
			if err == nil {
				t.Fatalf("Expected error for cursor %q", tc.cursor)
			}
			if !errors.Is(err, ErrInvalidCursor) {
				t.Errorf("Expected ErrInvalidCursor, got %v", err)
			}
		})
	}
}

func TestClampLimit(t *testing.T) {
	cases := []struct {
		in   int
		want int
	}{
		{0, DefaultLimit},
		{-10, DefaultLimit},
		{1, 1},
		{75, 75},
		{MaxLimit, MaxLimit},
		{MaxLimit + 1, MaxLimit},
	}

	for _, tc := range cases {
		if got := ClampLimit(tc.in); got != tc.want {
			t.Errorf("ClampLimit(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestPage(t *testing.T) {
	items := make([]string, 120)
	for i := range items {
		items[i] = fmt.Sprintf("item-%03d", i)
	}

	// First page with the default limit
	page, next, err := Page(items, "", 0)
	if err != nil {
		t.Fatalf("Page failed: %v", err)
	}
	if len(page) != DefaultLimit {
		t.Errorf("Expected %d items on first page, got %d", DefaultLimit, len(page))
	}
	if page[0] != "item-000" {
		t.Errorf("Expected first item 'item-000', got %q", page[0])
	}
	if next == "" {
		t.Error("Expected a next cursor for a partial listing")
	}

	// Second page continues where the first left off
	page, next, err = Page(items, next, 0)
	if err != nil {
		t.Fatalf("Page failed: %v", err)
	}
	if page[0] != "item-050" {
		t.Errorf("Expected second page to start at 'item-050', got %q", page[0])
	}

	// Final page is short and has no next cursor
	page, next, err = Page(items, next, 0)
	if err != nil {
		t.Fatalf("Page failed: %v", err)
	}
	if len(page) != 20 {
		t.Errorf("Expected 20 items on final page, got %d", len(page))
	}
	if next != "" {
		t.Errorf("Expected empty next cursor on final page, got %q", next)
	}
}

func TestPageWalkCollectsEverything(t *testing.T) {
	items := make([]int, 273)
	for i := range items {
		items[i] = i
	}

	var collected []int
	cursor := ""
	for {
		page, next, err := Page(items, cursor, 100)
		if err != nil {
			t.Fatalf("Page failed: %v", err)
		}
		collected = append(collected, page...)
		if next == "" {
			break
		}
		cursor = next
	}

	if len(collected) != len(items) {
		t.Fatalf("Expected %d items collected, got %d", len(items), len(collected))
	}
	for i, v := range collected {
		if v != i {
			t.Fatalf("Expected item %d at position %d, got %d", i, i, v)
		}
	}
}

func TestPagePastEnd(t *testing.T) {
	items := []string{"a", "b", "c"}

	// A cursor past the end yields an empty page, not an error. Entries
	// can be removed between page fetches.
	page, next, err := Page(items, EncodeCursor(10), 0)
	if err != nil {
		t.Fatalf("Expected no error for cursor past end, got: %v", err)
	}
	if len(page) != 0 {
		t.Errorf("Expected empty page, got %d items", len(page))
	}
	if next != "" {
		t.Errorf("Expected empty next cursor, got %q", next)
	}
}

func TestPageInvalidCursor(t *testing.T) {
	items := []string{"a", "b", "c"}

	_, _, err := Page(items, "garbage!", 0)
	if !errors.Is(err, ErrInvalidCursor) {
		t.Errorf("Expected ErrInvalidCursor, got %v", err)
	}
}

func TestPageLimitCapped(t *testing.T) {
	items := make([]int, MaxLimit+50)

	page, next, err := Page(items, "", MaxLimit+50)
	if err != nil {
		t.Fatalf("Page failed: %v", err)
	}
	if len(page) != MaxLimit {
		t.Errorf("Expected page capped at %d items, got %d", MaxLimit, len(page))
	}
	if next == "" {
		t.Error("Expected next cursor when the cap truncates the listing")
	}
}
