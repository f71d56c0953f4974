// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"testing"
)

func item(id string, main bool) MediaItem {
	return MediaItem{ID: id, URL: "/uploads/originals/" + id + ".jpg", Type: MediaTypeImage, IsMain: main}
}

func mainID(t *testing.T, list MediaList) string {
	t.Helper()
	m, ok := Main(list)
	if !ok {
		t.Fatal("expected a main item")
	}
	return m.ID
}

func countMain(list MediaList) int {
	n := 0
	for _, m := range list {
		if m.IsMain {
			n++
		}
	}
	return n
}

func TestAddFirstItemBecomesMain(t *testing.T) {
	var list MediaList

	list = Add(list, item("a", false))
	if got := mainID(t, list); got != "a" {
		t.Errorf("main = %q, want %q", got, "a")
	}

	list = Add(list, item("b", false))
	if got := mainID(t, list); got != "a" {
		t.Errorf("main after second add = %q, want %q", got, "a")
	}
	if countMain(list) != 1 {
		t.Errorf("main count = %d, want 1", countMain(list))
	}
}

func TestAddSkipsInvalidForMain(t *testing.T) {
	var list MediaList
	list = Add(list, MediaItem{ID: "x", Type: "document"})
	if countMain(list) != 0 {
		t.Errorf("invalid item promoted to main")
	}

	list = Add(list, item("a", false))
	if got := mainID(t, list); got != "a" {
		t.Errorf("main = %q, want %q", got, "a")
	}
}

func TestRemoveMainPromotesNext(t *testing.T) {
	list := MediaList{item("a", true), item("b", false), item("c", false)}

	list = Remove(list, "a")
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	if got := mainID(t, list); got != "b" {
		t.Errorf("main = %q, want %q", got, "b")
	}
	for i, m := range list {
		if m.SortOrder != i {
			t.Errorf("item %d sort order = %d, want %d", i, m.SortOrder, i)
		}
	}
}

func TestRemoveUnknownID(t *testing.T) {
	list := MediaList{item("a", true)}
	list = Remove(list, "missing")
	if len(list) != 1 || list[0].ID != "a" {
		t.Errorf("list changed by removing unknown id: %+v", list)
	}
}

func TestPromoteMain(t *testing.T) {
	list := MediaList{item("a", true), item("b", false), item("c", false)}

	list = PromoteMain(list, "c")
	if got := mainID(t, list); got != "c" {
		t.Errorf("main = %q, want %q", got, "c")
	}
	if countMain(list) != 1 {
		t.Errorf("main count = %d, want 1", countMain(list))
	}

	// Unknown id leaves the list untouched.
	list = PromoteMain(list, "nope")
	if got := mainID(t, list); got != "c" {
		t.Errorf("main after unknown promote = %q, want %q", got, "c")
	}
}

func TestReorder(t *testing.T) {
	tests := []struct {
		name string
		ids  []string
		want []string
	}{
		{"full order", []string{"c", "a", "b"}, []string{"c", "a", "b"}},
		{"unknown ids ignored", []string{"z", "b", "y", "a"}, []string{"b", "a", "c"}},
		{"missing ids keep tail order", []string{"b"}, []string{"b", "a", "c"}},
		{"empty keeps order", nil, []string{"a", "b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list := MediaList{item("a", true), item("b", false), item("c", false)}
			got := Reorder(list, tt.ids)

			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("pos %d = %q, want %q", i, got[i].ID, id)
				}
				if got[i].SortOrder != i {
					t.Errorf("pos %d sort order = %d, want %d", i, got[i].SortOrder, i)
				}
			}
			// Reorder never changes which item is main.
			if got := mainID(t, got); got != "a" {
				t.Errorf("main = %q, want %q", got, "a")
			}
		})
	}
}

func TestRepair(t *testing.T) {
	t.Run("duplicate mains keeps first", func(t *testing.T) {
		list := MediaList{item("a", true), item("b", true), item("c", true)}
		got := Repair(list)
		if countMain(got) != 1 {
			t.Fatalf("main count = %d, want 1", countMain(got))
		}
		if got[0].ID != "a" || !got[0].IsMain {
			t.Errorf("first main not preserved: %+v", got)
		}
	})

	t.Run("no main promotes first valid", func(t *testing.T) {
		deleted := item("a", false)
		deleted.Status = MediaStatusDeleted
		list := MediaList{deleted, item("b", false), item("c", false)}
		got := Repair(list)
		if id := mainID(t, got); id != "b" {
			t.Errorf("main = %q, want %q", id, "b")
		}
	})

	t.Run("main on deleted item moves", func(t *testing.T) {
		deleted := item("a", true)
		deleted.Status = MediaStatusDeleted
		list := MediaList{deleted, item("b", false)}
		got := Repair(list)
		if id := mainID(t, got); id != "b" {
			t.Errorf("main = %q, want %q", id, "b")
		}
	})

	t.Run("empty list", func(t *testing.T) {
		got := Repair(nil)
		if len(got) != 0 {
			t.Errorf("len = %d, want 0", len(got))
		}
	})

	t.Run("sort order resequenced", func(t *testing.T) {
		a, b := item("a", true), item("b", false)
		a.SortOrder, b.SortOrder = 7, 3
		got := Repair(MediaList{a, b})
		if got[0].SortOrder != 0 || got[1].SortOrder != 1 {
			t.Errorf("sort orders = %d,%d, want 0,1", got[0].SortOrder, got[1].SortOrder)
		}
	})
}

func TestMediaTypeForMime(t *testing.T) {
	tests := []struct {
		mime string
		want string
	}{
		{MimeTypeJPEG, MediaTypeImage},
		{MimeTypeWebP, MediaTypeImage},
		{MimeTypeMP4, MediaTypeVideo},
		{MimeTypeMOV, MediaTypeVideo},
		{"application/pdf", ""},
		{"image/tiff", ""},
	}
	for _, tt := range tests {
		if got := MediaTypeForMime(tt.mime); got != tt.want {
			t.Errorf("MediaTypeForMime(%q) = %q, want %q", tt.mime, got, tt.want)
		}
	}
}
