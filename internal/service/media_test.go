// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"strings"
	"testing"

	"github.com/olegiv/pipol-go/internal/model"
)

func testJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newTestService(t *testing.T) *MediaService {
	t.Helper()
	return NewMediaService(t.TempDir(), 10<<20)
}

func TestSaveUploadImage(t *testing.T) {
	s := newTestService(t)
	data := testJPEG(t, 300, 200)

	item, err := s.SaveUpload(bytes.NewReader(data), "party.jpg", int64(len(data)))
	if err != nil {
		t.Fatalf("SaveUpload: %v", err)
	}
	if item.Type != model.MediaTypeImage {
		t.Errorf("Type = %q, want image", item.Type)
	}
	if item.MIME != model.MimeTypeJPEG {
		t.Errorf("MIME = %q", item.MIME)
	}
	if item.Status != model.MediaStatusNew {
		t.Errorf("Status = %q, want new", item.Status)
	}
	if !strings.HasPrefix(item.URL, "/uploads/originals/"+item.ID+"/") {
		t.Errorf("URL = %q", item.URL)
	}
	if _, err := os.Stat(s.uploadDir + "/originals/" + item.ID); err != nil {
		t.Errorf("original directory missing: %v", err)
	}
}

func TestSaveUploadRejections(t *testing.T) {
	s := NewMediaService(t.TempDir(), 1024)

	t.Run("too large by header", func(t *testing.T) {
		_, err := s.SaveUpload(bytes.NewReader(nil), "x.jpg", 2048)
		if !errors.Is(err, ErrFileTooLarge) {
			t.Errorf("err = %v, want ErrFileTooLarge", err)
		}
	})

	t.Run("too large by body", func(t *testing.T) {
		_, err := s.SaveUpload(bytes.NewReader(make([]byte, 4096)), "x.jpg", 100)
		if !errors.Is(err, ErrFileTooLarge) {
			t.Errorf("err = %v, want ErrFileTooLarge", err)
		}
	})

	t.Run("unsupported type", func(t *testing.T) {
		_, err := s.SaveUpload(strings.NewReader("%PDF-1.4 not media"), "doc.pdf", 20)
		if !errors.Is(err, ErrUnsupportedMedia) {
			t.Errorf("err = %v, want ErrUnsupportedMedia", err)
		}
	})
}

func TestReconcileNewAndExisting(t *testing.T) {
	s := newTestService(t)

	current := model.MediaList{
		{ID: "a", URL: "/uploads/originals/a/1.jpg", Type: model.MediaTypeImage, IsMain: true, SortOrder: 0},
		{ID: "b", URL: "/uploads/originals/b/2.jpg", Type: model.MediaTypeImage, SortOrder: 1},
	}
	uploaded := []model.MediaItem{
		{ID: "c", URL: "/uploads/originals/c/3.jpg", Type: model.MediaTypeImage, Status: model.MediaStatusNew},
	}
	submitted := []model.MediaItem{
		{ID: "a", Status: model.MediaStatusExisting, IsMain: true},
		{Status: model.MediaStatusNew},
		{ID: "b", Status: model.MediaStatusDeleted},
	}

	final, deleted, err := s.Reconcile(current, submitted, uploaded)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(final) != 2 {
		t.Fatalf("final length = %d, want 2", len(final))
	}
	if final[0].ID != "a" || !final[0].IsMain {
		t.Errorf("final[0] = %+v, want main item a", final[0])
	}
	if final[1].ID != "c" || final[1].Status != "" {
		t.Errorf("final[1] = %+v, want untagged item c", final[1])
	}
	if final[1].SortOrder != 1 {
		t.Errorf("SortOrder = %d, want 1", final[1].SortOrder)
	}
	if len(deleted) != 1 || deleted[0] != "b" {
		t.Errorf("deleted = %v, want [b]", deleted)
	}
}

func TestReconcileDeletedMainPromotesNext(t *testing.T) {
	s := newTestService(t)

	current := model.MediaList{
		{ID: "a", URL: "/a.jpg", Type: model.MediaTypeImage, IsMain: true, SortOrder: 0},
		{ID: "b", URL: "/b.jpg", Type: model.MediaTypeImage, SortOrder: 1},
	}
	submitted := []model.MediaItem{
		{ID: "a", Status: model.MediaStatusDeleted},
		{ID: "b", Status: model.MediaStatusExisting},
	}

	final, deleted, err := s.Reconcile(current, submitted, nil)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(final) != 1 || !final[0].IsMain {
		t.Errorf("final = %+v, want b promoted to main", final)
	}
	if len(deleted) != 1 || deleted[0] != "a" {
		t.Errorf("deleted = %v", deleted)
	}
}

func TestReconcileOmittedItemsDeleted(t *testing.T) {
	s := newTestService(t)

	current := model.MediaList{
		{ID: "a", URL: "/a.jpg", Type: model.MediaTypeImage, IsMain: true, SortOrder: 0},
		{ID: "b", URL: "/b.jpg", Type: model.MediaTypeImage, SortOrder: 1},
	}
	// b is simply left out of the submitted list rather than tagged
	// deleted; its files must still be scheduled for removal.
	submitted := []model.MediaItem{
		{ID: "a", Status: model.MediaStatusExisting, IsMain: true},
	}

	final, deleted, err := s.Reconcile(current, submitted, nil)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(final) != 1 || final[0].ID != "a" {
		t.Fatalf("final = %+v, want [a]", final)
	}
	if len(deleted) != 1 || deleted[0] != "b" {
		t.Errorf("deleted = %v, want [b]", deleted)
	}
}

func TestReconcileFilesOnlyKeepsStoredList(t *testing.T) {
	s := newTestService(t)

	current := model.MediaList{
		{ID: "a", URL: "/a.jpg", Type: model.MediaTypeImage, IsMain: true, SortOrder: 0},
	}
	uploaded := []model.MediaItem{
		{ID: "u1", URL: "/u1.jpg", Type: model.MediaTypeImage, Status: model.MediaStatusNew},
	}

	final, deleted, err := s.Reconcile(current, nil, uploaded)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(final) != 2 || final[0].ID != "a" || final[1].ID != "u1" {
		t.Fatalf("final = %+v, want [a u1]", final)
	}
	if !final[0].IsMain {
		t.Error("stored main item lost its flag")
	}
	if len(deleted) != 0 {
		t.Errorf("deleted = %v, want empty", deleted)
	}
}

func TestReconcileNewEntryMainFlag(t *testing.T) {
	s := newTestService(t)

	current := model.MediaList{
		{ID: "a", URL: "/a.jpg", Type: model.MediaTypeImage, IsMain: true, SortOrder: 0},
	}
	uploaded := []model.MediaItem{
		{ID: "u1", URL: "/u1.jpg", Type: model.MediaTypeImage, Status: model.MediaStatusNew},
	}
	// The submitted list decides which item is main, not the upload.
	submitted := []model.MediaItem{
		{ID: "a", Status: model.MediaStatusExisting},
		{Status: model.MediaStatusNew, IsMain: true},
	}

	final, _, err := s.Reconcile(current, submitted, uploaded)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(final) != 2 {
		t.Fatalf("final length = %d, want 2", len(final))
	}
	if final[0].IsMain {
		t.Errorf("final[0] = %+v, want demoted", final[0])
	}
	if final[1].ID != "u1" || !final[1].IsMain {
		t.Errorf("final[1] = %+v, want u1 as main", final[1])
	}
}

func TestReconcileErrors(t *testing.T) {
	s := newTestService(t)

	t.Run("unknown existing", func(t *testing.T) {
		_, _, err := s.Reconcile(nil, []model.MediaItem{{ID: "ghost", Status: model.MediaStatusExisting}}, nil)
		if !errors.Is(err, ErrUnknownMediaItem) {
			t.Errorf("err = %v, want ErrUnknownMediaItem", err)
		}
	})

	t.Run("unknown deleted", func(t *testing.T) {
		_, _, err := s.Reconcile(nil, []model.MediaItem{{ID: "ghost", Status: model.MediaStatusDeleted}}, nil)
		if !errors.Is(err, ErrUnknownMediaItem) {
			t.Errorf("err = %v, want ErrUnknownMediaItem", err)
		}
	})

	t.Run("new without upload", func(t *testing.T) {
		_, _, err := s.Reconcile(nil, []model.MediaItem{{Status: model.MediaStatusNew}}, nil)
		if !errors.Is(err, ErrMissingUploadSlot) {
			t.Errorf("err = %v, want ErrMissingUploadSlot", err)
		}
	})
}

func TestReconcileExtraUploadsAppended(t *testing.T) {
	s := newTestService(t)

	uploaded := []model.MediaItem{
		{ID: "u1", URL: "/u1.jpg", Type: model.MediaTypeImage, Status: model.MediaStatusNew},
		{ID: "u2", URL: "/u2.jpg", Type: model.MediaTypeImage, Status: model.MediaStatusNew},
	}

	// No submitted list: both uploads become the new collection.
	final, deleted, err := s.Reconcile(nil, nil, uploaded)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(final) != 2 {
		t.Fatalf("final length = %d, want 2", len(final))
	}
	if !final[0].IsMain {
		t.Error("first upload not promoted to main")
	}
	if len(deleted) != 0 {
		t.Errorf("deleted = %v, want empty", deleted)
	}
}

func TestSaveAvatar(t *testing.T) {
	s := newTestService(t)
	data := testJPEG(t, 400, 400)

	url, err := s.SaveAvatar(bytes.NewReader(data), "me.jpg", int64(len(data)))
	if err != nil {
		t.Fatalf("SaveAvatar: %v", err)
	}
	if !strings.Contains(url, "/"+model.VariantThumbnail+"/") {
		t.Errorf("avatar URL = %q, want thumbnail variant", url)
	}
}
