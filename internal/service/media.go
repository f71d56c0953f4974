// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service implements business logic above the store layer.
package service

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/olegiv/pipol-go/internal/imaging"
	"github.com/olegiv/pipol-go/internal/model"
)

// Upload errors recognized by the API layer.
var (
	ErrFileTooLarge      = errors.New("media: file exceeds size limit")
	ErrUnsupportedMedia  = errors.New("media: unsupported file type")
	ErrUnknownMediaItem  = errors.New("media: submitted item does not belong to the event")
	ErrMissingUploadSlot = errors.New("media: more new items than uploaded files")
)

// MediaService stores uploaded media and reconciles submitted media
// lists against the stored state.
type MediaService struct {
	processor *imaging.Processor
	uploadDir string
	maxBytes  int64
}

// NewMediaService creates a media service rooted at uploadDir.
func NewMediaService(uploadDir string, maxBytes int64) *MediaService {
	return &MediaService{
		processor: imaging.NewProcessor(uploadDir),
		uploadDir: uploadDir,
		maxBytes:  maxBytes,
	}
}

// SaveUpload persists one uploaded file and returns the media item
// describing it. Images are re-encoded and get resized variants; videos
// are stored as-is.
func (s *MediaService) SaveUpload(r io.Reader, filename string, size int64) (model.MediaItem, error) {
	if size > s.maxBytes {
		return model.MediaItem{}, ErrFileTooLarge
	}

	// Cap the read as well; Content-Length can lie.
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return model.MediaItem{}, fmt.Errorf("reading upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return model.MediaItem{}, ErrFileTooLarge
	}

	mimeType := s.processor.DetectMimeType(data)
	if mimeType == "application/octet-stream" {
		// Sniffing failed; videos like MOV often need the extension.
		if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); byExt != "" {
			mimeType = byExt
		}
	}
	if idx := strings.Index(mimeType, ";"); idx != -1 {
		mimeType = mimeType[:idx]
	}

	mediaType := model.MediaTypeForMime(mimeType)
	if mediaType == "" {
		return model.MediaItem{}, ErrUnsupportedMedia
	}

	id := uuid.NewString()
	safeName := safeUploadName(filename, mimeType)

	switch mediaType {
	case model.MediaTypeImage:
		result, err := s.processor.ProcessImage(bytes.NewReader(data), id, safeName)
		if err != nil {
			return model.MediaItem{}, fmt.Errorf("processing image: %w", err)
		}
		if _, err := s.processor.CreateAllVariants(result.FilePath, id, safeName); err != nil {
			slog.Warn("image variants failed", "id", id, "error", err)
		}
		mimeType = result.MimeType
	case model.MediaTypeVideo:
		dir := filepath.Join(s.uploadDir, "originals", id)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return model.MediaItem{}, fmt.Errorf("creating video directory: %w", err)
		}
		if err := os.WriteFile(filepath.Join(dir, safeName), data, 0644); err != nil {
			return model.MediaItem{}, fmt.Errorf("saving video: %w", err)
		}
	}

	return model.MediaItem{
		ID:     id,
		URL:    "/uploads/originals/" + id + "/" + safeName,
		Type:   mediaType,
		MIME:   mimeType,
		Status: model.MediaStatusNew,
	}, nil
}

// VariantURL returns the URL of a named variant for an item, falling
// back to the original when the variant was skipped for small sources.
func (s *MediaService) VariantURL(item model.MediaItem, variant string) string {
	if item.Type != model.MediaTypeImage {
		return item.URL
	}
	name := filepath.Base(item.URL)
	path := filepath.Join(s.uploadDir, variant, item.ID, name)
	if _, err := os.Stat(path); err != nil {
		return item.URL
	}
	return "/uploads/" + variant + "/" + item.ID + "/" + name
}

// Reconcile merges a submitted media list into the stored one.
//
// Submitted items are tagged: "new" items consume uploaded files in
// order, "existing" items must reference stored ones, and "deleted"
// items are removed. Stored items absent from a submitted list are
// removed as well — the list is the entire desired state. The returned
// list is repaired and untagged; deletedIDs names files to remove once
// the surrounding transaction has committed.
func (s *MediaService) Reconcile(current model.MediaList, submitted []model.MediaItem, uploaded []model.MediaItem) (model.MediaList, []string, error) {
	byID := make(map[string]model.MediaItem, len(current))
	for _, m := range current {
		byID[m.ID] = m
	}

	var out model.MediaList
	var deletedIDs []string
	referenced := make(map[string]bool, len(current))
	nextUpload := 0

	// A nil submitted list means the client sent only files: keep the
	// stored collection and append the uploads to it. A non-nil list is
	// the entire desired state.
	if submitted == nil {
		for _, m := range current {
			m.Status = ""
			referenced[m.ID] = true
			out = append(out, m)
		}
	}

	for _, sub := range submitted {
		switch sub.Status {
		case model.MediaStatusNew:
			if nextUpload >= len(uploaded) {
				return nil, nil, ErrMissingUploadSlot
			}
			item := uploaded[nextUpload]
			nextUpload++
			// The submitted entry's main flag wins over anything the
			// upload carried.
			item.IsMain = sub.IsMain
			item.Status = ""
			out = append(out, item)
		case model.MediaStatusExisting, "":
			stored, ok := byID[sub.ID]
			if !ok {
				return nil, nil, ErrUnknownMediaItem
			}
			stored.IsMain = sub.IsMain
			stored.Status = ""
			referenced[stored.ID] = true
			out = append(out, stored)
		case model.MediaStatusDeleted:
			stored, ok := byID[sub.ID]
			if !ok {
				return nil, nil, ErrUnknownMediaItem
			}
			referenced[stored.ID] = true
			deletedIDs = append(deletedIDs, stored.ID)
		default:
			return nil, nil, fmt.Errorf("media: unknown status %q", sub.Status)
		}
	}

	// Unused uploads are still part of the event.
	for ; nextUpload < len(uploaded); nextUpload++ {
		item := uploaded[nextUpload]
		item.Status = ""
		out = append(out, item)
	}

	// Stored items simply left out of the submitted list are removed
	// the same way deleted-tagged ones are, so their files do not leak.
	for _, m := range current {
		if !referenced[m.ID] {
			deletedIDs = append(deletedIDs, m.ID)
		}
	}

	return model.Repair(out), deletedIDs, nil
}

// DeleteFiles removes stored files for the given media IDs. Failures
// are logged, not returned: the database state is already committed.
func (s *MediaService) DeleteFiles(ids []string) {
	for _, id := range ids {
		if err := s.processor.DeleteMediaFiles(id); err != nil {
			slog.Warn("deleting media files", "id", id, "error", err)
		}
	}
}

// SaveAvatar stores a profile image and returns its thumbnail URL.
func (s *MediaService) SaveAvatar(r io.Reader, filename string, size int64) (string, error) {
	item, err := s.SaveUpload(r, filename, size)
	if err != nil {
		return "", err
	}
	if item.Type != model.MediaTypeImage {
		s.DeleteFiles([]string{item.ID})
		return "", ErrUnsupportedMedia
	}
	return s.VariantURL(item, model.VariantThumbnail), nil
}

// safeUploadName produces a stored filename from the client-provided
// one, keeping only the extension when the base name is unusable.
func safeUploadName(filename, mimeType string) string {
	base := filepath.Base(filename)
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '-'
		}
	}, base)
	if base == "" || base == "." || base == ".." || strings.TrimLeft(base, ".-_") == "" {
		ext := ".bin"
		if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
			ext = exts[0]
		}
		base = "upload" + ext
	}
	return base
}
