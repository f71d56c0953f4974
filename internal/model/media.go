// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

// Media item types.
const (
	MediaTypeImage = "image"
	MediaTypeVideo = "video"
)

// Reconciliation status tags. They appear on submitted media lists and
// are never persisted; a stored list contains only untagged items.
const (
	MediaStatusNew      = "new"
	MediaStatusExisting = "existing"
	MediaStatusDeleted  = "deleted"
)

// Supported MIME types.
const (
	MimeTypeJPEG = "image/jpeg"
	MimeTypePNG  = "image/png"
	MimeTypeGIF  = "image/gif"
	MimeTypeWebP = "image/webp"
	MimeTypeMP4  = "video/mp4"
	MimeTypeWebM = "video/webm"
	MimeTypeMOV  = "video/quicktime"
)

// Image variant types.
const (
	VariantThumbnail = "thumbnail"
	VariantMedium    = "medium"
	VariantLarge     = "large"
)

// ImageVariantConfig defines settings for generating image variants.
type ImageVariantConfig struct {
	Width   int
	Height  int
	Quality int
	Crop    bool // true = crop to exact size, false = fit within bounds
}

// ImageVariants defines the default image variant configurations.
var ImageVariants = map[string]ImageVariantConfig{
	VariantThumbnail: {Width: 150, Height: 150, Quality: 80, Crop: true},
	VariantMedium:    {Width: 800, Height: 600, Quality: 85, Crop: false},
	VariantLarge:     {Width: 1920, Height: 1080, Quality: 90, Crop: false},
}

// MediaItem describes one photo or video attached to an event.
// At most one item in a list carries IsMain.
type MediaItem struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	Type      string `json:"type"`
	MIME      string `json:"mime,omitempty"`
	IsMain    bool   `json:"is_main"`
	SortOrder int    `json:"sort_order"`
	Status    string `json:"status,omitempty"`
}

// Valid reports whether the item counts as displayable: it has a type
// and is not marked for deletion.
func (m MediaItem) Valid() bool {
	return m.Status != MediaStatusDeleted && (m.Type == MediaTypeImage || m.Type == MediaTypeVideo)
}

// MediaList is an ordered collection of media items.
type MediaList []MediaItem

// Add appends an item to the list. The first valid item added to an
// empty list becomes the main item.
func Add(list MediaList, item MediaItem) MediaList {
	if item.Valid() && !hasMain(list) {
		item.IsMain = true
	}
	item.SortOrder = len(list)
	return append(list, item)
}

// Remove deletes the item with the given id.
func Remove(list MediaList, id string) MediaList {
	out := make(MediaList, 0, len(list))
	for _, m := range list {
		if m.ID != id {
			out = append(out, m)
		}
	}
	return Repair(out)
}

// PromoteMain marks the item with the given id as main and clears the
// flag on every other item. Unknown ids leave the list unchanged.
func PromoteMain(list MediaList, id string) MediaList {
	found := false
	for _, m := range list {
		if m.ID == id && m.Valid() {
			found = true
			break
		}
	}
	if !found {
		return list
	}

	out := make(MediaList, len(list))
	for i, m := range list {
		m.IsMain = m.ID == id
		out[i] = m
	}
	return out
}

// Reorder arranges the list to match the given id order. Unknown ids are
// ignored; items missing from ids keep their relative order at the tail.
func Reorder(list MediaList, ids []string) MediaList {
	byID := make(map[string]MediaItem, len(list))
	for _, m := range list {
		byID[m.ID] = m
	}

	out := make(MediaList, 0, len(list))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if m, ok := byID[id]; ok && !seen[id] {
			out = append(out, m)
			seen[id] = true
		}
	}
	for _, m := range list {
		if !seen[m.ID] {
			out = append(out, m)
		}
	}
	return Repair(out)
}

// Repair restores the list invariants: at most one main item survives
// (the first one wins); if no valid item is main, the first valid item
// is promoted; sort order is re-sequenced 0..n-1.
func Repair(list MediaList) MediaList {
	out := make(MediaList, len(list))
	copy(out, list)

	mainSeen := false
	for i := range out {
		if out[i].IsMain {
			if mainSeen || !out[i].Valid() {
				out[i].IsMain = false
				continue
			}
			mainSeen = true
		}
	}

	if !mainSeen {
		for i := range out {
			if out[i].Valid() {
				out[i].IsMain = true
				break
			}
		}
	}

	for i := range out {
		out[i].SortOrder = i
	}
	return out
}

// Main returns the main item of the list, if any.
func Main(list MediaList) (MediaItem, bool) {
	for _, m := range list {
		if m.IsMain {
			return m, true
		}
	}
	return MediaItem{}, false
}

func hasMain(list MediaList) bool {
	_, ok := Main(list)
	return ok
}

// ImageMimeTypes returns the image MIME types accepted for upload.
func ImageMimeTypes() []string {
	return []string{MimeTypeJPEG, MimeTypePNG, MimeTypeGIF, MimeTypeWebP}
}

// VideoMimeTypes returns the video MIME types accepted for upload.
func VideoMimeTypes() []string {
	return []string{MimeTypeMP4, MimeTypeWebM, MimeTypeMOV}
}

// IsImageMime reports whether the MIME type is a processable image.
func IsImageMime(mime string) bool {
	switch mime {
	case MimeTypeJPEG, MimeTypePNG, MimeTypeGIF, MimeTypeWebP:
		return true
	default:
		return false
	}
}

// IsVideoMime reports whether the MIME type is an accepted video.
func IsVideoMime(mime string) bool {
	switch mime {
	case MimeTypeMP4, MimeTypeWebM, MimeTypeMOV:
		return true
	default:
		return false
	}
}

// MediaTypeForMime maps a MIME type to the media item type.
// Returns an empty string for unsupported types.
func MediaTypeForMime(mime string) string {
	switch {
	case IsImageMime(mime):
		return MediaTypeImage
	case IsVideoMime(mime):
		return MediaTypeVideo
	default:
		return ""
	}
}
