// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package imaging processes uploaded images: orientation fixes,
// metadata stripping and resized variants, all in pure Go.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp" // WebP decoder

	"github.com/olegiv/pipol-go/internal/model"
)

// ProcessResult describes a processed original image.
type ProcessResult struct {
	Width    int
	Height   int
	MimeType string
	Size     int64
	FilePath string
}

// VariantResult describes a generated variant.
type VariantResult struct {
	Type     string
	Width    int
	Height   int
	Size     int64
	FilePath string
}

// Processor handles image processing rooted at an upload directory.
type Processor struct {
	uploadDir string
}

// NewProcessor creates an image processor writing under uploadDir.
func NewProcessor(uploadDir string) *Processor {
	return &Processor{uploadDir: uploadDir}
}

// ProcessImage decodes an upload, applies EXIF orientation, re-encodes
// it (which drops embedded metadata) and saves it under
// originals/<id>/. TIFF input is rejected.
func (p *Processor) ProcessImage(reader io.Reader, id, filename string) (*ProcessResult, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading image data: %w", err)
	}

	format := detectFormat(data)
	if format == "" {
		return nil, fmt.Errorf("unsupported image format")
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	img = applyOrientation(img, readExifOrientation(bytes.NewReader(data)))

	bounds := img.Bounds()
	processed, err := encodeImage(img, format, 95)
	if err != nil {
		return nil, fmt.Errorf("encoding image: %w", err)
	}

	filePath, err := p.saveImageFile(filepath.Join("originals", id), filename, processed)
	if err != nil {
		return nil, fmt.Errorf("saving original image: %w", err)
	}

	return &ProcessResult{
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		MimeType: formatToMimeType(format),
		Size:     int64(len(processed)),
		FilePath: filePath,
	}, nil
}

// CreateVariant generates one resized variant. It returns (nil, nil)
// when the source is already smaller than the target and no crop is
// requested, so small images are never upscaled.
func (p *Processor) CreateVariant(sourcePath, id, filename string, config model.ImageVariantConfig, variantType string) (*VariantResult, error) {
	img, err := imaging.Open(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("opening source image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() <= config.Width && bounds.Dy() <= config.Height && !config.Crop {
		return nil, nil
	}

	var resized image.Image
	if config.Crop {
		resized = imaging.Fill(img, config.Width, config.Height, imaging.Center, imaging.Lanczos)
	} else {
		resized = imaging.Fit(img, config.Width, config.Height, imaging.Lanczos)
	}

	format := detectFormatFromFilename(filename)
	processed, err := encodeImage(resized, format, config.Quality)
	if err != nil {
		return nil, fmt.Errorf("encoding variant: %w", err)
	}

	variantPath, err := p.saveImageFile(filepath.Join(variantType, id), filename, processed)
	if err != nil {
		return nil, fmt.Errorf("saving %s variant: %w", variantType, err)
	}

	resBounds := resized.Bounds()
	return &VariantResult{
		Type:     variantType,
		Width:    resBounds.Dx(),
		Height:   resBounds.Dy(),
		Size:     int64(len(processed)),
		FilePath: variantPath,
	}, nil
}

// CreateAllVariants generates every standard variant, continuing past
// individual failures.
func (p *Processor) CreateAllVariants(sourcePath, id, filename string) ([]*VariantResult, error) {
	var results []*VariantResult
	var errs []string

	for variantType, config := range model.ImageVariants {
		result, err := p.CreateVariant(sourcePath, id, filename, config, variantType)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", variantType, err))
			continue
		}
		if result != nil {
			results = append(results, result)
		}
	}

	if len(errs) > 0 && len(results) == 0 {
		return nil, fmt.Errorf("all variants failed: %s", strings.Join(errs, "; "))
	}
	return results, nil
}

// DetectMimeType sniffs the MIME type of uploaded data.
func (p *Processor) DetectMimeType(data []byte) string {
	contentType := http.DetectContentType(data)
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = contentType[:idx]
	}
	return contentType
}

// DeleteMediaFiles removes the original and every variant for id.
func (p *Processor) DeleteMediaFiles(id string) error {
	originalsDir := filepath.Join(p.uploadDir, "originals", id)
	if err := os.RemoveAll(originalsDir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting originals: %w", err)
	}
	for variantType := range model.ImageVariants {
		variantDir := filepath.Join(p.uploadDir, variantType, id)
		if err := os.RemoveAll(variantDir); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("deleting %s variant: %w", variantType, err)
		}
	}
	return nil
}

// readExifOrientation returns the EXIF orientation tag, or 1 when it
// cannot be determined.
func readExifOrientation(r io.Reader) int {
	x, err := exif.Decode(r)
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	orientation, err := tag.Int(0)
	if err != nil {
		return 1
	}
	return orientation
}

// applyOrientation normalizes an image according to its EXIF
// orientation value (1 through 8).
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.FlipH(imaging.Rotate270(img))
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.FlipH(imaging.Rotate90(img))
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

func encodeImage(img image.Image, format string, quality int) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case "png":
		if err := png.Encode(&buf, img); err != nil {
			return nil, err
		}
	case "gif":
		if err := gif.Encode(&buf, img, nil); err != nil {
			return nil, err
		}
	default:
		// WebP has no pure-Go encoder; it and JPEG both come out as JPEG.
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// detectFormat sniffs the image format from raw bytes. TIFF is
// rejected explicitly (CVE-2023-36308 in the resize library).
func detectFormat(data []byte) string {
	contentType := http.DetectContentType(data)
	if strings.Contains(contentType, "tiff") {
		return ""
	}
	switch {
	case strings.Contains(contentType, "jpeg"):
		return "jpeg"
	case strings.Contains(contentType, "png"):
		return "png"
	case strings.Contains(contentType, "gif"):
		return "gif"
	case strings.Contains(contentType, "webp"):
		return "webp"
	default:
		return ""
	}
}

func detectFormatFromFilename(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		return "png"
	case ".gif":
		return "gif"
	case ".webp":
		return "webp"
	default:
		return "jpeg"
	}
}

func formatToMimeType(format string) string {
	switch format {
	case "jpeg", "jpg":
		return model.MimeTypeJPEG
	case "png":
		return model.MimeTypePNG
	case "gif":
		return model.MimeTypeGIF
	case "webp":
		return model.MimeTypeWebP
	default:
		return "application/octet-stream"
	}
}

// saveImageFile writes data below uploadDir, verifying that the target
// stays inside the upload root.
func (p *Processor) saveImageFile(subDir, filename string, data []byte) (string, error) {
	safeFilename := filepath.Base(filename)
	if safeFilename == "." || safeFilename == ".." || safeFilename == "" {
		return "", fmt.Errorf("invalid filename")
	}

	cleanSubDir := filepath.Clean(subDir)
	if strings.Contains(cleanSubDir, "..") || filepath.IsAbs(cleanSubDir) {
		return "", fmt.Errorf("invalid subdirectory path")
	}

	absBase, err := filepath.Abs(p.uploadDir)
	if err != nil {
		return "", fmt.Errorf("resolving base directory: %w", err)
	}
	absTarget := filepath.Join(absBase, cleanSubDir)
	rel, err := filepath.Rel(absBase, absTarget)
	if err != nil || strings.HasPrefix(rel, "..") || filepath.IsAbs(rel) {
		return "", fmt.Errorf("path traversal detected")
	}

	if err := os.MkdirAll(absTarget, 0755); err != nil {
		return "", fmt.Errorf("creating directory: %w", err)
	}

	filePath := filepath.Join(absTarget, safeFilename)
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return "", fmt.Errorf("saving image: %w", err)
	}
	return filePath, nil
}
