// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"fmt"
	"path/filepath"
	"strings"
)

// SanitizeFilename extracts only the base filename, removing any directory
// components. This prevents path traversal via filenames like
// "../../../etc/passwd".
func SanitizeFilename(filename string) (string, error) {
	safe := filepath.Base(filename)
	if safe == "." || safe == ".." || safe == "" || safe == string(filepath.Separator) {
		return "", fmt.Errorf("invalid filename: %q", filename)
	}
	return safe, nil
}

// ValidatePathWithinBase ensures that a resolved path is within the expected
// base directory. Returns an error if path traversal is detected.
func ValidatePathWithinBase(basePath, targetPath string) error {
	absBase, err := filepath.Abs(filepath.Clean(basePath))
	if err != nil {
		return fmt.Errorf("invalid base path: %w", err)
	}

	absTarget, err := filepath.Abs(filepath.Clean(targetPath))
	if err != nil {
		return fmt.Errorf("invalid target path: %w", err)
	}

	// Trailing separator prevents /uploads-evil matching base /uploads
	if absTarget != absBase && !strings.HasPrefix(absTarget, absBase+string(filepath.Separator)) {
		return fmt.Errorf("path traversal detected: path escapes base directory")
	}

	return nil
}

// SafeJoinPath joins path components and validates the result stays
// within the base directory.
func SafeJoinPath(basePath string, components ...string) (string, error) {
	fullPath := filepath.Join(append([]string{basePath}, components...)...)
	if err := ValidatePathWithinBase(basePath, fullPath); err != nil {
		return "", err
	}
	return fullPath, nil
}
