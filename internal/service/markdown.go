// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"bytes"
	"log/slog"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	markdownOnce   sync.Once
	markdownEngine goldmark.Markdown
	htmlPolicy     *bluemonday.Policy
)

func initMarkdown() {
	// Raw HTML passes through the renderer; the bluemonday pass below
	// is the one place sanitization happens.
	markdownEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithUnsafe()),
	)
	htmlPolicy = bluemonday.UGCPolicy()
	htmlPolicy.RequireNoFollowOnLinks(true)
}

// RenderMarkdown converts user-supplied markdown to sanitized HTML.
// On a render failure the raw text is escaped through the sanitizer
// rather than returned verbatim.
func RenderMarkdown(src string) string {
	markdownOnce.Do(initMarkdown)

	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(src), &buf); err != nil {
		slog.Warn("markdown render failed", "error", err)
		return htmlPolicy.Sanitize(src)
	}
	return htmlPolicy.Sanitize(buf.String())
}
