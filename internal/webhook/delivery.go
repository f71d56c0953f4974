// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/olegiv/pipol-go/internal/util"
)

// Delivery limits.
const (
	deliveryTimeout  = 10 * time.Second
	maxResponseBytes = 4096
	maxAttempts      = 3
)

// Deliverer sends signed payloads to webhook endpoints. Its HTTP client
// refuses connections to private address space.
type Deliverer struct {
	client   *http.Client
	validate bool
}

// NewDeliverer creates a Deliverer with an SSRF-safe HTTP client.
func NewDeliverer() *Deliverer {
	return &Deliverer{
		client: &http.Client{
			Timeout: deliveryTimeout,
			Transport: &http.Transport{
				DialContext: util.SSRFSafeDialContext(&net.Dialer{Timeout: 5 * time.Second}),
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		validate: true,
	}
}

// newTestDeliverer builds a Deliverer around a plain client, used by
// tests that target loopback servers.
func newTestDeliverer(client *http.Client) *Deliverer {
	return &Deliverer{client: client}
}

// Sign computes the hex HMAC-SHA256 signature for a payload body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Deliver posts body to url signed with secret. It returns the response
// status code and a truncated response body snippet.
func (d *Deliverer) Deliver(ctx context.Context, url, secret, topic string, body []byte) (int, string, error) {
	if d.validate {
		if err := util.ValidateWebhookURL(url); err != nil {
			return 0, "", fmt.Errorf("invalid webhook url: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Pipol-Webhook/1.0")
	req.Header.Set("X-Pipol-Event", topic)
	if secret != "" {
		req.Header.Set("X-Pipol-Signature", "sha256="+Sign(secret, body))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	return resp.StatusCode, string(snippet), nil
}
