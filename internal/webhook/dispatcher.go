// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package webhook

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/olegiv/pipol-go/internal/store"
)

// Dispatcher queue parameters.
const (
	numWorkers = 3
	queueSize  = 100
)

type job struct {
	webhook store.Webhook
	topic   string
	body    []byte
}

// Dispatcher fans events out to subscribed webhooks through a worker
// pool. Enqueueing never blocks; when the queue is full the event is
// dropped and logged.
type Dispatcher struct {
	queries   *store.Queries
	deliverer *Deliverer
	jobs      chan job
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewDispatcher creates and starts a dispatcher.
func NewDispatcher(queries *store.Queries) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		queries:   queries,
		deliverer: NewDeliverer(),
		jobs:      make(chan job, queueSize),
		ctx:       ctx,
		cancel:    cancel,
	}
	for i := 0; i < numWorkers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Dispatch sends a payload to every active webhook subscribed to its
// topic. It returns immediately.
func (d *Dispatcher) Dispatch(ctx context.Context, p Payload) {
	body, err := json.Marshal(p)
	if err != nil {
		slog.Error("marshaling webhook payload", "event", p.Event, "error", err)
		return
	}

	webhooks, err := d.queries.ListActiveWebhooks(ctx)
	if err != nil {
		slog.Error("listing webhooks", "error", err)
		return
	}

	for _, w := range webhooks {
		m := store.WebhookToModel(w)
		if !m.HasEvent(p.Event) {
			continue
		}
		select {
		case d.jobs <- job{webhook: w, topic: p.Event, body: body}:
		default:
			slog.Warn("webhook queue full, dropping event", "event", p.Event, "webhook_id", w.ID)
		}
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case j, ok := <-d.jobs:
			if !ok {
				return
			}
			d.process(j)
		case <-d.ctx.Done():
			return
		}
	}
}

// process attempts delivery with exponential backoff and records the
// outcome.
func (d *Dispatcher) process(j job) {
	deliveryID, err := d.queries.CreateWebhookDelivery(d.ctx, store.CreateWebhookDeliveryParams{
		WebhookID: j.webhook.ID,
		Event:     j.topic,
		Payload:   string(j.body),
	})
	if err != nil {
		slog.Error("recording webhook delivery", "webhook_id", j.webhook.ID, "error", err)
		return
	}

	var statusCode int
	var lastErr string
	attempts := int64(0)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		attempts = int64(attempt)
		var snippet string
		statusCode, snippet, err = d.deliverer.Deliver(d.ctx, j.webhook.URL, j.webhook.Secret, j.topic, j.body)

		if err == nil && statusCode >= 200 && statusCode < 300 {
			_ = d.queries.UpdateWebhookDelivery(d.ctx, store.UpdateWebhookDeliveryParams{
				ID:          deliveryID,
				Status:      "success",
				StatusCode:  sql.NullInt64{Int64: int64(statusCode), Valid: true},
				Attempts:    attempts,
				CompletedAt: sql.NullTime{Time: time.Now().UTC(), Valid: true},
			})
			return
		}

		if err != nil {
			lastErr = err.Error()
		} else {
			lastErr = snippet
		}

		if attempt < maxAttempts {
			// 1s, 2s, 4s...
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			select {
			case <-time.After(backoff):
			case <-d.ctx.Done():
				lastErr = "dispatcher shutting down"
				attempt = maxAttempts
			}
		}
	}

	var code sql.NullInt64
	if statusCode != 0 {
		code = sql.NullInt64{Int64: int64(statusCode), Valid: true}
	}
	_ = d.queries.UpdateWebhookDelivery(d.ctx, store.UpdateWebhookDeliveryParams{
		ID:          deliveryID,
		Status:      "failed",
		StatusCode:  code,
		Attempts:    attempts,
		Error:       lastErr,
		CompletedAt: sql.NullTime{Time: time.Now().UTC(), Valid: true},
	})
	slog.Warn("webhook delivery failed", "webhook_id", j.webhook.ID, "event", j.topic, "error", lastErr)
}

// Stop drains the queue and waits for in-flight deliveries.
func (d *Dispatcher) Stop() {
	close(d.jobs)
	d.wg.Wait()
	d.cancel()
}
