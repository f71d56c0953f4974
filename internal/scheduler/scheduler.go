// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs the recurring maintenance jobs.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/olegiv/pipol-go/internal/geoip"
	"github.com/olegiv/pipol-go/internal/store"
)

// Retention windows for pruning.
const (
	auditRetention    = 90 * 24 * time.Hour
	deliveryRetention = 30 * 24 * time.Hour
)

// Scheduler owns the cron runner and its jobs.
type Scheduler struct {
	cron    *cron.Cron
	queries *store.Queries
	geo     *geoip.Resolver // nil when GeoIP is not configured
}

// New creates a scheduler. geo may be nil.
func New(queries *store.Queries, geo *geoip.Resolver) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		queries: queries,
		geo:     geo,
	}
}

// Start registers and starts the recurring jobs: payment hold expiry
// every minute, retention pruning and GeoIP reload hourly.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("* * * * *", s.expirePaymentHolds); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("@hourly", s.hourlyMaintenance); err != nil {
		return err
	}
	s.cron.Start()
	slog.Info("scheduler started")
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	slog.Info("scheduler stopped")
}

// expirePaymentHolds removes attendance records whose payment window
// lapsed, freeing their reserved spots.
func (s *Scheduler) expirePaymentHolds() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	expired, err := s.queries.ListExpiredPaymentHolds(ctx, time.Now().UTC())
	if err != nil {
		slog.Error("listing expired payment holds", "error", err)
		return
	}

	for _, a := range expired {
		if err := s.queries.DeleteAttendee(ctx, a.ID); err != nil {
			slog.Error("releasing expired payment hold", "attendee_id", a.ID, "error", err)
			continue
		}
		slog.Warn("payment hold expired", "event_id", a.EventID, "user_id", a.UserID)
	}
}

// hourlyMaintenance prunes old audit entries and delivery history and
// reloads the GeoIP database when the file changed.
func (s *Scheduler) hourlyMaintenance() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	now := time.Now().UTC()
	if n, err := s.queries.PruneAuditLog(ctx, now.Add(-auditRetention)); err != nil {
		slog.Error("pruning audit log", "error", err)
	} else if n > 0 {
		slog.Info("pruned audit log", "deleted", n)
	}

	if n, err := s.queries.PruneWebhookDeliveries(ctx, now.Add(-deliveryRetention)); err != nil {
		slog.Error("pruning webhook deliveries", "error", err)
	} else if n > 0 {
		slog.Info("pruned webhook deliveries", "deleted", n)
	}

	if s.geo != nil {
		if reloaded, err := s.geo.Reload(); err != nil {
			slog.Error("reloading geoip database", "error", err)
		} else if reloaded {
			slog.Info("geoip database reloaded")
		}
	}
}

// ExpirePaymentHoldsNow runs the payment hold job immediately. Exposed
// for operational tooling and tests.
func (s *Scheduler) ExpirePaymentHoldsNow() {
	s.expirePaymentHolds()
}
