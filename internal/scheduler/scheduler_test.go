// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/olegiv/pipol-go/internal/store"
	"github.com/olegiv/pipol-go/internal/testutil"
)

func TestExpirePaymentHolds(t *testing.T) {
	q := store.New(testutil.TestDB(t))
	ctx := context.Background()

	organizer, err := q.CreateUser(ctx, store.CreateUserParams{Email: "o@example.com", Username: "organizer", PasswordHash: "x"})
	if err != nil {
		t.Fatal(err)
	}
	guest, err := q.CreateUser(ctx, store.CreateUserParams{Email: "g@example.com", Username: "guest", PasswordHash: "x"})
	if err != nil {
		t.Fatal(err)
	}
	event, err := q.CreateEvent(ctx, store.CreateEventParams{
		Slug:                 "gala",
		OrganizerID:          organizer.ID,
		Title:                "Gala",
		Category:             "music",
		StartsAt:             time.Now().UTC().Add(24 * time.Hour),
		Lat:                  1,
		Lon:                  1,
		PrivacyType:          "public",
		PaymentType:          "paid",
		PriceCents:           1000,
		Currency:             "EUR",
		ApplicationQuestions: []byte("[]"),
		MediaItems:           []byte("[]"),
	})
	if err != nil {
		t.Fatal(err)
	}

	// One expired hold, one still active.
	expired, err := q.CreateAttendee(ctx, store.CreateAttendeeParams{
		EventID:          event.ID,
		UserID:           guest.ID,
		Status:           "approved",
		PaymentStatus:    "pending",
		PaymentExpiresAt: sql.NullTime{Time: time.Now().UTC().Add(-time.Minute), Valid: true},
		Answers:          []byte("[]"),
	})
	if err != nil {
		t.Fatal(err)
	}
	other, err := q.CreateUser(ctx, store.CreateUserParams{Email: "g2@example.com", Username: "guest2", PasswordHash: "x"})
	if err != nil {
		t.Fatal(err)
	}
	active, err := q.CreateAttendee(ctx, store.CreateAttendeeParams{
		EventID:          event.ID,
		UserID:           other.ID,
		Status:           "approved",
		PaymentStatus:    "pending",
		PaymentExpiresAt: sql.NullTime{Time: time.Now().UTC().Add(20 * time.Minute), Valid: true},
		Answers:          []byte("[]"),
	})
	if err != nil {
		t.Fatal(err)
	}

	s := New(q, nil)
	s.ExpirePaymentHoldsNow()

	if _, err := q.GetAttendeeByID(ctx, expired.ID); err != sql.ErrNoRows {
		t.Errorf("expired hold still present: %v", err)
	}
	if _, err := q.GetAttendeeByID(ctx, active.ID); err != nil {
		t.Errorf("active hold removed: %v", err)
	}
}

func TestHourlyMaintenancePrunes(t *testing.T) {
	db := testutil.TestDB(t)
	q := store.New(db)
	ctx := context.Background()

	if err := q.CreateAuditLog(ctx, store.CreateAuditLogParams{Level: "info", Category: "system", Message: "old"}); err != nil {
		t.Fatal(err)
	}
	// Backdate the entry past the retention window.
	if _, err := db.Exec("UPDATE audit_log SET created_at = $1", time.Now().UTC().Add(-100*24*time.Hour)); err != nil {
		t.Fatal(err)
	}

	s := New(q, nil)
	s.hourlyMaintenance()

	entries, err := q.ListAuditLog(ctx, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("audit entries after prune = %d, want 0", len(entries))
	}
}

func TestStartStop(t *testing.T) {
	q := store.New(testutil.TestDB(t))
	s := New(q, nil)
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s.Stop()
}
