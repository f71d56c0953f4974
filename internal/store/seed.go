// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/olegiv/pipol-go/internal/auth"
	"github.com/olegiv/pipol-go/internal/model"
	"github.com/olegiv/pipol-go/internal/util"
)

// DefaultAdminPassword is the seeded admin credential for development
// setups. Change it immediately on anything reachable from outside.
const DefaultAdminPassword = "pipol-admin"

type seedEvent struct {
	title    string
	category string
	city     string
	country  string
	lat, lon float64
	daysOut  int
}

var seedEvents = []seedEvent{
	{"Rooftop Jazz Night", model.CategoryMusic, "Berlin", "DE", 52.5200, 13.4050, 7},
	{"Sunrise Run at the Park", model.CategorySports, "Berlin", "DE", 52.5145, 13.3501, 3},
	{"Street Food Market", model.CategoryFood, "Hamburg", "DE", 53.5511, 9.9937, 10},
	{"Open Source Meetup", model.CategoryTech, "Munich", "DE", 48.1351, 11.5820, 14},
	{"Gallery Walk", model.CategoryArt, "Berlin", "DE", 52.5076, 13.3904, 21},
}

// Seed populates an empty database with a development admin account and
// a handful of sample events. A database that already has users is left
// untouched.
func Seed(ctx context.Context, q *Queries) error {
	n, err := q.CountUsers(ctx)
	if err != nil {
		return fmt.Errorf("seed: counting users: %w", err)
	}
	if n > 0 {
		return nil
	}

	hash, err := auth.HashPassword(DefaultAdminPassword)
	if err != nil {
		return fmt.Errorf("seed: hashing admin password: %w", err)
	}
	admin, err := q.CreateUser(ctx, CreateUserParams{
		Email:        "admin@pipol.local",
		Username:     "admin",
		PasswordHash: hash,
		Name:         "Pipol Admin",
	})
	if err != nil {
		return fmt.Errorf("seed: creating admin: %w", err)
	}
	if _, err := q.db.ExecContext(ctx, `UPDATE users SET role = $1 WHERE id = $2`, model.RoleAdmin, admin.ID); err != nil {
		return fmt.Errorf("seed: promoting admin: %w", err)
	}

	now := time.Now().UTC()
	for _, se := range seedEvents {
		_, err := q.CreateEvent(ctx, CreateEventParams{
			Slug:                 util.Slugify(se.title),
			OrganizerID:          admin.ID,
			Title:                se.title,
			Description:          "Seeded sample event.",
			DescriptionHTML:      "<p>Seeded sample event.</p>",
			Category:             se.category,
			StartsAt:             now.AddDate(0, 0, se.daysOut),
			Lat:                  se.lat,
			Lon:                  se.lon,
			City:                 se.city,
			Country:              se.country,
			PrivacyType:          model.PrivacyPublic,
			PaymentType:          model.PaymentFree,
			ApplicationQuestions: []byte("[]"),
			MediaItems:           []byte("[]"),
		})
		if err != nil {
			return fmt.Errorf("seed: creating event %q: %w", se.title, err)
		}
	}

	slog.Info("database seeded", "admin", admin.Email, "events", len(seedEvents))
	return nil
}
