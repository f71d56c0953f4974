// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package webhook delivers event notifications to registered HTTP
// endpoints.
package webhook

import (
	"time"

	"github.com/olegiv/pipol-go/internal/model"
)

// Payload is the envelope sent to webhook endpoints.
type Payload struct {
	Event     string      `json:"event"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// EventData is the body for event.* topics.
type EventData struct {
	ID          int64  `json:"id"`
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Category    string `json:"category"`
	OrganizerID int64  `json:"organizer_id"`
	StartsAt    string `json:"starts_at"`
}

// AttendeeData is the body for attendee.* topics.
type AttendeeData struct {
	ID      int64  `json:"id"`
	EventID int64  `json:"event_id"`
	UserID  int64  `json:"user_id"`
	Status  string `json:"status"`
}

// NewEventPayload builds the payload for an event.* topic.
func NewEventPayload(topic string, e model.Event) Payload {
	return Payload{
		Event:     topic,
		Timestamp: time.Now().UTC(),
		Data: EventData{
			ID:          e.ID,
			Slug:        e.Slug,
			Title:       e.Title,
			Category:    e.Category,
			OrganizerID: e.OrganizerID,
			StartsAt:    e.StartsAt.UTC().Format(time.RFC3339),
		},
	}
}

// NewAttendeePayload builds the payload for an attendee.* topic.
func NewAttendeePayload(topic string, a model.Attendee) Payload {
	return Payload{
		Event:     topic,
		Timestamp: time.Now().UTC(),
		Data: AttendeeData{
			ID:      a.ID,
			EventID: a.EventID,
			UserID:  a.UserID,
			Status:  a.Status,
		},
	}
}
