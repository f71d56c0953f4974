// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"encoding/json"
	"strings"

	"github.com/olegiv/pipol-go/internal/model"
	"github.com/olegiv/pipol-go/internal/util"
)

// UserToModel converts a users row into its API representation.
func UserToModel(u User) model.User {
	return model.User{
		ID:           u.ID,
		Email:        u.Email,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		Name:         u.Name,
		Bio:          u.Bio,
		AvatarURL:    u.AvatarURL,
		Role:         u.Role,
		LastLoginAt:  util.NullTimeToPtr(u.LastLoginAt),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// EventToModel converts an events row into its API representation,
// decoding the JSON columns. Malformed JSON yields empty collections
// rather than an error.
func EventToModel(e Event) model.Event {
	var questions []string
	if len(e.ApplicationQuestions) > 0 {
		_ = json.Unmarshal(e.ApplicationQuestions, &questions)
	}
	var media []model.MediaItem
	if len(e.MediaItems) > 0 {
		_ = json.Unmarshal(e.MediaItems, &media)
	}
	return model.Event{
		ID:                   e.ID,
		Slug:                 e.Slug,
		OrganizerID:          e.OrganizerID,
		Title:                e.Title,
		Description:          e.Description,
		DescriptionHTML:      e.DescriptionHTML,
		Category:             e.Category,
		StartsAt:             e.StartsAt,
		Lat:                  e.Lat,
		Lon:                  e.Lon,
		LocationName:         e.LocationName,
		Address:              e.Address,
		City:                 e.City,
		Country:              e.Country,
		PrivacyType:          e.PrivacyType,
		PaymentType:          e.PaymentType,
		PriceCents:           e.PriceCents,
		Currency:             e.Currency,
		ApplicationQuestions: questions,
		MaxAttendees:         util.NullInt64ToPtr(e.MaxAttendees),
		MediaItems:           media,
		MainMediaURL:         e.MainMediaURL,
		MainMediaType:        e.MainMediaType,
		Canceled:             e.Canceled,
		CreatedAt:            e.CreatedAt,
		UpdatedAt:            e.UpdatedAt,
	}
}

// AttendeeToModel converts an event_attendees row into its API
// representation.
func AttendeeToModel(a Attendee) model.Attendee {
	var answers []string
	if len(a.Answers) > 0 {
		_ = json.Unmarshal(a.Answers, &answers)
	}
	return model.Attendee{
		ID:                 a.ID,
		EventID:            a.EventID,
		UserID:             a.UserID,
		Status:             a.Status,
		PaymentStatus:      a.PaymentStatus,
		ApplicationAnswers: answers,
		CreatedAt:          a.CreatedAt,
		UpdatedAt:          a.UpdatedAt,
	}
}

// WebhookToModel converts a webhooks row into its API representation,
// splitting the stored topic list.
func WebhookToModel(w Webhook) model.Webhook {
	var events []string
	if w.Events != "" {
		events = strings.Split(w.Events, ",")
	}
	return model.Webhook{
		ID:        w.ID,
		Name:      w.Name,
		URL:       w.URL,
		Secret:    w.Secret,
		Events:    events,
		IsActive:  w.IsActive,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
}

// AuditLogToModel converts an audit_log row into its API representation.
func AuditLogToModel(e AuditLogEntry) model.AuditEntry {
	return model.AuditEntry{
		ID:        e.ID,
		Level:     e.Level,
		Category:  e.Category,
		Message:   e.Message,
		UserID:    util.NullInt64ToPtr(e.UserID),
		IP:        e.IPAddress,
		Metadata:  e.Metadata,
		CreatedAt: e.CreatedAt,
	}
}

// WebhookDeliveryToModel converts a webhook_deliveries row into its API
// representation.
func WebhookDeliveryToModel(d WebhookDelivery) model.WebhookDelivery {
	return model.WebhookDelivery{
		ID:          d.ID,
		WebhookID:   d.WebhookID,
		Event:       d.Event,
		Payload:     d.Payload,
		Status:      d.Status,
		StatusCode:  util.NullInt64ToPtr(d.StatusCode),
		Attempts:    d.Attempts,
		Error:       d.Error,
		CompletedAt: util.NullTimeToPtr(d.CompletedAt),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}
