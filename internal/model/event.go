// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"time"
)

// Event categories.
const (
	CategoryMusic     = "music"
	CategorySports    = "sports"
	CategoryFood      = "food"
	CategoryArt       = "art"
	CategoryTech      = "tech"
	CategoryOutdoors  = "outdoors"
	CategoryEducation = "education"
	CategoryNightlife = "nightlife"
	CategoryCommunity = "community"
	CategoryOther     = "other"
)

// Categories lists all valid event categories. The same set is used for
// user interests.
var Categories = []string{
	CategoryMusic, CategorySports, CategoryFood, CategoryArt, CategoryTech,
	CategoryOutdoors, CategoryEducation, CategoryNightlife, CategoryCommunity,
	CategoryOther,
}

// Privacy types. "approval" requires the organizer to approve each join
// request; "application" additionally requires answering the organizer's
// questions.
const (
	PrivacyPublic      = "public"
	PrivacyApproval    = "approval"
	PrivacyApplication = "application"
)

// Payment types.
const (
	PaymentFree = "free"
	PaymentPaid = "paid"
)

// Derived event statuses.
const (
	EventStatusUpcoming = "upcoming"
	EventStatusPast     = "past"
	EventStatusCanceled = "canceled"
)

// Event field constraints.
const (
	TitleMinLen       = 3
	TitleMaxLen       = 200
	DescriptionMaxLen = 10000
	MaxQuestions      = 5
)

// Event represents a location-tagged happening created by an organizer.
type Event struct {
	ID                   int64       `json:"id"`
	Slug                 string      `json:"slug"`
	Title                string      `json:"title"`
	Description          string      `json:"description"`
	DescriptionHTML      string      `json:"description_html"`
	Category             string      `json:"category"`
	StartsAt             time.Time   `json:"starts_at"`
	Lat                  float64     `json:"lat"`
	Lon                  float64     `json:"lon"`
	LocationName         string      `json:"location_name"`
	Address              string      `json:"address"`
	City                 string      `json:"city"`
	Country              string      `json:"country"`
	PrivacyType          string      `json:"privacy_type"`
	PaymentType          string      `json:"payment_type"`
	PriceCents           int64       `json:"price_cents"`
	Currency             string      `json:"currency"`
	ApplicationQuestions []string    `json:"application_questions"`
	MaxAttendees         *int64      `json:"max_attendees,omitempty"`
	MediaItems           []MediaItem `json:"media_items"`
	MainMediaURL         string      `json:"main_media_url"`
	MainMediaType        string      `json:"main_media_type"`
	Canceled             bool        `json:"canceled"`
	OrganizerID          int64       `json:"organizer_id"`
	CreatedAt            time.Time   `json:"created_at"`
	UpdatedAt            time.Time   `json:"updated_at"`
}

// Status derives the event status at the given time.
func (e *Event) Status(now time.Time) string {
	switch {
	case e.Canceled:
		return EventStatusCanceled
	case e.StartsAt.Before(now):
		return EventStatusPast
	default:
		return EventStatusUpcoming
	}
}

// IsPaid reports whether attending requires payment.
func (e *Event) IsPaid() bool {
	return e.PaymentType == PaymentPaid
}

// RequiresApproval reports whether join requests need an organizer decision.
func (e *Event) RequiresApproval() bool {
	return e.PrivacyType == PrivacyApproval || e.PrivacyType == PrivacyApplication
}

// RequiresApplication reports whether join requests must answer the
// organizer's questions.
func (e *Event) RequiresApplication() bool {
	return e.PrivacyType == PrivacyApplication
}

// ValidCategory reports whether s is a known event category.
func ValidCategory(s string) bool {
	for _, c := range Categories {
		if c == s {
			return true
		}
	}
	return false
}

// ValidPrivacyType reports whether s is a known privacy type.
func ValidPrivacyType(s string) bool {
	switch s {
	case PrivacyPublic, PrivacyApproval, PrivacyApplication:
		return true
	default:
		return false
	}
}

// ValidPaymentType reports whether s is a known payment type.
func ValidPaymentType(s string) bool {
	switch s {
	case PaymentFree, PaymentPaid:
		return true
	default:
		return false
	}
}

// ValidCoordinates reports whether lat/lon fall in WGS84 range.
func ValidCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// ValidCurrency reports whether s looks like an ISO 4217 currency code.
func ValidCurrency(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
