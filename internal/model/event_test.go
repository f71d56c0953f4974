// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"testing"
	"time"
)

func TestEventStatus(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		startsAt time.Time
		canceled bool
		want     string
	}{
		{"upcoming", now.Add(24 * time.Hour), false, EventStatusUpcoming},
		{"past", now.Add(-time.Hour), false, EventStatusPast},
		{"canceled wins over upcoming", now.Add(24 * time.Hour), true, EventStatusCanceled},
		{"canceled wins over past", now.Add(-24 * time.Hour), true, EventStatusCanceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Event{StartsAt: tt.startsAt, Canceled: tt.canceled}
			if got := e.Status(now); got != tt.want {
				t.Errorf("Status() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidCategory(t *testing.T) {
	for _, c := range Categories {
		if !ValidCategory(c) {
			t.Errorf("ValidCategory(%q) = false, want true", c)
		}
	}
	for _, c := range []string{"", "Music", "karaoke"} {
		if ValidCategory(c) {
			t.Errorf("ValidCategory(%q) = true, want false", c)
		}
	}
}

func TestValidCoordinates(t *testing.T) {
	tests := []struct {
		lat, lon float64
		want     bool
	}{
		{0, 0, true},
		{90, 180, true},
		{-90, -180, true},
		{90.001, 0, false},
		{0, -180.5, false},
	}
	for _, tt := range tests {
		if got := ValidCoordinates(tt.lat, tt.lon); got != tt.want {
			t.Errorf("ValidCoordinates(%v, %v) = %v, want %v", tt.lat, tt.lon, got, tt.want)
		}
	}
}

func TestValidCurrency(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"EUR", true},
		{"USD", true},
		{"eur", false},
		{"EU", false},
		{"EURO", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidCurrency(tt.code); got != tt.want {
			t.Errorf("ValidCurrency(%q) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestRequiresApproval(t *testing.T) {
	if (&Event{PrivacyType: PrivacyPublic}).RequiresApproval() {
		t.Error("public event should not require approval")
	}
	if !(&Event{PrivacyType: PrivacyApproval}).RequiresApproval() {
		t.Error("approval event should require approval")
	}
	if !(&Event{PrivacyType: PrivacyApplication}).RequiresApproval() {
		t.Error("application event should require approval")
	}
}

func TestValidUsername(t *testing.T) {
	tests := []struct {
		username string
		want     bool
	}{
		{"alice", true},
		{"bob-42", true},
		{"x_y", true},
		{"ab", false},
		{"Alice", false},
		{"-dash", false},
		{"waaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaay-too-long", false},
	}
	for _, tt := range tests {
		if got := ValidUsername(tt.username); got != tt.want {
			t.Errorf("ValidUsername(%q) = %v, want %v", tt.username, got, tt.want)
		}
	}
}
