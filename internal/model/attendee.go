// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// Attendance statuses.
const (
	AttendeeStatusPending  = "pending"
	AttendeeStatusApproved = "approved"
	AttendeeStatusRejected = "rejected"
)

// Payment statuses.
const (
	PaymentStatusNone    = "none"
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
)

// PaymentHoldDuration is how long an unpaid approved spot is held before
// the scheduler releases it.
const PaymentHoldDuration = 30 * time.Minute

// Attendee links a user to an event through the join workflow.
type Attendee struct {
	ID                 int64     `json:"id"`
	EventID            int64     `json:"event_id"`
	UserID             int64     `json:"user_id"`
	Status             string    `json:"status"`
	PaymentStatus      string    `json:"payment_status"`
	ApplicationAnswers []string  `json:"application_answers,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// IsAttending reports whether the record counts toward capacity and
// appears in the public attendee list: approved, and paid when the
// event charges.
func (a *Attendee) IsAttending(paid bool) bool {
	if a.Status != AttendeeStatusApproved {
		return false
	}
	if paid {
		return a.PaymentStatus == PaymentStatusPaid
	}
	return true
}

// ValidAttendeeStatus reports whether s is a known attendance status.
func ValidAttendeeStatus(s string) bool {
	switch s {
	case AttendeeStatusPending, AttendeeStatusApproved, AttendeeStatusRejected:
		return true
	default:
		return false
	}
}

// ValidPaymentStatus reports whether s is a known payment status.
func ValidPaymentStatus(s string) bool {
	switch s {
	case PaymentStatusNone, PaymentStatusPending, PaymentStatusPaid:
		return true
	default:
		return false
	}
}

// ValidAnswers checks submitted application answers against the event's
// questions: same arity, all non-empty.
func ValidAnswers(questions, answers []string) bool {
	if len(answers) != len(questions) {
		return false
	}
	for _, a := range answers {
		if a == "" {
			return false
		}
	}
	return true
}
