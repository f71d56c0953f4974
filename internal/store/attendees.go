// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

// Attendee is a database row from the event_attendees table.
type Attendee struct {
	ID               int64
	EventID          int64
	UserID           int64
	Status           string
	PaymentStatus    string
	PaymentExpiresAt sql.NullTime
	Answers          []byte
	DecidedAt        sql.NullTime
	DecidedBy        sql.NullInt64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

const attendeeColumns = `id, event_id, user_id, status, payment_status, payment_expires_at, application_answers, decided_at, decided_by, created_at, updated_at`

func scanAttendee(row interface{ Scan(...interface{}) error }) (Attendee, error) {
	var a Attendee
	err := row.Scan(
		&a.ID,
		&a.EventID,
		&a.UserID,
		&a.Status,
		&a.PaymentStatus,
		&a.PaymentExpiresAt,
		&a.Answers,
		&a.DecidedAt,
		&a.DecidedBy,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	return a, err
}

// CreateAttendeeParams holds the fields for creating an attendance record.
type CreateAttendeeParams struct {
	EventID          int64
	UserID           int64
	Status           string
	PaymentStatus    string
	PaymentExpiresAt sql.NullTime
	Answers          []byte
}

const createAttendee = `
INSERT INTO event_attendees (event_id, user_id, status, payment_status, payment_expires_at, application_answers)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + attendeeColumns

// CreateAttendee inserts a new attendance record.
func (q *Queries) CreateAttendee(ctx context.Context, arg CreateAttendeeParams) (Attendee, error) {
	row := q.db.QueryRowContext(ctx, createAttendee,
		arg.EventID,
		arg.UserID,
		arg.Status,
		arg.PaymentStatus,
		arg.PaymentExpiresAt,
		arg.Answers,
	)
	return scanAttendee(row)
}

const getAttendee = `
SELECT ` + attendeeColumns + ` FROM event_attendees WHERE event_id = $1 AND user_id = $2`

// GetAttendee fetches an attendance record by event and user.
func (q *Queries) GetAttendee(ctx context.Context, eventID, userID int64) (Attendee, error) {
	return scanAttendee(q.db.QueryRowContext(ctx, getAttendee, eventID, userID))
}

const getAttendeeByID = `
SELECT ` + attendeeColumns + ` FROM event_attendees WHERE id = $1`

// GetAttendeeByID fetches an attendance record by primary key.
func (q *Queries) GetAttendeeByID(ctx context.Context, id int64) (Attendee, error) {
	return scanAttendee(q.db.QueryRowContext(ctx, getAttendeeByID, id))
}

// AttendeeWithUser is an attendance row joined with the attendee's
// public profile fields.
type AttendeeWithUser struct {
	Attendee
	Username  string
	Name      string
	AvatarURL string
}

// ListAttendeePageParams selects one page of an event's attendee list.
// AttendingOnly restricts the page to confirmed attendees.
type ListAttendeePageParams struct {
	EventID       int64
	AttendingOnly bool
	Limit         int64
	Offset        int64
}

const attendeeWithUserColumns = `a.id, a.event_id, a.user_id, a.status, a.payment_status, a.payment_expires_at, a.application_answers, a.decided_at, a.decided_by, a.created_at, a.updated_at, u.username, u.name, u.avatar_url`

const listAttendeePage = `
SELECT ` + attendeeWithUserColumns + `
FROM event_attendees a
JOIN users u ON u.id = a.user_id
WHERE a.event_id = $1
ORDER BY a.created_at ASC, a.id ASC
LIMIT $2 OFFSET $3`

const listAttendingPage = `
SELECT ` + attendeeWithUserColumns + `
FROM event_attendees a
JOIN users u ON u.id = a.user_id
WHERE a.event_id = $1 AND a.status = 'approved' AND (a.payment_status = 'none' OR a.payment_status = 'paid')
ORDER BY a.created_at ASC, a.id ASC
LIMIT $2 OFFSET $3`

// ListAttendeePage returns one page of an event's attendance records in
// application order, each joined with the attendee's profile summary.
func (q *Queries) ListAttendeePage(ctx context.Context, arg ListAttendeePageParams) ([]AttendeeWithUser, error) {
	query := listAttendeePage
	if arg.AttendingOnly {
		query = listAttendingPage
	}
	rows, err := q.db.QueryContext(ctx, query, arg.EventID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attendees []AttendeeWithUser
	for rows.Next() {
		var a AttendeeWithUser
		err := rows.Scan(
			&a.ID,
			&a.EventID,
			&a.UserID,
			&a.Status,
			&a.PaymentStatus,
			&a.PaymentExpiresAt,
			&a.Answers,
			&a.DecidedAt,
			&a.DecidedBy,
			&a.CreatedAt,
			&a.UpdatedAt,
			&a.Username,
			&a.Name,
			&a.AvatarURL,
		)
		if err != nil {
			return nil, err
		}
		attendees = append(attendees, a)
	}
	return attendees, rows.Err()
}

const countAttendeesByEvent = `
SELECT COUNT(*) FROM event_attendees WHERE event_id = $1`

// CountAttendeesByEvent returns the total number of attendance records
// for an event regardless of status.
func (q *Queries) CountAttendeesByEvent(ctx context.Context, eventID int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countAttendeesByEvent, eventID).Scan(&n)
	return n, err
}

const countAttending = `
SELECT COUNT(*) FROM event_attendees
WHERE event_id = $1 AND status = 'approved' AND (payment_status = 'none' OR payment_status = 'paid')`

// CountAttending returns the number of confirmed attendees for an event:
// approved records whose payment, if required, has completed.
func (q *Queries) CountAttending(ctx context.Context, eventID int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countAttending, eventID).Scan(&n)
	return n, err
}

const countPendingPayments = `
SELECT COUNT(*) FROM event_attendees
WHERE event_id = $1 AND status = 'approved' AND payment_status = 'pending' AND payment_expires_at > $2`

// CountPendingPayments returns the number of unexpired payment holds for
// an event. Holds count against capacity until they expire.
func (q *Queries) CountPendingPayments(ctx context.Context, eventID int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countPendingPayments, eventID, time.Now().UTC()).Scan(&n)
	return n, err
}

// UpdateAttendeeStatusParams holds an organizer decision.
type UpdateAttendeeStatusParams struct {
	ID               int64
	Status           string
	PaymentStatus    string
	PaymentExpiresAt sql.NullTime
	DecidedBy        int64
}

const updateAttendeeStatus = `
UPDATE event_attendees
SET status = $1, payment_status = $2, payment_expires_at = $3, decided_at = $4, decided_by = $5, updated_at = $6
WHERE id = $7`

// UpdateAttendeeStatus records an organizer's approve/reject decision.
func (q *Queries) UpdateAttendeeStatus(ctx context.Context, arg UpdateAttendeeStatusParams) error {
	now := time.Now().UTC()
	_, err := q.db.ExecContext(ctx, updateAttendeeStatus,
		arg.Status,
		arg.PaymentStatus,
		arg.PaymentExpiresAt,
		now,
		arg.DecidedBy,
		now,
		arg.ID,
	)
	return err
}

const markAttendeePaid = `
UPDATE event_attendees SET payment_status = 'paid', payment_expires_at = NULL, updated_at = $1 WHERE id = $2`

// MarkAttendeePaid records a completed payment and clears the hold.
func (q *Queries) MarkAttendeePaid(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, markAttendeePaid, time.Now().UTC(), id)
	return err
}

const deleteAttendee = `
DELETE FROM event_attendees WHERE id = $1`

// DeleteAttendee removes an attendance record.
func (q *Queries) DeleteAttendee(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteAttendee, id)
	return err
}

const listExpiredPaymentHolds = `
SELECT ` + attendeeColumns + ` FROM event_attendees
WHERE payment_status = 'pending' AND payment_expires_at IS NOT NULL AND payment_expires_at <= $1`

// ListExpiredPaymentHolds returns attendance records whose payment window
// has lapsed.
func (q *Queries) ListExpiredPaymentHolds(ctx context.Context, now time.Time) ([]Attendee, error) {
	rows, err := q.db.QueryContext(ctx, listExpiredPaymentHolds, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attendees []Attendee
	for rows.Next() {
		a, err := scanAttendee(rows)
		if err != nil {
			return nil, err
		}
		attendees = append(attendees, a)
	}
	return attendees, rows.Err()
}
