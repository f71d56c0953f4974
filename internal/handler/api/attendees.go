// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/pipol-go/internal/middleware"
	"github.com/olegiv/pipol-go/internal/model"
	"github.com/olegiv/pipol-go/internal/store"
	"github.com/olegiv/pipol-go/internal/util"
	"github.com/olegiv/pipol-go/internal/webhook"
)

type attendRequest struct {
	Answers []string `json:"answers"`
}

type attendeeView struct {
	ID                 int64             `json:"id"`
	User               model.UserSummary `json:"user"`
	Status             string            `json:"status"`
	PaymentStatus      string            `json:"payment_status"`
	ApplicationAnswers []string          `json:"application_answers,omitempty"`
	PaymentExpiresAt   *time.Time        `json:"payment_expires_at,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
}

func attendeeToView(row store.Attendee, user model.UserSummary, includePrivate bool) attendeeView {
	v := attendeeView{
		ID:            row.ID,
		User:          user,
		Status:        row.Status,
		PaymentStatus: row.PaymentStatus,
		CreatedAt:     row.CreatedAt,
	}
	if includePrivate {
		if len(row.Answers) > 0 {
			_ = json.Unmarshal(row.Answers, &v.ApplicationAnswers)
		}
		v.PaymentExpiresAt = util.NullTimeToPtr(row.PaymentExpiresAt)
	}
	return v
}

// capacityLeft reports whether the event has room for one more
// confirmed attendee. Unexpired payment holds count against capacity.
func capacityLeft(ctx context.Context, q *store.Queries, e model.Event) (bool, error) {
	if e.MaxAttendees == nil {
		return true, nil
	}
	attending, err := q.CountAttending(ctx, e.ID)
	if err != nil {
		return false, err
	}
	holds, err := q.CountPendingPayments(ctx, e.ID)
	if err != nil {
		return false, err
	}
	return attending+holds < *e.MaxAttendees, nil
}

// Attend handles POST /api/events/{idOrSlug}/attend.
func (h *Handler) Attend(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())

	e, err := h.eventFromRequest(r)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			NotFound(w, "Event not found")
			return
		}
		InternalError(w, err)
		return
	}

	now := time.Now().UTC()
	switch {
	case e.Canceled:
		Gone(w, "Event has been canceled")
		return
	case e.StartsAt.Before(now):
		Conflict(w, "Event has already started")
		return
	case e.OrganizerID == user.ID:
		Conflict(w, "Organizers attend their own events implicitly")
		return
	}

	if _, err := h.queries.GetAttendee(r.Context(), e.ID, user.ID); err == nil {
		Conflict(w, "You have already requested to attend this event")
		return
	}

	var req attendRequest
	if r.ContentLength > 0 {
		if err := DecodeJSON(r, &req); err != nil {
			BadRequest(w, "Invalid JSON body")
			return
		}
	}
	if e.RequiresApplication() && !model.ValidAnswers(e.ApplicationQuestions, req.Answers) {
		ValidationError(w, "Application answers are required", map[string]string{
			"answers": "every question needs a non-empty answer",
		})
		return
	}

	status := model.AttendeeStatusApproved
	paymentStatus := model.PaymentStatusNone
	var paymentExpires sql.NullTime
	if e.RequiresApproval() {
		status = model.AttendeeStatusPending
	} else if e.IsPaid() {
		paymentStatus = model.PaymentStatusPending
		paymentExpires = sql.NullTime{Time: now.Add(model.PaymentHoldDuration), Valid: true}
	}

	answersJSON := []byte("[]")
	if len(req.Answers) > 0 {
		answersJSON, _ = json.Marshal(req.Answers)
	}

	tx, err := h.db.BeginTx(r.Context(), nil)
	if err != nil {
		InternalError(w, err)
		return
	}
	defer tx.Rollback()
	qtx := h.queries.WithTx(tx)

	// Only a spot that immediately consumes capacity needs the check;
	// pending approvals take a spot at decision time.
	if status == model.AttendeeStatusApproved {
		ok, err := capacityLeft(r.Context(), qtx, e)
		if err != nil {
			InternalError(w, err)
			return
		}
		if !ok {
			Conflict(w, "Event is full")
			return
		}
	}

	row, err := qtx.CreateAttendee(r.Context(), store.CreateAttendeeParams{
		EventID:          e.ID,
		UserID:           user.ID,
		Status:           status,
		PaymentStatus:    paymentStatus,
		PaymentExpiresAt: paymentExpires,
		Answers:          answersJSON,
	})
	if err != nil {
		InternalError(w, err)
		return
	}
	if err := tx.Commit(); err != nil {
		InternalError(w, err)
		return
	}

	h.invalidateListCache(r)
	h.dispatch(webhook.NewAttendeePayload(model.TopicAttendeeCreated, store.AttendeeToModel(row)))
	slog.Info("attendance requested", "user_id", user.ID, "event_id", e.ID, "status", status)

	Created(w, attendeeToView(row, user.Summary(), true))
}

// Leave handles DELETE /api/events/{idOrSlug}/attend.
func (h *Handler) Leave(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())

	e, err := h.eventFromRequest(r)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			NotFound(w, "Event not found")
			return
		}
		InternalError(w, err)
		return
	}

	row, err := h.queries.GetAttendee(r.Context(), e.ID, user.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			NotFound(w, "You are not attending this event")
			return
		}
		InternalError(w, err)
		return
	}

	if err := h.queries.DeleteAttendee(r.Context(), row.ID); err != nil {
		InternalError(w, err)
		return
	}

	h.invalidateListCache(r)
	slog.Info("attendance withdrawn", "user_id", user.ID, "event_id", e.ID)
	NoContent(w)
}

// ListAttendees handles GET /api/events/{idOrSlug}/attendees. The
// organizer sees every record with answers and payment state; everyone
// else sees only confirmed attendees.
func (h *Handler) ListAttendees(w http.ResponseWriter, r *http.Request) {
	e, err := h.eventFromRequest(r)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			NotFound(w, "Event not found")
			return
		}
		InternalError(w, err)
		return
	}

	viewer, loggedIn := middleware.UserFromContext(r.Context())
	manages := loggedIn && canManageEvent(viewer, e)

	page, perPage := ParsePagination(r)
	rows, err := h.queries.ListAttendeePage(r.Context(), store.ListAttendeePageParams{
		EventID:       e.ID,
		AttendingOnly: !manages,
		Limit:         perPage,
		Offset:        (page - 1) * perPage,
	})
	if err != nil {
		InternalError(w, err)
		return
	}

	var total int64
	if manages {
		total, err = h.queries.CountAttendeesByEvent(r.Context(), e.ID)
	} else {
		total, err = h.queries.CountAttending(r.Context(), e.ID)
	}
	if err != nil {
		InternalError(w, err)
		return
	}

	out := make([]attendeeView, 0, len(rows))
	for _, row := range rows {
		u := model.UserSummary{
			ID:        row.UserID,
			Username:  row.Username,
			Name:      row.Name,
			AvatarURL: row.AvatarURL,
		}
		out = append(out, attendeeToView(row.Attendee, u, manages))
	}
	SuccessMeta(w, out, NewPageMeta(page, perPage, total))
}

// DecideAttendee handles POST /api/events/{idOrSlug}/attendees/{attendeeID}/{decision}
// where decision is approve or reject. Organizer only, and only
// pending requests can be decided.
func (h *Handler) DecideAttendee(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())

	decision := chi.URLParam(r, "decision")
	if decision != "approve" && decision != "reject" {
		BadRequest(w, "Decision must be approve or reject")
		return
	}

	e, err := h.eventFromRequest(r)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			NotFound(w, "Event not found")
			return
		}
		InternalError(w, err)
		return
	}
	if !canManageEvent(user, e) {
		Forbidden(w, "Only the organizer may decide attendance requests")
		return
	}

	attendeeID, err := strconv.ParseInt(chi.URLParam(r, "attendeeID"), 10, 64)
	if err != nil {
		BadRequest(w, "Invalid attendee id")
		return
	}
	row, err := h.queries.GetAttendeeByID(r.Context(), attendeeID)
	if err != nil || row.EventID != e.ID {
		NotFound(w, "Attendance request not found")
		return
	}
	if row.Status != model.AttendeeStatusPending {
		Conflict(w, "Request has already been decided")
		return
	}

	params := store.UpdateAttendeeStatusParams{
		ID:            row.ID,
		PaymentStatus: model.PaymentStatusNone,
		DecidedBy:     user.ID,
	}
	topic := model.TopicAttendeeRejected
	if decision == "approve" {
		params.Status = model.AttendeeStatusApproved
		topic = model.TopicAttendeeApproved
		if e.IsPaid() {
			params.PaymentStatus = model.PaymentStatusPending
			params.PaymentExpiresAt = sql.NullTime{
				Time:  time.Now().UTC().Add(model.PaymentHoldDuration),
				Valid: true,
			}
		}
	} else {
		params.Status = model.AttendeeStatusRejected
	}

	tx, err := h.db.BeginTx(r.Context(), nil)
	if err != nil {
		InternalError(w, err)
		return
	}
	defer tx.Rollback()
	qtx := h.queries.WithTx(tx)

	if decision == "approve" {
		ok, err := capacityLeft(r.Context(), qtx, e)
		if err != nil {
			InternalError(w, err)
			return
		}
		if !ok {
			Conflict(w, "Event is full")
			return
		}
	}
	if err := qtx.UpdateAttendeeStatus(r.Context(), params); err != nil {
		InternalError(w, err)
		return
	}
	if err := tx.Commit(); err != nil {
		InternalError(w, err)
		return
	}

	updated, err := h.queries.GetAttendeeByID(r.Context(), row.ID)
	if err != nil {
		InternalError(w, err)
		return
	}

	h.invalidateListCache(r)
	h.dispatch(webhook.NewAttendeePayload(topic, store.AttendeeToModel(updated)))
	slog.Info("attendance decided",
		"user_id", user.ID,
		"event_id", e.ID,
		"attendee_id", row.ID,
		"decision", decision,
	)

	u, err := h.queries.GetUserByID(r.Context(), updated.UserID)
	if err != nil {
		InternalError(w, err)
		return
	}
	Success(w, attendeeToView(updated, userSummary(u), true))
}

// ConfirmPayment handles POST /api/events/{idOrSlug}/payment. The hold
// must still be open; an expired hold is gone even if the scheduler has
// not released it yet.
func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())

	e, err := h.eventFromRequest(r)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			NotFound(w, "Event not found")
			return
		}
		InternalError(w, err)
		return
	}

	row, err := h.queries.GetAttendee(r.Context(), e.ID, user.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			NotFound(w, "You are not attending this event")
			return
		}
		InternalError(w, err)
		return
	}

	if row.PaymentStatus != model.PaymentStatusPending {
		Conflict(w, "No payment is due for this event")
		return
	}
	if row.PaymentExpiresAt.Valid && row.PaymentExpiresAt.Time.Before(time.Now().UTC()) {
		Gone(w, "The payment hold has expired")
		return
	}

	if err := h.queries.MarkAttendeePaid(r.Context(), row.ID); err != nil {
		InternalError(w, err)
		return
	}

	updated, err := h.queries.GetAttendeeByID(r.Context(), row.ID)
	if err != nil {
		InternalError(w, err)
		return
	}

	h.invalidateListCache(r)
	slog.Info("payment confirmed", "user_id", user.ID, "event_id", e.ID, "attendee_id", row.ID)
	Success(w, attendeeToView(updated, user.Summary(), true))
}
