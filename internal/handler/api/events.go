// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/olegiv/pipol-go/internal/middleware"
	"github.com/olegiv/pipol-go/internal/model"
	"github.com/olegiv/pipol-go/internal/service"
	"github.com/olegiv/pipol-go/internal/store"
	"github.com/olegiv/pipol-go/internal/util"
	"github.com/olegiv/pipol-go/internal/webhook"
)

const (
	defaultRadiusKm = 25.0
	maxRadiusKm     = 500.0

	// Cap on rows fetched for radius searches before the precise
	// distance filter is applied.
	geoFetchLimit = 500

	multipartMaxMemory = 32 << 20
)

type eventResponse struct {
	model.Event
	Status         string            `json:"status"`
	AttendingCount int64             `json:"attending_count"`
	Organizer      model.UserSummary `json:"organizer"`
	Viewer         *viewerAttendance `json:"viewer,omitempty"`
	DistanceKm     *float64          `json:"distance_km,omitempty"`
}

type viewerAttendance struct {
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
}

type eventRequest struct {
	Title                string    `json:"title"`
	Description          string    `json:"description"`
	Category             string    `json:"category"`
	StartsAt             time.Time `json:"starts_at"`
	Lat                  float64   `json:"lat"`
	Lon                  float64   `json:"lon"`
	LocationName         string    `json:"location_name"`
	Address              string    `json:"address"`
	City                 string    `json:"city"`
	Country              string    `json:"country"`
	PrivacyType          string    `json:"privacy_type"`
	PaymentType          string    `json:"payment_type"`
	PriceCents           int64     `json:"price_cents"`
	Currency             string    `json:"currency"`
	ApplicationQuestions []string  `json:"application_questions"`
	MaxAttendees         *int64    `json:"max_attendees"`
}

type updateEventRequest struct {
	Title                *string           `json:"title"`
	Description          *string           `json:"description"`
	Category             *string           `json:"category"`
	StartsAt             *time.Time        `json:"starts_at"`
	Lat                  *float64          `json:"lat"`
	Lon                  *float64          `json:"lon"`
	LocationName         *string           `json:"location_name"`
	Address              *string           `json:"address"`
	City                 *string           `json:"city"`
	Country              *string           `json:"country"`
	PrivacyType          *string           `json:"privacy_type"`
	PaymentType          *string           `json:"payment_type"`
	PriceCents           *int64            `json:"price_cents"`
	Currency             *string           `json:"currency"`
	ApplicationQuestions *[]string         `json:"application_questions"`
	MaxAttendees         *int64            `json:"max_attendees"`
	ClearMaxAttendees    bool              `json:"clear_max_attendees"`
	MediaItems           []model.MediaItem `json:"media_items"`
}

func validateEventFields(req eventRequest) map[string]string {
	details := make(map[string]string)

	title := strings.TrimSpace(req.Title)
	if len(title) < model.TitleMinLen || len(title) > model.TitleMaxLen {
		details["title"] = fmt.Sprintf("must be %d-%d characters", model.TitleMinLen, model.TitleMaxLen)
	}
	if len(req.Description) > model.DescriptionMaxLen {
		details["description"] = fmt.Sprintf("must be at most %d characters", model.DescriptionMaxLen)
	}
	if !model.ValidCategory(req.Category) {
		details["category"] = "unknown category"
	}
	if req.StartsAt.IsZero() {
		details["starts_at"] = "required"
	}
	if !model.ValidCoordinates(req.Lat, req.Lon) {
		details["lat"] = "coordinates out of range"
	}
	if !model.ValidPrivacyType(req.PrivacyType) {
		details["privacy_type"] = "must be public, approval or application"
	}
	if !model.ValidPaymentType(req.PaymentType) {
		details["payment_type"] = "must be free or paid"
	}
	if req.PaymentType == model.PaymentPaid {
		if req.PriceCents <= 0 {
			details["price_cents"] = "must be positive for paid events"
		}
		if !model.ValidCurrency(req.Currency) {
			details["currency"] = "must be a three-letter ISO 4217 code"
		}
	}
	if len(req.ApplicationQuestions) > model.MaxQuestions {
		details["application_questions"] = fmt.Sprintf("at most %d questions", model.MaxQuestions)
	}
	if len(req.ApplicationQuestions) > 0 && req.PrivacyType != model.PrivacyApplication {
		details["application_questions"] = "only allowed for application privacy"
	}
	for _, q := range req.ApplicationQuestions {
		if strings.TrimSpace(q) == "" {
			details["application_questions"] = "questions must not be empty"
			break
		}
	}
	if req.MaxAttendees != nil && *req.MaxAttendees < 1 {
		details["max_attendees"] = "must be at least 1"
	}

	if len(details) == 0 {
		return nil
	}
	return details
}

// parseEventRequest decodes a create/update body from either a JSON
// request or a multipart form with an "event" JSON field plus "media"
// file parts. File parts are returned unprocessed so validation can run
// before anything is written to disk.
func parseEventRequest(r *http.Request, v interface{}) ([]*multipart.FileHeader, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(multipartMaxMemory); err != nil {
			return nil, err
		}
		raw := r.FormValue("event")
		if raw == "" {
			return nil, errors.New("missing event form field")
		}
		dec := json.NewDecoder(strings.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(v); err != nil {
			return nil, err
		}
		if r.MultipartForm != nil {
			return r.MultipartForm.File["media"], nil
		}
		return nil, nil
	}
	return nil, DecodeJSON(r, v)
}

// saveUploads processes each file part through the media service.
// On any failure the files stored so far are removed again.
func (h *Handler) saveUploads(headers []*multipart.FileHeader) ([]model.MediaItem, error) {
	var items []model.MediaItem
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			h.discardUploads(items)
			return nil, err
		}
		item, err := h.media.SaveUpload(f, fh.Filename, fh.Size)
		f.Close()
		if err != nil {
			h.discardUploads(items)
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (h *Handler) discardUploads(items []model.MediaItem) {
	ids := make([]string, len(items))
	for i, m := range items {
		ids[i] = m.ID
	}
	h.media.DeleteFiles(ids)
}

func writeMediaError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrFileTooLarge):
		PayloadTooLarge(w, "A media file exceeds the upload size limit")
	case errors.Is(err, service.ErrUnsupportedMedia):
		ValidationError(w, "Unsupported media file type", nil)
	case errors.Is(err, service.ErrUnknownMediaItem):
		ValidationError(w, "Submitted media item does not belong to this event", nil)
	case errors.Is(err, service.ErrMissingUploadSlot):
		ValidationError(w, "More new media items than uploaded files", nil)
	default:
		InternalError(w, err)
	}
}

// uniqueSlug derives a URL slug from the title, probing for collisions.
func (h *Handler) uniqueSlug(r *http.Request, title string) (string, error) {
	base := util.Slugify(title)
	if base == "" {
		base = "event"
	}
	slug := base
	for i := 2; ; i++ {
		taken, err := h.queries.SlugExists(r.Context(), slug)
		if err != nil {
			return "", err
		}
		if !taken {
			return slug, nil
		}
		if i > 50 {
			return base + "-" + uuid.NewString()[:8], nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}

// eventFromRequest resolves the {idOrSlug} route parameter.
func (h *Handler) eventFromRequest(r *http.Request) (model.Event, error) {
	idOrSlug := chi.URLParam(r, "idOrSlug")

	var (
		row store.Event
		err error
	)
	if id, perr := strconv.ParseInt(idOrSlug, 10, 64); perr == nil {
		row, err = h.queries.GetEventByID(r.Context(), id)
	} else {
		row, err = h.queries.GetEventBySlug(r.Context(), idOrSlug)
	}
	if err != nil {
		return model.Event{}, err
	}
	return store.EventToModel(row), nil
}

// canManageEvent reports whether the user may modify the event.
func canManageEvent(u model.User, e model.Event) bool {
	return e.OrganizerID == u.ID || u.HasRole(model.RoleAdmin)
}

func (h *Handler) buildEventResponse(r *http.Request, e model.Event, organizers map[int64]model.UserSummary) (eventResponse, error) {
	resp := eventResponse{
		Event:  e,
		Status: e.Status(time.Now().UTC()),
	}

	count, err := h.queries.CountAttending(r.Context(), e.ID)
	if err != nil {
		return resp, err
	}
	resp.AttendingCount = count

	org, ok := organizers[e.OrganizerID]
	if !ok {
		row, err := h.queries.GetUserByID(r.Context(), e.OrganizerID)
		if err != nil {
			return resp, err
		}
		org = userSummary(row)
		if organizers != nil {
			organizers[e.OrganizerID] = org
		}
	}
	resp.Organizer = org

	if u, ok := middleware.UserFromContext(r.Context()); ok && u.ID != e.OrganizerID {
		if a, err := h.queries.GetAttendee(r.Context(), e.ID, u.ID); err == nil {
			resp.Viewer = &viewerAttendance{
				Status:        a.Status,
				PaymentStatus: a.PaymentStatus,
			}
		}
	}
	return resp, nil
}

// ListEvents handles GET /api/events with filtering, geo search and
// pagination.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, perPage := ParsePagination(r)

	filter := store.EventFilter{
		Category:    q.Get("category"),
		PrivacyType: q.Get("privacy_type"),
		PaymentType: q.Get("payment_type"),
		Status:      q.Get("status"),
		Query:       strings.TrimSpace(q.Get("q")),
	}
	if filter.Status == "" {
		filter.Status = model.EventStatusUpcoming
	} else if filter.Status != model.EventStatusUpcoming &&
		filter.Status != model.EventStatusPast &&
		filter.Status != model.EventStatusCanceled &&
		filter.Status != "all" {
		BadRequest(w, "Unknown status filter")
		return
	}
	if filter.Status == "all" {
		filter.Status = ""
	}
	if filter.Category != "" && !model.ValidCategory(filter.Category) {
		BadRequest(w, "Unknown category filter")
		return
	}
	if v := q.Get("organizer_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			BadRequest(w, "organizer_id must be a positive integer")
			return
		}
		filter.OrganizerID = id
	}

	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			BadRequest(w, "from must be an RFC 3339 timestamp")
			return
		}
		filter.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			BadRequest(w, "to must be an RFC 3339 timestamp")
			return
		}
		filter.To = t
	}

	user, loggedIn := middleware.UserFromContext(r.Context())
	personalized := false

	if q.Get("mine") == "true" {
		if !loggedIn {
			Unauthorized(w, "Authentication required for mine=true")
			return
		}
		filter.MemberID = user.ID
		personalized = true
	}

	if q.Get("interests") == "mine" {
		if !loggedIn {
			Unauthorized(w, "Authentication required for interests=mine")
			return
		}
		interests, err := h.queries.GetUserInterests(r.Context(), user.ID)
		if err != nil {
			InternalError(w, err)
			return
		}
		if len(interests) == 0 {
			SuccessMeta(w, []eventResponse{}, NewPageMeta(page, perPage, 0))
			return
		}
		filter.Interests = interests
		personalized = true
	}

	// Geo search: near=lat,lon or near=me plus an optional radius_km.
	var (
		geoSearch        bool
		nearLat, nearLon float64
		radiusKm         = defaultRadiusKm
	)
	if near := q.Get("near"); near != "" {
		if near == "me" {
			loc := h.lookupIP(ClientIP(r))
			if loc.Lat == 0 && loc.Lon == 0 {
				BadRequest(w, "Could not resolve a location for your IP address")
				return
			}
			nearLat, nearLon = loc.Lat, loc.Lon
			personalized = true
		} else {
			parts := strings.SplitN(near, ",", 2)
			if len(parts) != 2 {
				BadRequest(w, "near must be lat,lon or me")
				return
			}
			var err1, err2 error
			nearLat, err1 = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
			nearLon, err2 = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
			if err1 != nil || err2 != nil || !model.ValidCoordinates(nearLat, nearLon) {
				BadRequest(w, "near must be valid lat,lon coordinates")
				return
			}
		}
		if v := q.Get("radius_km"); v != "" {
			rk, err := strconv.ParseFloat(v, 64)
			if err != nil || rk <= 0 || rk > maxRadiusKm {
				BadRequest(w, fmt.Sprintf("radius_km must be in (0, %.0f]", maxRadiusKm))
				return
			}
			radiusKm = rk
		}
		filter.MinLat, filter.MaxLat, filter.MinLon, filter.MaxLon = util.BoundingBox(nearLat, nearLon, radiusKm)
		filter.HasBounds = true
		geoSearch = true
	}

	cacheable := h.listCache != nil && !personalized && !loggedIn
	var cacheKey string
	if cacheable {
		params := map[string]string{
			"category": filter.Category, "privacy_type": filter.PrivacyType,
			"payment_type": filter.PaymentType, "status": filter.Status,
			"q": filter.Query, "organizer_id": q.Get("organizer_id"),
			"from": q.Get("from"), "to": q.Get("to"),
			"near": q.Get("near"), "radius_km": q.Get("radius_km"),
			"page": strconv.FormatInt(page, 10), "per_page": strconv.FormatInt(perPage, 10),
		}
		cacheKey = h.listCache.Key(params)
		if body, err := h.listCache.Get(r.Context(), cacheKey); err == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write(body)
			return
		}
	}

	var (
		rows  []store.Event
		total int64
		err   error
	)
	if geoSearch {
		// Bounding box is a coarse prefilter; fetch the whole box and
		// apply the precise distance check before paginating.
		filter.Limit = geoFetchLimit
		rows, err = h.queries.ListEvents(r.Context(), filter)
	} else {
		filter.Limit = perPage
		filter.Offset = (page - 1) * perPage
		rows, err = h.queries.ListEvents(r.Context(), filter)
		if err == nil {
			total, err = h.queries.CountEvents(r.Context(), filter)
		}
	}
	if err != nil {
		InternalError(w, err)
		return
	}

	events := make([]model.Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, store.EventToModel(row))
	}

	var distances map[int64]float64
	if geoSearch {
		distances = make(map[int64]float64, len(events))
		kept := events[:0]
		for _, e := range events {
			d := util.HaversineKm(nearLat, nearLon, e.Lat, e.Lon)
			if d <= radiusKm {
				distances[e.ID] = d
				kept = append(kept, e)
			}
		}
		events = kept
		total = int64(len(events))

		start := (page - 1) * perPage
		if start > int64(len(events)) {
			start = int64(len(events))
		}
		end := start + perPage
		if end > int64(len(events)) {
			end = int64(len(events))
		}
		events = events[start:end]
	}

	organizers := make(map[int64]model.UserSummary)
	out := make([]eventResponse, 0, len(events))
	for _, e := range events {
		resp, err := h.buildEventResponse(r, e, organizers)
		if err != nil {
			InternalError(w, err)
			return
		}
		if d, ok := distances[e.ID]; ok {
			dd := d
			resp.DistanceKm = &dd
		}
		out = append(out, resp)
	}

	if cacheable {
		body, err := json.Marshal(Response{Data: out, Meta: NewPageMeta(page, perPage, total)})
		if err == nil {
			_ = h.listCache.Set(r.Context(), cacheKey, body)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write(body)
			return
		}
	}
	SuccessMeta(w, out, NewPageMeta(page, perPage, total))
}

// GetEvent handles GET /api/events/{idOrSlug}.
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	e, err := h.eventFromRequest(r)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			NotFound(w, "Event not found")
			return
		}
		InternalError(w, err)
		return
	}

	resp, err := h.buildEventResponse(r, e, nil)
	if err != nil {
		InternalError(w, err)
		return
	}
	Success(w, resp)
}

// CreateEvent handles POST /api/events.
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())

	req := eventRequest{
		PrivacyType: model.PrivacyPublic,
		PaymentType: model.PaymentFree,
	}
	files, err := parseEventRequest(r, &req)
	if err != nil {
		BadRequest(w, "Invalid request body")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))

	if details := validateEventFields(req); details != nil {
		ValidationError(w, "Event failed validation", details)
		return
	}
	if !req.StartsAt.After(time.Now()) {
		ValidationError(w, "Event failed validation", map[string]string{
			"starts_at": "must be in the future",
		})
		return
	}

	uploaded, err := h.saveUploads(files)
	if err != nil {
		writeMediaError(w, err)
		return
	}

	var media model.MediaList
	for _, item := range uploaded {
		item.Status = ""
		media = model.Add(media, item)
	}
	media = model.Repair(media)

	mainURL, mainType := "", ""
	if main, ok := model.Main(media); ok {
		mainURL, mainType = main.URL, main.Type
	}

	slug, err := h.uniqueSlug(r, req.Title)
	if err != nil {
		h.discardUploads(uploaded)
		InternalError(w, err)
		return
	}

	questionsJSON := marshalList(req.ApplicationQuestions)
	mediaJSON := marshalList(media)

	if req.PaymentType == model.PaymentFree {
		req.PriceCents = 0
		req.Currency = ""
	}

	row, err := h.queries.CreateEvent(r.Context(), store.CreateEventParams{
		Slug:                 slug,
		OrganizerID:          user.ID,
		Title:                req.Title,
		Description:          req.Description,
		DescriptionHTML:      service.RenderMarkdown(req.Description),
		Category:             req.Category,
		StartsAt:             req.StartsAt.UTC(),
		Lat:                  req.Lat,
		Lon:                  req.Lon,
		LocationName:         strings.TrimSpace(req.LocationName),
		Address:              strings.TrimSpace(req.Address),
		City:                 strings.TrimSpace(req.City),
		Country:              strings.TrimSpace(req.Country),
		PrivacyType:          req.PrivacyType,
		PaymentType:          req.PaymentType,
		PriceCents:           req.PriceCents,
		Currency:             req.Currency,
		ApplicationQuestions: questionsJSON,
		MaxAttendees:         util.NullInt64FromPtr(req.MaxAttendees),
		MediaItems:           mediaJSON,
		MainMediaURL:         mainURL,
		MainMediaType:        mainType,
	})
	if err != nil {
		h.discardUploads(uploaded)
		InternalError(w, err)
		return
	}
	e := store.EventToModel(row)

	h.invalidateListCache(r)
	h.dispatch(webhook.NewEventPayload(model.TopicEventCreated, e))
	slog.Info("event created", "user_id", user.ID, "event_id", e.ID, "slug", e.Slug)

	resp, err := h.buildEventResponse(r, e, nil)
	if err != nil {
		InternalError(w, err)
		return
	}
	Created(w, resp)
}

// UpdateEvent handles PUT /api/events/{idOrSlug}. Only the organizer or
// an admin may update; media items are reconciled against the stored
// list and files for removed items are deleted after the write commits.
func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
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
	if !canManageEvent(user, e) {
		Forbidden(w, "Only the organizer may update this event")
		return
	}

	var req updateEventRequest
	files, err := parseEventRequest(r, &req)
	if err != nil {
		BadRequest(w, "Invalid request body")
		return
	}

	merged := eventRequest{
		Title:                e.Title,
		Description:          e.Description,
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
		ApplicationQuestions: e.ApplicationQuestions,
		MaxAttendees:         e.MaxAttendees,
	}
	if req.Title != nil {
		merged.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		merged.Description = *req.Description
	}
	if req.Category != nil {
		merged.Category = *req.Category
	}
	if req.StartsAt != nil {
		merged.StartsAt = req.StartsAt.UTC()
	}
	if req.Lat != nil {
		merged.Lat = *req.Lat
	}
	if req.Lon != nil {
		merged.Lon = *req.Lon
	}
	if req.LocationName != nil {
		merged.LocationName = strings.TrimSpace(*req.LocationName)
	}
	if req.Address != nil {
		merged.Address = strings.TrimSpace(*req.Address)
	}
	if req.City != nil {
		merged.City = strings.TrimSpace(*req.City)
	}
	if req.Country != nil {
		merged.Country = strings.TrimSpace(*req.Country)
	}
	if req.PrivacyType != nil {
		merged.PrivacyType = *req.PrivacyType
	}
	if req.PaymentType != nil {
		merged.PaymentType = *req.PaymentType
	}
	if req.PriceCents != nil {
		merged.PriceCents = *req.PriceCents
	}
	if req.Currency != nil {
		merged.Currency = strings.ToUpper(strings.TrimSpace(*req.Currency))
	}
	if req.ApplicationQuestions != nil {
		merged.ApplicationQuestions = *req.ApplicationQuestions
	}
	if req.MaxAttendees != nil {
		merged.MaxAttendees = req.MaxAttendees
	}
	if req.ClearMaxAttendees {
		merged.MaxAttendees = nil
	}

	if details := validateEventFields(merged); details != nil {
		ValidationError(w, "Event failed validation", details)
		return
	}
	if req.StartsAt != nil && !merged.StartsAt.After(time.Now()) {
		ValidationError(w, "Event failed validation", map[string]string{
			"starts_at": "must be in the future",
		})
		return
	}
	if merged.PaymentType == model.PaymentFree {
		merged.PriceCents = 0
		merged.Currency = ""
	}

	descriptionHTML := e.DescriptionHTML
	if req.Description != nil {
		descriptionHTML = service.RenderMarkdown(merged.Description)
	}

	// Media reconciliation only runs when the request submits a media
	// list; a request without one leaves the attachments untouched.
	reconcileMedia := req.MediaItems != nil || len(files) > 0

	var (
		uploaded   []model.MediaItem
		newMedia   model.MediaList
		deletedIDs []string
	)
	if reconcileMedia {
		uploaded, err = h.saveUploads(files)
		if err != nil {
			writeMediaError(w, err)
			return
		}
		newMedia, deletedIDs, err = h.media.Reconcile(e.MediaItems, req.MediaItems, uploaded)
		if err != nil {
			h.discardUploads(uploaded)
			writeMediaError(w, err)
			return
		}
	}

	questionsJSON := marshalList(merged.ApplicationQuestions)

	tx, err := h.db.BeginTx(r.Context(), nil)
	if err != nil {
		h.discardUploads(uploaded)
		InternalError(w, err)
		return
	}
	defer tx.Rollback()
	qtx := h.queries.WithTx(tx)

	if err := qtx.UpdateEvent(r.Context(), store.UpdateEventParams{
		ID:                   e.ID,
		Title:                merged.Title,
		Description:          merged.Description,
		DescriptionHTML:      descriptionHTML,
		Category:             merged.Category,
		StartsAt:             merged.StartsAt.UTC(),
		Lat:                  merged.Lat,
		Lon:                  merged.Lon,
		LocationName:         merged.LocationName,
		Address:              merged.Address,
		City:                 merged.City,
		Country:              merged.Country,
		PrivacyType:          merged.PrivacyType,
		PaymentType:          merged.PaymentType,
		PriceCents:           merged.PriceCents,
		Currency:             merged.Currency,
		ApplicationQuestions: questionsJSON,
		MaxAttendees:         util.NullInt64FromPtr(merged.MaxAttendees),
	}); err != nil {
		h.discardUploads(uploaded)
		InternalError(w, err)
		return
	}

	if reconcileMedia {
		mediaJSON := marshalList(newMedia)
		mainURL, mainType := "", ""
		if main, ok := model.Main(newMedia); ok {
			mainURL, mainType = main.URL, main.Type
		}
		if err := qtx.UpdateEventMedia(r.Context(), e.ID, mediaJSON, mainURL, mainType); err != nil {
			h.discardUploads(uploaded)
			InternalError(w, err)
			return
		}
	}

	if err := tx.Commit(); err != nil {
		h.discardUploads(uploaded)
		InternalError(w, err)
		return
	}

	// Files for removed items go away only after the commit so a failed
	// write never orphans the stored list.
	if len(deletedIDs) > 0 {
		h.media.DeleteFiles(deletedIDs)
	}

	row, err := h.queries.GetEventByID(r.Context(), e.ID)
	if err != nil {
		InternalError(w, err)
		return
	}
	updated := store.EventToModel(row)

	h.invalidateListCache(r)
	h.dispatch(webhook.NewEventPayload(model.TopicEventUpdated, updated))
	slog.Info("event updated", "user_id", user.ID, "event_id", e.ID)

	resp, err := h.buildEventResponse(r, updated, nil)
	if err != nil {
		InternalError(w, err)
		return
	}
	Success(w, resp)
}

// CancelEvent handles POST /api/events/{idOrSlug}/cancel. Canceling is
// idempotent; the webhook fires only on the first transition.
func (h *Handler) CancelEvent(w http.ResponseWriter, r *http.Request) {
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
	if !canManageEvent(user, e) {
		Forbidden(w, "Only the organizer may cancel this event")
		return
	}

	alreadyCanceled := e.Canceled
	if err := h.queries.CancelEvent(r.Context(), e.ID); err != nil {
		InternalError(w, err)
		return
	}
	e.Canceled = true

	if !alreadyCanceled {
		h.invalidateListCache(r)
		h.dispatch(webhook.NewEventPayload(model.TopicEventCanceled, e))
		slog.Info("event canceled", "user_id", user.ID, "event_id", e.ID)
	}

	resp, err := h.buildEventResponse(r, e, nil)
	if err != nil {
		InternalError(w, err)
		return
	}
	Success(w, resp)
}

// DeleteEvent handles DELETE /api/events/{idOrSlug}. Media files are
// removed only after the row is gone.
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
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
	if !canManageEvent(user, e) {
		Forbidden(w, "Only the organizer may delete this event")
		return
	}

	if err := h.queries.DeleteEvent(r.Context(), e.ID); err != nil {
		InternalError(w, err)
		return
	}

	ids := make([]string, len(e.MediaItems))
	for i, m := range e.MediaItems {
		ids[i] = m.ID
	}
	h.media.DeleteFiles(ids)

	h.invalidateListCache(r)
	h.dispatch(webhook.NewEventPayload(model.TopicEventDeleted, e))
	slog.Info("event deleted", "user_id", user.ID, "event_id", e.ID)
	NoContent(w)
}

// marshalList encodes a slice as JSON, mapping nil to an empty array so
// the NOT NULL JSON columns never see SQL NULL or the literal "null".
func marshalList[T any](list []T) []byte {
	if list == nil {
		return []byte("[]")
	}
	b, err := json.Marshal(list)
	if err != nil {
		return []byte("[]")
	}
	return b
}

func (h *Handler) invalidateListCache(r *http.Request) {
	if h.listCache == nil {
		return
	}
	if err := h.listCache.Invalidate(r.Context()); err != nil {
		slog.Warn("event list cache invalidation failed", "error", err)
	}
}
