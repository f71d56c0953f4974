// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/pipol-go/internal/middleware"
	"github.com/olegiv/pipol-go/internal/model"
	"github.com/olegiv/pipol-go/internal/service"
	"github.com/olegiv/pipol-go/internal/session"
	"github.com/olegiv/pipol-go/internal/store"
	"github.com/olegiv/pipol-go/internal/testutil"
	"github.com/olegiv/pipol-go/internal/util"
)

var testIPCounter atomic.Int64

// testValidateHookURL mirrors util.ValidateWebhookURL without the DNS
// resolution step.
func testValidateHookURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("URL must use http or https scheme")
	}
	if u.Hostname() == "" {
		return errors.New("URL must have a hostname")
	}
	if ip := net.ParseIP(u.Hostname()); ip != nil && util.IsPrivateIP(ip) {
		return errors.New("private or reserved IP addresses are not allowed")
	}
	return nil
}

// testApp runs the API route tree against an in-memory database with
// an in-memory session store. Cookies persist across requests so tests
// can exercise full login flows.
type testApp struct {
	t       *testing.T
	router  http.Handler
	queries *store.Queries
	db      *sql.DB
	cookies map[string]*http.Cookie
	ip      string
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	db := testutil.TestDB(t)
	queries := store.New(db)
	sessions := session.NewMemoryManager()
	media := service.NewMediaService(t.TempDir(), 10<<20)
	loginProt := middleware.NewLoginProtection()
	t.Cleanup(loginProt.Close)

	h := New(Config{
		DB:        db,
		Queries:   queries,
		Sessions:  sessions,
		Media:     media,
		LoginProt: loginProt,
	})
	// The production validator resolves hostnames over DNS; tests keep
	// the structural and private-address checks only.
	h.validateHookURL = testValidateHookURL

	r := chi.NewRouter()
	r.Use(sessions.LoadAndSave)
	r.Use(middleware.LoadUser(sessions, queries))
	r.Mount("/api", h.Routes())
	r.Get("/health", h.Health)
	r.Get("/health/live", h.Live)
	r.Get("/health/ready", h.Ready)

	// A distinct client IP per test keeps the login limiter out of the
	// way for tests that are not about it.
	ip := fmt.Sprintf("203.0.113.%d:4000", testIPCounter.Add(1)%250+1)

	return &testApp{
		t:       t,
		router:  r,
		queries: queries,
		db:      db,
		cookies: make(map[string]*http.Cookie),
		ip:      ip,
	}
}

func (a *testApp) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()

	if body == nil {
		return a.doRaw(method, path, "", nil)
	}
	b, err := json.Marshal(body)
	if err != nil {
		a.t.Fatalf("marshal request body: %v", err)
	}
	return a.doRaw(method, path, "application/json", bytes.NewReader(b))
}

// doRaw sends a request with a prebuilt body, for multipart uploads.
func (a *testApp) doRaw(method, path, contentType string, body io.Reader) *httptest.ResponseRecorder {
	a.t.Helper()

	req := httptest.NewRequest(method, path, body)
	req.RemoteAddr = a.ip
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for _, c := range a.cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(a.cookies, c.Name)
		} else {
			a.cookies[c.Name] = c
		}
	}
	return rec
}

// signup registers a fresh account, which also logs the app in.
func (a *testApp) signup(username string) model.User {
	a.t.Helper()

	rec := a.do(http.MethodPost, "/api/auth/register", map[string]interface{}{
		"email":    username + "@example.com",
		"username": username,
		"password": "correct-horse",
		"name":     "Test " + username,
	})
	if rec.Code != http.StatusCreated {
		a.t.Fatalf("signup %q: status = %d, body %s", username, rec.Code, rec.Body.String())
	}
	return decodeData[model.User](a.t, rec)
}

func (a *testApp) login(email, password string) *httptest.ResponseRecorder {
	a.t.Helper()
	return a.do(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
}

func (a *testApp) logout() {
	a.t.Helper()
	if rec := a.do(http.MethodPost, "/api/auth/logout", nil); rec.Code != http.StatusNoContent {
		a.t.Fatalf("logout: status = %d", rec.Code)
	}
}

// promoteAdmin flips a user to the admin role directly in the database.
func (a *testApp) promoteAdmin(userID int64) {
	a.t.Helper()
	if _, err := a.db.Exec(`UPDATE users SET role = 'admin' WHERE id = $1`, userID); err != nil {
		a.t.Fatalf("promote admin: %v", err)
	}
}

// createEvent posts a minimal valid event with the given overrides.
func (a *testApp) createEvent(overrides map[string]interface{}) eventResponse {
	a.t.Helper()

	body := map[string]interface{}{
		"title":     "Rooftop Jazz Night",
		"category":  model.CategoryMusic,
		"starts_at": "2030-06-15T19:00:00Z",
		"lat":       52.52,
		"lon":       13.405,
		"city":      "Berlin",
		"country":   "DE",
	}
	for k, v := range overrides {
		body[k] = v
	}

	rec := a.do(http.MethodPost, "/api/events", body)
	if rec.Code != http.StatusCreated {
		a.t.Fatalf("create event: status = %d, body %s", rec.Code, rec.Body.String())
	}
	return decodeData[eventResponse](a.t, rec)
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var resp struct {
		Data T `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %s: %v", rec.Body.String(), err)
	}
	return resp.Data
}

// decodePage decodes a paginated list response with its meta block.
func decodePage[T any](t *testing.T, rec *httptest.ResponseRecorder) ([]T, PageMeta) {
	t.Helper()

	var resp struct {
		Data []T      `json:"data"`
		Meta PageMeta `json:"meta"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %s: %v", rec.Body.String(), err)
	}
	return resp.Data, resp.Meta
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorDetail {
	t.Helper()

	var resp ErrorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response %s: %v", rec.Body.String(), err)
	}
	return resp.Error
}
