// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/olegiv/pipol-go/internal/model"
)

func TestSign(t *testing.T) {
	body := []byte(`{"event":"event.created"}`)
	secret := "s3cret"

	got := Sign(secret, body)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	want := hex.EncodeToString(mac.Sum(nil))
	if got != want {
		t.Errorf("Sign = %q, want %q", got, want)
	}

	if Sign("other", body) == got {
		t.Error("different secrets produced the same signature")
	}
}

func TestDeliverSignsAndPosts(t *testing.T) {
	var gotSig, gotTopic, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get("X-Pipol-Signature")
		gotTopic = r.Header.Get("X-Pipol-Event")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("received"))
	}))
	defer srv.Close()

	d := newTestDeliverer(srv.Client())
	body := []byte(`{"event":"event.created","data":{"id":1}}`)

	status, snippet, err := d.Deliver(context.Background(), srv.URL, "topsecret", model.TopicEventCreated, body)
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if status != http.StatusOK {
		t.Errorf("status = %d, want 200", status)
	}
	if snippet != "received" {
		t.Errorf("snippet = %q", snippet)
	}
	if gotBody != string(body) {
		t.Errorf("body = %q", gotBody)
	}
	if gotTopic != model.TopicEventCreated {
		t.Errorf("topic header = %q", gotTopic)
	}
	if gotSig != "sha256="+Sign("topsecret", body) {
		t.Errorf("signature header = %q", gotSig)
	}
}

func TestDeliverRejectsPrivateURL(t *testing.T) {
	d := NewDeliverer()
	_, _, err := d.Deliver(context.Background(), "http://127.0.0.1:9/hook", "", "event.created", nil)
	if err == nil {
		t.Error("Deliver accepted a loopback URL")
	}
}

func TestNewEventPayload(t *testing.T) {
	e := model.Event{
		ID:          42,
		Slug:        "summer-bbq",
		Title:       "Summer BBQ",
		Category:    "food",
		OrganizerID: 7,
		StartsAt:    time.Date(2026, 9, 1, 18, 0, 0, 0, time.UTC),
	}

	p := NewEventPayload(model.TopicEventCreated, e)
	if p.Event != model.TopicEventCreated {
		t.Errorf("Event = %q", p.Event)
	}

	body, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded struct {
		Event string `json:"event"`
		Data  struct {
			ID       int64  `json:"id"`
			Slug     string `json:"slug"`
			StartsAt string `json:"starts_at"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Data.ID != 42 || decoded.Data.Slug != "summer-bbq" {
		t.Errorf("data = %+v", decoded.Data)
	}
	if decoded.Data.StartsAt != "2026-09-01T18:00:00Z" {
		t.Errorf("starts_at = %q", decoded.Data.StartsAt)
	}
}
