// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// Webhook topics dispatched by the platform.
const (
	TopicEventCreated     = "event.created"
	TopicEventUpdated     = "event.updated"
	TopicEventCanceled    = "event.canceled"
	TopicEventDeleted     = "event.deleted"
	TopicAttendeeCreated  = "attendee.created"
	TopicAttendeeApproved = "attendee.approved"
	TopicAttendeeRejected = "attendee.rejected"
)

// WebhookTopics lists every topic a webhook can subscribe to.
var WebhookTopics = []string{
	TopicEventCreated, TopicEventUpdated, TopicEventCanceled, TopicEventDeleted,
	TopicAttendeeCreated, TopicAttendeeApproved, TopicAttendeeRejected,
}

// Webhook delivery statuses.
const (
	DeliveryStatusPending = "pending"
	DeliveryStatusSuccess = "success"
	DeliveryStatusFailed  = "failed"
)

// Webhook is a registered HTTP endpoint subscribed to platform topics.
type Webhook struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Secret    string    `json:"-"`
	Events    []string  `json:"events"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasEvent reports whether the webhook subscribes to the given topic.
func (w *Webhook) HasEvent(topic string) bool {
	for _, e := range w.Events {
		if e == topic {
			return true
		}
	}
	return false
}

// WebhookDelivery records one attempt cycle of delivering a topic
// payload to a webhook endpoint.
type WebhookDelivery struct {
	ID          int64      `json:"id"`
	WebhookID   int64      `json:"webhook_id"`
	Event       string     `json:"event"`
	Payload     string     `json:"payload"`
	Status      string     `json:"status"`
	StatusCode  *int64     `json:"status_code,omitempty"`
	Attempts    int64      `json:"attempts"`
	Error       string     `json:"error,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ValidTopic reports whether s is a dispatchable webhook topic.
func ValidTopic(s string) bool {
	for _, t := range WebhookTopics {
		if t == s {
			return true
		}
	}
	return false
}
