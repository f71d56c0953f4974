// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"database/sql"

	"github.com/olegiv/pipol-go/internal/cache"
	"github.com/olegiv/pipol-go/internal/geoip"
	"github.com/olegiv/pipol-go/internal/middleware"
	"github.com/olegiv/pipol-go/internal/service"
	"github.com/olegiv/pipol-go/internal/session"
	"github.com/olegiv/pipol-go/internal/store"
	"github.com/olegiv/pipol-go/internal/util"
	"github.com/olegiv/pipol-go/internal/webhook"
)

// Handler bundles the dependencies shared by the API endpoints.
type Handler struct {
	db        *sql.DB
	queries   *store.Queries
	sessions  *session.Manager
	media     *service.MediaService
	loginProt *middleware.LoginProtection
	geo       *geoip.Resolver      // nil when GeoIP is not configured
	listCache *cache.EventListCache
	hooks     *webhook.Dispatcher // nil in tests

	// validateHookURL checks webhook target URLs. The default resolves
	// hostnames; tests swap in a resolver-free check.
	validateHookURL func(string) error
}

// Config holds the handler dependencies.
type Config struct {
	DB        *sql.DB
	Queries   *store.Queries
	Sessions  *session.Manager
	Media     *service.MediaService
	LoginProt *middleware.LoginProtection
	Geo       *geoip.Resolver
	ListCache *cache.EventListCache
	Hooks     *webhook.Dispatcher
}

// New creates the API handler.
func New(cfg Config) *Handler {
	return &Handler{
		db:        cfg.DB,
		queries:   cfg.Queries,
		sessions:  cfg.Sessions,
		media:     cfg.Media,
		loginProt: cfg.LoginProt,
		geo:       cfg.Geo,
		listCache: cfg.ListCache,
		hooks:     cfg.Hooks,

		validateHookURL: util.ValidateWebhookURL,
	}
}

// dispatch sends a webhook payload when a dispatcher is configured.
func (h *Handler) dispatch(p webhook.Payload) {
	if h.hooks != nil {
		h.hooks.Dispatch(context.Background(), p)
	}
}

// lookupIP resolves an IP to a location, or a zero value when GeoIP is
// not configured.
func (h *Handler) lookupIP(ip string) geoip.Location {
	if h.geo == nil {
		return geoip.Location{}
	}
	return h.geo.Lookup(ip)
}
