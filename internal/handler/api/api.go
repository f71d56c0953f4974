// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package api implements the JSON REST API handlers.
package api

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
)

// Pagination limits.
const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Response is the success envelope: {"data": ..., "meta": {...}}.
type Response struct {
	Data interface{} `json:"data"`
	Meta interface{} `json:"meta,omitempty"`
}

// PageMeta carries pagination info in list responses.
type PageMeta struct {
	Page       int64 `json:"page"`
	PerPage    int64 `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

// ErrorBody is the error envelope: {"error": {"code", "message", "details"}}.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes one API error.
type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// WriteJSON writes v with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

// Success writes a 200 response with the data envelope.
func Success(w http.ResponseWriter, data interface{}) {
	WriteJSON(w, http.StatusOK, Response{Data: data})
}

// SuccessMeta writes a 200 response with data and meta.
func SuccessMeta(w http.ResponseWriter, data, meta interface{}) {
	WriteJSON(w, http.StatusOK, Response{Data: data, Meta: meta})
}

// Created writes a 201 response with the data envelope.
func Created(w http.ResponseWriter, data interface{}) {
	WriteJSON(w, http.StatusCreated, Response{Data: data})
}

// NoContent writes a 204 response.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Error writes an error envelope with the given status.
func Error(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, ErrorBody{Error: ErrorDetail{Code: code, Message: message}})
}

// BadRequest writes a 400 error.
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, "bad_request", message)
}

// Unauthorized writes a 401 error.
func Unauthorized(w http.ResponseWriter, message string) {
	Error(w, http.StatusUnauthorized, "unauthorized", message)
}

// Forbidden writes a 403 error.
func Forbidden(w http.ResponseWriter, message string) {
	Error(w, http.StatusForbidden, "forbidden", message)
}

// NotFound writes a 404 error.
func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, "not_found", message)
}

// Conflict writes a 409 error.
func Conflict(w http.ResponseWriter, message string) {
	Error(w, http.StatusConflict, "conflict", message)
}

// Gone writes a 410 error.
func Gone(w http.ResponseWriter, message string) {
	Error(w, http.StatusGone, "gone", message)
}

// PayloadTooLarge writes a 413 error.
func PayloadTooLarge(w http.ResponseWriter, message string) {
	Error(w, http.StatusRequestEntityTooLarge, "payload_too_large", message)
}

// ValidationError writes a 422 error with per-field details.
func ValidationError(w http.ResponseWriter, message string, details map[string]string) {
	WriteJSON(w, http.StatusUnprocessableEntity, ErrorBody{Error: ErrorDetail{
		Code:    "validation_failed",
		Message: message,
		Details: details,
	}})
}

// InternalError logs err and writes a 500 error without leaking it.
func InternalError(w http.ResponseWriter, err error) {
	slog.Error("internal error", "error", err)
	Error(w, http.StatusInternalServerError, "internal_error", "Internal server error")
}

// ParsePagination reads page/per_page query parameters with defaults
// and caps.
func ParsePagination(r *http.Request) (page, perPage int64) {
	page = 1
	perPage = DefaultPerPage
	if v, err := strconv.ParseInt(r.URL.Query().Get("page"), 10, 64); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.ParseInt(r.URL.Query().Get("per_page"), 10, 64); err == nil && v > 0 {
		perPage = v
		if perPage > MaxPerPage {
			perPage = MaxPerPage
		}
	}
	return page, perPage
}

// NewPageMeta builds pagination metadata.
func NewPageMeta(page, perPage, total int64) PageMeta {
	totalPages := total / perPage
	if total%perPage != 0 {
		totalPages++
	}
	return PageMeta{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// ClientIP extracts the client IP from the request.
func ClientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// DecodeJSON decodes the request body into v, limited to 1 MiB.
func DecodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
