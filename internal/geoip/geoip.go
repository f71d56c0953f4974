// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package geoip resolves IP addresses to locations using a MaxMind
// GeoLite2-City database.
package geoip

import (
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/oschwald/maxminddb-golang"
)

// Location holds the resolved fields for an IP address.
type Location struct {
	CountryCode string
	City        string
	Lat         float64
	Lon         float64
}

// Resolver looks up IP locations from a GeoLite2 database file. The
// file is reopened when its modification time changes so database
// updates are picked up without a restart.
type Resolver struct {
	mu      sync.RWMutex
	reader  *maxminddb.Reader
	path    string
	modTime time.Time
}

// record mirrors the subset of the GeoLite2-City schema we read.
type record struct {
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
	City struct {
		Names map[string]string `maxminddb:"names"`
	} `maxminddb:"city"`
	Location struct {
		Latitude  float64 `maxminddb:"latitude"`
		Longitude float64 `maxminddb:"longitude"`
	} `maxminddb:"location"`
}

// NewResolver opens the database at path.
func NewResolver(path string) (*Resolver, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat geoip database: %w", err)
	}
	reader, err := maxminddb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening geoip database: %w", err)
	}
	return &Resolver{reader: reader, path: path, modTime: info.ModTime()}, nil
}

// Lookup resolves an IP address string to a location. Unknown or
// unparsable addresses return a zero Location without error.
func (r *Resolver) Lookup(ipStr string) Location {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return Location{}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.reader == nil {
		return Location{}
	}

	var rec record
	if err := r.reader.Lookup(ip, &rec); err != nil {
		return Location{}
	}
	return Location{
		CountryCode: rec.Country.ISOCode,
		City:        rec.City.Names["en"],
		Lat:         rec.Location.Latitude,
		Lon:         rec.Location.Longitude,
	}
}

// Reload reopens the database if the file changed on disk. It returns
// true when a reload happened.
func (r *Resolver) Reload() (bool, error) {
	info, err := os.Stat(r.path)
	if err != nil {
		return false, fmt.Errorf("stat geoip database: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !info.ModTime().After(r.modTime) {
		return false, nil
	}

	reader, err := maxminddb.Open(r.path)
	if err != nil {
		return false, fmt.Errorf("reopening geoip database: %w", err)
	}
	if r.reader != nil {
		r.reader.Close()
	}
	r.reader = reader
	r.modTime = info.ModTime()
	return true, nil
}

// Close releases the underlying database.
func (r *Resolver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reader == nil {
		return nil
	}
	err := r.reader.Close()
	r.reader = nil
	return err
}
