// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"math"
	"testing"
)

func TestHaversineKm(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		wantKm                 float64
		tolKm                  float64
	}{
		{"same point", 52.52, 13.405, 52.52, 13.405, 0, 0.001},
		{"berlin to paris", 52.52, 13.405, 48.8566, 2.3522, 878, 5},
		{"across equator", -1, 0, 1, 0, 222.4, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HaversineKm(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if math.Abs(got-tt.wantKm) > tt.tolKm {
				t.Errorf("HaversineKm = %v, want %v ± %v", got, tt.wantKm, tt.tolKm)
			}
		})
	}
}

func TestBoundingBoxContainsRadius(t *testing.T) {
	lat, lon, radius := 52.52, 13.405, 25.0
	minLat, maxLat, minLon, maxLon := BoundingBox(lat, lon, radius)

	if minLat >= lat || maxLat <= lat || minLon >= lon || maxLon <= lon {
		t.Fatalf("box [%v,%v]x[%v,%v] does not contain center", minLat, maxLat, minLon, maxLon)
	}

	// Points at the radius along each axis must be inside the box.
	if d := HaversineKm(lat, lon, maxLat, lon); d > radius+1 {
		t.Errorf("north edge %v km away, want >= %v", d, radius)
	}
	if HaversineKm(lat, lon, lat, maxLon) < radius-1 {
		t.Errorf("east edge closer than radius")
	}
}

func TestBoundingBoxPolarClamp(t *testing.T) {
	minLat, maxLat, minLon, maxLon := BoundingBox(89.9, 0, 100)
	if maxLat > 90 {
		t.Errorf("maxLat = %v, want <= 90", maxLat)
	}
	if minLon != -180 || maxLon != 180 {
		t.Errorf("polar box should span all longitudes, got [%v,%v]", minLon, maxLon)
	}
	if minLat >= maxLat {
		t.Errorf("degenerate box [%v,%v]", minLat, maxLat)
	}
}
