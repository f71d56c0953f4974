// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import "math"

// EarthRadiusKm is the mean Earth radius used for distance calculations.
const EarthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance in kilometers between
// two WGS84 coordinates.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	rad := math.Pi / 180

	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)

	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// BoundingBox returns the min/max lat/lon of a box that contains the
// circle of radiusKm around the given point. Used as a cheap SQL
// prefilter before the exact haversine check.
//
// Near the poles the longitude delta degenerates; the box is clamped to
// the full longitude range in that case. Boxes never wrap the antimeridian:
// limits are clamped, which trades a little recall at lon ±180 for
// keeping the SQL predicate a simple BETWEEN.
func BoundingBox(lat, lon, radiusKm float64) (minLat, maxLat, minLon, maxLon float64) {
	latDelta := radiusKm / EarthRadiusKm * 180 / math.Pi

	minLat = math.Max(lat-latDelta, -90)
	maxLat = math.Min(lat+latDelta, 90)

	cos := math.Cos(lat * math.Pi / 180)
	if cos < 1e-6 {
		return minLat, maxLat, -180, 180
	}

	lonDelta := latDelta / cos
	minLon = math.Max(lon-lonDelta, -180)
	maxLon = math.Min(lon+lonDelta, 180)
	return minLat, maxLat, minLon, maxLon
}
