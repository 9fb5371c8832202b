// Package geo contains pure geographic computation helpers.
package geo

import (
	"math"

	"vetrimart/internal/types"
)

const earthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance in kilometres between two
// points using the haversine formula.
func DistanceKm(a, b types.GeoPoint) float64 {
	if a == b {
		return 0
	}
	dLat := degreesToRadians(b.Lat - a.Lat)
	dLng := degreesToRadians(b.Lng - a.Lng)

	rLat1 := degreesToRadians(a.Lat)
	rLat2 := degreesToRadians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

// Interpolate moves fraction (0..1) of the way from a to b in lat/lng space.
// Over delivery-sized distances the straight line is indistinguishable from
// the geodesic.
func Interpolate(a, b types.GeoPoint, fraction float64) types.GeoPoint {
	if fraction <= 0 {
		return a
	}
	if fraction >= 1 {
		return b
	}
	return types.GeoPoint{
		Lat: a.Lat + (b.Lat-a.Lat)*fraction,
		Lng: a.Lng + (b.Lng-a.Lng)*fraction,
	}
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
