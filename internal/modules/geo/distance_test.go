package geo

import (
	"math"
	"testing"

	"vetrimart/internal/types"
)

func TestDistanceKm_KnownDistances(t *testing.T) {
	tests := []struct {
		name      string
		a, b      types.GeoPoint
		wantKm    float64
		tolerance float64
	}{
		{
			name:      "same point",
			a:         types.GeoPoint{Lat: 12.9716, Lng: 77.5946},
			b:         types.GeoPoint{Lat: 12.9716, Lng: 77.5946},
			wantKm:    0,
			tolerance: 0,
		},
		{
			name:      "MG Road zone to Indiranagar customer (~7.3km)",
			a:         types.GeoPoint{Lat: 12.97, Lng: 77.59},
			b:         types.GeoPoint{Lat: 13.00, Lng: 77.65},
			wantKm:    7.3,
			tolerance: 0.2,
		},
		{
			name:      "Bengaluru to Chennai (~290km)",
			a:         types.GeoPoint{Lat: 12.9716, Lng: 77.5946},
			b:         types.GeoPoint{Lat: 13.0827, Lng: 80.2707},
			wantKm:    290,
			tolerance: 5,
		},
		{
			name:      "New York to Los Angeles (~3944km)",
			a:         types.GeoPoint{Lat: 40.7128, Lng: -74.0060},
			b:         types.GeoPoint{Lat: 34.0522, Lng: -118.2437},
			wantKm:    3944,
			tolerance: 50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceKm(tt.a, tt.b)
			if math.Abs(got-tt.wantKm) > tt.tolerance {
				t.Errorf("DistanceKm() = %f, want %f (±%f)", got, tt.wantKm, tt.tolerance)
			}
		})
	}
}

func TestDistanceKm_Symmetry(t *testing.T) {
	pairs := [][2]types.GeoPoint{
		{{Lat: 25.0, Lng: 121.0}, {Lat: 26.0, Lng: 122.0}},
		{{Lat: -33.86, Lng: 151.21}, {Lat: 51.5, Lng: -0.12}},
		{{Lat: 89.9, Lng: 179.9}, {Lat: -89.9, Lng: -179.9}},
	}
	for _, p := range pairs {
		d1 := DistanceKm(p[0], p[1])
		d2 := DistanceKm(p[1], p[0])
		if math.Abs(d1-d2) > 1e-9 {
			t.Errorf("haversine is not symmetric for %v: %f vs %f", p, d1, d2)
		}
		if DistanceKm(p[0], p[0]) != 0 {
			t.Errorf("distance to self should be 0 for %v", p[0])
		}
	}
}

func TestInterpolate(t *testing.T) {
	a := types.GeoPoint{Lat: 12.0, Lng: 77.0}
	b := types.GeoPoint{Lat: 13.0, Lng: 78.0}

	if got := Interpolate(a, b, 0); got != a {
		t.Errorf("fraction 0: got %v, want %v", got, a)
	}
	if got := Interpolate(a, b, 1); got != b {
		t.Errorf("fraction 1: got %v, want %v", got, b)
	}
	mid := Interpolate(a, b, 0.5)
	if math.Abs(mid.Lat-12.5) > 1e-9 || math.Abs(mid.Lng-77.5) > 1e-9 {
		t.Errorf("fraction 0.5: got %v", mid)
	}
}
