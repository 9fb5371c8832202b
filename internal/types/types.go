package types

import (
	"errors"
	"fmt"
	"math"
)

type ID string

var ErrInvalidPoint = errors.New("coordinates out of range")

// GeoPoint is an immutable latitude/longitude pair in decimal degrees.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (p GeoPoint) Validate() error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) {
		return ErrInvalidPoint
	}
	if p.Lat < -90 || p.Lat > 90 || p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("%w: (%f, %f)", ErrInvalidPoint, p.Lat, p.Lng)
	}
	return nil
}

func (p GeoPoint) String() string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lng)
}
