// README: Delivery zone definitions. Zones are maintained by admins and are read-only here.
package zone

import (
	"errors"

	"vetrimart/internal/types"
)

var (
	ErrNotFound     = errors.New("delivery zone not available")
	ErrBadRequest   = errors.New("bad request")
	ErrCityMismatch = errors.New("pincode belongs to a different city")
)

type Zone struct {
	ID          types.ID
	AreaName    string
	Pincode     string
	City        string
	Coordinates *types.GeoPoint
	DelayHours  float64
	IsActive    bool
	Slots       []string
}

// Match is a resolved zone with the distance from the queried point.
type Match struct {
	Zone       Zone
	DistanceKm float64
}
