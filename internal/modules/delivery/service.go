// README: Feasibility check use case: validates zone and coordinates, then evaluates.
package delivery

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"vetrimart/internal/modules/zone"
	"vetrimart/internal/types"
)

var (
	ErrInvalidZone        = errors.New("invalid delivery zone")
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	ErrMissingFields      = errors.New("select area and slot")
)

// ZoneLookup resolves active zones by id.
type ZoneLookup interface {
	Get(ctx context.Context, id types.ID) (*zone.Zone, error)
}

type Service struct {
	evaluator *Evaluator
	zones     ZoneLookup
}

func NewService(evaluator *Evaluator, zones ZoneLookup) *Service {
	return &Service{evaluator: evaluator, zones: zones}
}

func (s *Service) Evaluator() *Evaluator { return s.evaluator }

// CheckRequest carries raw form values; parsing happens here so malformed
// input never reaches the order state machine.
type CheckRequest struct {
	ZoneID    string
	Latitude  string
	Longitude string
	Slot      string
	Mode      Mode
}

func (s *Service) Check(ctx context.Context, req CheckRequest, now time.Time) (Result, error) {
	if strings.TrimSpace(req.ZoneID) == "" || strings.TrimSpace(req.Slot) == "" {
		return Result{}, ErrMissingFields
	}
	z, err := s.Zone(ctx, types.ID(strings.TrimSpace(req.ZoneID)))
	if err != nil {
		return Result{}, err
	}

	mode := req.Mode
	if mode == "" {
		mode = ModeDeadline
	}

	dest, err := destination(req.Latitude, req.Longitude, z, mode)
	if err != nil {
		return Result{}, err
	}

	if mode == ModeDispatch {
		return s.evaluator.EvaluateDispatch(dest, req.Slot, now)
	}
	return s.evaluator.EvaluateDeadline(dest, req.Slot, now)
}

// Zone resolves an active zone. Unknown, inactive and malformed ids all
// report ErrInvalidZone.
func (s *Service) Zone(ctx context.Context, id types.ID) (*zone.Zone, error) {
	z, err := s.zones.Get(ctx, id)
	if err != nil {
		if errors.Is(err, zone.ErrNotFound) || errors.Is(err, zone.ErrBadRequest) {
			return nil, ErrInvalidZone
		}
		return nil, err
	}
	return z, nil
}

// destination parses the customer's coordinates. The dispatch check falls
// back to the zone centre when the map pin is missing.
func destination(rawLat, rawLng string, z *zone.Zone, mode Mode) (types.GeoPoint, error) {
	rawLat, rawLng = strings.TrimSpace(rawLat), strings.TrimSpace(rawLng)
	if rawLat == "" && rawLng == "" && mode == ModeDispatch {
		if z.Coordinates == nil {
			return types.GeoPoint{}, ErrInvalidCoordinates
		}
		return *z.Coordinates, nil
	}
	p, err := ParsePoint(rawLat, rawLng)
	if err != nil {
		return types.GeoPoint{}, err
	}
	return p, nil
}

// ParsePoint parses and range-checks a latitude/longitude pair.
func ParsePoint(rawLat, rawLng string) (types.GeoPoint, error) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(rawLat), 64)
	if err != nil {
		return types.GeoPoint{}, ErrInvalidCoordinates
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(rawLng), 64)
	if err != nil {
		return types.GeoPoint{}, ErrInvalidCoordinates
	}
	p := types.GeoPoint{Lat: lat, Lng: lng}
	if err := p.Validate(); err != nil {
		return types.GeoPoint{}, ErrInvalidCoordinates
	}
	return p, nil
}
