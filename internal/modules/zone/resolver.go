// README: Zone resolver maps pincode/area/coordinate queries to active delivery zones.
package zone

import (
	"context"
	"fmt"
	"strings"

	"vetrimart/internal/modules/geo"
	"vetrimart/internal/types"
)

// Repository is the read side the resolver needs. ListActive must return
// zones ordered by area name.
type Repository interface {
	ListActive(ctx context.Context) ([]Zone, error)
	Get(ctx context.Context, id types.ID) (*Zone, error)
}

type Resolver struct {
	repo Repository
}

func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

func (r *Resolver) ListActive(ctx context.Context) ([]Zone, error) {
	return r.repo.ListActive(ctx)
}

// Get returns an active zone by id. Inactive zones resolve as not found.
func (r *Resolver) Get(ctx context.Context, id types.ID) (*Zone, error) {
	if id == "" {
		return nil, ErrBadRequest
	}
	z, err := r.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !z.IsActive {
		return nil, ErrNotFound
	}
	return z, nil
}

// FindByPincodeOrArea tries an exact, case-insensitive pincode match first and
// falls back to a substring match on the area name. The first match in
// repository order wins.
func (r *Resolver) FindByPincodeOrArea(ctx context.Context, query string) (*Zone, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrBadRequest
	}
	zones, err := r.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	for i := range zones {
		if strings.EqualFold(zones[i].Pincode, query) {
			return &zones[i], nil
		}
	}
	needle := strings.ToLower(query)
	for i := range zones {
		if strings.Contains(strings.ToLower(zones[i].AreaName), needle) {
			return &zones[i], nil
		}
	}
	return nil, ErrNotFound
}

// Nearest scans every active zone with coordinates and returns the closest.
// On equal distances the first zone encountered wins.
func (r *Resolver) Nearest(ctx context.Context, p types.GeoPoint) (*Match, error) {
	zones, err := r.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	var best *Match
	for _, z := range zones {
		if z.Coordinates == nil {
			continue
		}
		d := geo.DistanceKm(p, *z.Coordinates)
		if best == nil || d < best.DistanceKm {
			best = &Match{Zone: z, DistanceKm: d}
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	return best, nil
}

// CheckPincode validates a pincode/city pair at checkout. An empty city skips
// the city check.
func (r *Resolver) CheckPincode(ctx context.Context, pincode, city string) (*Zone, error) {
	pincode = strings.TrimSpace(pincode)
	if pincode == "" {
		return nil, ErrBadRequest
	}
	zones, err := r.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	for i := range zones {
		if zones[i].Pincode != pincode {
			continue
		}
		city = strings.TrimSpace(city)
		if city != "" && !strings.EqualFold(city, strings.TrimSpace(zones[i].City)) {
			return nil, fmt.Errorf("%w: %s belongs to %s", ErrCityMismatch, pincode, zones[i].City)
		}
		return &zones[i], nil
	}
	return nil, ErrNotFound
}

// Slots returns the configured slot labels and delay for the zone serving
// pincode.
func (r *Resolver) Slots(ctx context.Context, pincode string) ([]string, float64, error) {
	z, err := r.CheckPincode(ctx, pincode, "")
	if err != nil {
		return nil, 0, err
	}
	return z.Slots, z.DelayHours, nil
}
