package maps

import (
	"context"
	"errors"
	"fmt"

	"googlemaps.github.io/maps"

	"vetrimart/internal/types"
)

var ErrNoAddress = errors.New("no address found")

// Address is the part of a geocoding result the checkout form needs.
type Address struct {
	FormattedAddress string `json:"formatted_address"`
	Area             string `json:"area"`
	City             string `json:"city"`
	State            string `json:"state"`
	Pincode          string `json:"pincode"`
	PlaceID          string `json:"place_id"`
}

type reverseGeocoder interface {
	ReverseGeocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

// GeocodeService handles interactions with the Google Geocoding API.
type GeocodeService struct {
	client   reverseGeocoder
	language string
	region   string
}

// NewGeocodeService creates a new GeocodeService with the given API Key.
func NewGeocodeService(apiKey string) (*GeocodeService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &GeocodeService{client: client, language: "en", region: "IN"}, nil
}

// Reverse turns a map pin into a postal address.
func (s *GeocodeService) Reverse(ctx context.Context, p types.GeoPoint) (*Address, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	results, err := s.client.ReverseGeocode(ctx, &maps.GeocodingRequest{
		LatLng:   &maps.LatLng{Lat: p.Lat, Lng: p.Lng},
		Language: s.language,
		Region:   s.region,
	})
	if err != nil {
		return nil, fmt.Errorf("maps api error: %w", err)
	}
	if len(results) == 0 {
		return nil, ErrNoAddress
	}
	return toAddress(results[0]), nil
}

func toAddress(r maps.GeocodingResult) *Address {
	a := &Address{FormattedAddress: r.FormattedAddress, PlaceID: r.PlaceID}
	for _, c := range r.AddressComponents {
		for _, t := range c.Types {
			switch t {
			case "postal_code":
				a.Pincode = c.LongName
			case "locality":
				a.City = c.LongName
			case "sublocality", "sublocality_level_1":
				if a.Area == "" {
					a.Area = c.LongName
				}
			case "administrative_area_level_1":
				a.State = c.LongName
			}
		}
	}
	return a
}
