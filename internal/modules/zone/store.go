// README: Zone store backed by PostgreSQL.
package zone

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"vetrimart/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const zoneColumns = `id, area_name, pincode, city, latitude, longitude, delay_hours, is_active, slots`

func (s *Store) ListActive(ctx context.Context) ([]Zone, error) {
	rows, err := s.db.Query(ctx, `
        SELECT `+zoneColumns+`
        FROM delivery_zones
        WHERE is_active
        ORDER BY area_name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Zone
	for rows.Next() {
		z, err := scanZone(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *z)
	}
	return out, rows.Err()
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Zone, error) {
	row := s.db.QueryRow(ctx, `
        SELECT `+zoneColumns+`
        FROM delivery_zones
        WHERE id = $1`, string(id))
	z, err := scanZone(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return z, err
}

// Upsert is used by seeding tools; the service never writes zones.
func (s *Store) Upsert(ctx context.Context, z Zone) error {
	var lat, lng *float64
	if z.Coordinates != nil {
		lat, lng = &z.Coordinates.Lat, &z.Coordinates.Lng
	}
	slots := z.Slots
	if slots == nil {
		slots = []string{}
	}
	_, err := s.db.Exec(ctx, `
        INSERT INTO delivery_zones (id, area_name, pincode, city, latitude, longitude, delay_hours, is_active, slots)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        ON CONFLICT (id) DO UPDATE SET
            area_name = EXCLUDED.area_name,
            pincode = EXCLUDED.pincode,
            city = EXCLUDED.city,
            latitude = EXCLUDED.latitude,
            longitude = EXCLUDED.longitude,
            delay_hours = EXCLUDED.delay_hours,
            is_active = EXCLUDED.is_active,
            slots = EXCLUDED.slots`,
		string(z.ID), z.AreaName, z.Pincode, z.City, lat, lng, z.DelayHours, z.IsActive, slots,
	)
	return err
}

func scanZone(row pgx.Row) (*Zone, error) {
	var z Zone
	var id string
	var lat, lng *float64
	if err := row.Scan(&id, &z.AreaName, &z.Pincode, &z.City, &lat, &lng, &z.DelayHours, &z.IsActive, &z.Slots); err != nil {
		return nil, err
	}
	z.ID = types.ID(id)
	if lat != nil && lng != nil {
		z.Coordinates = &types.GeoPoint{Lat: *lat, Lng: *lng}
	}
	return &z, nil
}
