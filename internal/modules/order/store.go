// README: Order store backed by PostgreSQL.
package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"vetrimart/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const orderColumns = `
	id, customer_id, zone_id,
	full_name, email, phone, street_address, city,
	dest_lat, dest_lng, delivery_slot,
	status, status_version, payment_status, payment_method,
	subtotal, tax, total_amount,
	expected_delivery_time, current_lat, current_lng, departed_at, last_notified_status,
	gateway_order_id, gateway_payment_id, cancel_reason,
	created_at, updated_at`

// selectColumns mirrors orderColumns with money read back as text for decimal.
const selectColumns = `
	id, customer_id, zone_id,
	full_name, email, phone, street_address, city,
	dest_lat, dest_lng, delivery_slot,
	status, status_version, payment_status, payment_method,
	subtotal::text, tax::text, total_amount::text,
	expected_delivery_time, current_lat, current_lng, departed_at, last_notified_status,
	gateway_order_id, gateway_payment_id, cancel_reason,
	created_at, updated_at`

func (s *Store) Create(ctx context.Context, o *Order) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var curLat, curLng *float64
	if o.CurrentPosition != nil {
		curLat, curLng = &o.CurrentPosition.Lat, &o.CurrentPosition.Lng
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO orders (`+orderColumns+`
		) VALUES (
			$1, $2, $3,
			$4, $5, $6, $7, $8,
			$9, $10, $11,
			$12, $13, $14, $15,
			$16, $17, $18,
			$19, $20, $21, $22, $23,
			$24, $25, $26,
			$27, $28
		)`,
		string(o.ID), string(o.CustomerID), toStringPtr(o.ZoneID),
		o.Contact.FullName, o.Contact.Email, o.Contact.Phone, o.Contact.StreetAddress, o.Contact.City,
		o.Destination.Lat, o.Destination.Lng, o.Slot,
		string(o.Status), o.StatusVersion, string(o.PaymentStatus), o.PaymentMethod,
		o.Subtotal, o.Tax, o.TotalAmount,
		o.ExpectedDeliveryTime, curLat, curLng, o.DepartedAt, toStatusPtr(o.LastNotifiedStatus),
		nullIfEmpty(o.GatewayOrderID), nullIfEmpty(o.GatewayPaymentID), o.CancelReason,
		o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, it := range o.Items {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (order_id, product_id, product_name, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5)`,
			string(o.ID), string(it.ProductID), it.ProductName, it.Quantity, it.UnitPrice,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Order, error) {
	row := s.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM orders WHERE id = $1`, string(id))
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	items, err := s.items(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return o, nil
}

// Save writes every mutable column if the stored status_version still equals
// expectedVersion. Returns false when another writer got there first.
func (s *Store) Save(ctx context.Context, o *Order, expectedVersion int) (bool, error) {
	var curLat, curLng *float64
	if o.CurrentPosition != nil {
		curLat, curLng = &o.CurrentPosition.Lat, &o.CurrentPosition.Lng
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE orders
		SET zone_id = $1,
			street_address = $2,
			city = $3,
			dest_lat = $4,
			dest_lng = $5,
			delivery_slot = $6,
			status = $7,
			status_version = status_version + 1,
			payment_status = $8,
			subtotal = $9,
			tax = $10,
			total_amount = $11,
			expected_delivery_time = $12,
			current_lat = $13,
			current_lng = $14,
			departed_at = $15,
			last_notified_status = $16,
			gateway_payment_id = $17,
			cancel_reason = $18,
			updated_at = $19
		WHERE id = $20 AND status_version = $21`,
		toStringPtr(o.ZoneID),
		o.Contact.StreetAddress,
		o.Contact.City,
		o.Destination.Lat,
		o.Destination.Lng,
		o.Slot,
		string(o.Status),
		string(o.PaymentStatus),
		o.Subtotal,
		o.Tax,
		o.TotalAmount,
		o.ExpectedDeliveryTime,
		curLat,
		curLng,
		o.DepartedAt,
		toStatusPtr(o.LastNotifiedStatus),
		nullIfEmpty(o.GatewayPaymentID),
		o.CancelReason,
		o.UpdatedAt,
		string(o.ID),
		expectedVersion,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) AppendEvent(ctx context.Context, e *Event) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO order_state_events (
			order_id, from_status, to_status, actor_type, actor_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)`,
		string(e.OrderID),
		string(e.FromStatus),
		string(e.ToStatus),
		e.ActorType,
		toStringPtr(e.ActorID),
		e.CreatedAt,
	)
	return err
}

func (s *Store) ListByCustomer(ctx context.Context, customerID types.ID) ([]*Order, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+selectColumns+`
		FROM orders
		WHERE customer_id = $1
		ORDER BY created_at DESC, id DESC`, string(customerID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, o := range out {
		if o.Items, err = s.items(ctx, o.ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) items(ctx context.Context, orderID types.ID) ([]Item, error) {
	rows, err := s.db.Query(ctx, `
		SELECT product_id, product_name, quantity, unit_price::text
		FROM order_items
		WHERE order_id = $1
		ORDER BY id`, string(orderID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		var price string
		if err := rows.Scan(&it.ProductID, &it.ProductName, &it.Quantity, &price); err != nil {
			return nil, err
		}
		if it.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("order item price %q: %w", price, err)
		}
		it.OrderID = orderID
		items = append(items, it)
	}
	return items, rows.Err()
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var zoneID, lastNotified, gatewayOrderID, gatewayPaymentID, cancelReason *string
	var curLat, curLng *float64
	var expected, departed *time.Time
	var subtotal, tax, total string

	err := row.Scan(
		&o.ID, &o.CustomerID, &zoneID,
		&o.Contact.FullName, &o.Contact.Email, &o.Contact.Phone, &o.Contact.StreetAddress, &o.Contact.City,
		&o.Destination.Lat, &o.Destination.Lng, &o.Slot,
		&o.Status, &o.StatusVersion, &o.PaymentStatus, &o.PaymentMethod,
		&subtotal, &tax, &total,
		&expected, &curLat, &curLng, &departed, &lastNotified,
		&gatewayOrderID, &gatewayPaymentID, &cancelReason,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if zoneID != nil {
		z := types.ID(*zoneID)
		o.ZoneID = &z
	}
	if lastNotified != nil {
		st := Status(*lastNotified)
		o.LastNotifiedStatus = &st
	}
	if curLat != nil && curLng != nil {
		o.CurrentPosition = &types.GeoPoint{Lat: *curLat, Lng: *curLng}
	}
	if gatewayOrderID != nil {
		o.GatewayOrderID = *gatewayOrderID
	}
	if gatewayPaymentID != nil {
		o.GatewayPaymentID = *gatewayPaymentID
	}
	o.ExpectedDeliveryTime = expected
	o.DepartedAt = departed
	o.CancelReason = cancelReason
	if o.Subtotal, err = decimal.NewFromString(subtotal); err != nil {
		return nil, err
	}
	if o.Tax, err = decimal.NewFromString(tax); err != nil {
		return nil, err
	}
	if o.TotalAmount, err = decimal.NewFromString(total); err != nil {
		return nil, err
	}
	return &o, nil
}

func toStringPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}

func toStatusPtr(v *Status) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
