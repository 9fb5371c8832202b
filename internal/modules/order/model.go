// README: Order aggregate, status definitions and the transition table.
package order

import (
	"time"

	"github.com/shopspring/decimal"

	"vetrimart/internal/types"
)

type Status string

const (
	StatusNone           Status = "none"
	StatusPending        Status = "pending"
	StatusConfirmed      Status = "confirmed"
	StatusProcessing     Status = "processing"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusDelayed        Status = "delayed"
	StatusFailed         Status = "failed"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "Pending"
	PaymentPaid    PaymentStatus = "Paid"
	PaymentFailed  PaymentStatus = "Failed"
)

type Contact struct {
	FullName      string
	Email         string
	Phone         string
	StreetAddress string
	City          string
}

// Item is a price snapshot taken at checkout; later catalog changes do not
// affect it.
type Item struct {
	OrderID     types.ID
	ProductID   types.ID
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
}

func (i Item) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Order struct {
	ID                   types.ID
	CustomerID           types.ID
	ZoneID               *types.ID
	Contact              Contact
	Destination          types.GeoPoint
	Slot                 string
	Status               Status
	StatusVersion        int
	PaymentStatus        PaymentStatus
	PaymentMethod        string
	Subtotal             decimal.Decimal
	Tax                  decimal.Decimal
	TotalAmount          decimal.Decimal
	ExpectedDeliveryTime *time.Time
	CurrentPosition      *types.GeoPoint
	DepartedAt           *time.Time
	LastNotifiedStatus   *Status
	GatewayOrderID       string
	GatewayPaymentID     string
	CancelReason         *string
	CreatedAt            time.Time
	UpdatedAt            time.Time
	Items                []Item
}

// clone returns a deep copy so callers can mutate without aliasing stored state.
func (o *Order) clone() *Order {
	c := *o
	if o.ZoneID != nil {
		z := *o.ZoneID
		c.ZoneID = &z
	}
	if o.ExpectedDeliveryTime != nil {
		t := *o.ExpectedDeliveryTime
		c.ExpectedDeliveryTime = &t
	}
	if o.CurrentPosition != nil {
		p := *o.CurrentPosition
		c.CurrentPosition = &p
	}
	if o.DepartedAt != nil {
		t := *o.DepartedAt
		c.DepartedAt = &t
	}
	if o.LastNotifiedStatus != nil {
		s := *o.LastNotifiedStatus
		c.LastNotifiedStatus = &s
	}
	if o.CancelReason != nil {
		r := *o.CancelReason
		c.CancelReason = &r
	}
	c.Items = append([]Item(nil), o.Items...)
	return &c
}

type Event struct {
	ID         int64
	OrderID    types.ID
	FromStatus Status
	ToStatus   Status
	ActorType  string
	ActorID    *types.ID
	CreatedAt  time.Time
}

const (
	ActorCustomer = "customer"
	ActorOps      = "ops"
	ActorSystem   = "system"
	ActorGateway  = "gateway"
)

type Actor struct {
	Type string
	ID   *types.ID
}

func CustomerActor(id types.ID) Actor { return Actor{Type: ActorCustomer, ID: &id} }

var SystemActor = Actor{Type: ActorSystem}

// AllowedTransitions represents the order state flow (diagram) as code.
// out_for_delivery has no cancel edge: once the rider leaves the order is locked.
// delayed -> confirmed is only taken by a payment for an order that went
// overdue before it was paid.
var AllowedTransitions = map[Status][]Status{
	StatusPending:        {StatusConfirmed, StatusDelayed, StatusFailed, StatusCancelled},
	StatusConfirmed:      {StatusProcessing, StatusDelayed, StatusFailed, StatusCancelled},
	StatusProcessing:     {StatusOutForDelivery, StatusDelayed, StatusFailed, StatusCancelled},
	StatusOutForDelivery: {StatusDelivered, StatusDelayed, StatusFailed},
	StatusDelayed:        {StatusConfirmed, StatusProcessing, StatusOutForDelivery, StatusDelivered, StatusFailed, StatusCancelled},
	StatusFailed:         {StatusDelivered},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Locked reports whether the customer may no longer edit or cancel.
func (s Status) Locked() bool {
	return s == StatusOutForDelivery || s == StatusDelivered
}

// InTransit is true while a rider who has left the warehouse is still on the
// road, including after the order was marked delayed.
func (o *Order) InTransit() bool {
	if o.DepartedAt == nil {
		return false
	}
	return o.Status == StatusOutForDelivery || o.Status == StatusDelayed
}

// Locked extends Status.Locked to delayed orders whose rider already left.
func (o *Order) Locked() bool {
	return o.Status.Locked() || o.InTransit()
}

// AwaitingPayment is true for orders the gateway has not confirmed yet. A
// delayed order can still be awaiting payment if it went overdue while pending.
func (o *Order) AwaitingPayment() bool {
	return o.PaymentStatus == PaymentPending && (o.Status == StatusPending || o.Status == StatusDelayed)
}

// UpdateStatus moves an order whose expected delivery time has passed to
// delayed. Orders already delivered, cancelled, failed or delayed are left
// alone. Reports whether the status changed.
func UpdateStatus(o *Order, now time.Time) bool {
	if o.ExpectedDeliveryTime == nil || !now.After(*o.ExpectedDeliveryTime) {
		return false
	}
	switch o.Status {
	case StatusDelivered, StatusCancelled, StatusFailed, StatusDelayed:
		return false
	}
	if !CanTransition(o.Status, StatusDelayed) {
		return false
	}
	o.Status = StatusDelayed
	return true
}

// Cancel reasons offered to the customer. Fixable reasons send the customer
// to the edit form instead of cancelling.
var CancelReasons = map[string]string{
	"found_cheaper":            "Found a cheaper price somewhere else",
	"ordered_by_mistake":       "Placed the order by mistake",
	"payment_issue":            "Payment or checkout issues",
	"item_not_needed":          "No longer need the item",
	"duplicate_order":          "Accidentally placed a duplicate order",
	"wrong_product":            "Selected the wrong product",
	"delivery_date_unsuitable": "Delivery date is too late",
	"size_color_change":        "I want to change size or color",
	"quantity_issue":           "I want to change the quantity",
	"not_trusted":              "Not comfortable proceeding with this purchase",
	"edit_details":             "I want to edit delivery details",
	"other":                    "Other reason",
}

var fixableReasons = map[string]bool{
	"wrong_address":  true,
	"wrong_slot":     true,
	"change_address": true,
	"edit_details":   true,
}

const noReasonProvided = "No reason provided"
