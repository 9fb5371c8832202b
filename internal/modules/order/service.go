// README: Order service implements state transitions and persistence.
package order

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"vetrimart/internal/modules/cart"
	"vetrimart/internal/modules/notify"
	"vetrimart/internal/modules/payment"
	"vetrimart/internal/modules/pricing"
	"vetrimart/internal/modules/slot"
	"vetrimart/internal/modules/tracking"
	"vetrimart/internal/types"
)

var (
	ErrInvalidState        = errors.New("invalid state transition")
	ErrNotFound            = errors.New("order not found")
	ErrConflict            = errors.New("order state conflict")
	ErrBadRequest          = errors.New("bad request")
	ErrOrderLocked         = errors.New("order can no longer be changed")
	ErrEditInstead         = errors.New("edit delivery details instead of cancelling")
	ErrPaymentVerification = errors.New("payment verification failed")
)

// Repository is the persistence the order service needs. Save is a
// compare-and-set on StatusVersion.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id types.ID) (*Order, error)
	Save(ctx context.Context, o *Order, expectedVersion int) (bool, error)
	AppendEvent(ctx context.Context, e *Event) error
	ListByCustomer(ctx context.Context, customerID types.ID) ([]*Order, error)
}

type Deps struct {
	Pricing   *pricing.Service
	Gateway   payment.Gateway
	Verifier  payment.Verifier
	Notifier  notify.Notifier
	Locker    Locker
	Simulator *tracking.Simulator
	Warehouse types.GeoPoint
}

type Service struct {
	store     Repository
	pricing   *pricing.Service
	gateway   payment.Gateway
	verifier  payment.Verifier
	notifier  notify.Notifier
	locker    Locker
	sim       *tracking.Simulator
	warehouse types.GeoPoint
}

func NewService(store Repository, deps Deps) *Service {
	s := &Service{
		store:     store,
		pricing:   deps.Pricing,
		gateway:   deps.Gateway,
		verifier:  deps.Verifier,
		notifier:  deps.Notifier,
		locker:    deps.Locker,
		sim:       deps.Simulator,
		warehouse: deps.Warehouse,
	}
	if s.pricing == nil {
		s.pricing = pricing.NewService(pricing.DefaultTaxRate)
	}
	if s.notifier == nil {
		s.notifier = notify.LogNotifier{}
	}
	if s.locker == nil {
		s.locker = NewKeyedMutex()
	}
	if s.sim == nil {
		s.sim = tracking.NewSimulator(tracking.DefaultStepFraction)
	}
	return s
}

func (s *Service) Warehouse() types.GeoPoint { return s.warehouse }

type CreateCommand struct {
	CustomerID    types.ID
	ZoneID        *types.ID
	Destination   types.GeoPoint
	Slot          string
	Contact       Contact
	PaymentMethod string
	Lines         []cart.Line
	ETA           *time.Time
}

type CreateResult struct {
	Status           string
	OrderID          types.ID
	GatewayOrderID   string
	AmountMinorUnits int64
	GatewayKey       string
}

type VerifyCommand struct {
	OrderID          types.ID
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}

type CancelCommand struct {
	OrderID     types.ID
	CustomerID  types.ID
	Reason      string
	OtherReason string
}

type EditCommand struct {
	OrderID       types.ID
	CustomerID    types.ID
	StreetAddress string
	City          string
	ZoneID        *types.ID
	Destination   *types.GeoPoint
	Slot          string
	ETA           *time.Time
}

// Tracking is what a poll returns. Driver is nil until the order leaves the
// warehouse queue.
type Tracking struct {
	OrderID  types.ID
	Driver   *types.GeoPoint
	Customer types.GeoPoint
	Status   Status
}

// Create prices the lines, snapshots them and opens a gateway order for the
// total. Free orders are refused since the gateway cannot collect zero.
// Nothing is stored if the gateway call fails.
func (s *Service) Create(ctx context.Context, cmd CreateCommand, now time.Time) (*CreateResult, error) {
	if cmd.CustomerID == "" || len(cmd.Lines) == 0 {
		return nil, ErrBadRequest
	}
	if strings.TrimSpace(cmd.Contact.FullName) == "" || strings.TrimSpace(cmd.Contact.StreetAddress) == "" {
		return nil, ErrBadRequest
	}
	if err := cmd.Destination.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	if _, err := slot.Parse(cmd.Slot); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	quote, err := s.pricing.Totals(cart.PricingInputs(cmd.Lines))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	if !quote.Total.IsPositive() {
		return nil, fmt.Errorf("%w: order total must be positive", ErrBadRequest)
	}
	if s.gateway == nil {
		return nil, payment.ErrMissingCredential
	}

	id := newID()
	items := make([]Item, 0, len(cmd.Lines))
	for _, l := range cmd.Lines {
		p := l.Product()
		items = append(items, Item{
			OrderID:     id,
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    l.Quantity(),
			UnitPrice:   l.UnitPrice(),
		})
	}

	pending := StatusPending
	o := &Order{
		ID:                   id,
		CustomerID:           cmd.CustomerID,
		ZoneID:               cmd.ZoneID,
		Contact:              cmd.Contact,
		Destination:          cmd.Destination,
		Slot:                 cmd.Slot,
		Status:               StatusPending,
		StatusVersion:        0,
		PaymentStatus:        PaymentPending,
		PaymentMethod:        cmd.PaymentMethod,
		ExpectedDeliveryTime: cmd.ETA,
		LastNotifiedStatus:   &pending,
		CreatedAt:            now,
		UpdatedAt:            now,
		Items:                items,
	}
	if o.PaymentMethod == "" {
		o.PaymentMethod = "razorpay"
	}
	if err := s.CalculateTotals(o); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}

	amount := types.MinorUnits(o.TotalAmount)
	gw, err := s.gateway.CreateOrder(ctx, amount, string(id))
	if err != nil {
		return nil, err
	}
	o.GatewayOrderID = gw.ID

	if err := s.store.Create(ctx, o); err != nil {
		return nil, err
	}
	_ = s.store.AppendEvent(ctx, &Event{
		OrderID:    id,
		FromStatus: StatusNone,
		ToStatus:   StatusPending,
		ActorType:  ActorCustomer,
		ActorID:    &cmd.CustomerID,
		CreatedAt:  now,
	})

	return &CreateResult{
		Status:           "created",
		OrderID:          id,
		GatewayOrderID:   gw.ID,
		AmountMinorUnits: amount,
		GatewayKey:       s.gateway.KeyID(),
	}, nil
}

// CalculateTotals recomputes subtotal, tax and total from the item snapshot.
func (s *Service) CalculateTotals(o *Order) error {
	lines := make([]pricing.LineInput, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, pricing.LineInput{UnitPrice: it.UnitPrice, Quantity: it.Quantity})
	}
	t, err := s.pricing.Totals(lines)
	if err != nil {
		return err
	}
	o.Subtotal, o.Tax, o.TotalAmount = t.Subtotal, t.Tax, t.Total
	return nil
}

// VerifyPayment checks the gateway signature before touching the order. A
// repeated callback for an already-paid order is accepted without change.
func (s *Service) VerifyPayment(ctx context.Context, cmd VerifyCommand, now time.Time) (*Order, error) {
	if cmd.OrderID == "" || cmd.GatewayOrderID == "" {
		return nil, ErrBadRequest
	}
	if s.verifier == nil {
		return nil, ErrPaymentVerification
	}
	if err := s.verifier.Verify(cmd.GatewayOrderID, cmd.GatewayPaymentID, cmd.Signature); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentVerification, err)
	}

	return s.mutate(ctx, cmd.OrderID, Actor{Type: ActorGateway}, now, "", func(o *Order) (bool, error) {
		if o.GatewayOrderID != cmd.GatewayOrderID {
			return false, ErrNotFound
		}
		if o.PaymentStatus == PaymentPaid {
			return false, nil
		}
		if !o.AwaitingPayment() || !CanTransition(o.Status, StatusConfirmed) {
			return false, ErrInvalidState
		}
		o.PaymentStatus = PaymentPaid
		o.GatewayPaymentID = cmd.GatewayPaymentID
		o.Status = StatusConfirmed
		return true, nil
	})
}

// Dispatch hands a confirmed order to the warehouse; the rider starts at the
// warehouse coordinates. A delayed order can be dispatched only if it is paid
// and its rider has not left yet.
func (s *Service) Dispatch(ctx context.Context, id types.ID, actor Actor, now time.Time) (*Order, error) {
	return s.mutate(ctx, id, actor, now, "", func(o *Order) (bool, error) {
		switch {
		case o.Status == StatusConfirmed:
		case o.Status == StatusDelayed && o.PaymentStatus == PaymentPaid && !o.InTransit():
		default:
			return false, ErrInvalidState
		}
		o.Status = StatusProcessing
		wh := s.warehouse
		o.CurrentPosition = &wh
		log.Printf("order %s dispatched from warehouse %s", o.ID, wh)
		return true, nil
	})
}

func (s *Service) StartDelivery(ctx context.Context, id types.ID, actor Actor, now time.Time) (*Order, error) {
	return s.mutate(ctx, id, actor, now, "", func(o *Order) (bool, error) {
		switch {
		case o.Status == StatusProcessing:
		case o.Status == StatusDelayed && o.PaymentStatus == PaymentPaid:
		default:
			return false, ErrInvalidState
		}
		o.Status = StatusOutForDelivery
		if o.CurrentPosition == nil {
			wh := s.warehouse
			o.CurrentPosition = &wh
		}
		if o.DepartedAt == nil {
			t := now
			o.DepartedAt = &t
		}
		return true, nil
	})
}

// Track is one client poll. Movement only happens here: each call advances a
// rider who is in transit one step, then applies the overdue rule. A delayed
// rider keeps moving and still arrives.
func (s *Service) Track(ctx context.Context, id, customerID types.ID, now time.Time) (*Tracking, error) {
	o, err := s.mutate(ctx, id, SystemActor, now, customerID, func(o *Order) (bool, error) {
		changed := false
		if o.Status == StatusProcessing && o.CurrentPosition == nil {
			wh := s.warehouse
			o.CurrentPosition = &wh
			changed = true
		}
		if o.InTransit() {
			cur := s.warehouse
			if o.CurrentPosition != nil {
				cur = *o.CurrentPosition
			}
			next, arrived := s.sim.Advance(cur, o.Destination)
			if o.CurrentPosition == nil || next != *o.CurrentPosition {
				changed = true
			}
			o.CurrentPosition = &next
			if arrived {
				o.Status = StatusDelivered
				changed = true
			}
		}
		if UpdateStatus(o, now) {
			changed = true
		}
		return changed, nil
	})
	if err != nil {
		return nil, err
	}
	return &Tracking{
		OrderID:  o.ID,
		Driver:   o.CurrentPosition,
		Customer: o.Destination,
		Status:   o.Status,
	}, nil
}

// Cancel refuses once the rider has left. Reasons that an edit can fix
// return ErrEditInstead so the caller can send the customer to the edit form.
func (s *Service) Cancel(ctx context.Context, cmd CancelCommand, now time.Time) (*Order, error) {
	actor := CustomerActor(cmd.CustomerID)
	return s.mutate(ctx, cmd.OrderID, actor, now, cmd.CustomerID, func(o *Order) (bool, error) {
		if o.Locked() {
			return false, ErrOrderLocked
		}
		if fixableReasons[cmd.Reason] {
			return false, ErrEditInstead
		}
		reason, err := resolveReason(cmd.Reason, cmd.OtherReason)
		if err != nil {
			return false, err
		}
		if !CanTransition(o.Status, StatusCancelled) {
			return false, ErrInvalidState
		}
		o.Status = StatusCancelled
		o.CancelReason = &reason
		return true, nil
	})
}

func resolveReason(code, other string) (string, error) {
	if code == "other" {
		if t := strings.TrimSpace(other); t != "" {
			return t, nil
		}
		return noReasonProvided, nil
	}
	label, ok := CancelReasons[code]
	if !ok {
		return "", fmt.Errorf("%w: unknown cancel reason %q", ErrBadRequest, code)
	}
	return label, nil
}

// Edit updates delivery details while the order is still editable.
func (s *Service) Edit(ctx context.Context, cmd EditCommand, now time.Time) (*Order, error) {
	if cmd.Destination != nil {
		if err := cmd.Destination.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
		}
	}
	if cmd.Slot != "" {
		if _, err := slot.Parse(cmd.Slot); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
		}
	}
	actor := CustomerActor(cmd.CustomerID)
	return s.mutate(ctx, cmd.OrderID, actor, now, cmd.CustomerID, func(o *Order) (bool, error) {
		if o.Locked() {
			return false, ErrOrderLocked
		}
		if o.Status == StatusCancelled || o.Status == StatusFailed {
			return false, ErrInvalidState
		}
		if v := strings.TrimSpace(cmd.StreetAddress); v != "" {
			o.Contact.StreetAddress = v
		}
		if v := strings.TrimSpace(cmd.City); v != "" {
			o.Contact.City = v
		}
		if cmd.ZoneID != nil {
			z := *cmd.ZoneID
			o.ZoneID = &z
		}
		if cmd.Destination != nil {
			o.Destination = *cmd.Destination
		}
		if cmd.Slot != "" {
			o.Slot = cmd.Slot
		}
		if cmd.ETA != nil {
			t := *cmd.ETA
			o.ExpectedDeliveryTime = &t
		}
		return true, nil
	})
}

func (s *Service) MarkDelayed(ctx context.Context, id types.ID, actor Actor, now time.Time) (*Order, error) {
	return s.transition(ctx, id, StatusDelayed, actor, now)
}

func (s *Service) MarkFailed(ctx context.Context, id types.ID, actor Actor, now time.Time) (*Order, error) {
	return s.transition(ctx, id, StatusFailed, actor, now)
}

// ConfirmDelivery closes a delayed, failed or in-transit order as delivered.
func (s *Service) ConfirmDelivery(ctx context.Context, id types.ID, actor Actor, now time.Time) (*Order, error) {
	return s.mutate(ctx, id, actor, now, "", func(o *Order) (bool, error) {
		switch o.Status {
		case StatusFailed, StatusDelayed, StatusOutForDelivery:
		default:
			return false, ErrInvalidState
		}
		o.Status = StatusDelivered
		dest := o.Destination
		o.CurrentPosition = &dest
		return true, nil
	})
}

func (s *Service) transition(ctx context.Context, id types.ID, to Status, actor Actor, now time.Time) (*Order, error) {
	return s.mutate(ctx, id, actor, now, "", func(o *Order) (bool, error) {
		if !CanTransition(o.Status, to) {
			return false, ErrInvalidState
		}
		o.Status = to
		return true, nil
	})
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Order, error) {
	return s.store.Get(ctx, id)
}

// GetForCustomer hides other customers' orders behind ErrNotFound.
func (s *Service) GetForCustomer(ctx context.Context, id, customerID types.ID) (*Order, error) {
	o, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.CustomerID != customerID {
		return nil, ErrNotFound
	}
	return o, nil
}

func (s *Service) ListByCustomer(ctx context.Context, customerID types.ID) ([]*Order, error) {
	if customerID == "" {
		return nil, ErrBadRequest
	}
	return s.store.ListByCustomer(ctx, customerID)
}

// mutate runs fn against a fresh read under the per-order lock and saves the
// result with a version check. A lost race is retried once with a new read.
// fn reports whether anything changed; unchanged orders are not written.
// owner, when set, must match the order's customer.
func (s *Service) mutate(ctx context.Context, id types.ID, actor Actor, now time.Time, owner types.ID, fn func(o *Order) (bool, error)) (*Order, error) {
	if id == "" {
		return nil, ErrBadRequest
	}
	unlock, err := s.locker.Lock(ctx, string(id))
	if err != nil {
		return nil, err
	}
	defer unlock()

	for attempt := 0; attempt < 2; attempt++ {
		o, err := s.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if owner != "" && o.CustomerID != owner {
			return nil, ErrNotFound
		}
		from := o.Status
		changed, err := fn(o)
		if err != nil {
			return nil, err
		}
		if !changed {
			return o, nil
		}

		notifyNeeded := o.LastNotifiedStatus == nil || *o.LastNotifiedStatus != o.Status
		if notifyNeeded {
			st := o.Status
			o.LastNotifiedStatus = &st
		}
		o.UpdatedAt = now

		ok, err := s.store.Save(ctx, o, o.StatusVersion)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		o.StatusVersion++

		if from != o.Status {
			_ = s.store.AppendEvent(ctx, &Event{
				OrderID:    o.ID,
				FromStatus: from,
				ToStatus:   o.Status,
				ActorType:  actor.Type,
				ActorID:    actor.ID,
				CreatedAt:  now,
			})
		}
		if notifyNeeded {
			s.notify(ctx, o)
		}
		return o, nil
	}
	return nil, ErrConflict
}

// notify sends at most one message per status. LastNotifiedStatus was
// persisted with the change, so a failed send is logged and not retried.
func (s *Service) notify(ctx context.Context, o *Order) {
	msg := notify.Message{
		Kind:       notify.KindStatusChanged,
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		Email:      o.Contact.Email,
		Name:       o.Contact.FullName,
		Status:     string(o.Status),
	}
	switch o.Status {
	case StatusCancelled:
		msg.Kind = notify.KindCancelled
		if o.CancelReason != nil {
			msg.Reason = *o.CancelReason
		}
	case StatusConfirmed:
		msg.Kind = notify.KindConfirmed
	}
	if err := s.notifier.Notify(ctx, msg); err != nil {
		log.Printf("notify order %s status %s: %v", o.ID, o.Status, err)
	}
}

// newID returns a 32-character hex id.
func newID() types.ID {
	return types.ID(strings.ReplaceAll(uuid.NewString(), "-", ""))
}
