// README: Customer notifications on order status changes. Failures are reported, never retried here.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log"

	"vetrimart/internal/types"
)

type Kind string

const (
	KindStatusChanged Kind = "status_changed"
	KindCancelled     Kind = "cancelled"
	KindConfirmed     Kind = "confirmed"
)

// Message describes one customer-facing notification about an order.
type Message struct {
	Kind       Kind
	OrderID    types.ID
	CustomerID types.ID
	Email      string
	Name       string
	Status     string
	Reason     string
}

func (m Message) Subject() string {
	switch m.Kind {
	case KindCancelled:
		return "Your Order Has Been Cancelled"
	case KindConfirmed:
		return fmt.Sprintf("Order #%s confirmed", m.OrderID)
	default:
		return fmt.Sprintf("Order #%s is now %s", m.OrderID, humanStatus(m.Status))
	}
}

func (m Message) Body() string {
	name := m.Name
	if name == "" {
		name = "Customer"
	}
	switch m.Kind {
	case KindCancelled:
		return fmt.Sprintf("Dear %s,\n\nYour order #%s has been cancelled.\nReason: %s\n\nThank you for shopping with VetriMart.", name, m.OrderID, m.Reason)
	case KindConfirmed:
		return fmt.Sprintf("Dear %s,\n\nWe received your payment. Order #%s is confirmed and will be packed shortly.", name, m.OrderID)
	default:
		return fmt.Sprintf("Dear %s,\n\nYour order #%s is now %s.", name, m.OrderID, humanStatus(m.Status))
	}
}

func humanStatus(s string) string {
	switch s {
	case "out_for_delivery":
		return "out for delivery"
	case "":
		return "updated"
	default:
		return s
	}
}

type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// Multi fans a message out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, msg Message) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier only writes the message to the process log. Used when no
// email or push credentials are configured.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, msg Message) error {
	log.Printf("notify: order=%s customer=%s kind=%s status=%s", msg.OrderID, msg.CustomerID, msg.Kind, msg.Status)
	return nil
}
