// README: Push notifier sending FCM topic messages per customer.
package notify

import (
	"context"
	"fmt"
	"log"

	"firebase.google.com/go/v4/messaging"
)

type pushClient interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// PushNotifier publishes to the "customer_<id>" topic the mobile app
// subscribes to after sign-in, so no device tokens are stored server-side.
type PushNotifier struct {
	client pushClient
}

func NewPushNotifier(client *messaging.Client) *PushNotifier {
	return &PushNotifier{client: client}
}

func CustomerTopic(customerID string) string {
	return "customer_" + customerID
}

func (n *PushNotifier) Notify(ctx context.Context, msg Message) error {
	if msg.CustomerID == "" {
		return nil
	}
	m := &messaging.Message{
		Topic: CustomerTopic(string(msg.CustomerID)),
		Data: map[string]string{
			"type":     string(msg.Kind),
			"order_id": string(msg.OrderID),
			"status":   msg.Status,
		},
		Notification: &messaging.Notification{
			Title: msg.Subject(),
			Body:  fmt.Sprintf("Order #%s: %s", msg.OrderID, humanStatus(msg.Status)),
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
	}
	messageID, err := n.client.Send(ctx, m)
	if err != nil {
		return fmt.Errorf("sending FCM for order %s: %w", msg.OrderID, err)
	}
	log.Printf("FCM sent for order %s, message_id=%s", msg.OrderID, messageID)
	return nil
}
