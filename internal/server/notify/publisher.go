package notify

import (
	"context"
	"encoding/json"
	"fmt"
)

// Notification is the payload delivered to clients. Kept as a flat map so
// producers can attach whatever keys the notification type needs.
type Notification map[string]any

// Publisher is the producer-side interface: services publish targeted
// notifications and never see connections.
type Publisher interface {
	Publish(ctx context.Context, userIDs []string, n Notification) error
}

// envelope is the on-channel message shape.
type envelope struct {
	UserIDs      []string     `json:"user_ids"`
	Notification Notification `json:"notification"`
}

// BrokerPublisher publishes notifications onto the shared broker channel.
type BrokerPublisher struct {
	broker Broker
}

func NewBrokerPublisher(broker Broker) *BrokerPublisher {
	return &BrokerPublisher{broker: broker}
}

// Publish targets the given users. Publishing to an empty target set is a
// no-op so callers do not need to special-case it.
func (p *BrokerPublisher) Publish(ctx context.Context, userIDs []string, n Notification) error {
	if len(userIDs) == 0 {
		return nil
	}
	payload, err := json.Marshal(envelope{UserIDs: userIDs, Notification: n})
	if err != nil {
		return fmt.Errorf("notification marshal error: %w", err)
	}
	return p.broker.Publish(ctx, payload)
}
