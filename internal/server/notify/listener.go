package notify

import (
	"context"
	"encoding/json"

	"eventcal-backend/internal/logging"
)

// Listener bridges the broker and the local registry: it subscribes to the
// shared channel and dispatches each message to the targeted users'
// connections held by this process.
type Listener struct {
	broker   Broker
	registry *Registry
	logger   logging.Logger
}

func NewListener(broker Broker, registry *Registry, logger logging.Logger) *Listener {
	return &Listener{broker: broker, registry: registry, logger: logger}
}

// Run subscribes and loops until ctx is cancelled or the subscription's
// message stream ends. Malformed messages are logged and skipped; they never
// stop the loop. The subscription is released before returning.
func (l *Listener) Run(ctx context.Context) error {
	sub, err := l.broker.Subscribe(ctx)
	if err != nil {
		return err
	}
	defer sub.Close()

	l.logger.Info(ctx, "notification listener started", "channel", Channel)

	for {
		select {
		case <-ctx.Done():
			l.logger.Info(ctx, "notification listener stopping")
			return nil
		case payload, ok := <-sub.Messages():
			if !ok {
				return nil
			}
			l.handle(ctx, payload)
		}
	}
}

func (l *Listener) handle(ctx context.Context, payload []byte) {
	var msg envelope
	if err := json.Unmarshal(payload, &msg); err != nil {
		l.logger.Warn(ctx, "malformed notification message", "error", err)
		return
	}
	if len(msg.UserIDs) == 0 {
		return
	}
	body, err := json.Marshal(msg.Notification)
	if err != nil {
		l.logger.Warn(ctx, "notification payload marshal error", "error", err)
		return
	}
	l.registry.Dispatch(ctx, msg.UserIDs, body)
}
