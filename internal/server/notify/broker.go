package notify

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Channel is the broker channel every server process publishes to and
// subscribes on. One channel carries all notification traffic; targeting
// happens via the user id list inside each message.
const Channel = "event_notifications"

// Broker is the shared publish/subscribe transport between server processes.
type Broker interface {
	Publish(ctx context.Context, payload []byte) error
	Subscribe(ctx context.Context) (Subscription, error)
}

// Subscription is one live broker subscription. Messages stays open until
// Close; Close releases the subscription.
type Subscription interface {
	Messages() <-chan []byte
	Close() error
}

// RedisBroker implements Broker over a Redis pub/sub channel shared by all
// server processes.
type RedisBroker struct {
	client *redis.Client
}

func NewRedisBroker(client *redis.Client) *RedisBroker {
	return &RedisBroker{client: client}
}

func (b *RedisBroker) Publish(ctx context.Context, payload []byte) error {
	return b.client.Publish(ctx, Channel, payload).Err()
}

func (b *RedisBroker) Subscribe(ctx context.Context) (Subscription, error) {
	pubsub := b.client.Subscribe(ctx, Channel)
	// Wait for the subscription to be confirmed so no message published
	// after Subscribe returns is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}
	sub := &redisSubscription{
		pubsub: pubsub,
		out:    make(chan []byte),
		done:   make(chan struct{}),
	}
	go pumpMessages(pubsub.Channel(), sub.out, sub.done)
	return sub, nil
}

type redisSubscription struct {
	pubsub *redis.PubSub
	out    chan []byte
	done   chan struct{}
	once   sync.Once
}

func (s *redisSubscription) Messages() <-chan []byte { return s.out }

func (s *redisSubscription) Close() error {
	s.once.Do(func() { close(s.done) })
	return s.pubsub.Close()
}

// pumpMessages converts the typed go-redis channel into a plain byte channel.
// The goroutine ends when the pubsub is closed; done also releases a send in
// flight when the consumer stops reading before Close, so the goroutine never
// outlives the subscription.
func pumpMessages(src <-chan *redis.Message, out chan<- []byte, done <-chan struct{}) {
	defer close(out)
	for msg := range src {
		select {
		case out <- []byte(msg.Payload):
		case <-done:
			return
		}
	}
}
