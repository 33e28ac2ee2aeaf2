package favorites

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"

	Logger "github.com/neillwu/wanclient/utils/log"
)

const changedTopic = "favorites.changed"

// SignalBus broadcasts the favorites change signal: a fire-and-forget,
// payload-free event telling subscribers that the favorites set mutated.
// Delivery is at-most-once per emission with no replay; a subscriber that
// is busy while several emissions happen sees them coalesced into one.
// Subscribers should react by re-reading authoritative state (typically
// Engine.Refresh), never by assuming the signal carries the new value.
type SignalBus struct {
	bus *gochannel.GoChannel
}

func NewSignalBus() *SignalBus {
	return &SignalBus{
		bus: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 16},
			watermill.NewStdLogger(false, false),
		),
	}
}

// Emit broadcasts one change signal. Never blocks on slow subscribers.
func (b *SignalBus) Emit() {
	msg := message.NewMessage(uuid.New().String(), nil)
	if err := b.bus.Publish(changedTopic, msg); err != nil {
		Logger.Log.Warnf("failed to publish favorites change signal: %v", err)
	}
}

// Subscribe registers an observer. The returned channel carries one token
// per delivered emission (buffered, drop-if-full, which is what coalesces
// bursts) and is closed when ctx is canceled. To unsubscribe, cancel the
// context the subscription was made with.
func (b *SignalBus) Subscribe(ctx context.Context) (<-chan struct{}, error) {
	msgs, err := b.bus.Subscribe(ctx, changedTopic)
	if err != nil {
		return nil, err
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		for msg := range msgs {
			msg.Ack()
			select {
			case out <- struct{}{}:
			default:
			}
		}
	}()
	return out, nil
}

// Close tears the bus down; all subscriber channels close.
func (b *SignalBus) Close() error {
	return b.bus.Close()
}
