package events

import (
	"context"
	"encoding/json"
	"fmt"

	"compliance-assistant-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const Topic = "domain.events"

// Publisher is implemented by anything that can emit domain events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Handler processes one delivered event. Failures are logged, events are not redelivered.
type Handler func(ctx context.Context, event BaseEvent) error

// Bus is the in-process event bus. Every subscriber receives every event.
type Bus struct {
	pubSub *gochannel.GoChannel
	logger logger.ILogger
}

func NewBus(log logger.ILogger) *Bus {
	if log == nil {
		log = logger.NewNopLogger()
	}
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermill.NopLogger{},
	)
	return &Bus{pubSub: pubSub, logger: log}
}

func (b *Bus) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(ToBase(event))
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", event.EventType(), err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	if err := b.pubSub.Publish(Topic, msg); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", event.EventType(), err)
	}
	return nil
}

// Subscribe starts a consumer goroutine that runs until ctx is done or the bus is closed.
func (b *Bus) Subscribe(ctx context.Context, name string, handler Handler) error {
	messages, err := b.pubSub.Subscribe(ctx, Topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe %s: %w", name, err)
	}

	go func() {
		for msg := range messages {
			var evt BaseEvent
			if err := json.Unmarshal(msg.Payload, &evt); err != nil {
				b.logger.Error("EventBus", "Dropping undecodable event", map[string]interface{}{"subscriber": name, "error": err.Error()})
				msg.Ack()
				continue
			}
			if err := handler(ctx, evt); err != nil {
				b.logger.Warn("EventBus", "Handler failed", map[string]interface{}{"subscriber": name, "type": evt.Type, "error": err.Error()})
			}
			msg.Ack()
		}
	}()

	b.logger.Info("EventBus", "Subscriber started", map[string]interface{}{"subscriber": name})
	return nil
}

func (b *Bus) Close() error {
	return b.pubSub.Close()
}
