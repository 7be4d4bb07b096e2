package service

import (
	"context"

	"compliance-assistant-be/internal/pkg/logger"
	"compliance-assistant-be/pkg/events"

	"github.com/hashicorp/go-multierror"
)

// NotificationDelivery pushes events to connected clients. Implemented by the websocket hub.
type NotificationDelivery interface {
	Notify(ctx context.Context, evt events.BaseEvent) error
}

// EventSource is where domain events come from: the in-process bus or JetStream.
type EventSource interface {
	Subscribe(ctx context.Context, name string, handler events.Handler) error
}

// NotificationService delivers domain events to websocket clients and,
// when configured, forwards them to JetStream for other services.
type NotificationService struct {
	source    EventSource
	delivery  NotificationDelivery
	forwarder events.Publisher
	logger    logger.ILogger
}

func NewNotificationService(source EventSource, delivery NotificationDelivery, forwarder events.Publisher, log logger.ILogger) *NotificationService {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &NotificationService{
		source:    source,
		delivery:  delivery,
		forwarder: forwarder,
		logger:    log,
	}
}

// Start subscribes to the event source until ctx is done.
func (s *NotificationService) Start(ctx context.Context) error {
	if err := s.source.Subscribe(ctx, "notification-service", s.handleEvent); err != nil {
		s.logger.Error("NotificationService", "Failed to start notification subscriber", map[string]interface{}{"error": err})
		return err
	}
	s.logger.Info("NotificationService", "Notification service started", nil)
	return nil
}

func (s *NotificationService) handleEvent(ctx context.Context, evt events.BaseEvent) error {
	s.logger.Info("NotificationService", "Processing event", map[string]interface{}{"type": evt.Type, "user_id": evt.UserID})

	var result *multierror.Error
	if s.delivery != nil {
		if err := s.delivery.Notify(ctx, evt); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if s.forwarder != nil {
		if err := s.forwarder.Publish(ctx, evt); err != nil {
			s.logger.Warn("NotificationService", "Failed to forward event", map[string]interface{}{"type": evt.Type, "error": err.Error()})
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
