package notifications

import (
	"context"

	"planner/pkg/kafka"
	"planner/pkg/logger"
)

// NewLoggingHandler consumes notification events for the delivery layer. Delivery
// channels live outside this module, so the handler records what would be sent.
func NewLoggingHandler(log *logger.Logger) kafka.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		var ev Event
		if err := msg.DecodeValue(&ev); err != nil {
			return kafka.NewPermanentError("decode notification", err)
		}

		args := []any{
			"type", ev.Type,
			"slot_id", ev.SlotID,
			"event_id", msg.GetEventID(),
			"correlation_id", msg.GetCorrelationID(),
			"slot_time", ev.Time,
		}
		if ev.Occupant != nil {
			args = append(args, "occupant_id", ev.Occupant.ID, "occupant_type", ev.Occupant.Type, "email", ev.Occupant.Email)
		}
		if len(ev.Emails) > 0 {
			args = append(args, "emails", ev.Emails)
		}

		log.Info("Notification ready for delivery", args...)
		return nil
	}
}
