// Package notifications turns booking trigger points into Kafka events.
//
// Enqueueing never blocks a request: events go into a bounded queue drained by a
// single worker. When the queue is full the event is dropped and counted.
package notifications

import (
	"context"
	"sync"
	"time"

	"planner/pkg/kafka"
	"planner/pkg/logger"
	"planner/pkg/metrics"
	"planner/pkg/model"
)

const (
	EventSlotBooked             = "slot.booked"
	EventSlotUnassigned         = "slot.unassigned"
	EventApplicationRescheduled = "application.rescheduled"

	SchemaVersion = "1"
	Source        = "planner"

	publishTimeout = 5 * time.Second
)

// Notifier is fire-and-forget. Implementations must not block the caller.
type Notifier interface {
	NotifyBooked(occupant model.Occupant, slot *model.Slot)
	NotifyUnassigned(slot *model.Slot, emails []string)
	NotifyRescheduled(application *model.Application, slot *model.Slot)
}

// Event is the payload published to the notifications topic.
type Event struct {
	Type          string          `json:"type"`
	SlotID        string          `json:"slot_id,omitempty"`
	PanelID       string          `json:"panel_id,omitempty"`
	SlotType      string          `json:"slot_type,omitempty"`
	InterviewMode string          `json:"interview_mode,omitempty"`
	Time          time.Time       `json:"time,omitzero"`
	EndTime       time.Time       `json:"end_time,omitzero"`
	Occupant      *model.Occupant `json:"occupant,omitempty"`
	Emails        []string        `json:"emails,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

type Dispatcher struct {
	publisher kafka.Publisher
	log       *logger.Logger
	queue     chan Event

	mu      sync.RWMutex
	closed  bool
	started bool
	done    chan struct{}
}

func NewDispatcher(publisher kafka.Publisher, log *logger.Logger, queueSize int) *Dispatcher {
	if queueSize < 1 {
		queueSize = 1
	}
	return &Dispatcher{
		publisher: publisher,
		log:       log.Component("notifications"),
		queue:     make(chan Event, queueSize),
		done:      make(chan struct{}),
	}
}

// Start launches the worker. It is safe to call once.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.started = true
	go d.run()
}

func (d *Dispatcher) NotifyBooked(occupant model.Occupant, slot *model.Slot) {
	ev := eventForSlot(EventSlotBooked, slot)
	ev.Occupant = &occupant
	d.enqueue(ev)
}

func (d *Dispatcher) NotifyUnassigned(slot *model.Slot, emails []string) {
	ev := eventForSlot(EventSlotUnassigned, slot)
	ev.Emails = emails
	d.enqueue(ev)
}

func (d *Dispatcher) NotifyRescheduled(application *model.Application, slot *model.Slot) {
	ev := eventForSlot(EventApplicationRescheduled, slot)
	ev.Occupant = &model.Occupant{
		ID:    application.ID,
		Type:  model.OccupantApplication,
		Name:  application.Name,
		Email: application.Email,
	}
	d.enqueue(ev)
}

func (d *Dispatcher) enqueue(ev Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		metrics.NotificationsSent.WithLabelValues(ev.Type, metrics.OutcomeDropped).Inc()
		d.log.Warn("Notification dropped, dispatcher closed", "type", ev.Type, "slot_id", ev.SlotID)
		return
	}

	select {
	case d.queue <- ev:
		metrics.NotificationQueueDepth.Inc()
	default:
		metrics.NotificationsSent.WithLabelValues(ev.Type, metrics.OutcomeDropped).Inc()
		d.log.Warn("Notification dropped, queue full", "type", ev.Type, "slot_id", ev.SlotID)
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for ev := range d.queue {
		metrics.NotificationQueueDepth.Dec()
		d.publish(ev)
	}
}

func (d *Dispatcher) publish(ev Event) {
	msg, err := kafka.NewMessage().
		WithKey(ev.SlotID).
		WithValue(ev).
		WithEventType(ev.Type).
		WithCorrelationID(ev.PanelID).
		WithSchemaVersion(SchemaVersion).
		WithSource(Source).
		Build()
	if err != nil {
		metrics.NotificationsSent.WithLabelValues(ev.Type, metrics.OutcomeFailure).Inc()
		d.log.Error("Failed to build notification", "type", ev.Type, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := d.publisher.Publish(ctx, msg); err != nil {
		metrics.NotificationsSent.WithLabelValues(ev.Type, metrics.OutcomeFailure).Inc()
		d.log.Error("Failed to publish notification",
			"type", ev.Type,
			"slot_id", ev.SlotID,
			"event_id", msg.GetEventID(),
			"error", err,
		)
		return
	}
	metrics.NotificationsSent.WithLabelValues(ev.Type, metrics.OutcomeSuccess).Inc()
}

// Close stops accepting events and waits for the queue to drain or ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	started := d.started
	d.mu.Unlock()

	if !started {
		return nil
	}

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func eventForSlot(eventType string, slot *model.Slot) Event {
	ev := Event{
		Type:          eventType,
		SlotID:        slot.ID,
		SlotType:      slot.SlotType,
		InterviewMode: slot.InterviewMode,
		Time:          slot.Time,
		EndTime:       slot.EndTime,
		OccurredAt:    time.Now().UTC(),
	}
	if slot.InPanel() {
		ev.PanelID = *slot.PanelID
	}
	return ev
}
