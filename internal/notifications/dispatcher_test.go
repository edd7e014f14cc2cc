package notifications

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"planner/pkg/kafka"
	"planner/pkg/logger"
	"planner/pkg/model"
)

type recordingPublisher struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
}

func (p *recordingPublisher) Publish(ctx context.Context, msg kafka.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, msg)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) published() []kafka.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]kafka.Message(nil), p.messages...)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Output: io.Discard, Level: logger.ERROR})
}

func testSlot() *model.Slot {
	panelID := "64b7f0c2a1b2c3d4e5f60002"
	return &model.Slot{
		ID:            "64b7f0c2a1b2c3d4e5f60001",
		SlotType:      model.SlotTypeGD,
		InterviewMode: "online",
		Time:          time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC),
		EndTime:       time.Date(2026, time.March, 2, 9, 20, 0, 0, time.UTC),
		PanelID:       &panelID,
	}
}

func TestDispatcher_PublishesEvents(t *testing.T) {
	pub := &recordingPublisher{}
	d := NewDispatcher(pub, testLogger(), 8)
	d.Start()

	slot := testSlot()
	d.NotifyBooked(model.Occupant{ID: "a1", Type: model.OccupantApplication, Email: "a1@example.com"}, slot)
	d.NotifyUnassigned(slot, []string{"a1@example.com", "a2@example.com"})
	d.NotifyRescheduled(&model.Application{ID: "a1", Name: "Asha", Email: "a1@example.com"}, slot)

	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	msgs := pub.published()
	if len(msgs) != 3 {
		t.Fatalf("published %d messages, want 3", len(msgs))
	}

	wantTypes := []string{EventSlotBooked, EventSlotUnassigned, EventApplicationRescheduled}
	for i, msg := range msgs {
		if msg.Key != slot.ID {
			t.Errorf("message %d key = %q, want slot id", i, msg.Key)
		}
		if msg.GetEventType() != wantTypes[i] {
			t.Errorf("message %d type = %q, want %q", i, msg.GetEventType(), wantTypes[i])
		}
		if msg.GetEventID() == "" {
			t.Errorf("message %d has no event id", i)
		}
		if msg.GetCorrelationID() != *slot.PanelID {
			t.Errorf("message %d correlation id = %q, want panel id", i, msg.GetCorrelationID())
		}

		var ev Event
		if err := msg.DecodeValue(&ev); err != nil {
			t.Fatalf("decode message %d: %v", i, err)
		}
		if ev.PanelID != *slot.PanelID {
			t.Errorf("message %d panel_id = %q", i, ev.PanelID)
		}
	}

	var unassigned Event
	_ = msgs[1].DecodeValue(&unassigned)
	if len(unassigned.Emails) != 2 {
		t.Errorf("unassigned emails = %v", unassigned.Emails)
	}

	var rescheduled Event
	_ = msgs[2].DecodeValue(&rescheduled)
	if rescheduled.Occupant == nil || rescheduled.Occupant.Name != "Asha" {
		t.Errorf("rescheduled occupant = %+v", rescheduled.Occupant)
	}
}

func TestDispatcher_DropsWhenQueueFull(t *testing.T) {
	pub := &recordingPublisher{}
	d := NewDispatcher(pub, testLogger(), 1)

	slot := testSlot()
	d.NotifyUnassigned(slot, nil)
	d.NotifyUnassigned(slot, nil)

	d.Start()
	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	if got := len(pub.published()); got != 1 {
		t.Errorf("published %d messages, want 1", got)
	}
}

func TestDispatcher_PublishFailureDoesNotStopWorker(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	d := NewDispatcher(pub, testLogger(), 4)
	d.Start()

	d.NotifyUnassigned(testSlot(), nil)
	d.NotifyUnassigned(testSlot(), nil)

	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
}

func TestDispatcher_NotifyAfterClose(t *testing.T) {
	pub := &recordingPublisher{}
	d := NewDispatcher(pub, testLogger(), 4)
	d.Start()

	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	d.NotifyUnassigned(testSlot(), nil)

	if err := d.Close(context.Background()); err != nil {
		t.Errorf("second Close() error: %v", err)
	}
	if got := len(pub.published()); got != 0 {
		t.Errorf("published %d messages after close", got)
	}
}

func TestLoggingHandler(t *testing.T) {
	handler := NewLoggingHandler(testLogger())

	msg, err := kafka.NewMessage().
		WithKey("s1").
		WithValue(Event{Type: EventSlotBooked, SlotID: "s1"}).
		WithEventType(EventSlotBooked).
		Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if err := handler(context.Background(), msg); err != nil {
		t.Errorf("handler error: %v", err)
	}

	bad := kafka.Message{Key: "s1", Value: []byte("{not json"), Headers: map[string]string{}}
	err = handler(context.Background(), bad)
	if err == nil {
		t.Fatal("expected decode error")
	}
	if kafka.ClassifyError(err) != kafka.ErrorTypePermanent {
		t.Errorf("decode errors should be permanent, got %v", kafka.ClassifyError(err))
	}
}
