package testutil

import (
	"context"
	"io"
	"sync"
	"time"

	"planner/internal/notifications"
	timelinerepo "planner/internal/timeline/repository"
	"planner/pkg/config"
	"planner/pkg/logger"
	"planner/pkg/model"
)

var (
	_ timelinerepo.TimelineRepository = (*Timeline)(nil)
	_ notifications.Notifier          = (*Notifier)(nil)
)

type TimelineEntry struct {
	EntityID  string
	EventType string
	Status    string
	Message   string
}

type Timeline struct {
	mu      sync.Mutex
	Entries []TimelineEntry
	Err     error
}

func (t *Timeline) RecordEvent(ctx context.Context, entityID, eventType, eventStatus, message string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return t.Err
	}
	t.Entries = append(t.Entries, TimelineEntry{entityID, eventType, eventStatus, message})
	return nil
}

func (t *Timeline) Count(eventType string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, e := range t.Entries {
		if e.EventType == eventType {
			n++
		}
	}
	return n
}

type Notification struct {
	Type        string
	SlotID      string
	Occupant    model.Occupant
	Emails      []string
	Application *model.Application
}

// Notifier records notifications synchronously.
type Notifier struct {
	mu   sync.Mutex
	Sent []Notification
}

func (n *Notifier) NotifyBooked(occupant model.Occupant, slot *model.Slot) {
	n.record(Notification{Type: notifications.EventSlotBooked, SlotID: slot.ID, Occupant: occupant})
}

func (n *Notifier) NotifyUnassigned(slot *model.Slot, emails []string) {
	n.record(Notification{Type: notifications.EventSlotUnassigned, SlotID: slot.ID, Emails: emails})
}

func (n *Notifier) NotifyRescheduled(application *model.Application, slot *model.Slot) {
	n.record(Notification{Type: notifications.EventApplicationRescheduled, SlotID: slot.ID, Application: application})
}

func (n *Notifier) record(notification Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Sent = append(n.Sent, notification)
}

func (n *Notifier) Count(eventType string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, s := range n.Sent {
		if s.Type == eventType {
			c++
		}
	}
	return c
}

// Config returns a service config with fast retries and a silent logger.
func Config() *config.Config {
	return &config.Config{
		DefaultUserLimit:     config.DefaultDefaultUserLimit,
		ConflictMaxAttempts:  config.DefaultConflictMaxAttempts,
		RetryInitialInterval: time.Millisecond,
		PanelLockTTL:         time.Second,
		ReadTimeout:          time.Second,
		WriteTimeout:         time.Second,
		Log:                  logger.New(logger.Config{Output: io.Discard, Level: logger.ERROR}),
	}
}
