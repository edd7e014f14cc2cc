package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"planner/internal/notifications"
	"planner/internal/testutil"
	timelinerepo "planner/internal/timeline/repository"
	apperrors "planner/pkg/errors"
	"planner/pkg/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fixture struct {
	slots    *testutil.SlotStore
	panels   *testutil.PanelStore
	people   *testutil.Directory
	timeline *testutil.Timeline
	notifier *testutil.Notifier
	svc      PublishService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		slots:    testutil.NewSlotStore(),
		panels:   testutil.NewPanelStore(),
		people:   testutil.NewDirectory(),
		timeline: &testutil.Timeline{},
		notifier: &testutil.Notifier{},
	}
	f.svc = NewPublishService(f.slots, f.panels, f.people, f.timeline, f.notifier, testutil.Config())
	return f
}

func at(day, hh, mm int) time.Time {
	return time.Date(2026, time.March, day, hh, mm, 0, 0, time.UTC)
}

func (f *fixture) addPanel(day int) *model.Panel {
	return f.panels.Put(&model.Panel{
		PanelType: "technical",
		SlotType:  model.SlotTypeGD,
		Time:      at(day, 9, 0),
		EndTime:   at(day, 11, 0),
		Status:    model.StatusDraft,
		UserLimit: 2,
	})
}

func (f *fixture) addSlot(panel *model.Panel, day, hh int, occupants ...string) *model.Slot {
	slot := &model.Slot{
		SlotType:      model.SlotTypeGD,
		InterviewMode: "online",
		Time:          at(day, hh, 0),
		EndTime:       at(day, hh, 20),
		SlotDuration:  20,
		Status:        model.StatusDraft,
		AvailableSlot: model.AvailabilityOpen,
		UserLimit:     2,
		TakeSlot:      model.TakeSlot{ApplicationIDs: []string{}, PanelistIDs: []string{}},
	}
	if panel != nil {
		id := panel.ID
		slot.PanelID = &id
	}
	for _, o := range occupants {
		slot.AddOccupant(o, model.OccupantApplication)
	}
	return f.slots.Put(slot)
}

func TestPublishByIDs_PanelPromotedWhenAllSlotsPublished(t *testing.T) {
	f := newFixture(t)
	app := f.people.AddApplication("Asha", "asha@example.com")
	panel := f.addPanel(2)
	first := f.addSlot(panel, 2, 9, app.ID)
	second := f.addSlot(panel, 2, 10)

	result, err := f.svc.PublishByIDs(context.Background(), []string{first.ID}, nil)
	if err != nil {
		t.Fatalf("PublishByIDs() error: %v", err)
	}
	if result.PublishedSlots != 1 {
		t.Errorf("published_slots = %d, want 1", result.PublishedSlots)
	}
	if len(result.PromotedPanels) != 0 || len(result.PendingPanels) != 1 {
		t.Errorf("panel must stay pending: promoted=%v pending=%v", result.PromotedPanels, result.PendingPanels)
	}
	if f.panels.Get(panel.ID).IsPublished() {
		t.Error("panel published while a slot is still draft")
	}
	if f.notifier.Count(notifications.EventSlotBooked) != 0 {
		t.Error("no notification expected before promotion")
	}

	result, err = f.svc.PublishByIDs(context.Background(), []string{second.ID}, nil)
	if err != nil {
		t.Fatalf("PublishByIDs() error: %v", err)
	}
	if len(result.PromotedPanels) != 1 || result.PromotedPanels[0] != panel.ID {
		t.Errorf("promoted = %v, want [%s]", result.PromotedPanels, panel.ID)
	}
	if !f.panels.Get(panel.ID).IsPublished() {
		t.Error("panel not published after all slots published")
	}
	if got := f.notifier.Count(notifications.EventSlotBooked); got != 1 {
		t.Errorf("booked notifications = %d, want 1", got)
	}
	if f.timeline.Count(timelinerepo.EventPanelPublished) != 1 {
		t.Error("expected a panel published timeline event")
	}

	// Publishing again neither re-promotes nor re-notifies.
	result, err = f.svc.PublishByIDs(context.Background(), []string{panel.ID}, nil)
	if err != nil {
		t.Fatalf("PublishByIDs() error: %v", err)
	}
	if result.PublishedSlots != 0 || len(result.PromotedPanels) != 0 {
		t.Errorf("repeat publish changed state: %+v", result)
	}
	if got := f.notifier.Count(notifications.EventSlotBooked); got != 1 {
		t.Errorf("booked notifications = %d after repeat, want 1", got)
	}
	if f.panels.Promotions != 1 {
		t.Errorf("promotions = %d, want 1", f.panels.Promotions)
	}
}

func TestPublishByIDs_PanelIDPublishesOwnedSlots(t *testing.T) {
	f := newFixture(t)
	panel := f.addPanel(2)
	for hh := 9; hh < 11; hh++ {
		f.addSlot(panel, 2, hh)
	}

	result, err := f.svc.PublishByIDs(context.Background(), []string{panel.ID}, nil)
	if err != nil {
		t.Fatalf("PublishByIDs() error: %v", err)
	}
	if result.PublishedSlots != 2 {
		t.Errorf("published_slots = %d, want 2", result.PublishedSlots)
	}
	if len(result.PromotedPanels) != 1 {
		t.Errorf("promoted = %v, want the panel", result.PromotedPanels)
	}
}

func TestPublishByIDs_ByDate(t *testing.T) {
	f := newFixture(t)
	today := f.addPanel(2)
	f.addSlot(today, 2, 9)
	tomorrow := f.addPanel(3)
	later := f.addSlot(tomorrow, 3, 9)
	standalone := f.addSlot(nil, 2, 14)

	date := at(2, 0, 0)
	result, err := f.svc.PublishByIDs(context.Background(), nil, &date)
	if err != nil {
		t.Fatalf("PublishByIDs() error: %v", err)
	}
	if result.PublishedSlots != 2 {
		t.Errorf("published_slots = %d, want 2", result.PublishedSlots)
	}
	if !f.slots.Get(standalone.ID).IsPublished() {
		t.Error("standalone slot on the date not published")
	}
	if f.slots.Get(later.ID).IsPublished() || f.panels.Get(tomorrow.ID).IsPublished() {
		t.Error("next day's schedule must stay draft")
	}
	if len(result.PromotedPanels) != 1 || result.PromotedPanels[0] != today.ID {
		t.Errorf("promoted = %v, want [%s]", result.PromotedPanels, today.ID)
	}
}

func TestPublishByIDs_StandaloneNotifies(t *testing.T) {
	f := newFixture(t)
	app := f.people.AddApplication("Ravi", "ravi@example.com")
	slot := f.addSlot(nil, 2, 14, app.ID)

	if _, err := f.svc.PublishByIDs(context.Background(), []string{slot.ID}, nil); err != nil {
		t.Fatalf("PublishByIDs() error: %v", err)
	}
	if len(f.notifier.Sent) != 1 {
		t.Fatalf("sent %d notifications, want 1", len(f.notifier.Sent))
	}
	if f.notifier.Sent[0].Occupant.Email != "ravi@example.com" {
		t.Errorf("occupant email = %q", f.notifier.Sent[0].Occupant.Email)
	}
}

func TestPublishByIDs_StandaloneNotifiesOnce(t *testing.T) {
	f := newFixture(t)
	app := f.people.AddApplication("Ravi", "ravi@example.com")
	slot := f.addSlot(nil, 2, 14, app.ID)

	const callers = 8
	var wg sync.WaitGroup
	published := make([]int64, callers)
	for i := range callers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := f.svc.PublishByIDs(context.Background(), []string{slot.ID}, nil)
			if err != nil {
				t.Errorf("PublishByIDs() error: %v", err)
				return
			}
			published[i] = result.PublishedSlots
		}(i)
	}
	wg.Wait()

	if got := f.notifier.Count(notifications.EventSlotBooked); got != 1 {
		t.Errorf("sent %d booked notifications, want 1", got)
	}
	var total int64
	for _, n := range published {
		total += n
	}
	if total != 1 {
		t.Errorf("published_slots summed over callers = %d, want 1", total)
	}
	if !f.slots.Get(slot.ID).IsPublished() {
		t.Error("slot not published")
	}
}

func TestPublishByIDs_Errors(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.PublishByIDs(context.Background(), nil, nil); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Errorf("empty request error = %v, want VALIDATION_ERROR", err)
	}

	both := f.addSlot(nil, 2, 15)
	date := at(2, 0, 0)
	if _, err := f.svc.PublishByIDs(context.Background(), []string{both.ID}, &date); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Errorf("ids with date error = %v, want VALIDATION_ERROR", err)
	}
	if f.slots.Get(both.ID).IsPublished() {
		t.Error("a rejected request published a slot")
	}

	missing := primitive.NewObjectID().Hex()
	_, err := f.svc.PublishByIDs(context.Background(), []string{missing, "bogus"}, nil)
	if !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("unknown ids error = %v, want NOT_FOUND", err)
	}

	slot := f.addSlot(nil, 2, 9)
	result, err := f.svc.PublishByIDs(context.Background(), []string{slot.ID, missing}, nil)
	if err != nil {
		t.Fatalf("PublishByIDs() error: %v", err)
	}
	if len(result.Unresolved) != 1 || result.Unresolved[0] != missing {
		t.Errorf("unresolved = %v, want [%s]", result.Unresolved, missing)
	}
}
