package service

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"planner/internal/bookings/validator"
	"planner/internal/notifications"
	slotserrors "planner/internal/slots/errors"
	"planner/internal/testutil"
	timelinerepo "planner/internal/timeline/repository"
	apperrors "planner/pkg/errors"
	"planner/pkg/middleware"
	"planner/pkg/model"
)

type fixture struct {
	slots    *testutil.SlotStore
	people   *testutil.Directory
	lists    *testutil.InterviewListStore
	timeline *testutil.Timeline
	notifier *testutil.Notifier
	svc      BookingService
}

func newFixture(t *testing.T, maxAttempts int) *fixture {
	t.Helper()
	cfg := testutil.Config()
	if maxAttempts > 0 {
		cfg.ConflictMaxAttempts = maxAttempts
	}

	f := &fixture{
		slots:    testutil.NewSlotStore(),
		people:   testutil.NewDirectory(),
		lists:    testutil.NewInterviewListStore(),
		timeline: &testutil.Timeline{},
		notifier: &testutil.Notifier{},
	}
	f.svc = NewBookingService(f.slots, f.people, f.lists, f.people, f.timeline, f.notifier,
		validator.NewBookingValidator(cfg.Log), cfg)
	return f
}

func (f *fixture) addSlot(limit int, status, listID string) *model.Slot {
	start := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	return f.slots.Put(&model.Slot{
		SlotType:        model.SlotTypeGD,
		InterviewMode:   "online",
		Time:            start,
		EndTime:         start.Add(20 * time.Minute),
		SlotDuration:    20,
		Status:          status,
		AvailableSlot:   model.AvailabilityOpen,
		UserLimit:       limit,
		InterviewListID: listID,
		TakeSlot:        model.TakeSlot{ApplicationIDs: []string{}, PanelistIDs: []string{}},
	})
}

func ctxAs(actor string) context.Context {
	return middleware.WithActor(context.Background(), actor)
}

func TestTakeSlot_Application(t *testing.T) {
	f := newFixture(t, 0)
	target := f.lists.Add("GD round")
	other := f.lists.Add("Old round")
	app := f.people.AddApplication("Asha", "asha@example.com", other.ID)
	_ = f.lists.AddApplication(context.Background(), other.ID, app.ID)
	slot := f.addSlot(2, model.StatusDraft, target.ID)

	got, err := f.svc.TakeSlot(ctxAs("coordinator"), slot.ID, app.ID, model.OccupantApplication)
	if err != nil {
		t.Fatalf("TakeSlot() error: %v", err)
	}

	if got.BookedUser != 1 || !got.TakeSlot.Application || got.AvailableSlot != model.AvailabilityOpen {
		t.Errorf("unexpected occupancy: booked=%d flag=%v avail=%s", got.BookedUser, got.TakeSlot.Application, got.AvailableSlot)
	}
	if got.LastModifiedTimeline[0].UserID != "coordinator" {
		t.Errorf("timeline head = %+v", got.LastModifiedTimeline[0])
	}

	stored := f.people.Application(app.ID)
	if stored.MeetingDetails == nil || stored.MeetingDetails.SlotID != slot.ID {
		t.Errorf("meeting details = %+v", stored.MeetingDetails)
	}
	if !slices.Equal(stored.InterviewListIDs, []string{target.ID}) {
		t.Errorf("interview lists = %v, want only %s", stored.InterviewListIDs, target.ID)
	}

	oldList, _ := f.lists.FindByID(context.Background(), other.ID)
	if slices.Contains(oldList.ApplicationIDs, app.ID) {
		t.Error("application should be removed from other interview lists")
	}
	newList, _ := f.lists.FindByID(context.Background(), target.ID)
	if !slices.Contains(newList.ApplicationIDs, app.ID) || !slices.Contains(newList.EligibleApplications, app.ID) {
		t.Error("application should be added to the slot's interview list")
	}

	if f.timeline.Count(timelinerepo.EventSlotBooked) != 1 {
		t.Error("expected a Slot Booked timeline event")
	}
	if f.notifier.Count(notifications.EventSlotBooked) != 0 {
		t.Error("draft slots should not notify on take")
	}
}

func TestTakeSlot_PublishedSlotNotifies(t *testing.T) {
	f := newFixture(t, 0)
	app := f.people.AddApplication("Ravi", "ravi@example.com")
	slot := f.addSlot(2, model.StatusPublished, "")

	if _, err := f.svc.TakeSlot(context.Background(), slot.ID, app.ID, model.OccupantApplication); err != nil {
		t.Fatalf("TakeSlot() error: %v", err)
	}
	if f.notifier.Count(notifications.EventSlotBooked) != 1 {
		t.Errorf("expected one booked notification, got %d", f.notifier.Count(notifications.EventSlotBooked))
	}
	if f.notifier.Sent[0].Occupant.Email != "ravi@example.com" {
		t.Errorf("notification occupant = %+v", f.notifier.Sent[0].Occupant)
	}
}

func TestTakeSlot_Idempotent(t *testing.T) {
	f := newFixture(t, 0)
	app := f.people.AddApplication("Asha", "asha@example.com")
	slot := f.addSlot(3, model.StatusDraft, "")

	if _, err := f.svc.TakeSlot(context.Background(), slot.ID, app.ID, model.OccupantApplication); err != nil {
		t.Fatalf("first TakeSlot() error: %v", err)
	}
	before := f.slots.Get(slot.ID)

	_, err := f.svc.TakeSlot(context.Background(), slot.ID, app.ID, model.OccupantApplication)
	if !apperrors.HasCode(err, apperrors.CodeAlreadyAssigned) {
		t.Fatalf("expected ALREADY_ASSIGNED, got %v", err)
	}

	after := f.slots.Get(slot.ID)
	if after.Version != before.Version || after.BookedUser != 1 {
		t.Errorf("second take changed the slot: version %d -> %d, booked=%d", before.Version, after.Version, after.BookedUser)
	}
}

func TestTakeSlot_UserLimitTwo(t *testing.T) {
	f := newFixture(t, 0)
	a1 := f.people.AddApplication("A1", "a1@example.com")
	a2 := f.people.AddApplication("A2", "a2@example.com")
	a3 := f.people.AddApplication("A3", "a3@example.com")
	slot := f.addSlot(2, model.StatusDraft, "")

	for _, app := range []*model.Application{a1, a2} {
		if _, err := f.svc.TakeSlot(context.Background(), slot.ID, app.ID, model.OccupantApplication); err != nil {
			t.Fatalf("TakeSlot(%s) error: %v", app.Name, err)
		}
	}

	full := f.slots.Get(slot.ID)
	if !slices.Equal(full.TakeSlot.ApplicationIDs, []string{a2.ID, a1.ID}) {
		t.Errorf("applications = %v, want [A2 A1]", full.TakeSlot.ApplicationIDs)
	}
	if full.BookedUser != 2 || full.AvailableSlot != model.AvailabilityClosed {
		t.Errorf("booked=%d avail=%s, want 2 Closed", full.BookedUser, full.AvailableSlot)
	}

	_, err := f.svc.TakeSlot(context.Background(), slot.ID, a3.ID, model.OccupantApplication)
	if !apperrors.HasCode(err, apperrors.CodeSlotFull) {
		t.Fatalf("expected SLOT_FULL, got %v", err)
	}
	if got := f.slots.Get(slot.ID); got.Version != full.Version {
		t.Error("a rejected take must not modify a closed slot")
	}
	if f.people.Application(a3.ID).MeetingDetails != nil {
		t.Error("rejected application must not get meeting details")
	}
}

func TestTakeSlot_FullSlotIsClosed(t *testing.T) {
	f := newFixture(t, 0)
	app := f.people.AddApplication("Late", "late@example.com")
	slot := f.addSlot(2, model.StatusDraft, "")
	stale := f.slots.Get(slot.ID)
	stale.TakeSlot.ApplicationIDs = []string{"x1", "x2"}
	stale.BookedUser = 2
	stale.AvailableSlot = model.AvailabilityOpen
	f.slots.Put(stale)

	_, err := f.svc.TakeSlot(context.Background(), slot.ID, app.ID, model.OccupantApplication)
	if !apperrors.HasCode(err, apperrors.CodeSlotFull) {
		t.Fatalf("expected SLOT_FULL, got %v", err)
	}
	if got := f.slots.Get(slot.ID); got.AvailableSlot != model.AvailabilityClosed {
		t.Errorf("available_slot = %s, want Closed", got.AvailableSlot)
	}
}

func TestTakeSlot_Panelists(t *testing.T) {
	f := newFixture(t, 0)
	slot := f.addSlot(2, model.StatusDraft, "")
	p1 := f.people.AddPanelist("P1", "p1@example.com")
	p2 := f.people.AddPanelist("P2", "p2@example.com")
	p3 := f.people.AddPanelist("P3", "p3@example.com")

	for _, p := range []*model.Panelist{p1, p2} {
		if _, err := f.svc.TakeSlot(context.Background(), slot.ID, p.ID, model.OccupantPanelist); err != nil {
			t.Fatalf("TakeSlot(%s) error: %v", p.Name, err)
		}
	}

	_, err := f.svc.TakeSlot(context.Background(), slot.ID, p3.ID, model.OccupantPanelist)
	if !apperrors.HasCode(err, apperrors.CodeCapacityExceeded) {
		t.Errorf("expected CAPACITY_EXCEEDED, got %v", err)
	}

	got := f.slots.Get(slot.ID)
	if len(got.TakeSlot.PanelistIDs) != 2 || got.BookedUser != 0 {
		t.Errorf("panelists = %v booked = %d", got.TakeSlot.PanelistIDs, got.BookedUser)
	}
}

func TestTakeSlot_Errors(t *testing.T) {
	f := newFixture(t, 0)
	app := f.people.AddApplication("Asha", "asha@example.com")
	slot := f.addSlot(2, model.StatusDraft, "")
	missing := "64b7f0c2a1b2c3d4e5f6ffff"

	tests := []struct {
		name       string
		slotID     string
		occupantID string
		kind       model.OccupantType
		wantCode   string
	}{
		{"unknown occupant type", slot.ID, app.ID, "auditor", apperrors.CodeValidation},
		{"malformed slot id", "nope", app.ID, model.OccupantApplication, apperrors.CodeValidation},
		{"unknown slot", missing, app.ID, model.OccupantApplication, apperrors.CodeNotFound},
		{"unknown application", slot.ID, missing, model.OccupantApplication, apperrors.CodeNotFound},
		{"unknown panelist", slot.ID, missing, model.OccupantPanelist, apperrors.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.TakeSlot(context.Background(), tt.slotID, tt.occupantID, tt.kind)
			if !apperrors.HasCode(err, tt.wantCode) {
				t.Errorf("expected %s, got %v", tt.wantCode, err)
			}
		})
	}
}

func TestTakeSlot_ConflictsExhausted(t *testing.T) {
	f := newFixture(t, 3)
	app := f.people.AddApplication("Asha", "asha@example.com")
	slot := f.addSlot(2, model.StatusDraft, "")
	f.slots.ReplaceErr = slotserrors.ErrVersionConflict

	_, err := f.svc.TakeSlot(context.Background(), slot.ID, app.ID, model.OccupantApplication)
	if !apperrors.HasCode(err, apperrors.CodeConcurrencyConflict) {
		t.Fatalf("expected CONCURRENCY_CONFLICT, got %v", err)
	}
	if f.slots.Transactions != 3 {
		t.Errorf("attempts = %d, want 3", f.slots.Transactions)
	}
}

func TestTakeSlot_ConcurrentCapacity(t *testing.T) {
	const (
		callers = 20
		limit   = 5
	)
	f := newFixture(t, callers+2)
	slot := f.addSlot(limit, model.StatusDraft, "")

	apps := make([]*model.Application, callers)
	for i := range apps {
		apps[i] = f.people.AddApplication("applicant", "applicant@example.com")
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		success  int
		slotFull int
		other    []error
	)
	start := make(chan struct{})
	for _, app := range apps {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			<-start
			_, err := f.svc.TakeSlot(context.Background(), slot.ID, id, model.OccupantApplication)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case apperrors.HasCode(err, apperrors.CodeSlotFull):
				slotFull++
			default:
				other = append(other, err)
			}
		}(app.ID)
	}
	close(start)
	wg.Wait()

	if len(other) > 0 {
		t.Fatalf("unexpected errors: %v", other)
	}
	if success != limit || slotFull != callers-limit {
		t.Errorf("success=%d slot_full=%d, want %d and %d", success, slotFull, limit, callers-limit)
	}

	got := f.slots.Get(slot.ID)
	if got.BookedUser != limit || len(got.TakeSlot.ApplicationIDs) != limit {
		t.Errorf("booked_user=%d applications=%d, want %d", got.BookedUser, len(got.TakeSlot.ApplicationIDs), limit)
	}
	if got.AvailableSlot != model.AvailabilityClosed {
		t.Errorf("available_slot = %s, want Closed", got.AvailableSlot)
	}
}

func TestAssignApplication(t *testing.T) {
	f := newFixture(t, 0)
	a1 := f.people.AddApplication("A1", "a1@example.com")
	a2 := f.people.AddApplication("A2", "a2@example.com")
	a3 := f.people.AddApplication("A3", "a3@example.com")
	slot := f.addSlot(2, model.StatusDraft, "")

	res, err := f.svc.AssignApplication(context.Background(), slot.ID, a1.ID)
	if err != nil || !res.Assigned || res.Slot == nil {
		t.Fatalf("first assign = %+v, %v", res, err)
	}

	res, err = f.svc.AssignApplication(context.Background(), slot.ID, a1.ID)
	if err != nil || res.Assigned || res.Message != MessageAlreadyAssigned {
		t.Errorf("duplicate assign = %+v, %v", res, err)
	}

	if _, err := f.svc.AssignApplication(context.Background(), slot.ID, a2.ID); err != nil {
		t.Fatalf("second assign error: %v", err)
	}

	res, err = f.svc.AssignApplication(context.Background(), slot.ID, a3.ID)
	if err != nil || res.Assigned || res.Message != MessageSlotFull {
		t.Errorf("assign into full slot = %+v, %v", res, err)
	}

	_, err = f.svc.AssignApplication(context.Background(), "64b7f0c2a1b2c3d4e5f6ffff", a3.ID)
	if !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("expected NOT_FOUND for unknown slot, got %v", err)
	}
}

func TestReleaseSlot(t *testing.T) {
	f := newFixture(t, 0)
	a1 := f.people.AddApplication("A1", "a1@example.com")
	a2 := f.people.AddApplication("A2", "a2@example.com")
	slot := f.addSlot(2, model.StatusDraft, "")

	for _, app := range []*model.Application{a1, a2} {
		if _, err := f.svc.TakeSlot(context.Background(), slot.ID, app.ID, model.OccupantApplication); err != nil {
			t.Fatalf("TakeSlot() error: %v", err)
		}
	}

	got, err := f.svc.ReleaseSlot(context.Background(), slot.ID, a1.ID, model.OccupantApplication)
	if err != nil {
		t.Fatalf("ReleaseSlot() error: %v", err)
	}
	if got.BookedUser != 1 || got.AvailableSlot != model.AvailabilityOpen {
		t.Errorf("booked=%d avail=%s", got.BookedUser, got.AvailableSlot)
	}
	if f.people.Application(a1.ID).MeetingDetails != nil {
		t.Error("meeting details should be cleared on release")
	}
	if f.people.Application(a2.ID).MeetingDetails == nil {
		t.Error("other occupants keep their meeting details")
	}

	_, err = f.svc.ReleaseSlot(context.Background(), slot.ID, a1.ID, model.OccupantApplication)
	if !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("expected NOT_FOUND releasing an absent occupant, got %v", err)
	}
	if f.timeline.Count(timelinerepo.EventSlotUnassigned) != 1 {
		t.Errorf("unassigned events = %d, want 1", f.timeline.Count(timelinerepo.EventSlotUnassigned))
	}
}

func TestReleaseSlot_LastApplicationResetsFlag(t *testing.T) {
	f := newFixture(t, 0)
	app := f.people.AddApplication("A1", "a1@example.com")
	slot := f.addSlot(2, model.StatusDraft, "")

	if _, err := f.svc.TakeSlot(context.Background(), slot.ID, app.ID, model.OccupantApplication); err != nil {
		t.Fatalf("TakeSlot() error: %v", err)
	}
	got, err := f.svc.ReleaseSlot(context.Background(), slot.ID, app.ID, model.OccupantApplication)
	if err != nil {
		t.Fatalf("ReleaseSlot() error: %v", err)
	}
	if got.TakeSlot.Application || got.BookedUser != 0 {
		t.Errorf("flag=%v booked=%d, want false 0", got.TakeSlot.Application, got.BookedUser)
	}
}

func TestReleaseAllOccupants(t *testing.T) {
	f := newFixture(t, 0)
	a1 := f.people.AddApplication("A1", "a1@example.com")
	a2 := f.people.AddApplication("A2", "a2@example.com")
	slot := f.addSlot(3, model.StatusPublished, "")

	for _, app := range []*model.Application{a1, a2} {
		if _, err := f.svc.TakeSlot(context.Background(), slot.ID, app.ID, model.OccupantApplication); err != nil {
			t.Fatalf("TakeSlot() error: %v", err)
		}
	}

	occupants, err := f.svc.ReleaseAllOccupants(context.Background(), slot.ID)
	if err != nil {
		t.Fatalf("ReleaseAllOccupants() error: %v", err)
	}
	if len(occupants) != 2 {
		t.Fatalf("occupants = %+v", occupants)
	}
	for _, o := range occupants {
		if o.Email == "" || o.Name == "" {
			t.Errorf("occupant missing identity: %+v", o)
		}
	}

	got := f.slots.Get(slot.ID)
	if got.BookedUser != 0 || len(got.TakeSlot.ApplicationIDs) != 0 || got.TakeSlot.Application {
		t.Errorf("slot not cleared: %+v", got.TakeSlot)
	}
	for _, app := range []*model.Application{a1, a2} {
		if f.people.Application(app.ID).MeetingDetails != nil {
			t.Errorf("meeting details of %s not cleared", app.Name)
		}
	}

	if f.notifier.Count(notifications.EventSlotUnassigned) != 1 {
		t.Fatalf("unassigned notifications = %d, want 1", f.notifier.Count(notifications.EventSlotUnassigned))
	}
	last := f.notifier.Sent[len(f.notifier.Sent)-1]
	if len(last.Emails) != 2 {
		t.Errorf("notified emails = %v", last.Emails)
	}

	occupants, err = f.svc.ReleaseAllOccupants(context.Background(), slot.ID)
	if err != nil || len(occupants) != 0 {
		t.Errorf("releasing an empty slot = %v, %v", occupants, err)
	}
	if f.notifier.Count(notifications.EventSlotUnassigned) != 1 {
		t.Error("an empty slot should not notify")
	}
}
