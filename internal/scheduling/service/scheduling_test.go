package service

import (
	"context"
	"testing"
	"time"

	"planner/internal/scheduling/validator"
	"planner/internal/testutil"
	timelinerepo "planner/internal/timeline/repository"
	apperrors "planner/pkg/errors"
	"planner/pkg/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fixture struct {
	slots    *testutil.SlotStore
	panels   *testutil.PanelStore
	locks    *testutil.LockStore
	people   *testutil.Directory
	timeline *testutil.Timeline
	svc      SchedulingService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testutil.Config()
	f := &fixture{
		slots:    testutil.NewSlotStore(),
		panels:   testutil.NewPanelStore(),
		locks:    testutil.NewLockStore(),
		people:   testutil.NewDirectory(),
		timeline: &testutil.Timeline{},
	}
	f.svc = NewSchedulingService(f.slots, f.panels, f.locks, f.people, f.timeline,
		validator.NewSchedulingValidator(cfg.Log), cfg)
	return f
}

func at(hh, mm int) time.Time {
	return time.Date(2026, time.March, 2, hh, mm, 0, 0, time.UTC)
}

func intPtr(v int) *int { return &v }

func newID() string { return primitive.NewObjectID().Hex() }

func panelRequest() *model.PanelCreate {
	return &model.PanelCreate{
		PanelName:       "Morning GD",
		SlotType:        model.SlotTypeGD,
		PanelType:       "technical",
		InterviewMode:   "Video Call",
		InterviewListID: newID(),
		Panelists:       []string{newID()},
		Time:            at(9, 0),
		EndTime:         at(11, 0),
		GapBetweenSlots: intPtr(5),
		SlotDuration:    intPtr(20),
		SlotCount:       intPtr(4),
		PanelDuration:   intPtr(120),
	}
}

func assertWindows(t *testing.T, slots []*model.Slot, want [][2]time.Time) {
	t.Helper()
	if len(slots) != len(want) {
		t.Fatalf("got %d slots, want %d", len(slots), len(want))
	}
	for i, w := range want {
		if !slots[i].Time.Equal(w[0]) || !slots[i].EndTime.Equal(w[1]) {
			t.Errorf("slot %d = %s-%s, want %s-%s", i,
				slots[i].Time.Format("15:04"), slots[i].EndTime.Format("15:04"),
				w[0].Format("15:04"), w[1].Format("15:04"))
		}
	}
}

func TestCreatePanel_LaysOutSlots(t *testing.T) {
	f := newFixture(t)

	panel, slots, err := f.svc.CreatePanel(context.Background(), panelRequest())
	if err != nil {
		t.Fatalf("CreatePanel() error: %v", err)
	}

	assertWindows(t, slots, [][2]time.Time{
		{at(9, 0), at(9, 20)},
		{at(9, 25), at(9, 45)},
		{at(9, 50), at(10, 10)},
		{at(10, 15), at(10, 35)},
	})

	if panel.TotalSlotDuration != 80 || panel.TotalGapBetweenSlots != 15 || panel.SlotGapDuration != 95 {
		t.Errorf("unexpected totals: %d/%d/%d", panel.TotalSlotDuration, panel.TotalGapBetweenSlots, panel.SlotGapDuration)
	}
	if panel.AvailableTime != 25 {
		t.Errorf("available_time = %d, want 25", panel.AvailableTime)
	}
	if panel.InterviewMode != "video_call" {
		t.Errorf("interview_mode = %q, want sanitized video_call", panel.InterviewMode)
	}
	if panel.Status != model.StatusDraft || panel.UserLimit != 2 {
		t.Errorf("defaults not applied: status=%q user_limit=%d", panel.Status, panel.UserLimit)
	}

	for i, slot := range slots {
		if slot.PanelID == nil || *slot.PanelID != panel.ID {
			t.Errorf("slot %d not linked to panel", i)
		}
		if slot.UserLimit != panel.UserLimit || slot.Status != panel.Status {
			t.Errorf("slot %d did not inherit panel fields", i)
		}
		if f.slots.Get(slot.ID) == nil {
			t.Errorf("slot %d was not stored", i)
		}
	}
	if f.timeline.Count(timelinerepo.EventPanelCreated) != 1 {
		t.Error("expected a panel created timeline event")
	}
}

func TestCreatePanel_Errors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*model.PanelCreate)
		code   string
	}{
		{
			name:   "duration does not match window",
			modify: func(r *model.PanelCreate) { r.PanelDuration = intPtr(90) },
			code:   apperrors.CodeDurationMismatch,
		},
		{
			name:   "slots do not fit",
			modify: func(r *model.PanelCreate) { r.SlotCount = intPtr(6) },
			code:   apperrors.CodeInsufficientCapacity,
		},
		{
			name:   "missing slot duration",
			modify: func(r *model.PanelCreate) { r.SlotDuration = nil },
			code:   apperrors.CodeValidation,
		},
		{
			name:   "end before start",
			modify: func(r *model.PanelCreate) { r.EndTime = at(8, 0) },
			code:   apperrors.CodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			req := panelRequest()
			tt.modify(req)

			_, _, err := f.svc.CreatePanel(context.Background(), req)
			if !apperrors.HasCode(err, tt.code) {
				t.Errorf("error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestInsertSlotIntoPanel_FillsAndRejects(t *testing.T) {
	f := newFixture(t)
	panel, _, err := f.svc.CreatePanel(context.Background(), panelRequest())
	if err != nil {
		t.Fatalf("CreatePanel() error: %v", err)
	}

	fifth, err := f.svc.InsertSlotIntoPanel(context.Background(), panel.ID, &model.Slot{
		SlotType:      model.SlotTypeGD,
		InterviewMode: "video_call",
		Time:          at(10, 15),
		EndTime:       at(10, 35),
		Panelists:     panel.Panelists,
	})
	if err != nil {
		t.Fatalf("fifth insert error: %v", err)
	}
	if !fifth.Time.Equal(at(10, 40)) || !fifth.EndTime.Equal(at(11, 0)) {
		t.Errorf("fifth slot = %s-%s, want 10:40-11:00", fifth.Time.Format("15:04"), fifth.EndTime.Format("15:04"))
	}
	if fifth.PanelID == nil || *fifth.PanelID != panel.ID {
		t.Error("inserted slot is not linked to the panel")
	}

	stored := f.panels.Get(panel.ID)
	if stored.AvailableTime != 0 || stored.SlotCount != 5 {
		t.Errorf("panel after insert: available=%d count=%d, want 0 and 5", stored.AvailableTime, stored.SlotCount)
	}

	_, err = f.svc.InsertSlotIntoPanel(context.Background(), panel.ID, &model.Slot{
		SlotType:      model.SlotTypeGD,
		InterviewMode: "video_call",
		Time:          at(11, 0),
		EndTime:       at(11, 20),
		Panelists:     panel.Panelists,
	})
	if !apperrors.HasCode(err, apperrors.CodeInsufficientCapacity) {
		t.Errorf("sixth insert error = %v, want INSUFFICIENT_CAPACITY", err)
	}
	if f.locks.Held(panel.ID) {
		t.Error("panel lock was not released")
	}
}

func TestInsertSlotIntoPanel_PublishedPanel(t *testing.T) {
	f := newFixture(t)
	req := panelRequest()
	req.Status = model.StatusPublished
	req.SlotCount = intPtr(3)
	panel, _, err := f.svc.CreatePanel(context.Background(), req)
	if err != nil {
		t.Fatalf("CreatePanel() error: %v", err)
	}

	slot, err := f.svc.CreateSlot(context.Background(), &model.SlotCreate{
		SlotType:      model.SlotTypeGD,
		InterviewMode: "video_call",
		Panelists:     panel.Panelists,
		Time:          at(10, 30),
		EndTime:       at(10, 50),
		PanelID:       panel.ID,
		Status:        model.StatusDraft,
	})
	if err != nil {
		t.Fatalf("CreateSlot() error: %v", err)
	}
	if slot.Status != model.StatusPublished {
		t.Errorf("status = %q, slot in a published panel must be published", slot.Status)
	}
	if slot.InterviewListID != panel.InterviewListID {
		t.Error("interview list not inherited from panel")
	}
}

func TestInsertSlotIntoPanel_LockContention(t *testing.T) {
	f := newFixture(t)
	panel, _, err := f.svc.CreatePanel(context.Background(), panelRequest())
	if err != nil {
		t.Fatalf("CreatePanel() error: %v", err)
	}
	if _, err := f.locks.Acquire(context.Background(), panel.ID, time.Minute); err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}

	_, err = f.svc.InsertSlotIntoPanel(context.Background(), panel.ID, &model.Slot{
		SlotType:      model.SlotTypeGD,
		InterviewMode: "video_call",
		Time:          at(10, 40),
		EndTime:       at(11, 0),
		Panelists:     panel.Panelists,
	})
	if !apperrors.HasCode(err, apperrors.CodeConcurrencyConflict) {
		t.Errorf("error = %v, want CONCURRENCY_CONFLICT", err)
	}
}

func TestInsertSlotIntoPanel_TakesOverExpiredLock(t *testing.T) {
	f := newFixture(t)
	panel, _, err := f.svc.CreatePanel(context.Background(), panelRequest())
	if err != nil {
		t.Fatalf("CreatePanel() error: %v", err)
	}
	stale, err := f.locks.Acquire(context.Background(), panel.ID, -time.Second)
	if err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}

	_, err = f.svc.InsertSlotIntoPanel(context.Background(), panel.ID, &model.Slot{
		SlotType:      model.SlotTypeGD,
		InterviewMode: "video_call",
		Time:          at(10, 40),
		EndTime:       at(11, 0),
		Panelists:     panel.Panelists,
	})
	if err != nil {
		t.Fatalf("InsertSlotIntoPanel() error: %v", err)
	}

	live, err := f.locks.Acquire(context.Background(), panel.ID, time.Minute)
	if err != nil {
		t.Fatalf("Acquire() after insert error: %v", err)
	}
	if err := f.locks.Release(context.Background(), panel.ID, stale); err != nil {
		t.Fatalf("Release() error: %v", err)
	}
	if !f.locks.Held(panel.ID) {
		t.Error("expired owner released a lock it no longer holds")
	}
	_ = f.locks.Release(context.Background(), panel.ID, live)
	if f.locks.Held(panel.ID) {
		t.Error("owner could not release its own lock")
	}
}

func TestCreateSlot_Standalone(t *testing.T) {
	f := newFixture(t)

	slot, err := f.svc.CreateSlot(context.Background(), &model.SlotCreate{
		SlotType:      model.SlotTypePI,
		InterviewMode: "In Person",
		Panelists:     []string{newID()},
		Time:          at(14, 0),
		EndTime:       at(14, 45),
	})
	if err != nil {
		t.Fatalf("CreateSlot() error: %v", err)
	}
	if slot.SlotDuration != 45 {
		t.Errorf("slot_duration = %d, want 45", slot.SlotDuration)
	}
	if slot.InPanel() {
		t.Error("standalone slot must not have a panel")
	}
	if slot.InterviewMode != "in_person" || slot.Status != model.StatusDraft || slot.UserLimit != 2 {
		t.Errorf("unexpected slot fields: mode=%q status=%q limit=%d", slot.InterviewMode, slot.Status, slot.UserLimit)
	}
	if slot.AvailableSlot != model.AvailabilityOpen {
		t.Errorf("available_slot = %q, want Open", slot.AvailableSlot)
	}
}

func TestRebalancePanelSlotTimes(t *testing.T) {
	f := newFixture(t)
	panel, slots, err := f.svc.CreatePanel(context.Background(), panelRequest())
	if err != nil {
		t.Fatalf("CreatePanel() error: %v", err)
	}

	t.Run("gap override", func(t *testing.T) {
		got, rebalanced, err := f.svc.RebalancePanelSlotTimes(context.Background(), panel.ID, &model.RebalanceRequest{
			GapOverride: intPtr(10),
		})
		if err != nil {
			t.Fatalf("RebalancePanelSlotTimes() error: %v", err)
		}
		assertWindows(t, rebalanced, [][2]time.Time{
			{at(9, 0), at(9, 20)},
			{at(9, 30), at(9, 50)},
			{at(10, 0), at(10, 20)},
			{at(10, 30), at(10, 50)},
		})
		if got.GapBetweenSlots != 10 || got.AvailableTime != 10 {
			t.Errorf("panel gap=%d available=%d, want 10 and 10", got.GapBetweenSlots, got.AvailableTime)
		}
	})

	t.Run("partial with duration override", func(t *testing.T) {
		_, rebalanced, err := f.svc.RebalancePanelSlotTimes(context.Background(), panel.ID, &model.RebalanceRequest{
			GapOverride:   intPtr(5),
			FromSlotID:    slots[2].ID,
			SlotDurations: map[string]int{slots[2].ID: 30},
		})
		if err != nil {
			t.Fatalf("RebalancePanelSlotTimes() error: %v", err)
		}
		assertWindows(t, rebalanced, [][2]time.Time{
			{at(9, 0), at(9, 20)},
			{at(9, 30), at(9, 50)},
			{at(10, 0), at(10, 30)},
			{at(10, 35), at(10, 55)},
		})
	})

	t.Run("overflow past panel end", func(t *testing.T) {
		_, _, err := f.svc.RebalancePanelSlotTimes(context.Background(), panel.ID, &model.RebalanceRequest{
			GapOverride: intPtr(20),
		})
		if !apperrors.HasCode(err, apperrors.CodeInsufficientCapacity) {
			t.Errorf("error = %v, want INSUFFICIENT_CAPACITY", err)
		}
	})

	t.Run("unknown from slot", func(t *testing.T) {
		_, _, err := f.svc.RebalancePanelSlotTimes(context.Background(), panel.ID, &model.RebalanceRequest{
			FromSlotID: newID(),
		})
		if !apperrors.HasCode(err, apperrors.CodeNotFound) {
			t.Errorf("error = %v, want NOT_FOUND", err)
		}
	})

	if f.locks.Held(panel.ID) {
		t.Error("panel lock was not released")
	}
}

// book puts a fresh application into slot id with meeting details pointing at it.
func (f *fixture) book(t *testing.T, id string) *model.Application {
	t.Helper()
	slot := f.slots.Get(id)
	app := f.people.AddApplication("applicant", "applicant@example.com")
	slot.AddOccupant(app.ID, model.OccupantApplication)
	f.slots.Put(slot)
	if err := f.people.SetMeetingDetails(context.Background(), app.ID, model.MeetingDetailsFor(slot)); err != nil {
		t.Fatalf("SetMeetingDetails() error: %v", err)
	}
	return app
}

func assertMeetingWindow(t *testing.T, f *fixture, appID string, start, end time.Time) {
	t.Helper()
	md := f.people.Application(appID).MeetingDetails
	if md == nil {
		t.Fatal("meeting details missing")
	}
	if !md.Time.Equal(start) || !md.EndTime.Equal(end) {
		t.Errorf("meeting details = %s-%s, want %s-%s",
			md.Time.Format("15:04"), md.EndTime.Format("15:04"), start.Format("15:04"), end.Format("15:04"))
	}
}

func TestRebalancePanelSlotTimes_RepointsBookings(t *testing.T) {
	f := newFixture(t)
	panel, slots, err := f.svc.CreatePanel(context.Background(), panelRequest())
	if err != nil {
		t.Fatalf("CreatePanel() error: %v", err)
	}

	booked := f.book(t, slots[1].ID)

	// Listed in slots[1] but holding a booking elsewhere.
	elsewhere := f.people.AddApplication("elsewhere", "elsewhere@example.com")
	other := f.slots.Get(slots[1].ID)
	other.AddOccupant(elsewhere.ID, model.OccupantApplication)
	f.slots.Put(other)
	foreign := &model.MeetingDetails{SlotID: newID(), Time: at(16, 0), EndTime: at(16, 30)}
	if err := f.people.SetMeetingDetails(context.Background(), elsewhere.ID, foreign); err != nil {
		t.Fatalf("SetMeetingDetails() error: %v", err)
	}

	if _, _, err := f.svc.RebalancePanelSlotTimes(context.Background(), panel.ID, &model.RebalanceRequest{GapOverride: intPtr(0)}); err != nil {
		t.Fatalf("RebalancePanelSlotTimes() error: %v", err)
	}

	assertMeetingWindow(t, f, booked.ID, at(9, 20), at(9, 40))
	assertMeetingWindow(t, f, elsewhere.ID, at(16, 0), at(16, 30))
}

func TestUpdates_RepointBookings(t *testing.T) {
	f := newFixture(t)
	panel, slots, err := f.svc.CreatePanel(context.Background(), panelRequest())
	if err != nil {
		t.Fatalf("CreatePanel() error: %v", err)
	}
	standalone, err := f.svc.CreateSlot(context.Background(), &model.SlotCreate{
		SlotType:      model.SlotTypePI,
		InterviewMode: "online",
		Panelists:     []string{newID()},
		Time:          at(14, 0),
		EndTime:       at(14, 30),
	})
	if err != nil {
		t.Fatalf("CreateSlot() error: %v", err)
	}

	inPanel := f.book(t, slots[0].ID)
	alone := f.book(t, standalone.ID)

	t.Run("panel interview mode", func(t *testing.T) {
		if _, err := f.svc.UpdatePanel(context.Background(), panel.ID, &model.PanelUpdate{InterviewMode: model.Set("Phone")}); err != nil {
			t.Fatalf("UpdatePanel() error: %v", err)
		}
		if got := f.people.Application(inPanel.ID).MeetingDetails.InterviewMode; got != "phone" {
			t.Errorf("meeting interview_mode = %q, want phone", got)
		}
	})

	t.Run("standalone retime", func(t *testing.T) {
		if _, err := f.svc.UpdateSlot(context.Background(), standalone.ID, &model.SlotUpdate{
			Time:    model.Set(at(15, 0)),
			EndTime: model.Set(at(15, 45)),
		}); err != nil {
			t.Fatalf("UpdateSlot() error: %v", err)
		}
		assertMeetingWindow(t, f, alone.ID, at(15, 0), at(15, 45))
	})
}

func TestUpdatePanel_PropagatesToSlots(t *testing.T) {
	f := newFixture(t)
	panel, slots, err := f.svc.CreatePanel(context.Background(), panelRequest())
	if err != nil {
		t.Fatalf("CreatePanel() error: %v", err)
	}
	panelist := newID()

	got, err := f.svc.UpdatePanel(context.Background(), panel.ID, &model.PanelUpdate{
		InterviewMode: model.Set("Phone"),
		Panelists:     model.Set([]string{panelist}),
		UserLimit:     model.Set(4),
	})
	if err != nil {
		t.Fatalf("UpdatePanel() error: %v", err)
	}
	if got.InterviewMode != "phone" || got.UserLimit != 4 {
		t.Errorf("panel not updated: mode=%q limit=%d", got.InterviewMode, got.UserLimit)
	}

	for _, s := range slots {
		stored := f.slots.Get(s.ID)
		if stored.InterviewMode != "phone" || stored.UserLimit != 4 {
			t.Errorf("slot %s not updated: mode=%q limit=%d", s.ID, stored.InterviewMode, stored.UserLimit)
		}
		if len(stored.Panelists) != 1 || stored.Panelists[0] != panelist {
			t.Errorf("slot %s panelists = %v", s.ID, stored.Panelists)
		}
	}
}

func TestUpdatePanel_UserLimitBelowBookings(t *testing.T) {
	f := newFixture(t)
	req := panelRequest()
	req.UserLimit = 3
	panel, slots, err := f.svc.CreatePanel(context.Background(), req)
	if err != nil {
		t.Fatalf("CreatePanel() error: %v", err)
	}

	booked := f.slots.Get(slots[0].ID)
	booked.AddOccupant(newID(), model.OccupantApplication)
	booked.AddOccupant(newID(), model.OccupantApplication)
	booked.AddOccupant(newID(), model.OccupantApplication)
	f.slots.Put(booked)

	_, err = f.svc.UpdatePanel(context.Background(), panel.ID, &model.PanelUpdate{UserLimit: model.Set(2)})
	if !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Errorf("error = %v, want VALIDATION_ERROR", err)
	}
	if f.panels.Get(panel.ID).UserLimit != 3 {
		t.Error("panel must be unchanged after a rejected update")
	}
}

func TestUpdateSlot(t *testing.T) {
	f := newFixture(t)
	standalone, err := f.svc.CreateSlot(context.Background(), &model.SlotCreate{
		SlotType:      model.SlotTypePI,
		InterviewMode: "online",
		Panelists:     []string{newID()},
		Time:          at(14, 0),
		EndTime:       at(14, 30),
		UserLimit:     5,
	})
	if err != nil {
		t.Fatalf("CreateSlot() error: %v", err)
	}
	_, panelSlots, err := f.svc.CreatePanel(context.Background(), panelRequest())
	if err != nil {
		t.Fatalf("CreatePanel() error: %v", err)
	}

	t.Run("retime standalone", func(t *testing.T) {
		got, err := f.svc.UpdateSlot(context.Background(), standalone.ID, &model.SlotUpdate{
			EndTime: model.Set(at(15, 0)),
		})
		if err != nil {
			t.Fatalf("UpdateSlot() error: %v", err)
		}
		if got.SlotDuration != 60 {
			t.Errorf("slot_duration = %d, want 60", got.SlotDuration)
		}
	})

	t.Run("clearing user limit restores default", func(t *testing.T) {
		got, err := f.svc.UpdateSlot(context.Background(), standalone.ID, &model.SlotUpdate{
			UserLimit: model.Clear[int](),
		})
		if err != nil {
			t.Fatalf("UpdateSlot() error: %v", err)
		}
		if got.UserLimit != 2 {
			t.Errorf("user_limit = %d, want default 2", got.UserLimit)
		}
	})

	t.Run("retime panel slot rejected", func(t *testing.T) {
		_, err := f.svc.UpdateSlot(context.Background(), panelSlots[0].ID, &model.SlotUpdate{
			Time: model.Set(at(8, 0)),
		})
		if !apperrors.HasCode(err, apperrors.CodeValidation) {
			t.Errorf("error = %v, want VALIDATION_ERROR", err)
		}
	})

	t.Run("clearing interview mode rejected", func(t *testing.T) {
		_, err := f.svc.UpdateSlot(context.Background(), standalone.ID, &model.SlotUpdate{
			InterviewMode: model.Clear[string](),
		})
		if !apperrors.HasCode(err, apperrors.CodeValidation) {
			t.Errorf("error = %v, want VALIDATION_ERROR", err)
		}
	})

	t.Run("unknown slot", func(t *testing.T) {
		_, err := f.svc.UpdateSlot(context.Background(), newID(), &model.SlotUpdate{UserLimit: model.Set(3)})
		if !apperrors.HasCode(err, apperrors.CodeNotFound) {
			t.Errorf("error = %v, want NOT_FOUND", err)
		}
	})
}

func TestGetters(t *testing.T) {
	f := newFixture(t)
	panel, slots, err := f.svc.CreatePanel(context.Background(), panelRequest())
	if err != nil {
		t.Fatalf("CreatePanel() error: %v", err)
	}

	if _, err := f.svc.GetPanel(context.Background(), ""); !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Errorf("GetPanel(\"\") error = %v, want INVALID_INPUT", err)
	}
	if _, err := f.svc.GetSlot(context.Background(), "not-an-id"); !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Errorf("GetSlot(bad id) error = %v, want INVALID_INPUT", err)
	}

	listed, err := f.svc.ListPanelSlots(context.Background(), panel.ID)
	if err != nil {
		t.Fatalf("ListPanelSlots() error: %v", err)
	}
	if len(listed) != len(slots) {
		t.Errorf("listed %d slots, want %d", len(listed), len(slots))
	}
	for i := 1; i < len(listed); i++ {
		if listed[i].Time.Before(listed[i-1].Time) {
			t.Error("slots are not ordered by time")
		}
	}
}
