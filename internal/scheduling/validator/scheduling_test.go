package validator

import (
	"io"
	"testing"
	"time"

	"planner/pkg/logger"
	"planner/pkg/model"
)

const hexID = "64b7f0c2a1b2c3d4e5f60001"

func newTestValidator() *SchedulingValidator {
	return NewSchedulingValidator(logger.New(logger.Config{Output: io.Discard}))
}

func intPtr(v int) *int { return &v }

func validPanel() *model.PanelCreate {
	start := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	return &model.PanelCreate{
		SlotType:        model.SlotTypeGD,
		PanelType:       "group",
		InterviewListID: hexID,
		Panelists:       []string{hexID},
		Time:            start,
		EndTime:         start.Add(2 * time.Hour),
		GapBetweenSlots: intPtr(5),
		SlotDuration:    intPtr(20),
		SlotCount:       intPtr(4),
		PanelDuration:   intPtr(120),
	}
}

func TestValidatePanelCreate(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name    string
		mutate  func(*model.PanelCreate)
		wantErr bool
	}{
		{"valid", func(*model.PanelCreate) {}, false},
		{"zero gap is allowed", func(p *model.PanelCreate) { p.GapBetweenSlots = intPtr(0) }, false},
		{"missing gap", func(p *model.PanelCreate) { p.GapBetweenSlots = nil }, true},
		{"missing slot count", func(p *model.PanelCreate) { p.SlotCount = nil }, true},
		{"bad slot type", func(p *model.PanelCreate) { p.SlotType = "XX" }, true},
		{"bad interview list", func(p *model.PanelCreate) { p.InterviewListID = "list" }, true},
		{"no panelists", func(p *model.PanelCreate) { p.Panelists = nil }, true},
		{"end before start", func(p *model.PanelCreate) { p.EndTime = p.Time.Add(-time.Hour) }, true},
		{"user limit too high", func(p *model.PanelCreate) { p.UserLimit = 11 }, true},
		{"unsanitized interview mode", func(p *model.PanelCreate) { p.InterviewMode = "Video Call" }, true},
		{"sanitized interview mode", func(p *model.PanelCreate) { p.InterviewMode = "video_call" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPanel()
			tt.mutate(p)
			err := v.ValidatePanelCreate(p)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePanelCreate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidatePanelCreate_UsesJSONFieldNames(t *testing.T) {
	p := validPanel()
	p.SlotDuration = nil

	err := newTestValidator().ValidatePanelCreate(p)
	errs, ok := err.(ValidationErrors)
	if !ok || len(errs) != 1 {
		t.Fatalf("expected one ValidationError, got %v", err)
	}
	if errs[0].Field != "slot_duration" {
		t.Errorf("field = %q, want slot_duration", errs[0].Field)
	}
}

func TestValidateSlotUpdate(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name    string
		upd     model.SlotUpdate
		wantErr bool
	}{
		{"empty update", model.SlotUpdate{}, false},
		{"clear panelists", model.SlotUpdate{Panelists: model.Clear[[]string]()}, false},
		{"set panelists", model.SlotUpdate{Panelists: model.Set([]string{hexID})}, false},
		{"bad panelist id", model.SlotUpdate{Panelists: model.Set([]string{"p1"})}, true},
		{"clear interview mode", model.SlotUpdate{InterviewMode: model.Clear[string]()}, true},
		{"user limit in range", model.SlotUpdate{UserLimit: model.Set(4)}, false},
		{"user limit below minimum", model.SlotUpdate{UserLimit: model.Set(1)}, true},
		{"clear time", model.SlotUpdate{Time: model.Clear[time.Time]()}, true},
		{"bad interview list", model.SlotUpdate{InterviewListID: model.Set("x")}, true},
		{"clear interview list", model.SlotUpdate{InterviewListID: model.Clear[string]()}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateSlotUpdate(&tt.upd)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSlotUpdate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateRebalance(t *testing.T) {
	v := newTestValidator()

	if err := v.ValidateRebalance(&model.RebalanceRequest{SlotDurations: map[string]int{hexID: 30}}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := v.ValidateRebalance(&model.RebalanceRequest{SlotDurations: map[string]int{hexID: 0}}); err == nil {
		t.Error("expected error for zero duration")
	}
	if err := v.ValidateRebalance(&model.RebalanceRequest{GapOverride: intPtr(-1)}); err == nil {
		t.Error("expected error for negative gap")
	}
}
