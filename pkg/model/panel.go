package model

import "time"

// DefaultInterviewMode applies to panels created without an interview mode.
const DefaultInterviewMode = "offline"

type Panel struct {
	ID                   string         `json:"id,omitempty" bson:"_id,omitempty"`
	PanelName            string         `json:"panel_name,omitempty" bson:"panel_name,omitempty"`
	SlotType             string         `json:"slot_type" bson:"slot_type"`
	PanelType            string         `json:"panel_type" bson:"panel_type"`
	InterviewMode        string         `json:"interview_mode" bson:"interview_mode"`
	InterviewListID      string         `json:"interview_list_id" bson:"interview_list_id"`
	Panelists            []string       `json:"panelists" bson:"panelists"`
	Time                 time.Time      `json:"time" bson:"time"`
	EndTime              time.Time      `json:"end_time" bson:"end_time"`
	PanelDuration        int            `json:"panel_duration" bson:"panel_duration"`
	SlotCount            int            `json:"slot_count" bson:"slot_count"`
	SlotDuration         int            `json:"slot_duration" bson:"slot_duration"`
	GapBetweenSlots      int            `json:"gap_between_slots" bson:"gap_between_slots"`
	TotalSlotDuration    int            `json:"total_slot_duration" bson:"total_slot_duration"`
	TotalGapBetweenSlots int            `json:"total_gap_between_slots" bson:"total_gap_between_slots"`
	SlotGapDuration      int            `json:"slot_gap_duration" bson:"slot_gap_duration"`
	AvailableTime        int            `json:"available_time" bson:"available_time"`
	Status               string         `json:"status" bson:"status"`
	UserLimit            int            `json:"user_limit" bson:"user_limit"`
	LastModifiedTimeline []Modification `json:"last_modified_timeline" bson:"last_modified_timeline"`
	Version              int64          `json:"version" bson:"version"`
	CreatedAt            time.Time      `json:"created_at" bson:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at" bson:"updated_at"`
}

func (p *Panel) IsPublished() bool {
	return p.Status == StatusPublished
}

func (p *Panel) Touch(userID string, at time.Time) {
	p.LastModifiedTimeline = prependModification(p.LastModifiedTimeline, userID, at)
	p.UpdatedAt = at
}

// PanelCreate is the payload for creating a panel together with its initial slots.
// Numeric fields are pointers so that an explicit zero gap is distinguishable from a missing one.
type PanelCreate struct {
	PanelName       string    `json:"panel_name,omitempty" validate:"omitempty,min=2,max=100"`
	SlotType        string    `json:"slot_type" validate:"required,oneof=GD PI"`
	PanelType       string    `json:"panel_type" validate:"required,min=2,max=50"`
	InterviewMode   string    `json:"interview_mode,omitempty" validate:"omitempty,min=2,max=50,interview_mode"`
	InterviewListID string    `json:"interview_list_id" validate:"required,mongodb"`
	Panelists       []string  `json:"panelists" validate:"required,min=1,dive,mongodb"`
	Time            time.Time `json:"time" validate:"required"`
	EndTime         time.Time `json:"end_time" validate:"required,gtfield=Time"`
	GapBetweenSlots *int      `json:"gap_between_slots" validate:"required,min=0,max=480"`
	SlotDuration    *int      `json:"slot_duration" validate:"required,min=1,max=480"`
	SlotCount       *int      `json:"slot_count" validate:"required,min=1,max=100"`
	PanelDuration   *int      `json:"panel_duration" validate:"required,min=1,max=1440"`
	UserLimit       int       `json:"user_limit,omitempty" validate:"omitempty,min=2,max=10"`
	Status          string    `json:"status,omitempty" validate:"omitempty,oneof=draft published"`
}

type PanelUpdate struct {
	PanelName     Field[string]   `json:"panel_name"`
	InterviewMode Field[string]   `json:"interview_mode"`
	Panelists     Field[[]string] `json:"panelists"`
	UserLimit     Field[int]      `json:"user_limit"`
}

// RebalanceRequest re-times the slots of a panel. FromSlotID selects a partial rebalance.
type RebalanceRequest struct {
	GapOverride   *int           `json:"gap_between_slots,omitempty" validate:"omitempty,min=0,max=480"`
	SlotDurations map[string]int `json:"slot_durations,omitempty" validate:"omitempty,dive,keys,mongodb,endkeys,min=1,max=480"`
	FromSlotID    string         `json:"from_slot_id,omitempty" validate:"omitempty,mongodb"`
}
