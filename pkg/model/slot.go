package model

import (
	"slices"
	"time"
)

const (
	SlotTypeGD = "GD"
	SlotTypePI = "PI"

	StatusDraft     = "draft"
	StatusPublished = "published"

	AvailabilityOpen   = "Open"
	AvailabilityClosed = "Closed"

	MaxPanelistsPerSlot = 2
)

// OccupantType selects which occupant list of a slot an operation targets.
type OccupantType string

const (
	OccupantApplication OccupantType = "application"
	OccupantPanelist    OccupantType = "panelist"
)

func (t OccupantType) Valid() bool {
	return t == OccupantApplication || t == OccupantPanelist
}

// TakeSlot is the occupancy record of a slot.
type TakeSlot struct {
	Application    bool     `json:"application" bson:"application"`
	ApplicationIDs []string `json:"application_ids" bson:"application_ids"`
	Panelist       bool     `json:"panelist" bson:"panelist"`
	PanelistIDs    []string `json:"panelist_ids" bson:"panelist_ids"`
}

// Modification is one entry of a last_modified_timeline, newest first.
type Modification struct {
	UserID         string    `json:"user_id" bson:"user_id"`
	LastModifiedAt time.Time `json:"last_modified_at" bson:"last_modified_at"`
}

type Slot struct {
	ID                   string         `json:"id,omitempty" bson:"_id,omitempty"`
	SlotType             string         `json:"slot_type" bson:"slot_type" validate:"required,oneof=GD PI"`
	InterviewMode        string         `json:"interview_mode" bson:"interview_mode" validate:"required,min=2,max=50"`
	Time                 time.Time      `json:"time" bson:"time" validate:"required"`
	EndTime              time.Time      `json:"end_time" bson:"end_time" validate:"required,gtfield=Time"`
	SlotDuration         int            `json:"slot_duration" bson:"slot_duration" validate:"min=1"`
	Status               string         `json:"status" bson:"status" validate:"required,oneof=draft published"`
	AvailableSlot        string         `json:"available_slot" bson:"available_slot" validate:"required,oneof=Open Closed"`
	UserLimit            int            `json:"user_limit" bson:"user_limit" validate:"min=2,max=10"`
	BookedUser           int            `json:"booked_user" bson:"booked_user" validate:"min=0,ltefield=UserLimit"`
	PanelID              *string        `json:"panel_id" bson:"panel_id"`
	Panelists            []string       `json:"panelists" bson:"panelists" validate:"required,min=1,dive,mongodb"`
	TakeSlot             TakeSlot       `json:"take_slot" bson:"take_slot"`
	InterviewListID      string         `json:"interview_list_id,omitempty" bson:"interview_list_id,omitempty" validate:"omitempty,mongodb"`
	LastModifiedTimeline []Modification `json:"last_modified_timeline" bson:"last_modified_timeline"`
	Version              int64          `json:"version" bson:"version"`
	CreatedAt            time.Time      `json:"created_at" bson:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at" bson:"updated_at"`
}

// InPanel reports whether the slot is owned by a panel.
func (s *Slot) InPanel() bool {
	return s.PanelID != nil && *s.PanelID != ""
}

func (s *Slot) IsFull() bool {
	return s.BookedUser >= s.UserLimit
}

func (s *Slot) IsPublished() bool {
	return s.Status == StatusPublished
}

func (s *Slot) HasOccupant(id string, kind OccupantType) bool {
	return slices.Contains(s.occupants(kind), id)
}

func (s *Slot) occupants(kind OccupantType) []string {
	if kind == OccupantPanelist {
		return s.TakeSlot.PanelistIDs
	}
	return s.TakeSlot.ApplicationIDs
}

// AddOccupant inserts id at the front of the occupant list for kind.
// Callers check capacity and duplicates first.
func (s *Slot) AddOccupant(id string, kind OccupantType) {
	if kind == OccupantPanelist {
		s.TakeSlot.PanelistIDs = append([]string{id}, s.TakeSlot.PanelistIDs...)
		s.TakeSlot.Panelist = true
		return
	}
	s.TakeSlot.ApplicationIDs = append([]string{id}, s.TakeSlot.ApplicationIDs...)
	s.TakeSlot.Application = true
	s.BookedUser = len(s.TakeSlot.ApplicationIDs)
	s.RefreshAvailability()
}

// AppendApplication adds id at the tail of the application list, ignoring duplicates.
func (s *Slot) AppendApplication(id string) {
	if s.HasOccupant(id, OccupantApplication) {
		return
	}
	s.TakeSlot.ApplicationIDs = append(s.TakeSlot.ApplicationIDs, id)
	s.TakeSlot.Application = true
	s.BookedUser = len(s.TakeSlot.ApplicationIDs)
	s.RefreshAvailability()
}

// RemoveOccupant drops id from the occupant list for kind and reports whether it was present.
func (s *Slot) RemoveOccupant(id string, kind OccupantType) bool {
	list := s.occupants(kind)
	idx := slices.Index(list, id)
	if idx < 0 {
		return false
	}
	list = slices.Delete(slices.Clone(list), idx, idx+1)
	if kind == OccupantPanelist {
		s.TakeSlot.PanelistIDs = list
		s.TakeSlot.Panelist = len(list) > 0
		return true
	}
	s.TakeSlot.ApplicationIDs = list
	s.TakeSlot.Application = len(list) > 0
	s.BookedUser = len(list)
	s.AvailableSlot = AvailabilityOpen
	return true
}

// ClearApplications empties the application occupants and returns the removed ids.
func (s *Slot) ClearApplications() []string {
	removed := s.TakeSlot.ApplicationIDs
	s.TakeSlot.ApplicationIDs = []string{}
	s.TakeSlot.Application = false
	s.BookedUser = 0
	s.AvailableSlot = AvailabilityOpen
	return removed
}

// RefreshAvailability derives available_slot from the occupancy counters.
func (s *Slot) RefreshAvailability() {
	if s.BookedUser < s.UserLimit {
		s.AvailableSlot = AvailabilityOpen
	} else {
		s.AvailableSlot = AvailabilityClosed
	}
}

// Touch records a modification by userID at the head of the timeline.
func (s *Slot) Touch(userID string, at time.Time) {
	s.LastModifiedTimeline = prependModification(s.LastModifiedTimeline, userID, at)
	s.UpdatedAt = at
}

// SlotCreate is the payload for creating a standalone slot or inserting one into a panel.
type SlotCreate struct {
	SlotType        string    `json:"slot_type" validate:"required,oneof=GD PI"`
	InterviewMode   string    `json:"interview_mode" validate:"required,min=2,max=50,interview_mode"`
	Panelists       []string  `json:"panelists" validate:"required,min=1,dive,mongodb"`
	Time            time.Time `json:"time" validate:"required"`
	EndTime         time.Time `json:"end_time" validate:"required,gtfield=Time"`
	PanelID         string    `json:"panel_id,omitempty" validate:"omitempty,mongodb"`
	InterviewListID string    `json:"interview_list_id,omitempty" validate:"omitempty,mongodb"`
	UserLimit       int       `json:"user_limit,omitempty" validate:"omitempty,min=2,max=10"`
	Status          string    `json:"status,omitempty" validate:"omitempty,oneof=draft published"`
}

// SlotUpdate carries tri-state fields: absent keys are left alone, null clears.
type SlotUpdate struct {
	InterviewMode   Field[string]    `json:"interview_mode"`
	Panelists       Field[[]string]  `json:"panelists"`
	UserLimit       Field[int]       `json:"user_limit"`
	InterviewListID Field[string]    `json:"interview_list_id"`
	Time            Field[time.Time] `json:"time"`
	EndTime         Field[time.Time] `json:"end_time"`
}

// Occupant is a displaced or notified slot occupant.
type Occupant struct {
	ID    string       `json:"id"`
	Type  OccupantType `json:"type"`
	Name  string       `json:"name,omitempty"`
	Email string       `json:"email,omitempty"`
}

func prependModification(timeline []Modification, userID string, at time.Time) []Modification {
	out := make([]Modification, 0, len(timeline)+1)
	out = append(out, Modification{UserID: userID, LastModifiedAt: at})
	return append(out, timeline...)
}
