package model

// TakeRequest books an occupant into a slot.
type TakeRequest struct {
	OccupantID   string       `json:"occupant_id" validate:"required,mongodb"`
	OccupantType OccupantType `json:"occupant_type" validate:"required,oneof=application panelist"`
}

type AssignRequest struct {
	ApplicationID string `json:"application_id" validate:"required,mongodb"`
}

// UnassignRequest releases one occupant, or every application occupant when All is set.
type UnassignRequest struct {
	OccupantID   string       `json:"occupant_id,omitempty"`
	OccupantType OccupantType `json:"occupant_type,omitempty"`
	All          bool         `json:"all,omitempty"`
}

type RescheduleRequest struct {
	OriginSlotID  string `json:"origin_slot_id" validate:"required,mongodb,nefield=TargetSlotID"`
	TargetSlotID  string `json:"target_slot_id" validate:"required,mongodb"`
	ApplicationID string `json:"application_id" validate:"required,mongodb"`
}

// PublishRequest selects slots and panels either by id or by calendar day.
// Setting both is rejected.
type PublishRequest struct {
	IDs  []string `json:"ids,omitempty" validate:"omitempty,dive,mongodb"`
	Date string   `json:"date,omitempty"`
}
