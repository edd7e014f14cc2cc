package model

import "time"

// MeetingDetails points an application at the slot it is booked into.
type MeetingDetails struct {
	SlotID        string    `json:"slot_id" bson:"slot_id"`
	PanelID       string    `json:"panel_id,omitempty" bson:"panel_id,omitempty"`
	SlotType      string    `json:"slot_type" bson:"slot_type"`
	InterviewMode string    `json:"interview_mode" bson:"interview_mode"`
	Time          time.Time `json:"time" bson:"time"`
	EndTime       time.Time `json:"end_time" bson:"end_time"`
	Status        string    `json:"status" bson:"status"`
}

type Application struct {
	ID               string          `json:"id,omitempty" bson:"_id,omitempty"`
	Name             string          `json:"name" bson:"name"`
	Email            string          `json:"email" bson:"email"`
	Phone            string          `json:"phone,omitempty" bson:"phone,omitempty"`
	InterviewListIDs []string        `json:"interview_list_ids" bson:"interview_list_ids"`
	MeetingDetails   *MeetingDetails `json:"meeting_details,omitempty" bson:"meeting_details,omitempty"`
}

// MeetingDetailsFor builds the booking pointer stored on an application for slot s.
func MeetingDetailsFor(s *Slot) *MeetingDetails {
	md := &MeetingDetails{
		SlotID:        s.ID,
		SlotType:      s.SlotType,
		InterviewMode: s.InterviewMode,
		Time:          s.Time,
		EndTime:       s.EndTime,
		Status:        "booked",
	}
	if s.InPanel() {
		md.PanelID = *s.PanelID
	}
	return md
}

type SelectionProcedure struct {
	GDParametersWeightage map[string]float64 `json:"gd_parameters_weightage,omitempty" bson:"gd_parameters_weightage,omitempty"`
	PIParametersWeightage map[string]float64 `json:"pi_parameters_weightage,omitempty" bson:"pi_parameters_weightage,omitempty"`
	OfferLetter           string             `json:"offer_letter,omitempty" bson:"offer_letter,omitempty"`
}

type InterviewList struct {
	ID                   string              `json:"id,omitempty" bson:"_id,omitempty"`
	ListName             string              `json:"list_name" bson:"list_name"`
	SlotType             string              `json:"slot_type,omitempty" bson:"slot_type,omitempty"`
	ApplicationIDs       []string            `json:"application_ids" bson:"application_ids"`
	EligibleApplications []string            `json:"eligible_applications" bson:"eligible_applications"`
	SelectionProcedure   *SelectionProcedure `json:"selection_procedure,omitempty" bson:"selection_procedure,omitempty"`
}

type Panelist struct {
	ID    string `json:"id,omitempty" bson:"_id,omitempty"`
	Name  string `json:"name" bson:"name"`
	Email string `json:"email" bson:"email"`
}

// TimelineEvent is an audit entry recorded against an entity.
type TimelineEvent struct {
	ID          string    `json:"id,omitempty" bson:"_id,omitempty"`
	EntityID    string    `json:"entity_id" bson:"entity_id"`
	EventType   string    `json:"event_type" bson:"event_type"`
	EventStatus string    `json:"event_status" bson:"event_status"`
	Message     string    `json:"message" bson:"message"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
}
