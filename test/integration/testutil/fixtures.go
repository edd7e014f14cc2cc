package testutil

import (
	"testing"
	"time"

	appsrepo "planner/internal/applications/repository"
	dirrepo "planner/internal/directory/repository"

	"go.mongodb.org/mongo-driver/bson"
)

func (m *MongoHelper) SeedPanelist(t *testing.T, name string) string {
	t.Helper()
	return m.insert(t, dirrepo.PanelistsCollectionName, bson.M{
		"name":  name,
		"email": name + "@example.com",
	})
}

func (m *MongoHelper) SeedInterviewList(t *testing.T, name, slotType string) string {
	t.Helper()
	return m.insert(t, appsrepo.InterviewListsCollectionName, bson.M{
		"list_name":             name,
		"slot_type":             slotType,
		"application_ids":       bson.A{},
		"eligible_applications": bson.A{},
	})
}

func (m *MongoHelper) SeedApplication(t *testing.T, name string, listIDs ...string) string {
	t.Helper()
	lists := bson.A{}
	for _, id := range listIDs {
		lists = append(lists, id)
	}
	return m.insert(t, appsrepo.ApplicationsCollectionName, bson.M{
		"name":               name,
		"email":              name + "@example.com",
		"interview_list_ids": lists,
	})
}

// PanelBuilder produces create-panel payloads. The default is four 20 minute PI
// slots with 5 minute gaps inside a two hour window.
type PanelBuilder struct {
	body map[string]any
}

func NewPanelBuilder(listID string, panelists ...string) *PanelBuilder {
	start := time.Date(2030, time.March, 2, 9, 0, 0, 0, time.UTC)
	return &PanelBuilder{body: map[string]any{
		"panel_name":        "Integration Panel",
		"slot_type":         "PI",
		"panel_type":        "technical",
		"interview_mode":    "video_call",
		"interview_list_id": listID,
		"panelists":         panelists,
		"time":              start,
		"end_time":          start.Add(2 * time.Hour),
		"gap_between_slots": 5,
		"slot_duration":     20,
		"slot_count":        4,
		"panel_duration":    120,
	}}
}

func (b *PanelBuilder) With(key string, value any) *PanelBuilder {
	b.body[key] = value
	return b
}

func (b *PanelBuilder) Build() map[string]any {
	return b.body
}
