package repository

import (
	"context"
	"fmt"
	"planner/pkg/config"
	mongotx "planner/pkg/db/mongo"
	"planner/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

const (
	CollectionName = "Timelines"

	EventSlotBooked      = "Slot Booked"
	EventSlotUnassigned  = "Slot Unassigned"
	EventRescheduled     = "Rescheduled"
	EventPanelCreated    = "Panel Created"
	EventPanelPublished  = "Panel Published"
	EventPanelRebalanced = "Panel Rebalanced"

	StatusSuccess = "success"
)

// TimelineRepository appends audit events. Callers treat failures as non-fatal.
type TimelineRepository interface {
	RecordEvent(ctx context.Context, entityID, eventType, eventStatus, message string) error
}

type mongoTimelineRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoTimelineRepository(cfg *config.Config) TimelineRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoTimelineRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoTimelineRepository) RecordEvent(ctx context.Context, entityID, eventType, eventStatus, message string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	event := &model.TimelineEvent{
		EntityID:    entityID,
		EventType:   eventType,
		EventStatus: eventStatus,
		Message:     message,
		CreatedAt:   time.Now().UTC().Truncate(time.Millisecond),
	}
	if _, err := r.collection.InsertOne(ctx, event); err != nil {
		return fmt.Errorf("failed to record timeline event: %w", err)
	}
	return nil
}
