package repository

import (
	"context"
	"fmt"
	appserrors "planner/internal/applications/errors"
	"planner/pkg/config"
	mongotx "planner/pkg/db/mongo"
	"planner/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	ApplicationsCollectionName = "Applications"
)

// ApplicationRepository owns the booking-related fields of an application:
// its meeting details and interview-list membership.
type ApplicationRepository interface {
	SetMeetingDetails(ctx context.Context, id string, details *model.MeetingDetails) error
	// RefreshMeetingDetails rewrites meeting details only while they still point at
	// details.SlotID. An application booked elsewhere is left untouched.
	RefreshMeetingDetails(ctx context.Context, id string, details *model.MeetingDetails) error
	// ClearMeetingDetails unsets meeting details only while they still point at slotID.
	ClearMeetingDetails(ctx context.Context, id string, slotID string) error
	AddInterviewList(ctx context.Context, id string, listID string) error
	RemoveInterviewList(ctx context.Context, id string, listID string) error
	// ReplaceInterviewLists sets the application's membership to exactly listIDs.
	ReplaceInterviewLists(ctx context.Context, id string, listIDs []string) error
}

type mongoApplicationRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoApplicationRepository(cfg *config.Config) ApplicationRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoApplicationRepository{
		cfg:        cfg,
		collection: db.Collection(ApplicationsCollectionName),
	}
}

func (r *mongoApplicationRepository) SetMeetingDetails(ctx context.Context, id string, details *model.MeetingDetails) error {
	return r.update(ctx, id, bson.M{"$set": bson.M{"meeting_details": details}})
}

func (r *mongoApplicationRepository) RefreshMeetingDetails(ctx context.Context, id string, details *model.MeetingDetails) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := mongotx.ObjectID(id)
	if err != nil {
		return fmt.Errorf("%w: %s", appserrors.ErrInvalidID, id)
	}

	filter := bson.M{"_id": objectID, "meeting_details.slot_id": details.SlotID}
	if _, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"meeting_details": details}}); err != nil {
		return fmt.Errorf("failed to refresh meeting details: %w", err)
	}
	return nil
}

func (r *mongoApplicationRepository) ClearMeetingDetails(ctx context.Context, id string, slotID string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := mongotx.ObjectID(id)
	if err != nil {
		return fmt.Errorf("%w: %s", appserrors.ErrInvalidID, id)
	}

	filter := bson.M{"_id": objectID, "meeting_details.slot_id": slotID}
	if _, err := r.collection.UpdateOne(ctx, filter, bson.M{"$unset": bson.M{"meeting_details": ""}}); err != nil {
		return fmt.Errorf("failed to clear meeting details: %w", err)
	}
	return nil
}

func (r *mongoApplicationRepository) AddInterviewList(ctx context.Context, id string, listID string) error {
	return r.update(ctx, id, bson.M{"$addToSet": bson.M{"interview_list_ids": listID}})
}

func (r *mongoApplicationRepository) RemoveInterviewList(ctx context.Context, id string, listID string) error {
	return r.update(ctx, id, bson.M{"$pull": bson.M{"interview_list_ids": listID}})
}

func (r *mongoApplicationRepository) ReplaceInterviewLists(ctx context.Context, id string, listIDs []string) error {
	if listIDs == nil {
		listIDs = []string{}
	}
	return r.update(ctx, id, bson.M{"$set": bson.M{"interview_list_ids": listIDs}})
}

func (r *mongoApplicationRepository) update(ctx context.Context, id string, update bson.M) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := mongotx.ObjectID(id)
	if err != nil {
		return fmt.Errorf("%w: %s", appserrors.ErrInvalidID, id)
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to update application: %w", err)
	}
	if result.MatchedCount == 0 {
		return appserrors.ErrApplicationNotFound
	}
	return nil
}
