package repository

import (
	"context"
	"errors"
	"fmt"
	appserrors "planner/internal/applications/errors"
	"planner/pkg/config"
	mongotx "planner/pkg/db/mongo"
	"planner/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	InterviewListsCollectionName = "Interview_lists"
)

// InterviewListRepository maintains list membership. Both application_ids and
// eligible_applications are kept in step.
type InterviewListRepository interface {
	FindByID(ctx context.Context, id string) (*model.InterviewList, error)
	AddApplication(ctx context.Context, listID string, applicationID string) error
	RemoveApplication(ctx context.Context, listID string, applicationID string) error
	// RemoveApplicationFromOthers drops the application from every list except keepListID.
	RemoveApplicationFromOthers(ctx context.Context, applicationID string, keepListID string) error
}

type mongoInterviewListRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoInterviewListRepository(cfg *config.Config) InterviewListRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoInterviewListRepository{
		cfg:        cfg,
		collection: db.Collection(InterviewListsCollectionName),
	}
}

func (r *mongoInterviewListRepository) FindByID(ctx context.Context, id string) (*model.InterviewList, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := mongotx.ObjectID(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", appserrors.ErrInvalidID, id)
	}

	var list model.InterviewList
	if err := r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&list); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, appserrors.ErrInterviewListNotFound
		}
		return nil, fmt.Errorf("failed to find interview list: %w", err)
	}
	return &list, nil
}

func (r *mongoInterviewListRepository) AddApplication(ctx context.Context, listID string, applicationID string) error {
	update := bson.M{"$addToSet": bson.M{
		"application_ids":       applicationID,
		"eligible_applications": applicationID,
	}}
	return r.updateOne(ctx, listID, update)
}

func (r *mongoInterviewListRepository) RemoveApplication(ctx context.Context, listID string, applicationID string) error {
	update := bson.M{"$pull": bson.M{
		"application_ids":       applicationID,
		"eligible_applications": applicationID,
	}}
	return r.updateOne(ctx, listID, update)
}

func (r *mongoInterviewListRepository) RemoveApplicationFromOthers(ctx context.Context, applicationID string, keepListID string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"$or": bson.A{
		bson.M{"application_ids": applicationID},
		bson.M{"eligible_applications": applicationID},
	}}
	if keepListID != "" {
		keep, err := mongotx.ObjectID(keepListID)
		if err != nil {
			return fmt.Errorf("%w: %s", appserrors.ErrInvalidID, keepListID)
		}
		filter["_id"] = bson.M{"$ne": keep}
	}

	update := bson.M{"$pull": bson.M{
		"application_ids":       applicationID,
		"eligible_applications": applicationID,
	}}
	if _, err := r.collection.UpdateMany(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to remove application from interview lists: %w", err)
	}
	return nil
}

func (r *mongoInterviewListRepository) updateOne(ctx context.Context, listID string, update bson.M) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := mongotx.ObjectID(listID)
	if err != nil {
		return fmt.Errorf("%w: %s", appserrors.ErrInvalidID, listID)
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to update interview list: %w", err)
	}
	if result.MatchedCount == 0 {
		return appserrors.ErrInterviewListNotFound
	}
	return nil
}
