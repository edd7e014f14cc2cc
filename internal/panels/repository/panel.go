package repository

import (
	"context"
	"errors"
	"fmt"
	panelserrors "planner/internal/panels/errors"
	"planner/pkg/config"
	mongotx "planner/pkg/db/mongo"
	"planner/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Panels"
)

type mongoPanelRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

type PanelRepository interface {
	Create(ctx context.Context, panel *model.Panel) error
	FindByID(ctx context.Context, id string) (*model.Panel, error)
	FindByIDs(ctx context.Context, ids []string) ([]*model.Panel, error)
	FindByTimeRange(ctx context.Context, from, to time.Time) ([]*model.Panel, error)
	Replace(ctx context.Context, panel *model.Panel) error
	// Promote publishes the panel if it is not published yet. It reports true
	// only for the call that performed the transition.
	Promote(ctx context.Context, id string, actor string, at time.Time) (bool, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoPanelRepository(cfg *config.Config) PanelRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoPanelRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoPanelRepository) Create(ctx context.Context, panel *model.Panel) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	panel.ID = ""
	panel.Version = 1
	panel.CreatedAt = now
	panel.UpdatedAt = now
	if panel.LastModifiedTimeline == nil {
		panel.LastModifiedTimeline = []model.Modification{}
	}

	result, err := r.collection.InsertOne(ctx, panel)
	if err != nil {
		return fmt.Errorf("failed to create panel: %w", err)
	}

	panel.ID = mongotx.HexID(result.InsertedID)
	return nil
}

func (r *mongoPanelRepository) FindByID(ctx context.Context, id string) (*model.Panel, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := mongotx.ObjectID(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", panelserrors.ErrInvalidID, id)
	}

	var panel model.Panel
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&panel)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, panelserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find panel: %w", err)
	}

	return &panel, nil
}

func (r *mongoPanelRepository) FindByIDs(ctx context.Context, ids []string) ([]*model.Panel, error) {
	if len(ids) == 0 {
		return []*model.Panel{}, nil
	}

	objectIDs, err := mongotx.ObjectIDs(ids)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", panelserrors.ErrInvalidID, ids)
	}

	return r.find(ctx, bson.M{"_id": bson.M{"$in": objectIDs}})
}

func (r *mongoPanelRepository) FindByTimeRange(ctx context.Context, from, to time.Time) ([]*model.Panel, error) {
	return r.find(ctx, bson.M{"time": bson.M{"$gte": from, "$lt": to}})
}

func (r *mongoPanelRepository) find(ctx context.Context, filter bson.M) ([]*model.Panel, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "time", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find panels: %w", err)
	}
	defer cursor.Close(ctx)

	panels := []*model.Panel{}
	if err = cursor.All(ctx, &panels); err != nil {
		return nil, fmt.Errorf("failed to decode panels: %w", err)
	}

	return panels, nil
}

func (r *mongoPanelRepository) Replace(ctx context.Context, panel *model.Panel) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := mongotx.ObjectID(panel.ID)
	if err != nil {
		return fmt.Errorf("%w: %s", panelserrors.ErrInvalidID, panel.ID)
	}

	doc := *panel
	doc.ID = ""
	doc.Version = panel.Version + 1

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": objectID, "version": panel.Version}, &doc)
	if err != nil {
		return fmt.Errorf("failed to replace panel: %w", err)
	}
	if result.MatchedCount == 0 {
		return panelserrors.ErrVersionConflict
	}

	panel.Version = doc.Version
	return nil
}

func (r *mongoPanelRepository) Promote(ctx context.Context, id string, actor string, at time.Time) (bool, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := mongotx.ObjectID(id)
	if err != nil {
		return false, fmt.Errorf("%w: %s", panelserrors.ErrInvalidID, id)
	}

	filter := bson.M{"_id": objectID, "status": bson.M{"$ne": model.StatusPublished}}
	update := bson.M{
		"$set": bson.M{"status": model.StatusPublished, "updated_at": at},
		"$inc": bson.M{"version": 1},
		"$push": bson.M{"last_modified_timeline": bson.M{
			"$each":     bson.A{model.Modification{UserID: actor, LastModifiedAt: at}},
			"$position": 0,
		}},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to promote panel: %w", err)
	}
	return result.ModifiedCount == 1, nil
}

func (r *mongoPanelRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
