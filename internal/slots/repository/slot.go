package repository

import (
	"context"
	"errors"
	"fmt"
	slotserrors "planner/internal/slots/errors"
	"planner/pkg/config"
	mongotx "planner/pkg/db/mongo"
	"planner/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Slots"
)

type mongoSlotRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

type SlotRepository interface {
	Create(ctx context.Context, slot *model.Slot) error
	CreateMany(ctx context.Context, slots []*model.Slot) error
	FindByID(ctx context.Context, id string) (*model.Slot, error)
	FindByIDs(ctx context.Context, ids []string) ([]*model.Slot, error)
	FindByPanel(ctx context.Context, panelID string) ([]*model.Slot, error)
	FindByTimeRange(ctx context.Context, from, to time.Time) ([]*model.Slot, error)
	// Replace writes slot only if its stored version still equals slot.Version,
	// then bumps slot.Version. A lost race returns ErrVersionConflict.
	Replace(ctx context.Context, slot *model.Slot) error
	// PublishMany publishes every unpublished slot whose id is in ids or whose
	// panel is in panelIDs, and returns how many changed.
	PublishMany(ctx context.Context, ids []string, panelIDs []string, actor string, at time.Time) (int64, error)
	// PublishOne publishes a single slot if it is not published yet. It reports
	// true only for the call that performed the transition.
	PublishOne(ctx context.Context, id string, actor string, at time.Time) (bool, error)
	CountUnpublishedInPanel(ctx context.Context, panelID string) (int64, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoSlotRepository(cfg *config.Config) SlotRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSlotRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoSlotRepository) Create(ctx context.Context, slot *model.Slot) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	prepareInsert(slot)
	result, err := r.collection.InsertOne(ctx, slot)
	if err != nil {
		return fmt.Errorf("failed to create slot: %w", err)
	}

	slot.ID = mongotx.HexID(result.InsertedID)
	return nil
}

func (r *mongoSlotRepository) CreateMany(ctx context.Context, slots []*model.Slot) error {
	if len(slots) == 0 {
		return nil
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	docs := make([]any, 0, len(slots))
	for _, slot := range slots {
		prepareInsert(slot)
		docs = append(docs, slot)
	}

	result, err := r.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	if err != nil {
		return fmt.Errorf("failed to create slots: %w", err)
	}

	for i, id := range result.InsertedIDs {
		slots[i].ID = mongotx.HexID(id)
	}
	return nil
}

func (r *mongoSlotRepository) FindByID(ctx context.Context, id string) (*model.Slot, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := mongotx.ObjectID(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", slotserrors.ErrInvalidID, id)
	}

	var slot model.Slot
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&slot)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, slotserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find slot: %w", err)
	}

	return &slot, nil
}

func (r *mongoSlotRepository) FindByIDs(ctx context.Context, ids []string) ([]*model.Slot, error) {
	if len(ids) == 0 {
		return []*model.Slot{}, nil
	}

	objectIDs, err := mongotx.ObjectIDs(ids)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", slotserrors.ErrInvalidID, ids)
	}

	return r.find(ctx, bson.M{"_id": bson.M{"$in": objectIDs}})
}

// FindByPanel returns the panel's slots ordered by start time.
func (r *mongoSlotRepository) FindByPanel(ctx context.Context, panelID string) ([]*model.Slot, error) {
	return r.find(ctx, bson.M{"panel_id": panelID})
}

func (r *mongoSlotRepository) FindByTimeRange(ctx context.Context, from, to time.Time) ([]*model.Slot, error) {
	return r.find(ctx, bson.M{"time": bson.M{"$gte": from, "$lt": to}})
}

func (r *mongoSlotRepository) find(ctx context.Context, filter bson.M) ([]*model.Slot, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "time", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find slots: %w", err)
	}
	defer cursor.Close(ctx)

	slots := []*model.Slot{}
	if err = cursor.All(ctx, &slots); err != nil {
		return nil, fmt.Errorf("failed to decode slots: %w", err)
	}

	return slots, nil
}

func (r *mongoSlotRepository) Replace(ctx context.Context, slot *model.Slot) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := mongotx.ObjectID(slot.ID)
	if err != nil {
		return fmt.Errorf("%w: %s", slotserrors.ErrInvalidID, slot.ID)
	}

	doc := *slot
	doc.ID = ""
	doc.Version = slot.Version + 1

	filter := bson.M{"_id": objectID, "version": slot.Version}
	result, err := r.collection.ReplaceOne(ctx, filter, &doc)
	if err != nil {
		return fmt.Errorf("failed to replace slot: %w", err)
	}
	if result.MatchedCount == 0 {
		return slotserrors.ErrVersionConflict
	}

	slot.Version = doc.Version
	return nil
}

func (r *mongoSlotRepository) PublishMany(ctx context.Context, ids []string, panelIDs []string, actor string, at time.Time) (int64, error) {
	if len(ids) == 0 && len(panelIDs) == 0 {
		return 0, nil
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectIDs, err := mongotx.ObjectIDs(ids)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", slotserrors.ErrInvalidID, ids)
	}

	targets := bson.A{}
	if len(objectIDs) > 0 {
		targets = append(targets, bson.M{"_id": bson.M{"$in": objectIDs}})
	}
	if len(panelIDs) > 0 {
		targets = append(targets, bson.M{"panel_id": bson.M{"$in": panelIDs}})
	}

	filter := bson.M{
		"status": bson.M{"$ne": model.StatusPublished},
		"$or":    targets,
	}
	update := bson.M{
		"$set": bson.M{"status": model.StatusPublished, "updated_at": at},
		"$inc": bson.M{"version": 1},
		"$push": bson.M{"last_modified_timeline": bson.M{
			"$each":     bson.A{model.Modification{UserID: actor, LastModifiedAt: at}},
			"$position": 0,
		}},
	}

	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to publish slots: %w", err)
	}
	return result.ModifiedCount, nil
}

func (r *mongoSlotRepository) PublishOne(ctx context.Context, id string, actor string, at time.Time) (bool, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := mongotx.ObjectID(id)
	if err != nil {
		return false, fmt.Errorf("%w: %s", slotserrors.ErrInvalidID, id)
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
		return false, fmt.Errorf("failed to publish slot: %w", err)
	}
	return result.ModifiedCount == 1, nil
}

func (r *mongoSlotRepository) CountUnpublishedInPanel(ctx context.Context, panelID string) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{"panel_id": panelID, "status": bson.M{"$ne": model.StatusPublished}}
	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count unpublished slots: %w", err)
	}
	return count, nil
}

func (r *mongoSlotRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}

func prepareInsert(slot *model.Slot) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	slot.ID = ""
	slot.Version = 1
	slot.CreatedAt = now
	slot.UpdatedAt = now
	if slot.Panelists == nil {
		slot.Panelists = []string{}
	}
	if slot.TakeSlot.ApplicationIDs == nil {
		slot.TakeSlot.ApplicationIDs = []string{}
	}
	if slot.TakeSlot.PanelistIDs == nil {
		slot.TakeSlot.PanelistIDs = []string{}
	}
	if slot.LastModifiedTimeline == nil {
		slot.LastModifiedTimeline = []model.Modification{}
	}
}
