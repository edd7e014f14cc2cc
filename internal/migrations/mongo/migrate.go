package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	appsrepo "planner/internal/applications/repository"
	dirrepo "planner/internal/directory/repository"
	"planner/internal/migrations/mongo/validators"
	panelsrepo "planner/internal/panels/repository"
	slotsrepo "planner/internal/slots/repository"
	timelinerepo "planner/internal/timeline/repository"
)

var (
	SlotsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "panel_id", Value: 1}, {Key: "time", Value: 1}}},
		{Keys: bson.D{{Key: "time", Value: 1}}},
		{Keys: bson.D{{Key: "panel_id", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "take_slot.application_ids", Value: 1}}},
	}

	PanelsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "time", Value: 1}}},
		{Keys: bson.D{{Key: "interview_list_id", Value: 1}}},
	}

	LocksIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}

	TimelinesIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "entity_id", Value: 1}, {Key: "created_at", Value: -1}}},
	}

	ApplicationsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "meeting_details.slot_id", Value: 1}}},
		{Keys: bson.D{{Key: "interview_list_ids", Value: 1}}},
	}

	InterviewListsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "application_ids", Value: 1}}},
	}
)

type CollectionDef struct {
	Indexes   []mongo.IndexModel
	Validator bson.M
}

// Collections lists every collection the planner owns or reads.
func Collections() map[string]CollectionDef {
	return map[string]CollectionDef{
		slotsrepo.CollectionName: {
			Indexes:   SlotsIndexes,
			Validator: validators.SlotValidator,
		},
		panelsrepo.CollectionName: {
			Indexes:   PanelsIndexes,
			Validator: validators.PanelValidator,
		},
		panelsrepo.LockCollectionName: {
			Indexes:   LocksIndexes,
			Validator: validators.LockValidator,
		},
		timelinerepo.CollectionName:           {Indexes: TimelinesIndexes},
		appsrepo.ApplicationsCollectionName:   {Indexes: ApplicationsIndexes},
		appsrepo.InterviewListsCollectionName: {Indexes: InterviewListsIndexes},
		dirrepo.PanelistsCollectionName:       {},
	}
}

func RunMigration(ctx context.Context, db *mongo.Database) error {
	fmt.Printf("🚀 Running planner Mongo migrations on database: %s\n", db.Name())

	for name, def := range Collections() {
		if err := ensureCollection(ctx, db, name, def.Validator); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", name, err)
		}
		if len(def.Indexes) == 0 {
			continue
		}
		if err := ensureIndexes(ctx, db, name, def.Indexes); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", name, err)
		}
	}

	fmt.Println("✅ All migrations applied successfully.")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		fmt.Printf("🆕 Creating collection: %s\n", name)
		opts := options.CreateCollection()
		if validator != nil {
			opts.SetValidator(validator)
		}
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	if validator == nil {
		return nil
	}
	fmt.Printf("ℹ️ Collection %s already exists, updating validator if needed\n", name)
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		fmt.Printf("⚠️ Warning: failed updating validator for %s: %v\n", name, err)
	}
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel) error {
	coll := db.Collection(name)
	_, err := coll.Indexes().CreateMany(ctx, models)
	if err != nil {
		return err
	}
	fmt.Printf("📚 Ensured indexes for %s\n", name)
	return nil
}
