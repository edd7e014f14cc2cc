package repository

import (
	"context"
	"errors"
	"fmt"
	direrrors "planner/internal/directory/errors"
	"planner/pkg/config"
	mongotx "planner/pkg/db/mongo"
	"planner/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	PanelistsCollectionName    = "Panelists"
	ApplicationsCollectionName = "Applications"
)

// Directory is the read-only view of people that can occupy slots.
type Directory interface {
	FindPanelistByID(ctx context.Context, id string) (*model.Panelist, error)
	FindApplicationByID(ctx context.Context, id string) (*model.Application, error)
}

type mongoDirectory struct {
	cfg          *config.Config
	panelists    *mongo.Collection
	applications *mongo.Collection
}

func NewMongoDirectory(cfg *config.Config) Directory {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoDirectory{
		cfg:          cfg,
		panelists:    db.Collection(PanelistsCollectionName),
		applications: db.Collection(ApplicationsCollectionName),
	}
}

func (d *mongoDirectory) FindPanelistByID(ctx context.Context, id string) (*model.Panelist, error) {
	var panelist model.Panelist
	if err := d.findOne(ctx, d.panelists, id, &panelist); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, direrrors.ErrPanelistNotFound
		}
		return nil, err
	}
	return &panelist, nil
}

func (d *mongoDirectory) FindApplicationByID(ctx context.Context, id string) (*model.Application, error) {
	var application model.Application
	if err := d.findOne(ctx, d.applications, id, &application); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, direrrors.ErrApplicationNotFound
		}
		return nil, err
	}
	return &application, nil
}

func (d *mongoDirectory) findOne(ctx context.Context, collection *mongo.Collection, id string, out any) error {
	ctx, cancel := mongotx.WithTimeout(ctx, d.cfg.ReadTimeout)
	defer cancel()

	objectID, err := mongotx.ObjectID(id)
	if err != nil {
		return fmt.Errorf("%w: %s", direrrors.ErrInvalidID, id)
	}

	err = collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(out)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("failed to read %s: %w", collection.Name(), err)
	}
	return err
}
