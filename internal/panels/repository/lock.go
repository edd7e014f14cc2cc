package repository

import (
	"context"
	"fmt"
	panelserrors "planner/internal/panels/errors"
	"planner/pkg/config"
	mongotx "planner/pkg/db/mongo"
	"planner/pkg/model"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	LockCollectionName = "Locks"
	lockKeyPrefix      = "panel_lock_"
)

// LockRepository serializes structural changes to a panel.
type LockRepository interface {
	// Acquire returns the owner token the caller must present to Release.
	Acquire(ctx context.Context, panelID string, ttl time.Duration) (string, error)
	Release(ctx context.Context, panelID, owner string) error
}

type mongoLockRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoLockRepository(cfg *config.Config) LockRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoLockRepository{
		cfg:        cfg,
		collection: db.Collection(LockCollectionName),
	}
}

func LockKey(panelID string) string {
	return lockKeyPrefix + panelID
}

// Acquire inserts the lock document. A live lock held by someone else yields
// ErrLockHeld. A lock past its expiry is taken over, since the TTL monitor only
// sweeps once a minute.
func (r *mongoLockRepository) Acquire(ctx context.Context, panelID string, ttl time.Duration) (string, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC()
	key := LockKey(panelID)

	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": key, "expires_at": bson.M{"$lte": now}}); err != nil {
		return "", fmt.Errorf("failed to clear expired panel lock: %w", err)
	}

	lock := &model.Lock{ID: key, Owner: uuid.NewString(), CreatedAt: now, ExpiresAt: now.Add(ttl)}
	if _, err := r.collection.InsertOne(ctx, lock); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", panelserrors.ErrLockHeld
		}
		return "", fmt.Errorf("failed to acquire panel lock: %w", err)
	}
	return lock.Owner, nil
}

// Release deletes the lock only while owner still holds it. A holder whose lock
// expired and was taken over leaves the new lock in place.
func (r *mongoLockRepository) Release(ctx context.Context, panelID, owner string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": LockKey(panelID), "owner": owner})
	if err != nil {
		return fmt.Errorf("failed to release panel lock: %w", err)
	}
	return nil
}
