package testutil

import (
	"context"
	"testing"
	"time"

	appsrepo "planner/internal/applications/repository"
	dirrepo "planner/internal/directory/repository"
	panelsrepo "planner/internal/panels/repository"
	slotsrepo "planner/internal/slots/repository"
	timelinerepo "planner/internal/timeline/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	DefaultMongoURI     = "mongodb://localhost:27017"
	DefaultDatabaseName = "planner"
	ConnectionTimeout   = 10 * time.Second
)

// plannerCollections are emptied between runs. Documents are deleted rather than
// collections dropped so that migrated validators and indexes survive.
var plannerCollections = []string{
	slotsrepo.CollectionName,
	panelsrepo.CollectionName,
	panelsrepo.LockCollectionName,
	timelinerepo.CollectionName,
	appsrepo.ApplicationsCollectionName,
	appsrepo.InterviewListsCollectionName,
	dirrepo.PanelistsCollectionName,
}

type MongoHelper struct {
	Client   *mongo.Client
	Database *mongo.Database
	DBName   string
}

func NewMongoHelper(t *testing.T, mongoURI, dbName string) *MongoHelper {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), ConnectionTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		t.Fatalf("failed to connect to MongoDB: %v", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		t.Fatalf("failed to ping MongoDB: %v", err)
	}

	return &MongoHelper{
		Client:   client,
		Database: client.Database(dbName),
		DBName:   dbName,
	}
}

func (m *MongoHelper) Close(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := m.Client.Disconnect(ctx); err != nil {
		t.Logf("warning: failed to disconnect from MongoDB: %v", err)
	}
}

func (m *MongoHelper) CleanDatabase(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, name := range plannerCollections {
		if _, err := m.Database.Collection(name).DeleteMany(ctx, bson.M{}); err != nil {
			t.Fatalf("failed to clean collection %s: %v", name, err)
		}
	}
}

func (m *MongoHelper) CountDocuments(t *testing.T, collectionName string, filter bson.M) int64 {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if filter == nil {
		filter = bson.M{}
	}
	count, err := m.Database.Collection(collectionName).CountDocuments(ctx, filter)
	if err != nil {
		t.Fatalf("failed to count documents in %s: %v", collectionName, err)
	}
	return count
}

// FindOne decodes the document with the given hex id into out.
func (m *MongoHelper) FindOne(t *testing.T, collectionName, id string, out any) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		t.Fatalf("invalid object id %q: %v", id, err)
	}
	if err := m.Database.Collection(collectionName).FindOne(ctx, bson.M{"_id": oid}).Decode(out); err != nil {
		t.Fatalf("failed to read %s/%s: %v", collectionName, id, err)
	}
}

func (m *MongoHelper) insert(t *testing.T, collectionName string, doc bson.M) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	oid := primitive.NewObjectID()
	doc["_id"] = oid
	if _, err := m.Database.Collection(collectionName).InsertOne(ctx, doc); err != nil {
		t.Fatalf("failed to seed %s: %v", collectionName, err)
	}
	return oid.Hex()
}
