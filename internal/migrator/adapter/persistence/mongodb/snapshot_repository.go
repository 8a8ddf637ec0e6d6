package mongodb

import (
	"context"
	"encoding/json"
	"time"

	"catalog-migrator/internal/migrator/domain/model"
	"catalog-migrator/internal/shared/errors"
	"catalog-migrator/internal/shared/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const connectTimeout = 10 * time.Second

// SnapshotRepository upserts source records into one MongoDB collection
// per resource type, keyed by the origin id.
type SnapshotRepository struct {
	client   *mongo.Client
	database *mongo.Database
	logger   logger.Logger
}

// Connect dials uri and verifies the connection.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.NewPreconditionError("connect to MongoDB").WithCause(err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.NewPreconditionError("ping MongoDB").WithCause(err)
	}
	return client, nil
}

// NewSnapshotRepository writes into database of client.
func NewSnapshotRepository(client *mongo.Client, database string, log logger.Logger) *SnapshotRepository {
	return &SnapshotRepository{
		client:   client,
		database: client.Database(database),
		logger:   logger.NopIfNil(log).WithComponent("mongo-snapshot"),
	}
}

// Save replaces the stored copy of the record, inserting it if absent.
func (r *SnapshotRepository) Save(ctx context.Context, resource model.ResourceType, id int64, record json.RawMessage) error {
	var doc bson.M
	if err := bson.UnmarshalExtJSON(record, false, &doc); err != nil {
		return errors.NewInternalError("convert record to BSON").WithCause(err)
	}
	doc["_id"] = id
	doc["_saved_at"] = time.Now().UTC()

	_, err := r.database.Collection(string(resource)).ReplaceOne(ctx,
		bson.M{"_id": id}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		r.logger.WithFields(map[string]interface{}{
			"resource": resource,
			"id":       id,
		}).Errorf("failed to upsert snapshot: %v", err)
		return errors.NewTransportError("upsert snapshot").WithCause(err)
	}
	return nil
}

// Close disconnects the client.
func (r *SnapshotRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
