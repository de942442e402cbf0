package runner

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/usedamru/sql2nosql/internal/synth"
)

// MongoSink implements Sink using the MongoDB driver.
type MongoSink struct {
	client   *mongo.Client
	database string
}

// NewMongoSink creates a MongoSink connected to the given MongoDB instance.
func NewMongoSink(ctx context.Context, connectionString, database string) (*MongoSink, error) {
	opts := options.Client().ApplyURI(connectionString)
	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("connecting to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("pinging MongoDB: %w", err)
	}

	return &MongoSink{client: client, database: database}, nil
}

func (m *MongoSink) collection(name string) *mongo.Collection {
	return m.client.Database(m.database).Collection(name)
}

// EnsureIndexes creates the declared indexes. Creating an index that already
// exists with the same name and keys is a no-op server-side, so re-runs are
// safe.
func (m *MongoSink) EnsureIndexes(ctx context.Context, collection string, indexes []synth.IndexDef) error {
	models := make([]mongo.IndexModel, 0, len(indexes))
	for _, idx := range indexes {
		keys := bson.D{}
		for _, col := range idx.Columns {
			keys = append(keys, bson.E{Key: col, Value: 1})
		}
		models = append(models, mongo.IndexModel{
			Keys:    keys,
			Options: options.Index().SetName(idx.Name).SetUnique(idx.Unique),
		})
	}

	if _, err := m.collection(collection).Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("creating indexes on %s: %w", collection, err)
	}
	return nil
}

func (m *MongoSink) Upsert(ctx context.Context, collection string, filter, doc map[string]any) error {
	_, err := m.collection(collection).ReplaceOne(ctx, bson.M(filter), bson.M(doc),
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upserting into %s: %w", collection, err)
	}
	return nil
}

func (m *MongoSink) LoadAll(ctx context.Context, collection string) ([]map[string]any, error) {
	cursor, err := m.collection(collection).Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("finding in %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	var docs []map[string]any
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decoding documents from %s: %w", collection, err)
	}
	return docs, nil
}

func (m *MongoSink) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
