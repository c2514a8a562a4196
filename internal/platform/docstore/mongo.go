// Package docstore connects to MongoDB, the alternative document-store
// backend selected with STORE_DRIVER=mongo.
package docstore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	PatientsCollection = "patients"
	VisitsCollection   = "visits"
	SettingsCollection = "settings"
	CountersCollection = "counters"

	// VisitDateIndex backs the cross-patient date range report.
	VisitDateIndex = "visitDate_1"
)

func Connect(ctx context.Context, uri, database string) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// Nested documents decode as maps so free-form settings render as JSON objects.
	opts := options.Client().ApplyURI(uri).SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return client.Database(database), nil
}

// Ping is a health check for the database's client.
func Ping(database *mongo.Database) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return database.Client().Ping(ctx, nil)
	}
}

// Indexes lists the indexes every collection needs, keyed by collection.
func Indexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		PatientsCollection: {
			{Keys: bson.D{{Key: "name_normalized", Value: 1}}, Options: options.Index().SetName("name_normalized_1")},
			{Keys: bson.D{{Key: "updatedAt", Value: -1}}, Options: options.Index().SetName("updatedAt_-1")},
		},
		VisitsCollection: {
			{Keys: bson.D{{Key: "patientId", Value: 1}, {Key: "visitDate", Value: -1}, {Key: "seq", Value: -1}}, Options: options.Index().SetName("patientId_1_visitDate_-1_seq_-1")},
			{Keys: bson.D{{Key: "visitDate", Value: 1}}, Options: options.Index().SetName(VisitDateIndex)},
		},
	}
}

// EnsureIndexes creates the indexes returned by Indexes. Creating an index
// that already exists is a no-op.
func EnsureIndexes(ctx context.Context, database *mongo.Database) (int, error) {
	count := 0
	for coll, models := range Indexes() {
		names, err := database.Collection(coll).Indexes().CreateMany(ctx, models)
		if err != nil {
			return count, fmt.Errorf("create indexes on %s: %w", coll, err)
		}
		count += len(names)
	}
	return count, nil
}
