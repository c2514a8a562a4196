package patient

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/clinicnotes/clinicnotes/internal/platform/apperr"
	"github.com/clinicnotes/clinicnotes/internal/platform/docstore"
)

type counterMongo struct {
	coll *mongo.Collection
}

func NewCounterMongo(database *mongo.Database) CounterStore {
	return &counterMongo{coll: database.Collection(docstore.CountersCollection)}
}

type counterDoc struct {
	LastPRegNumber int64 `bson:"lastPRegNumber"`
}

// Next uses an upserting $inc. Two first-ever allocations can race on the
// upsert; the loser sees a duplicate key error and retries.
func (s *counterMongo) Next(ctx context.Context) (int64, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	update := bson.M{
		"$inc": bson.M{"lastPRegNumber": int64(1)},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}

	var lastErr error
	for attempt := 1; attempt <= maxAllocAttempts; attempt++ {
		var doc counterDoc
		err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": counterName}, update, opts).Decode(&doc)
		if err == nil {
			return doc.LastPRegNumber, nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return 0, err
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return 0, apperr.TransientStore("patient id allocation interrupted", ctx.Err())
		case <-time.After(allocBackoff(attempt)):
		}
	}
	return 0, apperr.TransientStore("patient id allocation failed after retries, please try again", lastErr)
}

func (s *counterMongo) Set(ctx context.Context, n int64) error {
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": counterName},
		bson.M{"$set": bson.M{"lastPRegNumber": n, "updatedAt": time.Now().UTC()}},
		options.Update().SetUpsert(true),
	)
	return err
}
