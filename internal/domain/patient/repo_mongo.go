package patient

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/clinicnotes/clinicnotes/internal/platform/docstore"
)

type repoMongo struct {
	coll *mongo.Collection
}

func NewRepoMongo(database *mongo.Database) Repository {
	return &repoMongo{coll: database.Collection(docstore.PatientsCollection)}
}

func (r *repoMongo) Create(ctx context.Context, p *Patient) error {
	_, err := r.coll.InsertOne(ctx, p)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func (r *repoMongo) CreateIfAbsent(ctx context.Context, p *Patient) (bool, error) {
	_, err := r.coll.InsertOne(ctx, p)
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *repoMongo) GetByID(ctx context.Context, id string) (*Patient, error) {
	var p Patient
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repoMongo) Update(ctx context.Context, id string, fields []FieldUpdate, updatedAt time.Time) error {
	set := bson.M{"updatedAt": updatedAt}
	for _, f := range fields {
		set[f.Field] = f.Value
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoMongo) Delete(ctx context.Context, id string) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (r *repoMongo) SearchByNamePrefix(ctx context.Context, prefix string, limit int) ([]*Patient, error) {
	// An anchored, case-sensitive regex is served from the name_normalized index.
	filter := bson.M{"name_normalized": primitive.Regex{Pattern: "^" + regexp.QuoteMeta(prefix)}}
	opts := options.Find().
		SetSort(bson.D{{Key: "name_normalized", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit))
	return r.find(ctx, filter, opts)
}

func (r *repoMongo) ListRecent(ctx context.Context, limit int) ([]*Patient, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "updatedAt", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit))
	return r.find(ctx, bson.M{}, opts)
}

func (r *repoMongo) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*Patient, error) {
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	out := []*Patient{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
