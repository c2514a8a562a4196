package visit

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/clinicnotes/clinicnotes/internal/platform/docstore"
)

// seqCounter keys the counters document that numbers visit insertions.
const seqCounter = "visitSeq"

type repoMongo struct {
	coll     *mongo.Collection
	counters *mongo.Collection
}

func NewRepoMongo(database *mongo.Database) Repository {
	return &repoMongo{
		coll:     database.Collection(docstore.VisitsCollection),
		counters: database.Collection(docstore.CountersCollection),
	}
}

// nextSeq increments the insertion counter. The first-ever upsert can race
// with another writer, so a duplicate key is retried.
func (r *repoMongo) nextSeq(ctx context.Context) (int64, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		var doc struct {
			Value int64 `bson:"value"`
		}
		err = r.counters.FindOneAndUpdate(ctx,
			bson.M{"_id": seqCounter},
			bson.M{"$inc": bson.M{"value": int64(1)}},
			opts,
		).Decode(&doc)
		if err == nil {
			return doc.Value, nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return 0, err
		}
	}
	return 0, err
}

func (r *repoMongo) Create(ctx context.Context, v *Visit) error {
	seq, err := r.nextSeq(ctx)
	if err != nil {
		return err
	}
	v.Seq = seq
	v.Medications = medicationsOrEmpty(v.Medications)
	_, err = r.coll.InsertOne(ctx, v)
	return err
}

func (r *repoMongo) CreateIfAbsent(ctx context.Context, v *Visit) (bool, error) {
	seq, err := r.nextSeq(ctx)
	if err != nil {
		return false, err
	}
	v.Seq = seq
	v.Medications = medicationsOrEmpty(v.Medications)
	_, err = r.coll.InsertOne(ctx, v)
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *repoMongo) Get(ctx context.Context, patientID, id string) (*Visit, error) {
	return r.findOne(ctx, bson.M{"_id": id, "patientId": patientID}, options.FindOne())
}

func (r *repoMongo) Merge(ctx context.Context, patientID, id string, fields []FieldUpdate, updatedAt time.Time) error {
	set := bson.M{"updatedAt": updatedAt}
	for _, f := range fields {
		set[f.Field] = f.Value
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id, "patientId": patientID}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoMongo) Last(ctx context.Context, patientID string) (*Visit, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "visitDate", Value: -1}, {Key: "seq", Value: -1}})
	return r.findOne(ctx, bson.M{"patientId": patientID}, opts)
}

func (r *repoMongo) List(ctx context.Context, patientID string, order Order) ([]*Visit, error) {
	dir := 1
	if order.Desc {
		dir = -1
	}
	opts := options.Find().SetSort(bson.D{{Key: order.Field, Value: dir}, {Key: "seq", Value: dir}})

	cur, err := r.coll.Find(ctx, bson.M{"patientId": patientID}, opts)
	if err != nil {
		return nil, err
	}
	out := []*Visit{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	for _, v := range out {
		v.Medications = medicationsOrEmpty(v.Medications)
	}
	return out, nil
}

func (r *repoMongo) PatientsWithVisits(ctx context.Context, limit int) ([]string, error) {
	raw, err := r.coll.Distinct(ctx, "patientId", bson.M{})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(raw))
	for _, v := range raw {
		if id, ok := v.(string); ok {
			ids = append(ids, id)
		}
		if len(ids) == limit {
			break
		}
	}
	return ids, nil
}

func (r *repoMongo) DeleteBatch(ctx context.Context, patientID string, limit int) (int64, error) {
	cur, err := r.coll.Find(ctx, bson.M{"patientId": patientID},
		options.Find().SetProjection(bson.M{"_id": 1}).SetLimit(int64(limit)))
	if err != nil {
		return 0, err
	}
	var docs []struct {
		ID string `bson:"_id"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		return 0, nil
	}

	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	res, err := r.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (r *repoMongo) findOne(ctx context.Context, filter bson.M, opts *options.FindOneOptions) (*Visit, error) {
	var v Visit
	err := r.coll.FindOne(ctx, filter, opts).Decode(&v)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	v.Medications = medicationsOrEmpty(v.Medications)
	return &v, nil
}
