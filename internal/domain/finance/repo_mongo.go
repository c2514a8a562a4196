package finance

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/clinicnotes/clinicnotes/internal/platform/docstore"
)

type repoMongo struct {
	coll *mongo.Collection
}

func NewRepoMongo(database *mongo.Database) Repository {
	return &repoMongo{coll: database.Collection(docstore.VisitsCollection)}
}

// SumCharges runs the range aggregation pinned to the visit date index, so
// a missing index fails the query instead of falling back to a full scan.
func (r *repoMongo) SumCharges(ctx context.Context, startDate, endDate string) (float64, int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"visitDate": bson.M{"$gte": startDate, "$lte": endDate}}}},
		{{Key: "$group", Value: bson.M{
			"_id": nil,
			"total": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$isNumber": "$amountCharged"}, "$amountCharged", 0,
			}}},
			"count": bson.M{"$sum": 1},
		}}},
	}
	opts := options.Aggregate().SetHint(docstore.VisitDateIndex)

	cur, err := r.coll.Aggregate(ctx, pipeline, opts)
	if err != nil {
		if isBadHint(err) {
			return 0, 0, ErrIndexMissing
		}
		return 0, 0, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		Total float64 `bson:"total"`
		Count int64   `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return 0, 0, err
	}
	if len(rows) == 0 {
		return 0, 0, nil
	}
	return rows[0].Total, rows[0].Count, nil
}

// isBadHint reports the server's rejection of a hint naming no index.
func isBadHint(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return strings.Contains(strings.ToLower(cmdErr.Message), "hint")
	}
	return false
}
