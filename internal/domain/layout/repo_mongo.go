package layout

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/clinicnotes/clinicnotes/internal/platform/docstore"
)

type repoMongo struct {
	coll *mongo.Collection
}

func NewRepoMongo(database *mongo.Database) Repository {
	return &repoMongo{coll: database.Collection(docstore.SettingsCollection)}
}

type settingDoc struct {
	ID        string                 `bson:"_id"`
	Config    map[string]interface{} `bson:"config"`
	UpdatedAt time.Time              `bson:"updatedAt"`
}

func (r *repoMongo) Save(ctx context.Context, cfg Config) error {
	doc := settingDoc{ID: DocumentName, Config: cfg, UpdatedAt: time.Now().UTC()}
	_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": DocumentName}, doc, options.Replace().SetUpsert(true))
	return err
}

func (r *repoMongo) Load(ctx context.Context) (Config, error) {
	var doc settingDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": DocumentName}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return Config(doc.Config), nil
}
