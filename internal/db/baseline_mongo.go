package db

import (
	"context"
	"errors"
	"time"

	"github.com/ukydev/carmemo/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type baselineDocument struct {
	Key                     string `bson:"_id"`
	models.BaselineSchedule `bson:",inline"`
}

// MongoBaselineStore keeps one document per make_model_year key.
type MongoBaselineStore struct {
	Collection *mongo.Collection
}

func NewMongoBaselineStore(coll *mongo.Collection) *MongoBaselineStore {
	return &MongoBaselineStore{Collection: coll}
}

func (s *MongoBaselineStore) Get(ctx context.Context, key string) (*models.BaselineSchedule, bool, error) {
	if s.Collection == nil {
		return nil, false, ErrNilCollection
	}
	var doc baselineDocument
	err := s.Collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &doc.BaselineSchedule, true, nil
}

func (s *MongoBaselineStore) Set(ctx context.Context, key string, schedule models.BaselineSchedule) error {
	if s.Collection == nil {
		return ErrNilCollection
	}
	if schedule.UpdatedAt.IsZero() {
		schedule.UpdatedAt = time.Now().UTC()
	}
	_, err := s.Collection.ReplaceOne(ctx,
		bson.M{"_id": key},
		baselineDocument{Key: key, BaselineSchedule: schedule},
		options.Replace().SetUpsert(true),
	)
	return err
}

func (s *MongoBaselineStore) All(ctx context.Context) (map[string]models.BaselineSchedule, error) {
	if s.Collection == nil {
		return nil, ErrNilCollection
	}
	cursor, err := s.Collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []baselineDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make(map[string]models.BaselineSchedule, len(docs))
	for _, doc := range docs {
		out[doc.Key] = doc.BaselineSchedule
	}
	return out, nil
}

// Replace drops every stored baseline and writes the given set.
func (s *MongoBaselineStore) Replace(ctx context.Context, all map[string]models.BaselineSchedule) error {
	if s.Collection == nil {
		return ErrNilCollection
	}
	if _, err := s.Collection.DeleteMany(ctx, bson.M{}); err != nil {
		return err
	}
	if len(all) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(all))
	for key, schedule := range all {
		docs = append(docs, baselineDocument{Key: key, BaselineSchedule: schedule})
	}
	_, err := s.Collection.InsertMany(ctx, docs)
	return err
}
