package db

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const maxUnmappedSamples = 20

// MongoTaxonomyLog aggregates unmapped category strings by normalized form
// so the canonical list can be extended from real traffic.
type MongoTaxonomyLog struct {
	Collection *mongo.Collection
}

func NewMongoTaxonomyLog(coll *mongo.Collection) *MongoTaxonomyLog {
	return &MongoTaxonomyLog{Collection: coll}
}

func (l *MongoTaxonomyLog) RecordUnmapped(ctx context.Context, raw, normalized string, seenAt time.Time) error {
	if l.Collection == nil {
		return ErrNilCollection
	}
	if normalized == "" {
		return nil
	}
	update := bson.M{
		"$inc":         bson.M{"count": 1},
		"$set":         bson.M{"last_seen": seenAt},
		"$setOnInsert": bson.M{"first_seen": seenAt},
		"$push": bson.M{"samples": bson.M{
			"$each":  bson.A{raw},
			"$slice": -maxUnmappedSamples,
		}},
	}
	_, err := l.Collection.UpdateOne(ctx, bson.M{"_id": normalized}, update, options.Update().SetUpsert(true))
	return err
}
