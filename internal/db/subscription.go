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

var ErrMissingEndpoint = errors.New("subscription endpoint is required")

// MongoSubscriptionCollection stores Web Push subscriptions keyed by endpoint.
type MongoSubscriptionCollection struct {
	Collection *mongo.Collection
}

func NewMongoSubscriptionCollection(coll *mongo.Collection) *MongoSubscriptionCollection {
	return &MongoSubscriptionCollection{Collection: coll}
}

// EnsureSubscriptionIndexes makes endpoints unique.
func EnsureSubscriptionIndexes(ctx context.Context, coll *mongo.Collection) error {
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "endpoint", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// SaveSubscription upserts by endpoint, so re-subscribing refreshes keys.
func (c *MongoSubscriptionCollection) SaveSubscription(ctx context.Context, sub models.PushSubscription) error {
	if c.Collection == nil {
		return ErrNilCollection
	}
	if sub.Endpoint == "" {
		return ErrMissingEndpoint
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}
	update := bson.M{
		"$set": bson.M{
			"keys":        sub.Keys,
			"vehicle_ids": sub.VehicleIDs,
		},
		"$setOnInsert": bson.M{
			"endpoint":   sub.Endpoint,
			"created_at": sub.CreatedAt,
		},
	}
	_, err := c.Collection.UpdateOne(ctx, bson.M{"endpoint": sub.Endpoint}, update, options.Update().SetUpsert(true))
	return err
}

func (c *MongoSubscriptionCollection) DeleteSubscription(ctx context.Context, endpoint string) error {
	if c.Collection == nil {
		return ErrNilCollection
	}
	_, err := c.Collection.DeleteOne(ctx, bson.M{"endpoint": endpoint})
	return err
}

func (c *MongoSubscriptionCollection) ListSubscriptions(ctx context.Context) ([]models.PushSubscription, error) {
	if c.Collection == nil {
		return nil, ErrNilCollection
	}
	cursor, err := c.Collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var subs []models.PushSubscription
	if err := cursor.All(ctx, &subs); err != nil {
		return nil, err
	}
	return subs, nil
}
