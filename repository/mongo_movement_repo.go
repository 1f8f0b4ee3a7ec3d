package repository

import (
	"context"
	"fmt"

	"calmatevibes-api/database"
	"calmatevibes-api/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoMovementRepository struct {
	coll *mongo.Collection
}

func NewMongoMovementRepository(db *mongo.Database) *MongoMovementRepository {
	return &MongoMovementRepository{coll: db.Collection(database.MovementsCollection)}
}

func (r *MongoMovementRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "productId", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("movements indexes: %w", err)
	}
	return nil
}

func (r *MongoMovementRepository) Insert(ctx context.Context, m *models.StockMovement) error {
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	if _, err := r.coll.InsertOne(ctx, m); err != nil {
		return fmt.Errorf("movements: insert: %w", err)
	}
	return nil
}

func (r *MongoMovementRepository) ListByProduct(ctx context.Context, productID primitive.ObjectID, limit int) ([]models.StockMovement, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.coll.Find(ctx, bson.M{"productId": productID}, opts)
	if err != nil {
		return nil, fmt.Errorf("movements: list: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.StockMovement
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("movements: decode: %w", err)
	}
	return out, nil
}
