package repository

import (
	"context"
	"errors"
	"fmt"

	"calmatevibes-api/database"
	"calmatevibes-api/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoCategoryRepository struct {
	coll *mongo.Collection
}

func NewMongoCategoryRepository(db *mongo.Database) *MongoCategoryRepository {
	return &MongoCategoryRepository{coll: db.Collection(database.CategoriesCollection)}
}

func (r *MongoCategoryRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("categories indexes: %w", err)
	}
	return nil
}

func (r *MongoCategoryRepository) List(ctx context.Context, includeInactive bool) ([]models.CategoryInfo, error) {
	filter := bson.M{}
	if !includeInactive {
		filter["active"] = true
	}
	opts := options.Find().SetSort(bson.D{{Key: "order", Value: 1}, {Key: "name", Value: 1}})

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("categories: list: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.CategoryInfo
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("categories: decode: %w", err)
	}
	return out, nil
}

func (r *MongoCategoryRepository) FindByName(ctx context.Context, name models.Category) (*models.CategoryInfo, error) {
	var c models.CategoryInfo
	err := r.coll.FindOne(ctx, bson.M{"name": name}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("categories: find %s: %w", name, err)
	}
	return &c, nil
}

func (r *MongoCategoryRepository) Insert(ctx context.Context, c *models.CategoryInfo) error {
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, c)
	if mongo.IsDuplicateKeyError(err) {
		return models.ErrNameTaken
	}
	if err != nil {
		return fmt.Errorf("categories: insert %s: %w", c.Name, err)
	}
	return nil
}

func (r *MongoCategoryRepository) Update(ctx context.Context, c *models.CategoryInfo) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"name": c.Name},
		bson.M{"$set": bson.M{
			"description": c.Description,
			"active":      c.Active,
			"order":       c.Order,
			"updatedAt":   c.UpdatedAt,
		}},
	)
	if err != nil {
		return fmt.Errorf("categories: update %s: %w", c.Name, err)
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}
