package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"calmatevibes-api/database"
	"calmatevibes-api/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NewMongoStores builds every repository on top of one database.
func NewMongoStores(db *mongo.Database) Stores {
	return Stores{
		Products:   NewMongoProductRepository(db),
		Categories: NewMongoCategoryRepository(db),
		Movements:  NewMongoMovementRepository(db),
		Users:      NewMongoUserRepository(db),
	}
}

// EnsureMongoIndexes creates the indexes of every collection. It is safe to
// run on every start.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	steps := []interface{ EnsureIndexes(context.Context) error }{
		NewMongoProductRepository(db),
		NewMongoCategoryRepository(db),
		NewMongoMovementRepository(db),
		NewMongoUserRepository(db),
	}
	for _, s := range steps {
		if err := s.EnsureIndexes(ctx); err != nil {
			return err
		}
	}
	return nil
}

// productDocument keeps the layout of the original collection: one
// sub-document per category, only the one matching the category is set.
type productDocument struct {
	ID            primitive.ObjectID         `bson:"_id"`
	Name          string                     `bson:"name"`
	Slug          string                     `bson:"slug"`
	Category      models.Category            `bson:"category"`
	Mate          *models.MateAttributes     `bson:"mate,omitempty"`
	Bombilla      *models.BombillaAttributes `bson:"bombilla,omitempty"`
	Combo         *models.ComboRefs          `bson:"combo,omitempty"`
	Stock         int                        `bson:"stock"`
	PurchasePrice models.Money               `bson:"purchasePrice"`
	SalePrice     models.Money               `bson:"salePrice"`
	Active        bool                       `bson:"active"`
	Description   string                     `bson:"description,omitempty"`
	Tags          []string                   `bson:"tags,omitempty"`
	Images        []models.Image             `bson:"images,omitempty"`
	CreatedAt     time.Time                  `bson:"createdAt"`
	UpdatedAt     time.Time                  `bson:"updatedAt"`
}

func toProductDocument(p *models.Product) productDocument {
	doc := productDocument{
		ID:            p.ID,
		Name:          p.Name,
		Slug:          p.Slug,
		Category:      p.Category,
		Stock:         p.Stock,
		PurchasePrice: p.PurchasePrice,
		SalePrice:     p.SalePrice,
		Active:        p.Active,
		Description:   p.Description,
		Tags:          p.Tags,
		Images:        p.Images,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	switch a := p.Attributes.(type) {
	case models.MateAttributes:
		doc.Mate = &a
	case models.BombillaAttributes:
		doc.Bombilla = &a
	case models.ComboRefs:
		doc.Combo = &a
	}
	return doc
}

func (d productDocument) toProduct() models.Product {
	p := models.Product{
		ID:            d.ID,
		Name:          d.Name,
		Slug:          d.Slug,
		Category:      d.Category,
		Stock:         d.Stock,
		PurchasePrice: d.PurchasePrice,
		SalePrice:     d.SalePrice,
		Active:        d.Active,
		Description:   d.Description,
		Tags:          d.Tags,
		Images:        d.Images,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
	// Stray sub-documents of other categories are ignored.
	switch d.Category {
	case models.CategoryMate:
		if d.Mate != nil {
			p.Attributes = *d.Mate
		}
	case models.CategoryBombilla:
		if d.Bombilla != nil {
			p.Attributes = *d.Bombilla
		}
	case models.CategoryCombo:
		if d.Combo != nil {
			p.Attributes = *d.Combo
		}
	}
	return p
}

type MongoProductRepository struct {
	coll *mongo.Collection
}

func NewMongoProductRepository(db *mongo.Database) *MongoProductRepository {
	return &MongoProductRepository{coll: db.Collection(database.ProductsCollection)}
}

func (r *MongoProductRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "active", Value: 1}}},
		{Keys: bson.D{{Key: "combo.mateId", Value: 1}}},
		{Keys: bson.D{{Key: "combo.bombillaId", Value: 1}}},
		{Keys: bson.D{{Key: "slug", Value: 1}}},
		{
			Keys: bson.D{{Key: "name", Value: 1}},
			Options: options.Index().
				SetName("uniq_active_name").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"active": true}),
		},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("products indexes: %w", err)
	}
	return nil
}

func (r *MongoProductRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	var doc productDocument
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("products: find %s: %w", id.Hex(), err)
	}
	p := doc.toProduct()
	return &p, nil
}

func (r *MongoProductRepository) find(ctx context.Context, filter any, opts ...*options.FindOptions) ([]models.Product, error) {
	cursor, err := r.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []productDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]models.Product, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toProduct())
	}
	return out, nil
}

func (r *MongoProductRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	out, err := r.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("products: find by ids: %w", err)
	}
	return out, nil
}

func (r *MongoProductRepository) FindActiveByName(ctx context.Context, name string) (*models.Product, error) {
	var doc productDocument
	err := r.coll.FindOne(ctx, bson.M{"name": name, "active": true}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("products: find by name: %w", err)
	}
	p := doc.toProduct()
	return &p, nil
}

func (r *MongoProductRepository) FindActiveCombosReferencing(ctx context.Context, id primitive.ObjectID) ([]models.Product, error) {
	filter := bson.M{
		"category": models.CategoryCombo,
		"active":   true,
		"$or": bson.A{
			bson.M{"combo.mateId": id},
			bson.M{"combo.bombillaId": id},
		},
	}
	out, err := r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("products: combos referencing %s: %w", id.Hex(), err)
	}
	return out, nil
}

func productQuery(f ProductFilter) bson.M {
	q := bson.M{}
	if f.Category != "" {
		q["category"] = f.Category
	}
	if !f.IncludeInactive {
		q["active"] = true
	}
	price := bson.M{}
	if f.PriceMin != nil {
		price["$gte"] = *f.PriceMin
	}
	if f.PriceMax != nil {
		price["$lte"] = *f.PriceMax
	}
	if len(price) > 0 {
		q["salePrice"] = price
	}
	switch f.Stock {
	case InStock:
		q["stock"] = bson.M{"$gt": 0}
	case NoStock:
		q["stock"] = 0
	}
	if f.Search != "" {
		rx := primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
		q["$or"] = bson.A{
			bson.M{"name": rx},
			bson.M{"description": rx},
			bson.M{"tags": rx},
		}
	}
	return q
}

func productSort(key string) bson.D {
	switch key {
	case SortNameAsc:
		return bson.D{{Key: "name", Value: 1}}
	case SortNameDesc:
		return bson.D{{Key: "name", Value: -1}}
	case SortPriceAsc:
		return bson.D{{Key: "salePrice", Value: 1}, {Key: "_id", Value: 1}}
	case SortPriceDesc:
		return bson.D{{Key: "salePrice", Value: -1}, {Key: "_id", Value: 1}}
	case SortStockAsc:
		return bson.D{{Key: "stock", Value: 1}, {Key: "_id", Value: 1}}
	case SortStockDesc:
		return bson.D{{Key: "stock", Value: -1}, {Key: "_id", Value: 1}}
	}
	return bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}
}

func (r *MongoProductRepository) List(ctx context.Context, filter ProductFilter) ([]models.Product, int64, error) {
	filter = filter.Normalized()
	q := productQuery(filter)

	total, err := r.coll.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, fmt.Errorf("products: count: %w", err)
	}

	opts := options.Find().
		SetSort(productSort(filter.Sort)).
		SetSkip(int64(filter.Offset())).
		SetLimit(int64(filter.Limit))
	out, err := r.find(ctx, q, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("products: list: %w", err)
	}
	return out, total, nil
}

func (r *MongoProductRepository) Stats(ctx context.Context, filter ProductFilter) (ProductStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: productQuery(filter.Normalized())}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "totalProducts", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "stockTotal", Value: bson.D{{Key: "$sum", Value: "$stock"}}},
			{Key: "inventoryValue", Value: bson.D{{Key: "$sum", Value: bson.D{
				{Key: "$multiply", Value: bson.A{"$stock", bson.D{{Key: "$ifNull", Value: bson.A{"$purchasePrice", 0}}}}},
			}}}},
			{Key: "avgSalePrice", Value: bson.D{{Key: "$avg", Value: "$salePrice"}}},
		}}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return ProductStats{}, fmt.Errorf("products: stats: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		TotalProducts  int64        `bson:"totalProducts"`
		StockTotal     int64        `bson:"stockTotal"`
		InventoryValue models.Money `bson:"inventoryValue"`
		AvgSalePrice   models.Money `bson:"avgSalePrice"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return ProductStats{}, fmt.Errorf("products: decode stats: %w", err)
	}
	if len(rows) == 0 {
		return ProductStats{}, nil
	}
	row := rows[0]
	return ProductStats{
		TotalProducts:  row.TotalProducts,
		StockTotal:     row.StockTotal,
		InventoryValue: row.InventoryValue,
		AvgSalePrice:   models.Money{Decimal: row.AvgSalePrice.Round(2)},
	}, nil
}

func (r *MongoProductRepository) CountActiveByCategory(ctx context.Context, category models.Category) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"category": category, "active": true})
	if err != nil {
		return 0, fmt.Errorf("products: count %s: %w", category, err)
	}
	return n, nil
}

func (r *MongoProductRepository) Save(ctx context.Context, p *models.Product) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	doc := toProductDocument(p)
	_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": p.ID}, doc, options.Replace().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		return models.ErrNameTaken
	}
	if err != nil {
		return fmt.Errorf("products: save %s: %w", p.ID.Hex(), err)
	}
	return nil
}

func (r *MongoProductRepository) SetActive(ctx context.Context, id primitive.ObjectID, active bool) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"active": active, "updatedAt": time.Now().UTC()}},
	)
	if mongo.IsDuplicateKeyError(err) {
		return models.ErrNameTaken
	}
	if err != nil {
		return fmt.Errorf("products: set active %s: %w", id.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *MongoProductRepository) UpdateStock(ctx context.Context, id primitive.ObjectID, stock int) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"stock": stock, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("products: update stock %s: %w", id.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}
