package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"calmatevibes-api/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// productRow is the postgres layout. The category payload lives in a jsonb
// column; combo references are duplicated into indexed columns so the
// dependents of a mate or bombilla can be found without scanning json.
type productRow struct {
	ID            string         `gorm:"primaryKey;type:char(24)"`
	Name          string         `gorm:"size:100;not null"`
	Slug          string         `gorm:"size:120;index"`
	Category      string         `gorm:"size:20;not null;index:idx_products_category_active"`
	Attributes    datatypes.JSON `gorm:"type:jsonb"`
	MateID        *string        `gorm:"type:char(24);index"`
	BombillaID    *string        `gorm:"type:char(24);index"`
	Stock         int            `gorm:"not null"`
	PurchasePrice models.Money   `gorm:"type:numeric(12,2);not null"`
	SalePrice     models.Money   `gorm:"type:numeric(12,2);not null"`
	Active        bool           `gorm:"not null;index:idx_products_category_active"`
	Description   string         `gorm:"size:500"`
	Tags          datatypes.JSON `gorm:"type:jsonb"`
	Images        datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (productRow) TableName() string { return "products" }

func toProductRow(p *models.Product) (productRow, error) {
	row := productRow{
		ID:            p.ID.Hex(),
		Name:          p.Name,
		Slug:          p.Slug,
		Category:      string(p.Category),
		Stock:         p.Stock,
		PurchasePrice: p.PurchasePrice,
		SalePrice:     p.SalePrice,
		Active:        p.Active,
		Description:   p.Description,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	attrs, err := json.Marshal(p.Attributes)
	if err != nil {
		return row, fmt.Errorf("marshal attributes: %w", err)
	}
	row.Attributes = attrs
	if refs, ok := p.ComboRefs(); ok {
		mate, bombilla := refs.MateID.Hex(), refs.BombillaID.Hex()
		row.MateID, row.BombillaID = &mate, &bombilla
	}
	if row.Tags, err = json.Marshal(p.Tags); err != nil {
		return row, fmt.Errorf("marshal tags: %w", err)
	}
	if row.Images, err = json.Marshal(p.Images); err != nil {
		return row, fmt.Errorf("marshal images: %w", err)
	}
	return row, nil
}

func (row productRow) toProduct() (models.Product, error) {
	id, err := primitive.ObjectIDFromHex(row.ID)
	if err != nil {
		return models.Product{}, fmt.Errorf("product id %q: %w", row.ID, err)
	}
	p := models.Product{
		ID:            id,
		Name:          row.Name,
		Slug:          row.Slug,
		Category:      models.Category(row.Category),
		Stock:         row.Stock,
		PurchasePrice: row.PurchasePrice,
		SalePrice:     row.SalePrice,
		Active:        row.Active,
		Description:   row.Description,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
	if p.Attributes, err = decodeAttributes(p.Category, row.Attributes); err != nil {
		return p, fmt.Errorf("product %s: %w", row.ID, err)
	}
	if len(row.Tags) > 0 {
		if err := json.Unmarshal(row.Tags, &p.Tags); err != nil {
			return p, fmt.Errorf("product %s tags: %w", row.ID, err)
		}
	}
	if len(row.Images) > 0 {
		if err := json.Unmarshal(row.Images, &p.Images); err != nil {
			return p, fmt.Errorf("product %s images: %w", row.ID, err)
		}
	}
	return p, nil
}

func decodeAttributes(category models.Category, raw datatypes.JSON) (models.Attributes, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	switch category {
	case models.CategoryMate:
		var a models.MateAttributes
		err := json.Unmarshal(raw, &a)
		return a, err
	case models.CategoryBombilla:
		var a models.BombillaAttributes
		err := json.Unmarshal(raw, &a)
		return a, err
	case models.CategoryCombo:
		var a models.ComboRefs
		err := json.Unmarshal(raw, &a)
		return a, err
	}
	return nil, fmt.Errorf("unknown category %q", category)
}

func toProducts(rows []productRow) ([]models.Product, error) {
	out := make([]models.Product, 0, len(rows))
	for _, row := range rows {
		p, err := row.toProduct()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

type GormProductRepository struct{ db *gorm.DB }

func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

func (r *GormProductRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	var row productRow
	err := r.db.WithContext(ctx).Where("id = ?", id.Hex()).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("products: find %s: %w", id.Hex(), err)
	}
	p, err := row.toProduct()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormProductRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	hexes := make([]string, 0, len(ids))
	for _, id := range ids {
		hexes = append(hexes, id.Hex())
	}
	var rows []productRow
	if err := r.db.WithContext(ctx).Where("id IN ?", hexes).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("products: find by ids: %w", err)
	}
	return toProducts(rows)
}

func (r *GormProductRepository) FindActiveByName(ctx context.Context, name string) (*models.Product, error) {
	var row productRow
	err := r.db.WithContext(ctx).Where("name = ? AND active = true", name).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("products: find by name: %w", err)
	}
	p, err := row.toProduct()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormProductRepository) FindActiveCombosReferencing(ctx context.Context, id primitive.ObjectID) ([]models.Product, error) {
	var rows []productRow
	err := r.db.WithContext(ctx).
		Where("category = ? AND active = true AND (mate_id = ? OR bombilla_id = ?)", models.CategoryCombo, id.Hex(), id.Hex()).
		Order("name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("products: combos referencing %s: %w", id.Hex(), err)
	}
	return toProducts(rows)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *GormProductRepository) query(ctx context.Context, f ProductFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&productRow{})
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if !f.IncludeInactive {
		q = q.Where("active = true")
	}
	if f.PriceMin != nil {
		q = q.Where("sale_price >= ?", f.PriceMin.Decimal)
	}
	if f.PriceMax != nil {
		q = q.Where("sale_price <= ?", f.PriceMax.Decimal)
	}
	switch f.Stock {
	case InStock:
		q = q.Where("stock > 0")
	case NoStock:
		q = q.Where("stock = 0")
	}
	if f.Search != "" {
		pattern := "%" + likeEscaper.Replace(f.Search) + "%"
		q = q.Where("name ILIKE ? OR description ILIKE ? OR tags::text ILIKE ?", pattern, pattern, pattern)
	}
	return q
}

func productOrder(key string) string {
	switch key {
	case SortNameAsc:
		return "name ASC"
	case SortNameDesc:
		return "name DESC"
	case SortPriceAsc:
		return "sale_price ASC, id ASC"
	case SortPriceDesc:
		return "sale_price DESC, id ASC"
	case SortStockAsc:
		return "stock ASC, id ASC"
	case SortStockDesc:
		return "stock DESC, id ASC"
	}
	return "created_at DESC, id DESC"
}

func (r *GormProductRepository) List(ctx context.Context, filter ProductFilter) ([]models.Product, int64, error) {
	filter = filter.Normalized()

	var total int64
	if err := r.query(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("products: count: %w", err)
	}

	var rows []productRow
	err := r.query(ctx, filter).
		Order(productOrder(filter.Sort)).
		Limit(filter.Limit).
		Offset(filter.Offset()).
		Find(&rows).Error
	if err != nil {
		return nil, 0, fmt.Errorf("products: list: %w", err)
	}
	out, err := toProducts(rows)
	return out, total, err
}

func (r *GormProductRepository) Stats(ctx context.Context, filter ProductFilter) (ProductStats, error) {
	var row struct {
		TotalProducts  int64
		StockTotal     int64
		InventoryValue models.Money
		AvgSalePrice   models.Money
	}
	err := r.query(ctx, filter.Normalized()).
		Select(`COUNT(*) AS total_products,
			COALESCE(SUM(stock), 0) AS stock_total,
			COALESCE(SUM(stock * purchase_price), 0) AS inventory_value,
			COALESCE(ROUND(AVG(sale_price), 2), 0) AS avg_sale_price`).
		Scan(&row).Error
	if err != nil {
		return ProductStats{}, fmt.Errorf("products: stats: %w", err)
	}
	return ProductStats{
		TotalProducts:  row.TotalProducts,
		StockTotal:     row.StockTotal,
		InventoryValue: row.InventoryValue,
		AvgSalePrice:   row.AvgSalePrice,
	}, nil
}

func (r *GormProductRepository) CountActiveByCategory(ctx context.Context, category models.Category) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&productRow{}).
		Where("category = ? AND active = true", category).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("products: count %s: %w", category, err)
	}
	return n, nil
}

func (r *GormProductRepository) Save(ctx context.Context, p *models.Product) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	row, err := toProductRow(p)
	if err != nil {
		return err
	}
	err = r.db.WithContext(ctx).Save(&row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return models.ErrNameTaken
	}
	if err != nil {
		return fmt.Errorf("products: save %s: %w", row.ID, err)
	}
	return nil
}

func (r *GormProductRepository) SetActive(ctx context.Context, id primitive.ObjectID, active bool) error {
	res := r.db.WithContext(ctx).Model(&productRow{}).
		Where("id = ?", id.Hex()).
		Updates(map[string]any{"active": active, "updated_at": time.Now().UTC()})
	if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
		return models.ErrNameTaken
	}
	if res.Error != nil {
		return fmt.Errorf("products: set active %s: %w", id.Hex(), res.Error)
	}
	if res.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *GormProductRepository) UpdateStock(ctx context.Context, id primitive.ObjectID, stock int) error {
	res := r.db.WithContext(ctx).Model(&productRow{}).
		Where("id = ?", id.Hex()).
		Updates(map[string]any{"stock": stock, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return fmt.Errorf("products: update stock %s: %w", id.Hex(), res.Error)
	}
	if res.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}
