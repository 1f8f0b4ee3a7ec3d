package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"calmatevibes-api/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"gorm.io/gorm"
)

// NewGormStores builds every repository on top of one postgres connection.
func NewGormStores(db *gorm.DB) Stores {
	return Stores{
		Products:   NewGormProductRepository(db),
		Categories: NewGormCategoryRepository(db),
		Movements:  NewGormMovementRepository(db),
		Users:      NewGormUserRepository(db),
	}
}

// MigrateGorm creates or updates the tables, then applies the partial unique
// index on active names that struct tags cannot express.
func MigrateGorm(db *gorm.DB) error {
	if err := db.AutoMigrate(&productRow{}, &categoryRow{}, &movementRow{}, &userRow{}); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	patches := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS uniq_products_active_name ON products (name) WHERE active`,
	}
	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", sql, err)
		}
	}
	return nil
}

func parseHexID(s string) primitive.ObjectID {
	id, _ := primitive.ObjectIDFromHex(s)
	return id
}

type categoryRow struct {
	ID          string `gorm:"primaryKey;type:char(24)"`
	Name        string `gorm:"size:20;uniqueIndex;not null"`
	Description string `gorm:"size:200"`
	Active      bool   `gorm:"not null"`
	Order       int    `gorm:"column:sort_order;not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (categoryRow) TableName() string { return "categories" }

func (row categoryRow) toCategory() models.CategoryInfo {
	return models.CategoryInfo{
		ID:          parseHexID(row.ID),
		Name:        models.Category(row.Name),
		Description: row.Description,
		Active:      row.Active,
		Order:       row.Order,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

type GormCategoryRepository struct{ db *gorm.DB }

func NewGormCategoryRepository(db *gorm.DB) *GormCategoryRepository {
	return &GormCategoryRepository{db: db}
}

func (r *GormCategoryRepository) List(ctx context.Context, includeInactive bool) ([]models.CategoryInfo, error) {
	q := r.db.WithContext(ctx)
	if !includeInactive {
		q = q.Where("active = true")
	}
	var rows []categoryRow
	if err := q.Order("sort_order ASC, name ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("categories: list: %w", err)
	}
	out := make([]models.CategoryInfo, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toCategory())
	}
	return out, nil
}

func (r *GormCategoryRepository) FindByName(ctx context.Context, name models.Category) (*models.CategoryInfo, error) {
	var row categoryRow
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("categories: find %s: %w", name, err)
	}
	c := row.toCategory()
	return &c, nil
}

func (r *GormCategoryRepository) Insert(ctx context.Context, c *models.CategoryInfo) error {
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	row := categoryRow{
		ID:          c.ID.Hex(),
		Name:        string(c.Name),
		Description: c.Description,
		Active:      c.Active,
		Order:       c.Order,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
	err := r.db.WithContext(ctx).Create(&row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return models.ErrNameTaken
	}
	if err != nil {
		return fmt.Errorf("categories: insert %s: %w", c.Name, err)
	}
	return nil
}

func (r *GormCategoryRepository) Update(ctx context.Context, c *models.CategoryInfo) error {
	res := r.db.WithContext(ctx).Model(&categoryRow{}).
		Where("name = ?", c.Name).
		Updates(map[string]any{
			"description": c.Description,
			"active":      c.Active,
			"sort_order":  c.Order,
			"updated_at":  c.UpdatedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("categories: update %s: %w", c.Name, res.Error)
	}
	if res.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

type movementRow struct {
	ID        string `gorm:"primaryKey;type:char(24)"`
	ProductID string `gorm:"type:char(24);not null;index:idx_movements_product_created"`
	Operation string `gorm:"size:20;not null"`
	Quantity  int
	Previous  int
	New       int
	Reason    string    `gorm:"size:200"`
	CreatedAt time.Time `gorm:"index:idx_movements_product_created"`
}

func (movementRow) TableName() string { return "stock_movements" }

type GormMovementRepository struct{ db *gorm.DB }

func NewGormMovementRepository(db *gorm.DB) *GormMovementRepository {
	return &GormMovementRepository{db: db}
}

func (r *GormMovementRepository) Insert(ctx context.Context, m *models.StockMovement) error {
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	row := movementRow{
		ID:        m.ID.Hex(),
		ProductID: m.ProductID.Hex(),
		Operation: string(m.Operation),
		Quantity:  m.Quantity,
		Previous:  m.Previous,
		New:       m.New,
		Reason:    m.Reason,
		CreatedAt: m.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("movements: insert: %w", err)
	}
	return nil
}

func (r *GormMovementRepository) ListByProduct(ctx context.Context, productID primitive.ObjectID, limit int) ([]models.StockMovement, error) {
	q := r.db.WithContext(ctx).
		Where("product_id = ?", productID.Hex()).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []movementRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("movements: list: %w", err)
	}
	out := make([]models.StockMovement, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.StockMovement{
			ID:        parseHexID(row.ID),
			ProductID: parseHexID(row.ProductID),
			Operation: models.StockOperation(row.Operation),
			Quantity:  row.Quantity,
			Previous:  row.Previous,
			New:       row.New,
			Reason:    row.Reason,
			CreatedAt: row.CreatedAt,
		})
	}
	return out, nil
}

type userRow struct {
	ID        string `gorm:"primaryKey;type:char(24)"`
	Email     string `gorm:"size:200;uniqueIndex;not null"`
	Password  string `gorm:"not null"`
	Username  string `gorm:"size:100"`
	Theme     string `gorm:"size:20"`
	Language  string `gorm:"size:10"`
	CreatedAt time.Time
}

func (userRow) TableName() string { return "users" }

func (row userRow) toUser() *models.User {
	return &models.User{
		ID:        parseHexID(row.ID),
		Email:     row.Email,
		Password:  row.Password,
		Username:  row.Username,
		Theme:     row.Theme,
		Language:  row.Language,
		CreatedAt: row.CreatedAt,
	}
}

type GormUserRepository struct{ db *gorm.DB }

func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) findOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var row userRow
	err := r.db.WithContext(ctx).Where(query, arg).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("users: find: %w", err)
	}
	return row.toUser(), nil
}

func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "email = ?", strings.ToLower(email))
}

func (r *GormUserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, "id = ?", id.Hex())
}

func (r *GormUserRepository) Insert(ctx context.Context, u *models.User) error {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	u.Email = strings.ToLower(u.Email)
	row := userRow{
		ID:        u.ID.Hex(),
		Email:     u.Email,
		Password:  u.Password,
		Username:  u.Username,
		Theme:     u.Theme,
		Language:  u.Language,
		CreatedAt: u.CreatedAt,
	}
	err := r.db.WithContext(ctx).Create(&row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return models.ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("users: insert: %w", err)
	}
	return nil
}
