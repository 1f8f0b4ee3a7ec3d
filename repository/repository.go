// Package repository holds the persistence contracts of the catalog and
// their MongoDB, Postgres (gorm) and in-memory implementations.
package repository

import (
	"context"
	"slices"
	"strings"

	"calmatevibes-api/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// Sort keys accepted by ProductFilter.Sort. Empty means newest first.
const (
	SortNameAsc   = "name_asc"
	SortNameDesc  = "name_desc"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortStockAsc  = "stock_asc"
	SortStockDesc = "stock_desc"
)

type StockFilter string

const (
	StockAny StockFilter = ""
	InStock  StockFilter = "in"
	NoStock  StockFilter = "out"
)

type ProductFilter struct {
	Category        models.Category
	IncludeInactive bool
	PriceMin        *models.Money
	PriceMax        *models.Money
	Stock           StockFilter
	Search          string
	Sort            string
	Page            int
	Limit           int
}

// Normalized clamps paging to sane bounds.
func (f ProductFilter) Normalized() ProductFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageLimit
	}
	if f.Limit > MaxPageLimit {
		f.Limit = MaxPageLimit
	}
	f.Search = strings.TrimSpace(f.Search)
	return f
}

func (f ProductFilter) Offset() int { return (f.Page - 1) * f.Limit }

// Matches applies the filter to a single product. Used by the in-memory store.
func (f ProductFilter) Matches(p models.Product) bool {
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if !f.IncludeInactive && !p.Active {
		return false
	}
	if f.PriceMin != nil && p.SalePrice.LessThan(f.PriceMin.Decimal) {
		return false
	}
	if f.PriceMax != nil && p.SalePrice.GreaterThan(f.PriceMax.Decimal) {
		return false
	}
	switch f.Stock {
	case InStock:
		if p.Stock <= 0 {
			return false
		}
	case NoStock:
		if p.Stock != 0 {
			return false
		}
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		hit := strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(p.Description), q) ||
			slices.ContainsFunc(p.Tags, func(t string) bool { return strings.Contains(strings.ToLower(t), q) })
		if !hit {
			return false
		}
	}
	return true
}

type ProductStats struct {
	TotalProducts  int64        `json:"totalProducts"`
	StockTotal     int64        `json:"stockTotal"`
	InventoryValue models.Money `json:"inventoryValue"`
	AvgSalePrice   models.Money `json:"avgSalePrice"`
}

// ProductRepository persists products. Lookups that miss return
// models.ErrNotFound; saving a second active product with the same name
// returns models.ErrNameTaken.
type ProductRepository interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Product, error)
	FindActiveByName(ctx context.Context, name string) (*models.Product, error)
	FindActiveCombosReferencing(ctx context.Context, id primitive.ObjectID) ([]models.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]models.Product, int64, error)
	Stats(ctx context.Context, filter ProductFilter) (ProductStats, error)
	CountActiveByCategory(ctx context.Context, category models.Category) (int64, error)
	Save(ctx context.Context, p *models.Product) error
	SetActive(ctx context.Context, id primitive.ObjectID, active bool) error
	UpdateStock(ctx context.Context, id primitive.ObjectID, stock int) error
}

type CategoryRepository interface {
	List(ctx context.Context, includeInactive bool) ([]models.CategoryInfo, error)
	FindByName(ctx context.Context, name models.Category) (*models.CategoryInfo, error)
	Insert(ctx context.Context, c *models.CategoryInfo) error
	Update(ctx context.Context, c *models.CategoryInfo) error
}

type MovementRepository interface {
	Insert(ctx context.Context, m *models.StockMovement) error
	ListByProduct(ctx context.Context, productID primitive.ObjectID, limit int) ([]models.StockMovement, error)
}

type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	Insert(ctx context.Context, u *models.User) error
}

// Stores bundles one implementation of every repository.
type Stores struct {
	Products   ProductRepository
	Categories CategoryRepository
	Movements  MovementRepository
	Users      UserRepository
}
