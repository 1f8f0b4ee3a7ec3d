package repository

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"

	"calmatevibes-api/models"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NewMemoryStores returns map-backed repositories. They honour the same
// contracts as the database implementations and back the development
// driver and the unit tests.
func NewMemoryStores() Stores {
	return Stores{
		Products:   NewMemoryProductRepository(),
		Categories: NewMemoryCategoryRepository(),
		Movements:  NewMemoryMovementRepository(),
		Users:      NewMemoryUserRepository(),
	}
}

type MemoryProductRepository struct {
	mu       sync.RWMutex
	products map[primitive.ObjectID]models.Product
}

func NewMemoryProductRepository() *MemoryProductRepository {
	return &MemoryProductRepository{products: make(map[primitive.ObjectID]models.Product)}
}

func cloneProduct(p models.Product) models.Product {
	p.Tags = slices.Clone(p.Tags)
	p.Images = slices.Clone(p.Images)
	return p
}

func (r *MemoryProductRepository) FindByID(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	c := cloneProduct(p)
	return &c, nil
}

func (r *MemoryProductRepository) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.products[id]; ok {
			out = append(out, cloneProduct(p))
		}
	}
	return out, nil
}

func (r *MemoryProductRepository) FindActiveByName(_ context.Context, name string) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.products {
		if p.Active && p.Name == name {
			c := cloneProduct(p)
			return &c, nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *MemoryProductRepository) FindActiveCombosReferencing(_ context.Context, id primitive.ObjectID) ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.Product
	for _, p := range r.products {
		if !p.Active {
			continue
		}
		if refs, ok := p.ComboRefs(); ok && (refs.MateID == id || refs.BombillaID == id) {
			out = append(out, cloneProduct(p))
		}
	}
	slices.SortFunc(out, func(a, b models.Product) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (r *MemoryProductRepository) matching(filter ProductFilter) []models.Product {
	var out []models.Product
	for _, p := range r.products {
		if filter.Matches(p) {
			out = append(out, cloneProduct(p))
		}
	}
	return out
}

func (r *MemoryProductRepository) List(_ context.Context, filter ProductFilter) ([]models.Product, int64, error) {
	filter = filter.Normalized()
	r.mu.RLock()
	all := r.matching(filter)
	r.mu.RUnlock()

	sortProducts(all, filter.Sort)
	total := int64(len(all))
	start := min(filter.Offset(), len(all))
	end := min(start+filter.Limit, len(all))
	return all[start:end], total, nil
}

func sortProducts(ps []models.Product, key string) {
	slices.SortStableFunc(ps, func(a, b models.Product) int {
		switch key {
		case SortNameAsc:
			return strings.Compare(a.Name, b.Name)
		case SortNameDesc:
			return strings.Compare(b.Name, a.Name)
		case SortPriceAsc:
			return a.SalePrice.Cmp(b.SalePrice.Decimal)
		case SortPriceDesc:
			return b.SalePrice.Cmp(a.SalePrice.Decimal)
		case SortStockAsc:
			return cmp.Compare(a.Stock, b.Stock)
		case SortStockDesc:
			return cmp.Compare(b.Stock, a.Stock)
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}

func (r *MemoryProductRepository) Stats(_ context.Context, filter ProductFilter) (ProductStats, error) {
	r.mu.RLock()
	all := r.matching(filter.Normalized())
	r.mu.RUnlock()

	var stats ProductStats
	sum := decimal.Zero
	for _, p := range all {
		stats.TotalProducts++
		stats.StockTotal += int64(p.Stock)
		stats.InventoryValue = models.Money{Decimal: stats.InventoryValue.Add(p.PurchasePrice.MulInt(p.Stock).Decimal)}
		sum = sum.Add(p.SalePrice.Decimal)
	}
	if stats.TotalProducts > 0 {
		stats.AvgSalePrice = models.Money{Decimal: sum.Div(decimal.NewFromInt(stats.TotalProducts))}
	}
	return stats, nil
}

func (r *MemoryProductRepository) CountActiveByCategory(_ context.Context, category models.Category) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, p := range r.products {
		if p.Active && p.Category == category {
			n++
		}
	}
	return n, nil
}

func (r *MemoryProductRepository) Save(_ context.Context, p *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if p.Active {
		for id, other := range r.products {
			if id != p.ID && other.Active && other.Name == p.Name {
				return models.ErrNameTaken
			}
		}
	}
	r.products[p.ID] = cloneProduct(*p)
	return nil
}

func (r *MemoryProductRepository) SetActive(_ context.Context, id primitive.ObjectID, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return models.ErrNotFound
	}
	if active {
		for otherID, other := range r.products {
			if otherID != id && other.Active && other.Name == p.Name {
				return models.ErrNameTaken
			}
		}
	}
	p.Active = active
	r.products[id] = p
	return nil
}

func (r *MemoryProductRepository) UpdateStock(_ context.Context, id primitive.ObjectID, stock int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return models.ErrNotFound
	}
	p.Stock = stock
	r.products[id] = p
	return nil
}

type MemoryCategoryRepository struct {
	mu         sync.RWMutex
	categories map[models.Category]models.CategoryInfo
}

func NewMemoryCategoryRepository() *MemoryCategoryRepository {
	return &MemoryCategoryRepository{categories: make(map[models.Category]models.CategoryInfo)}
}

func (r *MemoryCategoryRepository) List(_ context.Context, includeInactive bool) ([]models.CategoryInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.CategoryInfo, 0, len(r.categories))
	for _, c := range r.categories {
		if c.Active || includeInactive {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b models.CategoryInfo) int {
		if n := cmp.Compare(a.Order, b.Order); n != 0 {
			return n
		}
		return strings.Compare(string(a.Name), string(b.Name))
	})
	return out, nil
}

func (r *MemoryCategoryRepository) FindByName(_ context.Context, name models.Category) (*models.CategoryInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.categories[name]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &c, nil
}

func (r *MemoryCategoryRepository) Insert(_ context.Context, c *models.CategoryInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.categories[c.Name]; exists {
		return models.ErrNameTaken
	}
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	r.categories[c.Name] = *c
	return nil
}

func (r *MemoryCategoryRepository) Update(_ context.Context, c *models.CategoryInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.categories[c.Name]; !exists {
		return models.ErrNotFound
	}
	r.categories[c.Name] = *c
	return nil
}

type MemoryMovementRepository struct {
	mu        sync.RWMutex
	movements []models.StockMovement
}

func NewMemoryMovementRepository() *MemoryMovementRepository {
	return &MemoryMovementRepository{}
}

func (r *MemoryMovementRepository) Insert(_ context.Context, m *models.StockMovement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	r.movements = append(r.movements, *m)
	return nil
}

func (r *MemoryMovementRepository) ListByProduct(_ context.Context, productID primitive.ObjectID, limit int) ([]models.StockMovement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.StockMovement
	for i := len(r.movements) - 1; i >= 0; i-- {
		if r.movements[i].ProductID != productID {
			continue
		}
		out = append(out, r.movements[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[primitive.ObjectID]models.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[primitive.ObjectID]models.User)}
}

func (r *MemoryUserRepository) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *MemoryUserRepository) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &u, nil
}

func (r *MemoryUserRepository) Insert(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, other := range r.users {
		if strings.EqualFold(other.Email, u.Email) {
			return models.ErrEmailTaken
		}
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	u.Email = strings.ToLower(u.Email)
	r.users[u.ID] = *u
	return nil
}
