package repository

import (
	"context"
	"testing"
	"time"

	"calmatevibes-api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// The suites below run against every ProductRepository, CategoryRepository,
// MovementRepository and UserRepository implementation.

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func price(v float64) models.Money { return models.NewMoney(v) }

func seedProduct(t *testing.T, repo ProductRepository, p models.Product) models.Product {
	t.Helper()
	if p.Slug == "" {
		p.Slug = models.Slugify(p.Name)
	}
	require.NoError(t, repo.Save(context.Background(), &p))
	require.False(t, p.ID.IsZero())
	return p
}

func mate(name string, stock int, sale float64, age int) models.Product {
	return models.Product{
		Name:          name,
		Category:      models.CategoryMate,
		Attributes:    models.MateAttributes{Shape: "Imperial", Gourd: "Calabaza", TopWidth: "Ancho", BottomWidth: "Medio"},
		Stock:         stock,
		PurchasePrice: price(sale / 2),
		SalePrice:     price(sale),
		Active:        true,
		Tags:          []string{"calabaza"},
		CreatedAt:     base.Add(time.Duration(age) * time.Hour),
		UpdatedAt:     base,
	}
}

func bombilla(name string, stock int) models.Product {
	return models.Product{
		Name:          name,
		Category:      models.CategoryBombilla,
		Attributes:    models.BombillaAttributes{Shape: "Recta", Material: "Alpaca", Size: "Larga"},
		Stock:         stock,
		PurchasePrice: price(1000),
		SalePrice:     price(2000),
		Active:        true,
		CreatedAt:     base,
		UpdatedAt:     base,
	}
}

func comboOf(name string, m, b primitive.ObjectID, stock int) models.Product {
	return models.Product{
		Name:       name,
		Category:   models.CategoryCombo,
		Attributes: models.ComboRefs{MateID: m, BombillaID: b},
		Stock:      stock,
		SalePrice:  price(9000),
		Active:     true,
		CreatedAt:  base,
		UpdatedAt:  base,
	}
}

func names(ps []models.Product) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Name)
	}
	return out
}

func runProductRepositorySuite(t *testing.T, newRepo func(t *testing.T) ProductRepository) {
	ctx := context.Background()

	t.Run("round trip keeps the attributes variant", func(t *testing.T) {
		repo := newRepo(t)
		m := seedProduct(t, repo, mate("Mate Imperial", 4, 10000, 0))
		b := seedProduct(t, repo, bombilla("Bombilla Recta", 2))
		c := seedProduct(t, repo, comboOf("Combo", m.ID, b.ID, 2))

		got, err := repo.FindByID(ctx, m.ID)
		require.NoError(t, err)
		assert.Equal(t, m.Attributes, got.Attributes)
		assert.Equal(t, "10000", got.SalePrice.String())
		assert.Equal(t, []string{"calabaza"}, got.Tags)

		got, err = repo.FindByID(ctx, c.ID)
		require.NoError(t, err)
		refs, ok := got.ComboRefs()
		require.True(t, ok)
		assert.Equal(t, m.ID, refs.MateID)
		assert.Equal(t, b.ID, refs.BombillaID)

		_, err = repo.FindByID(ctx, primitive.NewObjectID())
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("batch lookup returns what exists", func(t *testing.T) {
		repo := newRepo(t)
		m := seedProduct(t, repo, mate("Mate A", 1, 100, 0))
		b := seedProduct(t, repo, bombilla("Bombilla A", 1))

		got, err := repo.FindByIDs(ctx, []primitive.ObjectID{m.ID, b.ID, primitive.NewObjectID()})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"Mate A", "Bombilla A"}, names(got))

		got, err = repo.FindByIDs(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("active name is unique", func(t *testing.T) {
		repo := newRepo(t)
		first := seedProduct(t, repo, mate("Mate Único", 1, 100, 0))

		dup := mate("Mate Único", 2, 100, 1)
		assert.ErrorIs(t, repo.Save(ctx, &dup), models.ErrNameTaken)

		require.NoError(t, repo.SetActive(ctx, first.ID, false))
		second := seedProduct(t, repo, mate("Mate Único", 2, 100, 1))

		assert.ErrorIs(t, repo.SetActive(ctx, first.ID, true), models.ErrNameTaken)

		got, err := repo.FindActiveByName(ctx, "Mate Único")
		require.NoError(t, err)
		assert.Equal(t, second.ID, got.ID)

		assert.ErrorIs(t, repo.SetActive(ctx, primitive.NewObjectID(), false), models.ErrNotFound)
	})

	t.Run("combos referencing a component", func(t *testing.T) {
		repo := newRepo(t)
		m := seedProduct(t, repo, mate("Mate", 3, 100, 0))
		b1 := seedProduct(t, repo, bombilla("Bombilla 1", 3))
		b2 := seedProduct(t, repo, bombilla("Bombilla 2", 3))
		seedProduct(t, repo, comboOf("Combo 1", m.ID, b1.ID, 3))
		seedProduct(t, repo, comboOf("Combo 2", m.ID, b2.ID, 3))
		inactive := comboOf("Combo viejo", m.ID, b1.ID, 3)
		inactive.Active = false
		seedProduct(t, repo, inactive)

		got, err := repo.FindActiveCombosReferencing(ctx, m.ID)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"Combo 1", "Combo 2"}, names(got))

		got, err = repo.FindActiveCombosReferencing(ctx, b2.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"Combo 2"}, names(got))
	})

	t.Run("list filters, sorts and pages", func(t *testing.T) {
		repo := newRepo(t)
		seedProduct(t, repo, mate("Mate Camionero", 0, 5000, 0))
		seedProduct(t, repo, mate("Mate Torpedo", 8, 12000, 1))
		seedProduct(t, repo, mate("Mate Imperial", 3, 9000, 2))
		seedProduct(t, repo, bombilla("Bombilla Pico", 5))
		old := mate("Mate Retirado", 9, 1000, 3)
		old.Active = false
		seedProduct(t, repo, old)

		page, total, err := repo.List(ctx, ProductFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
		assert.Equal(t, "Mate Imperial", page[0].Name, "newest first by default")

		page, total, err = repo.List(ctx, ProductFilter{Category: models.CategoryMate, Sort: SortPriceDesc, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Equal(t, []string{"Mate Torpedo", "Mate Imperial"}, names(page))

		page, _, err = repo.List(ctx, ProductFilter{Category: models.CategoryMate, Sort: SortPriceDesc, Limit: 2, Page: 2})
		require.NoError(t, err)
		assert.Equal(t, []string{"Mate Camionero"}, names(page))

		page, _, err = repo.List(ctx, ProductFilter{Stock: NoStock})
		require.NoError(t, err)
		assert.Equal(t, []string{"Mate Camionero"}, names(page))

		page, _, err = repo.List(ctx, ProductFilter{Stock: InStock, Sort: SortStockAsc})
		require.NoError(t, err)
		assert.Equal(t, []string{"Mate Imperial", "Bombilla Pico", "Mate Torpedo"}, names(page))

		lo, hi := price(6000), price(10000)
		page, _, err = repo.List(ctx, ProductFilter{PriceMin: &lo, PriceMax: &hi})
		require.NoError(t, err)
		assert.Equal(t, []string{"Mate Imperial"}, names(page))

		page, _, err = repo.List(ctx, ProductFilter{Search: "torpedo"})
		require.NoError(t, err)
		assert.Equal(t, []string{"Mate Torpedo"}, names(page))

		page, _, err = repo.List(ctx, ProductFilter{Search: "ORPED"})
		require.NoError(t, err)
		assert.Equal(t, []string{"Mate Torpedo"}, names(page), "search matches substrings")

		page, total, err = repo.List(ctx, ProductFilter{IncludeInactive: true, Sort: SortNameAsc})
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		assert.Equal(t, "Bombilla Pico", page[0].Name)
	})

	t.Run("stats and counts", func(t *testing.T) {
		repo := newRepo(t)
		seedProduct(t, repo, mate("Mate 1", 2, 1000, 0))
		seedProduct(t, repo, mate("Mate 2", 4, 3000, 1))
		gone := mate("Mate 3", 100, 100000, 2)
		gone.Active = false
		seedProduct(t, repo, gone)

		stats, err := repo.Stats(ctx, ProductFilter{Category: models.CategoryMate})
		require.NoError(t, err)
		assert.Equal(t, int64(2), stats.TotalProducts)
		assert.Equal(t, int64(6), stats.StockTotal)
		assert.True(t, stats.InventoryValue.Equal(price(7000).Decimal), stats.InventoryValue.String())
		assert.True(t, stats.AvgSalePrice.Equal(price(2000).Decimal), stats.AvgSalePrice.String())

		n, err := repo.CountActiveByCategory(ctx, models.CategoryMate)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		empty, err := repo.Stats(ctx, ProductFilter{Category: models.CategoryCombo})
		require.NoError(t, err)
		assert.Zero(t, empty.TotalProducts)
	})

	t.Run("update stock", func(t *testing.T) {
		repo := newRepo(t)
		m := seedProduct(t, repo, mate("Mate", 1, 100, 0))

		require.NoError(t, repo.UpdateStock(ctx, m.ID, 7))
		got, err := repo.FindByID(ctx, m.ID)
		require.NoError(t, err)
		assert.Equal(t, 7, got.Stock)

		assert.ErrorIs(t, repo.UpdateStock(ctx, primitive.NewObjectID(), 1), models.ErrNotFound)
	})
}

func runCategoryRepositorySuite(t *testing.T, repo CategoryRepository) {
	ctx := context.Background()
	for _, c := range models.DefaultCategories() {
		c.CreatedAt, c.UpdatedAt = base, base
		require.NoError(t, repo.Insert(ctx, &c))
	}
	dup := models.CategoryInfo{Name: models.CategoryMate, Active: true}
	assert.ErrorIs(t, repo.Insert(ctx, &dup), models.ErrNameTaken)

	c, err := repo.FindByName(ctx, models.CategoryCombo)
	require.NoError(t, err)
	c.Active = false
	c.Description = "Fuera de temporada"
	require.NoError(t, repo.Update(ctx, c))

	active, err := repo.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, models.CategoryMate, active[0].Name)

	all, err := repo.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Fuera de temporada", all[2].Description)
}

func runMovementRepositorySuite(t *testing.T, repo MovementRepository) {
	ctx := context.Background()
	productID := primitive.NewObjectID()
	for i, op := range []models.StockOperation{models.StockSet, models.StockAdd, models.StockSubtract} {
		m := models.StockMovement{
			ProductID: productID,
			Operation: op,
			Quantity:  i + 1,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.Insert(ctx, &m))
		assert.False(t, m.ID.IsZero())
	}
	other := models.StockMovement{ProductID: primitive.NewObjectID(), Operation: models.StockAdd, Quantity: 1, CreatedAt: base}
	require.NoError(t, repo.Insert(ctx, &other))

	got, err := repo.ListByProduct(ctx, productID, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, models.StockSubtract, got[0].Operation)
	assert.Equal(t, models.StockAdd, got[1].Operation)
}

func runUserRepositorySuite(t *testing.T, repo UserRepository) {
	ctx := context.Background()
	u := models.User{Email: "Ana@CalmateVibes.com", Password: "hash", Username: "ana", CreatedAt: base}
	require.NoError(t, repo.Insert(ctx, &u))
	assert.False(t, u.ID.IsZero())

	dup := models.User{Email: "ana@calmatevibes.com", Password: "hash", Username: "ana2"}
	assert.ErrorIs(t, repo.Insert(ctx, &dup), models.ErrEmailTaken)

	got, err := repo.FindByEmail(ctx, "ana@calmatevibes.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	got, err = repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "ana", got.Username)

	_, err = repo.FindByEmail(ctx, "nadie@calmatevibes.com")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
