// Command seed loads a sample mate, bombilla and combo into the configured store.
// Products that already exist by name are left untouched.
package main

import (
	"context"
	"errors"
	"os"
	"time"

	"calmatevibes-api/bootstrap"
	"calmatevibes-api/combo"
	"calmatevibes-api/config"
	"calmatevibes-api/dto"
	"calmatevibes-api/models"
	"calmatevibes-api/repository"
	"calmatevibes-api/service"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func price(v float64) *models.Money {
	m := models.NewMoney(v)
	return &m
}

func samples() []dto.CreateProductRequest {
	return []dto.CreateProductRequest{
		{
			Name:     "Mate Imperial Clásico",
			Category: string(models.CategoryMate),
			Mate: &models.MateAttributes{
				Shape: "Imperial", Gourd: "Calabaza", TopWidth: "Ancho", BottomWidth: "Medio",
				Ferrule: "Alpaca", Curing: "Curado de calabaza", Finish: "Brillante", Color: "Natural",
			},
			Stock:         15,
			PurchasePrice: price(2500),
			SalePrice:     price(4500),
			Description:   "Mate imperial tradicional de calabaza con virola de alpaca",
		},
		{
			Name:     "Bombilla Premium Acero",
			Category: string(models.CategoryBombilla),
			Bombilla: &models.BombillaAttributes{
				Shape: "Recta", Material: "Acero inoxidable", Size: "Mediana",
			},
			Stock:         30,
			PurchasePrice: price(800),
			SalePrice:     price(1500),
			Description:   "Bombilla de acero inoxidable, tamaño mediano",
		},
	}
}

// ensure creates req or returns the id of the active product already using its name.
func ensure(ctx context.Context, products service.ProductService, repo repository.ProductRepository, req dto.CreateProductRequest) (string, error) {
	created, err := products.Create(ctx, req)
	if err == nil {
		log.Info().Str("id", created.ID).Str("name", created.Name).Int("stock", created.Stock).Msg("producto creado")
		return created.ID, nil
	}
	if !errors.Is(err, models.ErrNameTaken) {
		return "", err
	}
	existing, err := repo.FindActiveByName(ctx, req.Name)
	if err != nil {
		return "", err
	}
	log.Info().Str("name", req.Name).Msg("producto existente, se omite")
	return existing.ID.Hex(), nil
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	backend, err := bootstrap.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.Close(context.Background())

	engine := combo.NewEngine(backend.Stores.Products)
	products := service.NewProductService(backend.Stores.Products, backend.Stores.Movements, engine)
	categories := service.NewCategoryService(backend.Stores.Categories, backend.Stores.Products, engine)
	if err := categories.Seed(ctx); err != nil {
		return err
	}

	var ids []string
	for _, req := range samples() {
		id, err := ensure(ctx, products, backend.Stores.Products, req)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}

	_, err = ensure(ctx, products, backend.Stores.Products, dto.CreateProductRequest{
		Name:        "Combo Imperial + Bombilla Premium",
		Category:    string(models.CategoryCombo),
		Combo:       &dto.ComboRefsRequest{MateID: ids[0], BombillaID: ids[1]},
		SalePrice:   price(5500),
		Description: "Mate imperial con bombilla de acero",
	})
	return err
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := run(ctx); err != nil {
		log.Fatal().Err(err).Msg("seed failed")
	}
	log.Info().Msg("datos de prueba cargados")
}
