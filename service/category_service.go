package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"calmatevibes-api/combo"
	"calmatevibes-api/dto"
	"calmatevibes-api/models"
	"calmatevibes-api/repository"

	"github.com/rs/zerolog/log"
)

// CategoryService manages the metadata of the three fixed categories.
type CategoryService interface {
	Seed(ctx context.Context) error
	List(ctx context.Context, includeInactive bool) ([]dto.CategoryResponse, error)
	Get(ctx context.Context, name string) (*dto.CategoryDetailResponse, error)
	Create(ctx context.Context, req dto.CreateCategoryRequest) (*dto.CategoryResponse, error)
	Update(ctx context.Context, name string, req dto.UpdateCategoryRequest) (*dto.CategoryResponse, error)
	Delete(ctx context.Context, name string) error
}

type categoryService struct {
	categories repository.CategoryRepository
	products   repository.ProductRepository
	engine     *combo.Engine
	now        func() time.Time
}

func NewCategoryService(categories repository.CategoryRepository, products repository.ProductRepository, engine *combo.Engine) CategoryService {
	return &categoryService{
		categories: categories,
		products:   products,
		engine:     engine,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Seed inserts the default categories that do not exist yet.
func (s *categoryService) Seed(ctx context.Context) error {
	for _, c := range models.DefaultCategories() {
		_, err := s.categories.FindByName(ctx, c.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, models.ErrNotFound) {
			return err
		}
		c.CreatedAt = s.now()
		c.UpdatedAt = c.CreatedAt
		if err := s.categories.Insert(ctx, &c); err != nil && !errors.Is(err, models.ErrNameTaken) {
			return err
		}
		log.Info().Str("category", string(c.Name)).Msg("category seeded")
	}
	return nil
}

func (s *categoryService) withStats(ctx context.Context, c models.CategoryInfo) (dto.CategoryResponse, error) {
	stats, err := s.products.Stats(ctx, repository.ProductFilter{Category: c.Name})
	if err != nil {
		return dto.CategoryResponse{}, err
	}
	return dto.CategoryResponse{CategoryInfo: c, Stats: stats}, nil
}

func (s *categoryService) List(ctx context.Context, includeInactive bool) ([]dto.CategoryResponse, error) {
	categories, err := s.categories.List(ctx, includeInactive)
	if err != nil {
		return nil, err
	}
	out := make([]dto.CategoryResponse, 0, len(categories))
	for _, c := range categories {
		resp, err := s.withStats(ctx, c)
		if err != nil {
			return nil, err
		}
		out = append(out, resp)
	}
	return out, nil
}

func (s *categoryService) find(ctx context.Context, name string) (*models.CategoryInfo, error) {
	category, ok := models.ParseCategory(name)
	if !ok {
		return nil, models.ErrNotFound
	}
	return s.categories.FindByName(ctx, category)
}

// Get returns the category with up to one page of its active products,
// combo stock reconciled.
func (s *categoryService) Get(ctx context.Context, name string) (*dto.CategoryDetailResponse, error) {
	c, err := s.find(ctx, name)
	if err != nil {
		return nil, err
	}
	resp, err := s.withStats(ctx, *c)
	if err != nil {
		return nil, err
	}

	products, _, err := s.products.List(ctx, repository.ProductFilter{
		Category: c.Name,
		Sort:     repository.SortNameAsc,
		Limit:    repository.MaxPageLimit,
	})
	if err != nil {
		return nil, err
	}
	reconciled, _ := s.engine.ReconcileAll(ctx, products)

	summaries := make([]dto.ProductSummary, 0, len(reconciled))
	for _, p := range reconciled {
		summaries = append(summaries, dto.NewProductSummary(p))
	}
	return &dto.CategoryDetailResponse{Category: resp, Products: summaries, Count: len(summaries)}, nil
}

func (s *categoryService) Create(ctx context.Context, req dto.CreateCategoryRequest) (*dto.CategoryResponse, error) {
	name, ok := models.ParseCategory(req.Name)
	if !ok {
		return nil, models.NewValidationError(map[string]string{"name": "category"})
	}
	now := s.now()
	c := models.CategoryInfo{
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.Order != nil {
		c.Order = *req.Order
	}
	if req.Active != nil {
		c.Active = *req.Active
	}
	if err := s.categories.Insert(ctx, &c); err != nil {
		return nil, err
	}
	resp, err := s.withStats(ctx, c)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *categoryService) Update(ctx context.Context, name string, req dto.UpdateCategoryRequest) (*dto.CategoryResponse, error) {
	c, err := s.find(ctx, name)
	if err != nil {
		return nil, err
	}
	if req.Active != nil && !*req.Active && c.Active {
		if err := s.ensureUnused(ctx, c.Name); err != nil {
			return nil, err
		}
	}
	if req.Description != nil {
		c.Description = strings.TrimSpace(*req.Description)
	}
	if req.Order != nil {
		c.Order = *req.Order
	}
	if req.Active != nil {
		c.Active = *req.Active
	}
	c.UpdatedAt = s.now()
	if err := s.categories.Update(ctx, c); err != nil {
		return nil, err
	}
	resp, err := s.withStats(ctx, *c)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Delete deactivates the category. It is refused while active products
// still belong to it.
func (s *categoryService) Delete(ctx context.Context, name string) error {
	c, err := s.find(ctx, name)
	if err != nil {
		return err
	}
	if err := s.ensureUnused(ctx, c.Name); err != nil {
		return err
	}
	c.Active = false
	c.UpdatedAt = s.now()
	return s.categories.Update(ctx, c)
}

func (s *categoryService) ensureUnused(ctx context.Context, name models.Category) error {
	n, err := s.products.CountActiveByCategory(ctx, name)
	if err != nil {
		return err
	}
	if n > 0 {
		return &models.CategoryInUseError{Category: name, ActiveProducts: n}
	}
	return nil
}
