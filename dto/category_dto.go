package dto

import (
	"calmatevibes-api/models"
	"calmatevibes-api/repository"
)

type CreateCategoryRequest struct {
	Name        string `json:"name"        validate:"required,category"`
	Description string `json:"description" validate:"max=200"`
	Order       *int   `json:"order"       validate:"omitempty,min=0"`
	Active      *bool  `json:"active"`
}

type UpdateCategoryRequest struct {
	Description *string `json:"description" validate:"omitempty,max=200"`
	Order       *int    `json:"order"       validate:"omitempty,min=0"`
	Active      *bool   `json:"active"`
}

type CategoryResponse struct {
	models.CategoryInfo
	Stats repository.ProductStats `json:"stats"`
}

// ProductSummary is the short form used inside a category detail.
type ProductSummary struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Slug      string       `json:"slug"`
	Stock     int          `json:"stock"`
	SalePrice models.Money `json:"salePrice"`
}

func NewProductSummary(p models.Product) ProductSummary {
	return ProductSummary{ID: p.ID.Hex(), Name: p.Name, Slug: p.Slug, Stock: p.Stock, SalePrice: p.SalePrice}
}

type CategoryDetailResponse struct {
	Category CategoryResponse `json:"category"`
	Products []ProductSummary `json:"products"`
	Count    int              `json:"count"`
}
