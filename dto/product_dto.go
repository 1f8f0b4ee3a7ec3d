package dto

import (
	"math"
	"time"

	"calmatevibes-api/models"
	"calmatevibes-api/repository"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

// ComboRefsRequest carries the ids of the mate and bombilla as hex strings.
type ComboRefsRequest struct {
	MateID     string `json:"mateId"`
	BombillaID string `json:"bombillaId"`
}

// The category payloads are validated by the service once it knows which
// one applies, so a stray payload of another category never fails a request.
type CreateProductRequest struct {
	Name          string                     `json:"name"          validate:"required,max=100"`
	Category      string                     `json:"category"      validate:"required,category"`
	Mate          *models.MateAttributes     `json:"mate"          validate:"-"`
	Bombilla      *models.BombillaAttributes `json:"bombilla"      validate:"-"`
	Combo         *ComboRefsRequest          `json:"combo"         validate:"-"`
	Stock         int                        `json:"stock"         validate:"min=0"`
	PurchasePrice *models.Money              `json:"purchasePrice" validate:"omitempty,min=0"`
	SalePrice     *models.Money              `json:"salePrice"     validate:"required,min=0"`
	Description   string                     `json:"description"   validate:"max=500"`
	Tags          []string                   `json:"tags"          validate:"max=20,dive,max=40"`
	Images        []models.Image             `json:"images"        validate:"max=10,dive"`
}

// ComboRefsPatch lets an update change one reference and keep the other.
type ComboRefsPatch struct {
	MateID     *string `json:"mateId"`
	BombillaID *string `json:"bombillaId"`
}

type UpdateProductRequest struct {
	Name          *string                    `json:"name"          validate:"omitempty,max=100"`
	Category      *string                    `json:"category"      validate:"omitempty,category"`
	Mate          *models.MateAttributes     `json:"mate"          validate:"-"`
	Bombilla      *models.BombillaAttributes `json:"bombilla"      validate:"-"`
	Combo         *ComboRefsPatch            `json:"combo"         validate:"-"`
	Stock         *int                       `json:"stock"         validate:"omitempty,min=0"`
	PurchasePrice *models.Money              `json:"purchasePrice" validate:"omitempty,min=0"`
	SalePrice     *models.Money              `json:"salePrice"     validate:"omitempty,min=0"`
	Description   *string                    `json:"description"   validate:"omitempty,max=500"`
	Tags          *[]string                  `json:"tags"          validate:"omitempty,max=20,dive,max=40"`
	Images        *[]models.Image            `json:"images"        validate:"omitempty,max=10,dive"`
}

type AdjustStockRequest struct {
	Operation string `json:"operation" validate:"required,oneof=add subtract set"`
	Quantity  int    `json:"quantity"  validate:"min=0"`
	Reason    string `json:"reason"    validate:"max=200"`
}

// ─── Filter / Pagination ─────────────────────────────────────────────────────

type ProductListQuery struct {
	Category        string   `form:"category"        validate:"omitempty,category"`
	IncludeInactive bool     `form:"includeInactive"`
	PriceMin        *float64 `form:"priceMin"        validate:"omitempty,min=0"`
	PriceMax        *float64 `form:"priceMax"        validate:"omitempty,min=0"`
	Stock           string   `form:"stock"           validate:"omitempty,oneof=in out"`
	Search          string   `form:"search"          validate:"max=100"`
	Sort            string   `form:"sort"            validate:"omitempty,oneof=name_asc name_desc price_asc price_desc stock_asc stock_desc"`
	Page            int      `form:"page,default=1"   validate:"min=1"`
	Limit           int      `form:"limit,default=10" validate:"min=1,max=100"`
}

// Filter converts the query into a repository filter. Call after validation.
func (q ProductListQuery) Filter() repository.ProductFilter {
	f := repository.ProductFilter{
		IncludeInactive: q.IncludeInactive,
		Stock:           repository.StockFilter(q.Stock),
		Search:          q.Search,
		Sort:            q.Sort,
		Page:            q.Page,
		Limit:           q.Limit,
	}
	if c, ok := models.ParseCategory(q.Category); ok {
		f.Category = c
	}
	if q.PriceMin != nil {
		m := models.NewMoney(*q.PriceMin)
		f.PriceMin = &m
	}
	if q.PriceMax != nil {
		m := models.NewMoney(*q.PriceMax)
		f.PriceMax = &m
	}
	return f
}

type Pagination struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	Total       int64 `json:"total"`
	Pages       int   `json:"pages"`
	HasNextPage bool  `json:"hasNextPage"`
	HasPrevPage bool  `json:"hasPrevPage"`
}

func NewPagination(page, limit int, total int64) Pagination {
	pages := 0
	if limit > 0 {
		pages = int(math.Ceil(float64(total) / float64(limit)))
	}
	return Pagination{
		Page:        page,
		Limit:       limit,
		Total:       total,
		Pages:       pages,
		HasNextPage: page < pages,
		HasPrevPage: page > 1,
	}
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

// ComboComponent is a populated combo reference.
type ComboComponent struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Stock     int          `json:"stock"`
	SalePrice models.Money `json:"salePrice"`
	Active    bool         `json:"active"`
}

type ComboResponse struct {
	MateID     string          `json:"mateId"`
	BombillaID string          `json:"bombillaId"`
	Mate       *ComboComponent `json:"mate,omitempty"`
	Bombilla   *ComboComponent `json:"bombilla,omitempty"`
}

type ProductResponse struct {
	ID            string                     `json:"id"`
	Name          string                     `json:"name"`
	Slug          string                     `json:"slug"`
	Category      models.Category            `json:"category"`
	Mate          *models.MateAttributes     `json:"mate,omitempty"`
	Bombilla      *models.BombillaAttributes `json:"bombilla,omitempty"`
	Combo         *ComboResponse             `json:"combo,omitempty"`
	Stock         int                        `json:"stock"`
	StockResolved *bool                      `json:"stockResolved,omitempty"`
	PurchasePrice models.Money               `json:"purchasePrice"`
	SalePrice     models.Money               `json:"salePrice"`
	Profit        models.Money               `json:"profit"`
	Active        bool                       `json:"active"`
	Description   string                     `json:"description,omitempty"`
	Tags          []string                   `json:"tags"`
	Images        []models.Image             `json:"images"`
	CreatedAt     time.Time                  `json:"createdAt"`
	UpdatedAt     time.Time                  `json:"updatedAt"`
}

// NewProductResponse renders p. components holds the already loaded combo
// references, keyed by id; it may be nil.
func NewProductResponse(p models.Product, components map[string]models.Product) ProductResponse {
	resp := ProductResponse{
		ID:            p.ID.Hex(),
		Name:          p.Name,
		Slug:          p.Slug,
		Category:      p.Category,
		Stock:         p.Stock,
		PurchasePrice: p.PurchasePrice,
		SalePrice:     p.SalePrice,
		Profit:        p.Profit(),
		Active:        p.Active,
		Description:   p.Description,
		Tags:          p.Tags,
		Images:        p.Images,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}
	if resp.Images == nil {
		resp.Images = []models.Image{}
	}
	switch a := p.Attributes.(type) {
	case models.MateAttributes:
		resp.Mate = &a
	case models.BombillaAttributes:
		resp.Bombilla = &a
	case models.ComboRefs:
		resp.Combo = &ComboResponse{
			MateID:     a.MateID.Hex(),
			BombillaID: a.BombillaID.Hex(),
			Mate:       component(components, a.MateID.Hex()),
			Bombilla:   component(components, a.BombillaID.Hex()),
		}
	}
	return resp
}

func component(components map[string]models.Product, id string) *ComboComponent {
	c, ok := components[id]
	if !ok {
		return nil
	}
	return &ComboComponent{ID: id, Name: c.Name, Stock: c.Stock, SalePrice: c.SalePrice, Active: c.Active}
}

type ProductListResponse struct {
	Data       []ProductResponse       `json:"data"`
	Count      int                     `json:"count"`
	Pagination Pagination              `json:"pagination"`
	Stats      repository.ProductStats `json:"stats"`
}

type AdjustStockResponse struct {
	Product  ProductResponse        `json:"product"`
	Movement models.StockMovement   `json:"movement"`
	Cascaded []models.StockMovement `json:"cascaded"`
}
