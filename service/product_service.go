package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"calmatevibes-api/combo"
	"calmatevibes-api/dto"
	"calmatevibes-api/models"
	"calmatevibes-api/repository"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	defaultMovementLimit = 50
	maxMovementLimit     = 200
)

// ProductService defines the business logic contract for products.
type ProductService interface {
	Create(ctx context.Context, req dto.CreateProductRequest) (*dto.ProductResponse, error)
	Get(ctx context.Context, id primitive.ObjectID) (*dto.ProductResponse, error)
	List(ctx context.Context, q dto.ProductListQuery) (*dto.ProductListResponse, error)
	Update(ctx context.Context, id primitive.ObjectID, req dto.UpdateProductRequest) (*dto.ProductResponse, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	Restore(ctx context.Context, id primitive.ObjectID) (*dto.ProductResponse, error)
	AdjustStock(ctx context.Context, id primitive.ObjectID, req dto.AdjustStockRequest) (*dto.AdjustStockResponse, error)
	Movements(ctx context.Context, id primitive.ObjectID, limit int) ([]models.StockMovement, error)
}

type productService struct {
	products  repository.ProductRepository
	movements repository.MovementRepository
	engine    *combo.Engine
	now       func() time.Time
}

func NewProductService(products repository.ProductRepository, movements repository.MovementRepository, engine *combo.Engine) ProductService {
	return &productService{
		products:  products,
		movements: movements,
		engine:    engine,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *productService) Create(ctx context.Context, req dto.CreateProductRequest) (*dto.ProductResponse, error) {
	category, ok := models.ParseCategory(req.Category)
	if !ok {
		return nil, models.NewValidationError(map[string]string{"category": "category"})
	}
	attrs, err := attributesFor(category, req.Mate, req.Bombilla, req.Combo)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, models.NewValidationError(map[string]string{"name": "required"})
	}
	if req.SalePrice == nil {
		return nil, models.NewValidationError(map[string]string{"salePrice": "required"})
	}
	if err := s.ensureNameFree(ctx, name, primitive.NilObjectID); err != nil {
		return nil, err
	}

	now := s.now()
	p := &models.Product{
		ID:          primitive.NewObjectID(),
		Name:        name,
		Slug:        models.Slugify(name),
		Category:    category,
		Attributes:  attrs,
		Stock:       req.Stock,
		SalePrice:   *req.SalePrice,
		Active:      true,
		Description: strings.TrimSpace(req.Description),
		Tags:        req.Tags,
		Images:      req.Images,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.PurchasePrice != nil {
		p.PurchasePrice = *req.PurchasePrice
	}

	if p.IsCombo() {
		err = s.engine.Save(ctx, p)
	} else {
		err = s.products.Save(ctx, p)
	}
	if err != nil {
		return nil, err
	}

	if !p.IsCombo() && p.Stock > 0 {
		s.record(ctx, models.StockMovement{
			ProductID: p.ID,
			Operation: models.StockSet,
			Quantity:  p.Stock,
			New:       p.Stock,
			Reason:    "stock inicial",
		})
	}

	log.Info().Str("product_id", p.ID.Hex()).Str("category", string(p.Category)).Msg("product created")
	return s.render(ctx, *p, nil)
}

func (s *productService) Get(ctx context.Context, id primitive.ObjectID) (*dto.ProductResponse, error) {
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	reconciled, rerr := s.engine.Reconcile(ctx, *p)
	return s.render(ctx, reconciled, &rerr)
}

func (s *productService) List(ctx context.Context, q dto.ProductListQuery) (*dto.ProductListResponse, error) {
	filter := q.Filter().Normalized()

	products, total, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	stats, err := s.products.Stats(ctx, filter)
	if err != nil {
		return nil, err
	}

	reconciled, errs := s.engine.ReconcileAll(ctx, products)
	components, err := s.loadComponents(ctx, reconciled...)
	if err != nil {
		return nil, err
	}

	data := make([]dto.ProductResponse, 0, len(reconciled))
	for i, p := range reconciled {
		resp := dto.NewProductResponse(p, components)
		if p.IsCombo() {
			resp.StockResolved = resolvedFlag(p, errs[i])
		}
		data = append(data, resp)
	}

	return &dto.ProductListResponse{
		Data:       data,
		Count:      len(data),
		Pagination: dto.NewPagination(filter.Page, filter.Limit, total),
		Stats:      stats,
	}, nil
}

func (s *productService) Update(ctx context.Context, id primitive.ObjectID, req dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Category != nil {
		category, ok := models.ParseCategory(*req.Category)
		if !ok {
			return nil, models.NewValidationError(map[string]string{"category": "category"})
		}
		if category != p.Category {
			return nil, &models.ImmutableFieldError{Field: "category"}
		}
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, models.NewValidationError(map[string]string{"name": "required"})
		}
		if name != p.Name && p.Active {
			if err := s.ensureNameFree(ctx, name, p.ID); err != nil {
				return nil, err
			}
		}
		p.Name = name
		p.Slug = models.Slugify(name)
	}

	// Only the payload of the stored category is applied.
	switch p.Category {
	case models.CategoryMate:
		if req.Mate != nil {
			if err := validatePayload("mate", req.Mate); err != nil {
				return nil, err
			}
			p.Attributes = *req.Mate
		}
	case models.CategoryBombilla:
		if req.Bombilla != nil {
			if err := validatePayload("bombilla", req.Bombilla); err != nil {
				return nil, err
			}
			p.Attributes = *req.Bombilla
		}
	case models.CategoryCombo:
		if req.Combo != nil {
			refs, _ := p.ComboRefs()
			if refs, err = patchRefs(refs, req.Combo); err != nil {
				return nil, err
			}
			p.Attributes = refs
		}
	}

	if req.PurchasePrice != nil {
		p.PurchasePrice = *req.PurchasePrice
	}
	if req.SalePrice != nil {
		p.SalePrice = *req.SalePrice
	}
	if req.Description != nil {
		p.Description = strings.TrimSpace(*req.Description)
	}
	if req.Tags != nil {
		p.Tags = *req.Tags
	}
	if req.Images != nil {
		p.Images = *req.Images
	}

	previous := p.Stock
	stockChanged := req.Stock != nil && !p.IsCombo() && *req.Stock != p.Stock
	if stockChanged {
		p.Stock = *req.Stock
	}
	p.UpdatedAt = s.now()

	// Combo stock given by the caller is ignored; Save always re-resolves it.
	if p.IsCombo() {
		err = s.engine.Save(ctx, p)
	} else {
		err = s.products.Save(ctx, p)
	}
	if err != nil {
		return nil, err
	}

	if stockChanged {
		s.record(ctx, models.StockMovement{
			ProductID: p.ID,
			Operation: models.StockSet,
			Quantity:  p.Stock,
			Previous:  previous,
			New:       p.Stock,
			Reason:    "actualización de producto",
		})
		s.cascade(ctx, p.ID)
	}

	return s.render(ctx, *p, nil)
}

func (s *productService) Delete(ctx context.Context, id primitive.ObjectID) error {
	if err := s.engine.GuardDeletion(ctx, id); err != nil {
		return err
	}
	if err := s.products.SetActive(ctx, id, false); err != nil {
		return err
	}
	log.Info().Str("product_id", id.Hex()).Msg("product deactivated")
	return nil
}

func (s *productService) Restore(ctx context.Context, id primitive.ObjectID) (*dto.ProductResponse, error) {
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Active {
		return s.Get(ctx, id)
	}
	if err := s.ensureNameFree(ctx, p.Name, p.ID); err != nil {
		return nil, err
	}

	p.Active = true
	p.UpdatedAt = s.now()
	if p.IsCombo() {
		if err := s.engine.Save(ctx, p); err != nil {
			return nil, err
		}
	} else {
		if err := s.products.SetActive(ctx, id, true); err != nil {
			return nil, err
		}
		// Combos pointing at this product were broken while it was inactive.
		s.cascade(ctx, id)
	}

	log.Info().Str("product_id", id.Hex()).Msg("product restored")
	return s.render(ctx, *p, nil)
}

func (s *productService) AdjustStock(ctx context.Context, id primitive.ObjectID, req dto.AdjustStockRequest) (*dto.AdjustStockResponse, error) {
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.IsCombo() {
		return nil, &models.ImmutableFieldError{Field: "stock"}
	}

	op := models.StockOperation(req.Operation)
	next, ok := op.Apply(p.Stock, req.Quantity)
	if !ok {
		return nil, models.NewValidationError(map[string]string{"operation": "oneof"})
	}

	if err := s.products.UpdateStock(ctx, id, next); err != nil {
		return nil, err
	}

	movement := models.StockMovement{
		ProductID: id,
		Operation: op,
		Quantity:  req.Quantity,
		Previous:  p.Stock,
		New:       next,
		Reason:    strings.TrimSpace(req.Reason),
	}
	movement = s.record(ctx, movement)
	cascaded := s.cascade(ctx, id)

	p.Stock = next
	p.UpdatedAt = s.now()
	resp, err := s.render(ctx, *p, nil)
	if err != nil {
		return nil, err
	}
	return &dto.AdjustStockResponse{Product: *resp, Movement: movement, Cascaded: cascaded}, nil
}

func (s *productService) Movements(ctx context.Context, id primitive.ObjectID, limit int) ([]models.StockMovement, error) {
	if _, err := s.products.FindByID(ctx, id); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultMovementLimit
	}
	limit = min(limit, maxMovementLimit)

	out, err := s.movements.ListByProduct(ctx, id, limit)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.StockMovement{}
	}
	return out, nil
}

// ensureNameFree fails with ErrNameTaken when another active product uses name.
func (s *productService) ensureNameFree(ctx context.Context, name string, self primitive.ObjectID) error {
	existing, err := s.products.FindActiveByName(ctx, name)
	if errors.Is(err, models.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID != self {
		return models.ErrNameTaken
	}
	return nil
}

// cascade rewrites the stock of the active combos built on id and records a
// movement for each. Failures are logged: reads reconcile combos anyway.
func (s *productService) cascade(ctx context.Context, id primitive.ObjectID) []models.StockMovement {
	changes, err := s.engine.RefreshDependents(ctx, id)
	if err != nil {
		log.Warn().Err(err).Str("product_id", id.Hex()).Msg("combo stock refresh incomplete")
	}
	out := make([]models.StockMovement, 0, len(changes))
	for _, ch := range changes {
		out = append(out, s.record(ctx, models.StockMovement{
			ProductID: ch.ComboID,
			Operation: models.StockCascade,
			Quantity:  ch.New,
			Previous:  ch.Previous,
			New:       ch.New,
			Reason:    "componente " + id.Hex(),
		}))
	}
	return out
}

// record stores a movement. The stock write already happened, so a failure
// here is logged rather than returned.
func (s *productService) record(ctx context.Context, m models.StockMovement) models.StockMovement {
	m.CreatedAt = s.now()
	if err := s.movements.Insert(ctx, &m); err != nil {
		log.Error().Err(err).Str("product_id", m.ProductID.Hex()).Msg("stock movement not recorded")
	}
	return m
}

// render builds the response. reconcileErr is nil for writes, where the
// stock was just resolved; reads pass the outcome of Reconcile.
func (s *productService) render(ctx context.Context, p models.Product, reconcileErr *error) (*dto.ProductResponse, error) {
	components, err := s.loadComponents(ctx, p)
	if err != nil {
		return nil, err
	}
	resp := dto.NewProductResponse(p, components)
	if p.IsCombo() {
		var rerr error
		if reconcileErr != nil {
			rerr = *reconcileErr
		}
		resp.StockResolved = resolvedFlag(p, rerr)
	}
	return &resp, nil
}

func resolvedFlag(p models.Product, err error) *bool {
	ok := err == nil
	if !ok {
		log.Warn().Err(err).Str("product_id", p.ID.Hex()).Msg("combo stock unresolved")
	}
	return &ok
}

func (s *productService) loadComponents(ctx context.Context, products ...models.Product) (map[string]models.Product, error) {
	var ids []primitive.ObjectID
	for _, p := range products {
		if refs, ok := p.ComboRefs(); ok {
			ids = append(ids, refs.MateID, refs.BombillaID)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	found, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load combo components: %w", err)
	}
	out := make(map[string]models.Product, len(found))
	for _, c := range found {
		out[c.ID.Hex()] = c
	}
	return out, nil
}

// attributesFor picks the payload of category and drops the others.
func attributesFor(category models.Category, mate *models.MateAttributes, bombilla *models.BombillaAttributes, refs *dto.ComboRefsRequest) (models.Attributes, error) {
	switch category {
	case models.CategoryMate:
		if mate == nil {
			return nil, models.NewValidationError(map[string]string{"mate": "required"})
		}
		if err := validatePayload("mate", mate); err != nil {
			return nil, err
		}
		return *mate, nil
	case models.CategoryBombilla:
		if bombilla == nil {
			return nil, models.NewValidationError(map[string]string{"bombilla": "required"})
		}
		if err := validatePayload("bombilla", bombilla); err != nil {
			return nil, err
		}
		return *bombilla, nil
	case models.CategoryCombo:
		if refs == nil {
			return nil, models.NewValidationError(map[string]string{"combo": "required"})
		}
		mateID, err := parseRef("mateId", refs.MateID)
		if err != nil {
			return nil, err
		}
		bombillaID, err := parseRef("bombillaId", refs.BombillaID)
		if err != nil {
			return nil, err
		}
		return models.ComboRefs{MateID: mateID, BombillaID: bombillaID}, nil
	}
	return nil, models.NewValidationError(map[string]string{"category": "category"})
}

func patchRefs(refs models.ComboRefs, patch *dto.ComboRefsPatch) (models.ComboRefs, error) {
	var err error
	if patch.MateID != nil {
		if refs.MateID, err = parseRef("mateId", *patch.MateID); err != nil {
			return refs, err
		}
	}
	if patch.BombillaID != nil {
		if refs.BombillaID, err = parseRef("bombillaId", *patch.BombillaID); err != nil {
			return refs, err
		}
	}
	return refs, nil
}

// parseRef maps an empty id to the zero id (reported as missing by the
// engine) and a malformed one to an unresolvable reference.
func parseRef(field, hex string) (primitive.ObjectID, error) {
	hex = strings.TrimSpace(hex)
	if hex == "" {
		return primitive.NilObjectID, nil
	}
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, &models.InvalidReferenceError{Field: field, ID: hex, Reason: models.ReasonNotFound}
	}
	return id, nil
}

func validatePayload(name string, payload any) error {
	if err := dto.Validate.Struct(payload); err != nil {
		fields := make(map[string]string)
		for f, tag := range dto.FieldErrors(err) {
			fields[name+"."+f] = tag
		}
		return models.NewValidationError(fields)
	}
	return nil
}
