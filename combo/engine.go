// Package combo keeps the stock of combo products equal to the minimum of
// the stock of the mate and the bombilla they bundle, and stops a component
// from being deleted while an active combo still points at it.
package combo

import (
	"context"
	"errors"
	"fmt"

	"calmatevibes-api/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store is the slice of the product repository the engine needs.
type Store interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Product, error)
	FindActiveCombosReferencing(ctx context.Context, id primitive.ObjectID) ([]models.Product, error)
	Save(ctx context.Context, p *models.Product) error
	UpdateStock(ctx context.Context, id primitive.ObjectID, stock int) error
}

type Engine struct {
	store Store
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// StockChange is a combo whose stored stock was rewritten by RefreshDependents.
type StockChange struct {
	ComboID  primitive.ObjectID
	Name     string
	Previous int
	New      int
}

// ResolveStock returns min(mate.stock, bombilla.stock) when both references
// point at active products of the expected category.
func (e *Engine) ResolveStock(ctx context.Context, refs models.ComboRefs) (int, error) {
	if err := checkPresent(refs); err != nil {
		return 0, err
	}
	mate, err := e.lookup(ctx, refs.MateID)
	if err != nil {
		return 0, err
	}
	bombilla, err := e.lookup(ctx, refs.BombillaID)
	if err != nil {
		return 0, err
	}
	return resolve(refs, func(id primitive.ObjectID) *models.Product {
		switch id {
		case refs.MateID:
			return mate
		case refs.BombillaID:
			return bombilla
		}
		return nil
	})
}

// lookup turns a miss into a nil product so resolve can name the field.
func (e *Engine) lookup(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	p, err := e.store.FindByID(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve combo reference %s: %w", id.Hex(), err)
	}
	return p, nil
}

func checkPresent(refs models.ComboRefs) error {
	if refs.MateID.IsZero() {
		return &models.InvalidReferenceError{Field: "mateId", Reason: models.ReasonMissing}
	}
	if refs.BombillaID.IsZero() {
		return &models.InvalidReferenceError{Field: "bombillaId", Reason: models.ReasonMissing}
	}
	return nil
}

func resolve(refs models.ComboRefs, get func(primitive.ObjectID) *models.Product) (int, error) {
	mate := get(refs.MateID)
	if err := checkReference("mateId", refs.MateID, mate, models.CategoryMate); err != nil {
		return 0, err
	}
	bombilla := get(refs.BombillaID)
	if err := checkReference("bombillaId", refs.BombillaID, bombilla, models.CategoryBombilla); err != nil {
		return 0, err
	}
	return max(0, min(mate.Stock, bombilla.Stock)), nil
}

func checkReference(field string, id primitive.ObjectID, p *models.Product, want models.Category) error {
	reason := ""
	switch {
	case p == nil:
		reason = models.ReasonNotFound
	case !p.Active:
		reason = models.ReasonInactive
	case p.Category != want:
		reason = models.ReasonWrongCategory
	default:
		return nil
	}
	return &models.InvalidReferenceError{Field: field, ID: id.Hex(), Reason: reason}
}

// Save resolves the combo references, overwrites whatever stock the caller
// supplied and persists the combo. Nothing is written when a reference is
// invalid.
func (e *Engine) Save(ctx context.Context, p *models.Product) error {
	if p.Category != models.CategoryCombo {
		return models.NewValidationError(map[string]string{"category": "must be combos"})
	}
	if err := p.CheckAttributes(); err != nil {
		return err
	}
	refs, _ := p.ComboRefs()
	stock, err := e.ResolveStock(ctx, refs)
	if err != nil {
		return err
	}
	p.Stock = stock
	return e.store.Save(ctx, p)
}

// Reconcile returns p with the stock of a combo recomputed from its current
// references. Nothing is persisted. When the references cannot be resolved
// the stored stock (never negative) is kept and the error is returned next to
// the product so the caller can flag it.
func (e *Engine) Reconcile(ctx context.Context, p models.Product) (models.Product, error) {
	if !p.IsCombo() {
		return p, nil
	}
	refs, ok := p.ComboRefs()
	if !ok {
		p.Stock = max(0, p.Stock)
		return p, &models.InvalidReferenceError{Field: "combo", Reason: models.ReasonMissing}
	}
	stock, err := e.ResolveStock(ctx, refs)
	if err != nil {
		p.Stock = max(0, p.Stock)
		return p, err
	}
	p.Stock = stock
	return p, nil
}

// ReconcileAll is Reconcile for a page of products. The references of every
// combo on the page are loaded in one round trip. errs[i] is non-nil when
// products[i] could not be reconciled.
func (e *Engine) ReconcileAll(ctx context.Context, products []models.Product) ([]models.Product, []error) {
	out := make([]models.Product, len(products))
	errs := make([]error, len(products))
	copy(out, products)

	var ids []primitive.ObjectID
	seen := make(map[primitive.ObjectID]bool)
	for _, p := range out {
		refs, ok := p.ComboRefs()
		if !p.IsCombo() || !ok {
			continue
		}
		for _, id := range []primitive.ObjectID{refs.MateID, refs.BombillaID} {
			if !id.IsZero() && !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}

	byID := make(map[primitive.ObjectID]*models.Product, len(ids))
	var loadErr error
	if len(ids) > 0 {
		found, err := e.store.FindByIDs(ctx, ids)
		if err != nil {
			loadErr = fmt.Errorf("resolve combo references: %w", err)
		}
		for i := range found {
			byID[found[i].ID] = &found[i]
		}
	}

	for i := range out {
		if !out[i].IsCombo() {
			continue
		}
		refs, ok := out[i].ComboRefs()
		var (
			stock int
			err   error
		)
		switch {
		case !ok:
			err = &models.InvalidReferenceError{Field: "combo", Reason: models.ReasonMissing}
		case loadErr != nil:
			err = loadErr
		default:
			if err = checkPresent(refs); err == nil {
				stock, err = resolve(refs, func(id primitive.ObjectID) *models.Product { return byID[id] })
			}
		}
		if err != nil {
			out[i].Stock = max(0, out[i].Stock)
			errs[i] = err
			continue
		}
		out[i].Stock = stock
	}
	return out, errs
}

// GuardDeletion fails with ReferencedByCombosError when id is a mate or
// bombilla used by at least one active combo. Combos are never referenced.
func (e *Engine) GuardDeletion(ctx context.Context, id primitive.ObjectID) error {
	p, err := e.store.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if p.IsCombo() {
		return nil
	}
	combos, err := e.store.FindActiveCombosReferencing(ctx, id)
	if err != nil {
		return err
	}
	if len(combos) == 0 {
		return nil
	}
	blocking := make([]models.ComboSummary, 0, len(combos))
	for _, c := range combos {
		blocking = append(blocking, models.ComboSummary{ID: c.ID, Name: c.Name})
	}
	return &models.ReferencedByCombosError{ProductID: id, Combos: blocking}
}

// RefreshDependents recomputes and stores the stock of every active combo
// that references id. It is called after the stock of a mate or bombilla
// changes. Combos that cannot be resolved are skipped and reported in the
// joined error; reads still reconcile them.
func (e *Engine) RefreshDependents(ctx context.Context, id primitive.ObjectID) ([]StockChange, error) {
	combos, err := e.store.FindActiveCombosReferencing(ctx, id)
	if err != nil {
		return nil, err
	}

	var (
		changes []StockChange
		errs    []error
	)
	for _, c := range combos {
		refs, _ := c.ComboRefs()
		stock, err := e.ResolveStock(ctx, refs)
		if err != nil {
			errs = append(errs, fmt.Errorf("combo %s: %w", c.ID.Hex(), err))
			continue
		}
		if stock == c.Stock {
			continue
		}
		if err := e.store.UpdateStock(ctx, c.ID, stock); err != nil {
			errs = append(errs, fmt.Errorf("combo %s: %w", c.ID.Hex(), err))
			continue
		}
		changes = append(changes, StockChange{ComboID: c.ID, Name: c.Name, Previous: c.Stock, New: stock})
	}
	return changes, errors.Join(errs...)
}
