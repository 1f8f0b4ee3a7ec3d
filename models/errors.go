package models

import (
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Machine-readable error codes returned to API clients.
const (
	CodeNotFound           = "not_found"
	CodeInvalidReference   = "invalid_reference"
	CodeImmutableField     = "immutable_field"
	CodeReferencedByCombos = "referenced_by_combos"
	CodeNameTaken          = "name_taken"
	CodeValidation         = "validation"
	CodeCategoryInUse      = "category_in_use"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrNameTaken  = errors.New("name already in use")
	ErrEmailTaken = errors.New("email already registered")
)

// Reasons carried by InvalidReferenceError.
const (
	ReasonNotFound      = "not_found"
	ReasonInactive      = "inactive"
	ReasonWrongCategory = "wrong_category"
	ReasonMissing       = "missing"
)

// InvalidReferenceError reports a combo reference that does not resolve to
// an active product of the expected category.
type InvalidReferenceError struct {
	Field  string // "mateId" or "bombillaId"
	ID     string
	Reason string
}

func (e *InvalidReferenceError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("invalid combo reference %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid combo reference %s=%s: %s", e.Field, e.ID, e.Reason)
}

func (e *InvalidReferenceError) Code() string { return CodeInvalidReference }

// ImmutableFieldError is returned when an update tries to change a field
// that is fixed after creation (category) or derived (combo stock).
type ImmutableFieldError struct {
	Field string
}

func (e *ImmutableFieldError) Error() string {
	return fmt.Sprintf("field %q cannot be changed", e.Field)
}

func (e *ImmutableFieldError) Code() string { return CodeImmutableField }

// ComboSummary identifies a combo blocking a deletion.
type ComboSummary struct {
	ID   primitive.ObjectID `json:"id"`
	Name string             `json:"name"`
}

type ReferencedByCombosError struct {
	ProductID primitive.ObjectID
	Combos    []ComboSummary
}

func (e *ReferencedByCombosError) Error() string {
	names := make([]string, 0, len(e.Combos))
	for _, c := range e.Combos {
		names = append(names, c.Name)
	}
	return fmt.Sprintf("product is used by %d combo(s): %s", len(e.Combos), strings.Join(names, ", "))
}

func (e *ReferencedByCombosError) Code() string { return CodeReferencedByCombos }

// ValidationError maps field names to the failed rule.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(fields map[string]string) *ValidationError {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for f, rule := range e.Fields {
		parts = append(parts, f+": "+rule)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Code() string { return CodeValidation }

type CategoryInUseError struct {
	Category       Category
	ActiveProducts int64
}

func (e *CategoryInUseError) Error() string {
	return fmt.Sprintf("category %s still has %d active product(s)", e.Category, e.ActiveProducts)
}

func (e *CategoryInUseError) Code() string { return CodeCategoryInUse }

// ErrorCode returns the code of a domain error, or "" for anything else.
func ErrorCode(err error) string {
	var coded interface{ Code() string }
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrNameTaken), errors.Is(err, ErrEmailTaken):
		return CodeNameTaken
	case errors.As(err, &coded):
		return coded.Code()
	}
	return ""
}
