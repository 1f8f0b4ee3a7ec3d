package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Category string

const (
	CategoryMate     Category = "mates"
	CategoryBombilla Category = "bombillas"
	CategoryCombo    Category = "combos"
)

// Categories lists the closed set in display order.
var Categories = []Category{CategoryMate, CategoryBombilla, CategoryCombo}

// ParseCategory accepts the stored plural form and the singular alias.
func ParseCategory(s string) (Category, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mates", "mate":
		return CategoryMate, true
	case "bombillas", "bombilla":
		return CategoryBombilla, true
	case "combos", "combo":
		return CategoryCombo, true
	}
	return "", false
}

func (c Category) Valid() bool {
	switch c {
	case CategoryMate, CategoryBombilla, CategoryCombo:
		return true
	}
	return false
}

// CategoryInfo is the editable metadata attached to each category.
type CategoryInfo struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        Category           `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Active      bool               `bson:"active" json:"active"`
	Order       int                `bson:"order" json:"order"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// DefaultCategories returns the seed set written on first start.
func DefaultCategories() []CategoryInfo {
	return []CategoryInfo{
		{Name: CategoryMate, Description: "Mates de calabaza y algarrobo", Active: true, Order: 1},
		{Name: CategoryBombilla, Description: "Bombillas de acero, alpaca y bronce", Active: true, Order: 2},
		{Name: CategoryCombo, Description: "Combos de mate y bombilla", Active: true, Order: 3},
	}
}
