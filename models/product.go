package models

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Attributes is the category-specific payload of a product. Exactly one
// implementation exists per category, so a product can never carry the
// payload of another category.
type Attributes interface {
	Category() Category
	isAttributes()
}

// MateAttributes describes a mate. Optional trims are empty when absent.
type MateAttributes struct {
	Shape       string `bson:"shape" json:"shape" validate:"required,oneof=Camionero Imperial Torpedo"`
	Gourd       string `bson:"gourd" json:"gourd" validate:"required,oneof=Calabaza Algarrobo"`
	TopWidth    string `bson:"topWidth" json:"topWidth" validate:"required,oneof=Ancho Medio Angosto"`
	BottomWidth string `bson:"bottomWidth" json:"bottomWidth" validate:"required,oneof=Ancho Medio Angosto"`
	Ferrule     string `bson:"ferrule,omitempty" json:"ferrule,omitempty" validate:"omitempty,oneof=Acero Alpaca Bronce ETC"`
	Guard       string `bson:"guard,omitempty" json:"guard,omitempty" validate:"omitempty,oneof=Acero Alpaca Bronce ETC"`
	Coating     string `bson:"coating,omitempty" json:"coating,omitempty" validate:"omitempty,oneof='Cuero natural' Alpaca"`
	Curing      string `bson:"curing,omitempty" json:"curing,omitempty" validate:"omitempty,oneof='Curado de calabaza' 'Curado de alpaca'"`
	Finish      string `bson:"finish,omitempty" json:"finish,omitempty" validate:"omitempty,oneof=Brillante ETC"`
	Engraving   string `bson:"engraving,omitempty" json:"engraving,omitempty" validate:"omitempty,max=200"`
	Color       string `bson:"color,omitempty" json:"color,omitempty" validate:"omitempty,max=50"`
}

type BombillaAttributes struct {
	Shape       string  `bson:"shape" json:"shape" validate:"required,max=50"`
	Material    string  `bson:"material" json:"material" validate:"required,max=50"`
	Size        string  `bson:"size" json:"size" validate:"required,oneof=Larga Mediana Pequeña"`
	Centimeters float64 `bson:"centimeters,omitempty" json:"centimeters,omitempty" validate:"omitempty,min=1,max=50"`
}

// ComboRefs points a combo at the mate and bombilla it bundles.
type ComboRefs struct {
	MateID     primitive.ObjectID `bson:"mateId" json:"mateId"`
	BombillaID primitive.ObjectID `bson:"bombillaId" json:"bombillaId"`
}

func (MateAttributes) Category() Category     { return CategoryMate }
func (BombillaAttributes) Category() Category { return CategoryBombilla }
func (ComboRefs) Category() Category          { return CategoryCombo }

func (MateAttributes) isAttributes()     {}
func (BombillaAttributes) isAttributes() {}
func (ComboRefs) isAttributes()          {}

type Image struct {
	URL string `bson:"url" json:"url" validate:"required,url"`
	Alt string `bson:"alt,omitempty" json:"alt,omitempty" validate:"omitempty,max=120"`
}

// Product is a catalog item. For combos Stock is derived from the
// referenced mate and bombilla and is never taken from input.
type Product struct {
	ID            primitive.ObjectID
	Name          string
	Slug          string
	Category      Category
	Attributes    Attributes
	Stock         int
	PurchasePrice Money
	SalePrice     Money
	Active        bool
	Description   string
	Tags          []string
	Images        []Image
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (p Product) IsCombo() bool { return p.Category == CategoryCombo }

func (p Product) Mate() (MateAttributes, bool) {
	a, ok := p.Attributes.(MateAttributes)
	return a, ok
}

func (p Product) Bombilla() (BombillaAttributes, bool) {
	a, ok := p.Attributes.(BombillaAttributes)
	return a, ok
}

func (p Product) ComboRefs() (ComboRefs, bool) {
	a, ok := p.Attributes.(ComboRefs)
	return a, ok
}

// Profit is zero unless both prices are set.
func (p Product) Profit() Money {
	if p.PurchasePrice.IsZero() || p.SalePrice.IsZero() {
		return Money{}
	}
	return p.SalePrice.Sub(p.PurchasePrice)
}

// CheckAttributes reports a ValidationError when the payload is missing or
// belongs to another category.
func (p Product) CheckAttributes() error {
	if !p.Category.Valid() {
		return NewValidationError(map[string]string{"category": "oneof"})
	}
	if p.Attributes == nil {
		return NewValidationError(map[string]string{attributesField(p.Category): "required"})
	}
	if p.Attributes.Category() != p.Category {
		return NewValidationError(map[string]string{attributesField(p.Category): "category_mismatch"})
	}
	return nil
}

func attributesField(c Category) string {
	switch c {
	case CategoryMate:
		return "mate"
	case CategoryBombilla:
		return "bombilla"
	case CategoryCombo:
		return "combo"
	}
	return "attributes"
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases the name, drops accents and joins the remaining
// alphanumeric runs with dashes.
func Slugify(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, name)
	if err != nil {
		plain = name
	}
	s := slugInvalid.ReplaceAllString(strings.ToLower(plain), "-")
	return strings.Trim(s, "-")
}
