package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type StockOperation string

const (
	StockAdd      StockOperation = "add"
	StockSubtract StockOperation = "subtract"
	StockSet      StockOperation = "set"
	// StockCascade marks a combo recomputed after one of its components changed.
	StockCascade StockOperation = "cascade"
)

// Apply returns the stock resulting from applying op to current.
// Subtraction floors at zero.
func (op StockOperation) Apply(current, quantity int) (int, bool) {
	switch op {
	case StockAdd:
		return current + quantity, true
	case StockSubtract:
		return max(0, current-quantity), true
	case StockSet:
		return quantity, true
	}
	return current, false
}

// StockMovement records every change to a product's stock.
type StockMovement struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProductID primitive.ObjectID `bson:"productId" json:"productId"`
	Operation StockOperation     `bson:"operation" json:"operation"`
	Quantity  int                `bson:"quantity" json:"quantity"`
	Previous  int                `bson:"previous" json:"previous"`
	New       int                `bson:"new" json:"new"`
	Reason    string             `bson:"reason,omitempty" json:"reason,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
