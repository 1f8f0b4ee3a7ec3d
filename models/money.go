package models

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Money is a non-float monetary amount. It is stored as Decimal128 in Mongo,
// as numeric in SQL (decimal's Scanner/Valuer) and rendered as a bare JSON number.
type Money struct {
	decimal.Decimal
}

func NewMoney(v float64) Money {
	return Money{decimal.NewFromFloat(v)}
}

func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, err
	}
	return Money{d}, nil
}

func (m Money) Sub(o Money) Money { return Money{m.Decimal.Sub(o.Decimal)} }

func (m Money) MulInt(n int) Money { return Money{m.Decimal.Mul(decimal.NewFromInt(int64(n)))} }

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal.String()), nil
}

func (m Money) MarshalBSONValue() (bsontype.Type, []byte, error) {
	d, err := primitive.ParseDecimal128(m.Decimal.String())
	if err != nil {
		return 0, nil, fmt.Errorf("money to decimal128: %w", err)
	}
	return bson.MarshalValue(d)
}

// UnmarshalBSONValue accepts Decimal128 plus the numeric types older
// documents were written with.
func (m *Money) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}
	switch t {
	case bson.TypeDecimal128:
		d, err := decimal.NewFromString(raw.Decimal128().String())
		if err != nil {
			return err
		}
		m.Decimal = d
	case bson.TypeDouble:
		m.Decimal = decimal.NewFromFloat(raw.Double())
	case bson.TypeInt32:
		m.Decimal = decimal.NewFromInt32(raw.Int32())
	case bson.TypeInt64:
		m.Decimal = decimal.NewFromInt(raw.Int64())
	case bson.TypeNull, bson.TypeUndefined:
		m.Decimal = decimal.Zero
	default:
		return fmt.Errorf("cannot decode %s into Money", t)
	}
	return nil
}
