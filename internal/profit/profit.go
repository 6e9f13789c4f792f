// Package profit computes gain or loss on a saved gold purchase.
package profit

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/m3rciful/goldbot/internal/pricing"
)

// Direction tells whether a position is up, down or flat.
type Direction string

const (
	Gain      Direction = "gain"
	Loss      Direction = "loss"
	Breakeven Direction = "breakeven"
)

// resultPlaces keeps tiny float artifacts from hiding a breakeven.
const resultPlaces = 8

// ErrNoPrice is returned when the quote does not carry the record's grade and unit.
var ErrNoPrice = errors.New("profit: quote has no price for record")

// PurchaseRecord is one saved purchase; at most one per user and grade.
type PurchaseRecord struct {
	UserID    int64
	Grade     string
	Unit      string
	Quantity  decimal.Decimal
	Total     decimal.Decimal
	CreatedAt time.Time
}

// UnitPrice is what the user paid per unit.
func (r PurchaseRecord) UnitPrice() decimal.Decimal {
	return r.Total.Div(r.Quantity)
}

// Validate reports whether the record can be priced.
func (r PurchaseRecord) Validate() error {
	if r.Grade == "" || r.Unit == "" {
		return fmt.Errorf("profit: record for user %d has no grade or unit", r.UserID)
	}
	if !r.Quantity.IsPositive() {
		return fmt.Errorf("profit: quantity must be positive, got %s", r.Quantity)
	}
	if !r.Total.IsPositive() {
		return fmt.Errorf("profit: total must be positive, got %s", r.Total)
	}
	return nil
}

// Result is a record valued against a quote.
type Result struct {
	Record            PurchaseRecord
	CurrentUnitPrice  decimal.Decimal
	PurchaseUnitPrice decimal.Decimal
	Profit            decimal.Decimal
	Direction         Direction
	Currency          string
	QuotedAt          time.Time
}

// Compute values rec against q: (current - total/quantity) * quantity.
func Compute(rec PurchaseRecord, q pricing.Quote) (Result, error) {
	if err := rec.Validate(); err != nil {
		return Result{}, err
	}
	current, ok := q.Price(rec.Grade, rec.Unit)
	if !ok {
		return Result{}, fmt.Errorf("%w: grade %s unit %s", ErrNoPrice, rec.Grade, rec.Unit)
	}

	paid := rec.UnitPrice()
	amount := current.Sub(paid).Mul(rec.Quantity).Round(resultPlaces)

	res := Result{
		Record:            rec,
		CurrentUnitPrice:  current,
		PurchaseUnitPrice: paid,
		Profit:            amount,
		Currency:          q.Currency,
		QuotedAt:          q.FetchedAt,
	}
	switch amount.Sign() {
	case 1:
		res.Direction = Gain
	case -1:
		res.Direction = Loss
	default:
		res.Direction = Breakeven
	}
	return res, nil
}
