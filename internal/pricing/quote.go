package pricing

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// UnitPrice is the price of one unit of a grade.
type UnitPrice struct {
	Unit   Unit
	Amount decimal.Decimal
}

// GradePrices holds the unit prices of one grade in catalog order.
type GradePrices struct {
	Grade Grade
	Units []UnitPrice
}

// Quote is a complete snapshot of prices derived from one fetched ounce price.
// Rates maps extra currency codes to their amount per one unit of Currency.
type Quote struct {
	Currency   string
	FetchedAt  time.Time
	OuncePrice decimal.Decimal
	Grades     []GradePrices
	Rates      map[string]decimal.Decimal
}

var (
	errNonPositivePrice = errors.New("ounce price must be positive")
	errEmptyCatalog     = errors.New("catalog has no grades or units")
)

// NewQuote derives every grade and unit price from the 24K troy ounce price
// as ounce / 31.1035 * purity * grams.
func NewQuote(cat Catalog, currency string, ounce decimal.Decimal, fetchedAt time.Time, rates map[string]decimal.Decimal) (Quote, error) {
	if !ounce.IsPositive() {
		return Quote{}, errNonPositivePrice
	}
	if len(cat.Grades) == 0 || len(cat.Units) == 0 {
		return Quote{}, errEmptyCatalog
	}
	for code, rate := range rates {
		if !rate.IsPositive() {
			return Quote{}, fmt.Errorf("rate %s must be positive", code)
		}
	}

	perGram := ounce.Div(TroyOunceGrams)
	q := Quote{
		Currency:   currency,
		FetchedAt:  fetchedAt,
		OuncePrice: ounce,
		Grades:     make([]GradePrices, 0, len(cat.Grades)),
		Rates:      rates,
	}
	for _, g := range cat.Grades {
		gp := GradePrices{Grade: g, Units: make([]UnitPrice, 0, len(cat.Units))}
		gradeGram := perGram.Mul(g.Purity)
		for _, u := range cat.Units {
			gp.Units = append(gp.Units, UnitPrice{Unit: u, Amount: gradeGram.Mul(u.Grams)})
		}
		q.Grades = append(q.Grades, gp)
	}
	return q, nil
}

// Price returns the price of one unit of the given grade.
func (q Quote) Price(gradeID, unitID string) (decimal.Decimal, bool) {
	for _, g := range q.Grades {
		if g.Grade.ID != gradeID {
			continue
		}
		for _, u := range g.Units {
			if u.Unit.ID == unitID {
				return u.Amount, true
			}
		}
	}
	return decimal.Decimal{}, false
}

// RateCodes returns the extra currency codes in alphabetical order.
func (q Quote) RateCodes() []string {
	codes := make([]string, 0, len(q.Rates))
	for code := range q.Rates {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
