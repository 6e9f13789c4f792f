package pricing

import (
	"strings"

	"github.com/shopspring/decimal"

	coreconfig "github.com/m3rciful/goldbot/core/config"
)

// TroyOunceGrams is the mass of one troy ounce, the unit upstream gold prices are quoted in.
var TroyOunceGrams = decimal.RequireFromString("31.1035")

// Grade is a gold purity classification such as 24K.
type Grade struct {
	ID     string
	Label  string
	Purity decimal.Decimal
}

// Unit is a mass unit users buy in, expressed in grams.
type Unit struct {
	ID    string
	Label string
	Grams decimal.Decimal
}

// Catalog lists the grades and units the bot prices, in display order.
type Catalog struct {
	Grades []Grade
	Units  []Unit
}

// CatalogFromConfig converts normalized config entries into a Catalog.
func CatalogFromConfig(cfg coreconfig.CatalogConfig) Catalog {
	cat := Catalog{
		Grades: make([]Grade, 0, len(cfg.Grades)),
		Units:  make([]Unit, 0, len(cfg.Units)),
	}
	for _, g := range cfg.Grades {
		cat.Grades = append(cat.Grades, Grade{ID: g.ID, Label: g.Label, Purity: decimal.NewFromFloat(g.Purity)})
	}
	for _, u := range cfg.Units {
		cat.Units = append(cat.Units, Unit{ID: u.ID, Label: u.Label, Grams: decimal.NewFromFloat(u.Grams)})
	}
	return cat
}

// Grade finds a grade by id or label, ignoring case and surrounding spaces.
func (c Catalog) Grade(key string) (Grade, bool) {
	key = strings.TrimSpace(key)
	for _, g := range c.Grades {
		if strings.EqualFold(g.ID, key) || strings.EqualFold(g.Label, key) {
			return g, true
		}
	}
	return Grade{}, false
}

// Unit finds a unit by id or label, ignoring case and surrounding spaces.
func (c Catalog) Unit(key string) (Unit, bool) {
	key = strings.TrimSpace(key)
	for _, u := range c.Units {
		if strings.EqualFold(u.ID, key) || strings.EqualFold(u.Label, key) {
			return u, true
		}
	}
	return Unit{}, false
}
