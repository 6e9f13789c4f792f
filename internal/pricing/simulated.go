package pricing

import (
	"context"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	coreconfig "github.com/m3rciful/goldbot/core/config"
)

// SimulatedSource produces demo quotes around a base ounce price.
type SimulatedSource struct {
	catalog  Catalog
	currency string
	base     decimal.Decimal
	jitter   float64
	rates    map[string]decimal.Decimal
	rnd      func() float64
	now      func() time.Time
}

// NewSimulatedSource builds a demo source; rates come from pricing.fx.static.
func NewSimulatedSource(cfg coreconfig.PricingConfig, cat Catalog) *SimulatedSource {
	rates := make(map[string]decimal.Decimal, len(cfg.FX.Static))
	for code, rate := range cfg.FX.Static {
		rates[strings.ToUpper(code)] = decimal.NewFromFloat(rate)
	}
	return &SimulatedSource{
		catalog:  cat,
		currency: cfg.Currency,
		base:     decimal.NewFromFloat(cfg.Simulated.BaseOunce),
		jitter:   cfg.Simulated.Jitter,
		rates:    rates,
		rnd:      rand.Float64,
		now:      time.Now,
	}
}

// Fetch returns base ± jitter rounded to cents. It never fails.
func (s *SimulatedSource) Fetch(context.Context) (Quote, error) {
	offset := decimal.NewFromFloat((s.rnd()*2 - 1) * s.jitter)
	ounce := s.base.Add(offset).Round(2)
	q, err := NewQuote(s.catalog, s.currency, ounce, s.now(), s.rates)
	if err != nil {
		return Quote{}, &FetchError{Source: "simulated", Kind: KindParse, Err: err}
	}
	return q, nil
}
