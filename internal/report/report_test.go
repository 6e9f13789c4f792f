package report

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/goldbot/internal/pricing"
	"github.com/m3rciful/goldbot/internal/profit"
)

func testQuote(t *testing.T, rates map[string]decimal.Decimal) pricing.Quote {
	t.Helper()
	cat := pricing.Catalog{
		Grades: []pricing.Grade{
			{ID: "24", Label: "24K", Purity: decimal.NewFromInt(1)},
			{ID: "21", Label: "21K", Purity: decimal.RequireFromString("0.875")},
		},
		Units: []pricing.Unit{
			{ID: "gram", Label: "Gram", Grams: decimal.NewFromInt(1)},
			{ID: "mithqal", Label: "Mithqal", Grams: decimal.NewFromInt(5)},
		},
	}
	q, err := pricing.NewQuote(cat, "USD", decimal.RequireFromString("1950.50"), time.Now(), rates)
	require.NoError(t, err)
	return q
}

var unitLine = regexp.MustCompile("▫️ ([^:]+): `([0-9.]+)` USD")

func TestFormatQuoteRoundTrip(t *testing.T) {
	q := testQuote(t, nil)
	text := FormatQuote(q, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), "")

	matches := unitLine.FindAllStringSubmatch(text, -1)
	require.Len(t, matches, 4)

	i := 0
	for _, g := range q.Grades {
		for _, u := range g.Units {
			assert.Equal(t, u.Unit.Label, matches[i][1])
			parsed := decimal.RequireFromString(matches[i][2])
			assert.True(t, parsed.Equal(u.Amount.Round(2)), "%s %s: %s", g.Grade.ID, u.Unit.ID, parsed)
			i++
		}
	}
	assert.Contains(t, text, "2026-03-01 09:00")
	assert.Contains(t, text, "`1950.50` USD")
}

func TestFormatQuoteRatesUseThousandsSeparator(t *testing.T) {
	q := testQuote(t, map[string]decimal.Decimal{"IQD": decimal.NewFromInt(14580)})
	text := FormatQuote(q, time.Now(), "")

	// 1950.50 / 31.1035 * 14580 = 914311.57
	assert.Contains(t, text, "💱 Gram in IQD: `914,312` IQD")
	assert.Equal(t, 2, strings.Count(text, "Gram in IQD"))
}

func TestFormatQuoteEscapesAnnotation(t *testing.T) {
	text := FormatQuote(testQuote(t, nil), time.Now(), "tap *refresh* for_now")
	assert.True(t, strings.HasSuffix(text, `_tap \*refresh\* for\_now_`), text)
}

func TestFormatProfit(t *testing.T) {
	res := profit.Result{
		Record:            profit.PurchaseRecord{Quantity: decimal.NewFromInt(10)},
		CurrentUnitPrice:  decimal.RequireFromString("65.25"),
		PurchaseUnitPrice: decimal.NewFromInt(60),
		Profit:            decimal.RequireFromString("52.5"),
		Direction:         profit.Gain,
		Currency:          "USD",
	}
	text := FormatProfit(res, "24K", "Gram")
	assert.Contains(t, text, "profit")
	assert.Contains(t, text, "24K, 10 Gram")
	assert.Contains(t, text, "`+52.50` USD")

	res.Profit = decimal.NewFromInt(-50)
	res.Direction = profit.Loss
	assert.Contains(t, FormatProfit(res, "24K", "Gram"), "`-50.00` USD")
}

func TestFormatHoldingsEmpty(t *testing.T) {
	assert.Contains(t, FormatHoldings(nil), "/profit")
	assert.Contains(t, FormatHoldings([]string{"a", "b"}), "a\n\nb")
}
