// Package report renders quotes and profit results as Telegram Markdown.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"github.com/m3rciful/goldbot/core/telegram/format"
	"github.com/m3rciful/goldbot/internal/pricing"
	"github.com/m3rciful/goldbot/internal/profit"
)

const dateLayout = "2006-01-02 15:04"

// FormatQuote renders every grade and unit the quote carries. Extra currency
// rates print as whole amounts per gram of each grade.
func FormatQuote(q pricing.Quote, date time.Time, annotation string) string {
	var b strings.Builder
	b.WriteString("💰 *Gold price update* 💰\n")
	fmt.Fprintf(&b, "🗓 %s\n", date.Format(dateLayout))
	fmt.Fprintf(&b, "🔸 *Ounce:* `%s` %s\n", money(q.OuncePrice), q.Currency)

	codes := q.RateCodes()
	for _, g := range q.Grades {
		fmt.Fprintf(&b, "\n*%s*\n", format.Markdown(g.Grade.Label))
		for _, u := range g.Units {
			fmt.Fprintf(&b, "▫️ %s: `%s` %s\n", format.Markdown(u.Unit.Label), money(u.Amount), q.Currency)
		}
		if len(codes) == 0 {
			continue
		}
		gram := q.OuncePrice.Div(pricing.TroyOunceGrams).Mul(g.Grade.Purity)
		for _, code := range codes {
			fmt.Fprintf(&b, "💱 Gram in %s: `%s` %s\n", code, whole(gram.Mul(q.Rates[code])), code)
		}
	}

	if annotation = strings.TrimSpace(annotation); annotation != "" {
		fmt.Fprintf(&b, "\n_%s_", format.Markdown(annotation))
	}
	return strings.TrimRight(b.String(), "\n")
}

// Unavailable is sent instead of a quote when the price source failed.
func Unavailable() string {
	return "⚠️ Gold prices are unavailable right now. Please try again later."
}

// FormatProfit renders one valued purchase.
func FormatProfit(res profit.Result, gradeLabel, unitLabel string) string {
	var b strings.Builder
	switch res.Direction {
	case profit.Gain:
		b.WriteString("📈 *You are in profit*\n")
	case profit.Loss:
		b.WriteString("📉 *You are at a loss*\n")
	default:
		b.WriteString("⚖️ *You are at breakeven*\n")
	}
	rec := res.Record
	fmt.Fprintf(&b, "%s, %s %s\n", format.Markdown(gradeLabel), rec.Quantity.String(), format.Markdown(unitLabel))
	fmt.Fprintf(&b, "Paid per unit: `%s` %s\n", money(res.PurchaseUnitPrice), res.Currency)
	fmt.Fprintf(&b, "Current per unit: `%s` %s\n", money(res.CurrentUnitPrice), res.Currency)
	fmt.Fprintf(&b, "Result: `%s` %s", signed(res.Profit), res.Currency)
	return b.String()
}

// FormatHoldings renders a user's saved purchases, one block per result.
func FormatHoldings(blocks []string) string {
	if len(blocks) == 0 {
		return "You have no saved purchases yet. Use /profit to add one."
	}
	return "🪙 *Your gold*\n\n" + strings.Join(blocks, "\n\n")
}

func money(v decimal.Decimal) string {
	return v.StringFixed(2)
}

func signed(v decimal.Decimal) string {
	if v.IsPositive() {
		return "+" + money(v)
	}
	return money(v)
}

func whole(v decimal.Decimal) string {
	return humanize.Comma(v.Round(0).IntPart())
}
