package dialogue

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var amountRe = regexp.MustCompile(`^(\d+\.?\d*|\.\d+)$`)

// Amounts must fit the NUMERIC(20, 8) purchase_records columns.
const (
	MaxAmountScale     = 8
	MaxAmountIntDigits = 12
)

// digitFolder maps Eastern Arabic and Persian digits to ASCII and the
// Arabic decimal separator (U+066B) to a comma.
var digitFolder = strings.NewReplacer(
	"٠", "0", "١", "1", "٢", "2", "٣", "3", "٤", "4",
	"٥", "5", "٦", "6", "٧", "7", "٨", "8", "٩", "9",
	"۰", "0", "۱", "1", "۲", "2", "۳", "3", "۴", "4",
	"۵", "5", "۶", "6", "۷", "7", "۸", "8", "۹", "9",
	"٫", ",",
)

// ParseAmount reads a positive decimal typed by a user. A comma is accepted as
// the decimal separator; more than one separator is rejected, so "1,234.5"
// is not a number here. At most 8 decimal places and 12 integer digits are
// accepted.
func ParseAmount(input string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(digitFolder.Replace(input))
	raw = strings.ReplaceAll(raw, ",", ".")
	if strings.Count(raw, ".") > 1 {
		return decimal.Decimal{}, ReasonMultipleSeparators
	}
	if !amountRe.MatchString(raw) {
		return decimal.Decimal{}, ReasonNotNumber
	}
	whole, frac, _ := strings.Cut(raw, ".")
	if len(strings.TrimRight(frac, "0")) > MaxAmountScale {
		return decimal.Decimal{}, ReasonTooPrecise
	}
	if len(strings.TrimLeft(whole, "0")) > MaxAmountIntDigits {
		return decimal.Decimal{}, ReasonTooLarge
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, ReasonNotNumber
	}
	if !v.IsPositive() {
		return decimal.Decimal{}, ReasonNotPositive
	}
	return v, nil
}
