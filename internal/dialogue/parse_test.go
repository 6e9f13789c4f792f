package dialogue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	ok := map[string]string{
		"10":    "10",
		" 2.5 ": "2.5",
		"2,5":   "2.5",
		".5":    "0.5",
		"5.":    "5",
		"١٢٫٥":  "12.5",
		"۳,۲":   "3.2",

		"0.00000001":      "0.00000001",
		"1.500000000":     "1.5",
		"999999999999.5":  "999999999999.5",
		"000000000000012": "12",
	}
	for in, want := range ok {
		v, err := ParseAmount(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, v.String(), in)
	}

	bad := map[string]Reason{
		"":         ReasonNotNumber,
		"abc":      ReasonNotNumber,
		"-3":       ReasonNotNumber,
		"1e3":      ReasonNotNumber,
		"0":        ReasonNotPositive,
		"0.000":    ReasonNotPositive,
		"1,234.5":  ReasonMultipleSeparators,
		"1.2.3":    ReasonMultipleSeparators,
		"10 grams": ReasonNotNumber,

		"0.000000001":     ReasonTooPrecise,
		"1.123456789":     ReasonTooPrecise,
		"1000000000000":   ReasonTooLarge,
		"1234567890123.5": ReasonTooLarge,
	}
	for in, want := range bad {
		_, err := ParseAmount(in)
		assert.ErrorIs(t, err, want, in)
	}
}
