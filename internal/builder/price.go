package builder

import (
	"math"
	"strconv"
	"strings"

	"github.com/marco-pm/zencart-typesense/internal/domain"
)

// DisplayPrice converts a base price into the given currency and formats it
// for display with the currency's symbols and separators. The currency is an
// explicit parameter; there is no ambient "active currency" state.
func DisplayPrice(price float64, cur domain.Currency) string {
	converted := price * cur.ExchangeRate
	return cur.SymbolLeft + formatNumber(converted, int(cur.DecimalPlaces), cur.DecimalPoint, cur.ThousandsPoint) + cur.SymbolRight
}

// formatNumber renders value with the given number of decimals, decimal
// point, and thousands separator. Rounding is half away from zero.
func formatNumber(value float64, decimals int, decimalPoint, thousandsPoint string) string {
	if decimals < 0 {
		decimals = 0
	}

	negative := math.Signbit(value)
	abs := math.Abs(value)

	// math.Round ties away from zero; FormatFloat alone would round ties to
	// even.
	scale := math.Pow(10, float64(decimals))
	abs = math.Round(abs*scale) / scale

	s := strconv.FormatFloat(abs, 'f', decimals, 64)

	intPart := s
	fracPart := ""
	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		intPart = s[:idx]
		fracPart = s[idx+1:]
	}

	var grouped strings.Builder
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteString(thousandsPoint)
		}
		grouped.WriteRune(digit)
	}

	out := grouped.String()
	if decimals > 0 {
		out += decimalPoint + fracPart
	}
	if negative && abs != 0 {
		out = "-" + out
	}
	return out
}
