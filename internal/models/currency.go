package models

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// defaultTolerance applies to currencies go-money does not know.
var defaultTolerance = decimal.New(1, -2)

// NormalizeCurrency upper-cases and trims an ISO-4217 code.
func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidCurrency reports whether code is a known ISO-4217 currency.
func ValidCurrency(code string) bool {
	return money.GetCurrency(NormalizeCurrency(code)) != nil
}

// AnchorTolerance is the smallest adjustment worth writing as an anchor:
// one minor unit of the currency (0.01 USD, 1 JPY, 0.001 KWD).
func AnchorTolerance(code string) decimal.Decimal {
	cur := money.GetCurrency(NormalizeCurrency(code))
	if cur == nil {
		return defaultTolerance
	}
	return decimal.New(1, -int32(cur.Fraction))
}
