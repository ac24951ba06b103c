package provider

import (
	"strings"

	"github.com/shopspring/decimal"
)

// zeroDecimalCurrencies have no minor unit: the provider takes whole
// currency amounts.
var zeroDecimalCurrencies = map[string]bool{
	"jpy": true,
}

var hundred = decimal.NewFromInt(100)

// MinorUnits converts a decimal amount to the provider's smallest currency
// unit (19.99 USD -> 1999, 500 JPY -> 500).
func MinorUnits(amount decimal.Decimal, currency string) int64 {
	if zeroDecimalCurrencies[strings.ToLower(currency)] {
		return amount.Round(0).IntPart()
	}
	return amount.Mul(hundred).Round(0).IntPart()
}

// AmountFromMinor converts a provider minor-unit amount back to a decimal.
func AmountFromMinor(minor int64, currency string) decimal.Decimal {
	d := decimal.NewFromInt(minor)
	if zeroDecimalCurrencies[strings.ToLower(currency)] {
		return d
	}
	return d.Div(hundred)
}
