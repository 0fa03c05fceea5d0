package calculator

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	CategoryEssential = "essential"
	CategoryStandard  = "standard"
	CategoryReduced   = "reduced"
	CategoryPremium   = "premium"
	CategoryLuxury    = "luxury"
)

// Categories lists the categories in ascending rate order.
var Categories = []string{
	CategoryEssential,
	CategoryStandard,
	CategoryReduced,
	CategoryPremium,
	CategoryLuxury,
}

// Rates are percentages.
var categoryRates = map[string]decimal.Decimal{
	CategoryEssential: decimal.Zero,
	CategoryStandard:  decimal.NewFromInt(5),
	CategoryReduced:   decimal.NewFromInt(12),
	CategoryPremium:   decimal.NewFromInt(18),
	CategoryLuxury:    decimal.NewFromInt(28),
}

var ShippingRate = decimal.NewFromInt(5)

// nonTaxableShippingStates holds lower-cased state names whose shipping is
// exempt. None is configured.
var nonTaxableShippingStates = map[string]struct{}{}

// hsnCategories maps 4 digit HSN headings to a category.
var hsnCategories = map[string]string{
	"4901": CategoryEssential,
	"4902": CategoryEssential,
	"4903": CategoryEssential,
	"4904": CategoryEssential,
	"4905": CategoryEssential,
	"4820": CategoryReduced,
	"4817": CategoryReduced,
	"4911": CategoryPremium,
	"8523": CategoryPremium,
	"9504": CategoryLuxury,
}

// CategoryRate resolves category to a known category and its rate. Empty
// or unknown categories resolve to standard.
func CategoryRate(category string) (string, decimal.Decimal) {
	normalized := strings.ToLower(strings.TrimSpace(category))
	if rate, ok := categoryRates[normalized]; ok {
		return normalized, rate
	}
	return CategoryStandard, categoryRates[CategoryStandard]
}

// CategoryForHSN looks up the 4 digit heading of code; ok is false when the
// heading is unknown.
func CategoryForHSN(code string) (string, bool) {
	code = strings.TrimSpace(code)
	if len(code) < 4 {
		return "", false
	}
	category, ok := hsnCategories[code[:4]]
	return category, ok
}

func ShippingTaxable(state string) bool {
	_, exempt := nonTaxableShippingStates[strings.ToLower(strings.TrimSpace(state))]
	return !exempt
}
