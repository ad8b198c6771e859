package models

import "strings"

// PriceCondition is a BrickLink price guide condition
type PriceCondition string

const (
	PriceConditionNew  PriceCondition = "N"
	PriceConditionUsed PriceCondition = "U"
)

// DefaultCurrency is used whenever a profile has no currency preference.
// The price heuristic is always denominated in it.
const DefaultCurrency = "USD"

// AllPriceConditions returns all BrickLink price guide conditions
func AllPriceConditions() []PriceCondition {
	return []PriceCondition{PriceConditionNew, PriceConditionUsed}
}

// Label returns the human-readable condition name
func (c PriceCondition) Label() string {
	switch c {
	case PriceConditionNew:
		return "new"
	case PriceConditionUsed:
		return "used"
	default:
		return "unknown"
	}
}

// ParsePriceCondition maps user-facing condition strings to a PriceCondition.
// Returns "" for unknown values.
func ParsePriceCondition(s string) PriceCondition {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "n", "new", "sealed", "misb":
		return PriceConditionNew
	case "u", "used", "built":
		return PriceConditionUsed
	default:
		return ""
	}
}

// NormalizeCurrency uppercases a currency code and falls back to DefaultCurrency
// when the value is not a 3-letter code.
func NormalizeCurrency(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 3 {
		return DefaultCurrency
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return DefaultCurrency
		}
	}
	return code
}
