package services

import (
	"math"
	"strings"
	"time"
)

// Heuristic unit price per part, USD
const pricePerPart = 0.11

// themeMultipliers is checked in order; the first keyword found in the name wins
var themeMultipliers = []struct {
	keywords   []string
	multiplier float64
}{
	{[]string{"star wars"}, 1.4},
	{[]string{"harry potter"}, 1.3},
	{[]string{"technic"}, 1.2},
	{[]string{"creator", "ideas"}, 1.15},
	{[]string{"city"}, 1.1},
}

// ageMultipliers is checked in order; the first threshold exceeded wins.
// Tiers are exclusive, not cumulative: a 25 year old set gets 1.8, never 1.3*1.8.
var ageMultipliers = []struct {
	olderThan  int
	multiplier float64
}{
	{30, 2.5},
	{20, 1.8},
	{10, 1.3},
}

// EstimatePrice computes a fallback USD price from part count, release year and name.
// Used only when no live marketplace price is available.
func EstimatePrice(numParts, year int, name string) float64 {
	return estimatePriceAt(numParts, year, name, time.Now().Year())
}

func estimatePriceAt(numParts, year int, name string, currentYear int) float64 {
	if numParts < 0 {
		numParts = 0
	}
	price := float64(numParts) * pricePerPart
	price *= themeMultiplier(name)
	if year > 0 {
		price *= ageMultiplier(currentYear - year)
	}
	return roundCents(price)
}

func themeMultiplier(name string) float64 {
	lower := strings.ToLower(name)
	for _, t := range themeMultipliers {
		for _, kw := range t.keywords {
			if strings.Contains(lower, kw) {
				return t.multiplier
			}
		}
	}
	return 1.0
}

func ageMultiplier(age int) float64 {
	for _, a := range ageMultipliers {
		if age > a.olderThan {
			return a.multiplier
		}
	}
	return 1.0
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
