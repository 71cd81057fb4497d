// Package core provides the domain model of the trip-expense tracker:
// trips, expenses, budgets and amount parsing/formatting helpers.
//
// Amounts are plain float64 values in the base currency. Stored values are
// never rounded; RoundDisplay is applied exactly once, at the final step of
// each aggregation, so that rounding error never compounds.
package core

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// ParseAmount converts a decimal string to a base-currency amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators.
// Returns an error for invalid formats and negative values. Zero is a valid
// amount.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("-5")    -> 0, ErrInvalidAmount
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		// Only unsigned values allowed
		return 0, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	for _, part := range parts {
		for _, r := range part {
			if !unicode.IsDigit(r) {
				return 0, ErrInvalidAmount
			}
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if err := validAmount(v); err != nil {
		return 0, err
	}
	return v, nil
}

// RoundDisplay rounds a converted amount to 2 decimal places for display.
// It must never be applied to stored values.
func RoundDisplay(v float64) float64 {
	return math.Round(v*100) / 100
}

// FormatAmount renders a display amount with its currency symbol,
// e.g. FormatAmount("$", 12) -> "$12.00".
func FormatAmount(symbol string, v float64) string {
	return symbol + strconv.FormatFloat(RoundDisplay(v), 'f', 2, 64)
}
