// Package currency holds the conversion layer: the fixed base currency in
// which amounts are stored, the user-selected target used for display, and
// the exchange-rate service feeding it.
package currency

// Currency pairs an ISO code with its display glyph and the multiplier from
// the base currency to it.
type Currency struct {
	ID     string  `json:"id"`
	Symbol string  `json:"symbol"`
	Rate   float64 `json:"rate"`
}

// Convert maps a stored base-currency amount to the target currency. The
// result is unrounded; core.RoundDisplay is applied once, at the end of each
// aggregation, so summing converted amounts and converting a summed total
// agree.
func Convert(baseAmount, targetRate float64) float64 {
	return baseAmount * targetRate
}

// fallbackSymbol is used for codes without a known glyph.
const fallbackSymbol = "$"

var symbols = map[string]string{
	"INR": "₹",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"CAD": "CA$",
	"AUD": "A$",
}

// SymbolFor resolves the display glyph for an ISO code.
func SymbolFor(code string) string {
	if s, ok := symbols[code]; ok {
		return s
	}
	return fallbackSymbol
}

// Info describes a selectable currency.
type Info struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Country string `json:"country"`
}

// Catalog lists the currencies offered for selection.
var Catalog = []Info{
	{Code: "EUR", Name: "Euro", Country: "Europe"},
	{Code: "USD", Name: "US Dollar", Country: "United States"},
	{Code: "GBP", Name: "British Pound", Country: "United Kingdom"},
	{Code: "CAD", Name: "Canadian Dollar", Country: "Canada"},
	{Code: "AUD", Name: "Australian Dollar", Country: "Australia"},
	{Code: "JPY", Name: "Japanese Yen", Country: "Japan"},
	{Code: "INR", Name: "Indian Rupee", Country: "India"},
}
