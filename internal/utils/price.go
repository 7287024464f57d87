package utils

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var vnd = message.NewPrinter(language.Vietnamese)

// FormatVND renders a price with Vietnamese digit grouping, e.g. "100.000 ₫".
// The dong has no minor unit so the amount is rounded to whole units.
func FormatVND(amount decimal.Decimal) string {
	return vnd.Sprintf("%d ₫", amount.Round(0).IntPart())
}

// FormatPrice is FormatVND for a price that may be missing.
func FormatPrice(p decimal.NullDecimal) string {
	if !p.Valid {
		return "N/A"
	}
	return FormatVND(p.Decimal)
}
