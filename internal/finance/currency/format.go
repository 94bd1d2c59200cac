// Package currency renders monetary amounts for display and export.
package currency

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var idPrinter = message.NewPrinter(language.Indonesian)
var enPrinter = message.NewPrinter(language.English)

// Format renders an amount with the conventional symbol and digit grouping
// for the currency: Indonesian grouping with an Rp prefix for IDR, US-style
// grouping with a dollar prefix for USD. Other codes fall back to the ISO
// code as prefix.
func Format(code string, amount float64) string {
	switch code {
	case "IDR":
		return idPrinter.Sprintf("Rp %v", number.Decimal(amount, number.MaxFractionDigits(0)))
	case "USD":
		return enPrinter.Sprintf("$%v", number.Decimal(amount, number.MinFractionDigits(2), number.MaxFractionDigits(2)))
	default:
		return fmt.Sprintf("%s %.2f", code, amount)
	}
}
