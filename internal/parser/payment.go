package parser

import (
	"strings"

	"michaucha/internal/core"
)

var visaPhrases = []string{"con visa", "pagué con visa", "tarjeta de crédito", "usé la visa"}

// DetectPaymentMethod returns VISA when a card phrase is present, CASH
// otherwise.
func DetectPaymentMethod(text string) core.PaymentMethod {
	if containsAny(strings.ToLower(text), visaPhrases) {
		return core.Visa
	}
	return core.Cash
}
