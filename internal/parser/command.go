package parser

import "strings"

// ActionPay is the only fixed payment action.
const ActionPay = "PAY"

// FixedPaymentCommand acknowledges payment of a named fixed expense.
type FixedPaymentCommand struct {
	ExpenseName string `json:"expenseName"`
	Action      string `json:"action"`
}

var acknowledgmentKeywords = []string{"pagar", "pagué", "pagado", "listo", "check", "ya pagué"}

// fixedExpenseNames maps category keys to fixed expense names. VTR is billed
// as "Internet".
var fixedExpenseNames = map[string]string{
	keyArriendo:   "Arriendo",
	keyAlmuerzo:   "Almuerzos",
	keyLocomocion: "Locomocion",
	keyLuz:        "Luz",
	keyCelular:    "Celular",
	keyVTR:        "Internet",
	keyTioFelix:   "Tio Felix",
	keySeguroAuto: "Seguro Auto",
	keyAseo:       "Aseo",
}

// DetectFixedPayment recognises "Arriendo pagado" style acknowledgments. It
// must run before amount extraction since these utterances carry no amount.
func DetectFixedPayment(text string) (FixedPaymentCommand, bool) {
	lower := strings.ToLower(text)
	if !containsAny(lower, acknowledgmentKeywords) {
		return FixedPaymentCommand{}, false
	}

	rule, ok := matchRule(categoryRules, lower)
	if !ok {
		return FixedPaymentCommand{}, false
	}

	name, ok := fixedExpenseNames[rule.Key]
	if !ok {
		name = displayLabel(rule.Key)
	}
	return FixedPaymentCommand{ExpenseName: name, Action: ActionPay}, true
}
