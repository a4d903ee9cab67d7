package parser

import "strings"

// keywordRule maps an internal category key to the substrings that select it.
type keywordRule struct {
	Key      string
	Keywords []string
}

const (
	keyArriendo   = "ARRIENDO"
	keyAlmuerzo   = "ALMUERZO"
	keyLocomocion = "LOCOMOCION"
	keyLuz        = "LUZ"
	keyCelular    = "CELULAR"
	keyAseo       = "ASEO"
	keyVTR        = "VTR"
	keyTioFelix   = "TIO_FELIX"
	keySeguroAuto = "SEGURO_AUTO"
)

// categoryRules is evaluated top to bottom. Order matters.
var categoryRules = []keywordRule{
	{keyArriendo, []string{"arriendo", "depósito", "casa", "depto", "departamento"}},
	{keyAlmuerzo, []string{"almuerzo", "comida", "restaurante", "colación", "sushi", "pizza", "hamburguesa", "mcdonalds", "burger"}},
	{keyLocomocion, []string{"locomoción", "uber", "didi", "cabify", "bus", "metro", "bencina", "estacionamiento", "peaje", "copec", "shell"}},
	{keyLuz, []string{"luz", "electricidad", "enel", "cge"}},
	{keyCelular, []string{"celular", "plan", "recarga", "entel", "wom", "movistar", "claro"}},
	{keyAseo, []string{"aseo", "municipal", "basura"}},
	{keyVTR, []string{"vtr", "internet", "cable", "wifi"}},
	{keyTioFelix, []string{"tío félix", "tío felix", "felix"}},
	{keySeguroAuto, []string{"seguro auto", "seguro del auto"}},
}

// DefaultCategory is returned when no keyword matches.
const DefaultCategory = "Gastos varios"

// matchRule returns the first rule with a keyword contained in lower.
func matchRule(rules []keywordRule, lower string) (keywordRule, bool) {
	for _, rule := range rules {
		if containsAny(lower, rule.Keywords) {
			return rule, true
		}
	}
	return keywordRule{}, false
}

// ClassifyCategory returns the display label of the first matching category,
// or DefaultCategory.
func ClassifyCategory(text string) string {
	rule, ok := matchRule(categoryRules, strings.ToLower(text))
	if !ok {
		return DefaultCategory
	}
	return displayLabel(rule.Key)
}

// displayLabel formats a key as "First rest": TIO_FELIX -> "Tio felix".
func displayLabel(key string) string {
	if key == "" {
		return ""
	}
	label := key[:1] + strings.ToLower(key[1:])
	return strings.Replace(label, "_", " ", 1)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
