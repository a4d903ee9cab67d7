package parser

import (
	"testing"

	"michaucha/internal/core"
)

func TestClassifyCategory(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Almuerzo 12 mil", "Almuerzo"},
		{"uber 5000", "Locomocion"},
		{"8000 en SUSHI", "Almuerzo"},
		{"cuenta de la luz 30000", "Luz"},
		{"recarga entel 5000", "Celular"},
		{"internet 20000", "Vtr"},
		{"le pasé 80000 al tío félix", "Tio felix"},
		{"seguro del auto 30000", "Seguro auto"},
		{"basura 4000", "Aseo"},
		{"compré ropa 15000", DefaultCategory},
		// arriendo is declared before almuerzo
		{"comida en la casa 5000", "Arriendo"},
	}
	for _, tc := range cases {
		if got := ClassifyCategory(tc.in); got != tc.want {
			t.Errorf("ClassifyCategory(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDisplayLabel(t *testing.T) {
	cases := map[string]string{
		"TIO_FELIX":   "Tio felix",
		"SEGURO_AUTO": "Seguro auto",
		"LUZ":         "Luz",
		"":            "",
	}
	for in, want := range cases {
		if got := displayLabel(in); got != want {
			t.Errorf("displayLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDetectPaymentMethod(t *testing.T) {
	cases := []struct {
		in   string
		want core.PaymentMethod
	}{
		{"almuerzo 5000 con visa", core.Visa},
		{"bencina 30000, usé la visa", core.Visa},
		{"pagado con tarjeta de crédito 9000", core.Visa},
		{"almuerzo 5000", core.Cash},
		{"visa 5000", core.Cash},
	}
	for _, tc := range cases {
		if got := DetectPaymentMethod(tc.in); got != tc.want {
			t.Errorf("DetectPaymentMethod(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}
