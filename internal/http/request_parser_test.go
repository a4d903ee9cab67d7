package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"michaucha/internal/core"
)

func TestRequestBodyParser(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		key     string
		want    string
		wantHas bool
	}{
		{"json string", `{"text":"almuerzo 5000"}`, "text", "almuerzo 5000", true},
		{"json number", `{"amount":5000}`, "amount", "5000", true},
		{"json bool", `{"isPaid":false}`, "isPaid", "false", true},
		{"json missing", `{"a":"b"}`, "text", "", false},
		{"form", "text=pan+1500&x=1", "text", "pan 1500", true},
		{"control chars stripped", `{"text":" pan\u0007 1500 "}`, "text", "pan 1500", true},
		{"empty body", "", "text", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			p := NewRequestBodyParser(r)
			if err := p.Parse(); err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if got := p.Get(tt.key); got != tt.want {
				t.Errorf("Get(%q) = %q, want %q", tt.key, got, tt.want)
			}
			if got := p.Has(tt.key); got != tt.wantHas {
				t.Errorf("Has(%q) = %v, want %v", tt.key, got, tt.wantHas)
			}
		})
	}
}

func TestRequestBodyParser_MalformedJSON(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"text":`))
	err := NewRequestBodyParser(r).Parse()
	var br badRequest
	if !errors.As(err, &br) {
		t.Fatalf("Parse() error = %v, want badRequest", err)
	}
}

func TestRequestBodyParser_Typed(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":"12000","isPaid":"on","bad":"x"}`))
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		t.Fatal(err)
	}

	if v, err := p.Int64("amount"); err != nil || v != 12000 {
		t.Errorf("Int64(amount) = %d, %v", v, err)
	}
	if _, err := p.Int64("missing"); err == nil {
		t.Error("Int64(missing) should fail")
	}
	if _, err := p.Int64("bad"); err == nil {
		t.Error("Int64(bad) should fail")
	}
	if v, err := p.Bool("isPaid"); err != nil || !v {
		t.Errorf("Bool(isPaid) = %v, %v", v, err)
	}
	if v, err := p.Bool("missing"); err != nil || v {
		t.Errorf("Bool(missing) = %v, %v", v, err)
	}
	if _, err := p.Bool("bad"); err == nil {
		t.Error("Bool(bad) should fail")
	}
}

func TestOptionalID(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantNil bool
		wantErr bool
	}{
		{"", 0, true, false},
		{"12", 12, false, false},
		{"0", 0, false, true},
		{"-3", 0, false, true},
		{"abc", 0, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := optionalID(url.Values{"period": {tt.raw}}, "period")
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if tt.wantNil {
				if got != nil {
					t.Errorf("got %d, want nil", *got)
				}
				return
			}
			if got == nil || *got != tt.want {
				t.Errorf("got %v, want %d", got, tt.want)
			}
		})
	}
}

func TestOptionalMethod(t *testing.T) {
	m, err := optionalMethod(url.Values{"method": {"visa"}})
	if err != nil || m == nil || *m != core.Visa {
		t.Errorf("optionalMethod(visa) = %v, %v", m, err)
	}
	if m, err := optionalMethod(url.Values{}); err != nil || m != nil {
		t.Errorf("optionalMethod() = %v, %v", m, err)
	}
	if _, err := optionalMethod(url.Values{"method": {"cheque"}}); !errors.Is(err, core.ErrInvalidPaymentMethod) {
		t.Errorf("optionalMethod(cheque) error = %v", err)
	}
}

func TestParseDate(t *testing.T) {
	loc := time.FixedZone("CLT", -3*3600)

	got, err := parseDate("2024-03-05", loc)
	if err != nil {
		t.Fatal(err)
	}
	if want := time.Date(2024, 3, 5, 0, 0, 0, 0, loc); !got.Equal(want) {
		t.Errorf("parseDate = %v, want %v", got, want)
	}

	got, err = parseDate("2024-03-05T10:00:00Z", loc)
	if err != nil || got.Hour() != 10 {
		t.Errorf("parseDate(RFC3339) = %v, %v", got, err)
	}

	if got, err := parseDate("", loc); err != nil || !got.IsZero() {
		t.Errorf("parseDate(empty) = %v, %v", got, err)
	}
	if _, err := parseDate("05/03/2024", loc); err == nil {
		t.Error("parseDate should reject dd/mm/yyyy")
	}
}
