package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"michaucha/internal/core"
	"michaucha/internal/lock"
)

func TestResponseBuilder_JSON(t *testing.T) {
	w := httptest.NewRecorder()

	NewResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/transactions/7").
		JSON(map[string]int{"id": 7}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if got := w.Header().Get("Location"); got != "/api/transactions/7" {
		t.Errorf("Location = %q", got)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q", ct)
	}
	if strings.TrimSpace(w.Body.String()) != `{"id":7}` {
		t.Errorf("Body = %q", w.Body.String())
	}
}

func TestResponseBuilder_UnencodableJSON(t *testing.T) {
	w := httptest.NewRecorder()
	NewResponse().JSON(map[string]any{"ch": make(chan int)}).Write(w)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status code = %d, want 500", w.Code)
	}
}

func TestResponseBuilder_XML(t *testing.T) {
	w := httptest.NewRecorder()
	NewResponse().XML("<Response/>").Write(w)

	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/xml") {
		t.Errorf("Content-Type = %q", ct)
	}
	if w.Body.String() != "<Response/>" {
		t.Errorf("Body = %q", w.Body.String())
	}
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name string
		b    *ResponseBuilder
		code int
		msg  string
	}{
		{"bad request", BadRequestError("nope"), http.StatusBadRequest, "nope"},
		{"not found", NotFoundError("missing"), http.StatusNotFound, "missing"},
		{"custom", ErrorResponse(http.StatusTeapot, "tea"), http.StatusTeapot, "tea"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.b.Write(w)
			if w.Code != tt.code {
				t.Errorf("Status code = %d, want %d", w.Code, tt.code)
			}
			var body errorBody
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error != tt.msg {
				t.Errorf("error = %q, want %q", body.Error, tt.msg)
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"bad request", invalid("x"), http.StatusBadRequest},
		{"parse failure", core.ErrParseFailure, http.StatusUnprocessableEntity},
		{"wrapped not found", fmt.Errorf("find: %w", core.ErrNotFound), http.StatusNotFound},
		{"amount", core.ErrInvalidAmount, http.StatusBadRequest},
		{"method", core.ErrInvalidPaymentMethod, http.StatusBadRequest},
		{"closed period", core.ErrPeriodClosed, http.StatusConflict},
		{"lock busy", lock.ErrNotObtained, http.StatusServiceUnavailable},
		{"invariant", core.ErrPeriodInvariant, http.StatusInternalServerError},
		{"other", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, msg := statusFor(tt.err)
			if got != tt.want {
				t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
			if got >= 500 && msg != "internal error" {
				t.Errorf("5xx message leaked: %q", msg)
			}
		})
	}
}
