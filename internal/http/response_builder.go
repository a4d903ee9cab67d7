package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"michaucha/internal/core"
	"michaucha/internal/lock"
)

// ResponseBuilder assembles a response before anything is written.
type ResponseBuilder struct {
	status  int
	headers map[string]string
	body    []byte
}

func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{status: http.StatusOK, headers: map[string]string{}}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.status = code
	return b
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON encodes v as the body. An encoding failure turns the response into a
// 500.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("Failed to encode response", "error", err)
		b.status = http.StatusInternalServerError
		data = []byte(`{"error":"internal error"}`)
	}
	b.headers["Content-Type"] = "application/json; charset=utf-8"
	b.body = data
	return b
}

func (b *ResponseBuilder) XML(s string) *ResponseBuilder {
	b.headers["Content-Type"] = "text/xml; charset=utf-8"
	b.body = []byte(s)
	return b
}

func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for k, v := range b.headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(b.status)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// ErrorResponse is a JSON error with message shown to the client.
func ErrorResponse(status int, message string) *ResponseBuilder {
	return NewResponse().Status(status).JSON(errorBody{Error: message})
}

func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func NotFoundError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// badRequest marks request-shape errors found in the HTTP layer itself.
type badRequest struct{ msg string }

func (e badRequest) Error() string { return e.msg }

func invalid(msg string) error { return badRequest{msg: msg} }

// statusFor maps domain errors to HTTP statuses. Only 4xx messages reach the
// client.
func statusFor(err error) (int, string) {
	var br badRequest
	switch {
	case errors.As(err, &br):
		return http.StatusBadRequest, br.msg
	case errors.Is(err, core.ErrParseFailure):
		return http.StatusUnprocessableEntity, "No entendí ese gasto. Intenta: 'Almuerzo 5000'"
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidPaymentMethod),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrZeroDate):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, core.ErrPeriodClosed):
		return http.StatusConflict, err.Error()
	case errors.Is(err, lock.ErrNotObtained):
		return http.StatusServiceUnavailable, "busy, try again"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status >= 500 {
		slog.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "status_code", status, "error", err)
	} else {
		slog.InfoContext(r.Context(), "Request rejected", "path", r.URL.Path, "status_code", status, "error", err)
	}
	ErrorResponse(status, msg).Write(w)
}
