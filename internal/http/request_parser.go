package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"michaucha/internal/core"
)

const maxBodyBytes = 1 << 20

// RequestBodyParser reads a JSON object or a urlencoded form with one API.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	err      error
	parsed   bool
}

func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	return p
}

func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true
	if p.err != nil {
		return p.err
	}
	trimmed := strings.TrimSpace(string(p.body))
	switch {
	case trimmed == "":
		p.formData = url.Values{}
	case trimmed[0] == '{':
		p.jsonData = map[string]any{}
		p.err = json.Unmarshal(p.body, &p.jsonData)
	default:
		p.formData, p.err = url.ParseQuery(trimmed)
	}
	if p.err != nil {
		p.err = invalid("malformed request body")
	}
	return p.err
}

func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if v, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(v))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		_, ok := p.jsonData[key]
		return ok
	}
	return p.formData != nil && p.formData.Has(key)
}

// Int64 reads a required integer field.
func (p *RequestBodyParser) Int64(key string) (int64, error) {
	raw := p.Get(key)
	if raw == "" {
		return 0, invalid(key + " is required")
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, invalid(key + " must be an integer")
	}
	return v, nil
}

// Bool accepts true/false, 1/0 and on/off.
func (p *RequestBodyParser) Bool(key string) (bool, error) {
	switch strings.ToLower(p.Get(key)) {
	case "true", "1", "on":
		return true, nil
	case "false", "0", "off", "":
		return false, nil
	default:
		return false, invalid(key + " must be a boolean")
	}
}

func (p *RequestBodyParser) Raw() []byte {
	return p.body
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput trims and drops control characters other than tab and
// newlines.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s))
}

// optionalID reads an optional positive integer query parameter.
func optionalID(q url.Values, key string) (*int64, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return nil, invalid(fmt.Sprintf("%s must be a positive integer", key))
	}
	return &v, nil
}

func pathID(r *http.Request) (int64, error) {
	v, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || v <= 0 {
		return 0, invalid("id must be a positive integer")
	}
	return v, nil
}

func optionalMethod(q url.Values) (*core.PaymentMethod, error) {
	raw := strings.TrimSpace(q.Get("method"))
	if raw == "" {
		return nil, nil
	}
	m, err := core.ParsePaymentMethod(raw)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// parseDate accepts YYYY-MM-DD or RFC 3339. Empty means zero.
func parseDate(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return time.Time{}, invalid("date must be YYYY-MM-DD")
	}
	return t, nil
}
