package core

import (
	"strconv"
	"strings"
	"unicode"
)

// FormatCLP renders an amount the way es-CL does with no decimals:
// 12500 -> "$12.500", -3000 -> "-$3.000".
func FormatCLP(amount int64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteByte('$')
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ParseCLP parses a manually entered amount such as "12500", "12.500" or
// "$ 12.500". Only positive whole amounts are accepted.
//
// Examples:
//
//	ParseCLP("$12.500") -> 12500, nil
//	ParseCLP("0")       -> 0, ErrInvalidAmount
//	ParseCLP("12,5")    -> 0, ErrInvalidAmount
func ParseCLP(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ".", "")
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return 0, ErrInvalidAmount
	}
	return v, nil
}
