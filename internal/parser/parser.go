package parser

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"michaucha/internal/core"
)

type Kind string

const (
	KindTransaction  Kind = "TRANSACTION"
	KindFixedPayment Kind = "FIXED_PAYMENT"
)

// TransactionDraft is a parsed, not yet persisted, transaction. Category is
// a display label that still has to be resolved against stored categories.
type TransactionDraft struct {
	Amount        int64              `json:"amount"`
	Category      string             `json:"category"`
	Date          time.Time          `json:"date"`
	Description   string             `json:"description"`
	PaymentMethod core.PaymentMethod `json:"paymentMethod"`
}

// Result holds exactly one of Transaction or FixedPayment, selected by Kind.
type Result struct {
	Kind         Kind                 `json:"type"`
	Transaction  *TransactionDraft    `json:"transaction,omitempty"`
	FixedPayment *FixedPaymentCommand `json:"fixedPayment,omitempty"`
}

type Parser struct {
	now func() time.Time
}

type Option func(*Parser)

// WithClock overrides the time source used for dates.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) { p.now = now }
}

func New(opts ...Option) *Parser {
	p := &Parser{now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse interprets text. It returns core.ErrParseFailure when the text is
// neither a fixed payment acknowledgment nor carries a positive amount.
func (p *Parser) Parse(text string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, core.ErrParseFailure
	}

	if cmd, ok := DetectFixedPayment(text); ok {
		return Result{Kind: KindFixedPayment, FixedPayment: &cmd}, nil
	}

	amount, ok := ExtractAmount(text)
	if !ok || amount <= 0 {
		return Result{}, core.ErrParseFailure
	}

	draft := &TransactionDraft{
		Amount:        amount,
		Category:      ClassifyCategory(text),
		Date:          DetectDate(text, p.now()),
		Description:   capitalizeFirst(text),
		PaymentMethod: DetectPaymentMethod(text),
	}
	return Result{Kind: KindTransaction, Transaction: draft}, nil
}

func capitalizeFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
