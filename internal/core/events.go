package core

import "time"

const (
	EventTransactionCreated  EventType = "transaction.created"
	EventTransactionDeleted  EventType = "transaction.deleted"
	EventPeriodClosed        EventType = "period.closed"
	EventFixedPaymentToggled EventType = "fixed_payment.toggled"
)

type (
	EventType string

	// Event is published after a state change has been committed. Only the
	// identifiers relevant to the event type are set.
	Event struct {
		ID             string    `json:"id"`
		Type           EventType `json:"type"`
		TransactionID  int64     `json:"transaction_id,omitempty"`
		PeriodID       int64     `json:"period_id,omitempty"`
		FixedExpenseID int64     `json:"fixed_expense_id,omitempty"`
		IsPaid         *bool     `json:"is_paid,omitempty"`
		Timestamp      time.Time `json:"timestamp"`
	}
)
