package cqrs

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreateAccountCommand struct {
	UserID      string
	Name        string
	AccountType string
}

// UpdateAccountCommand renames or retypes an account. Nil fields are unchanged.
type UpdateAccountCommand struct {
	AccountID        string
	RequestingUserID string
	Name             *string
	AccountType      *string
}

type DeleteAccountCommand struct {
	AccountID        string
	RequestingUserID string
}

type CreateTransactionCommand struct {
	UserID      string
	AccountID   string
	Type        string
	Amount      decimal.Decimal
	Category    string
	Description string
	// Date defaults to the time of creation.
	Date *time.Time
	// IdempotencyKey, when set, makes retries of the same request return the
	// transaction created by the first attempt.
	IdempotencyKey string
}

// UpdateTransactionCommand edits a transaction. Nil fields are unchanged.
type UpdateTransactionCommand struct {
	TransactionID string
	UserID        string
	Type          *string
	Amount        *decimal.Decimal
	Category      *string
	Description   *string
	Date          *time.Time
}

type DeleteTransactionCommand struct {
	TransactionID string
	UserID        string
}
