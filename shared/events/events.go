package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	AccountCreated = "account.created"
	AccountUpdated = "account.updated"
	AccountDeleted = "account.deleted"

	TransactionCreated = "transaction.created"
	TransactionUpdated = "transaction.updated"
	TransactionDeleted = "transaction.deleted"
	BalanceUpdated     = "balance.updated"

	LedgerDiverged = "ledger.diverged"
)

// Stream names
const (
	AccountEventsStream     = "account.events"
	TransactionEventsStream = "transaction.events"
	LedgerEventsStream      = "ledger.events"
)

// Base event structure
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// DecodeData re-decodes the untyped payload of a received event into v.
func (e Event) DecodeData(v any) error {
	raw, err := json.Marshal(e.Data)
	if err != nil {
		return fmt.Errorf("failed to re-encode event data: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode %s event data: %w", e.Type, err)
	}
	return nil
}

// Account events
type AccountCreatedEvent struct {
	AccountID   string `json:"accountId"`
	UserID      string `json:"userId"`
	Name        string `json:"name"`
	AccountType string `json:"accountType"`
}

type AccountUpdatedEvent struct {
	AccountID   string `json:"accountId"`
	UserID      string `json:"userId"`
	Name        string `json:"name"`
	AccountType string `json:"accountType"`
}

type AccountDeletedEvent struct {
	AccountID string `json:"accountId"`
	UserID    string `json:"userId"`
}

// TransactionEvent is the payload of transaction.created, transaction.updated
// and transaction.deleted.
type TransactionEvent struct {
	TransactionID string          `json:"transactionId"`
	AccountID     string          `json:"accountId"`
	UserID        string          `json:"userId"`
	Amount        decimal.Decimal `json:"amount"`
	Type          string          `json:"type"`
	Category      string          `json:"category"`
}

type BalanceUpdatedEvent struct {
	AccountID  string          `json:"accountId"`
	NewBalance decimal.Decimal `json:"newBalance"`
	Change     decimal.Decimal `json:"change"`
}

type LedgerDivergedEvent struct {
	AccountID      string          `json:"accountId"`
	UserID         string          `json:"userId"`
	StoredBalance  decimal.Decimal `json:"storedBalance"`
	JournalBalance decimal.Decimal `json:"journalBalance"`
	StoredIncome   decimal.Decimal `json:"storedIncome"`
	JournalIncome  decimal.Decimal `json:"journalIncome"`
	StoredExpense  decimal.Decimal `json:"storedExpense"`
	JournalExpense decimal.Decimal `json:"journalExpense"`
}
