package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account types accepted by the ledger.
const (
	AccountTypeSavings    = "Savings"
	AccountTypeCurrent    = "Current"
	AccountTypeInvestment = "Investment"
	AccountTypeCreditCard = "Credit Card"
	AccountTypeCash       = "Cash"
)

// Transaction types.
const (
	TransactionTypeIncome  = "income"
	TransactionTypeExpense = "expense"
)

const (
	// MaxDescriptionLength bounds Transaction.Description.
	MaxDescriptionLength = 200
	MaxCategoryLength    = 50
)

var AccountTypes = []string{
	AccountTypeSavings,
	AccountTypeCurrent,
	AccountTypeInvestment,
	AccountTypeCreditCard,
	AccountTypeCash,
}

func IsValidAccountType(t string) bool {
	for _, at := range AccountTypes {
		if at == t {
			return true
		}
	}
	return false
}

func IsValidTransactionType(t string) bool {
	return t == TransactionTypeIncome || t == TransactionTypeExpense
}

// Account holds the denormalised aggregates of its transactions.
// Balance, Income and Expense only ever change through a Delta.
type Account struct {
	ID        string          `json:"id"`
	UserID    string          `json:"-"`
	Name      string          `json:"name"`
	Type      string          `json:"type"`
	Balance   decimal.Decimal `json:"balance"`
	Income    decimal.Decimal `json:"income"`
	Expense   decimal.Decimal `json:"expense"`
	CreatedAt time.Time       `json:"createdTimestamp"`
	UpdatedAt time.Time       `json:"updatedTimestamp"`
}

// Totals returns the account's stored aggregates as a Delta from zero.
func (a *Account) Totals() Delta {
	return Delta{Balance: a.Balance, Income: a.Income, Expense: a.Expense}
}

type Transaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"-"`
	AccountID   string          `json:"accountId"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description,omitempty"`
	Date        time.Time       `json:"date"`
	CreatedAt   time.Time       `json:"createdTimestamp"`
	UpdatedAt   time.Time       `json:"updatedTimestamp"`
}

// Effect is the change this transaction applies to its account.
func (t *Transaction) Effect() Delta {
	return EffectOf(t.Type, t.Amount)
}

// TransactionFilter is a conjunction of optional predicates. Zero values match
// everything; StartDate and EndDate are inclusive.
type TransactionFilter struct {
	OwnerID   string
	AccountID string
	Type      string
	Category  string
	StartDate *time.Time
	EndDate   *time.Time
}

// Matches reports whether t satisfies every predicate in f.
func (f TransactionFilter) Matches(t *Transaction) bool {
	if f.OwnerID != "" && t.UserID != f.OwnerID {
		return false
	}
	if f.AccountID != "" && t.AccountID != f.AccountID {
		return false
	}
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if f.StartDate != nil && t.Date.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && t.Date.After(*f.EndDate) {
		return false
	}
	return true
}

type TransactionSummary struct {
	TotalIncome  decimal.Decimal `json:"totalIncome"`
	TotalExpense decimal.Decimal `json:"totalExpense"`
	NetBalance   decimal.Decimal `json:"netBalance"`
}

// SummaryFromDelta converts an accumulated Delta into a summary.
func SummaryFromDelta(d Delta) *TransactionSummary {
	return &TransactionSummary{
		TotalIncome:  d.Income,
		TotalExpense: d.Expense,
		NetBalance:   d.Income.Sub(d.Expense),
	}
}

// AuditReport compares an account's stored aggregates with the aggregates
// recomputed from its journal.
type AuditReport struct {
	AccountID string `json:"accountId"`
	UserID    string `json:"userId"`
	Stored    Delta  `json:"stored"`
	Journal   Delta  `json:"journal"`
}

func (r *AuditReport) Consistent() bool {
	return r.Stored.Equal(r.Journal)
}
