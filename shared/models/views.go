package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountView is the cached projection of an account.
// UserID is kept for ownership checks but never serialised to the API response.
type AccountView struct {
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

func NewAccountView(a *Account) *AccountView {
	return &AccountView{
		ID:        a.ID,
		UserID:    a.UserID,
		Name:      a.Name,
		Type:      a.Type,
		Balance:   a.Balance,
		Income:    a.Income,
		Expense:   a.Expense,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// AccountRef is the account summary embedded in a TransactionView.
type AccountRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// TransactionView is a transaction joined with the name and type of its account.
type TransactionView struct {
	Transaction
	Account AccountRef `json:"account"`
}

// TransactionResult is returned by journal mutations.
type TransactionResult struct {
	Transaction    *Transaction    `json:"transaction"`
	UpdatedBalance decimal.Decimal `json:"updatedBalance"`
	Replayed       bool            `json:"-"`
}

// CategorySuggestions lists the categories offered to clients. Categories are
// not restricted to these values.
type CategorySuggestions struct {
	Income  []string `json:"income"`
	Expense []string `json:"expense"`
}

var DefaultCategories = CategorySuggestions{
	Income: []string{"Salary", "Investment", "Interest", "Gift", "Bonus", "Refund", "Other"},
	Expense: []string{
		"Food", "Transport", "Housing", "Utilities", "Insurance", "Healthcare", "Shopping",
		"Entertainment", "Travel", "Education", "Personal Care", "Debt", "Other",
	},
}
