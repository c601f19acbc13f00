package cqrs

import "time"

// ---------- Account queries ----------

// GetAccountQuery fetches a single account owned by RequestingUserID.
type GetAccountQuery struct {
	AccountID        string
	RequestingUserID string
}

// ListAccountsQuery fetches all accounts belonging to a user.
type ListAccountsQuery struct {
	UserID string
}

// ---------- Transaction queries ----------

// GetTransactionQuery fetches a single transaction owned by UserID.
type GetTransactionQuery struct {
	TransactionID string
	UserID        string
}

// ListTransactionsQuery selects a user's transactions. Empty fields do not
// filter; the date range is inclusive.
type ListTransactionsQuery struct {
	UserID    string
	AccountID string
	Type      string
	Category  string
	StartDate *time.Time
	EndDate   *time.Time
}

// TransactionSummaryQuery totals the transactions ListTransactionsQuery
// with the same fields would return.
type TransactionSummaryQuery ListTransactionsQuery
