package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/eaglebank/ledger-service/shared/models"
	"github.com/shopspring/decimal"
)

func (l *PostgresLedger) ListAccounts(ctx context.Context, ownerID string) ([]models.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE user_id = $1
		ORDER BY created_at DESC, id
	`
	rows, err := l.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	accounts := []models.Account{}
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}
	return accounts, nil
}

func (l *PostgresLedger) GetAccount(ctx context.Context, ownerID, accountID string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 AND user_id = $2`
	return scanAccount(l.db.QueryRowContext(ctx, query, accountID, ownerID))
}

const transactionViewSelect = `
	SELECT t.id, t.user_id, t.account_id, t.type, t.amount, t.category, t.description,
	       t.date, t.created_at, t.updated_at, a.name, a.account_type
	FROM transactions t
	JOIN accounts a ON a.id = t.account_id
`

func scanTransactionView(row rowScanner) (*models.TransactionView, error) {
	var ref models.AccountRef
	txn, err := scanTransaction(row, &ref.Name, &ref.Type)
	if err != nil {
		return nil, err
	}
	ref.ID = txn.AccountID
	return &models.TransactionView{Transaction: *txn, Account: ref}, nil
}

func (l *PostgresLedger) GetTransaction(ctx context.Context, ownerID, transactionID string) (*models.TransactionView, error) {
	query := transactionViewSelect + `WHERE t.id = $1 AND t.user_id = $2`
	return scanTransactionView(l.db.QueryRowContext(ctx, query, transactionID, ownerID))
}

func (l *PostgresLedger) ListTransactions(ctx context.Context, filter models.TransactionFilter) ([]models.TransactionView, error) {
	where, args := transactionWhere(filter)
	query := transactionViewSelect + where + ` ORDER BY t.date DESC, t.created_at DESC`

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	views := []models.TransactionView{}
	for rows.Next() {
		view, err := scanTransactionView(rows)
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return views, nil
}

func (l *PostgresLedger) Summarize(ctx context.Context, filter models.TransactionFilter) (models.Delta, error) {
	where, args := transactionWhere(filter)
	query := `
		SELECT COALESCE(SUM(t.amount) FILTER (WHERE t.type = 'income'), 0),
		       COALESCE(SUM(t.amount) FILTER (WHERE t.type = 'expense'), 0)
		FROM transactions t
	` + where

	var income, expense decimal.Decimal
	if err := l.db.QueryRowContext(ctx, query, args...).Scan(&income, &expense); err != nil {
		return models.Delta{}, fmt.Errorf("failed to summarize transactions: %w", err)
	}
	return journalDelta(income, expense), nil
}

// transactionWhere renders filter as a WHERE clause over alias t.
func transactionWhere(f models.TransactionFilter) (string, []any) {
	var conditions []string
	var args []any
	add := func(condition string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	add("t.user_id = $%d", f.OwnerID)
	if f.AccountID != "" {
		add("t.account_id = $%d", f.AccountID)
	}
	if f.Type != "" {
		add("t.type = $%d", f.Type)
	}
	if f.Category != "" {
		add("t.category = $%d", f.Category)
	}
	if f.StartDate != nil {
		add("t.date >= $%d", *f.StartDate)
	}
	if f.EndDate != nil {
		add("t.date <= $%d", *f.EndDate)
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func journalDelta(income, expense decimal.Decimal) models.Delta {
	return models.Delta{Balance: income.Sub(expense), Income: income, Expense: expense}
}

const auditSelect = `
	SELECT a.id, a.user_id, a.balance, a.income, a.expense,
	       COALESCE(SUM(t.amount) FILTER (WHERE t.type = 'income'), 0),
	       COALESCE(SUM(t.amount) FILTER (WHERE t.type = 'expense'), 0)
	FROM accounts a
	LEFT JOIN transactions t ON t.account_id = a.id
`

func scanAuditReport(row rowScanner) (*models.AuditReport, error) {
	var r models.AuditReport
	var income, expense decimal.Decimal
	if err := row.Scan(
		&r.AccountID, &r.UserID, &r.Stored.Balance, &r.Stored.Income, &r.Stored.Expense,
		&income, &expense,
	); err != nil {
		return nil, err
	}
	r.Journal = journalDelta(income, expense)
	return &r, nil
}

func (l *PostgresLedger) AuditAccount(ctx context.Context, accountID string) (*models.AuditReport, error) {
	query := auditSelect + ` WHERE a.id = $1 GROUP BY a.id`
	report, err := scanAuditReport(l.db.QueryRowContext(ctx, query, accountID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to audit account: %w", err)
	}
	return report, nil
}

func (l *PostgresLedger) AuditAll(ctx context.Context) ([]models.AuditReport, error) {
	rows, err := l.db.QueryContext(ctx, auditSelect+` GROUP BY a.id ORDER BY a.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to audit accounts: %w", err)
	}
	defer rows.Close()

	var reports []models.AuditReport
	for rows.Next() {
		report, err := scanAuditReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit row: %w", err)
		}
		reports = append(reports, *report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit rows: %w", err)
	}
	return reports, nil
}
