package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/eaglebank/ledger-service/shared/apperrors"
	"github.com/eaglebank/ledger-service/shared/models"
)

const accountColumns = `id, user_id, name, account_type, balance, income, expense, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var account models.Account
	err := row.Scan(
		&account.ID, &account.UserID, &account.Name, &account.Type,
		&account.Balance, &account.Income, &account.Expense,
		&account.CreatedAt, &account.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}
	return &account, nil
}

func (t *postgresLedgerTx) CreateAccount(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := t.q.ExecContext(ctx, query,
		account.ID, account.UserID, account.Name, account.Type,
		account.Balance, account.Income, account.Expense,
		account.CreatedAt, account.UpdatedAt,
	)
	if err != nil {
		return mapPgError(err, "create account")
	}
	return nil
}

func (t *postgresLedgerTx) UpdateAccountDetails(ctx context.Context, ownerID, accountID string, name, accountType *string) (*models.Account, error) {
	query := `
		UPDATE accounts
		SET name = COALESCE($3, name), account_type = COALESCE($4, account_type), updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + accountColumns
	return scanAccount(t.q.QueryRowContext(ctx, query, accountID, ownerID, name, accountType))
}

func (t *postgresLedgerTx) DeleteAccount(ctx context.Context, ownerID, accountID string) error {
	// Lock the row so no transaction can be journalled against it meanwhile.
	lock := `SELECT id FROM accounts WHERE id = $1 AND user_id = $2 FOR UPDATE`
	var id string
	if err := t.q.QueryRowContext(ctx, lock, accountID, ownerID).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("failed to lock account: %w", err)
	}

	var inUse bool
	exists := `SELECT EXISTS (SELECT 1 FROM transactions WHERE account_id = $1)`
	if err := t.q.QueryRowContext(ctx, exists, accountID).Scan(&inUse); err != nil {
		return fmt.Errorf("failed to check account transactions: %w", err)
	}
	if inUse {
		return ErrAccountInUse
	}

	if _, err := t.q.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1 AND user_id = $2`, accountID, ownerID); err != nil {
		if apperrors.IsConflictError(mapPgError(err, "delete account")) {
			return ErrAccountInUse
		}
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return nil
}

// ApplyDelta increments the aggregates in place. The row stays locked until
// the unit of work ends, which serialises concurrent mutations of one account.
func (t *postgresLedgerTx) ApplyDelta(ctx context.Context, ownerID, accountID string, delta models.Delta) (*models.Account, error) {
	query := `
		UPDATE accounts
		SET balance = balance + $3, income = income + $4, expense = expense + $5, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + accountColumns
	account, err := scanAccount(t.q.QueryRowContext(ctx, query,
		accountID, ownerID, delta.Balance, delta.Income, delta.Expense,
	))
	if err != nil && !errors.Is(err, ErrAccountNotFound) {
		return nil, mapPgError(err, "apply delta")
	}
	return account, err
}
