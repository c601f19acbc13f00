package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/eaglebank/ledger-service/shared/models"
)

const transactionColumns = `id, user_id, account_id, type, amount, category, description, date, created_at, updated_at`

func scanTransaction(row rowScanner, extra ...any) (*models.Transaction, error) {
	var txn models.Transaction
	var description sql.NullString
	dest := append([]any{
		&txn.ID, &txn.UserID, &txn.AccountID, &txn.Type, &txn.Amount,
		&txn.Category, &description, &txn.Date, &txn.CreatedAt, &txn.UpdatedAt,
	}, extra...)

	err := row.Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}
	txn.Description = description.String
	return &txn, nil
}

func (t *postgresLedgerTx) InsertTransaction(ctx context.Context, txn *models.Transaction) error {
	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := t.q.ExecContext(ctx, query,
		txn.ID, txn.UserID, txn.AccountID, txn.Type, txn.Amount,
		txn.Category, nullString(txn.Description), txn.Date,
		txn.CreatedAt, txn.UpdatedAt,
	)
	if err != nil {
		return mapPgError(err, "create transaction")
	}
	return nil
}

func (t *postgresLedgerTx) GetTransactionForUpdate(ctx context.Context, ownerID, transactionID string) (*models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE id = $1 AND user_id = $2
		FOR UPDATE
	`
	return scanTransaction(t.q.QueryRowContext(ctx, query, transactionID, ownerID))
}

// UpdateTransaction rewrites the mutable fields. Type and account are fixed
// once a transaction is journalled.
func (t *postgresLedgerTx) UpdateTransaction(ctx context.Context, txn *models.Transaction) error {
	query := `
		UPDATE transactions
		SET amount = $3, category = $4, description = $5, date = $6, updated_at = $7
		WHERE id = $1 AND user_id = $2
	`
	result, err := t.q.ExecContext(ctx, query,
		txn.ID, txn.UserID, txn.Amount, txn.Category,
		nullString(txn.Description), txn.Date, txn.UpdatedAt,
	)
	if err != nil {
		return mapPgError(err, "update transaction")
	}
	return requireOneRow(result, ErrTransactionNotFound)
}

func (t *postgresLedgerTx) DeleteTransaction(ctx context.Context, ownerID, transactionID string) error {
	result, err := t.q.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1 AND user_id = $2`, transactionID, ownerID)
	if err != nil {
		return mapPgError(err, "delete transaction")
	}
	return requireOneRow(result, ErrTransactionNotFound)
}

func requireOneRow(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return notFound
	}
	return nil
}
