package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/eaglebank/ledger-service/shared/apperrors"
	"github.com/eaglebank/ledger-service/shared/models"
	"github.com/lib/pq"
)

var (
	ErrAccountNotFound     = apperrors.NewNotFoundError("account not found")
	ErrTransactionNotFound = apperrors.NewNotFoundError("transaction not found")
	ErrAccountInUse        = apperrors.NewConflictError("account has transactions; delete them first")
	ErrAggregateOutOfRange = apperrors.NewValidationError("transaction would push account totals beyond 999999999999.99")
)

// Ledger is the account ledger store together with its transaction journal.
// All writes happen inside WithinUnitOfWork; reads outside a unit of work see
// only committed state.
type Ledger interface {
	WithinUnitOfWork(ctx context.Context, fn func(tx LedgerTx) error) error

	ListAccounts(ctx context.Context, ownerID string) ([]models.Account, error)
	GetAccount(ctx context.Context, ownerID, accountID string) (*models.Account, error)
	GetTransaction(ctx context.Context, ownerID, transactionID string) (*models.TransactionView, error)
	ListTransactions(ctx context.Context, filter models.TransactionFilter) ([]models.TransactionView, error)
	// Summarize totals the journal entries matching filter.
	Summarize(ctx context.Context, filter models.TransactionFilter) (models.Delta, error)

	AuditAccount(ctx context.Context, accountID string) (*models.AuditReport, error)
	AuditAll(ctx context.Context) ([]models.AuditReport, error)
}

// LedgerTx is the set of writes available inside one unit of work. Every
// method is scoped by owner; rows owned by someone else are reported as not
// found.
type LedgerTx interface {
	CreateAccount(ctx context.Context, account *models.Account) error
	UpdateAccountDetails(ctx context.Context, ownerID, accountID string, name, accountType *string) (*models.Account, error)
	// DeleteAccount fails with ErrAccountInUse while transactions reference the account.
	DeleteAccount(ctx context.Context, ownerID, accountID string) error
	// ApplyDelta is the only way balance, income and expense change.
	ApplyDelta(ctx context.Context, ownerID, accountID string, delta models.Delta) (*models.Account, error)

	InsertTransaction(ctx context.Context, txn *models.Transaction) error
	// GetTransactionForUpdate locks the transaction until the unit of work ends.
	GetTransactionForUpdate(ctx context.Context, ownerID, transactionID string) (*models.Transaction, error)
	UpdateTransaction(ctx context.Context, txn *models.Transaction) error
	DeleteTransaction(ctx context.Context, ownerID, transactionID string) error
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresLedger implements Ledger on PostgreSQL, the source of truth.
type PostgresLedger struct {
	db *sql.DB
}

func NewPostgresLedger(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// WithinUnitOfWork runs fn in one database transaction. fn's error rolls the
// transaction back and is returned unchanged; a failed rollback or commit is
// reported as a consistency error because the outcome is unknown.
func (l *PostgresLedger) WithinUnitOfWork(ctx context.Context, fn func(tx LedgerTx) error) (err error) {
	tx, err := l.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin unit of work: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&postgresLedgerTx{q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return apperrors.NewConsistencyError("unit of work could not be rolled back", errors.Join(err, rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return apperrors.NewConsistencyError("unit of work could not be committed", err)
	}
	return nil
}

type postgresLedgerTx struct {
	q queryer
}

// mapPgError translates constraint violations into ledger error kinds.
func mapPgError(err error, action string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Name() {
		case "foreign_key_violation":
			return apperrors.NewConflictError("operation conflicts with existing records")
		case "check_violation":
			return apperrors.NewConsistencyError("account aggregates would violate ledger constraints", err)
		case "numeric_value_out_of_range":
			return ErrAggregateOutOfRange
		}
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

// errNegativeAggregate mirrors the CHECK constraints on accounts.income and
// accounts.expense for ledgers without a database.
var errNegativeAggregate = apperrors.NewConsistencyError("account aggregates would violate ledger constraints", nil)
