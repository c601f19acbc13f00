package command

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/eaglebank/ledger-service/internal/repository"
	"github.com/eaglebank/ledger-service/shared/apperrors"
	"github.com/eaglebank/ledger-service/shared/cqrs"
	"github.com/eaglebank/ledger-service/shared/events"
	"github.com/eaglebank/ledger-service/shared/models"
	"github.com/eaglebank/ledger-service/shared/utils"
	"github.com/shopspring/decimal"
)

// TransactionCommandService journals income and expense transactions. Each
// mutation applies exactly one delta to the owning account and writes the
// journal row in the same unit of work.
type TransactionCommandService struct {
	ledger      repository.Ledger
	idempotency IdempotencyStore
	effects     sideEffects
	now         func() time.Time
}

// NewTransactionCommandService wires the service. idempotency may be nil, in
// which case Idempotency-Key values are ignored.
func NewTransactionCommandService(
	ledger repository.Ledger,
	views AccountViewCache,
	publisher EventPublisher,
	idempotency IdempotencyStore,
) *TransactionCommandService {
	return &TransactionCommandService{
		ledger:      ledger,
		idempotency: idempotency,
		effects:     sideEffects{publisher: publisher, views: views},
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *TransactionCommandService) CreateTransaction(ctx context.Context, cmd cqrs.CreateTransactionCommand) (*models.TransactionResult, error) {
	if strings.TrimSpace(cmd.AccountID) == "" {
		return nil, apperrors.NewValidationError("account is required")
	}
	if !models.IsValidTransactionType(cmd.Type) {
		return nil, apperrors.NewValidationError("transaction type must be income or expense")
	}
	amount, err := validAmount(cmd.Amount)
	if err != nil {
		return nil, err
	}
	category, err := validCategory(cmd.Category)
	if err != nil {
		return nil, err
	}
	if err := validDescription(cmd.Description); err != nil {
		return nil, err
	}

	if cmd.IdempotencyKey != "" && s.idempotency != nil {
		existingID, reserved, err := s.idempotency.Reserve(ctx, cmd.UserID, cmd.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if !reserved {
			return s.replay(ctx, cmd.UserID, existingID)
		}
	}

	now := s.now()
	txn := &models.Transaction{
		ID:          utils.GenerateID(utils.TransactionIDPrefix),
		UserID:      cmd.UserID,
		AccountID:   cmd.AccountID,
		Type:        cmd.Type,
		Amount:      amount,
		Category:    category,
		Description: strings.TrimSpace(cmd.Description),
		Date:        now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if cmd.Date != nil {
		txn.Date = cmd.Date.UTC()
	}

	var account *models.Account
	err = s.ledger.WithinUnitOfWork(ctx, func(tx repository.LedgerTx) error {
		var err error
		if account, err = tx.ApplyDelta(ctx, cmd.UserID, cmd.AccountID, txn.Effect()); err != nil {
			return err
		}
		return tx.InsertTransaction(ctx, txn)
	})
	if err != nil {
		s.releaseKey(ctx, cmd)
		return nil, err
	}

	s.completeKey(ctx, cmd, txn.ID)
	s.afterCommit(ctx, events.TransactionCreated, txn, account, txn.Effect())
	return &models.TransactionResult{Transaction: txn, UpdatedBalance: account.Balance}, nil
}

// UpdateTransaction edits amount, category, description or date. The account
// receives the difference between the new and old effect as a single delta.
func (s *TransactionCommandService) UpdateTransaction(ctx context.Context, cmd cqrs.UpdateTransactionCommand) (*models.TransactionResult, error) {
	if cmd.Type != nil && !models.IsValidTransactionType(*cmd.Type) {
		return nil, apperrors.NewValidationError("transaction type must be income or expense")
	}
	var amount *decimal.Decimal
	if cmd.Amount != nil {
		a, err := validAmount(*cmd.Amount)
		if err != nil {
			return nil, err
		}
		amount = &a
	}
	var category *string
	if cmd.Category != nil {
		c, err := validCategory(*cmd.Category)
		if err != nil {
			return nil, err
		}
		category = &c
	}
	if cmd.Description != nil {
		if err := validDescription(*cmd.Description); err != nil {
			return nil, err
		}
	}

	var (
		txn     *models.Transaction
		account *models.Account
		delta   models.Delta
	)
	err := s.ledger.WithinUnitOfWork(ctx, func(tx repository.LedgerTx) error {
		var err error
		if txn, err = tx.GetTransactionForUpdate(ctx, cmd.UserID, cmd.TransactionID); err != nil {
			return err
		}
		if cmd.Type != nil && *cmd.Type != txn.Type {
			return apperrors.NewValidationError("transaction type cannot be changed; delete it and record a new one")
		}

		previous := txn.Effect()
		if amount != nil {
			txn.Amount = *amount
		}
		if category != nil {
			txn.Category = *category
		}
		if cmd.Description != nil {
			txn.Description = strings.TrimSpace(*cmd.Description)
		}
		if cmd.Date != nil {
			txn.Date = cmd.Date.UTC()
		}
		txn.UpdatedAt = s.now()
		delta = txn.Effect().Add(previous.Neg())

		if account, err = tx.ApplyDelta(ctx, cmd.UserID, txn.AccountID, delta); err != nil {
			return err
		}
		return tx.UpdateTransaction(ctx, txn)
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, events.TransactionUpdated, txn, account, delta)
	return &models.TransactionResult{Transaction: txn, UpdatedBalance: account.Balance}, nil
}

// DeleteTransaction removes a transaction and reverses its effect.
func (s *TransactionCommandService) DeleteTransaction(ctx context.Context, cmd cqrs.DeleteTransactionCommand) (decimal.Decimal, error) {
	var (
		txn     *models.Transaction
		account *models.Account
	)
	err := s.ledger.WithinUnitOfWork(ctx, func(tx repository.LedgerTx) error {
		var err error
		if txn, err = tx.GetTransactionForUpdate(ctx, cmd.UserID, cmd.TransactionID); err != nil {
			return err
		}
		if account, err = tx.ApplyDelta(ctx, cmd.UserID, txn.AccountID, txn.Effect().Neg()); err != nil {
			return err
		}
		return tx.DeleteTransaction(ctx, cmd.UserID, cmd.TransactionID)
	})
	if err != nil {
		return decimal.Zero, err
	}

	s.afterCommit(ctx, events.TransactionDeleted, txn, account, txn.Effect().Neg())
	return account.Balance, nil
}

func (s *TransactionCommandService) replay(ctx context.Context, ownerID, transactionID string) (*models.TransactionResult, error) {
	if transactionID == "" {
		return nil, apperrors.NewConflictError("a request with this idempotency key is still in progress")
	}
	view, err := s.ledger.GetTransaction(ctx, ownerID, transactionID)
	if err != nil {
		return nil, err
	}
	account, err := s.ledger.GetAccount(ctx, ownerID, view.AccountID)
	if err != nil {
		return nil, err
	}
	txn := view.Transaction
	return &models.TransactionResult{Transaction: &txn, UpdatedBalance: account.Balance, Replayed: true}, nil
}

// completeKey records the committed transaction against the request's key,
// retrying once. A key left pending answers retries with a conflict until it
// expires.
func (s *TransactionCommandService) completeKey(ctx context.Context, cmd cqrs.CreateTransactionCommand, transactionID string) {
	if cmd.IdempotencyKey == "" || s.idempotency == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		if err = s.idempotency.Complete(ctx, cmd.UserID, cmd.IdempotencyKey, transactionID); err == nil {
			return
		}
	}
	slog.Warn("failed to record idempotency key", "transactionId", transactionID, "error", err)
}

func (s *TransactionCommandService) releaseKey(ctx context.Context, cmd cqrs.CreateTransactionCommand) {
	if cmd.IdempotencyKey == "" || s.idempotency == nil {
		return
	}
	if err := s.idempotency.Release(ctx, cmd.UserID, cmd.IdempotencyKey); err != nil {
		slog.Warn("failed to release idempotency key", "error", err)
	}
}

func (s *TransactionCommandService) afterCommit(ctx context.Context, eventType string, txn *models.Transaction, account *models.Account, delta models.Delta) {
	s.effects.invalidate(ctx, account.ID)
	s.effects.publish(ctx, events.TransactionEventsStream, eventType, events.TransactionEvent{
		TransactionID: txn.ID,
		AccountID:     txn.AccountID,
		UserID:        txn.UserID,
		Amount:        txn.Amount,
		Type:          txn.Type,
		Category:      txn.Category,
	})
	if !delta.Balance.IsZero() {
		s.effects.publish(ctx, events.TransactionEventsStream, events.BalanceUpdated, events.BalanceUpdatedEvent{
			AccountID:  account.ID,
			NewBalance: account.Balance,
			Change:     delta.Balance,
		})
	}
}

func validAmount(amount decimal.Decimal) (decimal.Decimal, error) {
	amount = models.RoundMoney(amount)
	if !amount.IsPositive() {
		return decimal.Zero, apperrors.NewValidationError("amount must be greater than zero")
	}
	if amount.GreaterThan(models.MaxMoney) {
		return decimal.Zero, apperrors.NewValidationError("amount cannot exceed 999999999999.99")
	}
	return amount, nil
}

func validCategory(category string) (string, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return "", apperrors.NewValidationError("category is required")
	}
	if utf8.RuneCountInString(category) > models.MaxCategoryLength {
		return "", apperrors.NewValidationError("category cannot be more than 50 characters")
	}
	return category, nil
}

func validDescription(description string) error {
	if utf8.RuneCountInString(strings.TrimSpace(description)) > models.MaxDescriptionLength {
		return apperrors.NewValidationError("description cannot be more than 200 characters")
	}
	return nil
}
