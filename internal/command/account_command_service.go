package command

import (
	"context"
	"strings"
	"time"

	"github.com/eaglebank/ledger-service/internal/repository"
	"github.com/eaglebank/ledger-service/shared/apperrors"
	"github.com/eaglebank/ledger-service/shared/cqrs"
	"github.com/eaglebank/ledger-service/shared/events"
	"github.com/eaglebank/ledger-service/shared/models"
	"github.com/eaglebank/ledger-service/shared/utils"
	"github.com/shopspring/decimal"
)

const maxAccountNameLength = 100

// AccountCommandService creates, renames and removes accounts. It never
// touches balance, income or expense beyond zeroing them on creation.
type AccountCommandService struct {
	ledger  repository.Ledger
	effects sideEffects
	now     func() time.Time
}

func NewAccountCommandService(ledger repository.Ledger, views AccountViewCache, publisher EventPublisher) *AccountCommandService {
	return &AccountCommandService{
		ledger:  ledger,
		effects: sideEffects{publisher: publisher, views: views},
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *AccountCommandService) CreateAccount(ctx context.Context, cmd cqrs.CreateAccountCommand) (*models.Account, error) {
	name, err := normaliseAccountName(cmd.Name)
	if err != nil {
		return nil, err
	}
	if !models.IsValidAccountType(cmd.AccountType) {
		return nil, apperrors.NewValidationError("account type must be one of: " + strings.Join(models.AccountTypes, ", "))
	}

	now := s.now()
	account := &models.Account{
		ID:        utils.GenerateID(utils.AccountIDPrefix),
		UserID:    cmd.UserID,
		Name:      name,
		Type:      cmd.AccountType,
		Balance:   decimal.Zero,
		Income:    decimal.Zero,
		Expense:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.ledger.WithinUnitOfWork(ctx, func(tx repository.LedgerTx) error {
		return tx.CreateAccount(ctx, account)
	}); err != nil {
		return nil, err
	}

	s.effects.cache(ctx, account)
	s.effects.publish(ctx, events.AccountEventsStream, events.AccountCreated, events.AccountCreatedEvent{
		AccountID:   account.ID,
		UserID:      account.UserID,
		Name:        account.Name,
		AccountType: account.Type,
	})
	return account, nil
}

// UpdateAccount renames or retypes an account. Aggregates are left unchanged.
func (s *AccountCommandService) UpdateAccount(ctx context.Context, cmd cqrs.UpdateAccountCommand) (*models.Account, error) {
	var name *string
	if cmd.Name != nil {
		n, err := normaliseAccountName(*cmd.Name)
		if err != nil {
			return nil, err
		}
		name = &n
	}
	if cmd.AccountType != nil && !models.IsValidAccountType(*cmd.AccountType) {
		return nil, apperrors.NewValidationError("account type must be one of: " + strings.Join(models.AccountTypes, ", "))
	}

	var account *models.Account
	if err := s.ledger.WithinUnitOfWork(ctx, func(tx repository.LedgerTx) error {
		var err error
		account, err = tx.UpdateAccountDetails(ctx, cmd.RequestingUserID, cmd.AccountID, name, cmd.AccountType)
		return err
	}); err != nil {
		return nil, err
	}

	s.effects.invalidate(ctx, account.ID)
	s.effects.publish(ctx, events.AccountEventsStream, events.AccountUpdated, events.AccountUpdatedEvent{
		AccountID:   account.ID,
		UserID:      account.UserID,
		Name:        account.Name,
		AccountType: account.Type,
	})
	return account, nil
}

// DeleteAccount removes an account that no transaction references.
func (s *AccountCommandService) DeleteAccount(ctx context.Context, cmd cqrs.DeleteAccountCommand) error {
	if err := s.ledger.WithinUnitOfWork(ctx, func(tx repository.LedgerTx) error {
		return tx.DeleteAccount(ctx, cmd.RequestingUserID, cmd.AccountID)
	}); err != nil {
		return err
	}

	s.effects.invalidate(ctx, cmd.AccountID)
	s.effects.publish(ctx, events.AccountEventsStream, events.AccountDeleted, events.AccountDeletedEvent{
		AccountID: cmd.AccountID,
		UserID:    cmd.RequestingUserID,
	})
	return nil
}

func normaliseAccountName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperrors.NewValidationError("account name is required")
	}
	if len(name) > maxAccountNameLength {
		return "", apperrors.NewValidationError("account name is too long")
	}
	return name, nil
}
