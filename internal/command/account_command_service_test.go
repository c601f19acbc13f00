package command

import (
	"context"
	"testing"

	"github.com/eaglebank/ledger-service/internal/repository"
	"github.com/eaglebank/ledger-service/shared/apperrors"
	"github.com/eaglebank/ledger-service/shared/cqrs"
	"github.com/eaglebank/ledger-service/shared/events"
	"github.com/eaglebank/ledger-service/shared/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestCreateAccount(t *testing.T) {
	ledger := repository.NewMemoryLedger()
	pub := &recordingPublisher{}
	views := &recordingViews{}
	svc := NewAccountCommandService(ledger, views, pub)

	account, err := svc.CreateAccount(context.Background(), cqrs.CreateAccountCommand{
		UserID: "user-1", Name: "  Holiday Fund ", AccountType: models.AccountTypeSavings,
	})
	require.NoError(t, err)

	assert.Equal(t, "Holiday Fund", account.Name)
	assert.True(t, account.Balance.IsZero())
	assert.True(t, account.Income.IsZero())
	assert.True(t, account.Expense.IsZero())
	assert.Equal(t, []string{events.AccountCreated}, pub.types())
	assert.Equal(t, []string{account.ID}, views.cached)

	stored, err := ledger.GetAccount(context.Background(), "user-1", account.ID)
	require.NoError(t, err)
	assert.Equal(t, "Holiday Fund", stored.Name)
}

func TestCreateAccountValidation(t *testing.T) {
	svc := NewAccountCommandService(repository.NewMemoryLedger(), nil, nil)

	tests := []struct {
		name string
		cmd  cqrs.CreateAccountCommand
	}{
		{"blank name", cqrs.CreateAccountCommand{UserID: "user-1", Name: "   ", AccountType: models.AccountTypeCash}},
		{"unknown type", cqrs.CreateAccountCommand{UserID: "user-1", Name: "Wallet", AccountType: "Crypto"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateAccount(context.Background(), tt.cmd)
			assert.True(t, apperrors.IsValidationError(err), "got %v", err)
		})
	}
}

func TestUpdateAccount(t *testing.T) {
	ledger := repository.NewMemoryLedger()
	views := &recordingViews{}
	svc := NewAccountCommandService(ledger, views, nil)
	ctx := context.Background()

	account, err := svc.CreateAccount(ctx, cqrs.CreateAccountCommand{UserID: "user-1", Name: "Wallet", AccountType: models.AccountTypeCash})
	require.NoError(t, err)

	updated, err := svc.UpdateAccount(ctx, cqrs.UpdateAccountCommand{
		AccountID: account.ID, RequestingUserID: "user-1", AccountType: strPtr(models.AccountTypeCreditCard),
	})
	require.NoError(t, err)
	assert.Equal(t, "Wallet", updated.Name)
	assert.Equal(t, models.AccountTypeCreditCard, updated.Type)
	assert.Contains(t, views.invalidated, account.ID)

	_, err = svc.UpdateAccount(ctx, cqrs.UpdateAccountCommand{
		AccountID: account.ID, RequestingUserID: "user-2", Name: strPtr("Stolen"),
	})
	assert.True(t, apperrors.IsNotFoundError(err))

	_, err = svc.UpdateAccount(ctx, cqrs.UpdateAccountCommand{
		AccountID: account.ID, RequestingUserID: "user-1", Name: strPtr(""),
	})
	assert.True(t, apperrors.IsValidationError(err))
}

func TestDeleteAccountRefusedWhileTransactionsExist(t *testing.T) {
	ledger := repository.NewMemoryLedger()
	accounts := NewAccountCommandService(ledger, nil, nil)
	txns := NewTransactionCommandService(ledger, nil, nil, nil)
	ctx := context.Background()

	account, err := accounts.CreateAccount(ctx, cqrs.CreateAccountCommand{UserID: "user-1", Name: "Main", AccountType: models.AccountTypeCurrent})
	require.NoError(t, err)
	created, err := txns.CreateTransaction(ctx, cqrs.CreateTransactionCommand{
		UserID: "user-1", AccountID: account.ID, Type: models.TransactionTypeIncome, Amount: dec("10"), Category: "Gift",
	})
	require.NoError(t, err)

	err = accounts.DeleteAccount(ctx, cqrs.DeleteAccountCommand{AccountID: account.ID, RequestingUserID: "user-1"})
	assert.True(t, apperrors.IsConflictError(err), "got %v", err)

	_, err = txns.DeleteTransaction(ctx, cqrs.DeleteTransactionCommand{TransactionID: created.Transaction.ID, UserID: "user-1"})
	require.NoError(t, err)

	require.NoError(t, accounts.DeleteAccount(ctx, cqrs.DeleteAccountCommand{AccountID: account.ID, RequestingUserID: "user-1"}))

	err = accounts.DeleteAccount(ctx, cqrs.DeleteAccountCommand{AccountID: account.ID, RequestingUserID: "user-1"})
	assert.True(t, apperrors.IsNotFoundError(err))
}
