package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/eaglebank/ledger-service/shared/apperrors"
	"github.com/eaglebank/ledger-service/shared/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func seedAccount(t *testing.T, l Ledger, id, owner string) {
	t.Helper()
	now := time.Now().UTC()
	err := l.WithinUnitOfWork(context.Background(), func(tx LedgerTx) error {
		return tx.CreateAccount(context.Background(), &models.Account{
			ID: id, UserID: owner, Name: "Main", Type: models.AccountTypeSavings,
			CreatedAt: now, UpdatedAt: now,
		})
	})
	require.NoError(t, err)
}

func journal(t *testing.T, l Ledger, txn models.Transaction) *models.Account {
	t.Helper()
	var account *models.Account
	err := l.WithinUnitOfWork(context.Background(), func(tx LedgerTx) error {
		var err error
		account, err = tx.ApplyDelta(context.Background(), txn.UserID, txn.AccountID, txn.Effect())
		if err != nil {
			return err
		}
		return tx.InsertTransaction(context.Background(), &txn)
	})
	require.NoError(t, err)
	return account
}

func TestMemoryLedgerApplyDelta(t *testing.T) {
	l := NewMemoryLedger()
	seedAccount(t, l, "acc-1", "user-1")

	acc := journal(t, l, models.Transaction{
		ID: "txn-1", UserID: "user-1", AccountID: "acc-1",
		Type: models.TransactionTypeIncome, Amount: dec("500"), Category: "Salary", Date: time.Now(),
	})
	assert.True(t, acc.Balance.Equal(dec("500")))

	acc = journal(t, l, models.Transaction{
		ID: "txn-2", UserID: "user-1", AccountID: "acc-1",
		Type: models.TransactionTypeExpense, Amount: dec("120"), Category: "Food", Date: time.Now(),
	})
	assert.True(t, acc.Balance.Equal(dec("380")))
	assert.True(t, acc.Income.Equal(dec("500")))
	assert.True(t, acc.Expense.Equal(dec("120")))
}

func TestMemoryLedgerOwnershipScoping(t *testing.T) {
	l := NewMemoryLedger()
	seedAccount(t, l, "acc-1", "user-1")

	_, err := l.GetAccount(context.Background(), "user-2", "acc-1")
	assert.ErrorIs(t, err, ErrAccountNotFound)

	err = l.WithinUnitOfWork(context.Background(), func(tx LedgerTx) error {
		_, err := tx.ApplyDelta(context.Background(), "user-2", "acc-1", models.EffectOf(models.TransactionTypeIncome, dec("1")))
		return err
	})
	assert.True(t, apperrors.IsNotFoundError(err))

	accounts, err := l.ListAccounts(context.Background(), "user-2")
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestMemoryLedgerRollsBackFailedUnitOfWork(t *testing.T) {
	l := NewMemoryLedger()
	seedAccount(t, l, "acc-1", "user-1")
	boom := errors.New("insert failed")

	err := l.WithinUnitOfWork(context.Background(), func(tx LedgerTx) error {
		if _, err := tx.ApplyDelta(context.Background(), "user-1", "acc-1", models.EffectOf(models.TransactionTypeIncome, dec("75"))); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	acc, err := l.GetAccount(context.Background(), "user-1", "acc-1")
	require.NoError(t, err)
	assert.True(t, acc.Balance.IsZero())
	assert.True(t, acc.Income.IsZero())
}

func TestMemoryLedgerRejectsNegativeAggregates(t *testing.T) {
	l := NewMemoryLedger()
	seedAccount(t, l, "acc-1", "user-1")

	err := l.WithinUnitOfWork(context.Background(), func(tx LedgerTx) error {
		_, err := tx.ApplyDelta(context.Background(), "user-1", "acc-1", models.EffectOf(models.TransactionTypeExpense, dec("10")).Neg())
		return err
	})
	assert.True(t, apperrors.IsConsistencyError(err))
}

func TestMemoryLedgerRejectsAggregatesOutOfRange(t *testing.T) {
	l := NewMemoryLedger()
	seedAccount(t, l, "acc-1", "user-1")
	journal(t, l, models.Transaction{
		ID: "txn-1", UserID: "user-1", AccountID: "acc-1", Type: models.TransactionTypeExpense,
		Amount: models.MaxMoney, Category: "Rent", Date: time.Now().UTC(),
	})

	err := l.WithinUnitOfWork(context.Background(), func(tx LedgerTx) error {
		_, err := tx.ApplyDelta(context.Background(), "user-1", "acc-1", models.EffectOf(models.TransactionTypeExpense, dec("0.01")))
		return err
	})
	assert.True(t, apperrors.IsValidationError(err))

	acc, err := l.GetAccount(context.Background(), "user-1", "acc-1")
	require.NoError(t, err)
	assert.True(t, acc.Balance.Equal(models.MaxMoney.Neg()))
}

func TestMemoryLedgerDeleteAccountInUse(t *testing.T) {
	l := NewMemoryLedger()
	seedAccount(t, l, "acc-1", "user-1")
	journal(t, l, models.Transaction{
		ID: "txn-1", UserID: "user-1", AccountID: "acc-1",
		Type: models.TransactionTypeExpense, Amount: dec("5"), Category: "Food", Date: time.Now(),
	})

	deleteAccount := func() error {
		return l.WithinUnitOfWork(context.Background(), func(tx LedgerTx) error {
			return tx.DeleteAccount(context.Background(), "user-1", "acc-1")
		})
	}
	assert.ErrorIs(t, deleteAccount(), ErrAccountInUse)

	require.NoError(t, l.WithinUnitOfWork(context.Background(), func(tx LedgerTx) error {
		return tx.DeleteTransaction(context.Background(), "user-1", "txn-1")
	}))
	require.NoError(t, deleteAccount())

	_, err := l.GetAccount(context.Background(), "user-1", "acc-1")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestMemoryLedgerListAndSummarize(t *testing.T) {
	l := NewMemoryLedger()
	seedAccount(t, l, "acc-1", "user-1")
	seedAccount(t, l, "acc-2", "user-1")
	day := func(d int) time.Time { return time.Date(2024, 5, d, 9, 0, 0, 0, time.UTC) }

	journal(t, l, models.Transaction{ID: "txn-1", UserID: "user-1", AccountID: "acc-1", Type: "income", Amount: dec("1000"), Category: "Salary", Date: day(1)})
	journal(t, l, models.Transaction{ID: "txn-2", UserID: "user-1", AccountID: "acc-1", Type: "expense", Amount: dec("45.50"), Category: "Food", Date: day(3)})
	journal(t, l, models.Transaction{ID: "txn-3", UserID: "user-1", AccountID: "acc-2", Type: "expense", Amount: dec("20"), Category: "Food", Date: day(5)})

	all, err := l.ListTransactions(context.Background(), models.TransactionFilter{OwnerID: "user-1"})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"txn-3", "txn-2", "txn-1"}, []string{all[0].ID, all[1].ID, all[2].ID})
	assert.Equal(t, "Main", all[0].Account.Name)

	start, end := day(2), day(5)
	food := models.TransactionFilter{OwnerID: "user-1", Category: "Food", StartDate: &start, EndDate: &end}
	total, err := l.Summarize(context.Background(), food)
	require.NoError(t, err)
	assert.True(t, total.Expense.Equal(dec("65.50")))
	assert.True(t, total.Income.IsZero())

	reports, err := l.AuditAll(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 2)
	for _, r := range reports {
		assert.True(t, r.Consistent(), r.AccountID)
	}
}

func TestMemoryLedgerConcurrentDeltas(t *testing.T) {
	l := NewMemoryLedger()
	seedAccount(t, l, "acc-1", "user-1")

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.WithinUnitOfWork(context.Background(), func(tx LedgerTx) error {
				_, err := tx.ApplyDelta(context.Background(), "user-1", "acc-1", models.EffectOf(models.TransactionTypeIncome, dec("1.25")))
				return err
			})
		}()
	}
	wg.Wait()

	acc, err := l.GetAccount(context.Background(), "user-1", "acc-1")
	require.NoError(t, err)
	assert.True(t, acc.Balance.Equal(dec("62.50")), acc.Balance.String())
}
