package repository

import (
	"context"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/eaglebank/ledger-service/shared/apperrors"
	"github.com/eaglebank/ledger-service/shared/models"
)

// MemoryLedger is an in-process Ledger. Units of work run one at a time under
// a single mutex; a failed unit of work restores the state it started from.
type MemoryLedger struct {
	mu           sync.Mutex
	accounts     map[string]models.Account
	transactions map[string]models.Transaction
	now          func() time.Time
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		accounts:     make(map[string]models.Account),
		transactions: make(map[string]models.Transaction),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (l *MemoryLedger) WithinUnitOfWork(ctx context.Context, fn func(tx LedgerTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	accounts := maps.Clone(l.accounts)
	transactions := maps.Clone(l.transactions)
	restore := func() {
		l.accounts, l.transactions = accounts, transactions
	}
	defer func() {
		if p := recover(); p != nil {
			restore()
			panic(p)
		}
	}()

	if err := fn(&memoryLedgerTx{l: l}); err != nil {
		restore()
		return err
	}
	return nil
}

func (l *MemoryLedger) ListAccounts(ctx context.Context, ownerID string) ([]models.Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	accounts := []models.Account{}
	for _, a := range l.accounts {
		if a.UserID == ownerID {
			accounts = append(accounts, a)
		}
	}
	sort.Slice(accounts, func(i, j int) bool {
		if !accounts[i].CreatedAt.Equal(accounts[j].CreatedAt) {
			return accounts[i].CreatedAt.After(accounts[j].CreatedAt)
		}
		return accounts[i].ID < accounts[j].ID
	})
	return accounts, nil
}

func (l *MemoryLedger) GetAccount(ctx context.Context, ownerID, accountID string) (*models.Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ownedAccount(ownerID, accountID)
}

func (l *MemoryLedger) GetTransaction(ctx context.Context, ownerID, transactionID string) (*models.TransactionView, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	txn, ok := l.transactions[transactionID]
	if !ok || txn.UserID != ownerID {
		return nil, ErrTransactionNotFound
	}
	view := l.viewOf(txn)
	return &view, nil
}

func (l *MemoryLedger) ListTransactions(ctx context.Context, filter models.TransactionFilter) ([]models.TransactionView, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	views := []models.TransactionView{}
	for _, txn := range l.transactions {
		if filter.Matches(&txn) {
			views = append(views, l.viewOf(txn))
		}
	}
	sort.Slice(views, func(i, j int) bool {
		a, b := views[i], views[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return strings.Compare(a.ID, b.ID) < 0
	})
	return views, nil
}

func (l *MemoryLedger) Summarize(ctx context.Context, filter models.TransactionFilter) (models.Delta, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var total models.Delta
	for _, txn := range l.transactions {
		if filter.Matches(&txn) {
			total = total.Add(txn.Effect())
		}
	}
	return total, nil
}

func (l *MemoryLedger) AuditAccount(ctx context.Context, accountID string) (*models.AuditReport, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	account, ok := l.accounts[accountID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	report := l.audit(account)
	return &report, nil
}

func (l *MemoryLedger) AuditAll(ctx context.Context) ([]models.AuditReport, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	reports := make([]models.AuditReport, 0, len(l.accounts))
	for _, account := range l.accounts {
		reports = append(reports, l.audit(account))
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].AccountID < reports[j].AccountID })
	return reports, nil
}

func (l *MemoryLedger) audit(account models.Account) models.AuditReport {
	var journal models.Delta
	for _, txn := range l.transactions {
		if txn.AccountID == account.ID {
			journal = journal.Add(txn.Effect())
		}
	}
	return models.AuditReport{
		AccountID: account.ID,
		UserID:    account.UserID,
		Stored:    account.Totals(),
		Journal:   journal,
	}
}

func (l *MemoryLedger) ownedAccount(ownerID, accountID string) (*models.Account, error) {
	account, ok := l.accounts[accountID]
	if !ok || account.UserID != ownerID {
		return nil, ErrAccountNotFound
	}
	return &account, nil
}

func (l *MemoryLedger) viewOf(txn models.Transaction) models.TransactionView {
	account := l.accounts[txn.AccountID]
	return models.TransactionView{
		Transaction: txn,
		Account:     models.AccountRef{ID: txn.AccountID, Name: account.Name, Type: account.Type},
	}
}

// memoryLedgerTx runs with MemoryLedger.mu held.
type memoryLedgerTx struct {
	l *MemoryLedger
}

func (t *memoryLedgerTx) CreateAccount(ctx context.Context, account *models.Account) error {
	if _, exists := t.l.accounts[account.ID]; exists {
		return apperrors.NewConflictError("account " + account.ID + " already exists")
	}
	t.l.accounts[account.ID] = *account
	return nil
}

func (t *memoryLedgerTx) UpdateAccountDetails(ctx context.Context, ownerID, accountID string, name, accountType *string) (*models.Account, error) {
	account, err := t.l.ownedAccount(ownerID, accountID)
	if err != nil {
		return nil, err
	}
	if name != nil {
		account.Name = *name
	}
	if accountType != nil {
		account.Type = *accountType
	}
	account.UpdatedAt = t.l.now()
	t.l.accounts[accountID] = *account
	return account, nil
}

func (t *memoryLedgerTx) DeleteAccount(ctx context.Context, ownerID, accountID string) error {
	if _, err := t.l.ownedAccount(ownerID, accountID); err != nil {
		return err
	}
	for _, txn := range t.l.transactions {
		if txn.AccountID == accountID {
			return ErrAccountInUse
		}
	}
	delete(t.l.accounts, accountID)
	return nil
}

func (t *memoryLedgerTx) ApplyDelta(ctx context.Context, ownerID, accountID string, delta models.Delta) (*models.Account, error) {
	account, err := t.l.ownedAccount(ownerID, accountID)
	if err != nil {
		return nil, err
	}
	updated := delta.ApplyTo(*account)
	if updated.Income.IsNegative() || updated.Expense.IsNegative() {
		return nil, errNegativeAggregate
	}
	if !models.WithinMoneyRange(updated) {
		return nil, ErrAggregateOutOfRange
	}
	updated.UpdatedAt = t.l.now()
	t.l.accounts[accountID] = updated
	return &updated, nil
}

func (t *memoryLedgerTx) InsertTransaction(ctx context.Context, txn *models.Transaction) error {
	if _, ok := t.l.accounts[txn.AccountID]; !ok {
		return ErrAccountNotFound
	}
	if _, exists := t.l.transactions[txn.ID]; exists {
		return apperrors.NewConflictError("transaction " + txn.ID + " already exists")
	}
	t.l.transactions[txn.ID] = *txn
	return nil
}

func (t *memoryLedgerTx) GetTransactionForUpdate(ctx context.Context, ownerID, transactionID string) (*models.Transaction, error) {
	txn, ok := t.l.transactions[transactionID]
	if !ok || txn.UserID != ownerID {
		return nil, ErrTransactionNotFound
	}
	return &txn, nil
}

func (t *memoryLedgerTx) UpdateTransaction(ctx context.Context, txn *models.Transaction) error {
	existing, ok := t.l.transactions[txn.ID]
	if !ok || existing.UserID != txn.UserID {
		return ErrTransactionNotFound
	}
	existing.Amount = txn.Amount
	existing.Category = txn.Category
	existing.Description = txn.Description
	existing.Date = txn.Date
	existing.UpdatedAt = txn.UpdatedAt
	t.l.transactions[txn.ID] = existing
	return nil
}

func (t *memoryLedgerTx) DeleteTransaction(ctx context.Context, ownerID, transactionID string) error {
	txn, ok := t.l.transactions[transactionID]
	if !ok || txn.UserID != ownerID {
		return ErrTransactionNotFound
	}
	delete(t.l.transactions, transactionID)
	return nil
}
