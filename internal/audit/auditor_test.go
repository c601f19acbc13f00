package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/eaglebank/ledger-service/internal/repository"
	"github.com/eaglebank/ledger-service/shared/events"
	"github.com/eaglebank/ledger-service/shared/models"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.LedgerDivergedEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, stream, eventType string, data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if stream == events.LedgerEventsStream && eventType == events.LedgerDiverged {
		p.events = append(p.events, data.(events.LedgerDivergedEvent))
	}
	return nil
}

type failingLedger struct{}

func (failingLedger) AuditAccount(ctx context.Context, accountID string) (*models.AuditReport, error) {
	return nil, errors.New("connection refused")
}

func (failingLedger) AuditAll(ctx context.Context) ([]models.AuditReport, error) {
	return nil, errors.New("connection refused")
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newLedger(t *testing.T) *repository.MemoryLedger {
	t.Helper()
	l := repository.NewMemoryLedger()
	now := time.Now().UTC()
	ctx := context.Background()

	err := l.WithinUnitOfWork(ctx, func(tx repository.LedgerTx) error {
		for _, id := range []string{"acc-a", "acc-b"} {
			if err := tx.CreateAccount(ctx, &models.Account{
				ID: id, UserID: "user-1", Name: id, Type: models.AccountTypeCash,
				CreatedAt: now, UpdatedAt: now,
			}); err != nil {
				return err
			}
		}
		txn := &models.Transaction{
			ID: "txn-1", UserID: "user-1", AccountID: "acc-a", Type: models.TransactionTypeIncome,
			Amount: dec("250"), Category: "Salary", Date: now, CreatedAt: now, UpdatedAt: now,
		}
		if _, err := tx.ApplyDelta(ctx, txn.UserID, txn.AccountID, txn.Effect()); err != nil {
			return err
		}
		return tx.InsertTransaction(ctx, txn)
	})
	require.NoError(t, err)
	return l
}

// corrupt moves acc-b's aggregates without a matching journal entry.
func corrupt(t *testing.T, l *repository.MemoryLedger) {
	t.Helper()
	ctx := context.Background()
	err := l.WithinUnitOfWork(ctx, func(tx repository.LedgerTx) error {
		_, err := tx.ApplyDelta(ctx, "user-1", "acc-b", models.EffectOf(models.TransactionTypeIncome, dec("10")))
		return err
	})
	require.NoError(t, err)
}

func transactionEvent(accountID string) events.Event {
	return events.Event{
		Type:      events.TransactionCreated,
		Timestamp: time.Now(),
		Data: map[string]any{
			"transactionId": "txn-1",
			"accountId":     accountID,
			"userId":        "user-1",
			"amount":        "250",
			"type":          models.TransactionTypeIncome,
		},
	}
}

func TestSweepConsistentLedger(t *testing.T) {
	pub := &recordingPublisher{}
	a := NewAuditor(newLedger(t), pub)

	diverged, err := a.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, diverged)
	assert.Empty(t, pub.events)
}

func TestSweepReportsDivergence(t *testing.T) {
	l := newLedger(t)
	corrupt(t, l)
	pub := &recordingPublisher{}

	diverged, err := NewAuditor(l, pub).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, diverged)

	require.Len(t, pub.events, 1)
	got := pub.events[0]
	assert.Equal(t, "acc-b", got.AccountID)
	assert.True(t, got.StoredBalance.Equal(dec("10")))
	assert.True(t, got.JournalBalance.IsZero())
}

func TestSweepWithoutPublisher(t *testing.T) {
	l := newLedger(t)
	corrupt(t, l)

	diverged, err := NewAuditor(l, nil).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, diverged)
}

func TestSweepLedgerFailure(t *testing.T) {
	_, err := NewAuditor(failingLedger{}, nil).Sweep(context.Background())
	assert.Error(t, err)
}

func TestHandleTransactionEvent(t *testing.T) {
	l := newLedger(t)
	corrupt(t, l)

	tests := []struct {
		name          string
		event         events.Event
		wantPublished int
	}{
		{"consistent account", transactionEvent("acc-a"), 0},
		{"diverged account", transactionEvent("acc-b"), 1},
		{"deleted account is ignored", transactionEvent("acc-gone"), 0},
		{"unrelated event type", events.Event{Type: events.AccountCreated, Data: map[string]any{"accountId": "acc-b"}}, 0},
		{"undecodable payload is acknowledged", events.Event{Type: events.TransactionUpdated, Data: "not an object"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &recordingPublisher{}
			err := NewAuditor(l, pub).HandleTransactionEvent(context.Background(), tt.event)
			require.NoError(t, err)
			assert.Len(t, pub.events, tt.wantPublished)
		})
	}
}

func TestHandleTransactionEventLedgerFailure(t *testing.T) {
	err := NewAuditor(failingLedger{}, nil).HandleTransactionEvent(context.Background(), transactionEvent("acc-a"))
	assert.Error(t, err)
}

func TestSchedule(t *testing.T) {
	a := NewAuditor(newLedger(t), nil)
	c := cron.New()

	id, err := a.Schedule(c, "@every 1h")
	require.NoError(t, err)
	assert.NotZero(t, id)
	assert.Len(t, c.Entries(), 1)

	_, err = a.Schedule(c, "every now and then")
	assert.Error(t, err)
}
