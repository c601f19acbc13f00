// Package audit checks that each account's stored balance, income and expense
// still equal the aggregates recomputed from its journal.
package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/eaglebank/ledger-service/internal/repository"
	"github.com/eaglebank/ledger-service/shared/apperrors"
	"github.com/eaglebank/ledger-service/shared/events"
	"github.com/eaglebank/ledger-service/shared/models"
	"github.com/robfig/cron/v3"
)

// ConsumerGroup is the Redis Streams group the auditor reads transaction
// events through.
const ConsumerGroup = "ledger-audit-group"

type ledgerAuditor interface {
	AuditAccount(ctx context.Context, accountID string) (*models.AuditReport, error)
	AuditAll(ctx context.Context) ([]models.AuditReport, error)
}

type eventPublisher interface {
	Publish(ctx context.Context, stream, eventType string, data any) error
}

// Auditor reports divergence and never repairs it.
type Auditor struct {
	ledger    ledgerAuditor
	publisher eventPublisher
}

// NewAuditor builds an Auditor. publisher may be nil, in which case
// divergence is only logged.
func NewAuditor(ledger ledgerAuditor, publisher eventPublisher) *Auditor {
	return &Auditor{ledger: ledger, publisher: publisher}
}

// HandleTransactionEvent is an events.Handler for the transaction stream.
func (a *Auditor) HandleTransactionEvent(ctx context.Context, event events.Event) error {
	switch event.Type {
	case events.TransactionCreated, events.TransactionUpdated, events.TransactionDeleted:
	default:
		return nil
	}

	var payload events.TransactionEvent
	if err := event.DecodeData(&payload); err != nil {
		// A malformed payload will never decode; acknowledge it.
		slog.Error("dropping undecodable transaction event", "type", event.Type, "error", err)
		return nil
	}

	report, err := a.ledger.AuditAccount(ctx, payload.AccountID)
	if errors.Is(err, repository.ErrAccountNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to audit account %s: %w", payload.AccountID, err)
	}

	a.check(ctx, report)
	return nil
}

// Sweep audits every account and returns how many diverged.
func (a *Auditor) Sweep(ctx context.Context) (int, error) {
	reports, err := a.ledger.AuditAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to audit ledger: %w", err)
	}

	diverged := 0
	for i := range reports {
		if !a.check(ctx, &reports[i]) {
			diverged++
		}
	}
	slog.Info("ledger audit sweep finished", "accounts", len(reports), "diverged", diverged)
	return diverged, nil
}

// Schedule registers Sweep on c using a cron schedule expression.
func (a *Auditor) Schedule(c *cron.Cron, schedule string) (cron.EntryID, error) {
	id, err := c.AddFunc(schedule, func() {
		if _, err := a.Sweep(context.Background()); err != nil {
			slog.Error("scheduled ledger audit failed", "error", err)
		}
	})
	if err != nil {
		return 0, fmt.Errorf("invalid audit schedule %q: %w", schedule, err)
	}
	return id, nil
}

func (a *Auditor) check(ctx context.Context, report *models.AuditReport) bool {
	if report.Consistent() {
		return true
	}

	err := apperrors.NewConsistencyError("account aggregates diverge from journal", nil)
	slog.Error("ledger divergence detected",
		"accountId", report.AccountID,
		"storedBalance", report.Stored.Balance.String(),
		"journalBalance", report.Journal.Balance.String(),
		"storedIncome", report.Stored.Income.String(),
		"journalIncome", report.Journal.Income.String(),
		"storedExpense", report.Stored.Expense.String(),
		"journalExpense", report.Journal.Expense.String(),
		"error", err,
	)

	if a.publisher == nil {
		return false
	}
	if perr := a.publisher.Publish(ctx, events.LedgerEventsStream, events.LedgerDiverged, events.LedgerDivergedEvent{
		AccountID:      report.AccountID,
		UserID:         report.UserID,
		StoredBalance:  report.Stored.Balance,
		JournalBalance: report.Journal.Balance,
		StoredIncome:   report.Stored.Income,
		JournalIncome:  report.Journal.Income,
		StoredExpense:  report.Stored.Expense,
		JournalExpense: report.Journal.Expense,
	}); perr != nil {
		slog.Warn("failed to publish event", "type", events.LedgerDiverged, "error", perr)
	}
	return false
}
