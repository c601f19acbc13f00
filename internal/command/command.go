// Package command implements the write side of the ledger: account and
// transaction mutations, each committed in one unit of work before any cache
// or event side effects run.
package command

import (
	"context"
	"log/slog"

	"github.com/eaglebank/ledger-service/shared/models"
)

// EventPublisher is satisfied by *events.Publisher.
type EventPublisher interface {
	Publish(ctx context.Context, stream, eventType string, data any) error
}

// AccountViewCache is satisfied by *repository.AccountReadRepository.
type AccountViewCache interface {
	CacheAccountView(ctx context.Context, view *models.AccountView)
	InvalidateAccountView(ctx context.Context, accountID string)
}

// IdempotencyStore is satisfied by *repository.IdempotencyRepository.
type IdempotencyStore interface {
	Reserve(ctx context.Context, ownerID, key string) (transactionID string, reserved bool, err error)
	Complete(ctx context.Context, ownerID, key, transactionID string) error
	Release(ctx context.Context, ownerID, key string) error
}

// sideEffects runs post-commit work. Failures are logged and never reach the
// caller since the ledger change is already durable.
type sideEffects struct {
	publisher EventPublisher
	views     AccountViewCache
}

func (e sideEffects) publish(ctx context.Context, stream, eventType string, data any) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.Publish(ctx, stream, eventType, data); err != nil {
		slog.Warn("failed to publish event", "type", eventType, "error", err)
	}
}

func (e sideEffects) invalidate(ctx context.Context, accountID string) {
	if e.views != nil {
		e.views.InvalidateAccountView(ctx, accountID)
	}
}

func (e sideEffects) cache(ctx context.Context, account *models.Account) {
	if e.views != nil {
		e.views.CacheAccountView(ctx, models.NewAccountView(account))
	}
}
