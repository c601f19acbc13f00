package command

import (
	"context"
	"errors"
	"sync"

	"github.com/eaglebank/ledger-service/internal/repository"
	"github.com/eaglebank/ledger-service/shared/models"
)

type publishedEvent struct {
	stream    string
	eventType string
	data      any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, stream, eventType string, data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{stream: stream, eventType: eventType, data: data})
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.eventType)
	}
	return out
}

type recordingViews struct {
	cached      []string
	invalidated []string
}

func (v *recordingViews) CacheAccountView(ctx context.Context, view *models.AccountView) {
	v.cached = append(v.cached, view.ID)
}

func (v *recordingViews) InvalidateAccountView(ctx context.Context, accountID string) {
	v.invalidated = append(v.invalidated, accountID)
}

// memoryIdempotency mimics repository.IdempotencyRepository without Redis.
type memoryIdempotency struct {
	mu   sync.Mutex
	keys map[string]string
	// completeFailures makes the next n Complete calls fail.
	completeFailures int
}

func newMemoryIdempotency() *memoryIdempotency {
	return &memoryIdempotency{keys: make(map[string]string)}
}

func (m *memoryIdempotency) Reserve(ctx context.Context, ownerID, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := ownerID + ":" + key
	if v, ok := m.keys[k]; ok {
		return v, false, nil
	}
	m.keys[k] = ""
	return "", true, nil
}

func (m *memoryIdempotency) Complete(ctx context.Context, ownerID, key, transactionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.completeFailures > 0 {
		m.completeFailures--
		return errors.New("redis timeout")
	}
	m.keys[ownerID+":"+key] = transactionID
	return nil
}

func (m *memoryIdempotency) Release(ctx context.Context, ownerID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, ownerID+":"+key)
	return nil
}

var errInjected = errors.New("injected write failure")

// faultyLedger fails the journal write after the delta has been applied.
type faultyLedger struct {
	repository.Ledger
	failInsert bool
	failUpdate bool
	failDelete bool
}

func (f *faultyLedger) WithinUnitOfWork(ctx context.Context, fn func(tx repository.LedgerTx) error) error {
	return f.Ledger.WithinUnitOfWork(ctx, func(tx repository.LedgerTx) error {
		return fn(&faultyTx{LedgerTx: tx, ledger: f})
	})
}

type faultyTx struct {
	repository.LedgerTx
	ledger *faultyLedger
}

func (t *faultyTx) InsertTransaction(ctx context.Context, txn *models.Transaction) error {
	if t.ledger.failInsert {
		return errInjected
	}
	return t.LedgerTx.InsertTransaction(ctx, txn)
}

func (t *faultyTx) UpdateTransaction(ctx context.Context, txn *models.Transaction) error {
	if t.ledger.failUpdate {
		return errInjected
	}
	return t.LedgerTx.UpdateTransaction(ctx, txn)
}

func (t *faultyTx) DeleteTransaction(ctx context.Context, ownerID, transactionID string) error {
	if t.ledger.failDelete {
		return errInjected
	}
	return t.LedgerTx.DeleteTransaction(ctx, ownerID, transactionID)
}
