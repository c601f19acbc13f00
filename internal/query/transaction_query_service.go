package query

import (
	"context"

	"github.com/eaglebank/ledger-service/shared/apperrors"
	"github.com/eaglebank/ledger-service/shared/cqrs"
	"github.com/eaglebank/ledger-service/shared/models"
)

type journalReader interface {
	GetTransaction(ctx context.Context, ownerID, transactionID string) (*models.TransactionView, error)
	ListTransactions(ctx context.Context, filter models.TransactionFilter) ([]models.TransactionView, error)
	Summarize(ctx context.Context, filter models.TransactionFilter) (models.Delta, error)
}

// TransactionQueryService reads the journal. Summaries are always computed
// from transactions, never from account aggregates.
type TransactionQueryService struct {
	journal journalReader
}

func NewTransactionQueryService(journal journalReader) *TransactionQueryService {
	return &TransactionQueryService{journal: journal}
}

func (s *TransactionQueryService) GetTransaction(ctx context.Context, q cqrs.GetTransactionQuery) (*models.TransactionView, error) {
	return s.journal.GetTransaction(ctx, q.UserID, q.TransactionID)
}

// ListTransactions returns matching transactions, newest date first.
func (s *TransactionQueryService) ListTransactions(ctx context.Context, q cqrs.ListTransactionsQuery) ([]models.TransactionView, error) {
	filter, err := toFilter(q)
	if err != nil {
		return nil, err
	}
	return s.journal.ListTransactions(ctx, filter)
}

func (s *TransactionQueryService) Summary(ctx context.Context, q cqrs.TransactionSummaryQuery) (*models.TransactionSummary, error) {
	filter, err := toFilter(cqrs.ListTransactionsQuery(q))
	if err != nil {
		return nil, err
	}
	total, err := s.journal.Summarize(ctx, filter)
	if err != nil {
		return nil, err
	}
	return models.SummaryFromDelta(total), nil
}

func (s *TransactionQueryService) Categories() models.CategorySuggestions {
	return models.DefaultCategories
}

func toFilter(q cqrs.ListTransactionsQuery) (models.TransactionFilter, error) {
	if q.Type != "" && !models.IsValidTransactionType(q.Type) {
		return models.TransactionFilter{}, apperrors.NewValidationError("type filter must be income or expense")
	}
	if q.StartDate != nil && q.EndDate != nil && q.StartDate.After(*q.EndDate) {
		return models.TransactionFilter{}, apperrors.NewValidationError("startDate must not be after endDate")
	}
	return models.TransactionFilter{
		OwnerID:   q.UserID,
		AccountID: q.AccountID,
		Type:      q.Type,
		Category:  q.Category,
		StartDate: q.StartDate,
		EndDate:   q.EndDate,
	}, nil
}
