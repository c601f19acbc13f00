package query

import (
	"context"

	"github.com/eaglebank/ledger-service/shared/cqrs"
	"github.com/eaglebank/ledger-service/shared/models"
)

type accountLister interface {
	ListAccounts(ctx context.Context, ownerID string) ([]models.Account, error)
}

type accountViewReader interface {
	GetAccountView(ctx context.Context, ownerID, accountID string) (*models.AccountView, error)
}

type AccountQueryService struct {
	ledger accountLister
	views  accountViewReader
}

func NewAccountQueryService(ledger accountLister, views accountViewReader) *AccountQueryService {
	return &AccountQueryService{ledger: ledger, views: views}
}

// GetAccount returns the caller's account, served from the view cache when warm.
// Accounts owned by someone else are reported as not found.
func (s *AccountQueryService) GetAccount(ctx context.Context, q cqrs.GetAccountQuery) (*models.AccountView, error) {
	return s.views.GetAccountView(ctx, q.RequestingUserID, q.AccountID)
}

func (s *AccountQueryService) ListAccounts(ctx context.Context, q cqrs.ListAccountsQuery) ([]models.AccountView, error) {
	accounts, err := s.ledger.ListAccounts(ctx, q.UserID)
	if err != nil {
		return nil, err
	}
	views := make([]models.AccountView, 0, len(accounts))
	for i := range accounts {
		views = append(views, *models.NewAccountView(&accounts[i]))
	}
	return views, nil
}
