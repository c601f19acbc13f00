package repository

import (
	"context"
	"time"

	"github.com/eaglebank/ledger-service/shared/models"
	sharedredis "github.com/eaglebank/ledger-service/shared/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const accountViewKeyPrefix = "account:view:"

// accountCacheEntry is the Redis representation of an account. Unlike
// models.AccountView it serialises UserID so ownership can be checked on a hit.
type accountCacheEntry struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Name      string          `json:"name"`
	Type      string          `json:"type"`
	Balance   decimal.Decimal `json:"balance"`
	Income    decimal.Decimal `json:"income"`
	Expense   decimal.Decimal `json:"expense"`
	CreatedAt time.Time       `json:"createdTimestamp"`
	UpdatedAt time.Time       `json:"updatedTimestamp"`
}

type accountSource interface {
	GetAccount(ctx context.Context, ownerID, accountID string) (*models.Account, error)
}

// AccountReadRepository serves account views from Redis and falls back to the
// ledger, warming the cache on every cold read. Writers invalidate entries
// after commit; the TTL bounds staleness from reads racing a write.
type AccountReadRepository struct {
	ledger accountSource
	cache  *sharedredis.ViewCache[accountCacheEntry]
}

// NewAccountReadRepository returns a read-through repository. A nil client
// disables caching.
func NewAccountReadRepository(ledger accountSource, redisClient goredis.Cmdable, ttl time.Duration) *AccountReadRepository {
	r := &AccountReadRepository{ledger: ledger}
	if redisClient != nil {
		r.cache = sharedredis.NewViewCache[accountCacheEntry](redisClient, ttl)
	}
	return r
}

func (r *AccountReadRepository) GetAccountView(ctx context.Context, ownerID, accountID string) (*models.AccountView, error) {
	if r.cache != nil {
		if entry, ok := r.cache.Get(ctx, accountViewKeyPrefix+accountID); ok {
			if entry.UserID != ownerID {
				return nil, ErrAccountNotFound
			}
			return entryToView(entry), nil
		}
	}

	account, err := r.ledger.GetAccount(ctx, ownerID, accountID)
	if err != nil {
		return nil, err
	}
	view := models.NewAccountView(account)
	r.CacheAccountView(ctx, view)
	return view, nil
}

func (r *AccountReadRepository) CacheAccountView(ctx context.Context, view *models.AccountView) {
	if r.cache == nil {
		return
	}
	r.cache.Set(ctx, accountViewKeyPrefix+view.ID, &accountCacheEntry{
		ID:        view.ID,
		UserID:    view.UserID,
		Name:      view.Name,
		Type:      view.Type,
		Balance:   view.Balance,
		Income:    view.Income,
		Expense:   view.Expense,
		CreatedAt: view.CreatedAt,
		UpdatedAt: view.UpdatedAt,
	})
}

func (r *AccountReadRepository) InvalidateAccountView(ctx context.Context, accountID string) {
	if r.cache == nil {
		return
	}
	r.cache.Delete(ctx, accountViewKeyPrefix+accountID)
}

func entryToView(e *accountCacheEntry) *models.AccountView {
	return &models.AccountView{
		ID:        e.ID,
		UserID:    e.UserID,
		Name:      e.Name,
		Type:      e.Type,
		Balance:   e.Balance,
		Income:    e.Income,
		Expense:   e.Expense,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}
