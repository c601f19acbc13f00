package handler

import (
	"context"
	"net/http"

	"github.com/eaglebank/ledger-service/shared/cqrs"
	"github.com/eaglebank/ledger-service/shared/middleware"
	"github.com/eaglebank/ledger-service/shared/models"
	"github.com/eaglebank/ledger-service/shared/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// AccountCommander defines the write-side operations used by AccountHandler.
type AccountCommander interface {
	CreateAccount(context.Context, cqrs.CreateAccountCommand) (*models.Account, error)
	UpdateAccount(context.Context, cqrs.UpdateAccountCommand) (*models.Account, error)
	DeleteAccount(context.Context, cqrs.DeleteAccountCommand) error
}

// AccountQuerier defines the read-side operations used by AccountHandler.
type AccountQuerier interface {
	GetAccount(context.Context, cqrs.GetAccountQuery) (*models.AccountView, error)
	ListAccounts(context.Context, cqrs.ListAccountsQuery) ([]models.AccountView, error)
}

// AccountHandler handles account-related HTTP requests.
type AccountHandler struct {
	commands AccountCommander
	queries  AccountQuerier
}

type CreateAccountRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	AccountType string `json:"type" validate:"required,oneof=Savings Current Investment 'Credit Card' Cash"`
}

type UpdateAccountRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	AccountType *string `json:"type" validate:"omitempty,oneof=Savings Current Investment 'Credit Card' Cash"`
}

type ListAccountsResponse struct {
	Accounts []models.AccountView `json:"accounts"`
}

type BalanceResponse struct {
	AccountID string          `json:"accountId"`
	Balance   decimal.Decimal `json:"balance"`
	Income    decimal.Decimal `json:"income"`
	Expense   decimal.Decimal `json:"expense"`
}

func NewAccountHandler(commands AccountCommander, queries AccountQuerier) *AccountHandler {
	return &AccountHandler{commands: commands, queries: queries}
}

func (h *AccountHandler) CreateAccount(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	account, err := h.commands.CreateAccount(c.Request.Context(), cqrs.CreateAccountCommand{
		UserID:      userID,
		Name:        req.Name,
		AccountType: req.AccountType,
	})
	if err != nil {
		middleware.RespondWithAppError(c, err, "Failed to create account")
		return
	}

	c.JSON(http.StatusCreated, account)
}

func (h *AccountHandler) ListAccounts(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	views, err := h.queries.ListAccounts(c.Request.Context(), cqrs.ListAccountsQuery{UserID: userID})
	if err != nil {
		middleware.RespondWithAppError(c, err, "Failed to list accounts")
		return
	}
	if views == nil {
		views = []models.AccountView{}
	}

	c.JSON(http.StatusOK, ListAccountsResponse{Accounts: views})
}

func (h *AccountHandler) GetAccount(c *gin.Context) {
	view, ok := h.fetchAccount(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *AccountHandler) GetBalance(c *gin.Context) {
	view, ok := h.fetchAccount(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, BalanceResponse{
		AccountID: view.ID,
		Balance:   view.Balance,
		Income:    view.Income,
		Expense:   view.Expense,
	})
}

func (h *AccountHandler) fetchAccount(c *gin.Context) (*models.AccountView, bool) {
	accountID, ok := accountIDParam(c)
	if !ok {
		return nil, false
	}
	userID, _ := middleware.GetUserID(c)

	view, err := h.queries.GetAccount(c.Request.Context(), cqrs.GetAccountQuery{
		AccountID:        accountID,
		RequestingUserID: userID,
	})
	if err != nil {
		middleware.RespondWithAppError(c, err, "Failed to get account")
		return nil, false
	}
	return view, true
}

func (h *AccountHandler) UpdateAccount(c *gin.Context) {
	accountID, ok := accountIDParam(c)
	if !ok {
		return
	}
	userID, _ := middleware.GetUserID(c)

	var req UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	account, err := h.commands.UpdateAccount(c.Request.Context(), cqrs.UpdateAccountCommand{
		AccountID:        accountID,
		RequestingUserID: userID,
		Name:             req.Name,
		AccountType:      req.AccountType,
	})
	if err != nil {
		middleware.RespondWithAppError(c, err, "Failed to update account")
		return
	}

	c.JSON(http.StatusOK, account)
}

func (h *AccountHandler) DeleteAccount(c *gin.Context) {
	accountID, ok := accountIDParam(c)
	if !ok {
		return
	}
	userID, _ := middleware.GetUserID(c)

	if err := h.commands.DeleteAccount(c.Request.Context(), cqrs.DeleteAccountCommand{
		AccountID:        accountID,
		RequestingUserID: userID,
	}); err != nil {
		middleware.RespondWithAppError(c, err, "Failed to delete account")
		return
	}

	c.Status(http.StatusNoContent)
}

func accountIDParam(c *gin.Context) (string, bool) {
	accountID := c.Param("accountId")
	if !utils.ValidateAccountID(accountID) {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid account ID format")
		return "", false
	}
	return accountID, true
}
