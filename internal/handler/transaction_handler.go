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

const (
	IdempotencyKeyHeader     = "Idempotency-Key"
	IdempotentReplayedHeader = "Idempotent-Replayed"
	maxIdempotencyKeyLength  = 255
)

// TransactionCommander defines the write-side operations used by TransactionHandler.
type TransactionCommander interface {
	CreateTransaction(context.Context, cqrs.CreateTransactionCommand) (*models.TransactionResult, error)
	UpdateTransaction(context.Context, cqrs.UpdateTransactionCommand) (*models.TransactionResult, error)
	DeleteTransaction(context.Context, cqrs.DeleteTransactionCommand) (decimal.Decimal, error)
}

// TransactionQuerier defines the read-side operations used by TransactionHandler.
type TransactionQuerier interface {
	GetTransaction(context.Context, cqrs.GetTransactionQuery) (*models.TransactionView, error)
	ListTransactions(context.Context, cqrs.ListTransactionsQuery) ([]models.TransactionView, error)
	Summary(context.Context, cqrs.TransactionSummaryQuery) (*models.TransactionSummary, error)
	Categories() models.CategorySuggestions
}

type TransactionHandler struct {
	commands TransactionCommander
	queries  TransactionQuerier
}

type CreateTransactionRequest struct {
	AccountID   string          `json:"accountId" validate:"required"`
	Type        string          `json:"type" validate:"required,oneof=income expense"`
	Amount      decimal.Decimal `json:"amount" validate:"required,gt=0"`
	Category    string          `json:"category" validate:"required,max=50"`
	Description string          `json:"description" validate:"max=200"`
	Date        string          `json:"date"`
}

type UpdateTransactionRequest struct {
	Type        *string          `json:"type" validate:"omitempty,oneof=income expense"`
	Amount      *decimal.Decimal `json:"amount" validate:"omitempty,gt=0"`
	Category    *string          `json:"category" validate:"omitempty,max=50"`
	Description *string          `json:"description" validate:"omitempty,max=200"`
	Date        *string          `json:"date"`
}

type ListTransactionsResponse struct {
	Transactions []models.TransactionView `json:"transactions"`
}

type DeleteTransactionResponse struct {
	Message        string          `json:"message"`
	UpdatedBalance decimal.Decimal `json:"updatedBalance"`
}

func NewTransactionHandler(commands TransactionCommander, queries TransactionQuerier) *TransactionHandler {
	return &TransactionHandler{commands: commands, queries: queries}
}

func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}
	if !utils.ValidateAccountID(req.AccountID) {
		middleware.RespondWithValidationError(c, []middleware.ValidationError{
			{Field: "accountId", Message: "Invalid account ID format", Type: "format"},
		})
		return
	}
	idempotencyKey := c.GetHeader(IdempotencyKeyHeader)
	if len(idempotencyKey) > maxIdempotencyKeyLength {
		middleware.RespondWithError(c, http.StatusBadRequest, "Idempotency-Key is too long")
		return
	}

	cmd := cqrs.CreateTransactionCommand{
		UserID:         userID,
		AccountID:      req.AccountID,
		Type:           req.Type,
		Amount:         req.Amount,
		Category:       req.Category,
		Description:    req.Description,
		IdempotencyKey: idempotencyKey,
	}
	if req.Date != "" {
		date, _, err := utils.ParseDate(req.Date)
		if err != nil {
			respondWithDateError(c, "date")
			return
		}
		cmd.Date = &date
	}

	result, err := h.commands.CreateTransaction(c.Request.Context(), cmd)
	if err != nil {
		middleware.RespondWithAppError(c, err, "Failed to create transaction")
		return
	}

	if result.Replayed {
		c.Header(IdempotentReplayedHeader, "true")
	}
	c.JSON(http.StatusCreated, result)
}

func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	q, ok := transactionFilters(c)
	if !ok {
		return
	}

	views, err := h.queries.ListTransactions(c.Request.Context(), q)
	if err != nil {
		middleware.RespondWithAppError(c, err, "Failed to list transactions")
		return
	}
	if views == nil {
		views = []models.TransactionView{}
	}

	c.JSON(http.StatusOK, ListTransactionsResponse{Transactions: views})
}

func (h *TransactionHandler) GetSummary(c *gin.Context) {
	q, ok := transactionFilters(c)
	if !ok {
		return
	}

	summary, err := h.queries.Summary(c.Request.Context(), cqrs.TransactionSummaryQuery(q))
	if err != nil {
		middleware.RespondWithAppError(c, err, "Failed to summarize transactions")
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *TransactionHandler) GetCategories(c *gin.Context) {
	c.JSON(http.StatusOK, h.queries.Categories())
}

func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	transactionID, ok := transactionIDParam(c)
	if !ok {
		return
	}
	userID, _ := middleware.GetUserID(c)

	view, err := h.queries.GetTransaction(c.Request.Context(), cqrs.GetTransactionQuery{
		TransactionID: transactionID,
		UserID:        userID,
	})
	if err != nil {
		middleware.RespondWithAppError(c, err, "Failed to get transaction")
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
	transactionID, ok := transactionIDParam(c)
	if !ok {
		return
	}
	userID, _ := middleware.GetUserID(c)

	var req UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	cmd := cqrs.UpdateTransactionCommand{
		TransactionID: transactionID,
		UserID:        userID,
		Type:          req.Type,
		Amount:        req.Amount,
		Category:      req.Category,
		Description:   req.Description,
	}
	if req.Date != nil {
		date, _, err := utils.ParseDate(*req.Date)
		if err != nil {
			respondWithDateError(c, "date")
			return
		}
		cmd.Date = &date
	}

	result, err := h.commands.UpdateTransaction(c.Request.Context(), cmd)
	if err != nil {
		middleware.RespondWithAppError(c, err, "Failed to update transaction")
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	transactionID, ok := transactionIDParam(c)
	if !ok {
		return
	}
	userID, _ := middleware.GetUserID(c)

	balance, err := h.commands.DeleteTransaction(c.Request.Context(), cqrs.DeleteTransactionCommand{
		TransactionID: transactionID,
		UserID:        userID,
	})
	if err != nil {
		middleware.RespondWithAppError(c, err, "Failed to delete transaction")
		return
	}

	c.JSON(http.StatusOK, DeleteTransactionResponse{
		Message:        "Transaction deleted",
		UpdatedBalance: balance,
	})
}

// transactionFilters reads the list/summary query string. A date-only
// endDate covers the whole day.
func transactionFilters(c *gin.Context) (cqrs.ListTransactionsQuery, bool) {
	userID, _ := middleware.GetUserID(c)
	q := cqrs.ListTransactionsQuery{
		UserID:    userID,
		AccountID: c.Query("accountId"),
		Type:      c.Query("type"),
		Category:  c.Query("category"),
	}

	if s := c.Query("startDate"); s != "" {
		start, _, err := utils.ParseDate(s)
		if err != nil {
			respondWithDateError(c, "startDate")
			return q, false
		}
		q.StartDate = &start
	}
	if s := c.Query("endDate"); s != "" {
		end, err := utils.ParseRangeEnd(s)
		if err != nil {
			respondWithDateError(c, "endDate")
			return q, false
		}
		q.EndDate = &end
	}
	return q, true
}

func transactionIDParam(c *gin.Context) (string, bool) {
	transactionID := c.Param("transactionId")
	if !utils.ValidateTransactionID(transactionID) {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid transaction ID format")
		return "", false
	}
	return transactionID, true
}

func respondWithDateError(c *gin.Context, field string) {
	middleware.RespondWithValidationError(c, []middleware.ValidationError{
		{Field: field, Message: "Invalid date format", Type: "datetime"},
	})
}
