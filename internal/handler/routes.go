package handler

import "github.com/gin-gonic/gin"

func RegisterAccountRoutes(api *gin.RouterGroup, h *AccountHandler) {
	accounts := api.Group("/accounts")
	{
		accounts.POST("", h.CreateAccount)
		accounts.GET("", h.ListAccounts)
		accounts.GET("/:accountId", h.GetAccount)
		accounts.GET("/:accountId/balance", h.GetBalance)
		accounts.PUT("/:accountId", h.UpdateAccount)
		accounts.DELETE("/:accountId", h.DeleteAccount)
	}
}

// RegisterTransactionRoutes mounts the journal endpoints. The static
// summary and categories paths sit beside the :transactionId wildcard.
func RegisterTransactionRoutes(api *gin.RouterGroup, h *TransactionHandler) {
	transactions := api.Group("/transactions")
	{
		transactions.POST("", h.CreateTransaction)
		transactions.GET("", h.ListTransactions)
		transactions.GET("/summary", h.GetSummary)
		transactions.GET("/categories", h.GetCategories)
		transactions.GET("/:transactionId", h.GetTransaction)
		transactions.PUT("/:transactionId", h.UpdateTransaction)
		transactions.DELETE("/:transactionId", h.DeleteTransaction)
	}
}
