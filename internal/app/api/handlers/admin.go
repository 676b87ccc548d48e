package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/voicemint/billing/internal/app/service/ledger"
	"github.com/voicemint/billing/internal/app/service/statistics"
	"github.com/voicemint/billing/pkg/response"
)

// @Summary      List Transactions (Admin)
// @Description  Retrieves a paginated and filterable list of all transactions.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body ledger.ListTransactionsRequest true "List transaction request with filters, pagination, and sorting"
// @Success      200  {object}  handlers.RespListTransactions
// @Router       /api/v1/admin/list_transactions [post]
func ApiListTransactions(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ledger.ListTransactionsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := svc.ListTransactions(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Get Revenue Statistics (Admin)
// @Description  Retrieves daily revenue and credit grant statistics.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body statistics.RevenueStatisticRequest true "Statistic request parameters"
// @Success      200  {object}  handlers.RespRevenueStatistic
// @Router       /api/v1/admin/get_revenue_statistic [post]
func ApiGetRevenueStatistic(svc *statistics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statistics.RevenueStatisticRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := svc.GetRevenueStatistic(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Grant Credits (Admin)
// @Description  Grants common credits to a user through an internal transaction, for support goodwill and migrations.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body handlers.GrantCreditsRequest true "Grant credits request"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/grant_credits [post]
func ApiGrantCredits(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req GrantCreditsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		if req.UserID == "" || req.Credits <= 0 || req.OperatorID == "" {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "missing user_id or credits or operator_id"))
			return
		}
		if err := svc.GrantCredits(c.Request.Context(), req.UserID, req.Credits, req.OperatorID); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

type GrantCreditsRequest struct {
	UserID     string `json:"user_id"`
	Credits    int64  `json:"credits"`
	OperatorID string `json:"operator_id"`
}

func RegisterAdminRoutes(r gin.IRouter, ledgerSvc *ledger.Service, stats *statistics.Service) {
	r.POST("/list_transactions", ApiListTransactions(ledgerSvc))
	r.POST("/get_revenue_statistic", ApiGetRevenueStatistic(stats))
	r.POST("/grant_credits", ApiGrantCredits(ledgerSvc))
}
