package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/voicemint/billing/internal/app/service/checkout"
	"github.com/voicemint/billing/pkg/response"
)

// @Summary      Initiate Payment
// @Description  Creates a pending transaction and returns the provider's hosted checkout URL.
// @Tags         Payment
// @Accept       json
// @Produce      json
// @Param        request body checkout.InitiateRequest true "Product and GST-inclusive amount in paisa"
// @Success      200  {object}  handlers.RespInitiatePayment
// @Router       /api/v1/payment/initiate [post]
func ApiInitiatePayment(svc *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req checkout.InitiateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := svc.InitiatePayment(c.Request.Context(), c.GetString("user_id"), &req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

func RegisterCheckoutRoutes(r gin.IRouter, svc *checkout.Service) {
	r.POST("/initiate", ApiInitiatePayment(svc))
}
