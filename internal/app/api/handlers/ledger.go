package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/voicemint/billing/internal/app/service/ledger"
	"github.com/voicemint/billing/pkg/response"
	"github.com/voicemint/billing/pkg/types"
)

type LedgerBalances struct {
	CommonCredits       int64          `json:"common_credits"`
	TTSCharacters       int64          `json:"tts_characters"`
	CloneCharacters     int64          `json:"clone_characters"`
	TalkingImageSeconds int64          `json:"talking_image_seconds"`
	ProService          *types.Service `json:"pro_service,omitempty"`
	ProActive           bool           `json:"pro_active"`
}

// @Summary      Get Ledger
// @Description  Returns the caller's credit balances and pro entitlement.
// @Tags         Ledger
// @Produce      json
// @Success      200  {object}  handlers.RespLedger
// @Router       /api/v1/ledger [get]
func ApiGetLedger(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		row, err := svc.EnsureLedger(c.Request.Context(), c.GetString("user_id"))
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(&LedgerBalances{
			CommonCredits:       row.CommonCredits,
			TTSCharacters:       row.TTSCharacters,
			CloneCharacters:     row.CloneCharacters,
			TalkingImageSeconds: row.TalkingImageSeconds,
			ProService:          row.ProService,
			ProActive:           row.ProActive(time.Now()),
		}))
	}
}

type ConsumeRequest struct {
	Service types.Service `json:"service"`
	Amount  int64         `json:"amount"`
}

type ConsumeResponse struct {
	// Column reports which balance was debited: the service allowance or
	// common_credits.
	Column string `json:"column"`
}

// @Summary      Consume Credits
// @Description  Debits usage for one service. The service allowance is drained before common credits.
// @Tags         Ledger
// @Accept       json
// @Produce      json
// @Param        request body handlers.ConsumeRequest true "Service and usage amount"
// @Success      200  {object}  handlers.RespConsume
// @Router       /api/v1/ledger/consume [post]
func ApiConsume(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ConsumeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		column, err := svc.Consume(c.Request.Context(), c.GetString("user_id"), req.Service, req.Amount)
		if err != nil {
			if errors.Is(err, ledger.ErrInsufficientBalance) {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
				return
			}
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(&ConsumeResponse{Column: column}))
	}
}

func RegisterLedgerRoutes(r gin.IRouter, svc *ledger.Service) {
	r.GET("", ApiGetLedger(svc))
	r.POST("/consume", ApiConsume(svc))
}
