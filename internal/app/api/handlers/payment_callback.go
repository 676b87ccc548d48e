package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/voicemint/billing/internal/app/service/reconciler"
	"github.com/voicemint/billing/pkg/config"
	"github.com/voicemint/billing/pkg/logctx"
	"github.com/voicemint/billing/pkg/response"
)

// @Summary      Payment Callback
// @Description  Handles provider server-to-server payment notifications. Accepts JSON or URL-encoded form bodies. Redirects the paying client to the configured success/failure page.
// @Tags         Payment
// @Accept       json
// @Produce      json
// @Param        payload body reconciler.Notification true "Provider notification"
// @Success      303
// @Failure      400  {object}  handlers.RespOK
// @Failure      404  {object}  handlers.RespOK
// @Router       /api/v1/payment/callback [post]
// ApiPaymentCallback drives the reconciler from a provider notification.
func ApiPaymentCallback(svc *reconciler.Service, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var n reconciler.Notification
		if err := c.ShouldBind(&n); err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorT(response.APIResponseCodeBadRequest, err.Error()))
			return
		}

		out, err := svc.Reconcile(c.Request.Context(), &n)
		if err != nil {
			logctx.FromCtx(c, svc.Logger).Errorw("payment_callback_error", "error", err.Error())
			switch {
			case errors.Is(err, reconciler.ErrMalformedNotification),
				errors.Is(err, reconciler.ErrUnrecognizedAmount):
				c.JSON(http.StatusBadRequest, response.ErrorT(response.APIResponseCodeBadRequest, err.Error()))
			case errors.Is(err, reconciler.ErrTransactionNotFound):
				c.JSON(http.StatusNotFound, response.ErrorT(response.APIResponseCodeNotFound, err.Error()))
			default:
				c.JSON(http.StatusInternalServerError, response.ErrorT(response.APIResponseCodeError, err.Error()))
			}
			return
		}

		if !out.Success {
			c.Redirect(http.StatusSeeOther, withQuery(cfg.Redirect.FailureURL, url.Values{"reason": {out.Reason}}))
			return
		}

		q := url.Values{}
		if g := out.Grant; g != nil {
			if g.Kind == reconciler.GrantKindAllowance {
				q.Set("characters", strconv.FormatInt(g.Characters, 10))
				q.Set("product", string(g.Service))
			} else {
				q.Set("credits", strconv.FormatInt(g.Credits, 10))
			}
		}
		c.Redirect(http.StatusSeeOther, withQuery(cfg.Redirect.SuccessURL, q))
	}
}

// withQuery appends params to a base URL, preserving any existing query.
func withQuery(base string, params url.Values) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func RegisterPaymentCallbackRoutes(r gin.IRouter, svc *reconciler.Service, cfg *config.Config) {
	r.POST("/callback", ApiPaymentCallback(svc, cfg))
}
