package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/voicemint/billing/internal/app/service/callbacklog"
	"github.com/voicemint/billing/internal/app/service/ledger"
	"github.com/voicemint/billing/internal/app/service/reconciler"
	"github.com/voicemint/billing/internal/models"
	"github.com/voicemint/billing/pkg/config"
	"github.com/voicemint/billing/pkg/tool"
)

func newCallbackTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Ledger{}, &models.LedgerLog{}, &models.Transaction{}, &models.CallbackLog{}))

	cfg := &config.Config{
		Redirect: config.RedirectConfig{
			SuccessURL: "https://app.example.com/payment/success",
			FailureURL: "https://app.example.com/payment/failure",
		},
		Pricing: config.PricingConfig{
			CreditPacks:   []*config.CreditPack{{BaseAmount: 10, Credits: 1000}},
			ProBaseAmount: 499,
			ProCharacters: 1000000,
		},
	}

	log := zap.NewNop().Sugar()
	ledgerSvc := ledger.NewService(db, log)
	rec := reconciler.NewService(cfg, db, callbacklog.New(db, log), ledgerSvc, log)

	r := gin.New()
	RegisterPaymentCallbackRoutes(r.Group("/api/v1/payment"), rec, cfg)
	return r, db
}

func seedCallbackTransaction(t *testing.T, db *gorm.DB, productName string) *models.Transaction {
	t.Helper()
	require.NoError(t, db.Create(&models.Ledger{ID: tool.GenerateUUIDV7(), UserID: "u1"}).Error)
	txn := &models.Transaction{
		ID:            tool.GenerateUUIDV7(),
		UserID:        "u1",
		MerchantID:    "M_TEST",
		TransactionID: tool.GeneratePaymentReference(),
		Status:        models.TransactionStatusPending,
		Amount:        12,
		ProductName:   productName,
	}
	require.NoError(t, db.Create(txn).Error)
	return txn
}

func postCallback(r *gin.Engine, contentType string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payment/callback", bytes.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestApiPaymentCallback_JSONSuccessRedirectsWithCredits(t *testing.T) {
	r, db := newCallbackTestRouter(t)
	txn := seedCallbackTransaction(t, db, "credit_pack")

	body, _ := json.Marshal(map[string]any{
		"merchantId":    "M_TEST",
		"transactionId": txn.TransactionID,
		"amount":        1180,
		"code":          "PAYMENT_SUCCESS",
	})
	w := postCallback(r, "application/json", body)

	require.Equal(t, http.StatusSeeOther, w.Code)
	loc := w.Header().Get("Location")
	require.True(t, strings.HasPrefix(loc, "https://app.example.com/payment/success"))
	require.Contains(t, loc, "credits=1000")

	var row models.Ledger
	require.NoError(t, db.Where("user_id = ?", "u1").First(&row).Error)
	require.Equal(t, int64(1000), row.CommonCredits)
}

func TestApiPaymentCallback_FormBodyAccepted(t *testing.T) {
	r, db := newCallbackTestRouter(t)
	txn := seedCallbackTransaction(t, db, "credit_pack")

	form := url.Values{
		"merchantId":    {"M_TEST"},
		"transactionId": {txn.TransactionID},
		"amount":        {"1180"},
		"code":          {"PAYMENT_SUCCESS"},
	}
	w := postCallback(r, "application/x-www-form-urlencoded", []byte(form.Encode()))

	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Contains(t, w.Header().Get("Location"), "credits=1000")
}

func TestApiPaymentCallback_ProTierRedirectsWithCharacters(t *testing.T) {
	r, db := newCallbackTestRouter(t)
	txn := seedCallbackTransaction(t, db, "voice_clone")

	body, _ := json.Marshal(map[string]any{
		"merchantId":    "M_TEST",
		"transactionId": txn.TransactionID,
		"amount":        58882,
		"code":          "PAYMENT_SUCCESS",
	})
	w := postCallback(r, "application/json", body)

	require.Equal(t, http.StatusSeeOther, w.Code)
	loc := w.Header().Get("Location")
	require.Contains(t, loc, "characters=1000000")
	require.Contains(t, loc, "product=voice_clone")
}

func TestApiPaymentCallback_FailureCodeRedirectsWithReason(t *testing.T) {
	r, db := newCallbackTestRouter(t)
	txn := seedCallbackTransaction(t, db, "credit_pack")

	body, _ := json.Marshal(map[string]any{
		"merchantId":    "M_TEST",
		"transactionId": txn.TransactionID,
		"amount":        1180,
		"code":          "PAYMENT_ERROR",
	})
	w := postCallback(r, "application/json", body)

	require.Equal(t, http.StatusSeeOther, w.Code)
	loc := w.Header().Get("Location")
	require.True(t, strings.HasPrefix(loc, "https://app.example.com/payment/failure"))
	require.Contains(t, loc, "reason=PAYMENT_ERROR")

	var stored models.Transaction
	require.NoError(t, db.Where("transaction_id = ?", txn.TransactionID).First(&stored).Error)
	require.Equal(t, models.TransactionStatusPending, stored.Status)
}

func TestApiPaymentCallback_MalformedReturns400(t *testing.T) {
	r, _ := newCallbackTestRouter(t)

	body, _ := json.Marshal(map[string]any{
		"merchantId": "M_TEST",
		"amount":     1180,
		"code":       "PAYMENT_SUCCESS",
	})
	w := postCallback(r, "application/json", body)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestApiPaymentCallback_UnknownTransactionReturns404(t *testing.T) {
	r, _ := newCallbackTestRouter(t)

	body, _ := json.Marshal(map[string]any{
		"merchantId":    "M_TEST",
		"transactionId": "MTdoesnotexist",
		"amount":        1180,
		"code":          "PAYMENT_SUCCESS",
	})
	w := postCallback(r, "application/json", body)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRegisterRoutes_RegistersEndpoints(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterHealthRoutes(r.Group("/"))
	RegisterPaymentCallbackRoutes(r.Group("/api/v1/payment"), nil, nil)
	RegisterCheckoutRoutes(r.Group("/api/v1/payment"), nil)
	RegisterLedgerRoutes(r.Group("/api/v1/ledger"), nil)
	RegisterAdminRoutes(r.Group("/api/v1/admin"), nil, nil)

	routes := r.Routes()
	contains := func(target string) bool {
		for _, rt := range routes {
			if rt.Method+" "+rt.Path == target {
				return true
			}
		}
		return false
	}

	require.True(t, contains("GET /healthz"))
	require.True(t, contains("POST /api/v1/payment/callback"))
	require.True(t, contains("POST /api/v1/payment/initiate"))
	require.True(t, contains("GET /api/v1/ledger"))
	require.True(t, contains("POST /api/v1/ledger/consume"))
	require.True(t, contains("POST /api/v1/admin/list_transactions"))
	require.True(t, contains("POST /api/v1/admin/get_revenue_statistic"))
	require.True(t, contains("POST /api/v1/admin/grant_credits"))
}
