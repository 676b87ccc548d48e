package checkout

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/voicemint/billing/internal/app/service/ledger"
	"github.com/voicemint/billing/internal/models"
	"github.com/voicemint/billing/internal/platform/phonepe"
	"github.com/voicemint/billing/pkg/config"
)

type stubGateway struct {
	lastReq *phonepe.PayRequest
	err     error
}

func (s *stubGateway) Pay(_ context.Context, req *phonepe.PayRequest) (*phonepe.PayResponse, error) {
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	var resp phonepe.PayResponse
	resp.Success = true
	resp.Data.MerchantTransactionID = req.MerchantTransactionID
	resp.Data.InstrumentResponse.RedirectInfo.URL = "https://pay.example.com/checkout/" + req.MerchantTransactionID
	return &resp, nil
}

func newTestService(t *testing.T, gw phonepe.Client) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Ledger{}, &models.LedgerLog{}, &models.Transaction{}))

	log := zap.NewNop().Sugar()
	cfg := &config.Config{
		Gateway: config.GatewayConfig{
			MerchantID:  "M_TEST",
			CallbackURL: "https://billing.example.com/api/v1/payment/callback",
			RedirectURL: "https://app.example.com/payment/return",
		},
		Pricing: config.PricingConfig{
			CreditPacks:   []*config.CreditPack{{BaseAmount: 10, Credits: 1000}},
			ProBaseAmount: 499,
			ProCharacters: 1000000,
		},
	}
	return NewService(cfg, db, gw, ledger.NewService(db, log), log), db
}

func TestInitiatePayment_CreatesPendingTransaction(t *testing.T) {
	gw := &stubGateway{}
	svc, db := newTestService(t, gw)

	res, err := svc.InitiatePayment(context.Background(), "u1", &InitiateRequest{
		ProductName: "credit_pack",
		Amount:      1180,
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.TransactionID)
	require.True(t, strings.HasPrefix(res.TransactionID, "MT"))
	require.Contains(t, res.RedirectURL, res.TransactionID)

	var txn models.Transaction
	require.NoError(t, db.Where("transaction_id = ?", res.TransactionID).First(&txn).Error)
	require.Equal(t, models.TransactionStatusPending, txn.Status)
	require.Equal(t, "u1", txn.UserID)
	require.Equal(t, int64(11), txn.Amount)
	require.Equal(t, int64(1000), txn.CreditsRequested)

	require.Equal(t, "M_TEST", gw.lastReq.MerchantID)
	require.Equal(t, int64(1180), gw.lastReq.Amount)
	require.Equal(t, "u1", gw.lastReq.MerchantUserID)

	// ledger row is created as a side effect
	var row models.Ledger
	require.NoError(t, db.Where("user_id = ?", "u1").First(&row).Error)
}

func TestInitiatePayment_ProTierRecordsNoCredits(t *testing.T) {
	gw := &stubGateway{}
	svc, db := newTestService(t, gw)

	res, err := svc.InitiatePayment(context.Background(), "u1", &InitiateRequest{
		ProductName: "tts",
		Amount:      58882,
	})
	require.NoError(t, err)

	var txn models.Transaction
	require.NoError(t, db.Where("transaction_id = ?", res.TransactionID).First(&txn).Error)
	require.Zero(t, txn.CreditsRequested)
}

func TestInitiatePayment_GatewayError(t *testing.T) {
	gw := &stubGateway{err: fmt.Errorf("gateway down")}
	svc, db := newTestService(t, gw)

	_, err := svc.InitiatePayment(context.Background(), "u1", &InitiateRequest{
		ProductName: "credit_pack",
		Amount:      1180,
	})
	require.Error(t, err)

	// the pending row survives for support diagnosis; it just never completes
	var count int64
	require.NoError(t, db.Model(&models.Transaction{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestInitiatePayment_RejectsBadInput(t *testing.T) {
	svc, _ := newTestService(t, &stubGateway{})
	ctx := context.Background()

	_, err := svc.InitiatePayment(ctx, "", &InitiateRequest{ProductName: "tts", Amount: 100})
	require.Error(t, err)
	_, err = svc.InitiatePayment(ctx, "u1", &InitiateRequest{ProductName: "", Amount: 100})
	require.Error(t, err)
	_, err = svc.InitiatePayment(ctx, "u1", &InitiateRequest{ProductName: "tts", Amount: 0})
	require.Error(t, err)
}
