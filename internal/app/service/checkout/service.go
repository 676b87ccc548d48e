package checkout

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/voicemint/billing/internal/app/service/ledger"
	"github.com/voicemint/billing/internal/app/service/reconciler"
	"github.com/voicemint/billing/internal/models"
	"github.com/voicemint/billing/internal/platform/phonepe"
	"github.com/voicemint/billing/pkg/config"
	"github.com/voicemint/billing/pkg/logctx"
	"github.com/voicemint/billing/pkg/tool"
)

type InitiateRequest struct {
	// ProductName is a service name for pro tiers or an "<N>_credits" pack.
	ProductName string `json:"product_name"`
	// Amount is the GST-inclusive total in minor units (paisa).
	Amount int64 `json:"amount"`
}

type InitiateResponse struct {
	TransactionID string `json:"transaction_id"`
	RedirectURL   string `json:"redirect_url"`
}

// Service begins payments: it records the pending transaction that the
// reconciler later completes, then hands the client off to the provider's
// hosted checkout.
type Service struct {
	cfg       *config.Config
	db        *gorm.DB
	client    phonepe.Client
	ledgerSvc *ledger.Service
	log       *zap.SugaredLogger
}

func NewService(cfg *config.Config, db *gorm.DB, client phonepe.Client, ledgerSvc *ledger.Service, log *zap.SugaredLogger) *Service {
	return &Service{cfg: cfg, db: db, client: client, ledgerSvc: ledgerSvc, log: log}
}

// InitiatePayment creates a pending transaction on the user's ledger and
// asks the provider for a checkout redirect. The pending row is written
// before the provider call; abandoned checkouts simply never complete.
func (s *Service) InitiatePayment(ctx context.Context, userID string, req *InitiateRequest) (*InitiateResponse, error) {
	if userID == "" {
		return nil, fmt.Errorf("empty user id")
	}
	if req == nil || req.ProductName == "" {
		return nil, fmt.Errorf("missing product name")
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("invalid amount: %d", req.Amount)
	}

	if _, err := s.ledgerSvc.EnsureLedger(ctx, userID); err != nil {
		return nil, err
	}

	txn := &models.Transaction{
		ID:               tool.GenerateUUIDV7(),
		UserID:           userID,
		MerchantID:       s.cfg.Gateway.MerchantID,
		TransactionID:    tool.GeneratePaymentReference(),
		Status:           models.TransactionStatusPending,
		Amount:           req.Amount / 100,
		ProductName:      req.ProductName,
		CreditsRequested: s.creditsRequested(req),
	}
	if err := s.db.WithContext(ctx).Create(txn).Error; err != nil {
		return nil, fmt.Errorf("failed to create pending transaction: %w", err)
	}

	payReq := &phonepe.PayRequest{
		MerchantID:            s.cfg.Gateway.MerchantID,
		MerchantTransactionID: txn.TransactionID,
		MerchantUserID:        userID,
		Amount:                req.Amount,
		RedirectURL:           s.cfg.Gateway.RedirectURL,
		CallbackURL:           s.cfg.Gateway.CallbackURL,
	}
	resp, err := s.client.Pay(ctx, payReq)
	if err != nil {
		logctx.FromCtx(ctx, s.log).Errorw("initiate_payment_failed",
			"transaction_id", txn.TransactionID, "error", err.Error())
		return nil, fmt.Errorf("failed to start payment: %w", err)
	}

	logctx.FromCtx(ctx, s.log).Infow("payment_initiated",
		"transaction_id", txn.TransactionID, "user_id", userID, "product", req.ProductName)

	return &InitiateResponse{
		TransactionID: txn.TransactionID,
		RedirectURL:   resp.Data.InstrumentResponse.RedirectInfo.URL,
	}, nil
}

// creditsRequested records the expected credit grant at initiation time;
// zero for pro-tier SKUs.
func (s *Service) creditsRequested(req *InitiateRequest) int64 {
	grant, err := reconciler.ResolveGrant(s.cfg, reconciler.BaseAmount(req.Amount), req.ProductName)
	if err != nil || grant.Kind != reconciler.GrantKindCredits {
		return 0
	}
	return grant.Credits
}
