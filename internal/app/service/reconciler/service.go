package reconciler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/voicemint/billing/internal/app/service/callbacklog"
	"github.com/voicemint/billing/internal/app/service/ledger"
	"github.com/voicemint/billing/internal/models"
	"github.com/voicemint/billing/pkg/config"
	"github.com/voicemint/billing/pkg/logctx"
	"github.com/voicemint/billing/pkg/metrics"
)

// proDuration is the entitlement window attached to a pro-tier purchase.
const proDuration = 30 * 24 * time.Hour

type Service struct {
	cfg       *config.Config
	db        *gorm.DB
	cbLog     *callbacklog.Service
	ledgerSvc *ledger.Service
	Logger    *zap.SugaredLogger
}

func NewService(cfg *config.Config, db *gorm.DB, cbLog *callbacklog.Service, ledgerSvc *ledger.Service, log *zap.SugaredLogger) *Service {
	return &Service{cfg: cfg, db: db, cbLog: cbLog, ledgerSvc: ledgerSvc, Logger: log}
}

// Reconcile converts a provider callback into an at-most-once ledger
// mutation and a redirect outcome for the paying client. Replays of a
// completed transaction return the success outcome without touching the
// ledger.
func (s *Service) Reconcile(ctx context.Context, n *Notification) (out *Outcome, resErr error) {
	if err := n.Validate(); err != nil {
		metrics.ReconcileTotal.WithLabelValues(metrics.OutcomeMalformed).Inc()
		return nil, err
	}

	var traceID string
	if v, ok := ctx.Value("traceID").(string); ok {
		traceID = v
	}
	dataBytes, _ := json.Marshal(n)

	s.cbLog.Save(ctx, &models.CallbackLog{
		MerchantID:    n.MerchantID,
		TraceID:       traceID,
		TransactionID: n.TransactionID,
		Data:          datatypes.JSON(dataBytes),
		Status:        models.CallbackLogStatusReceived,
	})

	var userID string
	defer func() {
		resMap := map[string]any{"outcome": out}
		if resErr != nil {
			resMap["error"] = resErr.Error()
		}
		resBytes, _ := json.Marshal(resMap)
		status := models.CallbackLogStatusHandled
		if resErr != nil {
			status = models.CallbackLogStatusHandleFailed
		}
		s.cbLog.Save(ctx, &models.CallbackLog{
			MerchantID: n.MerchantID,
			UserID: func() *string {
				if userID == "" {
					return nil
				}
				return lo.ToPtr(userID)
			}(),
			TraceID:       traceID,
			TransactionID: n.TransactionID,
			Data:          datatypes.JSON(dataBytes),
			Result:        func() *datatypes.JSON { j := datatypes.JSON(resBytes); return &j }(),
			Status:        status,
		})
	}()

	if !n.Succeeded() {
		logctx.FromCtx(ctx, s.Logger).Infow("payment_failed",
			"transaction_id", n.TransactionID, "code", n.Code)
		metrics.ReconcileTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		return &Outcome{Success: false, Reason: n.Code}, nil
	}

	var txn models.Transaction
	if err := s.db.WithContext(ctx).Where("transaction_id = ?", n.TransactionID).First(&txn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metrics.ReconcileTotal.WithLabelValues(metrics.OutcomeNotFound).Inc()
			resErr = fmt.Errorf("%w: %s", ErrTransactionNotFound, n.TransactionID)
			return nil, resErr
		}
		resErr = fmt.Errorf("failed to load transaction: %w", err)
		metrics.ReconcileTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, resErr
	}
	userID = txn.UserID

	baseAmount := BaseAmount(n.Amount)
	grant, err := ResolveGrant(s.cfg, baseAmount, txn.ProductName)
	if err != nil {
		logctx.FromCtx(ctx, s.Logger).Errorw("unrecognized_amount",
			"transaction_id", n.TransactionID, "base_amount", baseAmount, "product", txn.ProductName)
		metrics.ReconcileTotal.WithLabelValues(metrics.OutcomeUnrecognized).Inc()
		resErr = err
		return nil, resErr
	}

	if txn.Completed() {
		logctx.FromCtx(ctx, s.Logger).Infow("duplicate_notification",
			"transaction_id", n.TransactionID)
		metrics.ReconcileTotal.WithLabelValues(metrics.OutcomeDuplicate).Inc()
		return &Outcome{Success: true, Duplicate: true, Grant: grant}, nil
	}

	applied, err := s.apply(ctx, &txn, grant, n, baseAmount)
	if err != nil {
		metrics.ReconcileTotal.WithLabelValues(metrics.OutcomeError).Inc()
		resErr = fmt.Errorf("failed to apply grant: %w", err)
		return nil, resErr
	}
	if !applied {
		// Lost the race against a concurrent notification; the winner did
		// the mutation.
		metrics.ReconcileTotal.WithLabelValues(metrics.OutcomeDuplicate).Inc()
		return &Outcome{Success: true, Duplicate: true, Grant: grant}, nil
	}

	if grant.ServiceFallback {
		logctx.FromCtx(ctx, s.Logger).Errorw("pro_grant_product_unrecognized",
			"transaction_id", n.TransactionID, "product", txn.ProductName, "attributed_to", grant.Service)
		metrics.ProFallbackTotal.Inc()
	}

	switch grant.Kind {
	case GrantKindAllowance:
		metrics.CharactersGrantedTotal.WithLabelValues(string(grant.Service)).Add(float64(grant.Characters))
	default:
		metrics.CreditsGrantedTotal.Add(float64(grant.Credits))
	}
	metrics.ReconcileTotal.WithLabelValues(metrics.OutcomeGranted).Inc()

	s.ledgerSvc.RecordChange(ctx, txn.UserID, txn.TransactionID, models.LedgerChangeReasonPurchase, map[string]any{
		"column": grant.Column(),
		"delta":  grant.Delta(),
	})

	logctx.FromCtx(ctx, s.Logger).Infow("payment_reconciled",
		"transaction_id", n.TransactionID, "user_id", txn.UserID,
		"column", grant.Column(), "delta", grant.Delta())

	return &Outcome{Success: true, Grant: grant}, nil
}

// apply commits the pending→completed transition and the balance increment
// in one database transaction. The status flip is a conditional update, so
// two racing notifications for the same transaction can never both credit.
func (s *Service) apply(ctx context.Context, txn *models.Transaction, grant *Grant, n *Notification, baseAmount int64) (bool, error) {
	applied := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		extra := txn.Extra.Data()
		if extra == nil {
			extra = &models.TransactionExtra{}
		}
		extra.PaidAmount = n.Amount / 100
		extra.BaseAmount = baseAmount
		extra.ProviderCode = n.Code

		res := tx.Model(&models.Transaction{}).
			Where("transaction_id = ? AND status = ?", txn.TransactionID, models.TransactionStatusPending).
			Updates(map[string]any{
				"status":       models.TransactionStatusCompleted,
				"completed_at": now,
				"extra":        datatypes.NewJSONType(extra),
			})
		if res.Error != nil {
			return fmt.Errorf("failed to complete transaction: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}

		if err := ledger.IncrementTx(ctx, tx, txn.UserID, grant.Column(), grant.Delta()); err != nil {
			return err
		}

		if grant.Kind == GrantKindAllowance {
			expire := now.Add(proDuration)
			if err := tx.Model(&models.Ledger{}).
				Where("user_id = ?", txn.UserID).
				UpdateColumns(map[string]any{
					"pro_service":   grant.Service,
					"pro_expire_at": expire,
				}).Error; err != nil {
				return fmt.Errorf("failed to set pro entitlement: %w", err)
			}
		}

		applied = true
		return nil
	})
	return applied, err
}
