package reconciler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/voicemint/billing/internal/app/service/callbacklog"
	"github.com/voicemint/billing/internal/app/service/ledger"
	"github.com/voicemint/billing/internal/models"
	"github.com/voicemint/billing/pkg/tool"
	"github.com/voicemint/billing/pkg/types"
)

func newTestService(t *testing.T) (*Service, *ledger.Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Ledger{}, &models.LedgerLog{}, &models.Transaction{}, &models.CallbackLog{}))

	log := zap.NewNop().Sugar()
	ledgerSvc := ledger.NewService(db, log)
	svc := NewService(testPricingConfig(), db, callbacklog.New(db, log), ledgerSvc, log)
	return svc, ledgerSvc, db
}

func seedPendingTransaction(t *testing.T, db *gorm.DB, userID, productName string, amount int64) *models.Transaction {
	t.Helper()
	txn := &models.Transaction{
		ID:            tool.GenerateUUIDV7(),
		UserID:        userID,
		MerchantID:    "M_TEST",
		TransactionID: tool.GeneratePaymentReference(),
		Status:        models.TransactionStatusPending,
		Amount:        amount,
		ProductName:   productName,
	}
	require.NoError(t, db.Create(txn).Error)
	return txn
}

func TestReconcile_FirstSuccessGrantsOnce(t *testing.T) {
	svc, ledgerSvc, db := newTestService(t)
	ctx := context.Background()

	_, err := ledgerSvc.EnsureLedger(ctx, "u1")
	require.NoError(t, err)
	txn := seedPendingTransaction(t, db, "u1", "credit_pack", 12)

	out, err := svc.Reconcile(ctx, &Notification{
		MerchantID:    "M_TEST",
		TransactionID: txn.TransactionID,
		Amount:        1180, // 10 rupees pre-tax -> 1000 credits
		Code:          SuccessCode,
	})
	require.NoError(t, err)
	require.True(t, out.Success)
	require.False(t, out.Duplicate)
	require.Equal(t, int64(1000), out.Grant.Credits)

	row, err := ledgerSvc.GetLedger(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, int64(1000), row.CommonCredits)

	var stored models.Transaction
	require.NoError(t, db.Where("transaction_id = ?", txn.TransactionID).First(&stored).Error)
	require.Equal(t, models.TransactionStatusCompleted, stored.Status)
	require.NotNil(t, stored.CompletedAt)
	require.Equal(t, int64(10), stored.Extra.Data().BaseAmount)
}

func TestReconcile_ReplayDoesNotGrantTwice(t *testing.T) {
	svc, ledgerSvc, db := newTestService(t)
	ctx := context.Background()

	_, err := ledgerSvc.EnsureLedger(ctx, "u1")
	require.NoError(t, err)
	txn := seedPendingTransaction(t, db, "u1", "credit_pack", 12)

	n := &Notification{
		MerchantID:    "M_TEST",
		TransactionID: txn.TransactionID,
		Amount:        1180,
		Code:          SuccessCode,
	}
	first, err := svc.Reconcile(ctx, n)
	require.NoError(t, err)
	require.False(t, first.Duplicate)

	second, err := svc.Reconcile(ctx, n)
	require.NoError(t, err)
	require.True(t, second.Success)
	require.True(t, second.Duplicate)
	require.Equal(t, int64(1000), second.Grant.Credits)

	row, err := ledgerSvc.GetLedger(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, int64(1000), row.CommonCredits)
}

func TestReconcile_FailureCodeLeavesTransactionPending(t *testing.T) {
	svc, ledgerSvc, db := newTestService(t)
	ctx := context.Background()

	_, err := ledgerSvc.EnsureLedger(ctx, "u1")
	require.NoError(t, err)
	txn := seedPendingTransaction(t, db, "u1", "credit_pack", 12)

	out, err := svc.Reconcile(ctx, &Notification{
		MerchantID:    "M_TEST",
		TransactionID: txn.TransactionID,
		Amount:        1180,
		Code:          "PAYMENT_ERROR",
	})
	require.NoError(t, err)
	require.False(t, out.Success)
	require.Equal(t, "PAYMENT_ERROR", out.Reason)

	var stored models.Transaction
	require.NoError(t, db.Where("transaction_id = ?", txn.TransactionID).First(&stored).Error)
	require.Equal(t, models.TransactionStatusPending, stored.Status)

	row, err := ledgerSvc.GetLedger(ctx, "u1")
	require.NoError(t, err)
	require.Zero(t, row.CommonCredits)
}

func TestReconcile_MalformedNotificationRejected(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Reconcile(context.Background(), &Notification{
		MerchantID: "M_TEST",
		Amount:     1180,
		Code:       SuccessCode,
	})
	require.ErrorIs(t, err, ErrMalformedNotification)
}

func TestReconcile_UnknownTransaction(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Reconcile(context.Background(), &Notification{
		MerchantID:    "M_TEST",
		TransactionID: "MTdoesnotexist",
		Amount:        1180,
		Code:          SuccessCode,
	})
	require.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestReconcile_UnrecognizedAmount(t *testing.T) {
	svc, ledgerSvc, db := newTestService(t)
	ctx := context.Background()

	_, err := ledgerSvc.EnsureLedger(ctx, "u1")
	require.NoError(t, err)
	txn := seedPendingTransaction(t, db, "u1", "mystery_pack", 7)

	_, err = svc.Reconcile(ctx, &Notification{
		MerchantID:    "M_TEST",
		TransactionID: txn.TransactionID,
		Amount:        77700,
		Code:          SuccessCode,
	})
	require.ErrorIs(t, err, ErrUnrecognizedAmount)

	var stored models.Transaction
	require.NoError(t, db.Where("transaction_id = ?", txn.TransactionID).First(&stored).Error)
	require.Equal(t, models.TransactionStatusPending, stored.Status)
}

func TestReconcile_ProTierSetsEntitlement(t *testing.T) {
	svc, ledgerSvc, db := newTestService(t)
	ctx := context.Background()

	_, err := ledgerSvc.EnsureLedger(ctx, "u1")
	require.NoError(t, err)
	txn := seedPendingTransaction(t, db, "u1", "voice_clone", 589)

	out, err := svc.Reconcile(ctx, &Notification{
		MerchantID:    "M_TEST",
		TransactionID: txn.TransactionID,
		Amount:        58882, // 499 rupees pre-tax
		Code:          SuccessCode,
	})
	require.NoError(t, err)
	require.True(t, out.Success)
	require.Equal(t, GrantKindAllowance, out.Grant.Kind)
	require.Equal(t, types.ServiceVoiceClone, out.Grant.Service)

	row, err := ledgerSvc.GetLedger(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, int64(1000000), row.CloneCharacters)
	require.Zero(t, row.CommonCredits)
	require.NotNil(t, row.ProService)
	require.Equal(t, types.ServiceVoiceClone, *row.ProService)
	require.True(t, row.ProActive(time.Now()))
}
