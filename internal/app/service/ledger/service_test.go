package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/voicemint/billing/internal/models"
	"github.com/voicemint/billing/pkg/types"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Ledger{}, &models.LedgerLog{}, &models.Transaction{}))
	return NewService(db, zap.NewNop().Sugar()), db
}

func TestEnsureLedger_Idempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.EnsureLedger(ctx, "u1")
	require.NoError(t, err)
	second, err := svc.EnsureLedger(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Zero(t, second.CommonCredits)
}

func TestGetLedger_NotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.GetLedger(context.Background(), "missing")
	require.ErrorIs(t, err, ErrLedgerNotFound)
}

func TestIncrementTx_RejectsBadInput(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	_, err := svc.EnsureLedger(ctx, "u1")
	require.NoError(t, err)

	require.Error(t, IncrementTx(ctx, db, "u1", ColumnCommonCredits, 0))
	require.Error(t, IncrementTx(ctx, db, "u1", ColumnCommonCredits, -5))
	require.Error(t, IncrementTx(ctx, db, "u1", "status; DROP TABLE ledger", 10))
	require.ErrorIs(t, IncrementTx(ctx, db, "missing", ColumnCommonCredits, 10), ErrLedgerNotFound)
}

func TestConsume_DrainsAllowanceBeforeCommonCredits(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	_, err := svc.EnsureLedger(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, IncrementTx(ctx, db, "u1", types.ServiceTTS.AllowanceColumn(), 100))
	require.NoError(t, IncrementTx(ctx, db, "u1", ColumnCommonCredits, 100))

	column, err := svc.Consume(ctx, "u1", types.ServiceTTS, 80)
	require.NoError(t, err)
	require.Equal(t, "tts_characters", column)

	// allowance now short; falls through to common credits
	column, err = svc.Consume(ctx, "u1", types.ServiceTTS, 50)
	require.NoError(t, err)
	require.Equal(t, ColumnCommonCredits, column)

	row, err := svc.GetLedger(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, int64(20), row.TTSCharacters)
	require.Equal(t, int64(50), row.CommonCredits)
}

func TestConsume_InsufficientBalance(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.EnsureLedger(ctx, "u1")
	require.NoError(t, err)

	_, err = svc.Consume(ctx, "u1", types.ServiceVoiceClone, 10)
	require.ErrorIs(t, err, ErrInsufficientBalance)

	row, err := svc.GetLedger(ctx, "u1")
	require.NoError(t, err)
	require.Zero(t, row.CommonCredits)
	require.Zero(t, row.CloneCharacters)
}

func TestConsume_UnknownService(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Consume(context.Background(), "u1", types.Service("video"), 10)
	require.Error(t, err)
}

func TestGrantCredits_CreatesInternalTransaction(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	_, err := svc.EnsureLedger(ctx, "u1")
	require.NoError(t, err)

	require.NoError(t, svc.GrantCredits(ctx, "u1", 500, "op-42"))

	row, err := svc.GetLedger(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, int64(500), row.CommonCredits)

	var txn models.Transaction
	require.NoError(t, db.Where("user_id = ?", "u1").First(&txn).Error)
	require.Equal(t, "internal", txn.MerchantID)
	require.Equal(t, models.TransactionStatusCompleted, txn.Status)
	require.Equal(t, "500_credits", txn.ProductName)
	require.Equal(t, "op-42", txn.Extra.Data().OperatorID)
}

func TestGrantCredits_RejectsMissingLedger(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.GrantCredits(context.Background(), "missing", 100, "op-1")
	require.Error(t, err)
}

func TestGrantCredits_RejectsBadParams(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.Error(t, svc.GrantCredits(ctx, "", 100, "op-1"))
	require.Error(t, svc.GrantCredits(ctx, "u1", 0, "op-1"))
	require.Error(t, svc.GrantCredits(ctx, "u1", 100, ""))
}
