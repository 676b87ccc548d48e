package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/voicemint/billing/internal/models"
	"github.com/voicemint/billing/pkg/logctx"
	"github.com/voicemint/billing/pkg/tool"
	"github.com/voicemint/billing/pkg/types"
)

var (
	ErrLedgerNotFound      = errors.New("ledger not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// ColumnCommonCredits is the shared balance column; service allowances
// resolve through types.Service.AllowanceColumn.
const ColumnCommonCredits = "common_credits"

func validColumn(column string) bool {
	if column == ColumnCommonCredits {
		return true
	}
	for _, svc := range types.Services() {
		if svc.AllowanceColumn() == column {
			return true
		}
	}
	return false
}

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewService(db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{db: db, log: log}
}

// EnsureLedger creates the user's ledger with zero balances if it does not
// exist yet, and returns the current row. Safe to call concurrently.
func (s *Service) EnsureLedger(ctx context.Context, userID string) (*models.Ledger, error) {
	if userID == "" {
		return nil, fmt.Errorf("empty user id")
	}
	row := &models.Ledger{ID: tool.GenerateUUIDV7(), UserID: userID}
	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(row).Error; err != nil {
		return nil, fmt.Errorf("failed to create ledger: %w", err)
	}
	return s.GetLedger(ctx, userID)
}

func (s *Service) GetLedger(ctx context.Context, userID string) (*models.Ledger, error) {
	var row models.Ledger
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLedgerNotFound
		}
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}
	return &row, nil
}

// IncrementTx applies a positive delta to one ledger counter inside the
// caller's transaction. The increment is expressed in SQL so concurrent
// mutations on the same row never lose updates.
func IncrementTx(ctx context.Context, tx *gorm.DB, userID, column string, delta int64) error {
	if delta <= 0 {
		return fmt.Errorf("non-positive delta: %d", delta)
	}
	if !validColumn(column) {
		return fmt.Errorf("unknown ledger column: %s", column)
	}
	res := tx.WithContext(ctx).Model(&models.Ledger{}).
		Where("user_id = ?", userID).
		UpdateColumn(column, gorm.Expr(column+" + ?", delta))
	if res.Error != nil {
		return fmt.Errorf("failed to increment %s: %w", column, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrLedgerNotFound
	}
	return nil
}

// decrement is the conditional debit primitive: it only succeeds when the
// counter holds at least the requested amount, so balances can never go
// negative regardless of concurrent usage.
func (s *Service) decrement(ctx context.Context, userID, column string, amount int64) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Ledger{}).
		Where("user_id = ? AND "+column+" >= ?", userID, amount).
		UpdateColumn(column, gorm.Expr(column+" - ?", amount))
	if res.Error != nil {
		return false, fmt.Errorf("failed to decrement %s: %w", column, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Consume debits usage for one service: the service allowance is drained
// first, then common credits. Returns the column actually debited.
func (s *Service) Consume(ctx context.Context, userID string, svc types.Service, amount int64) (string, error) {
	if amount <= 0 {
		return "", fmt.Errorf("non-positive amount: %d", amount)
	}
	if !svc.Valid() {
		return "", fmt.Errorf("unknown service: %s", svc)
	}

	column := svc.AllowanceColumn()
	ok, err := s.decrement(ctx, userID, column, amount)
	if err != nil {
		return "", err
	}
	if !ok {
		column = ColumnCommonCredits
		ok, err = s.decrement(ctx, userID, column, amount)
		if err != nil {
			return "", err
		}
	}
	if !ok {
		// Distinguish a missing ledger from an empty one.
		if _, err := s.GetLedger(ctx, userID); err != nil {
			return "", err
		}
		return "", ErrInsufficientBalance
	}

	s.RecordChange(ctx, userID, "", models.LedgerChangeReasonUsage, map[string]any{
		"service": string(svc),
		"column":  column,
		"delta":   -amount,
	})
	return column, nil
}

// GrantCredits issues a manual common-credits grant through an internal
// completed transaction, for support goodwill and migrations.
func (s *Service) GrantCredits(ctx context.Context, userID string, credits int64, operatorID string) error {
	if userID == "" || operatorID == "" {
		return fmt.Errorf("invalid params: userID and operatorID required")
	}
	if credits <= 0 {
		return fmt.Errorf("non-positive credits: %d", credits)
	}

	now := time.Now()
	txn := &models.Transaction{
		ID:               tool.GenerateUUIDV7(),
		UserID:           userID,
		MerchantID:       "internal",
		TransactionID:    tool.GeneratePaymentReference(),
		Status:           models.TransactionStatusCompleted,
		ProductName:      fmt.Sprintf("%d_credits", credits),
		CreditsRequested: credits,
		CompletedAt:      &now,
	}
	txn.Extra = datatypes.NewJSONType(&models.TransactionExtra{OperatorID: operatorID})

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(txn).Error; err != nil {
			return fmt.Errorf("failed to create internal transaction: %w", err)
		}
		return IncrementTx(ctx, tx, userID, ColumnCommonCredits, credits)
	})
	if err != nil {
		return fmt.Errorf("failed to grant credits: %w", err)
	}

	s.RecordChange(ctx, userID, txn.TransactionID, models.LedgerChangeReasonManualGrant, map[string]any{
		"column":      ColumnCommonCredits,
		"delta":       credits,
		"operator_id": operatorID,
	})
	return nil
}

// RecordChange writes a ledger audit entry asynchronously with the post-change
// snapshot. Errors are logged but never surfaced.
func (s *Service) RecordChange(ctx context.Context, userID, transactionID string, reason models.LedgerChangeReason, extra map[string]any) {
	go func() {
		after, err := s.GetLedger(context.Background(), userID)
		if err != nil {
			logctx.FromCtx(ctx, s.log).Errorf("failed to snapshot ledger for log: %v", err)
			return
		}
		entry := &models.LedgerLog{
			ID:            tool.GenerateUUIDV7(),
			UserID:        userID,
			TransactionID: transactionID,
			Reason:        reason,
			After:         datatypes.NewJSONType(after),
			Extra:         datatypes.JSONMap(extra),
		}
		if err := s.db.Save(entry).Error; err != nil {
			logctx.FromCtx(ctx, s.log).Errorf("failed to save ledger log: %v", err)
		}
	}()
}
