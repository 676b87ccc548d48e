package statistics

import (
	"context"
	"fmt"
	"sync"

	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/voicemint/billing/internal/models"
	"github.com/voicemint/billing/pkg/types"
)

// Statistic types served to the admin revenue dashboard.
type StatisticType string

const (
	StatisticTypeDailyPurchaseCount  StatisticType = "daily_purchase_count"
	StatisticTypeDailyRevenue        StatisticType = "daily_revenue"
	StatisticTypeTotalRevenue        StatisticType = "total_revenue"
	StatisticTypeDailyCreditsGranted StatisticType = "daily_credits_granted"
)

type RevenueStatisticDataItem struct {
	ID StatisticType `json:"id"`
}

type RevenueStatisticRequest struct {
	Filters   []*types.CommonFilter       `json:"filters"`
	DataItems []*RevenueStatisticDataItem `json:"data_items"`
}

// Build composes a WHERE clause from the request filters.
func (f *RevenueStatisticRequest) Build(builder clause.Builder) {
	if len(f.Filters) == 0 {
		builder.WriteString("1=1")
		return
	}
	for i, filter := range f.Filters {
		if i > 0 {
			builder.WriteString(" AND ")
		}
		filter.Build(builder)
	}
}

type RevenueStatisticResponseDataItem struct {
	Date  string `json:"date"`
	Value int64  `json:"value"`
}

type RevenueStatisticResponse struct {
	DataItems map[StatisticType][]RevenueStatisticResponseDataItem `json:"data_items"`
}

// Service provides statistics operations over completed purchases. Internal
// (manual grant) transactions are excluded from revenue figures.
type Service struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Service { return &Service{db: db} }

func (s *Service) completedPurchases(ctx context.Context, request *RevenueStatisticRequest) *gorm.DB {
	return s.db.WithContext(ctx).Table((models.Transaction{}).TableName()).
		Where("status = ?", models.TransactionStatusCompleted).
		Where("merchant_id != ?", "internal").
		Where(clause.Where{Exprs: []clause.Expression{request}})
}

func (s *Service) getDailyPurchaseCount(ctx context.Context, request *RevenueStatisticRequest) ([]RevenueStatisticResponseDataItem, error) {
	var results []RevenueStatisticResponseDataItem
	q := s.completedPurchases(ctx, request).
		Select("TO_CHAR(completed_at, 'YYYY-MM-DD') as date, count(*) as value").
		Group("TO_CHAR(completed_at, 'YYYY-MM-DD')").
		Order("date")
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getDailyRevenue(ctx context.Context, request *RevenueStatisticRequest) ([]RevenueStatisticResponseDataItem, error) {
	var results []RevenueStatisticResponseDataItem
	q := s.completedPurchases(ctx, request).
		Select("TO_CHAR(completed_at, 'YYYY-MM-DD') as date, sum(amount) as value").
		Group("TO_CHAR(completed_at, 'YYYY-MM-DD')").
		Order(clause.OrderByColumn{Column: clause.Column{Name: "date"}, Desc: true})
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getTotalRevenue(ctx context.Context, request *RevenueStatisticRequest) ([]RevenueStatisticResponseDataItem, error) {
	var results []RevenueStatisticResponseDataItem
	q := s.completedPurchases(ctx, request).
		Select("COALESCE(sum(amount), 0) as value")
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getDailyCreditsGranted(ctx context.Context, request *RevenueStatisticRequest) ([]RevenueStatisticResponseDataItem, error) {
	var results []RevenueStatisticResponseDataItem
	q := s.db.WithContext(ctx).Table((models.Transaction{}).TableName()).
		Where("status = ?", models.TransactionStatusCompleted).
		Where(clause.Where{Exprs: []clause.Expression{request}}).
		Select("TO_CHAR(completed_at, 'YYYY-MM-DD') as date, sum(credits_requested) as value").
		Group("TO_CHAR(completed_at, 'YYYY-MM-DD')").
		Order("date")
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getRevenueStatistic(ctx context.Context, request *RevenueStatisticRequest, dataItem *RevenueStatisticDataItem) ([]RevenueStatisticResponseDataItem, error) {
	switch dataItem.ID {
	case StatisticTypeDailyPurchaseCount:
		return s.getDailyPurchaseCount(ctx, request)
	case StatisticTypeDailyRevenue:
		return s.getDailyRevenue(ctx, request)
	case StatisticTypeTotalRevenue:
		return s.getTotalRevenue(ctx, request)
	case StatisticTypeDailyCreditsGranted:
		return s.getDailyCreditsGranted(ctx, request)
	default:
		return nil, fmt.Errorf("invalid data item id: %s", dataItem.ID)
	}
}

// GetRevenueStatistic gathers the requested data items concurrently.
func (s *Service) GetRevenueStatistic(ctx context.Context, request *RevenueStatisticRequest) (*RevenueStatisticResponse, error) {
	var wg sync.WaitGroup
	errChan := make(chan error, len(request.DataItems))
	resChan := make(chan *lo.Entry[StatisticType, []RevenueStatisticResponseDataItem], len(request.DataItems))

	for _, item := range request.DataItems {
		wg.Add(1)
		go func(di *RevenueStatisticDataItem) {
			defer wg.Done()
			res, err := s.getRevenueStatistic(ctx, request, di)
			if err != nil {
				errChan <- err
				return
			}
			resChan <- &lo.Entry[StatisticType, []RevenueStatisticResponseDataItem]{Key: di.ID, Value: res}
		}(item)
	}

	go func() { wg.Wait(); close(errChan); close(resChan) }()

	results := make(map[StatisticType][]RevenueStatisticResponseDataItem)
	for i := 0; i < len(request.DataItems); i++ {
		select {
		case err := <-errChan:
			if err != nil {
				return nil, err
			}
		case entry := <-resChan:
			results[entry.Key] = entry.Value
		}
	}
	return &RevenueStatisticResponse{DataItems: results}, nil
}
