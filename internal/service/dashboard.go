package service

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"orderdesk/dashboard/internal/domain"
)

// RecentOrdersLimit 仪表盘展示的最近订单数
const RecentOrdersLimit = 5

// DashboardSummary 仪表盘数据
type DashboardSummary struct {
	Stats             domain.OrderStats `json:"stats"`
	SyncRatePercent   int               `json:"syncRatePercent"`
	ConfidencePercent int               `json:"confidencePercent"`
	RevenueText       string            `json:"revenueText"`
	RecentOrders      []OrderSummary    `json:"recentOrders"`
}

// DashboardService 仪表盘聚合
type DashboardService struct {
	orders *OrderService
	logger *zap.Logger
}

// NewDashboardService 创建仪表盘服务
func NewDashboardService(orders *OrderService, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		orders: orders,
		logger: logger,
	}
}

// Summary 并发拉取订单统计与最近订单，任一失败即返回错误
func (s *DashboardService) Summary(ctx context.Context) (DashboardSummary, error) {
	var (
		stats  domain.OrderStats
		recent domain.Page[domain.Order]
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats, err = s.orders.Stats(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		recent, err = s.orders.List(gctx, domain.Filters{
			domain.FilterLimit: strconv.Itoa(RecentOrdersLimit),
		})
		return err
	})

	if err := g.Wait(); err != nil {
		s.logger.Warn("Dashboard load failed", zap.Error(err))
		return DashboardSummary{}, err
	}

	return DashboardSummary{
		Stats:             stats,
		SyncRatePercent:   int(stats.SyncRate()*100 + 0.5),
		ConfidencePercent: stats.ConfidencePercent(),
		RevenueText:       fmt.Sprintf("$%.2f", stats.TotalRevenue),
		RecentOrders:      SummarizeAll(recent.Items),
	}, nil
}
