package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"orderdesk/dashboard/internal/cache"
	"orderdesk/dashboard/internal/domain"
)

// OrderSummary 订单 + 展示字段
type OrderSummary struct {
	domain.Order
	CustomerName     string                 `json:"customerName"`
	CustomerEmail    string                 `json:"customerEmail"`
	DisplayTotal     float64                `json:"displayTotal"`
	DisplayTotalText string                 `json:"displayTotalText"`
	Confidence       domain.ConfidenceLevel `json:"confidence"`
}

// Summarize 计算订单的展示字段
func Summarize(o domain.Order) OrderSummary {
	total := o.DisplayTotal()
	return OrderSummary{
		Order:            o,
		CustomerName:     domain.ResolveCustomerName(o),
		CustomerEmail:    domain.ResolveCustomerEmail(o),
		DisplayTotal:     total,
		DisplayTotalText: domain.FormatMoney(o.Currency, total),
		Confidence:       domain.ConfidenceOf(o.AIConfidence),
	}
}

// SummarizeAll 批量计算展示字段，结果不为 nil
func SummarizeAll(orders []domain.Order) []OrderSummary {
	out := make([]OrderSummary, 0, len(orders))
	for _, o := range orders {
		out = append(out, Summarize(o))
	}
	return out
}

// OrderService 订单查询与修改
type OrderService struct {
	api    OrderAPI
	stats  *statsCache
	logger *zap.Logger
}

// NewOrderService 创建订单服务
func NewOrderService(api OrderAPI, c *cache.LocalCache, statsTTL time.Duration, logger *zap.Logger) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderService{
		api:    api,
		stats:  newStatsCache(c, statsTTL, logger),
		logger: logger,
	}
}

// SetRecorder 设置指标记录
func (s *OrderService) SetRecorder(r Recorder) {
	if r != nil {
		s.stats.recorder = r
	}
}

// List 拉取一页订单
func (s *OrderService) List(ctx context.Context, filters domain.Filters) (domain.Page[domain.Order], error) {
	return s.api.ListOrders(ctx, filters)
}

// Stats 订单统计（短期缓存）
func (s *OrderService) Stats(ctx context.Context) (domain.OrderStats, error) {
	return cached(s.stats, cacheKeyOrderStats, func() (domain.OrderStats, error) {
		return s.api.OrderStats(ctx)
	})
}

// Get 获取单个订单
func (s *OrderService) Get(ctx context.Context, id domain.ID) (OrderSummary, error) {
	if strings.TrimSpace(id.String()) == "" {
		return OrderSummary{}, ErrOrderIDRequired
	}
	order, err := s.api.GetOrder(ctx, id)
	if err != nil {
		return OrderSummary{}, err
	}
	return Summarize(order), nil
}

// Update 修改订单
func (s *OrderService) Update(ctx context.Context, id domain.ID, update domain.OrderUpdate) (OrderSummary, error) {
	if strings.TrimSpace(id.String()) == "" {
		return OrderSummary{}, ErrOrderIDRequired
	}
	if update.Empty() {
		return OrderSummary{}, ErrEmptyUpdate
	}

	order, err := s.api.UpdateOrder(ctx, id, update)
	s.stats.recorder.RecordEmailAction("update_order", err)
	if err != nil {
		s.logger.Warn("Order update failed", zap.String("id", id.String()), zap.Error(err))
		return OrderSummary{}, newActionError(OpUpdate, err)
	}

	s.stats.invalidate()
	return Summarize(order), nil
}

// Delete 删除订单
func (s *OrderService) Delete(ctx context.Context, id domain.ID) error {
	if strings.TrimSpace(id.String()) == "" {
		return ErrOrderIDRequired
	}

	err := s.api.DeleteOrder(ctx, id)
	s.stats.recorder.RecordEmailAction("delete_order", err)
	if err != nil {
		s.logger.Warn("Order delete failed", zap.String("id", id.String()), zap.Error(err))
		return newActionError(OpDelete, err)
	}

	s.stats.invalidate()
	s.logger.Info("Order deleted", zap.String("id", id.String()))
	return nil
}
