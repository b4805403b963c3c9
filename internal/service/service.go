package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"orderdesk/dashboard/internal/cache"
	"orderdesk/dashboard/internal/client"
	"orderdesk/dashboard/internal/domain"
)

// 缓存 key
const (
	cacheKeyEmailStats = "email_stats"
	cacheKeyOrderStats = "order_stats"
)

// 操作名称，同时作为 ActionError 的前缀
const (
	OpReprocess = "Reprocessing Error"
	OpConvert   = "Conversion failed"
	OpDelete    = "Delete failed"
	OpUpdate    = "Update failed"
	OpUpload    = "Upload failed"
)

var (
	ErrTrackingIDRequired = errors.New("tracking id is required")
	ErrOrderIDRequired    = errors.New("order id is required")
	ErrEmptyUpdate        = errors.New("no fields to update")
)

// EmailAPI 后端邮件接口
type EmailAPI interface {
	ListEmails(ctx context.Context, filters domain.Filters) (domain.Page[domain.Email], error)
	EmailStats(ctx context.Context) (domain.EmailStats, error)
	GetEmail(ctx context.Context, trackingID string) (domain.EmailDetail, error)
	DeleteEmail(ctx context.Context, trackingID string) error
	ReprocessEmail(ctx context.Context, trackingID string) (domain.ReprocessResult, error)
	ConvertEmail(ctx context.Context, trackingID string) error
}

// OrderAPI 后端订单接口
type OrderAPI interface {
	ListOrders(ctx context.Context, filters domain.Filters) (domain.Page[domain.Order], error)
	OrderStats(ctx context.Context) (domain.OrderStats, error)
	GetOrder(ctx context.Context, id domain.ID) (domain.Order, error)
	UpdateOrder(ctx context.Context, id domain.ID, update domain.OrderUpdate) (domain.Order, error)
	DeleteOrder(ctx context.Context, id domain.ID) error
}

// UploadAPI 后端上传接口
type UploadAPI interface {
	UploadEmail(ctx context.Context, upload domain.UploadRequest) (domain.UploadResult, error)
}

// Recorder 业务指标记录
type Recorder interface {
	RecordEmailAction(action string, err error)
	RecordCacheLookup(key string, hit bool)
	RecordAttachmentSize(contentType string, size int64)
}

type nopRecorder struct{}

func (nopRecorder) RecordEmailAction(string, error)    {}
func (nopRecorder) RecordCacheLookup(string, bool)     {}
func (nopRecorder) RecordAttachmentSize(string, int64) {}

// ActionError 用户触发的操作失败
//
// Error() 形如 "Reprocessing Error: Email not found"，可直接展示给用户。
type ActionError struct {
	Operation string
	Message   string
	Err       error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Operation, e.Message)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

func newActionError(op string, err error) *ActionError {
	return &ActionError{
		Operation: op,
		Message:   client.Message(err),
		Err:       err,
	}
}

// statsCache 统计数据的短期缓存，任何修改操作之后失效
type statsCache struct {
	cache    *cache.LocalCache
	ttl      time.Duration
	recorder Recorder
	logger   *zap.Logger
}

func newStatsCache(c *cache.LocalCache, ttl time.Duration, logger *zap.Logger) *statsCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &statsCache{
		cache:    c,
		ttl:      ttl,
		recorder: nopRecorder{},
		logger:   logger,
	}
}

// invalidate 清除所有统计缓存
func (s *statsCache) invalidate() {
	if s.cache == nil {
		return
	}
	s.cache.Delete(cacheKeyEmailStats)
	s.cache.Delete(cacheKeyOrderStats)
}

// cached 读取缓存，未命中时调用 load 并写入；ttl <= 0 或没有缓存时直接调用 load
func cached[T any](s *statsCache, key string, load func() (T, error)) (T, error) {
	if s.cache == nil || s.ttl <= 0 {
		return load()
	}

	if v, ok := s.cache.Get(key); ok {
		if typed, ok := v.(T); ok {
			s.recorder.RecordCacheLookup(key, true)
			return typed, nil
		}
	}
	s.recorder.RecordCacheLookup(key, false)

	value, err := load()
	if err != nil {
		return value, err
	}
	s.cache.Set(key, value, s.ttl)
	return value, nil
}
