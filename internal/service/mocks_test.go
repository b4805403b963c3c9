package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"orderdesk/dashboard/internal/domain"
)

// MockEmailAPI 模拟邮件接口
type MockEmailAPI struct {
	mock.Mock
}

func (m *MockEmailAPI) ListEmails(ctx context.Context, filters domain.Filters) (domain.Page[domain.Email], error) {
	args := m.Called(ctx, filters)
	return args.Get(0).(domain.Page[domain.Email]), args.Error(1)
}

func (m *MockEmailAPI) EmailStats(ctx context.Context) (domain.EmailStats, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.EmailStats), args.Error(1)
}

func (m *MockEmailAPI) GetEmail(ctx context.Context, trackingID string) (domain.EmailDetail, error) {
	args := m.Called(ctx, trackingID)
	return args.Get(0).(domain.EmailDetail), args.Error(1)
}

func (m *MockEmailAPI) DeleteEmail(ctx context.Context, trackingID string) error {
	args := m.Called(ctx, trackingID)
	return args.Error(0)
}

func (m *MockEmailAPI) ReprocessEmail(ctx context.Context, trackingID string) (domain.ReprocessResult, error) {
	args := m.Called(ctx, trackingID)
	return args.Get(0).(domain.ReprocessResult), args.Error(1)
}

func (m *MockEmailAPI) ConvertEmail(ctx context.Context, trackingID string) error {
	args := m.Called(ctx, trackingID)
	return args.Error(0)
}

// MockOrderAPI 模拟订单接口
type MockOrderAPI struct {
	mock.Mock
}

func (m *MockOrderAPI) ListOrders(ctx context.Context, filters domain.Filters) (domain.Page[domain.Order], error) {
	args := m.Called(ctx, filters)
	return args.Get(0).(domain.Page[domain.Order]), args.Error(1)
}

func (m *MockOrderAPI) OrderStats(ctx context.Context) (domain.OrderStats, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.OrderStats), args.Error(1)
}

func (m *MockOrderAPI) GetOrder(ctx context.Context, id domain.ID) (domain.Order, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Order), args.Error(1)
}

func (m *MockOrderAPI) UpdateOrder(ctx context.Context, id domain.ID, update domain.OrderUpdate) (domain.Order, error) {
	args := m.Called(ctx, id, update)
	return args.Get(0).(domain.Order), args.Error(1)
}

func (m *MockOrderAPI) DeleteOrder(ctx context.Context, id domain.ID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockUploadAPI 模拟上传接口
type MockUploadAPI struct {
	mock.Mock
}

func (m *MockUploadAPI) UploadEmail(ctx context.Context, upload domain.UploadRequest) (domain.UploadResult, error) {
	args := m.Called(ctx, upload)
	return args.Get(0).(domain.UploadResult), args.Error(1)
}

type recordedAction struct {
	action string
	failed bool
}

// fakeRecorder 记录指标调用
type fakeRecorder struct {
	actions []recordedAction
	lookups map[string][]bool
	sizes   []int64
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{lookups: make(map[string][]bool)}
}

func (r *fakeRecorder) RecordEmailAction(action string, err error) {
	r.actions = append(r.actions, recordedAction{action: action, failed: err != nil})
}

func (r *fakeRecorder) RecordCacheLookup(key string, hit bool) {
	r.lookups[key] = append(r.lookups[key], hit)
}

func (r *fakeRecorder) RecordAttachmentSize(_ string, size int64) {
	r.sizes = append(r.sizes, size)
}
