package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"orderdesk/dashboard/internal/client"
	"orderdesk/dashboard/internal/domain"
)

func TestSummarize(t *testing.T) {
	price := 5.0
	order := domain.Order{
		ID:           "o1",
		Email:        domain.EmailRef{From: `"Acme Buyer" <buyer@acme.com>`, SenderName: "Unknown"},
		Customer:     domain.Customer{Name: "Unknown"},
		Currency:     "USD",
		TotalAmount:  0,
		AIConfidence: 0.65,
		Items: []domain.LineItem{
			{Description: "Bolt", Quantity: 2, UnitPrice: 3},
			{Description: "Nut", Quantity: 1, UnitPrice: 1, TotalPrice: &price},
		},
	}

	s := Summarize(order)
	assert.Equal(t, "Acme Buyer", s.CustomerName)
	assert.Equal(t, "buyer@acme.com", s.CustomerEmail)
	assert.Equal(t, 11.0, s.DisplayTotal)
	assert.Equal(t, "USD 11.00", s.DisplayTotalText)
	assert.Equal(t, domain.ConfidenceMedium, s.Confidence)
}

func TestSummarizeAll_Empty(t *testing.T) {
	out := SummarizeAll(nil)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestOrderService_Update(t *testing.T) {
	ctx := context.Background()
	api := new(MockOrderAPI)
	svc := NewOrderService(api, newTestCache(t), time.Minute, nil)

	status := domain.SyncStatusSynced
	update := domain.OrderUpdate{SyncStatus: &status}
	api.On("UpdateOrder", ctx, domain.ID("o1"), update).
		Return(domain.Order{ID: "o1", SyncStatus: status}, nil).Once()

	got, err := svc.Update(ctx, "o1", update)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncStatusSynced, got.SyncStatus)

	_, err = svc.Update(ctx, "o1", domain.OrderUpdate{})
	assert.ErrorIs(t, err, ErrEmptyUpdate)

	_, err = svc.Update(ctx, "", update)
	assert.ErrorIs(t, err, ErrOrderIDRequired)

	api.AssertNumberOfCalls(t, "UpdateOrder", 1)
}

func TestOrderService_UpdateFailure(t *testing.T) {
	ctx := context.Background()
	api := new(MockOrderAPI)
	svc := NewOrderService(api, nil, 0, nil)

	amount := 12.5
	update := domain.OrderUpdate{TotalAmount: &amount}
	api.On("UpdateOrder", ctx, domain.ID("o1"), update).
		Return(domain.Order{}, &client.Error{Status: 422, Message: "Invalid amount"})

	_, err := svc.Update(ctx, "o1", update)
	assert.EqualError(t, err, "Update failed: Invalid amount")
	assert.Equal(t, 422, client.StatusCode(err))
}

func TestOrderService_DeleteInvalidatesStats(t *testing.T) {
	ctx := context.Background()
	api := new(MockOrderAPI)
	svc := NewOrderService(api, newTestCache(t), time.Minute, nil)

	api.On("OrderStats", ctx).Return(domain.OrderStats{TotalOrders: 4}, nil)
	api.On("DeleteOrder", ctx, domain.ID("o1")).Return(nil).Once()
	api.On("DeleteOrder", ctx, domain.ID("o2")).Return(errors.New("gone")).Once()

	_, err := svc.Stats(ctx)
	require.NoError(t, err)
	_, err = svc.Stats(ctx)
	require.NoError(t, err)
	api.AssertNumberOfCalls(t, "OrderStats", 1)

	require.NoError(t, svc.Delete(ctx, "o1"))
	_, err = svc.Stats(ctx)
	require.NoError(t, err)
	api.AssertNumberOfCalls(t, "OrderStats", 2)

	// 失败的删除不会让缓存失效
	assert.EqualError(t, svc.Delete(ctx, "o2"), "Delete failed: gone")
	_, err = svc.Stats(ctx)
	require.NoError(t, err)
	api.AssertNumberOfCalls(t, "OrderStats", 2)
}

func TestOrderService_Get(t *testing.T) {
	ctx := context.Background()
	api := new(MockOrderAPI)
	svc := NewOrderService(api, nil, 0, nil)

	api.On("GetOrder", ctx, domain.ID("o1")).
		Return(domain.Order{ID: "o1", Customer: domain.Customer{Name: "Bob", Email: "bob@x.com"}}, nil)
	api.On("GetOrder", ctx, mock.Anything).Return(domain.Order{}, &client.Error{Status: 404, Message: "Order not found"})

	got, err := svc.Get(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, "Bob", got.CustomerName)
	assert.Equal(t, "bob@x.com", got.CustomerEmail)

	_, err = svc.Get(ctx, "missing")
	assert.Equal(t, 404, client.StatusCode(err))
}

func TestDashboardService_Summary(t *testing.T) {
	ctx := context.Background()
	api := new(MockOrderAPI)
	orders := NewOrderService(api, nil, 0, nil)
	svc := NewDashboardService(orders, nil)

	stats := domain.OrderStats{
		TotalOrders:   10,
		SyncedOrders:  7,
		PendingSync:   3,
		TotalRevenue:  1234.5,
		AvgConfidence: 0.876,
	}
	recent := domain.Page[domain.Order]{Items: []domain.Order{
		{ID: "o1", Currency: "USD", TotalAmount: 10},
		{ID: "o2", Currency: "USD", TotalAmount: 20},
	}}

	api.On("OrderStats", mock.Anything).Return(stats, nil)
	api.On("ListOrders", mock.Anything, domain.Filters{domain.FilterLimit: "5"}).Return(recent, nil)

	summary, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 70, summary.SyncRatePercent)
	assert.Equal(t, 88, summary.ConfidencePercent)
	assert.Equal(t, "$1234.50", summary.RevenueText)
	require.Len(t, summary.RecentOrders, 2)
	assert.Equal(t, domain.UnknownCustomer, summary.RecentOrders[0].CustomerName)
	api.AssertExpectations(t)
}

func TestDashboardService_SummaryFailure(t *testing.T) {
	api := new(MockOrderAPI)
	svc := NewDashboardService(NewOrderService(api, nil, 0, nil), nil)

	api.On("OrderStats", mock.Anything).Return(domain.OrderStats{}, &client.Error{Message: "Network Error"})
	api.On("ListOrders", mock.Anything, mock.Anything).Return(domain.Page[domain.Order]{}, nil)

	_, err := svc.Summary(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Network Error", client.Message(err))
}

func TestDashboardService_EmptyStats(t *testing.T) {
	api := new(MockOrderAPI)
	svc := NewDashboardService(NewOrderService(api, nil, 0, nil), nil)

	api.On("OrderStats", mock.Anything).Return(domain.OrderStats{}, nil)
	api.On("ListOrders", mock.Anything, mock.Anything).Return(domain.Page[domain.Order]{}, nil)

	summary, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.SyncRatePercent)
	assert.NotNil(t, summary.RecentOrders)
}
