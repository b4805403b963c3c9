package client

import (
	"context"
	"net/http"
	"net/url"

	"orderdesk/dashboard/internal/domain"
)

// ListOrders 分页查询订单
func (c *Client) ListOrders(ctx context.Context, filters domain.Filters) (domain.Page[domain.Order], error) {
	const op = "list_orders"
	req, _ := jsonRequest(op, http.MethodGet, "/orders", nil)
	req.query = filters.Query()

	env, err := c.do(ctx, req)
	if err != nil {
		return domain.Page[domain.Order]{Items: []domain.Order{}}, err
	}
	return decodeList[domain.Order](c, op, "orders", env), nil
}

// OrderStats 获取订单统计
func (c *Client) OrderStats(ctx context.Context) (domain.OrderStats, error) {
	const op = "order_stats"
	req, _ := jsonRequest(op, http.MethodGet, "/orders/stats", nil)

	env, err := c.do(ctx, req)
	if err != nil {
		return domain.OrderStats{}, err
	}
	return decodeData[domain.OrderStats](c, op, env), nil
}

// GetOrder 获取单个订单
func (c *Client) GetOrder(ctx context.Context, id domain.ID) (domain.Order, error) {
	const op = "get_order"
	req, _ := jsonRequest(op, http.MethodGet, "/orders/"+url.PathEscape(id.String()), nil)

	env, err := c.do(ctx, req)
	if err != nil {
		return domain.Order{}, err
	}
	return decodeData[domain.Order](c, op, env), nil
}

// UpdateOrder 更新订单，返回更新后的订单
func (c *Client) UpdateOrder(ctx context.Context, id domain.ID, update domain.OrderUpdate) (domain.Order, error) {
	const op = "update_order"
	req, err := jsonRequest(op, http.MethodPut, "/orders/"+url.PathEscape(id.String()), update)
	if err != nil {
		return domain.Order{}, err
	}

	env, err := c.do(ctx, req)
	if err != nil {
		return domain.Order{}, err
	}
	return decodeData[domain.Order](c, op, env), nil
}

// DeleteOrder 删除订单（只发送一次）
func (c *Client) DeleteOrder(ctx context.Context, id domain.ID) error {
	req, _ := jsonRequest("delete_order", http.MethodDelete, "/orders/"+url.PathEscape(id.String()), nil)
	_, err := c.do(ctx, req)
	return err
}

// OAuth 入口
const (
	ProviderGoogle = "google"
	ProviderGmail  = "gmail"
)

var oauthPaths = map[string]string{
	ProviderGoogle: "/auth/google",
	ProviderGmail:  "/auth/gmail/connect",
}

// OAuthURL 返回后端 OAuth 入口地址，未知的 provider 返回 false
func (c *Client) OAuthURL(provider string) (string, bool) {
	path, ok := oauthPaths[provider]
	if !ok {
		return "", false
	}
	return c.endpoint(path, nil), true
}
