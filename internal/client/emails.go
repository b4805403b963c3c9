package client

import (
	"context"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"orderdesk/dashboard/internal/detail"
	"orderdesk/dashboard/internal/domain"
)

// ListEmails 分页查询邮件，filters 中的所有键都会作为查询参数发送
func (c *Client) ListEmails(ctx context.Context, filters domain.Filters) (domain.Page[domain.Email], error) {
	const op = "list_emails"
	req, _ := jsonRequest(op, http.MethodGet, "/emails", nil)
	req.query = filters.Query()

	env, err := c.do(ctx, req)
	if err != nil {
		return domain.Page[domain.Email]{Items: []domain.Email{}}, err
	}
	return decodeList[domain.Email](c, op, "emails", env), nil
}

// EmailStats 获取邮件按状态的统计
func (c *Client) EmailStats(ctx context.Context) (domain.EmailStats, error) {
	const op = "email_stats"
	req, _ := jsonRequest(op, http.MethodGet, "/emails/stats", nil)

	env, err := c.do(ctx, req)
	if err != nil {
		return domain.EmailStats{}, err
	}
	return decodeData[domain.EmailStats](c, op, env), nil
}

// GetEmail 获取单封邮件及其关联的订单
//
// 后端返回的 order/orders 两种形态在这里统一为 EmailDetail.Orders。
func (c *Client) GetEmail(ctx context.Context, trackingID string) (domain.EmailDetail, error) {
	const op = "get_email"
	req, _ := jsonRequest(op, http.MethodGet, "/emails/"+url.PathEscape(trackingID), nil)

	env, err := c.do(ctx, req)
	if err != nil {
		return domain.EmailDetail{Orders: []domain.Order{}}, err
	}

	d, err := detail.Normalize(env.Data)
	if err != nil {
		c.logger.Warn("Unexpected email detail payload",
			zap.String("tracking_id", trackingID),
			zap.Error(err))
	}
	return d, nil
}

// DeleteEmail 删除邮件（只发送一次）
func (c *Client) DeleteEmail(ctx context.Context, trackingID string) error {
	req, _ := jsonRequest("delete_email", http.MethodDelete, "/emails/"+url.PathEscape(trackingID), nil)
	_, err := c.do(ctx, req)
	return err
}

// ReprocessEmail 重新执行 AI 提取（只发送一次）
//
// 返回值中的 Message 来自信封，NoOrderFound 来自 data。
func (c *Client) ReprocessEmail(ctx context.Context, trackingID string) (domain.ReprocessResult, error) {
	const op = "reprocess_email"
	req, _ := jsonRequest(op, http.MethodPost, "/emails/"+url.PathEscape(trackingID)+"/reprocess", nil)

	env, err := c.do(ctx, req)
	if err != nil {
		return domain.ReprocessResult{}, err
	}

	result := decodeData[domain.ReprocessResult](c, op, env)
	if env.Message != "" {
		result.Message = env.Message
	}
	return result, nil
}

// ConvertEmail 跳过 AI 直接把邮件转换为订单（只发送一次）
func (c *Client) ConvertEmail(ctx context.Context, trackingID string) error {
	req, _ := jsonRequest("convert_email", http.MethodPost, "/emails/"+url.PathEscape(trackingID)+"/convert", nil)
	_, err := c.do(ctx, req)
	return err
}
