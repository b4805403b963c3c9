// Package client 是访问订单提取后端的唯一入口。
//
// 所有响应都是 {success, message, data} 信封，调用方只拿到解码后的 data；
// 任何失败都折叠成 *Error，消息已经规范化。
//
// GET 与 PUT 在传输错误和 408/429/500/502/503/504 时按指数退避重试，
// 上传、重新提取、转换以及所有 DELETE 只发送一次。
//
// Client 可以被多个 goroutine 同时使用。
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"orderdesk/dashboard/internal/domain"
)

// RequestIDHeader 每个请求携带的关联 ID 头
const RequestIDHeader = "X-Request-ID"

// DefaultBaseURL 未配置时使用的后端地址
const DefaultBaseURL = "http://localhost:3000/api"

// 响应体读取上限
const maxResponseBytes = 16 << 20

// Config 客户端配置
type Config struct {
	BaseURL    string        // 后端基础地址，为空时使用 DefaultBaseURL
	Timeout    time.Duration // 单次请求超时，<=0 表示不设置
	MaxRetries int           // 可重试请求的最大重试次数
	RetryDelay time.Duration // 首次重试等待时间，之后每次翻倍
	RateLimit  float64       // 每秒请求数，<=0 表示不限速
	RateBurst  int           // 令牌桶容量，<=0 时为 1
}

// Observer 接收每次调用的结果，用于指标统计
type Observer interface {
	ObserveRequest(op, outcome string, duration time.Duration)
}

// 调用结果分类
const (
	OutcomeSuccess  = "success"
	OutcomeNetwork  = "network_error"
	OutcomeRejected = "rejected"
	OutcomeClient   = "client_error"
	OutcomeServer   = "server_error"
)

type nopObserver struct{}

func (nopObserver) ObserveRequest(string, string, time.Duration) {}

// Option 客户端可选项
type Option func(*Client)

// WithHTTPClient 替换底层 http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger 设置日志记录器
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithObserver 设置调用观察者
func WithObserver(o Observer) Option {
	return func(c *Client) {
		if o != nil {
			c.observer = o
		}
	}
}

// Client 后端 REST 客户端
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger
	observer   Observer
}

// New 根据配置创建客户端
func New(cfg Config, opts ...Option) (*Client, error) {
	raw := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if raw == "" {
		raw = DefaultBaseURL
	}
	base, err := url.Parse(raw)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", raw)
	}

	limit := rate.Limit(cfg.RateLimit)
	if cfg.RateLimit <= 0 {
		limit = rate.Inf
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}

	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	c := &Client{
		baseURL:    base,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, burst),
		maxRetries: maxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     zap.NewNop(),
		observer:   nopObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL 返回后端基础地址
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// envelope 后端统一响应结构
type envelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// request 一次后端调用的描述
type request struct {
	op          string
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
	retry       bool
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// jsonRequest 构造 JSON 请求，body 为 nil 时不发送请求体
func jsonRequest(op, method, path string, payload any) (request, error) {
	req := request{op: op, method: method, path: path, contentType: "application/json"}
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return req, newError(op, 0, "", fmt.Errorf("encode request: %w", err))
		}
		req.body = body
	}
	req.retry = method == http.MethodGet || method == http.MethodPut
	return req, nil
}

// do 执行请求（可重试请求按指数退避重试），返回信封
func (c *Client) do(ctx context.Context, req request) (envelope, error) {
	start := time.Now()
	attempts := 1
	if req.retry {
		attempts += c.maxRetries
	}

	var (
		env     envelope
		lastErr *Error
		outcome string
	)
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, c.backoff(attempt)); err != nil {
				lastErr = newError(req.op, 0, "", err)
				outcome = OutcomeNetwork
				break
			}
			c.logger.Debug("Retrying backend request",
				zap.String("op", req.op),
				zap.Int("attempt", attempt),
				zap.String("previous_error", lastErr.Message))
		}

		if err := c.limiter.Wait(ctx); err != nil {
			lastErr = newError(req.op, 0, "", err)
			outcome = OutcomeNetwork
			break
		}

		env, lastErr, outcome = c.send(ctx, req)
		if lastErr == nil || !req.retry || !retryable(ctx, lastErr) {
			break
		}
	}

	duration := time.Since(start)
	c.observer.ObserveRequest(req.op, outcome, duration)

	if lastErr != nil {
		c.logger.Warn("Backend request failed",
			zap.String("op", req.op),
			zap.String("method", req.method),
			zap.String("path", req.path),
			zap.Int("status", lastErr.Status),
			zap.String("error", lastErr.Message),
			zap.Duration("duration", duration))
		return envelope{}, lastErr
	}

	c.logger.Debug("Backend request completed",
		zap.String("op", req.op),
		zap.String("method", req.method),
		zap.String("path", req.path),
		zap.Duration("duration", duration))
	return env, nil
}

// send 发送一次请求
func (c *Client) send(ctx context.Context, req request) (envelope, *Error, string) {
	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.endpoint(req.path, req.query), body)
	if err != nil {
		return envelope{}, newError(req.op, 0, "", err), OutcomeNetwork
	}
	httpReq.Header.Set("Content-Type", req.contentType)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(RequestIDHeader, uuid.NewString())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return envelope{}, newError(req.op, 0, "", err), OutcomeNetwork
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return envelope{}, newError(req.op, resp.StatusCode, "", err), OutcomeNetwork
	}

	// 无法解析的响应体当作空信封处理
	var env envelope
	_ = json.Unmarshal(raw, &env)

	switch {
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		outcome := OutcomeClient
		if resp.StatusCode >= 500 {
			outcome = OutcomeServer
		}
		return envelope{}, newError(req.op, resp.StatusCode, env.Message, nil), outcome
	case env.Success != nil && !*env.Success:
		return envelope{}, newError(req.op, resp.StatusCode, env.Message, nil), OutcomeRejected
	}
	return env, nil, OutcomeSuccess
}

// backoff 第 attempt 次重试前的等待时间
func (c *Client) backoff(attempt int) time.Duration {
	return c.retryDelay * time.Duration(1<<(attempt-1))
}

var retryableStatus = map[int]bool{
	http.StatusRequestTimeout:      true,
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

func retryable(ctx context.Context, err *Error) bool {
	if ctx.Err() != nil {
		return false
	}
	if err.Status == 0 {
		return !errors.Is(err.Err, context.Canceled) && !errors.Is(err.Err, context.DeadlineExceeded)
	}
	return retryableStatus[err.Status]
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// decodeData 把信封中的 data 解码为 T
//
// data 缺失或形态不符时返回零值并记录日志，不当作失败处理。
func decodeData[T any](c *Client, op string, env envelope) T {
	var out T
	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return out
	}
	if err := json.Unmarshal(data, &out); err != nil {
		c.logger.Warn("Unexpected response payload",
			zap.String("op", op),
			zap.Error(err))
		var zero T
		return zero
	}
	return out
}

// decodeList 解码 data 中 key 对应的列表与分页信息
//
// 列表字段缺失或不是数组时得到空列表，无法解码的元素跳过。
func decodeList[T any](c *Client, op, key string, env envelope) domain.Page[T] {
	page := domain.Page[T]{Items: []T{}}

	fields := decodeData[map[string]json.RawMessage](c, op, env)
	if raw, ok := fields["pagination"]; ok {
		_ = json.Unmarshal(raw, &page.Pagination)
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(fields[key], &elems); err != nil {
		return page
	}
	for _, elem := range elems {
		var item T
		if err := json.Unmarshal(elem, &item); err != nil {
			c.logger.Debug("Skipping malformed list item", zap.String("op", op), zap.Error(err))
			continue
		}
		page.Items = append(page.Items, item)
	}
	return page
}
