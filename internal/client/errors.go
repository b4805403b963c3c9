package client

import (
	"errors"
	"fmt"
)

// DefaultMessage 既没有后端消息也没有传输错误文本时使用的消息
const DefaultMessage = "An error occurred"

// Error 后端调用失败时返回的唯一错误类型
//
// Message 已经规范化：优先使用后端返回的 message，其次是传输层错误文本，
// 最后是 DefaultMessage。Status 只用于日志和响应映射，0 表示请求没有到达后端。
type Error struct {
	Op      string // 操作名，例如 "list_emails"
	Status  int    // HTTP 状态码
	Message string // 规范化后的错误消息
	Err     error  // 底层错误，可能为 nil
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message 从任意错误中提取可展示的消息
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return DefaultMessage
}

// StatusCode 返回错误携带的 HTTP 状态码，没有时返回 0
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// newError 按优先级选择错误消息
func newError(op string, status int, backendMessage string, cause error) *Error {
	msg := backendMessage
	if msg == "" && cause != nil {
		msg = cause.Error()
	}
	if msg == "" && status >= 300 {
		msg = fmt.Sprintf("Request failed with status code %d", status)
	}
	if msg == "" {
		msg = DefaultMessage
	}
	return &Error{Op: op, Status: status, Message: msg, Err: cause}
}
