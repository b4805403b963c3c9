package domain

import (
	"encoding/json"
	"time"
)

// EmailStatus 邮件处理状态
type EmailStatus string

const (
	EmailStatusPending               EmailStatus = "pending"
	EmailStatusParsing               EmailStatus = "parsing"
	EmailStatusParsed                EmailStatus = "parsed"
	EmailStatusProcessingAttachments EmailStatus = "processing_attachments"
	EmailStatusCompleted             EmailStatus = "completed"
	EmailStatusFailed                EmailStatus = "failed"
)

// EmailPriority 邮件优先级
type EmailPriority string

const (
	PriorityHigh   EmailPriority = "high"
	PriorityNormal EmailPriority = "normal"
	PriorityLow    EmailPriority = "low"
)

// Email 表示后端保存的一封邮件记录（只读副本）。
type Email struct {
	ID          ID                `json:"_id,omitempty"`
	TrackingID  string            `json:"trackingId"`
	Subject     string            `json:"subject"`
	From        string            `json:"from"`       // 原始 From 头，例如 "Jane" <jane@x.com>
	SenderName  string            `json:"senderName"` // 后端解析出的显示名，可能为 "Unknown"
	To          []string          `json:"to,omitempty"`
	Body        string            `json:"body,omitempty"`
	Status      EmailStatus       `json:"status"`
	Priority    EmailPriority     `json:"priority"`
	Attachments []EmailAttachment `json:"attachments,omitempty"`
	ReceivedAt  time.Time         `json:"receivedAt"`
	Errors      []string          `json:"errors,omitempty"`
}

// UnmarshalJSON receivedAt 为空或格式不对时取零值，邮件本身保留
func (e *Email) UnmarshalJSON(data []byte) error {
	type plain Email
	var aux struct {
		*plain
		ReceivedAt json.RawMessage `json:"receivedAt"`
	}
	aux.plain = (*plain)(e)
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	e.ReceivedAt = lenientTime(aux.ReceivedAt)
	return nil
}

// EmailDetail 单封邮件详情：邮件本身 + 规范化后的订单列表
//
// Orders 永远不为 nil，长度可能为 0、1 或多个。
type EmailDetail struct {
	Email  *Email  `json:"email"`
	Orders []Order `json:"orders"`
}

// UploadResult 上传邮件后的返回
type UploadResult struct {
	TrackingID string      `json:"trackingId"`
	Status     EmailStatus `json:"status,omitempty"`
	Message    string      `json:"message,omitempty"`
}

// ReprocessResult 重新执行 AI 提取的结果
type ReprocessResult struct {
	NoOrderFound bool   `json:"noOrderFound"`
	Message      string `json:"message,omitempty"`
}
