package domain

import (
	"bytes"
	"encoding/json"
	"time"
)

// SyncStatus 订单同步到外部 CRM 的状态
type SyncStatus string

const (
	SyncStatusPending SyncStatus = "pending"
	SyncStatusSynced  SyncStatus = "synced"
	SyncStatusFailed  SyncStatus = "failed"
)

// Customer 订单客户信息，每个字段都可能缺失
type Customer struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Company string `json:"company,omitempty"`
	Address string `json:"address,omitempty"`
}

// LineItem 订单行
type LineItem struct {
	Description string   `json:"description"`
	SKU         string   `json:"sku,omitempty"`
	Quantity    float64  `json:"quantity"`
	UnitPrice   float64  `json:"unitPrice"`
	TotalPrice  *float64 `json:"totalPrice,omitempty"` // 后端预先计算的行总价，可能缺失
}

// EmailRef 订单关联的来源邮件
//
// 后端列表接口会 populate 成对象，其他接口只返回一个 ID。
type EmailRef struct {
	ID         ID     `json:"_id,omitempty"`
	TrackingID string `json:"trackingId,omitempty"`
	From       string `json:"from,omitempty"`
	SenderName string `json:"senderName,omitempty"`
	Subject    string `json:"subject,omitempty"`
}

// UnmarshalJSON 同时接受 ID 字符串与邮件对象
func (r *EmailRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = EmailRef{}
		return nil
	}
	if data[0] != '{' {
		var id ID
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*r = EmailRef{ID: id}
		return nil
	}

	type plain EmailRef
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = EmailRef(p)
	return nil
}

// Populated 是否带有发件人信息
func (r EmailRef) Populated() bool {
	return r.From != "" || r.SenderName != ""
}

// Order 表示 AI 从邮件中提取出的订单（只读副本）。
type Order struct {
	ID               ID         `json:"id"`
	Email            EmailRef   `json:"emailId"`
	ExtractedOrderID string     `json:"extractedOrderId,omitempty"`
	Customer         Customer   `json:"customer"`
	Items            []LineItem `json:"items"`
	Currency         string     `json:"currency"`
	TotalAmount      float64    `json:"totalAmount"`
	AIConfidence     float64    `json:"aiConfidence"`
	SyncStatus       SyncStatus `json:"syncStatus"`
	OrderDate        time.Time  `json:"orderDate"`
}

// UnmarshalJSON 逐字段解码，单个字段格式不对时取零值，订单本身保留
//
// 兼容 "_id" 与 "id" 两种主键字段；金额与置信度接受数字字符串。
func (o *Order) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var out Order
	decodeField(fields["id"], &out.ID)
	if out.ID == "" {
		decodeField(fields["_id"], &out.ID)
	}
	decodeField(fields["emailId"], &out.Email)
	decodeField(fields["extractedOrderId"], &out.ExtractedOrderID)
	decodeField(fields["customer"], &out.Customer)
	decodeField(fields["currency"], &out.Currency)
	decodeField(fields["syncStatus"], &out.SyncStatus)
	out.TotalAmount, _ = lenientFloat(fields["totalAmount"])
	out.AIConfidence, _ = lenientFloat(fields["aiConfidence"])
	out.OrderDate = lenientTime(fields["orderDate"])

	out.Items = []LineItem{}
	var items []json.RawMessage
	decodeField(fields["items"], &items)
	for _, raw := range items {
		var item LineItem
		if err := json.Unmarshal(raw, &item); err == nil {
			out.Items = append(out.Items, item)
		}
	}

	if out.SyncStatus == "" {
		out.SyncStatus = SyncStatusPending
	}
	*o = out
	return nil
}

// UnmarshalJSON 数量与价格接受数字字符串，格式不对时取零值
func (li *LineItem) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var out LineItem
	decodeField(fields["description"], &out.Description)
	decodeField(fields["sku"], &out.SKU)
	out.Quantity, _ = lenientFloat(fields["quantity"])
	out.UnitPrice, _ = lenientFloat(fields["unitPrice"])
	if total, ok := lenientFloat(fields["totalPrice"]); ok {
		out.TotalPrice = &total
	}
	*li = out
	return nil
}

// WithSource 当订单只带了邮件 ID 时，用详情中的邮件补全发件人信息
func (o Order) WithSource(email *Email) Order {
	if email == nil || o.Email.Populated() {
		return o
	}
	o.Email = EmailRef{
		ID:         email.ID,
		TrackingID: email.TrackingID,
		From:       email.From,
		SenderName: email.SenderName,
		Subject:    email.Subject,
	}
	return o
}

// OrderUpdate 更新订单时可修改的字段，nil 表示不修改
type OrderUpdate struct {
	ExtractedOrderID *string     `json:"extractedOrderId,omitempty"`
	Customer         *Customer   `json:"customer,omitempty"`
	Items            []LineItem  `json:"items,omitempty"`
	Currency         *string     `json:"currency,omitempty"`
	TotalAmount      *float64    `json:"totalAmount,omitempty"`
	SyncStatus       *SyncStatus `json:"syncStatus,omitempty"`
}

// Empty 是否没有任何需要修改的字段
func (u OrderUpdate) Empty() bool {
	return u.ExtractedOrderID == nil && u.Customer == nil && len(u.Items) == 0 &&
		u.Currency == nil && u.TotalAmount == nil && u.SyncStatus == nil
}
