// Package detail 把邮件详情接口返回的不同订单字段形态统一成一个订单列表。
//
// 后端历史上有两种返回：
//
//	{"email": {...}, "order": {...}}      // 最多一个订单
//	{"email": {...}, "orders": [{...}]}   // 多个订单
//
// 解码只在边界发生一次，之后所有代码只看 domain.EmailDetail.Orders。
package detail

import (
	"bytes"
	"encoding/json"

	"orderdesk/dashboard/internal/domain"
)

// Kind 订单字段的形态
type Kind int

const (
	KindNone     Kind = iota // 没有订单
	KindSingle               // 单个 order 对象
	KindMultiple             // orders 数组（长度可以是 0）
)

func (k Kind) String() string {
	switch k {
	case KindSingle:
		return "single"
	case KindMultiple:
		return "multiple"
	default:
		return "none"
	}
}

// OrderShape 订单字段解码后的标签联合
type OrderShape struct {
	Kind   Kind
	Order  domain.Order   // Kind == KindSingle 时有效
	Orders []domain.Order // Kind == KindMultiple 时有效
}

// List 转换为规范的订单列表，永远不返回 nil
func (s OrderShape) List() []domain.Order {
	switch s.Kind {
	case KindSingle:
		return []domain.Order{s.Order}
	case KindMultiple:
		out := make([]domain.Order, len(s.Orders))
		copy(out, s.Orders)
		return out
	default:
		return []domain.Order{}
	}
}

// DecodeShape 从详情对象的字段中识别订单形态
//
// orders 是数组时优先使用（保持后端顺序，无法解码的元素跳过）；
// orders 不是数组时忽略；否则 order 非 null 时作为单个订单；都没有则为 KindNone。
func DecodeShape(fields map[string]json.RawMessage) OrderShape {
	if raw, ok := fields["orders"]; ok {
		var elems []json.RawMessage
		if err := json.Unmarshal(raw, &elems); err == nil && elems != nil {
			orders := make([]domain.Order, 0, len(elems))
			for _, elem := range elems {
				if order, ok := decodeOrder(elem); ok {
					orders = append(orders, order)
				}
			}
			return OrderShape{Kind: KindMultiple, Orders: orders}
		}
	}

	if raw, ok := fields["order"]; ok {
		if order, ok := decodeOrder(raw); ok {
			return OrderShape{Kind: KindSingle, Order: order}
		}
	}

	return OrderShape{Kind: KindNone}
}

func decodeOrder(raw json.RawMessage) (domain.Order, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return domain.Order{}, false
	}
	var order domain.Order
	if err := json.Unmarshal(raw, &order); err != nil {
		return domain.Order{}, false
	}
	return order, true
}
