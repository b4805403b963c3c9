package detail

import (
	"bytes"
	"encoding/json"
	"fmt"

	"orderdesk/dashboard/internal/domain"
)

// Normalize 把详情接口的 data 解码为 EmailDetail
//
// 空数据或 null 得到空详情；email 字段无法解码时视为缺失。
// 只带邮件 ID 的订单会用详情中的邮件补全发件人信息。
func Normalize(data []byte) (domain.EmailDetail, error) {
	out := domain.EmailDetail{Orders: []domain.Order{}}

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return out, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return out, fmt.Errorf("decode email detail: %w", err)
	}

	if raw, ok := fields["email"]; ok {
		var email domain.Email
		if err := json.Unmarshal(raw, &email); err == nil && !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			out.Email = &email
		}
	}

	orders := DecodeShape(fields).List()
	for i := range orders {
		orders[i] = orders[i].WithSource(out.Email)
	}
	out.Orders = orders

	return out, nil
}
