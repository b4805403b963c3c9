package domain

import (
	"encoding/json"
	"math"
)

// EmailStats 邮件统计信息（按状态计数）
type EmailStats struct {
	Total    int                 `json:"total"`
	ByStatus map[EmailStatus]int `json:"byStatus"`
}

// UnmarshalJSON 兼容两种后端格式
//
//   - {"total": 10, "byStatus": {"pending": 2, ...}}
//   - {"total": 10, "pending": 2, "completed": 8, ...}
//
// 无法识别的字段直接忽略，缺失的计数为 0。
func (s *EmailStats) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := EmailStats{ByStatus: make(map[EmailStatus]int)}
	for key, value := range raw {
		switch key {
		case "total":
			_ = json.Unmarshal(value, &out.Total)
		case "byStatus":
			var nested map[EmailStatus]int
			if err := json.Unmarshal(value, &nested); err == nil {
				for status, count := range nested {
					out.ByStatus[status] = count
				}
			}
		default:
			var count int
			if err := json.Unmarshal(value, &count); err == nil {
				out.ByStatus[EmailStatus(key)] = count
			}
		}
	}

	if out.Total == 0 {
		for _, count := range out.ByStatus {
			out.Total += count
		}
	}

	*s = out
	return nil
}

// Count 返回某个状态的数量
func (s EmailStats) Count(status EmailStatus) int {
	return s.ByStatus[status]
}

// OrderStats 订单统计信息
type OrderStats struct {
	TotalOrders   int     `json:"totalOrders"`
	SyncedOrders  int     `json:"syncedOrders"`
	PendingSync   int     `json:"pendingSync"`
	FailedSync    int     `json:"failedSync"`
	TotalRevenue  float64 `json:"totalRevenue"`
	AvgConfidence float64 `json:"avgConfidence"`
}

// SyncRate 已同步比例（0..1），订单数为 0 时按 1 作分母
func (s OrderStats) SyncRate() float64 {
	total := s.TotalOrders
	if total <= 0 {
		total = 1
	}
	return float64(s.SyncedOrders) / float64(total)
}

// ConfidencePercent 平均置信度百分比（取整）
func (s OrderStats) ConfidencePercent() int {
	return int(math.Round(s.AvgConfidence * 100))
}
