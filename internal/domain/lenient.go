package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// 后端返回的日期格式
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// decodeField 解码单个字段，失败时保持 dst 原值
func decodeField(raw json.RawMessage, dst any) {
	if isEmptyJSON(raw) {
		return
	}
	_ = json.Unmarshal(raw, dst)
}

// lenientFloat 解析数字或数字字符串，第二个返回值表示是否得到了有效数字
func lenientFloat(raw json.RawMessage) (float64, bool) {
	if isEmptyJSON(raw) {
		return 0, false
	}

	raw = bytes.TrimSpace(raw)
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
		return v, true
	}

	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false
	}
	return v, true
}

// lenientTime 解析日期字符串，空串或无法识别的格式得到零值
func lenientTime(raw json.RawMessage) time.Time {
	var s string
	if isEmptyJSON(raw) || json.Unmarshal(raw, &s) != nil {
		return time.Time{}
	}
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func isEmptyJSON(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}
