package domain

import (
	"bytes"
	"encoding/json"
)

// ID 后端记录标识
//
// 后端有时返回字符串（Mongo ObjectID），有时返回数字，统一按字符串保存。
type ID string

// UnmarshalJSON 同时接受字符串与数字
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// String 返回字符串形式
func (id ID) String() string {
	return string(id)
}
