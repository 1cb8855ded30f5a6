package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StringMap 以 JSON 文本持久化的字符串键值对。
// 用于批次的字段映射以及原始行数据。
type StringMap map[string]string

// Value 实现 driver.Valuer
func (m StringMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan 实现 sql.Scanner
func (m *StringMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported string map source: %T", value)
	}
	if len(data) == 0 {
		*m = nil
		return nil
	}
	return json.Unmarshal(data, m)
}
