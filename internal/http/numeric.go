package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// numeric 设备上报的数值字段，兼容 JSON 数字与数字字符串
type numeric struct {
	Value float64
	Set   bool
}

func (n *numeric) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid number %q", s)
		}
		n.Value, n.Set = v, true
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	n.Value, n.Set = v, true
	return nil
}

// requireInt 必填整数字段
func requireInt(name string, n numeric) (int64, error) {
	if !n.Set {
		return 0, fmt.Errorf("%s is required", name)
	}
	if n.Value != math.Trunc(n.Value) || math.Abs(n.Value) > 1<<53 {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return int64(n.Value), nil
}

// requireFloat 必填数值字段
func requireFloat(name string, n numeric) (float64, error) {
	if !n.Set {
		return 0, fmt.Errorf("%s is required", name)
	}
	return n.Value, nil
}

// optionalInt 可选整数字段，缺省为 0
func optionalInt(name string, n numeric) (int64, error) {
	if !n.Set {
		return 0, nil
	}
	return requireInt(name, n)
}
// fieldReader 依次读取字段，记录第一个错误
type fieldReader struct {
	err error
}

func (f *fieldReader) integer(name string, n numeric) int64 {
	if f.err != nil {
		return 0
	}
	v, err := requireInt(name, n)
	f.err = err
	return v
}

func (f *fieldReader) optInteger(name string, n numeric) int64 {
	if f.err != nil {
		return 0
	}
	v, err := optionalInt(name, n)
	f.err = err
	return v
}

func (f *fieldReader) number(name string, n numeric) float64 {
	if f.err != nil {
		return 0
	}
	v, err := requireFloat(name, n)
	f.err = err
	return v
}
