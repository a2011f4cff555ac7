package notify

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// 卡片按钮 postback 类型
const (
	PostbackAccept = "accept"
	PostbackClose  = "close"
	PostbackAlert  = "alert"
)

// Postback 卡片按钮携带的数据
// 编码格式：type=accept&takecareId=<id>&extenId=<id>&userLineId=<id>
type Postback struct {
	Type       string
	TakecareID int64
	ExtenID    int64
	UsersID    int64
	UserLineID string
}

// Encode 编码为 postback data
func (p Postback) Encode() string {
	parts := []string{
		"type=" + url.QueryEscape(p.Type),
		"takecareId=" + strconv.FormatInt(p.TakecareID, 10),
	}
	if p.ExtenID > 0 {
		parts = append(parts, "extenId="+strconv.FormatInt(p.ExtenID, 10))
	}
	if p.UsersID > 0 {
		parts = append(parts, "usersId="+strconv.FormatInt(p.UsersID, 10))
	}
	if p.UserLineID != "" {
		parts = append(parts, "userLineId="+url.QueryEscape(p.UserLineID))
	}
	return strings.Join(parts, "&")
}

// ParsePostback 解析 postback data
func ParsePostback(data string) (Postback, error) {
	values, err := url.ParseQuery(data)
	if err != nil {
		return Postback{}, fmt.Errorf("invalid postback data: %w", err)
	}

	p := Postback{
		Type:       values.Get("type"),
		UserLineID: values.Get("userLineId"),
	}
	switch p.Type {
	case PostbackAccept, PostbackClose, PostbackAlert:
	default:
		return Postback{}, fmt.Errorf("unknown postback type %q", p.Type)
	}

	if p.TakecareID, err = parseID(values, "takecareId", true); err != nil {
		return Postback{}, err
	}
	// accept / close 必须携带案件 ID
	if p.ExtenID, err = parseID(values, "extenId", p.Type != PostbackAlert); err != nil {
		return Postback{}, err
	}
	if p.UsersID, err = parseID(values, "usersId", false); err != nil {
		return Postback{}, err
	}
	return p, nil
}

func parseID(values url.Values, key string, required bool) (int64, error) {
	raw := values.Get(key)
	if raw == "" {
		if required {
			return 0, fmt.Errorf("postback %s is required", key)
		}
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("postback %s is invalid: %q", key, raw)
	}
	return id, nil
}
