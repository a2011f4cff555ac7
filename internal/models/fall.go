package models

import "time"

// 跌倒原始状态码
const (
	FallStatusPressedNotOK = 2 // 用户按下"不好"求助
	FallStatusNoResponse   = 3 // 30 秒内无响应
)

// IsFallEvent 判断原始状态码是否表示疑似跌倒
func IsFallEvent(fallStatus int) bool {
	return fallStatus == FallStatusPressedNotOK || fallStatus == FallStatusNoResponse
}

// FallRecord 跌倒记录（对应 fall_records 表，只追加不更新）
type FallRecord struct {
	FallID     int64      `json:"fall_id" db:"fall_id"`
	UsersID    int64      `json:"users_id" db:"users_id"`
	TakecareID int64      `json:"takecare_id" db:"takecare_id"`
	XAxis      float64    `json:"x_axis" db:"x_axis"`
	YAxis      float64    `json:"y_axis" db:"y_axis"`
	ZAxis      float64    `json:"z_axis" db:"z_axis"`
	Latitude   float64    `json:"fall_latitude" db:"fall_latitude"`
	Longitude  float64    `json:"fall_longitude" db:"fall_longitude"`
	FallStatus int        `json:"fall_status" db:"fall_status"`
	NotiStatus int        `json:"noti_status" db:"noti_status"` // 0/1
	NotiTime   *time.Time `json:"noti_time,omitempty" db:"noti_time"`
	NotiCount  int        `json:"noti_count" db:"noti_count"`
	Timestamp  time.Time  `json:"fall_timestamp" db:"fall_timestamp"`
}
