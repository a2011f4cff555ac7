package models

import "time"

// Location 被照护人最新位置（对应 location 表）
// 每个 (users_id, takecare_id) 只保留一行，新数据按 location_id 原地覆盖
type Location struct {
	LocationID int64      `json:"location_id" db:"location_id"`
	UsersID    int64      `json:"users_id" db:"users_id"`
	TakecareID int64      `json:"takecare_id" db:"takecare_id"`
	Latitude   float64    `json:"locat_latitude" db:"locat_latitude"`
	Longitude  float64    `json:"locat_longitude" db:"locat_longitude"`
	Distance   float64    `json:"locat_distance" db:"locat_distance"`
	Battery    int        `json:"locat_battery" db:"locat_battery"`
	Status     int        `json:"locat_status" db:"locat_status"` // geofence 状态码 0/1/2/3
	Timestamp  time.Time  `json:"locat_timestamp" db:"locat_timestamp"`
	NotiTime   *time.Time `json:"locat_noti_time,omitempty" db:"locat_noti_time"`
	NotiStatus int        `json:"locat_noti_status" db:"locat_noti_status"`
}

// CaretakerLocation 照护人（响应者）位置日志（对应 dlocation 表，追加写入）
type CaretakerLocation struct {
	DLocationID int64     `json:"dlocation_id" db:"dlocation_id"`
	UsersID     int64     `json:"users_id" db:"users_id"`
	TakecareID  int64     `json:"takecare_id" db:"takecare_id"`
	Latitude    float64   `json:"locat_latitude" db:"locat_latitude"`
	Longitude   float64   `json:"locat_longitude" db:"locat_longitude"`
	Battery     int       `json:"locat_battery" db:"locat_battery"`
	LocationID  int64     `json:"location_id" db:"location_id"` // 关联的被照护人位置行（可为 0）
	Timestamp   time.Time `json:"locat_timestamp" db:"locat_timestamp"`
}
