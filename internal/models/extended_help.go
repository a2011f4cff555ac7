package models

import "time"

// CaseStatus 扩展求助案件状态
type CaseStatus string

const (
	CaseStatusCreated  CaseStatus = "created"
	CaseStatusResent   CaseStatus = "resent"
	CaseStatusReceived CaseStatus = "received"
	CaseStatusClosed   CaseStatus = "closed"
)

// 触发扩展求助的原因
const (
	ReasonSafezone    = "safezone"
	ReasonFall        = "fall"
	ReasonHeartRate   = "heartrate"
	ReasonTemperature = "temperature"
)

// ExtendedHelp 扩展求助案件（对应 extendedhelp 表）
// received / closed 均为单向迁移，由存储层条件更新保证只写一次
type ExtendedHelp struct {
	ExtenID           int64      `json:"exten_id" db:"exten_id"`
	UsersID           int64      `json:"users_id" db:"users_id"`
	TakecareID        int64      `json:"takecare_id" db:"takecare_id"`
	Status            CaseStatus `json:"exten_status" db:"exten_status"`
	Reason            string     `json:"exten_reason" db:"exten_reason"`
	CreatedAt         time.Time  `json:"exten_date" db:"exten_date"`
	ResendCount       int        `json:"exten_resend_count" db:"exten_resend_count"`
	ReceivedUserID    *int64     `json:"exten_received_user_id,omitempty" db:"exten_received_user_id"`
	ReceivedAt        *time.Time `json:"exten_received_date,omitempty" db:"exten_received_date"`
	ClosedUserID      *int64     `json:"exten_closed_user_id,omitempty" db:"exten_closed_user_id"`
	ClosedAt          *time.Time `json:"exten_closed_date,omitempty" db:"exten_closed_date"`
	SafezoneLatitude  float64    `json:"exten_latitude" db:"exten_latitude"`
	SafezoneLongitude float64    `json:"exten_longitude" db:"exten_longitude"`
}

// IsOpen 未被接收也未被关闭
func (e *ExtendedHelp) IsOpen() bool {
	return e.ReceivedAt == nil && e.ClosedAt == nil
}
