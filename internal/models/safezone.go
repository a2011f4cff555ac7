package models

// Safezone 安全区域（对应 safezone 表）
// 两层半径：RadiusLv1 为内圈，RadiusLv2 为外圈（RadiusLv2 > RadiusLv1），单位：米
type Safezone struct {
	SafezoneID int64   `json:"safezone_id" db:"safezone_id"`
	UsersID    int64   `json:"users_id" db:"users_id"`
	TakecareID int64   `json:"takecare_id" db:"takecare_id"`
	Latitude   float64 `json:"safez_latitude" db:"safez_latitude"`
	Longitude  float64 `json:"safez_longitude" db:"safez_longitude"`
	RadiusLv1  float64 `json:"safez_radiuslv1" db:"safez_radiuslv1"`
	RadiusLv2  float64 `json:"safez_radiuslv2" db:"safez_radiuslv2"`
}
