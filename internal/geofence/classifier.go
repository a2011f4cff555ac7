package geofence

import "math"

// Status 安全区状态码（数值与存储/前端保持一致，2 和 3 的顺序不是单调的）
type Status int

const (
	StatusNormal       Status = 0 // 在内圈以内
	StatusBreachLevel1 Status = 1 // 离开内圈
	StatusBreachLevel2 Status = 2 // 离开外圈（紧急）
	StatusNearLevel2   Status = 3 // 接近外圈边缘
)

// EdgeFraction 外圈半径的该比例处开始视为接近外圈
const EdgeFraction = 0.8

// String 返回状态名称（用于日志）
func (s Status) String() string {
	switch s {
	case StatusNormal:
		return "normal"
	case StatusBreachLevel1:
		return "breach_level1"
	case StatusBreachLevel2:
		return "breach_level2"
	case StatusNearLevel2:
		return "near_level2"
	default:
		return "unknown"
	}
}

// Classify 根据与安全区中心的距离计算状态
// distance <= r1 → Normal；r1 < distance < r2*0.8 → BreachLevel1；
// r2*0.8 <= distance <= r2 → NearLevel2；distance > r2 → BreachLevel2。
// 无状态、无滞回；NaN 视为越界。
func Classify(distance, r1, r2 float64) Status {
	if math.IsNaN(distance) {
		return StatusBreachLevel2
	}

	edge := r2 * EdgeFraction

	switch {
	case distance <= r1:
		return StatusNormal
	case distance < edge:
		return StatusBreachLevel1
	case distance <= r2:
		return StatusNearLevel2
	default:
		return StatusBreachLevel2
	}
}
