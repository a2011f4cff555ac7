package repository

import (
	"context"
	"errors"
	"time"

	"carezone/internal/models"
)

// ErrNotFound 按主键/业务键查询的记录不存在
var ErrNotFound = errors.New("record not found")

// 约定：Get* 方法在记录不存在时返回 ErrNotFound；
// Latest* / Find* 方法在记录不存在时返回 (nil, nil)，因为"没有记录"是正常分支。

// SafezoneRepository 安全区 Repository
type SafezoneRepository interface {
	// 获取 (users_id, takecare_id) 对应的安全区
	GetSafezone(ctx context.Context, usersID, takecareID int64) (*models.Safezone, error)
}

// LocationRepository 被照护人最新位置 Repository
type LocationRepository interface {
	// 获取该 pair 最新的位置行
	GetLatestLocation(ctx context.Context, usersID, takecareID int64) (*models.Location, error)

	// LocationID > 0 时按 location_id 覆盖，否则插入并回填 LocationID
	UpsertLocation(ctx context.Context, loc *models.Location) error

	// 统计该 pair 的位置行数
	CountLocations(ctx context.Context, usersID, takecareID int64) (int, error)
}

// FallDecider 根据该 pair 最新的跌倒记录（可能为 nil）生成下一条记录
type FallDecider func(latest *models.FallRecord) (*models.FallRecord, error)

// FallRepository 跌倒记录 Repository（只追加）
type FallRepository interface {
	// 获取该 pair 最新的跌倒记录（按 fall_timestamp）
	GetLatestFall(ctx context.Context, usersID, takecareID int64) (*models.FallRecord, error)

	// 追加一条跌倒记录并回填 FallID
	AppendFall(ctx context.Context, rec *models.FallRecord) error

	// 在 pair 级串行化下执行"读最新 → decide → 追加"，返回追加的记录
	// 同一 pair 的并发调用按顺序看到彼此的结果
	AppendFallSerialized(ctx context.Context, usersID, takecareID int64, decide FallDecider) (*models.FallRecord, error)
}

// CaseFilter 扩展求助案件查询条件
type CaseFilter struct {
	UsersID    *int64
	TakecareID *int64
	Status     *models.CaseStatus
	StartTime  *time.Time // exten_date >= StartTime
	EndTime    *time.Time // exten_date <= EndTime
	Limit      int
}

// ExtendedHelpRepository 扩展求助案件 Repository
type ExtendedHelpRepository interface {
	// 查找该 pair 未接收且未关闭的案件（最新一条）
	FindOpenCase(ctx context.Context, usersID, takecareID int64) (*models.ExtendedHelp, error)

	// 按 exten_id 获取案件
	GetCase(ctx context.Context, extenID int64) (*models.ExtendedHelp, error)

	// 创建案件并回填 ExtenID
	CreateCase(ctx context.Context, c *models.ExtendedHelp) error

	// 条件更新：仅当案件未接收且未关闭时置为 resent 并原子递增重发次数
	// 返回递增后的次数；案件不存在或已不再 open 时 ok 为 false
	MarkResent(ctx context.Context, extenID int64) (count int, ok bool, err error)

	// 条件更新：仅当 exten_received_date 为空时写入接收人，返回是否写入成功
	MarkReceived(ctx context.Context, extenID, userID int64, at time.Time) (bool, error)

	// 条件更新：仅当 exten_closed_date 为空时写入关闭人，返回是否写入成功
	MarkClosed(ctx context.Context, extenID, userID int64, at time.Time) (bool, error)

	// 查询案件列表（按 exten_date 倒序）
	ListCases(ctx context.Context, filter CaseFilter) ([]*models.ExtendedHelp, error)
}

// UserRepository 用户 / 被照护人 Repository
type UserRepository interface {
	GetUser(ctx context.Context, usersID int64) (*models.User, error)
	GetUserByLineID(ctx context.Context, lineID string) (*models.User, error)

	// 获取启用状态（takecare_status = 1）的被照护人；usersID 为 0 时不校验归属
	GetTakecareperson(ctx context.Context, usersID, takecareID int64) (*models.Takecareperson, error)
}

// GroupLineRepository 响应者群组 Repository
type GroupLineRepository interface {
	// 获取启用的 LINE 群组（group_status = 1）
	GetActiveGroup(ctx context.Context) (*models.GroupLine, error)
}

// CaretakerLocationRepository 照护人位置日志 Repository
type CaretakerLocationRepository interface {
	CreateCaretakerLocation(ctx context.Context, loc *models.CaretakerLocation) error
	GetLatestCaretakerLocation(ctx context.Context, usersID, takecareID int64) (*models.CaretakerLocation, error)
}

// Store 存储适配器（聚合所有 Repository）
type Store interface {
	SafezoneRepository
	LocationRepository
	FallRepository
	ExtendedHelpRepository
	UserRepository
	GroupLineRepository
	CaretakerLocationRepository
}
