package repository

import (
	"database/sql"
	"time"

	"go.uber.org/zap"
)

// PostgresStore 基于 PostgreSQL 的 Store 实现
type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresStore 创建 PostgreSQL Store
func NewPostgresStore(db *sql.DB, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: logger,
	}
}

// rowScanner 兼容 *sql.Row 与 *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func nullTimePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

func nullInt64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

var _ Store = (*PostgresStore)(nil)
