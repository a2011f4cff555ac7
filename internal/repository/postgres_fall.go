package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"carezone/internal/models"

	"go.uber.org/zap"
)

const fallColumns = `
			fall_id,
			users_id,
			takecare_id,
			x_axis,
			y_axis,
			z_axis,
			fall_latitude,
			fall_longitude,
			fall_status,
			noti_status,
			noti_time,
			noti_count,
			fall_timestamp`

const latestFallQuery = `
		SELECT` + fallColumns + `
		FROM fall_records
		WHERE users_id = $1
		  AND takecare_id = $2
		ORDER BY fall_timestamp DESC, fall_id DESC
		LIMIT 1
	`

const insertFallQuery = `
		INSERT INTO fall_records (
			users_id,
			takecare_id,
			x_axis,
			y_axis,
			z_axis,
			fall_latitude,
			fall_longitude,
			fall_status,
			noti_status,
			noti_time,
			noti_count,
			fall_timestamp
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
		RETURNING fall_id
	`

// queryer *sql.DB 与 *sql.Tx 的公共子集
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func scanFall(row rowScanner) (*models.FallRecord, error) {
	var rec models.FallRecord
	var notiTime sql.NullTime
	if err := row.Scan(
		&rec.FallID,
		&rec.UsersID,
		&rec.TakecareID,
		&rec.XAxis,
		&rec.YAxis,
		&rec.ZAxis,
		&rec.Latitude,
		&rec.Longitude,
		&rec.FallStatus,
		&rec.NotiStatus,
		&notiTime,
		&rec.NotiCount,
		&rec.Timestamp,
	); err != nil {
		return nil, err
	}
	rec.NotiTime = nullTimePtr(notiTime)
	return &rec, nil
}

func latestFall(ctx context.Context, q queryer, usersID, takecareID int64) (*models.FallRecord, error) {
	rec, err := scanFall(q.QueryRowContext(ctx, latestFallQuery, usersID, takecareID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest fall record: %w", err)
	}
	return rec, nil
}

func insertFall(ctx context.Context, q queryer, rec *models.FallRecord) error {
	err := q.QueryRowContext(ctx, insertFallQuery,
		rec.UsersID,
		rec.TakecareID,
		rec.XAxis,
		rec.YAxis,
		rec.ZAxis,
		rec.Latitude,
		rec.Longitude,
		rec.FallStatus,
		rec.NotiStatus,
		rec.NotiTime,
		rec.NotiCount,
		rec.Timestamp,
	).Scan(&rec.FallID)
	if err != nil {
		return fmt.Errorf("failed to insert fall record: %w", err)
	}
	return nil
}

// GetLatestFall 获取 pair 最新的跌倒记录，不存在返回 (nil, nil)
func (s *PostgresStore) GetLatestFall(ctx context.Context, usersID, takecareID int64) (*models.FallRecord, error) {
	return latestFall(ctx, s.db, usersID, takecareID)
}

// AppendFall 追加跌倒记录
func (s *PostgresStore) AppendFall(ctx context.Context, rec *models.FallRecord) error {
	if rec == nil {
		return fmt.Errorf("fall record is required")
	}
	return insertFall(ctx, s.db, rec)
}

// fallLockKey pair 级 advisory lock 的键
func fallLockKey(usersID, takecareID int64) string {
	return fmt.Sprintf("fall_records:%d:%d", usersID, takecareID)
}

// AppendFallSerialized 在事务内持有 pair 级 advisory lock，完成"读最新 → decide → 追加"
// 锁随事务提交/回滚自动释放
func (s *PostgresStore) AppendFallSerialized(ctx context.Context, usersID, takecareID int64, decide FallDecider) (*models.FallRecord, error) {
	if decide == nil {
		return nil, fmt.Errorf("decide is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 1. 获取 pair 锁
	if _, err := tx.ExecContext(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`,
		fallLockKey(usersID, takecareID),
	); err != nil {
		return nil, fmt.Errorf("failed to acquire fall lock: %w", err)
	}

	// 2. 读最新记录
	latest, err := latestFall(ctx, tx, usersID, takecareID)
	if err != nil {
		return nil, err
	}

	// 3. 决策
	next, err := decide(latest)
	if err != nil {
		return nil, err
	}
	next.UsersID = usersID
	next.TakecareID = takecareID

	// 4. 追加
	if err := insertFall(ctx, tx, next); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit fall record: %w", err)
	}

	s.logger.Debug("Fall record appended",
		zap.Int64("fall_id", next.FallID),
		zap.Int64("users_id", usersID),
		zap.Int64("takecare_id", takecareID),
		zap.Int("noti_count", next.NotiCount),
		zap.Int("noti_status", next.NotiStatus),
	)
	return next, nil
}
