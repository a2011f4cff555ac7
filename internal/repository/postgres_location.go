package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"carezone/internal/models"

	"go.uber.org/zap"
)

const locationColumns = `
			location_id,
			users_id,
			takecare_id,
			locat_latitude,
			locat_longitude,
			locat_distance,
			locat_battery,
			locat_status,
			locat_timestamp,
			locat_noti_time,
			locat_noti_status`

func scanLocation(row rowScanner) (*models.Location, error) {
	var loc models.Location
	var notiTime sql.NullTime
	if err := row.Scan(
		&loc.LocationID,
		&loc.UsersID,
		&loc.TakecareID,
		&loc.Latitude,
		&loc.Longitude,
		&loc.Distance,
		&loc.Battery,
		&loc.Status,
		&loc.Timestamp,
		&notiTime,
		&loc.NotiStatus,
	); err != nil {
		return nil, err
	}
	loc.NotiTime = nullTimePtr(notiTime)
	return &loc, nil
}

// GetLatestLocation 获取 pair 最新位置，不存在返回 (nil, nil)
func (s *PostgresStore) GetLatestLocation(ctx context.Context, usersID, takecareID int64) (*models.Location, error) {
	query := `
		SELECT` + locationColumns + `
		FROM location
		WHERE users_id = $1
		  AND takecare_id = $2
		ORDER BY locat_timestamp DESC, location_id DESC
		LIMIT 1
	`

	loc, err := scanLocation(s.db.QueryRowContext(ctx, query, usersID, takecareID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest location: %w", err)
	}
	return loc, nil
}

// UpsertLocation 按 location_id 覆盖或插入新行
func (s *PostgresStore) UpsertLocation(ctx context.Context, loc *models.Location) error {
	if loc == nil {
		return fmt.Errorf("location is required")
	}

	if loc.LocationID > 0 {
		query := `
			UPDATE location SET
				locat_latitude = $2,
				locat_longitude = $3,
				locat_distance = $4,
				locat_battery = $5,
				locat_status = $6,
				locat_timestamp = $7,
				locat_noti_time = $8,
				locat_noti_status = $9
			WHERE location_id = $1
		`
		res, err := s.db.ExecContext(ctx, query,
			loc.LocationID,
			loc.Latitude,
			loc.Longitude,
			loc.Distance,
			loc.Battery,
			loc.Status,
			loc.Timestamp,
			loc.NotiTime,
			loc.NotiStatus,
		)
		if err != nil {
			return fmt.Errorf("failed to update location: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("location_id=%d: %w", loc.LocationID, ErrNotFound)
		}
		return nil
	}

	query := `
		INSERT INTO location (
			users_id,
			takecare_id,
			locat_latitude,
			locat_longitude,
			locat_distance,
			locat_battery,
			locat_status,
			locat_timestamp,
			locat_noti_time,
			locat_noti_status
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
		RETURNING location_id
	`
	err := s.db.QueryRowContext(ctx, query,
		loc.UsersID,
		loc.TakecareID,
		loc.Latitude,
		loc.Longitude,
		loc.Distance,
		loc.Battery,
		loc.Status,
		loc.Timestamp,
		loc.NotiTime,
		loc.NotiStatus,
	).Scan(&loc.LocationID)
	if err != nil {
		return fmt.Errorf("failed to insert location: %w", err)
	}

	s.logger.Debug("Location row created",
		zap.Int64("location_id", loc.LocationID),
		zap.Int64("users_id", loc.UsersID),
		zap.Int64("takecare_id", loc.TakecareID),
	)
	return nil
}

// CountLocations 统计 pair 的位置行数
func (s *PostgresStore) CountLocations(ctx context.Context, usersID, takecareID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM location WHERE users_id = $1 AND takecare_id = $2`,
		usersID, takecareID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count locations: %w", err)
	}
	return n, nil
}
