package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"carezone/internal/models"
)

// CreateCaretakerLocation 追加照护人位置
func (s *PostgresStore) CreateCaretakerLocation(ctx context.Context, loc *models.CaretakerLocation) error {
	if loc == nil {
		return fmt.Errorf("caretaker location is required")
	}

	query := `
		INSERT INTO dlocation (
			users_id,
			takecare_id,
			locat_latitude,
			locat_longitude,
			locat_battery,
			location_id,
			locat_timestamp
		) VALUES (
			$1, $2, $3, $4, $5, NULLIF($6, 0), $7
		)
		RETURNING dlocation_id
	`
	err := s.db.QueryRowContext(ctx, query,
		loc.UsersID,
		loc.TakecareID,
		loc.Latitude,
		loc.Longitude,
		loc.Battery,
		loc.LocationID,
		loc.Timestamp,
	).Scan(&loc.DLocationID)
	if err != nil {
		return fmt.Errorf("failed to create caretaker location: %w", err)
	}
	return nil
}

// GetLatestCaretakerLocation 获取 pair 最新的照护人位置，不存在返回 (nil, nil)
func (s *PostgresStore) GetLatestCaretakerLocation(ctx context.Context, usersID, takecareID int64) (*models.CaretakerLocation, error) {
	query := `
		SELECT
			dlocation_id,
			users_id,
			takecare_id,
			locat_latitude,
			locat_longitude,
			locat_battery,
			location_id,
			locat_timestamp
		FROM dlocation
		WHERE users_id = $1
		  AND takecare_id = $2
		ORDER BY locat_timestamp DESC, dlocation_id DESC
		LIMIT 1
	`

	var loc models.CaretakerLocation
	var locationID sql.NullInt64
	err := s.db.QueryRowContext(ctx, query, usersID, takecareID).Scan(
		&loc.DLocationID,
		&loc.UsersID,
		&loc.TakecareID,
		&loc.Latitude,
		&loc.Longitude,
		&loc.Battery,
		&locationID,
		&loc.Timestamp,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest caretaker location: %w", err)
	}
	loc.LocationID = locationID.Int64
	return &loc, nil
}
