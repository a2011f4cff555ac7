package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"carezone/internal/models"
)

// GetSafezone 获取 pair 的安全区（多条时取 safezone_id 最小的一条）
func (s *PostgresStore) GetSafezone(ctx context.Context, usersID, takecareID int64) (*models.Safezone, error) {
	query := `
		SELECT
			safezone_id,
			users_id,
			takecare_id,
			safez_latitude,
			safez_longitude,
			safez_radiuslv1,
			safez_radiuslv2
		FROM safezone
		WHERE users_id = $1
		  AND takecare_id = $2
		ORDER BY safezone_id
		LIMIT 1
	`

	var z models.Safezone
	err := s.db.QueryRowContext(ctx, query, usersID, takecareID).Scan(
		&z.SafezoneID,
		&z.UsersID,
		&z.TakecareID,
		&z.Latitude,
		&z.Longitude,
		&z.RadiusLv1,
		&z.RadiusLv2,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("safezone users_id=%d takecare_id=%d: %w", usersID, takecareID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get safezone: %w", err)
	}
	return &z, nil
}
