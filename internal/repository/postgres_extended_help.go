package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"carezone/internal/models"

	"go.uber.org/zap"
)

const caseColumns = `
			exten_id,
			users_id,
			takecare_id,
			exten_status,
			exten_reason,
			exten_date,
			exten_resend_count,
			exten_received_user_id,
			exten_received_date,
			exten_closed_user_id,
			exten_closed_date,
			exten_latitude,
			exten_longitude`

func scanCase(row rowScanner) (*models.ExtendedHelp, error) {
	var c models.ExtendedHelp
	var status string
	var reason sql.NullString
	var receivedUser, closedUser sql.NullInt64
	var receivedAt, closedAt sql.NullTime
	if err := row.Scan(
		&c.ExtenID,
		&c.UsersID,
		&c.TakecareID,
		&status,
		&reason,
		&c.CreatedAt,
		&c.ResendCount,
		&receivedUser,
		&receivedAt,
		&closedUser,
		&closedAt,
		&c.SafezoneLatitude,
		&c.SafezoneLongitude,
	); err != nil {
		return nil, err
	}
	c.Status = models.CaseStatus(status)
	c.Reason = reason.String
	c.ReceivedUserID = nullInt64Ptr(receivedUser)
	c.ReceivedAt = nullTimePtr(receivedAt)
	c.ClosedUserID = nullInt64Ptr(closedUser)
	c.ClosedAt = nullTimePtr(closedAt)
	return &c, nil
}

// FindOpenCase 查找 pair 未接收且未关闭的最新案件，不存在返回 (nil, nil)
func (s *PostgresStore) FindOpenCase(ctx context.Context, usersID, takecareID int64) (*models.ExtendedHelp, error) {
	query := `
		SELECT` + caseColumns + `
		FROM extendedhelp
		WHERE users_id = $1
		  AND takecare_id = $2
		  AND exten_received_date IS NULL
		  AND exten_closed_date IS NULL
		ORDER BY exten_date DESC, exten_id DESC
		LIMIT 1
	`

	c, err := scanCase(s.db.QueryRowContext(ctx, query, usersID, takecareID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find open case: %w", err)
	}
	return c, nil
}

// GetCase 按 exten_id 获取案件
func (s *PostgresStore) GetCase(ctx context.Context, extenID int64) (*models.ExtendedHelp, error) {
	query := `
		SELECT` + caseColumns + `
		FROM extendedhelp
		WHERE exten_id = $1
	`

	c, err := scanCase(s.db.QueryRowContext(ctx, query, extenID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("case exten_id=%d: %w", extenID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get case: %w", err)
	}
	return c, nil
}

// CreateCase 创建案件
func (s *PostgresStore) CreateCase(ctx context.Context, c *models.ExtendedHelp) error {
	if c == nil {
		return fmt.Errorf("case is required")
	}

	query := `
		INSERT INTO extendedhelp (
			users_id,
			takecare_id,
			exten_status,
			exten_reason,
			exten_date,
			exten_resend_count,
			exten_latitude,
			exten_longitude
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
		RETURNING exten_id
	`
	err := s.db.QueryRowContext(ctx, query,
		c.UsersID,
		c.TakecareID,
		string(c.Status),
		c.Reason,
		c.CreatedAt,
		c.ResendCount,
		c.SafezoneLatitude,
		c.SafezoneLongitude,
	).Scan(&c.ExtenID)
	if err != nil {
		return fmt.Errorf("failed to create case: %w", err)
	}

	s.logger.Info("Extended help case created",
		zap.Int64("exten_id", c.ExtenID),
		zap.Int64("users_id", c.UsersID),
		zap.Int64("takecare_id", c.TakecareID),
		zap.String("reason", c.Reason),
	)
	return nil
}

// MarkResent 单条条件 UPDATE，案件已被接收或关闭时不再回退为 resent
func (s *PostgresStore) MarkResent(ctx context.Context, extenID int64) (int, bool, error) {
	query := `
		UPDATE extendedhelp SET
			exten_status = $2,
			exten_resend_count = exten_resend_count + 1
		WHERE exten_id = $1
		  AND exten_received_date IS NULL
		  AND exten_closed_date IS NULL
		RETURNING exten_resend_count
	`

	var count int
	err := s.db.QueryRowContext(ctx, query, extenID, string(models.CaseStatusResent)).Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to mark case resent: %w", err)
	}
	return count, true, nil
}

// MarkReceived 单条条件 UPDATE，只有第一个接收者能写入
// 案件已关闭时保留 closed 状态，仅补写接收人
func (s *PostgresStore) MarkReceived(ctx context.Context, extenID, userID int64, at time.Time) (bool, error) {
	query := `
		UPDATE extendedhelp SET
			exten_status = CASE WHEN exten_closed_date IS NULL THEN $2 ELSE exten_status END,
			exten_received_user_id = $3,
			exten_received_date = $4
		WHERE exten_id = $1
		  AND exten_received_date IS NULL
	`
	return s.guardedUpdate(ctx, "received", query, extenID, string(models.CaseStatusReceived), userID, at)
}

// MarkClosed 单条条件 UPDATE，只有第一个关闭者能写入
func (s *PostgresStore) MarkClosed(ctx context.Context, extenID, userID int64, at time.Time) (bool, error) {
	query := `
		UPDATE extendedhelp SET
			exten_status = $2,
			exten_closed_user_id = $3,
			exten_closed_date = $4
		WHERE exten_id = $1
		  AND exten_closed_date IS NULL
	`
	return s.guardedUpdate(ctx, "closed", query, extenID, string(models.CaseStatusClosed), userID, at)
}

func (s *PostgresStore) guardedUpdate(ctx context.Context, action, query string, args ...any) (bool, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to mark case %s: %w", action, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n == 1, nil
}

// ListCases 查询案件列表
func (s *PostgresStore) ListCases(ctx context.Context, filter CaseFilter) ([]*models.ExtendedHelp, error) {
	where := []string{"1=1"}
	args := []any{}
	argN := 1

	if filter.UsersID != nil {
		where = append(where, fmt.Sprintf("users_id = $%d", argN))
		args = append(args, *filter.UsersID)
		argN++
	}
	if filter.TakecareID != nil {
		where = append(where, fmt.Sprintf("takecare_id = $%d", argN))
		args = append(args, *filter.TakecareID)
		argN++
	}
	if filter.Status != nil {
		where = append(where, fmt.Sprintf("exten_status = $%d", argN))
		args = append(args, string(*filter.Status))
		argN++
	}
	if filter.StartTime != nil {
		where = append(where, fmt.Sprintf("exten_date >= $%d", argN))
		args = append(args, *filter.StartTime)
		argN++
	}
	if filter.EndTime != nil {
		where = append(where, fmt.Sprintf("exten_date <= $%d", argN))
		args = append(args, *filter.EndTime)
		argN++
	}

	query := `
		SELECT` + caseColumns + `
		FROM extendedhelp
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY exten_date DESC, exten_id DESC
	`
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argN)
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list cases: %w", err)
	}
	defer rows.Close()

	var out []*models.ExtendedHelp
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan case: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cases: %w", err)
	}
	return out, nil
}
