package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"carezone/internal/models"
)

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var lineID, fname, sname, tel sql.NullString
	if err := row.Scan(&u.UsersID, &lineID, &fname, &sname, &tel); err != nil {
		return nil, err
	}
	u.LineID = lineID.String
	u.FirstName = fname.String
	u.LastName = sname.String
	u.Tel = tel.String
	return &u, nil
}

// GetUser 按 users_id 获取照护人
func (s *PostgresStore) GetUser(ctx context.Context, usersID int64) (*models.User, error) {
	query := `
		SELECT users_id, users_line_id, users_fname, users_sname, users_tel1
		FROM users
		WHERE users_id = $1
	`
	u, err := scanUser(s.db.QueryRowContext(ctx, query, usersID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user users_id=%d: %w", usersID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetUserByLineID 按 LINE userId 获取用户（响应者身份识别）
func (s *PostgresStore) GetUserByLineID(ctx context.Context, lineID string) (*models.User, error) {
	if lineID == "" {
		return nil, fmt.Errorf("user line_id is empty: %w", ErrNotFound)
	}
	query := `
		SELECT users_id, users_line_id, users_fname, users_sname, users_tel1
		FROM users
		WHERE users_line_id = $1
		ORDER BY users_id
		LIMIT 1
	`
	u, err := scanUser(s.db.QueryRowContext(ctx, query, lineID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user line_id=%s: %w", lineID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by line id: %w", err)
	}
	return u, nil
}

// GetTakecareperson 获取启用的被照护人
func (s *PostgresStore) GetTakecareperson(ctx context.Context, usersID, takecareID int64) (*models.Takecareperson, error) {
	query := `
		SELECT takecare_id, users_id, takecare_fname, takecare_sname, takecare_tel1, takecare_status
		FROM takecareperson
		WHERE takecare_id = $1
		  AND takecare_status = 1
	`
	args := []any{takecareID}
	if usersID > 0 {
		query += ` AND users_id = $2`
		args = append(args, usersID)
	}

	var t models.Takecareperson
	var fname, sname, tel sql.NullString
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&t.TakecareID,
		&t.UsersID,
		&fname,
		&sname,
		&tel,
		&t.Status,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("takecareperson takecare_id=%d: %w", takecareID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get takecareperson: %w", err)
	}
	t.FirstName = fname.String
	t.LastName = sname.String
	t.Tel = tel.String
	return &t, nil
}

// GetActiveGroup 获取启用的响应者群组
func (s *PostgresStore) GetActiveGroup(ctx context.Context) (*models.GroupLine, error) {
	query := `
		SELECT group_id, group_line_id, group_name, group_status
		FROM groupline
		WHERE group_status = 1
		ORDER BY group_id
		LIMIT 1
	`
	var g models.GroupLine
	var name sql.NullString
	err := s.db.QueryRowContext(ctx, query).Scan(&g.GroupID, &g.GroupLineID, &name, &g.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("active group: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get active group: %w", err)
	}
	g.GroupName = name.String
	return &g, nil
}
