package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tasks-api/internal/models"
)

const userColumns = `id, fullname, username, password, user_active, login_attempts`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Fullname, &u.Username, &u.PasswordHash, &u.Active, &u.LoginAttempts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	u, err := scanUser(row)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return u, err
}

// InsertUser stores u and fills in its generated id.
func (q *Queries) InsertUser(ctx context.Context, u *models.User) error {
	err := q.db.QueryRowContext(ctx,
		`INSERT INTO users (fullname, username, password, user_active, login_attempts)
		 VALUES ($1, $2, $3, $4, 0) RETURNING id`,
		u.Fullname, u.Username, u.PasswordHash, u.Active,
	).Scan(&u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (q *Queries) IncrementLoginAttempts(ctx context.Context, userID int) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE users SET login_attempts = login_attempts + 1 WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("increment login attempts: %w", err)
	}
	return nil
}

func (q *Queries) ResetLoginAttempts(ctx context.Context, userID int) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE users SET login_attempts = 0 WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("reset login attempts: %w", err)
	}
	return nil
}

// SetUserActive toggles the active flag by username.
func (q *Queries) SetUserActive(ctx context.Context, username string, active bool) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE users SET user_active = $1 WHERE username = $2`, active, username)
	if err != nil {
		return fmt.Errorf("set user active: %w", err)
	}
	return expectRows(res)
}

// UnlockUser clears the failed login counter by username.
func (q *Queries) UnlockUser(ctx context.Context, username string) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE users SET login_attempts = 0 WHERE username = $1`, username)
	if err != nil {
		return fmt.Errorf("unlock user: %w", err)
	}
	return expectRows(res)
}

func expectRows(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
