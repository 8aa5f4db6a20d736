package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tasks-api/internal/models"
)

// InsertSession stores s and fills in its generated id.
func (q *Queries) InsertSession(ctx context.Context, s *models.Session) error {
	err := q.db.QueryRowContext(ctx,
		`INSERT INTO sessions (user_id, access_token, access_token_expiry, refresh_token, refresh_token_expiry)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		s.UserID, s.AccessToken, s.AccessTokenExpiry.UTC(), s.RefreshToken, s.RefreshTokenExpiry.UTC(),
	).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// DeleteSession removes the session matching both id and access token digest.
// It reports whether a row was removed.
func (q *Queries) DeleteSession(ctx context.Context, id int, accessToken string) (bool, error) {
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE id = $1 AND access_token = $2`, id, accessToken)
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	return n > 0, nil
}

// SessionWithUser is a session joined with its owner.
type SessionWithUser struct {
	Session models.Session
	User    models.User
}

const sessionUserQuery = `
	SELECT s.id, s.user_id, s.access_token, s.access_token_expiry, s.refresh_token, s.refresh_token_expiry,
	       u.id, u.fullname, u.username, u.password, u.user_active, u.login_attempts
	FROM sessions s
	JOIN users u ON u.id = s.user_id
	`

func (q *Queries) scanSessionWithUser(ctx context.Context, where string, args ...any) (*SessionWithUser, error) {
	row := q.db.QueryRowContext(ctx, sessionUserQuery+where, args...)
	var r SessionWithUser
	s, u := &r.Session, &r.User
	err := row.Scan(&s.ID, &s.UserID, &s.AccessToken, &s.AccessTokenExpiry, &s.RefreshToken, &s.RefreshTokenExpiry,
		&u.ID, &u.Fullname, &u.Username, &u.PasswordHash, &u.Active, &u.LoginAttempts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &r, nil
}

// GetSessionByAccessToken looks a session up by access token digest.
func (q *Queries) GetSessionByAccessToken(ctx context.Context, accessToken string) (*SessionWithUser, error) {
	return q.scanSessionWithUser(ctx, `WHERE s.access_token = $1`, accessToken)
}

// GetSessionForRefresh requires the id and both token digests to match.
func (q *Queries) GetSessionForRefresh(ctx context.Context, id int, accessToken, refreshToken string) (*SessionWithUser, error) {
	return q.scanSessionWithUser(ctx,
		`WHERE s.id = $1 AND s.access_token = $2 AND s.refresh_token = $3`, id, accessToken, refreshToken)
}

// RotateSession swaps in new tokens only while the old ones are still current.
func (q *Queries) RotateSession(ctx context.Context, old models.Session, next models.Session) (bool, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE sessions
		 SET access_token = $1, access_token_expiry = $2, refresh_token = $3, refresh_token_expiry = $4
		 WHERE id = $5 AND access_token = $6 AND refresh_token = $7`,
		next.AccessToken, next.AccessTokenExpiry.UTC(), next.RefreshToken, next.RefreshTokenExpiry.UTC(),
		old.ID, old.AccessToken, old.RefreshToken,
	)
	if err != nil {
		return false, fmt.Errorf("rotate session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rotate session: %w", err)
	}
	return n > 0, nil
}

// DeleteExpiredSessions removes sessions whose refresh token expired before now.
func (q *Queries) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE refresh_token_expiry < $1`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}

func (q *Queries) CountSessions(ctx context.Context, userID int) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions WHERE user_id = $1`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return n, nil
}
