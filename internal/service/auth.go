package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"tasks-api/internal/metrics"
	"tasks-api/internal/models"
	"tasks-api/internal/repository"
	"tasks-api/pkg/crypto"
	"tasks-api/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	AccessTokenTTL  = 1200 * time.Second
	RefreshTokenTTL = 1209600 * time.Second

	maxFieldLength = 255
)

// Tokens is what a client receives after login or refresh.
type Tokens struct {
	SessionID          int
	AccessToken        string
	AccessTokenExpiry  time.Duration
	RefreshToken       string
	RefreshTokenExpiry time.Duration
}

// AuthService issues, validates, refreshes and revokes sessions.
type AuthService struct {
	store    *repository.Store
	metrics  *metrics.Metrics
	now      func() time.Time
	newToken func(time.Time) (string, error)
	compare  func(hash, password []byte) error
}

func NewAuthService(store *repository.Store, m *metrics.Metrics) *AuthService {
	return &AuthService{
		store:    store,
		metrics:  m,
		now:      time.Now,
		newToken: crypto.NewToken,
		compare:  bcrypt.CompareHashAndPassword,
	}
}

// unknownUserHash is checked against when the username does not exist, so
// both outcomes of a login pay for one bcrypt comparison.
var unknownUserHash = sync.OnceValue(func() []byte {
	hash, err := bcrypt.GenerateFromPassword([]byte("unknown user"), bcrypt.DefaultCost)
	if err != nil {
		panic(fmt.Sprintf("hash placeholder password: %v", err))
	}
	return hash
})

// WithClock replaces the time source; used by tests.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

// Register creates an active user with a bcrypt password hash.
func (s *AuthService) Register(ctx context.Context, fullname, username, password string) (*models.User, error) {
	fullname = strings.TrimSpace(fullname)
	username = strings.TrimSpace(username)

	var problems []string
	problems = append(problems, checkField(fullname, "Full name")...)
	problems = append(problems, checkField(username, "Username")...)
	problems = append(problems, checkField(password, "Password")...)
	if len(problems) > 0 {
		return nil, invalid(problems...)
	}

	_, err := s.store.GetUserByUsername(ctx, username)
	if err == nil {
		return nil, ErrUsernameTaken
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &models.User{Fullname: fullname, Username: username, PasswordHash: string(hash), Active: true}
	if err := s.store.InsertUser(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	logger.AuditLogger.Info("User registered", zap.Int("user_id", u.ID), zap.String("username", u.Username))
	return u, nil
}

func checkField(value, name string) []string {
	switch {
	case len(value) < 1:
		return []string{name + " cannot be empty"}
	case len(value) > maxFieldLength:
		return []string{name + " cannot be longer than 255 characters"}
	}
	return nil
}

// Login checks the account state before the password, so a locked account
// stays locked even when the right password is supplied.
func (s *AuthService) Login(ctx context.Context, username, password string) (*Tokens, error) {
	u, err := s.store.GetUserByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		_ = s.compare(unknownUserHash(), []byte(password))
		s.metrics.Login(metrics.LoginInvalidCredentials)
		logger.SecurityLogger.Warn("Login for unknown username", zap.String("username", username))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !u.Active {
		s.metrics.Login(metrics.LoginInactive)
		logger.SecurityLogger.Warn("Login for inactive account", zap.Int("user_id", u.ID))
		return nil, ErrAccountInactive
	}
	if u.Locked() {
		s.metrics.Login(metrics.LoginLocked)
		logger.SecurityLogger.Warn("Login for locked account", zap.Int("user_id", u.ID))
		return nil, ErrAccountLocked
	}

	if err := s.compare([]byte(u.PasswordHash), []byte(password)); err != nil {
		if err := s.store.IncrementLoginAttempts(ctx, u.ID); err != nil {
			return nil, err
		}
		s.metrics.Login(metrics.LoginInvalidCredentials)
		logger.SecurityLogger.Warn("Invalid password", zap.Int("user_id", u.ID), zap.Int("attempts", u.LoginAttempts+1))
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	sess, tokens, err := s.issue(now)
	if err != nil {
		return nil, err
	}
	sess.UserID = u.ID

	err = s.store.ExecTx(ctx, func(q *repository.Queries) error {
		if err := q.ResetLoginAttempts(ctx, u.ID); err != nil {
			return err
		}
		return q.InsertSession(ctx, sess)
	})
	if err != nil {
		return nil, err
	}
	tokens.SessionID = sess.ID

	s.metrics.Login(metrics.LoginSuccess)
	s.metrics.Session(metrics.SessionCreated)
	logger.AuditLogger.Info("Login success", zap.Int("user_id", u.ID), zap.Int("session_id", sess.ID))
	return tokens, nil
}

// issue mints a fresh token pair. The session carries digests, Tokens the plaintext.
func (s *AuthService) issue(now time.Time) (*models.Session, *Tokens, error) {
	access, err := s.newToken(now)
	if err != nil {
		return nil, nil, fmt.Errorf("generate access token: %w", err)
	}
	refresh, err := s.newToken(now)
	if err != nil {
		return nil, nil, fmt.Errorf("generate refresh token: %w", err)
	}
	sess := &models.Session{
		AccessToken:        crypto.Digest(access),
		AccessTokenExpiry:  now.Add(AccessTokenTTL),
		RefreshToken:       crypto.Digest(refresh),
		RefreshTokenExpiry: now.Add(RefreshTokenTTL),
	}
	tokens := &Tokens{
		AccessToken:        access,
		AccessTokenExpiry:  AccessTokenTTL,
		RefreshToken:       refresh,
		RefreshTokenExpiry: RefreshTokenTTL,
	}
	return sess, tokens, nil
}

// Logout deletes the session matching both id and access token.
func (s *AuthService) Logout(ctx context.Context, sessionID int, accessToken string) error {
	removed, err := s.store.DeleteSession(ctx, sessionID, crypto.Digest(accessToken))
	if err != nil {
		return err
	}
	if !removed {
		logger.SecurityLogger.Warn("Logout with unknown session or token", zap.Int("session_id", sessionID))
		return ErrLogoutFailed
	}
	s.metrics.Session(metrics.SessionRevoked)
	logger.AuditLogger.Info("Logout", zap.Int("session_id", sessionID))
	return nil
}

// Refresh rotates both tokens of a session. The access token may already be
// expired; the refresh token may not.
func (s *AuthService) Refresh(ctx context.Context, sessionID int, accessToken, refreshToken string) (*Tokens, error) {
	found, err := s.store.GetSessionForRefresh(ctx, sessionID, crypto.Digest(accessToken), crypto.Digest(refreshToken))
	if errors.Is(err, repository.ErrNotFound) {
		logger.SecurityLogger.Warn("Refresh with unknown session or tokens", zap.Int("session_id", sessionID))
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	if !found.User.Active {
		return nil, ErrAccountInactive
	}
	if found.User.Locked() {
		return nil, ErrAccountLocked
	}

	now := s.now()
	if !now.Before(found.Session.RefreshTokenExpiry) {
		return nil, ErrRefreshTokenExpired
	}

	next, tokens, err := s.issue(now)
	if err != nil {
		return nil, err
	}
	rotated, err := s.store.RotateSession(ctx, found.Session, *next)
	if err != nil {
		return nil, err
	}
	if !rotated {
		// Someone refreshed or logged out between our read and write.
		return nil, ErrSessionNotFound
	}
	tokens.SessionID = found.Session.ID

	s.metrics.Session(metrics.SessionRefreshed)
	logger.AuditLogger.Info("Session refreshed", zap.Int("user_id", found.User.ID), zap.Int("session_id", found.Session.ID))
	return tokens, nil
}

// Authenticate resolves an access token to its user.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*models.User, *models.Session, error) {
	found, err := s.store.GetSessionByAccessToken(ctx, crypto.Digest(accessToken))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, ErrAccessTokenInvalid
	}
	if err != nil {
		return nil, nil, err
	}
	if !found.User.Active {
		return nil, nil, ErrAccountInactive
	}
	if found.User.Locked() {
		return nil, nil, ErrAccountLocked
	}
	if !s.now().Before(found.Session.AccessTokenExpiry) {
		return nil, nil, ErrAccessTokenExpired
	}
	return &found.User, &found.Session, nil
}

func (s *AuthService) UnlockUser(ctx context.Context, username string) error {
	err := s.store.UnlockUser(ctx, username)
	if err == nil {
		logger.AuditLogger.Info("User unlocked", zap.String("username", username))
	}
	return err
}

func (s *AuthService) SetUserActive(ctx context.Context, username string, active bool) error {
	err := s.store.SetUserActive(ctx, username, active)
	if err == nil {
		logger.AuditLogger.Info("User active flag changed", zap.String("username", username), zap.Bool("active", active))
	}
	return err
}

// PurgeExpiredSessions deletes sessions that can no longer be refreshed.
func (s *AuthService) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	return s.store.DeleteExpiredSessions(ctx, s.now())
}
