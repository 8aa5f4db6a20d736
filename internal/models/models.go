package models

import (
	"time"
)

type User struct {
	ID            int    `json:"user_id"`
	Fullname      string `json:"fullname"`
	Username      string `json:"username"`
	PasswordHash  string `json:"-"`
	Active        bool   `json:"-"`
	LoginAttempts int    `json:"-"`
}

// MaxLoginAttempts is the number of consecutive failed logins after which
// an account is locked.
const MaxLoginAttempts = 3

func (u *User) Locked() bool {
	return u.LoginAttempts >= MaxLoginAttempts
}

// Session holds token digests, never the tokens themselves.
type Session struct {
	ID                 int
	UserID             int
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
}

type Task struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Deadline    *Deadline `json:"deadline"`
	Completed   int       `json:"completed"`
	Version     int       `json:"-"`
}
