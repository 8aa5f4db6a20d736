// Package testutil sets up throwaway stores for tests.
package testutil

import (
	"context"
	"database/sql"
	"testing"

	"tasks-api/internal/models"
	"tasks-api/internal/repository"
	"tasks-api/pkg/database"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// NewSQLiteStore opens a private in-memory database with the schema applied.
func NewSQLiteStore(t testing.TB) (*sql.DB, *repository.Store) {
	t.Helper()
	db, err := database.Open("sqlite", database.SQLiteDSN(":memory:"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, repository.CreateTableIfNotExists(context.Background(), db, repository.DriverSQLite))
	return db, repository.NewStore(db)
}

// CreateUser inserts an active user with a bcrypt hash of password.
func CreateUser(t testing.TB, store *repository.Store, username, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	u := &models.User{Fullname: "Test " + username, Username: username, PasswordHash: string(hash), Active: true}
	require.NoError(t, store.InsertUser(context.Background(), u))
	return u
}
