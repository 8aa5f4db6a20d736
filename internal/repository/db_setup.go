package repository

import (
	"context"
	"database/sql"
	"fmt"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var schemas = map[string][]string{
	DriverPostgres: {
		`CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			fullname VARCHAR(255) NOT NULL,
			username VARCHAR(255) NOT NULL UNIQUE,
			password VARCHAR(255) NOT NULL,
			user_active BOOLEAN NOT NULL DEFAULT TRUE,
			login_attempts INT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id SERIAL PRIMARY KEY,
			user_id INT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
			access_token VARCHAR(100) NOT NULL UNIQUE,
			access_token_expiry TIMESTAMP NOT NULL,
			refresh_token VARCHAR(100) NOT NULL UNIQUE,
			refresh_token_expiry TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id SERIAL PRIMARY KEY,
			title VARCHAR(255) NOT NULL,
			description TEXT,
			deadline TIMESTAMP,
			completed SMALLINT NOT NULL DEFAULT 0 CHECK (completed IN (0, 1)),
			version INT NOT NULL DEFAULT 1
		)`,
	},
	DriverSQLite: {
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			fullname TEXT NOT NULL,
			username TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			user_active BOOLEAN NOT NULL DEFAULT 1,
			login_attempts INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL REFERENCES users (id) ON DELETE CASCADE,
			access_token TEXT NOT NULL UNIQUE,
			access_token_expiry DATETIME NOT NULL,
			refresh_token TEXT NOT NULL UNIQUE,
			refresh_token_expiry DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			description TEXT,
			deadline DATETIME,
			completed INTEGER NOT NULL DEFAULT 0 CHECK (completed IN (0, 1)),
			version INTEGER NOT NULL DEFAULT 1
		)`,
	},
}

// CreateTableIfNotExists brings the schema for driver up to date.
func CreateTableIfNotExists(ctx context.Context, db *sql.DB, driver string) error {
	stmts, ok := schemas[driver]
	if !ok {
		return fmt.Errorf("unsupported driver %q", driver)
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// DeleteAllTable drops every table; used to reset test databases.
func DeleteAllTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
	DROP TABLE IF EXISTS sessions;
	DROP TABLE IF EXISTS tasks;
	DROP TABLE IF EXISTS users;
	`)
	return err
}
