package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/psycacid/musichub/config"
	"github.com/psycacid/musichub/core/auth"
	"github.com/psycacid/musichub/logger"
	"github.com/psycacid/musichub/model"
)

type tableStmt struct {
	table string
	query string
}

var sqliteSchema = []tableStmt{
	{table: "users", query: `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		role TEXT NOT NULL
	)`},
	{table: "songs", query: `
	CREATE TABLE IF NOT EXISTS songs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		artist TEXT NOT NULL,
		album TEXT,
		genre TEXT,
		file_path TEXT NOT NULL,
		song_image TEXT
	)`},
}

var mysqlSchema = []tableStmt{
	{table: "users", query: `
	CREATE TABLE IF NOT EXISTS users (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		username VARCHAR(100) NOT NULL UNIQUE,
		password VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL UNIQUE,
		role VARCHAR(32) NOT NULL
	)`},
	{table: "songs", query: `
	CREATE TABLE IF NOT EXISTS songs (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		artist VARCHAR(255) NOT NULL,
		album VARCHAR(255),
		genre VARCHAR(100),
		file_path VARCHAR(767) NOT NULL,
		song_image VARCHAR(767)
	)`},
}

func schemaFor(driver string) ([]tableStmt, error) {
	switch driver {
	case config.DriverSQLite:
		return sqliteSchema, nil
	case config.DriverMySQL:
		return mysqlSchema, nil
	}
	return nil, fmt.Errorf("no schema for database driver %q", driver)
}

// seedAdmin inserts the admin account once. Later starts leave it alone, even if
// ADMIN_PASSWORD changed.
func seedAdmin(ctx context.Context, conn *sql.DB, password string) error {
	var existingID int64
	err := conn.QueryRowContext(ctx, "SELECT id FROM users WHERE username = ?", model.RoleAdmin).Scan(&existingID)
	if err == nil {
		logger.Debug("Admin user already exists, skipping creation.", logger.Int64("userId", existingID))
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to check for existing admin user: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password for admin user: %w", err)
	}

	res, err := conn.ExecContext(ctx,
		"INSERT INTO users (username, password, email, role) VALUES (?, ?, ?, ?)",
		model.RoleAdmin, hash, "admin@localhost", model.RoleAdmin)
	if err != nil {
		return fmt.Errorf("failed to insert admin user: %w", err)
	}
	id, _ := res.LastInsertId()
	logger.Info("Admin user created.", logger.Int64("userId", id))
	return nil
}
