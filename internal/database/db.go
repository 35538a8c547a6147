// Package database opens the custody ledger's relational store. Two drivers
// are supported through database/sql: MySQL for a shared deployment and
// SQLite for a self-contained kiosk box. All SQL in the repository layer is
// written with ? placeholders so it runs unchanged on both.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

// OpenMySQL connects to MySQL and verifies the connection.
func OpenMySQL(user, pass, host, port, name string) (*sql.DB, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// OpenSQLite opens (or creates) the SQLite ledger file. The pool is capped at
// a single connection: SQLite serializes writers anyway, and one connection
// makes in-memory databases behave the same as file-backed ones.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return db, nil
}

// InitSchema creates the users and containers tables if they do not exist.
// The driver name selects the DDL dialect.
func InitSchema(db *sql.DB, driver string) error {
	var stmts []string
	switch driver {
	case "mysql":
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS users (
				id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
				name VARCHAR(255) NOT NULL UNIQUE,
				badgeID VARCHAR(64) NOT NULL UNIQUE
			)`,
			`CREATE TABLE IF NOT EXISTS containers (
				id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
				serial_number VARCHAR(64) NOT NULL UNIQUE,
				user_id BIGINT UNSIGNED NULL,
				FOREIGN KEY (user_id) REFERENCES users(id)
			)`,
		}
	case "sqlite3":
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS users (
				id INTEGER PRIMARY KEY,
				name TEXT NOT NULL UNIQUE,
				badgeID TEXT NOT NULL UNIQUE
			)`,
			`CREATE TABLE IF NOT EXISTS containers (
				id INTEGER PRIMARY KEY,
				serial_number TEXT NOT NULL UNIQUE,
				user_id INTEGER,
				FOREIGN KEY (user_id) REFERENCES users(id)
			)`,
		}
	default:
		return fmt.Errorf("unsupported database driver: %q", driver)
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}
