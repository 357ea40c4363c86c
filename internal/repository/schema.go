package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS notices (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		title VARCHAR(200) NOT NULL,
		content TEXT NOT NULL,
		start_date DATETIME(3) NOT NULL,
		end_date DATETIME(3) NOT NULL,
		view_count BIGINT NOT NULL DEFAULT 0,
		created_at DATETIME(3) NOT NULL,
		updated_at DATETIME(3) NOT NULL,
		created_by VARCHAR(50) NOT NULL,
		is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
		INDEX idx_notices_deleted_created (is_deleted, created_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS notice_attachments (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		notice_id BIGINT NOT NULL,
		original_filename VARCHAR(255) NOT NULL,
		stored_key VARCHAR(255) NOT NULL,
		file_size BIGINT NOT NULL,
		content_type VARCHAR(255) NULL,
		created_at DATETIME(3) NOT NULL,
		is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
		UNIQUE KEY uk_notice_attachments_stored_key (stored_key),
		INDEX idx_notice_attachments_notice (notice_id),
		CONSTRAINT fk_notice_attachments_notice FOREIGN KEY (notice_id) REFERENCES notices (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS notices (
		id BIGSERIAL PRIMARY KEY,
		title VARCHAR(200) NOT NULL,
		content TEXT NOT NULL,
		start_date TIMESTAMPTZ NOT NULL,
		end_date TIMESTAMPTZ NOT NULL,
		view_count BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		created_by VARCHAR(50) NOT NULL,
		is_deleted BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notices_deleted_created ON notices (is_deleted, created_at)`,
	`CREATE TABLE IF NOT EXISTS notice_attachments (
		id BIGSERIAL PRIMARY KEY,
		notice_id BIGINT NOT NULL REFERENCES notices (id),
		original_filename VARCHAR(255) NOT NULL,
		stored_key VARCHAR(255) NOT NULL UNIQUE,
		file_size BIGINT NOT NULL,
		content_type VARCHAR(255),
		created_at TIMESTAMPTZ NOT NULL,
		is_deleted BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notice_attachments_notice ON notice_attachments (notice_id)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS notices (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		start_date DATETIME NOT NULL,
		end_date DATETIME NOT NULL,
		view_count INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		created_by TEXT NOT NULL,
		is_deleted BOOLEAN NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notices_deleted_created ON notices (is_deleted, created_at)`,
	`CREATE TABLE IF NOT EXISTS notice_attachments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		notice_id INTEGER NOT NULL REFERENCES notices (id),
		original_filename TEXT NOT NULL,
		stored_key TEXT NOT NULL UNIQUE,
		file_size INTEGER NOT NULL,
		content_type TEXT,
		created_at DATETIME NOT NULL,
		is_deleted BOOLEAN NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notice_attachments_notice ON notice_attachments (notice_id)`,
}

// Migrate 按当前驱动创建公告相关的表，可重复执行
func Migrate(ctx context.Context, db *sqlx.DB) error {
	var stmts []string
	switch db.DriverName() {
	case "mysql":
		stmts = mysqlSchema
	case "postgres":
		stmts = postgresSchema
	case "sqlite":
		stmts = sqliteSchema
	default:
		return fmt.Errorf("unsupported driver %q", db.DriverName())
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("执行建表语句失败: %w", err)
		}
	}
	return nil
}
