// Package sqlite keeps the local log of delivered notifications.
package sqlite

import (
	"context"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/frahmantamala/taskdesk/internal/core/datamodel/notification"
)

const DefaultListLimit = 50

//go:embed migrations/*.sql
var migrations embed.FS

// Open connects to the database file at path; ":memory:" is accepted.
// SQLite allows one writer, so the pool is kept to a single connection.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(gormsqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open notification log %s: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// Migrate applies the embedded schema migrations.
func Migrate(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, sqlDB, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// Rollback reverts the latest migration.
func Rollback(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.DownContext(ctx, sqlDB, "migrations")
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Save stores n. Saving the same notification id twice keeps the first copy.
func (r *Repository) Save(ctx context.Context, n notification.Notification) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&n).Error
}

// Notify records the notification, so the log can sit behind a notify.Notifier.
func (r *Repository) Notify(ctx context.Context, n notification.Notification) error {
	return r.Save(ctx, n)
}

// ListByIdentity returns the newest notifications delivered to identityID.
func (r *Repository) ListByIdentity(ctx context.Context, identityID string, limit int) ([]notification.Notification, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	var out []notification.Notification
	err := r.db.WithContext(ctx).
		Where("identity_id = ?", identityID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *Repository) CountByIdentity(ctx context.Context, identityID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&notification.Notification{}).
		Where("identity_id = ?", identityID).
		Count(&n).Error
	return n, err
}
