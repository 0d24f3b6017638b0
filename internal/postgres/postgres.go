// Package postgres stores grams and comments in PostgreSQL through GORM.
//
// Users, sessions and API keys stay in SQLite. Rows here only carry the
// owning user's id and a copy of their email, so no cross-database foreign
// key is needed.
package postgres

import (
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type gramRow struct {
	ID        int64        `gorm:"primaryKey"`
	UserID    int64        `gorm:"not null;index"`
	Author    string       `gorm:"type:varchar(255);not null"`
	Message   string       `gorm:"type:text;not null"`
	CreatedAt time.Time    `gorm:"not null"`
	UpdatedAt time.Time    `gorm:"not null"`
	Comments  []commentRow `gorm:"foreignKey:GramID;constraint:OnDelete:CASCADE"`
}

func (gramRow) TableName() string { return "grams" }

type commentRow struct {
	ID        int64     `gorm:"primaryKey"`
	GramID    int64     `gorm:"not null;index"`
	UserID    int64     `gorm:"not null"`
	Author    string    `gorm:"type:varchar(255);not null"`
	Body      string    `gorm:"type:varchar(2000);not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (commentRow) TableName() string { return "comments" }

// DB is an open PostgreSQL connection with the schema migrated.
type DB struct {
	gorm *gorm.DB
}

// Open connects to dsn and migrates the gram and comment tables.
func Open(dsn string) (*DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: newLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	if err := db.AutoMigrate(&gramRow{}, &commentRow{}); err != nil {
		return nil, fmt.Errorf("migrating postgres: %w", err)
	}

	return &DB{gorm: db}, nil
}

// Grams returns the gram store.
func (d *DB) Grams() *GramStore { return &GramStore{db: d.gorm} }

// Comments returns the comment store.
func (d *DB) Comments() *CommentStore { return &CommentStore{db: d.gorm} }

// Close closes the underlying connection pool.
func (d *DB) Close() error {
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return fmt.Errorf("getting connection pool: %w", err)
	}
	return sqlDB.Close()
}

// newLogger routes GORM's logging through the default slog logger.
func newLogger() logger.Interface {
	return logger.New(
		slog.NewLogLogger(slog.Default().Handler(), slog.LevelDebug),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)
}
