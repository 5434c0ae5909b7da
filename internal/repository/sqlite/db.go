package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"bucket-list-backend/internal/models"
	"bucket-list-backend/internal/repository"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const busyTimeoutMillis = 5000

// friendship is one direction of a symmetric friendship
type friendship struct {
	UserID    string `gorm:"primaryKey"`
	FriendID  string `gorm:"primaryKey"`
	CreatedAt time.Time
}

func (friendship) TableName() string { return "friendships" }

type bucketMember struct {
	BucketID string `gorm:"primaryKey"`
	UserID   string `gorm:"primaryKey;index"`
	AddedAt  time.Time
}

func (bucketMember) TableName() string { return "bucket_members" }

type chatMember struct {
	ChatID   string `gorm:"primaryKey"`
	UserID   string `gorm:"primaryKey;index"`
	Position int
}

func (chatMember) TableName() string { return "chat_members" }

// Store is the SQLite backed repository.Store, used for local development and tests
type Store struct {
	db      *gorm.DB
	users   *UserRepository
	buckets *BucketRepository
	chats   *ChatRepository
}

// Open opens (creating if needed) the SQLite database at dsn and migrates it
func Open(dsn string) (*Store, error) {
	if dsn == "" {
		dsn = "bucketlist.db"
	}
	if err := ensureDirForSQLite(dsn); err != nil {
		return nil, err
	}

	db, err := gorm.Open(sqlite.Open(withBusyTimeout(dsn)), &gorm.Config{
		Logger:                                   newLogger(),
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	err = db.AutoMigrate(
		&models.User{}, &friendship{},
		&models.Bucket{}, &bucketMember{}, &models.Category{}, &models.Place{},
		&models.Chat{}, &chatMember{}, &models.Message{},
	)
	if err != nil {
		return nil, fmt.Errorf("migrate db: %w", err)
	}

	return &Store{
		db:      db,
		users:   &UserRepository{db: db},
		buckets: &BucketRepository{db: db},
		chats:   &ChatRepository{db: db},
	}, nil
}

func (s *Store) Users() repository.UserRepository     { return s.users }
func (s *Store) Buckets() repository.BucketRepository { return s.buckets }
func (s *Store) Chats() repository.ChatRepository     { return s.chats }

// Ping checks the underlying connection
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying connection
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// newLogger routes gorm warnings through zerolog
func newLogger() logger.Interface {
	return logger.New(
		zerologWriter{},
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

type zerologWriter struct{}

func (zerologWriter) Printf(format string, args ...interface{}) {
	log.Warn().Str("component", "gorm").Msgf(format, args...)
}

// ensureDirForSQLite creates parent dir for SQLite file if needed.
func ensureDirForSQLite(dsn string) error {
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return nil
	}
	clean := strings.TrimPrefix(dsn, "file:")
	clean = strings.Split(clean, "?")[0]
	dir := filepath.Dir(clean)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create db dir %q: %w", dir, err)
	}
	return nil
}

// withBusyTimeout makes concurrent writers wait for the lock instead of failing with SQLITE_BUSY
func withBusyTimeout(dsn string) string {
	if strings.Contains(dsn, "_busy_timeout") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_busy_timeout=" + strconv.Itoa(busyTimeoutMillis)
}

// notFound maps gorm.ErrRecordNotFound onto repository.ErrNotFound
func notFound(err error, what, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %s: %w", what, id, repository.ErrNotFound)
	}
	return fmt.Errorf("get %s: %w", what, err)
}

// affected turns a zero-row result into repository.ErrNotFound
func affected(result *gorm.DB, what, id string) error {
	if result.Error != nil {
		return fmt.Errorf("update %s: %w", what, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%s %s: %w", what, id, repository.ErrNotFound)
	}
	return nil
}
