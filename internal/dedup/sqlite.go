package dedup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"stratos/internal/types"
)

type dedupRecordModel struct {
	ExecID   string         `gorm:"primaryKey;column:exec_id"`
	Response datatypes.JSON `gorm:"column:response"`
	StoredAt time.Time      `gorm:"column:stored_at;index"`
}

func (dedupRecordModel) TableName() string { return "dedup_records" }

// SqliteStore persists dedup records so idempotency survives restarts.
// Expired rows are swept opportunistically on Put.
type SqliteStore struct {
	db   *gorm.DB
	opts Options
}

func NewSqliteStore(path string, opts Options) (*SqliteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("dedup sqlite store: path cannot be empty")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&dedupRecordModel{}); err != nil {
		return nil, err
	}
	return &SqliteStore{db: db, opts: opts.withDefaults()}, nil
}

func (s *SqliteStore) Get(ctx context.Context, execID string) (*types.ExecResponse, bool, error) {
	var rec dedupRecordModel
	err := s.db.WithContext(ctx).First(&rec, "exec_id = ?", execID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if time.Since(rec.StoredAt) > s.opts.TTL {
		s.db.WithContext(ctx).Delete(&dedupRecordModel{}, "exec_id = ?", execID)
		return nil, false, nil
	}
	var resp types.ExecResponse
	if err := json.Unmarshal(rec.Response, &resp); err != nil {
		return nil, false, fmt.Errorf("dedup sqlite store: corrupt record %s: %w", execID, err)
	}
	return &resp, true, nil
}

func (s *SqliteStore) Put(ctx context.Context, execID string, resp *types.ExecResponse) error {
	blob, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	rec := dedupRecordModel{ExecID: execID, Response: blob, StoredAt: time.Now()}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error; err != nil {
		return err
	}
	return s.sweep(ctx)
}

func (s *SqliteStore) sweep(ctx context.Context) error {
	cutoff := time.Now().Add(-s.opts.TTL)
	if err := s.db.WithContext(ctx).Delete(&dedupRecordModel{}, "stored_at < ?", cutoff).Error; err != nil {
		return err
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&dedupRecordModel{}).Count(&count).Error; err != nil {
		return err
	}
	if int(count) <= s.opts.MaxEntries {
		return nil
	}
	overflow := int(count) - s.opts.MaxEntries
	return s.db.WithContext(ctx).Exec(
		`DELETE FROM dedup_records WHERE exec_id IN
		 (SELECT exec_id FROM dedup_records ORDER BY stored_at ASC LIMIT ?)`, overflow).Error
}

func (s *SqliteStore) Stats(ctx context.Context) (Stats, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&dedupRecordModel{}).Count(&count).Error; err != nil {
		return Stats{}, err
	}
	return Stats{Backend: "sqlite", Entries: int(count)}, nil
}

func (s *SqliteStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *SqliteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
