package database

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"steprecorder/internal/config"
	"steprecorder/internal/models"
)

// InitDatabase connects to MySQL and migrates the key-value table.
func InitDatabase(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.GetDSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)

	if err = sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	log.Info("Database connected successfully",
		zap.String("host", cfg.Database.Host), zap.String("database", cfg.Database.Database))

	if err := AutoMigrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.KVEntry{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// GormStore keeps each key as one row of kv_entries.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	var entries []models.KVEntry
	if err := s.db.WithContext(ctx).Where("entry_key IN ?", keys).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to read keys: %w", err)
	}
	for _, e := range entries {
		out[e.Key] = json.RawMessage(e.Value)
	}
	return out, nil
}

// Set upserts all values in one transaction.
func (s *GormStore) Set(ctx context.Context, values map[string]any) error {
	raw, err := marshalValues(values)
	if err != nil {
		return fmt.Errorf("failed to encode values: %w", err)
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, k := range keys {
			entry := models.KVEntry{Key: k, Value: string(raw[k])}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "entry_key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
			}).Create(&entry).Error
			if err != nil {
				return fmt.Errorf("failed to write key %s: %w", k, err)
			}
		}
		return nil
	})
}
