package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vnkhanh/surveyflow/models"
)

// Gorm stores documents in the kv_documents table.
type Gorm struct {
	db *gorm.DB
}

// NewGorm wraps db. The kv_documents table must exist; see Migrate.
func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.KVDocument{})
}

func (g *Gorm) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	if key == "" {
		return nil, false, ErrEmptyKey
	}
	var doc models.KVDocument
	err := g.db.WithContext(ctx).Where("key = ?", key).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store: get %q: %w", key, err)
	}
	return json.RawMessage(doc.Value), true, nil
}

func (g *Gorm) Set(ctx context.Context, key string, doc json.RawMessage) error {
	if key == "" {
		return ErrEmptyKey
	}
	row := models.KVDocument{Key: key, Value: string(doc)}
	err := g.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("store: set %q: %w", key, err)
	}
	return nil
}

func (g *Gorm) Remove(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if err := g.db.WithContext(ctx).Where("key = ?", key).Delete(&models.KVDocument{}).Error; err != nil {
		return fmt.Errorf("store: remove %q: %w", key, err)
	}
	return nil
}

func (g *Gorm) Ping(ctx context.Context) error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
