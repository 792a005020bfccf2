package config

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vnkhanh/surveyflow/config/configslog"
	"github.com/vnkhanh/surveyflow/store"
)

// ConnectDB opens PostgreSQL and migrates the document table.
func ConnectDB(cfg Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode)

	level := logger.Warn
	if cfg.Debug {
		level = logger.Info
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := store.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	configslog.SLog.Infow("connected to PostgreSQL", "host", cfg.DBHost, "db", cfg.DBName)
	return db, nil
}

func ConnectRedis(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
	}

	configslog.SLog.Infow("connected to Redis", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
	return client, nil
}

// OpenStore builds the persistence backend selected by STORE_DRIVER. The
// returned close function releases the underlying connection.
func OpenStore(ctx context.Context, cfg Config) (store.Store, func() error, error) {
	switch cfg.StoreDriver {
	case StorePostgres:
		db, err := ConnectDB(cfg)
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, err
		}
		return store.NewGorm(db), sqlDB.Close, nil
	case StoreRedis:
		client, err := ConnectRedis(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return store.NewRedis(client, cfg.RedisPrefix), client.Close, nil
	case StoreMemory:
		configslog.Log.Warn("using in-memory store, data is lost on restart")
		return store.NewMemory(), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}
