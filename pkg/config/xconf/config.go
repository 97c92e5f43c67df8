package xconf

import (
	"fmt"
	"time"
)

// =============================================================================
// 配置结构
// =============================================================================

// Config 服务配置根结构。
type Config struct {
	Redis    RedisConfig    `koanf:"redis"`
	Postgres PostgresConfig `koanf:"postgres"`
	Cache    CacheConfig    `koanf:"cache"`
	Lock     LockConfig     `koanf:"lock"`
}

// RedisConfig Redis 连接配置。
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// PostgresConfig PostgreSQL 连接配置。
// DSN 为空表示本实例不接数据库（只用缓存侧能力）。
type PostgresConfig struct {
	DSN      string `koanf:"dsn"`
	MaxConns int32  `koanf:"max_conns"`
}

// CacheConfig 缓存层配置。
type CacheConfig struct {
	ShopTTL        time.Duration `koanf:"shop_ttl"`
	NullTTL        time.Duration `koanf:"null_ttl"`
	RebuildLockTTL time.Duration `koanf:"rebuild_lock_ttl"`
	RebuildWorkers int           `koanf:"rebuild_workers"`
	RebuildQueue   int           `koanf:"rebuild_queue"`
}

// LockConfig 秒杀用户锁配置。
type LockConfig struct {
	OrderLockExpiry     time.Duration `koanf:"order_lock_expiry"`
	OrderLockTries      int           `koanf:"order_lock_tries"`
	OrderLockRetryDelay time.Duration `koanf:"order_lock_retry_delay"`
}

// DefaultConfig 返回内置默认配置。
func DefaultConfig() Config {
	return Config{
		Redis: RedisConfig{
			Addr: "127.0.0.1:6379",
		},
		Postgres: PostgresConfig{
			MaxConns: 10,
		},
		Cache: CacheConfig{
			ShopTTL:        30 * time.Minute,
			NullTTL:        2 * time.Minute,
			RebuildLockTTL: 10 * time.Second,
			RebuildWorkers: 10,
			RebuildQueue:   100,
		},
		Lock: LockConfig{
			OrderLockExpiry:     30 * time.Second,
			OrderLockTries:      1,
			OrderLockRetryDelay: 50 * time.Millisecond,
		},
	}
}

// Validate 校验配置值。
func (c Config) Validate() error {
	if c.Redis.Addr == "" {
		return fmt.Errorf("%w: redis.addr is required", ErrInvalidConfig)
	}
	if c.Postgres.MaxConns < 1 {
		return fmt.Errorf("%w: postgres.max_conns must be positive", ErrInvalidConfig)
	}
	if c.Cache.ShopTTL <= 0 || c.Cache.NullTTL <= 0 || c.Cache.RebuildLockTTL <= 0 {
		return fmt.Errorf("%w: cache ttls must be positive", ErrInvalidConfig)
	}
	if c.Cache.RebuildWorkers < 1 || c.Cache.RebuildQueue < 1 {
		return fmt.Errorf("%w: cache rebuild workers/queue must be positive", ErrInvalidConfig)
	}
	if c.Lock.OrderLockExpiry <= 0 || c.Lock.OrderLockRetryDelay <= 0 {
		return fmt.Errorf("%w: lock durations must be positive", ErrInvalidConfig)
	}
	if c.Lock.OrderLockTries < 1 {
		return fmt.Errorf("%w: lock.order_lock_tries must be positive", ErrInvalidConfig)
	}
	return nil
}
