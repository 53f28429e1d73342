package database

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gocrud/beans/config"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Opener 根据 DSN 创建 gorm 方言
type Opener func(dsn string) gorm.Dialector

var (
	driversMu sync.RWMutex
	drivers   = map[string]Opener{
		"sqlite":   sqlite.Open,
		"postgres": postgres.Open,
	}
)

// RegisterDriver 注册驱动，配置中的 driver 字段按名称查找。
// 内置 "sqlite" 与 "postgres"，其他数据库由应用自行注册，例如 RegisterDriver("mysql", mysql.Open)。
func RegisterDriver(name string, open Opener) {
	driversMu.Lock()
	defer driversMu.Unlock()
	drivers[name] = open
}

func lookupDriver(name string) (Opener, bool) {
	driversMu.RLock()
	defer driversMu.RUnlock()
	open, ok := drivers[name]
	return open, ok
}

// Options 数据库配置选项
type Options struct {
	Name            string          `json:"-"`
	Driver          string          `json:"driver"`
	DSN             string          `json:"dsn"`
	MaxIdleConns    int             `json:"maxIdleConns"`
	MaxOpenConns    int             `json:"maxOpenConns"`
	ConnMaxLifetime config.Duration `json:"connMaxLifetime"`
	// SlowThreshold 超过该耗时的 SQL 以 Warn 级别记录
	SlowThreshold config.Duration `json:"slowThreshold"`

	// Dialector 优先于 Driver/DSN
	Dialector  gorm.Dialector `json:"-"`
	GormConfig *gorm.Config   `json:"-"`
	// AutoMigrate 创建连接后自动迁移的模型
	AutoMigrate []any `json:"-"`
}

// NewDefaultOptions 创建默认配置
func NewDefaultOptions(name string) *Options {
	return &Options{
		Name:            name,
		Driver:          "sqlite",
		MaxIdleConns:    10,
		MaxOpenConns:    100,
		ConnMaxLifetime: config.Duration(time.Hour),
		SlowThreshold:   config.Duration(200 * time.Millisecond),
	}
}

// Validate 验证配置
func (o *Options) Validate() error {
	if o.Dialector != nil {
		return nil
	}
	if o.DSN == "" {
		return errors.New("database dsn is required")
	}
	if _, ok := lookupDriver(o.Driver); !ok {
		return fmt.Errorf("database driver '%s' is not registered", o.Driver)
	}
	return nil
}

func (o *Options) dialector() (gorm.Dialector, error) {
	if o.Dialector != nil {
		return o.Dialector, nil
	}
	open, ok := lookupDriver(o.Driver)
	if !ok {
		return nil, fmt.Errorf("database driver '%s' is not registered", o.Driver)
	}
	return open(o.DSN), nil
}
