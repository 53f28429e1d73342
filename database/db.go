package database

import (
	"fmt"

	"github.com/gocrud/beans/logging"
	"gorm.io/gorm"
)

// DB 包装 *gorm.DB，容器销毁时关闭底层连接池
type DB struct {
	*gorm.DB
	name   string
	logger logging.Logger
}

// Open 打开数据库连接，配置连接池并执行自动迁移
func Open(logger logging.Logger, opts Options) (*DB, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	dialector, err := opts.dialector()
	if err != nil {
		return nil, err
	}

	gcfg := opts.GormConfig
	if gcfg == nil {
		gcfg = &gorm.Config{}
	}
	if gcfg.Logger == nil {
		gcfg.Logger = newGormLogger(logger.WithCategory("gorm"), opts.SlowThreshold.Std())
	}

	gdb, err := gorm.Open(dialector, gcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open database '%s': %w", opts.Name, err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB for '%s': %w", opts.Name, err)
	}
	sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime.Std())

	if len(opts.AutoMigrate) > 0 {
		if err := gdb.AutoMigrate(opts.AutoMigrate...); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("auto migrate failed for '%s': %w", opts.Name, err)
		}
	}

	logger.Info("Database opened",
		logging.Field{Key: "name", Value: opts.Name},
		logging.Field{Key: "dialect", Value: dialector.Name()},
		logging.Field{Key: "models", Value: len(opts.AutoMigrate)})
	return &DB{DB: gdb, name: opts.Name, logger: logger}, nil
}

// Name 返回数据库名称
func (d *DB) Name() string { return d.name }

// Destroy 关闭连接池
func (d *DB) Destroy() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB for '%s': %w", d.name, err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database '%s': %w", d.name, err)
	}
	d.logger.Info("Database closed", logging.Field{Key: "name", Value: d.name})
	return nil
}
