package database

import (
	"github.com/gocrud/beans/core"
	"gorm.io/gorm"
)

// BuilderOption 用于配置数据库 Builder
type BuilderOption func(*Builder)

// WithDatabase 使用方言添加数据库
func WithDatabase(name string, dialector gorm.Dialector, opts ...func(*Options)) BuilderOption {
	return func(b *Builder) {
		b.Add(name, dialector, func(o *Options) {
			for _, opt := range opts {
				opt(o)
			}
		})
	}
}

// WithDSN 使用已注册的驱动添加数据库
func WithDSN(name, driver, dsn string, opts ...func(*Options)) BuilderOption {
	return func(b *Builder) {
		b.AddDSN(name, driver, dsn, func(o *Options) {
			for _, opt := range opts {
				opt(o)
			}
		})
	}
}

// WithModels 设置自动迁移的模型
func WithModels(models ...any) func(*Options) {
	return func(o *Options) {
		o.AutoMigrate = append(o.AutoMigrate, models...)
	}
}

// FromConfiguration 从配置节读取数据库，models 对这些数据库全部自动迁移
func FromConfiguration(section string, models ...any) BuilderOption {
	return func(b *Builder) {
		b.FromConfiguration(section).AutoMigrate(models...)
	}
}

// New 启用数据库能力，每个数据库注册为名为 "database.<name>" 的懒加载单例
func New(opts ...BuilderOption) core.Option {
	return func(ac *core.ApplicationContext) error {
		builder := NewBuilder()
		for _, opt := range opts {
			opt(builder)
		}
		return builder.Build(ac.Configuration(), ac.Factory)
	}
}

// Get 按名称获取数据库
func Get(ac *core.ApplicationContext, name string) (*DB, error) {
	return core.Bean[*DB](ac, Kind+"."+name)
}
