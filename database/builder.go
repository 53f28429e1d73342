package database

import (
	"fmt"

	"github.com/gocrud/beans/config"
	"github.com/gocrud/beans/core"
	"github.com/gocrud/beans/di"
	"github.com/gocrud/beans/logging"
	"gorm.io/gorm"
)

// Kind 是数据库 Bean 名称的前缀
const Kind = "database"

// Builder 数据库配置构建器
type Builder struct {
	dbs      *core.NamedBuilder[Options]
	sections []string
	models   []any
}

// NewBuilder 创建构建器
func NewBuilder() *Builder {
	return &Builder{
		dbs: core.NewNamedBuilder(Kind, NewDefaultOptions, (*Options).Validate),
	}
}

// Add 添加数据库配置
func (b *Builder) Add(name string, dialector gorm.Dialector, configure func(*Options)) *Builder {
	b.dbs.Add(name, func(o *Options) {
		o.Dialector = dialector
		if configure != nil {
			configure(o)
		}
	})
	return b
}

// AddDSN 使用已注册的驱动添加数据库配置
func (b *Builder) AddDSN(name, driver, dsn string, configure func(*Options)) *Builder {
	b.dbs.Add(name, func(o *Options) {
		o.Driver = driver
		o.DSN = dsn
		if configure != nil {
			configure(o)
		}
	})
	return b
}

// FromConfiguration 把配置节下的每个子节作为一个数据库，例如 "database:connections"
func (b *Builder) FromConfiguration(section string) *Builder {
	b.sections = append(b.sections, section)
	return b
}

// AutoMigrate 为所有从配置读取的数据库追加迁移模型
func (b *Builder) AutoMigrate(models ...any) *Builder {
	b.models = append(b.models, models...)
	return b
}

// Build 读取配置节并注册 *gorm.DB Bean。连接在第一次获取时打开，容器关闭时关闭。
func (b *Builder) Build(cfg config.Configuration, reg di.BeanDefinitionRegistry) error {
	for _, section := range b.sections {
		b.dbs.AddFromConfiguration(cfg, section, func(o *Options) {
			o.AutoMigrate = append(o.AutoMigrate, b.models...)
		})
	}
	return b.dbs.Register(reg, func(name string, opts Options) *di.BeanDefinition {
		return di.DefineFunc(func(logger logging.Logger) (*DB, error) {
			return Open(logger, opts)
		},
			di.WithLazyInit(),
			di.WithDescription(fmt.Sprintf("database %s (%s)", name, opts.Driver)),
		)
	})
}
