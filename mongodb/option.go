package mongodb

import (
	"github.com/gocrud/beans/core"
)

// BuilderOption 用于配置 MongoDB Builder
type BuilderOption func(*Builder)

// WithClient 添加 MongoDB 客户端配置
func WithClient(name string, uri string, opts ...func(*ClientOptions)) BuilderOption {
	return func(b *Builder) {
		b.Add(name, uri, func(o *ClientOptions) {
			for _, opt := range opts {
				opt(o)
			}
		})
	}
}

// WithDatabase 设置默认数据库
func WithDatabase(database string) func(*ClientOptions) {
	return func(o *ClientOptions) {
		o.Database = database
	}
}

// FromConfiguration 从配置节读取客户端
func FromConfiguration(section string) BuilderOption {
	return func(b *Builder) {
		b.FromConfiguration(section)
	}
}

// New 启用 MongoDB 能力，每个客户端注册为名为 "mongodb.<name>" 的懒加载单例
func New(opts ...BuilderOption) core.Option {
	return func(ac *core.ApplicationContext) error {
		builder := NewBuilder()
		for _, opt := range opts {
			opt(builder)
		}
		return builder.Build(ac.Configuration(), ac.Factory)
	}
}

// Get 按名称获取客户端
func Get(ac *core.ApplicationContext, name string) (*Client, error) {
	return core.Bean[*Client](ac, Kind+"."+name)
}
