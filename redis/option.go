package redis

import (
	"github.com/gocrud/beans/core"
	goredis "github.com/redis/go-redis/v9"
)

// BuilderOption 用于配置 Redis Builder
type BuilderOption func(*Builder)

// WithClient 添加 Redis 客户端配置
func WithClient(name string, opts ...func(*ClientOptions)) BuilderOption {
	return func(b *Builder) {
		b.AddClient(name, func(o *ClientOptions) {
			for _, opt := range opts {
				opt(o)
			}
		})
	}
}

// FromConfiguration 从配置节读取客户端，例如 "redis:clients"
func FromConfiguration(section string) BuilderOption {
	return func(b *Builder) {
		b.FromConfiguration(section)
	}
}

// New 启用 Redis 能力，每个客户端注册为名为 "redis.<name>" 的单例，
// "default" 客户端（或唯一的客户端）可以按类型注入。
//
// 配置节中的客户端需要在应用 New 之前通过 core.WithConfiguration 提供配置。
func New(opts ...BuilderOption) core.Option {
	return func(ac *core.ApplicationContext) error {
		builder := NewBuilder()
		for _, opt := range opts {
			opt(builder)
		}
		return builder.Build(ac.Configuration(), ac.Factory)
	}
}

// Client 按名称获取客户端
func Client(ac *core.ApplicationContext, name string) (*goredis.Client, error) {
	return core.Bean[*goredis.Client](ac, Kind+"."+name)
}
