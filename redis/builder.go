package redis

import (
	"context"
	"fmt"

	"github.com/gocrud/beans/config"
	"github.com/gocrud/beans/core"
	"github.com/gocrud/beans/di"
	"github.com/gocrud/beans/logging"
	goredis "github.com/redis/go-redis/v9"
)

// Kind 是 Redis 客户端 Bean 名称的前缀
const Kind = "redis"

// Builder Redis 客户端配置构建器
type Builder struct {
	clients  *core.NamedBuilder[ClientOptions]
	sections []string
}

// NewBuilder 创建 Redis 构建器
func NewBuilder() *Builder {
	return &Builder{
		clients: core.NewNamedBuilder(Kind, NewDefaultOptions, (*ClientOptions).Validate),
	}
}

// AddClient 添加一个 Redis 客户端配置
func (b *Builder) AddClient(name string, configure func(*ClientOptions)) *Builder {
	b.clients.Add(name, configure)
	return b
}

// FromConfiguration 把配置节下的每个子节作为一个客户端，例如 "redis:clients"
func (b *Builder) FromConfiguration(section string) *Builder {
	b.sections = append(b.sections, section)
	return b
}

// Build 读取配置节并注册客户端 Bean。客户端在第一次获取时创建，容器关闭时 Close。
func (b *Builder) Build(cfg config.Configuration, reg di.BeanDefinitionRegistry) error {
	for _, section := range b.sections {
		b.clients.AddFromConfiguration(cfg, section, nil)
	}
	return b.clients.Register(reg, func(name string, opts ClientOptions) *di.BeanDefinition {
		return di.DefineFunc(func(logger logging.Logger) (*goredis.Client, error) {
			return newClient(logger, opts)
		},
			di.WithLazyInit(),
			di.WithDestroyMethod("Close"),
			di.WithDescription(fmt.Sprintf("redis client %s (%s)", name, opts.Addr)),
		)
	})
}

func newClient(logger logging.Logger, opts ClientOptions) (*goredis.Client, error) {
	client := goredis.NewClient(opts.ToRedis())
	if opts.PingOnCreate {
		ctx, cancel := context.WithTimeout(context.Background(), opts.DialTimeout.Std())
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis: ping %s failed: %w", opts.Addr, err)
		}
	}
	logger.Info("Redis client created",
		logging.Field{Key: "name", Value: opts.Name},
		logging.Field{Key: "addr", Value: opts.Addr},
		logging.Field{Key: "db", Value: opts.DB})
	return client, nil
}
