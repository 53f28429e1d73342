package etcd

import (
	"github.com/gocrud/beans/core"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// BuilderOption 用于配置 Etcd Builder
type BuilderOption func(*Builder)

// WithClient 添加 Etcd 客户端配置
func WithClient(name string, opts ...func(*ClientOptions)) BuilderOption {
	return func(b *Builder) {
		b.AddClient(name, func(o *ClientOptions) {
			for _, opt := range opts {
				opt(o)
			}
		})
	}
}

// FromConfiguration 从配置节读取客户端
func FromConfiguration(section string) BuilderOption {
	return func(b *Builder) {
		b.FromConfiguration(section)
	}
}

// New 启用 Etcd 能力，每个客户端注册为名为 "etcd.<name>" 的懒加载单例
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
func Client(ac *core.ApplicationContext, name string) (*clientv3.Client, error) {
	return core.Bean[*clientv3.Client](ac, Kind+"."+name)
}
