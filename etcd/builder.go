package etcd

import (
	"fmt"
	"strings"

	"github.com/gocrud/beans/config"
	"github.com/gocrud/beans/core"
	"github.com/gocrud/beans/di"
	"github.com/gocrud/beans/logging"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// Kind 是 etcd 客户端 Bean 名称的前缀
const Kind = "etcd"

// Builder etcd 客户端配置构建器
type Builder struct {
	clients  *core.NamedBuilder[ClientOptions]
	sections []string
}

// NewBuilder 创建构建器
func NewBuilder() *Builder {
	return &Builder{
		clients: core.NewNamedBuilder(Kind, NewDefaultOptions, (*ClientOptions).Validate),
	}
}

// AddClient 添加一个 etcd 客户端配置
func (b *Builder) AddClient(name string, configure func(*ClientOptions)) *Builder {
	b.clients.Add(name, configure)
	return b
}

// FromConfiguration 把配置节下的每个子节作为一个客户端，例如 "etcd:clients"
func (b *Builder) FromConfiguration(section string) *Builder {
	b.sections = append(b.sections, section)
	return b
}

// Build 读取配置节并注册客户端 Bean
func (b *Builder) Build(cfg config.Configuration, reg di.BeanDefinitionRegistry) error {
	for _, section := range b.sections {
		b.clients.AddFromConfiguration(cfg, section, nil)
	}
	return b.clients.Register(reg, func(name string, opts ClientOptions) *di.BeanDefinition {
		return di.DefineFunc(func(logger logging.Logger) (*clientv3.Client, error) {
			return newClient(logger, opts)
		},
			di.WithLazyInit(),
			di.WithDestroyMethod("Close"),
			di.WithDescription(fmt.Sprintf("etcd client %s (%s)", name, strings.Join(opts.Endpoints, ","))),
		)
	})
}

func newClient(logger logging.Logger, opts ClientOptions) (*clientv3.Client, error) {
	client, err := clientv3.New(opts.ToConfig())
	if err != nil {
		return nil, fmt.Errorf("etcd: failed to create client '%s': %w", opts.Name, err)
	}
	logger.Info("Etcd client created",
		logging.Field{Key: "name", Value: opts.Name},
		logging.Field{Key: "endpoints", Value: opts.Endpoints})
	return client, nil
}
