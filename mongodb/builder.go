package mongodb

import (
	"github.com/gocrud/beans/config"
	"github.com/gocrud/beans/core"
	"github.com/gocrud/beans/di"
	"github.com/gocrud/beans/logging"
)

// Kind 是 MongoDB 客户端 Bean 名称的前缀
const Kind = "mongodb"

// Builder MongoDB 客户端配置构建器
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

// Add 添加客户端配置
func (b *Builder) Add(name, uri string, configure func(*ClientOptions)) *Builder {
	b.clients.Add(name, func(o *ClientOptions) {
		o.URI = uri
		if configure != nil {
			configure(o)
		}
	})
	return b
}

// FromConfiguration 把配置节下的每个子节作为一个客户端，例如 "mongodb:clients"
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
		return di.DefineFunc(func(logger logging.Logger) (*Client, error) {
			return NewClient(logger, opts)
		},
			di.WithLazyInit(),
			di.WithDescription("mongodb client "+name),
		)
	})
}
