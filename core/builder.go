package core

import (
	"fmt"
	"slices"

	"github.com/gocrud/beans/config"
	"github.com/gocrud/beans/di"
	"go.uber.org/multierr"
)

// DefaultClientName 是按类型注入时使用的客户端名称
const DefaultClientName = "default"

// NamedBuilder 收集按名称区分的客户端配置，是各集成模块 Builder 的公共部分。
// 配置错误被累积，直到 Err 或 Register 时一并返回。
type NamedBuilder[O any] struct {
	kind       string
	newDefault func(name string) *O
	validate   func(*O) error

	names   []string
	configs map[string]*O
	errs    error
}

// NewNamedBuilder 创建构建器。kind 用作 Bean 名称前缀，例如 "redis"。
func NewNamedBuilder[O any](kind string, newDefault func(name string) *O, validate func(*O) error) *NamedBuilder[O] {
	return &NamedBuilder[O]{
		kind:       kind,
		newDefault: newDefault,
		validate:   validate,
		configs:    make(map[string]*O),
	}
}

// Add 以默认值为基础应用 configure 并校验，名称重复或校验失败时记录错误
func (b *NamedBuilder[O]) Add(name string, configure func(*O)) {
	if _, exists := b.configs[name]; exists {
		b.errs = multierr.Append(b.errs, fmt.Errorf("%s client '%s' already configured", b.kind, name))
		return
	}
	opts := b.newDefault(name)
	if configure != nil {
		configure(opts)
	}
	if b.validate != nil {
		if err := b.validate(opts); err != nil {
			b.errs = multierr.Append(b.errs, fmt.Errorf("invalid %s configuration for '%s': %w", b.kind, name, err))
			return
		}
	}
	b.names = append(b.names, name)
	b.configs[name] = opts
}

// AddFromConfiguration 将配置节下的每个子节作为一个客户端，
// 例如 "redis:clients" 下的 default 与 cache。子节先绑定到默认值之上，再应用 configure。
func (b *NamedBuilder[O]) AddFromConfiguration(cfg config.Configuration, section string, configure func(*O)) {
	sub, ok := cfg.Lookup(section)
	if !ok {
		b.errs = multierr.Append(b.errs, fmt.Errorf("%s configuration section '%s' not found", b.kind, section))
		return
	}
	clients, ok := sub.(map[string]any)
	if !ok {
		b.errs = multierr.Append(b.errs, fmt.Errorf("%s configuration section '%s' is not a map", b.kind, section))
		return
	}
	names := make([]string, 0, len(clients))
	for name := range clients {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		var bindErr error
		b.Add(name, func(o *O) {
			bindErr = cfg.Bind(section+":"+name, o)
			if configure != nil {
				configure(o)
			}
		})
		if bindErr != nil {
			b.errs = multierr.Append(b.errs, fmt.Errorf("%s client '%s': %w", b.kind, name, bindErr))
		}
	}
}

// Err 返回累积的配置错误
func (b *NamedBuilder[O]) Err() error {
	return b.errs
}

// Len 返回已配置的客户端数量
func (b *NamedBuilder[O]) Len() int {
	return len(b.names)
}

// Each 按添加顺序遍历配置
func (b *NamedBuilder[O]) Each(fn func(name string, opts *O)) {
	for _, name := range b.names {
		fn(name, b.configs[name])
	}
}

// BeanName 返回客户端的 Bean 名称，形如 "redis.default"
func (b *NamedBuilder[O]) BeanName(name string) string {
	return b.kind + "." + name
}

// Register 为每个客户端注册一个 Bean 定义，名为 default 的客户端标记为 Primary。
// 只有一个客户端时它同样是 Primary。
func (b *NamedBuilder[O]) Register(reg di.BeanDefinitionRegistry, define func(name string, opts O) *di.BeanDefinition) error {
	if b.errs != nil {
		return fmt.Errorf("%s configuration errors: %w", b.kind, b.errs)
	}
	for _, name := range b.names {
		def := define(name, *b.configs[name])
		if name == DefaultClientName || len(b.names) == 1 {
			def.Primary = true
		}
		if err := reg.RegisterBeanDefinition(b.BeanName(name), def); err != nil {
			return err
		}
	}
	return nil
}
