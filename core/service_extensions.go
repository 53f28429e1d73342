package core

import (
	"fmt"
	"sync"

	"github.com/gocrud/beans/config"
	"github.com/gocrud/beans/di"
)

// Singleton 将实现 impl 注册为单例，并校验它可以赋值给 T。
// impl 可以是实例，也可以是构造函数；Bean 名称按实现类型生成。
//
// 示例:
//
//	core.Singleton[IService](NewServiceImpl)
func Singleton[T any](impl any, opts ...di.Option) Option {
	return register[T](impl, append([]di.Option{di.WithSingleton()}, opts...))
}

// Prototype 将实现 impl 注册为原型，每次获取都创建新实例
//
// 示例:
//
//	core.Prototype[IWorker](NewWorker)
func Prototype[T any](impl any, opts ...di.Option) Option {
	return register[T](impl, append([]di.Option{di.WithPrototype()}, opts...))
}

// Scoped 将实现 impl 注册到自定义作用域，例如 web 模块的 "request"
//
// 示例:
//
//	core.Scoped[ICart]("session", NewCart)
func Scoped[T any](scope string, impl any, opts ...di.Option) Option {
	return register[T](impl, append([]di.Option{di.WithScope(scope)}, opts...))
}

func register[T any](impl any, opts []di.Option) Option {
	return func(ac *ApplicationContext) error {
		name, err := di.RegisterAuto(ac.Factory, "", impl, opts...)
		if err != nil {
			return err
		}
		typ, err := ac.Factory.Type(name)
		if err != nil {
			return err
		}
		if want := di.TypeOf[T](); !typ.AssignableTo(want) {
			_ = ac.Factory.RemoveBeanDefinition(name)
			return fmt.Errorf("core: %v registered as '%s' is not assignable to %v", typ, name, want)
		}
		return nil
	}
}

// WithOptions 将配置节绑定为 T，并注册 config.Option[T] 与 config.OptionMonitor[T] 两个单例。
// 前者在创建时固定，后者在配置重新加载后自动更新。
//
// 示例:
//
//	core.WithOptions[ServerOptions]("server")
func WithOptions[T any](section string) Option {
	return func(ac *ApplicationContext) error {
		var (
			once  sync.Once
			cache *config.OptionsCache[T]
		)
		// 两个 Bean 共用同一个缓存，在第一次创建时绑定
		cacheFor := func() *config.OptionsCache[T] {
			once.Do(func() { cache = config.NewOptionsCache[T](ac.Configuration(), section) })
			return cache
		}
		suffix := fmt.Sprintf("%s#%v", section, di.TypeOf[T]())

		if err := ac.Factory.RegisterBeanDefinition("options."+suffix, di.DefineFunc(
			func() (config.Option[T], error) {
				c := cacheFor()
				return config.NewOption(c.Get()), c.Err()
			},
			di.WithDescription("options bound from section "+section),
		)); err != nil {
			return err
		}
		return ac.Factory.RegisterBeanDefinition("optionMonitor."+suffix, di.DefineFunc(
			func() config.OptionMonitor[T] { return config.NewOptionMonitor(cacheFor()) },
			di.WithDescription("options monitor bound from section "+section),
		))
	}
}
