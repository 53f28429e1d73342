package di

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
)

// BeanNameAware 在属性填充后接收自己的 Bean 名称。
type BeanNameAware interface {
	SetBeanName(name string)
}

// BeanFactoryAware 在属性填充后接收所属的 Bean 工厂。收到的是绑定本次创建 ctx 的视图，
// 可用 Unwrap 取得 DefaultBeanFactory。
type BeanFactoryAware interface {
	SetBeanFactory(factory BeanFactory)
}

// InitializingBean 在全部属性设置完成后执行初始化。
type InitializingBean interface {
	AfterPropertiesSet() error
}

// DisposableBean 在容器关闭或作用域结束时释放资源。
type DisposableBean interface {
	Destroy() error
}

// BeanPostProcessor 在初始化前后观察或替换 Bean。
// 返回 nil 表示保留上一步的对象。ctx 是当前创建的 ctx，钩子中的获取需通过
// GetBeanWithContext 传递它。
type BeanPostProcessor interface {
	PostProcessBeforeInitialization(ctx context.Context, bean any, name string) (any, error)
	PostProcessAfterInitialization(ctx context.Context, bean any, name string) (any, error)
}

// SmartInstantiationAwareBeanPostProcessor 可以为正在创建的单例提供早期引用，
// 用于在循环依赖中提前暴露代理。
type SmartInstantiationAwareBeanPostProcessor interface {
	BeanPostProcessor
	EarlyBeanReference(ctx context.Context, bean any, name string) (any, error)
}

// BeanFactoryPostProcessor 在任何 Bean 实例化之前修改 Bean 定义。
type BeanFactoryPostProcessor interface {
	PostProcessBeanFactory(factory *DefaultBeanFactory) error
}

// PostProcessorFuncs 将函数适配为 BeanPostProcessor，未设置的阶段原样返回。
type PostProcessorFuncs struct {
	Before func(ctx context.Context, bean any, name string) (any, error)
	After  func(ctx context.Context, bean any, name string) (any, error)
}

func (p PostProcessorFuncs) PostProcessBeforeInitialization(ctx context.Context, bean any, name string) (any, error) {
	if p.Before == nil {
		return bean, nil
	}
	return p.Before(ctx, bean, name)
}

func (p PostProcessorFuncs) PostProcessAfterInitialization(ctx context.Context, bean any, name string) (any, error) {
	if p.After == nil {
		return bean, nil
	}
	return p.After(ctx, bean, name)
}

// disposableBeanAdapter 组合 DisposableBean 与自定义销毁方法。
type disposableBeanAdapter struct {
	name          string
	bean          any
	disposable    DisposableBean
	destroyMethod string
}

// newDisposableBeanAdapter 在 Bean 需要销毁时返回适配器，否则返回 nil。
// 自定义方法名为 Destroy 且 Bean 已实现 DisposableBean 时不会重复调用。
func newDisposableBeanAdapter(name string, bean any, def *BeanDefinition) *disposableBeanAdapter {
	a := &disposableBeanAdapter{name: name, bean: bean, destroyMethod: def.DestroyMethodName}
	if d, ok := bean.(DisposableBean); ok {
		a.disposable = d
		if a.destroyMethod == "Destroy" {
			a.destroyMethod = ""
		}
	}
	if a.disposable == nil && a.destroyMethod == "" {
		return nil
	}
	return a
}

func (a *disposableBeanAdapter) Destroy() error {
	var errs error
	if a.disposable != nil {
		errs = multierr.Append(errs, callSafely("Destroy", a.disposable.Destroy))
	}
	if a.destroyMethod != "" {
		errs = multierr.Append(errs, invokeLifecycleMethod(a.bean, a.destroyMethod))
	}
	return errs
}

// callSafely 调用 fn 并将 panic 转为错误。
func callSafely(what string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", what, r)
		}
	}()
	return fn()
}
