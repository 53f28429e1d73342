package di

import (
	"context"
	"reflect"
)

// boundFactory 是绑定到某次创建 ctx 的工厂视图，交给 BeanFactoryAware 的 Bean 以及
// BeanFactory 类型的构造参数。创建锁仍由该 ctx 持有时，经由视图的获取会重入当前创建；
// 创建结束后令牌失效，视图按普通调用方获取。
type boundFactory struct {
	*DefaultBeanFactory
	ctx context.Context
}

// BindContext 返回使用 ctx 执行无 ctx 获取方法的工厂视图。
func (f *DefaultBeanFactory) BindContext(ctx context.Context) ListableBeanFactory {
	if ctx == nil {
		return f
	}
	return &boundFactory{DefaultBeanFactory: f, ctx: ctx}
}

// Unwrap 返回 factory 背后的 DefaultBeanFactory。
func Unwrap(factory BeanFactory) (*DefaultBeanFactory, bool) {
	switch v := factory.(type) {
	case *DefaultBeanFactory:
		return v, true
	case *boundFactory:
		return v.DefaultBeanFactory, true
	}
	return nil, false
}

func (b *boundFactory) lookupContext() context.Context {
	if b.registry.carriesCreationToken(b.ctx) && !b.registry.ownsCreationLock(b.ctx) {
		return context.Background()
	}
	return b.ctx
}

func (b *boundFactory) GetBean(name string) (any, error) {
	return b.doGetBean(b.lookupContext(), name, nil, nil)
}

func (b *boundFactory) GetBeanOfType(name string, requiredType reflect.Type) (any, error) {
	return b.doGetBean(b.lookupContext(), name, requiredType, nil)
}

func (b *boundFactory) GetBeanWithArgs(name string, args ...any) (any, error) {
	return b.doGetBean(b.lookupContext(), name, nil, args)
}

func (b *boundFactory) GetBeanByType(requiredType reflect.Type) (any, error) {
	return b.GetBeanByTypeWithContext(b.lookupContext(), requiredType)
}

func (b *boundFactory) BeansOfType(t reflect.Type) (map[string]any, error) {
	return b.BeansOfTypeWithContext(b.lookupContext(), t)
}
