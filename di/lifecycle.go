package di

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/gocrud/beans/logging"
)

// BeanState 是单个 Bean 在创建流水线中的阶段。
type BeanState int

const (
	StateRequested BeanState = iota
	StateInstantiated
	StateEarlyExposed
	StatePropertiesPopulated
	StateAwareInjected
	StatePreProcessed
	StateInitialized
	StatePostProcessed
	StateRegistered
	StateDestroyed
)

func (s BeanState) String() string {
	switch s {
	case StateRequested:
		return "Requested"
	case StateInstantiated:
		return "Instantiated"
	case StateEarlyExposed:
		return "EarlyExposed"
	case StatePropertiesPopulated:
		return "PropertiesPopulated"
	case StateAwareInjected:
		return "AwareInjected"
	case StatePreProcessed:
		return "PreProcessed"
	case StateInitialized:
		return "Initialized"
	case StatePostProcessed:
		return "PostProcessed"
	case StateRegistered:
		return "Registered"
	case StateDestroyed:
		return "Destroyed"
	default:
		return "Unknown"
	}
}

func (f *DefaultBeanFactory) trace(name string, state BeanState) {
	f.logger.Trace("Bean lifecycle",
		logging.Field{Key: "bean", Value: name},
		logging.Field{Key: "state", Value: state.String()})
}

// createBean 执行完整的创建流水线：
// 实例化 -> 暴露早期引用 -> 属性填充 -> Aware -> 前置处理 -> 初始化 -> 后置处理 -> 注册销毁。
func (f *DefaultBeanFactory) createBean(ctx context.Context, name string, def *BeanDefinition, args []any) (any, error) {
	f.trace(name, StateRequested)
	if len(args) == 0 {
		args = def.ConstructorArgs
	}

	raw, err := f.resolver.instantiate(ctx, name, def, args)
	if err != nil {
		return nil, err
	}
	f.trace(name, StateInstantiated)

	earlyExposure := def.IsSingleton() && f.registry.IsSingletonCurrentlyInCreation(name)
	if earlyExposure {
		f.registry.AddSingletonFactory(name, func(ctx context.Context) (any, error) {
			return f.earlyBeanReference(ctx, name, raw)
		})
		f.trace(name, StateEarlyExposed)
	}

	if err := f.populate(ctx, name, def, raw); err != nil {
		return nil, err
	}
	f.trace(name, StatePropertiesPopulated)

	exposed, err := f.initializeBean(ctx, name, def, raw)
	if err != nil {
		return nil, err
	}

	if earlyExposure {
		if early := f.registry.EarlySingleton(name); early != nil {
			switch {
			case sameIdentity(exposed, raw):
				exposed = early
			case !sameIdentity(exposed, early):
				return nil, newError(ErrCodeEarlyReferenceMismatch, name,
					"bean has been injected into %v in its raw version as part of a circular reference, "+
						"but has eventually been wrapped", f.registry.DependentBeans(name))
			}
		}
	}

	f.registerDisposableIfNecessary(ctx, name, def, raw)
	f.trace(name, StateRegistered)
	return exposed, nil
}

// earlyBeanReference 让智能后置处理器有机会为早期引用创建代理。
func (f *DefaultBeanFactory) earlyBeanReference(ctx context.Context, name string, raw any) (any, error) {
	exposed := raw
	for _, pp := range f.beanPostProcessors() {
		sp, ok := pp.(SmartInstantiationAwareBeanPostProcessor)
		if !ok {
			continue
		}
		r, err := sp.EarlyBeanReference(ctx, exposed, name)
		if err != nil {
			return nil, wrapError(err, ErrCodePostProcessor, name, "early reference post-processing failed in %T", pp)
		}
		if r != nil {
			exposed = r
		}
	}
	return exposed, nil
}

// populate 按声明顺序应用属性值：解析 -> 类型转换 -> 写入。
func (f *DefaultBeanFactory) populate(ctx context.Context, name string, def *BeanDefinition, bean any) error {
	if len(def.Properties) == 0 {
		return nil
	}
	accessor := def.accessor
	if accessor == nil || accessor.typ != reflect.TypeOf(bean) {
		accessor = f.accessors.accessorFor(reflect.TypeOf(bean))
	}
	target := reflect.ValueOf(bean)
	conv := f.typeConverter()

	for _, pv := range def.Properties {
		setter, ok := accessor.setter(pv.Name)
		if !ok {
			return newError(ErrCodePropertyPopulation, name, "no writable property '%s' on %T", pv.Name, bean)
		}
		value, err := f.resolveValue(ctx, name, pv)
		if err != nil {
			return wrapError(err, ErrCodePropertyPopulation, name, "cannot resolve value of property '%s'", pv.Name)
		}
		converted, err := conv.Convert(value, setter.typ)
		if err != nil {
			return wrapError(err, ErrCodePropertyPopulation, name, "cannot convert value of property '%s'", pv.Name)
		}
		if err := setter.set(target, converted); err != nil {
			return wrapError(err, ErrCodePropertyPopulation, name, "cannot set property '%s'", pv.Name)
		}
	}
	return nil
}

// resolveValue 将属性值解析为实际对象：Bean 引用、内部 Bean、占位符字符串或原值。
func (f *DefaultBeanFactory) resolveValue(ctx context.Context, name string, pv PropertyValue) (any, error) {
	switch v := pv.Value.(type) {
	case BeanReference:
		return f.resolveReference(ctx, name, v)
	case *BeanReference:
		return f.resolveReference(ctx, name, *v)
	case []BeanReference:
		out := make([]any, len(v))
		for i, ref := range v {
			obj, err := f.resolveReference(ctx, name, ref)
			if err != nil {
				return nil, err
			}
			out[i] = obj
		}
		return out, nil
	case *BeanDefinition:
		inner := v.clone()
		if err := inner.resolveType(); err != nil {
			return nil, wrapError(err, ErrCodeInvalidDefinition, name, "invalid inner bean for property '%s'", pv.Name)
		}
		return f.createBean(ctx, fmt.Sprintf("(inner bean)#%s.%s", name, pv.Name), inner, nil)
	case Literal:
		return string(v), nil
	case string:
		f.mu.RLock()
		resolver := f.valueResolver
		f.mu.RUnlock()
		if resolver != nil && strings.Contains(v, "${") {
			return resolver.Resolve(v)
		}
		return v, nil
	default:
		return v, nil
	}
}

func (f *DefaultBeanFactory) resolveReference(ctx context.Context, name string, ref BeanReference) (any, error) {
	obj, err := f.doGetBean(ctx, ref.Name, nil, nil)
	if err != nil {
		return nil, err
	}
	f.registry.RegisterDependentBean(f.canonicalName(ref.Name), name)
	return obj, nil
}

// initializeBean 执行 Aware 回调、前置处理、初始化方法与后置处理，返回最终暴露的对象。
// BeanFactoryAware 收到绑定 ctx 的工厂视图，初始化回调中经由它的获取会重入当前创建。
func (f *DefaultBeanFactory) initializeBean(ctx context.Context, name string, def *BeanDefinition, bean any) (any, error) {
	if a, ok := bean.(BeanNameAware); ok {
		a.SetBeanName(name)
	}
	if a, ok := bean.(BeanFactoryAware); ok {
		a.SetBeanFactory(f.BindContext(ctx))
	}
	f.trace(name, StateAwareInjected)

	processors := f.beanPostProcessors()
	wrapped := bean
	for _, pp := range processors {
		r, err := pp.PostProcessBeforeInitialization(ctx, wrapped, name)
		if err != nil {
			return nil, wrapError(err, ErrCodePostProcessor, name, "post-processing before initialization failed in %T", pp)
		}
		if r != nil {
			wrapped = r
		}
	}
	f.trace(name, StatePreProcessed)

	if err := f.invokeInitMethods(name, def, wrapped); err != nil {
		return nil, err
	}
	f.trace(name, StateInitialized)

	for _, pp := range processors {
		r, err := pp.PostProcessAfterInitialization(ctx, wrapped, name)
		if err != nil {
			return nil, wrapError(err, ErrCodePostProcessor, name, "post-processing after initialization failed in %T", pp)
		}
		if r != nil {
			wrapped = r
		}
	}
	f.trace(name, StatePostProcessed)
	return wrapped, nil
}

// invokeInitMethods 先调用 AfterPropertiesSet，再调用自定义初始化方法。
// 自定义方法名为 AfterPropertiesSet 且 Bean 已实现 InitializingBean 时不会重复调用。
func (f *DefaultBeanFactory) invokeInitMethods(name string, def *BeanDefinition, bean any) error {
	ib, isInitializing := bean.(InitializingBean)
	if isInitializing {
		if err := callSafely("AfterPropertiesSet", ib.AfterPropertiesSet); err != nil {
			return wrapError(err, ErrCodeInitMethod, name, "AfterPropertiesSet failed")
		}
	}
	m := def.InitMethodName
	if m == "" || (isInitializing && m == "AfterPropertiesSet") {
		return nil
	}
	if err := invokeLifecycleMethod(bean, m); err != nil {
		return wrapError(err, ErrCodeInitMethod, name, "init method '%s' failed", m)
	}
	return nil
}

// registerDisposableIfNecessary 为需要销毁的 Bean 注册回调。原型不追踪销毁。
func (f *DefaultBeanFactory) registerDisposableIfNecessary(ctx context.Context, name string, def *BeanDefinition, bean any) {
	if def.IsPrototype() {
		return
	}
	adapter := newDisposableBeanAdapter(name, bean, def)
	if adapter == nil {
		return
	}
	if def.IsSingleton() {
		f.registry.RegisterDisposableBean(name, adapter)
		return
	}
	scope, ok := f.RegisteredScope(def.Scope)
	if !ok {
		return
	}
	scope.RegisterDestructionCallback(ctx, name, func() {
		if err := adapter.Destroy(); err != nil {
			f.logger.Error("Destroy method on scoped bean failed",
				logging.Field{Key: "bean", Value: name},
				logging.Field{Key: "scope", Value: def.Scope},
				logging.Field{Key: "error", Value: err.Error()})
			return
		}
		f.trace(name, StateDestroyed)
	})
}
