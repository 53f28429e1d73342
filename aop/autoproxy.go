package aop

import (
	"context"
	"reflect"
	"slices"
	"sync"

	"github.com/gocrud/beans/di"
	"github.com/gocrud/beans/logging"
)

var advisorType = reflect.TypeOf((*Advisor)(nil))

// AutoProxyOption 配置 AutoProxyCreator。
type AutoProxyOption func(*AutoProxyCreator)

// WithAdvisors 添加固定的 Advisor。
func WithAdvisors(advisors ...*Advisor) AutoProxyOption {
	return func(c *AutoProxyCreator) {
		c.advisors = append(c.advisors, advisors...)
	}
}

// WithBindings 设置接口策略使用的绑定表。
func WithBindings(b *Bindings) AutoProxyOption {
	return func(c *AutoProxyCreator) {
		c.proxies.Bindings = b
	}
}

// WithProxyTargetType 强制所有代理使用动态策略。
func WithProxyTargetType() AutoProxyOption {
	return func(c *AutoProxyCreator) {
		c.proxyTargetType = true
	}
}

func WithLogger(logger logging.Logger) AutoProxyOption {
	return func(c *AutoProxyCreator) {
		if logger != nil {
			c.logger = logger
			c.proxies.Logger = logger
		}
	}
}

// AutoProxyCreator 为被任一 Advisor 匹配的 Bean 自动创建代理。
//
// 它既在 EarlyBeanReference 中为循环依赖提前创建代理，也在初始化后创建代理；
// 已经提前代理的 Bean 在初始化后原样返回，由工厂换入早期代理。
// 除了固定的 Advisor，还会使用工厂中类型为 *Advisor 的 Bean。
type AutoProxyCreator struct {
	proxies         *ProxyFactory
	advisors        []*Advisor
	proxyTargetType bool
	logger          logging.Logger

	mu          sync.Mutex
	beanFactory *di.DefaultBeanFactory
	loaded      []*Advisor
	earlyRefs   map[string]any
}

// NewAutoProxyCreator 创建自动代理后置处理器。
func NewAutoProxyCreator(opts ...AutoProxyOption) *AutoProxyCreator {
	c := &AutoProxyCreator{
		proxies:   NewProxyFactory(nil, nil),
		logger:    logging.NewNop(),
		earlyRefs: make(map[string]any),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetBeanFactory 用于发现 Advisor Bean。
func (c *AutoProxyCreator) SetBeanFactory(factory di.BeanFactory) {
	if df, ok := di.Unwrap(factory); ok {
		c.mu.Lock()
		c.beanFactory = df
		c.mu.Unlock()
	}
}

// LoadAdvisors 实例化工厂中全部 Advisor Bean。应在创建普通单例之前调用，
// 否则尚未创建的 Advisor 只能在其单例完成后才会生效。
func (c *AutoProxyCreator) LoadAdvisors(ctx context.Context) error {
	c.mu.Lock()
	df := c.beanFactory
	c.mu.Unlock()
	if df == nil {
		return nil
	}
	for _, name := range df.BeanNamesForType(advisorType) {
		obj, err := df.GetBeanWithContext(ctx, name)
		if err != nil {
			return err
		}
		advisor := obj.(*Advisor)
		c.mu.Lock()
		if !slices.Contains(c.loaded, advisor) {
			c.loaded = append(c.loaded, advisor)
		}
		c.mu.Unlock()
	}
	return nil
}

// candidateAdvisors 合并固定、已加载以及已完成创建的 Advisor Bean，按 Order 稳定排序。
// 正在创建中的 Advisor Bean 会被跳过，读取它们需要持有创建锁。
func (c *AutoProxyCreator) candidateAdvisors() []*Advisor {
	c.mu.Lock()
	out := slices.Clone(c.advisors)
	for _, a := range c.loaded {
		if !slices.Contains(out, a) {
			out = append(out, a)
		}
	}
	df := c.beanFactory
	c.mu.Unlock()

	if df != nil {
		registry := df.Registry()
		for _, name := range df.BeanNamesForType(advisorType) {
			if !registry.ContainsSingleton(name) {
				continue
			}
			obj, _ := registry.Singleton(context.Background(), name)
			if a, ok := obj.(*Advisor); ok && !slices.Contains(out, a) {
				out = append(out, a)
			}
		}
	}
	slices.SortStableFunc(out, func(a, b *Advisor) int { return a.Order - b.Order })
	return out
}

func (c *AutoProxyCreator) PostProcessBeforeInitialization(_ context.Context, bean any, _ string) (any, error) {
	return bean, nil
}

func (c *AutoProxyCreator) EarlyBeanReference(_ context.Context, bean any, name string) (any, error) {
	c.mu.Lock()
	c.earlyRefs[name] = bean
	c.mu.Unlock()
	return c.wrapIfNecessary(bean, name)
}

func (c *AutoProxyCreator) PostProcessAfterInitialization(_ context.Context, bean any, name string) (any, error) {
	c.mu.Lock()
	raw, early := c.earlyRefs[name]
	delete(c.earlyRefs, name)
	c.mu.Unlock()
	if early && samePointer(raw, bean) {
		return bean, nil
	}
	return c.wrapIfNecessary(bean, name)
}

func (c *AutoProxyCreator) wrapIfNecessary(bean any, name string) (any, error) {
	if c.isInfrastructure(bean, name) {
		return bean, nil
	}
	t := reflect.TypeOf(bean)
	var eligible []*Advisor
	for _, a := range c.candidateAdvisors() {
		if a.matchesAny(t) {
			eligible = append(eligible, a)
		}
	}
	if len(eligible) == 0 {
		return bean, nil
	}

	advised := NewAdvisedSupport(NewSingletonTargetSource(bean), eligible...)
	advised.ProxyTargetType = c.proxyTargetType
	proxy, err := c.proxies.GetProxy(advised)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("Created auto proxy",
		logging.Field{Key: "bean", Value: name},
		logging.Field{Key: "type", Value: t.String()},
		logging.Field{Key: "advisors", Value: len(eligible)})
	return proxy, nil
}

func (c *AutoProxyCreator) isInfrastructure(bean any, name string) bool {
	switch bean.(type) {
	case *Advisor, *Proxy, *AutoProxyCreator, di.BeanPostProcessor:
		return true
	}
	c.mu.Lock()
	df := c.beanFactory
	c.mu.Unlock()
	// 作用域代理本身不再增强，增强作用于其目标 Bean
	return df != nil && df.ContainsBeanDefinition(ScopedTargetName(name))
}

func samePointer(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	switch va.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	}
	if va.Type().Comparable() {
		return a == b
	}
	return false
}

var (
	_ di.SmartInstantiationAwareBeanPostProcessor = (*AutoProxyCreator)(nil)
	_ di.BeanFactoryAware                         = (*AutoProxyCreator)(nil)
)
