package aop

import (
	"fmt"
	"reflect"

	"github.com/gocrud/beans/di"
)

const scopedTargetPrefix = "scopedTarget."

// ScopedTargetName 返回作用域代理背后目标 Bean 的名称。
func ScopedTargetName(name string) string {
	return scopedTargetPrefix + name
}

// ScopedProxy 把作用域 Bean name 替换为单例代理：
// 原定义改名为 scopedTarget.<name>，代理在每次调用时按 ctx 从作用域中解析目标。
// 这样单例可以注入短生命周期的 Bean。iface 非空时代理使用该接口的绑定。
func ScopedProxy(factory *di.DefaultBeanFactory, name string, proxies *ProxyFactory, iface reflect.Type) error {
	def, err := factory.BeanDefinition(name)
	if err != nil {
		return fmt.Errorf("aop: scoped proxy %q: %w", name, err)
	}
	if def.IsSingleton() {
		return fmt.Errorf("aop: scoped proxy %q: bean is a singleton", name)
	}
	if proxies == nil {
		proxies = NewProxyFactory(nil, nil)
	}

	targetName := ScopedTargetName(name)
	def.Primary = false
	if err := factory.RemoveBeanDefinition(name); err != nil {
		return fmt.Errorf("aop: scoped proxy %q: %w", name, err)
	}
	if err := factory.RegisterBeanDefinition(targetName, def); err != nil {
		return fmt.Errorf("aop: scoped proxy %q: %w", name, err)
	}

	advised := NewAdvisedSupport(NewScopedTargetSource(factory, targetName, def.Type))
	if iface != nil {
		advised.Interfaces = []reflect.Type{iface}
	}
	proxy, err := proxies.GetProxy(advised)
	if err != nil {
		return err
	}

	// 按类型注入时代理优先于其目标
	return factory.RegisterBeanDefinition(name, di.NewBeanDefinition(reflect.TypeOf(proxy),
		di.WithInstance(proxy),
		di.WithPrimary(),
		di.WithDescription("scoped proxy for "+targetName)))
}
