package aop

import (
	"context"
	"fmt"
	"reflect"

	"github.com/gocrud/beans/di"
)

// TargetSource 在每次调用时提供被代理的目标对象。
type TargetSource interface {
	// TargetType 返回目标的类型，用于切点匹配与代理策略选择。
	TargetType() reflect.Type
	// IsStatic 报告每次调用是否返回同一个目标。
	IsStatic() bool
	Target(ctx context.Context) (any, error)
	// Release 在调用结束后归还目标。
	Release(target any) error
}

// SingletonTargetSource 始终返回同一个目标。
type SingletonTargetSource struct {
	target any
}

func NewSingletonTargetSource(target any) *SingletonTargetSource {
	return &SingletonTargetSource{target: target}
}

func (s *SingletonTargetSource) TargetType() reflect.Type {
	return reflect.TypeOf(s.target)
}

func (s *SingletonTargetSource) IsStatic() bool { return true }

func (s *SingletonTargetSource) Target(context.Context) (any, error) {
	if s.target == nil {
		return nil, fmt.Errorf("aop: singleton target is nil")
	}
	return s.target, nil
}

func (s *SingletonTargetSource) Release(any) error { return nil }

// PrototypeTargetSource 每次调用从工厂获取新的原型实例，调用后销毁它。
type PrototypeTargetSource struct {
	factory di.BeanFactory
	name    string
	typ     reflect.Type
}

// NewPrototypeTargetSource 创建原型目标源，name 必须是原型 Bean。
func NewPrototypeTargetSource(factory di.BeanFactory, name string) (*PrototypeTargetSource, error) {
	proto, err := factory.IsPrototype(name)
	if err != nil {
		return nil, fmt.Errorf("aop: prototype target %q: %w", name, err)
	}
	if !proto {
		return nil, fmt.Errorf("aop: target bean %q must be a prototype", name)
	}
	typ, err := factory.Type(name)
	if err != nil {
		return nil, fmt.Errorf("aop: prototype target %q: %w", name, err)
	}
	return &PrototypeTargetSource{factory: factory, name: name, typ: typ}, nil
}

func (s *PrototypeTargetSource) TargetType() reflect.Type { return s.typ }

func (s *PrototypeTargetSource) IsStatic() bool { return false }

func (s *PrototypeTargetSource) Target(ctx context.Context) (any, error) {
	return s.factory.GetBeanWithContext(ctx, s.name)
}

func (s *PrototypeTargetSource) Release(target any) error {
	if d, ok := target.(di.DisposableBean); ok {
		return d.Destroy()
	}
	return nil
}

// ScopedTargetSource 每次调用按 ctx 从目标 Bean 的作用域中解析目标。
type ScopedTargetSource struct {
	factory di.BeanFactory
	name    string
	typ     reflect.Type
}

func NewScopedTargetSource(factory di.BeanFactory, name string, typ reflect.Type) *ScopedTargetSource {
	return &ScopedTargetSource{factory: factory, name: name, typ: typ}
}

func (s *ScopedTargetSource) TargetType() reflect.Type { return s.typ }

func (s *ScopedTargetSource) IsStatic() bool { return false }

// TargetName 返回实际目标 Bean 的名称。
func (s *ScopedTargetSource) TargetName() string { return s.name }

func (s *ScopedTargetSource) Target(ctx context.Context) (any, error) {
	return s.factory.GetBeanWithContext(ctx, s.name)
}

func (s *ScopedTargetSource) Release(any) error { return nil }
