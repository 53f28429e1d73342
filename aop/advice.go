package aop

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrUnknownAdvice 表示拦截链中出现了无法分派的通知类型。
	ErrUnknownAdvice = errors.New("aop: unknown advice kind")
	// ErrNoSuchMethod 表示目标对象上不存在被调用的方法。
	ErrNoSuchMethod = errors.New("aop: no such method")
	// ErrNoTargetSource 表示代理配置缺少目标源。
	ErrNoTargetSource = errors.New("aop: target source must not be nil")
)

// AdviceKind 是通知的类型标签。
type AdviceKind int

const (
	AdviceBefore AdviceKind = iota + 1
	AdviceAfterReturning
)

func (k AdviceKind) String() string {
	switch k {
	case AdviceBefore:
		return "Before"
	case AdviceAfterReturning:
		return "AfterReturning"
	default:
		return fmt.Sprintf("AdviceKind(%d)", int(k))
	}
}

// MethodBeforeAdvice 在目标方法之前执行，返回错误会中止调用。
type MethodBeforeAdvice interface {
	Before(method reflect.Method, args []any, target any) error
}

// AfterReturningAdvice 在目标方法正常返回之后执行，可以观察返回值但不能替换它。
type AfterReturningAdvice interface {
	AfterReturning(results []any, method reflect.Method, args []any, target any) error
}

// BeforeFunc 将函数适配为 MethodBeforeAdvice。
type BeforeFunc func(method reflect.Method, args []any, target any) error

func (f BeforeFunc) Before(method reflect.Method, args []any, target any) error {
	return f(method, args, target)
}

// AfterReturningFunc 将函数适配为 AfterReturningAdvice。
type AfterReturningFunc func(results []any, method reflect.Method, args []any, target any) error

func (f AfterReturningFunc) AfterReturning(results []any, method reflect.Method, args []any, target any) error {
	return f(results, method, args, target)
}

// Advice 是带标签的通知，Kind 决定使用哪一个处理器。
type Advice struct {
	Kind AdviceKind

	before         MethodBeforeAdvice
	afterReturning AfterReturningAdvice
}

// Before 创建前置通知。
func Before(fn BeforeFunc) Advice {
	return Advice{Kind: AdviceBefore, before: fn}
}

// AfterReturning 创建返回后通知。
func AfterReturning(fn AfterReturningFunc) Advice {
	return Advice{Kind: AdviceAfterReturning, afterReturning: fn}
}

// FromBefore 将 MethodBeforeAdvice 实现包装为通知。
func FromBefore(a MethodBeforeAdvice) Advice {
	return Advice{Kind: AdviceBefore, before: a}
}

// FromAfterReturning 将 AfterReturningAdvice 实现包装为通知。
func FromAfterReturning(a AfterReturningAdvice) Advice {
	return Advice{Kind: AdviceAfterReturning, afterReturning: a}
}

func (a Advice) String() string {
	return a.Kind.String()
}
