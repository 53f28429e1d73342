package aop

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/gocrud/beans/logging"
)

// Proxy 是代理的调用处理器。两种代理策略共享同一个 Proxy 与拦截链：
// 接口策略由绑定的包装类型把方法转发到 Invoke，动态策略直接返回 Proxy 本身。
type Proxy struct {
	advised *AdvisedSupport
	logger  logging.Logger
}

// NewProxy 创建调用处理器。
func NewProxy(advised *AdvisedSupport, logger logging.Logger) (*Proxy, error) {
	if advised == nil || advised.TargetSource == nil {
		return nil, ErrNoTargetSource
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Proxy{advised: advised, logger: logger}, nil
}

// Advised 返回代理配置。
func (p *Proxy) Advised() *AdvisedSupport {
	return p.advised
}

// Invoke 按方法名调用目标方法并经过拦截链。
// 第一个参数为 context.Context 时，它同时被交给目标源用于解析目标。
func (p *Proxy) Invoke(method string, args ...any) ([]any, error) {
	ctx := context.Background()
	if len(args) > 0 {
		if c, ok := args[0].(context.Context); ok && c != nil {
			ctx = c
		}
	}

	ts := p.advised.TargetSource
	target, err := ts.Target(ctx)
	if err != nil {
		return nil, fmt.Errorf("aop: resolve target for %s: %w", method, err)
	}
	if target == nil {
		return nil, fmt.Errorf("aop: target source returned nil for %s", method)
	}
	defer func() {
		if err := ts.Release(target); err != nil {
			p.logger.Warn("Failed to release proxy target",
				logging.Field{Key: "method", Value: method},
				logging.Field{Key: "error", Value: err})
		}
	}()

	m, ok := reflect.TypeOf(target).MethodByName(method)
	if !ok {
		return nil, fmt.Errorf("%w: %T.%s", ErrNoSuchMethod, target, method)
	}
	chain := p.advised.ChainFor(m)
	p.logger.Trace("Invoking advised method",
		logging.Field{Key: "method", Value: method},
		logging.Field{Key: "advices", Value: len(chain)})
	return newMethodInvocation(target, m, args, chain).Proceed()
}

// Call 调用方法并返回第一个结果。
//
// 示例：
//
//	func (g greeterProxy) Greet(name string) (string, error) {
//		return aop.Call[string](g.p, "Greet", name)
//	}
func Call[R any](p *Proxy, method string, args ...any) (R, error) {
	var zero R
	out, err := p.Invoke(method, args...)
	if err != nil || len(out) == 0 || out[0] == nil {
		return zero, err
	}
	r, ok := out[0].(R)
	if !ok {
		return zero, fmt.Errorf("aop: %s returned %T, not %v", method, out[0], reflect.TypeOf((*R)(nil)).Elem())
	}
	return r, nil
}

// MustCall 与 Call 相同，失败时 panic，用于没有 error 返回值的接口方法。
func MustCall[R any](p *Proxy, method string, args ...any) R {
	r, err := Call[R](p, method, args...)
	if err != nil {
		panic(err)
	}
	return r
}

// Bindings 保存接口到包装类型构造函数的映射，构成接口策略的分派表。
type Bindings struct {
	mu    sync.RWMutex
	order []reflect.Type
	wraps map[reflect.Type]func(*Proxy) any
}

func NewBindings() *Bindings {
	return &Bindings{wraps: make(map[reflect.Type]func(*Proxy) any)}
}

// Bind 为接口 T 注册包装类型。T 不是接口时 panic。
func Bind[T any](b *Bindings, wrap func(*Proxy) T) {
	iface := reflect.TypeOf((*T)(nil)).Elem()
	if iface.Kind() != reflect.Interface {
		panic(fmt.Sprintf("aop: Bind[%v]: type parameter must be an interface", iface))
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.wraps[iface]; !ok {
		b.order = append(b.order, iface)
	}
	b.wraps[iface] = func(p *Proxy) any { return wrap(p) }
}

// lookup 返回目标类型实现的第一个已绑定接口。candidates 非空时只在其中查找。
func (b *Bindings) lookup(target reflect.Type, candidates []reflect.Type) (reflect.Type, func(*Proxy) any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(candidates) == 0 {
		candidates = b.order
	}
	for _, iface := range candidates {
		wrap, ok := b.wraps[iface]
		if !ok {
			continue
		}
		if target == nil || target == iface || target.Implements(iface) {
			return iface, wrap, true
		}
	}
	return nil, nil, false
}

// ProxyFactory 根据代理配置选择策略并创建代理。
type ProxyFactory struct {
	Bindings *Bindings
	Logger   logging.Logger
}

func NewProxyFactory(bindings *Bindings, logger logging.Logger) *ProxyFactory {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ProxyFactory{Bindings: bindings, Logger: logger}
}

// GetProxy 创建代理。目标实现了已绑定的接口时返回包装类型，否则返回 *Proxy。
func (f *ProxyFactory) GetProxy(advised *AdvisedSupport) (any, error) {
	p, err := NewProxy(advised, f.Logger)
	if err != nil {
		return nil, err
	}
	if advised.ProxyTargetType || f.Bindings == nil {
		return p, nil
	}
	iface, wrap, ok := f.Bindings.lookup(advised.targetType(), advised.Interfaces)
	if !ok {
		return p, nil
	}
	f.Logger.Debug("Created interface proxy",
		logging.Field{Key: "interface", Value: iface.String()},
		logging.Field{Key: "advisors", Value: len(advised.Advisors())})
	return wrap(p), nil
}
