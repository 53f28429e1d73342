package aop

import (
	"reflect"
	"slices"
	"sync"
)

// AdvisedSupport 保存代理配置：目标源、代理接口与有序的 Advisor。
// 每个方法的拦截链在首次调用时计算并缓存，修改 Advisor 会清空缓存。
type AdvisedSupport struct {
	TargetSource TargetSource
	// Interfaces 限定接口策略可以使用的接口，为空时使用全部已绑定接口。
	Interfaces []reflect.Type
	// ProxyTargetType 强制使用动态策略。
	ProxyTargetType bool

	mu       sync.RWMutex
	advisors []*Advisor
	chains   map[string][]Advice
}

// NewAdvisedSupport 创建代理配置。
func NewAdvisedSupport(ts TargetSource, advisors ...*Advisor) *AdvisedSupport {
	return &AdvisedSupport{
		TargetSource: ts,
		advisors:     slices.Clone(advisors),
		chains:       make(map[string][]Advice),
	}
}

// AddAdvisor 追加 Advisor。
func (a *AdvisedSupport) AddAdvisor(advisors ...*Advisor) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.advisors = append(a.advisors, advisors...)
	clear(a.chains)
}

// Advisors 返回 Advisor 的副本。
func (a *AdvisedSupport) Advisors() []*Advisor {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.advisors)
}

func (a *AdvisedSupport) targetType() reflect.Type {
	if a.TargetSource == nil {
		return nil
	}
	return a.TargetSource.TargetType()
}

// ChainFor 返回作用于 method 的通知链。
func (a *AdvisedSupport) ChainFor(method reflect.Method) []Advice {
	a.mu.RLock()
	chain, ok := a.chains[method.Name]
	a.mu.RUnlock()
	if ok {
		return chain
	}

	t := a.targetType()
	if t == nil && method.Type != nil && method.Type.NumIn() > 0 {
		t = method.Type.In(0)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if chain, ok := a.chains[method.Name]; ok {
		return chain
	}
	chain = make([]Advice, 0, len(a.advisors))
	for _, advisor := range a.advisors {
		if t == nil || advisor.matches(method, t) {
			chain = append(chain, advisor.Advice)
		}
	}
	if a.chains == nil {
		a.chains = make(map[string][]Advice)
	}
	a.chains[method.Name] = chain
	return chain
}
