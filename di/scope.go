package di

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/multierr"
)

// Scope 是对象存储与共享语义的扩展点。
// 当前请求、会话等上下文通过 ctx 传递。
type Scope interface {
	// Get 返回作用域内的对象，不存在时调用 factory 创建并保存。
	Get(ctx context.Context, name string, factory ObjectFactory) (any, error)
	// Remove 从作用域中移除对象并返回它，不存在时返回 nil。
	Remove(ctx context.Context, name string) any
	// RegisterDestructionCallback 注册对象在作用域结束时的销毁回调。
	RegisterDestructionCallback(ctx context.Context, name string, callback func())
	// ConversationID 返回当前会话标识，不支持时返回空字符串。
	ConversationID(ctx context.Context) string
}

// singletonScope 将 singleton 作用域委托给单例注册表。
type singletonScope struct {
	registry *SingletonRegistry
}

func (s *singletonScope) Get(ctx context.Context, name string, factory ObjectFactory) (any, error) {
	return s.registry.GetSingleton(ctx, name, factory)
}

func (s *singletonScope) Remove(_ context.Context, name string) any {
	obj, _ := s.registry.Singleton(context.Background(), name)
	if obj == nil {
		return nil
	}
	if err := s.registry.DestroySingleton(name); err != nil {
		s.registry.logger.Warn(err.Error())
	}
	return obj
}

func (s *singletonScope) RegisterDestructionCallback(_ context.Context, name string, callback func()) {
	s.registry.RegisterDisposableBean(name, DisposableFunc(func() error {
		callback()
		return nil
	}))
}

func (s *singletonScope) ConversationID(context.Context) string {
	return ""
}

// prototypeScope 每次获取都创建新对象，不缓存也不追踪销毁。
type prototypeScope struct{}

func (prototypeScope) Get(ctx context.Context, _ string, factory ObjectFactory) (any, error) {
	return factory(ctx)
}

func (prototypeScope) Remove(context.Context, string) any {
	return nil
}

func (prototypeScope) RegisterDestructionCallback(context.Context, string, func()) {}

func (prototypeScope) ConversationID(context.Context) string {
	return ""
}

// SimpleScope 是基于内存映射的通用作用域，Destroy 时按注册逆序执行销毁回调。
// 请求、会话等外部作用域可以为每个上下文持有一个 SimpleScope。
type SimpleScope struct {
	id        string
	mu        sync.Mutex
	objects   map[string]any
	callbacks map[string]func()
	order     []string
}

// NewSimpleScope 创建作用域，id 作为会话标识。
func NewSimpleScope(id string) *SimpleScope {
	return &SimpleScope{
		id:        id,
		objects:   make(map[string]any),
		callbacks: make(map[string]func()),
	}
}

func (s *SimpleScope) Get(ctx context.Context, name string, factory ObjectFactory) (any, error) {
	s.mu.Lock()
	if obj, ok := s.objects[name]; ok {
		s.mu.Unlock()
		return obj, nil
	}
	s.mu.Unlock()

	// 工厂在锁外执行，以便嵌套获取同一作用域中的其他对象
	obj, err := factory(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.objects[name]; ok {
		return existing, nil
	}
	s.objects[name] = obj
	return obj, nil
}

func (s *SimpleScope) Remove(_ context.Context, name string) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[name]
	if !ok {
		return nil
	}
	delete(s.objects, name)
	delete(s.callbacks, name)
	s.order = slices.DeleteFunc(s.order, func(n string) bool { return n == name })
	return obj
}

func (s *SimpleScope) RegisterDestructionCallback(_ context.Context, name string, callback func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.callbacks[name]; !ok {
		s.order = append(s.order, name)
	}
	s.callbacks[name] = callback
}

func (s *SimpleScope) ConversationID(context.Context) string {
	return s.id
}

// Len 返回作用域中对象的数量。
func (s *SimpleScope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// Destroy 按注册逆序执行销毁回调并清空作用域。回调中的 panic 会被收集为错误。
func (s *SimpleScope) Destroy() error {
	s.mu.Lock()
	order := s.order
	callbacks := s.callbacks
	s.objects = make(map[string]any)
	s.callbacks = make(map[string]func())
	s.order = nil
	s.mu.Unlock()

	var errs error
	for i := len(order) - 1; i >= 0; i-- {
		name := order[i]
		if err := runCallback(callbacks[name]); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("scope %s: bean '%s': %w", s.id, name, err))
		}
	}
	return errs
}

func runCallback(cb func()) (err error) {
	if cb == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	cb()
	return nil
}
