package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
)

// ApplicationEvent 是所有应用事件的基础接口
type ApplicationEvent interface {
	Source() any
	Timestamp() time.Time
}

// BaseEvent 提供 ApplicationEvent 的公共字段，自定义事件可以嵌入它
type BaseEvent struct {
	source    any
	timestamp time.Time
}

// NewBaseEvent 以当前时间创建事件
func NewBaseEvent(source any) BaseEvent {
	return BaseEvent{source: source, timestamp: time.Now()}
}

func (e BaseEvent) Source() any          { return e.source }
func (e BaseEvent) Timestamp() time.Time { return e.timestamp }

// ContextRefreshedEvent 在全部单例创建完成后发布
type ContextRefreshedEvent struct {
	BaseEvent
	Context *ApplicationContext
}

// ContextClosedEvent 在上下文开始关闭时发布，此时 Bean 仍然可用
type ContextClosedEvent struct {
	BaseEvent
	Context *ApplicationContext
}

// ApplicationListener 接收应用事件
type ApplicationListener interface {
	OnApplicationEvent(ctx context.Context, event ApplicationEvent) error
}

// SmartApplicationListener 可以声明自己关心的事件
type SmartApplicationListener interface {
	ApplicationListener
	SupportsEvent(event ApplicationEvent) bool
}

// EventPublisher 发布应用事件，可以按类型注入到 Bean 中
type EventPublisher interface {
	Publish(ctx context.Context, event ApplicationEvent) error
}

// typedListener 只接收类型为 E 的事件
type typedListener[E ApplicationEvent] struct {
	fn func(ctx context.Context, event E) error
}

// Listen 创建只处理事件类型 E 的监听器
//
// 示例：
//
//	core.WithListener(core.Listen(func(ctx context.Context, e core.ContextRefreshedEvent) error {
//		return nil
//	}))
func Listen[E ApplicationEvent](fn func(ctx context.Context, event E) error) SmartApplicationListener {
	return &typedListener[E]{fn: fn}
}

func (l *typedListener[E]) SupportsEvent(event ApplicationEvent) bool {
	_, ok := event.(E)
	return ok
}

func (l *typedListener[E]) OnApplicationEvent(ctx context.Context, event ApplicationEvent) error {
	e, ok := event.(E)
	if !ok {
		return nil
	}
	return l.fn(ctx, e)
}

// EventMulticaster 按注册顺序同步分发事件
type EventMulticaster struct {
	mu        sync.RWMutex
	listeners []ApplicationListener
}

func NewEventMulticaster() *EventMulticaster {
	return &EventMulticaster{}
}

// AddListener 添加监听器
func (m *EventMulticaster) AddListener(l ApplicationListener) {
	if l == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// Listeners 返回支持该事件的监听器
func (m *EventMulticaster) Listeners(event ApplicationEvent) []ApplicationListener {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ApplicationListener, 0, len(m.listeners))
	for _, l := range m.listeners {
		if smart, ok := l.(SmartApplicationListener); ok && !smart.SupportsEvent(event) {
			continue
		}
		out = append(out, l)
	}
	return out
}

// Multicast 将事件交给每个支持它的监听器。单个监听器失败或 panic 不会阻止其余监听器。
func (m *EventMulticaster) Multicast(ctx context.Context, event ApplicationEvent) error {
	var errs error
	for _, l := range m.Listeners(event) {
		errs = multierr.Append(errs, invokeListener(ctx, l, event))
	}
	return errs
}

func invokeListener(ctx context.Context, l ApplicationListener, event ApplicationEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("core: listener %T panicked on %T: %v", l, event, r)
		}
	}()
	if err := l.OnApplicationEvent(ctx, event); err != nil {
		return fmt.Errorf("core: listener %T failed on %T: %w", l, event, err)
	}
	return nil
}
