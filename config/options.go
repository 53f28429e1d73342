package config

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Option 在应用生命周期内不变的配置值。
type Option[T any] interface {
	Value() T
}

// OptionMonitor 总是返回最新的配置值，配置重新加载后自动更新。
type OptionMonitor[T any] interface {
	Value() T
	// OnChange 注册变更回调，回调收到新值
	OnChange(fn func(T))
}

// reloadNotifier 由支持重新加载的配置实现
type reloadNotifier interface {
	OnReload(fn func())
}

// OptionsCache 将配置节绑定为 T 并在配置重新加载后刷新。
type OptionsCache[T any] struct {
	config  Configuration
	section string

	mu        sync.RWMutex
	current   T
	lastErr   error
	listeners []func(T)
}

// NewOptionsCache 创建配置缓存，配置节不存在时使用零值。
func NewOptionsCache[T any](config Configuration, section string) *OptionsCache[T] {
	cache := &OptionsCache[T]{config: config, section: section}
	_ = cache.reload()
	if rn, ok := config.(reloadNotifier); ok {
		rn.OnReload(func() { _ = cache.reload() })
	}
	return cache
}

func (c *OptionsCache[T]) reload() error {
	var value T
	if _, ok := c.config.Lookup(c.section); !ok {
		c.mu.Lock()
		c.current = value
		c.lastErr = nil
		c.mu.Unlock()
		return nil
	}
	if err := c.config.Bind(c.section, &value); err != nil {
		err = fmt.Errorf("config: failed to bind section %s: %w", c.section, err)
		c.mu.Lock()
		c.lastErr = err
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	c.current = value
	c.lastErr = nil
	listeners := append([]func(T){}, c.listeners...)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(value)
	}
	return nil
}

// Get 获取当前配置值
func (c *OptionsCache[T]) Get() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Err 返回最近一次绑定的错误
func (c *OptionsCache[T]) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// Snapshot 返回当前值的深拷贝
func (c *OptionsCache[T]) Snapshot() T {
	current := c.Get()
	data, err := json.Marshal(current)
	if err != nil {
		return current
	}
	var snapshot T
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return current
	}
	return snapshot
}

type option[T any] struct {
	value T
}

func (o *option[T]) Value() T {
	return o.value
}

// NewOption 创建静态配置值
func NewOption[T any](value T) Option[T] {
	return &option[T]{value: value}
}

type optionMonitor[T any] struct {
	cache *OptionsCache[T]
}

func (o *optionMonitor[T]) Value() T {
	return o.cache.Get()
}

func (o *optionMonitor[T]) OnChange(fn func(T)) {
	o.cache.mu.Lock()
	defer o.cache.mu.Unlock()
	o.cache.listeners = append(o.cache.listeners, fn)
}

// NewOptionMonitor 创建监听配置值
func NewOptionMonitor[T any](cache *OptionsCache[T]) OptionMonitor[T] {
	return &optionMonitor[T]{cache: cache}
}
