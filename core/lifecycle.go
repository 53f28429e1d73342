package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/gocrud/beans/logging"
	"go.uber.org/multierr"
)

// LifecycleEvents 管理上下文的启动与停止钩子
type LifecycleEvents struct {
	mu      sync.Mutex
	onStart []func(context.Context) error
	onStop  []func(context.Context) error
	logger  logging.Logger
}

// NewLifecycle 创建新的生命周期管理器
func NewLifecycle() *LifecycleEvents {
	return &LifecycleEvents{logger: logging.NewNop()}
}

// OnStart 注册启动钩子，在刷新完成后按注册顺序执行
func (l *LifecycleEvents) OnStart(fn func(context.Context) error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onStart = append(l.onStart, fn)
}

// OnStop 注册停止钩子，在关闭时按注册逆序执行
func (l *LifecycleEvents) OnStop(fn func(context.Context) error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onStop = append(l.onStop, fn)
}

// Start 依次执行启动钩子，遇到第一个错误即返回
func (l *LifecycleEvents) Start(ctx context.Context) error {
	l.mu.Lock()
	hooks := append([]func(context.Context) error(nil), l.onStart...)
	l.mu.Unlock()

	for i, fn := range hooks {
		if err := fn(ctx); err != nil {
			return fmt.Errorf("core: start hook #%d failed: %w", i+1, err)
		}
	}
	return nil
}

// Stop 逆序执行停止钩子。单个钩子失败不会中断其余钩子，错误被汇总返回。
func (l *LifecycleEvents) Stop(ctx context.Context) error {
	l.mu.Lock()
	hooks := append([]func(context.Context) error(nil), l.onStop...)
	l.mu.Unlock()

	var errs error
	for i := len(hooks) - 1; i >= 0; i-- {
		if err := hooks[i](ctx); err != nil {
			l.logger.Error("Stop hook failed",
				logging.Field{Key: "hook", Value: i + 1},
				logging.Field{Key: "error", Value: err.Error()})
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}
