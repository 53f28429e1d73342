package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/gocrud/beans/di"
	"github.com/gocrud/beans/hosting"
)

// WithHostedService 将托管服务注册为单例 Bean。target 可以是构造函数、实例或 reflect.Type，
// 其类型必须实现 hosting.HostedService。
// 上下文刷新完成后启动服务，关闭时停止。
func WithHostedService(name string, target any, opts ...di.Option) Option {
	return func(ac *ApplicationContext) error {
		beanName, err := di.RegisterAuto(ac.Factory, name, target, append(opts, di.WithSingleton())...)
		if err != nil {
			return fmt.Errorf("core: failed to register hosted service: %w", err)
		}
		typ, err := ac.Factory.Type(beanName)
		if err != nil {
			return err
		}
		if !typ.Implements(di.TypeOf[hosting.HostedService]()) {
			_ = ac.Factory.RemoveBeanDefinition(beanName)
			return fmt.Errorf("core: service %v does not implement hosting.HostedService", typ)
		}
		return nil
	}
}

// WorkerFunc 是阻塞运行的后台任务，通过 ctx.Done() 判断退出
type WorkerFunc func(ctx context.Context) error

// WithWorker 将阻塞函数注册为托管服务。函数返回非 nil 错误时应用会退出。
func WithWorker(name string, fn WorkerFunc) Option {
	return func(ac *ApplicationContext) error {
		return ac.Factory.RegisterBeanDefinition(name, di.NewBeanDefinition(nil,
			di.WithInstance(&workerService{name: name, fn: fn}),
			di.WithDescription("worker "+name),
		))
	}
}

type workerService struct {
	name   string
	fn     WorkerFunc
	mu     sync.Mutex
	cancel context.CancelFunc
}

func (w *workerService) Name() string { return w.name }

func (w *workerService) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	w.mu.Lock()
	w.cancel = cancel
	w.mu.Unlock()
	return w.fn(ctx)
}

func (w *workerService) Stop(context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		w.cancel()
	}
	return nil
}
