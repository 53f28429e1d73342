package hosting

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/gocrud/beans/logging"
	"go.uber.org/multierr"
)

// HostedService 托管服务接口。
// 实现该接口的单例 Bean 会在容器刷新完成后被自动启动，在容器关闭时被停止。
type HostedService interface {
	// Start 启动服务。管理器在独立的 goroutine 中调用它，因此允许阻塞，
	// 直到 ctx 被取消或发生错误。
	Start(ctx context.Context) error

	// Stop 执行优雅关闭，必须遵守 ctx 的超时。
	Stop(ctx context.Context) error
}

// Named 由希望在日志中显示名称的服务实现。
type Named interface {
	Name() string
}

// ServiceName 返回服务在日志中的名称
func ServiceName(svc HostedService) string {
	if n, ok := svc.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", svc)
}

// HostedServiceManager 并发启动托管服务，按添加的逆序逐个停止。
type HostedServiceManager struct {
	services []HostedService
	logger   logging.Logger
	mu       sync.RWMutex
	wg       sync.WaitGroup
	started  bool
}

// NewHostedServiceManager 创建托管服务管理器
func NewHostedServiceManager(logger logging.Logger) *HostedServiceManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &HostedServiceManager{logger: logger}
}

// Add 添加托管服务，同一实例只会添加一次
func (m *HostedServiceManager) Add(service HostedService) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if reflect.TypeOf(service).Comparable() {
		for _, s := range m.services {
			if s == service {
				return
			}
		}
	}
	m.services = append(m.services, service)
}

// Len 返回已添加的服务数量
func (m *HostedServiceManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.services)
}

// StartAll 在各自的 goroutine 中启动全部服务。
// 返回的通道接收服务异常退出的错误，ctx 取消导致的退出不算错误。
func (m *HostedServiceManager) StartAll(ctx context.Context) <-chan error {
	m.mu.Lock()
	services := append([]HostedService(nil), m.services...)
	m.started = true
	m.mu.Unlock()

	errCh := make(chan error, len(services))
	m.logger.Info("Starting hosted services", logging.Field{Key: "count", Value: len(services)})

	for _, service := range services {
		m.wg.Add(1)
		go func(svc HostedService) {
			defer m.wg.Done()
			name := ServiceName(svc)
			m.logger.Debug("Starting hosted service", logging.Field{Key: "service", Value: name})

			err := svc.Start(ctx)
			switch {
			case err == nil:
				m.logger.Debug("Hosted service completed", logging.Field{Key: "service", Value: name})
			case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
				m.logger.Debug("Hosted service stopped (context done)", logging.Field{Key: "service", Value: name})
			default:
				m.logger.Error("Hosted service failed",
					logging.Field{Key: "service", Value: name},
					logging.Field{Key: "error", Value: err.Error()})
				errCh <- fmt.Errorf("hosted service %s: %w", name, err)
			}
		}(service)
	}
	return errCh
}

// StopAll 按添加的逆序停止服务，汇总全部错误。
func (m *HostedServiceManager) StopAll(ctx context.Context) error {
	m.mu.Lock()
	services := append([]HostedService(nil), m.services...)
	started := m.started
	m.started = false
	m.mu.Unlock()
	if !started {
		return nil
	}

	m.logger.Info("Stopping hosted services", logging.Field{Key: "count", Value: len(services)})
	var errs error
	for i := len(services) - 1; i >= 0; i-- {
		name := ServiceName(services[i])
		if err := services[i].Stop(ctx); err != nil {
			m.logger.Error("Failed to stop hosted service",
				logging.Field{Key: "service", Value: name},
				logging.Field{Key: "error", Value: err.Error()})
			errs = multierr.Append(errs, fmt.Errorf("hosted service %s: %w", name, err))
			continue
		}
		m.logger.Debug("Hosted service stopped", logging.Field{Key: "service", Value: name})
	}
	return errs
}

// Wait 等待全部 Start 调用返回，ctx 结束时提前返回 ctx 的错误。
func (m *HostedServiceManager) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
