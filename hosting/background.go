package hosting

import (
	"context"
	"sync"
	"time"

	"github.com/gocrud/beans/logging"
)

// BackgroundService 是长时间运行的服务的基础实现。
// Start 阻塞直到 Stop 被调用或 ctx 被取消，嵌入它的类型可以通过 StopChan 监听停止信号。
type BackgroundService struct {
	name     string
	logger   logging.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
	doneOnce sync.Once
}

// NewBackgroundService 创建后台服务
func NewBackgroundService(name string, logger logging.Logger) *BackgroundService {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &BackgroundService{
		name:   name,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

func (s *BackgroundService) Name() string { return s.name }

// Start 阻塞直到停止信号或 ctx 取消
func (s *BackgroundService) Start(ctx context.Context) error {
	defer s.Done()
	s.logger.Info("Background service starting", logging.Field{Key: "service", Value: s.name})
	select {
	case <-s.stopCh:
	case <-ctx.Done():
	}
	return nil
}

// Stop 发出停止信号并等待 Start 返回。可以重复调用。
func (s *BackgroundService) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	select {
	case <-s.doneCh:
		s.logger.Info("Background service stopped", logging.Field{Key: "service", Value: s.name})
		return nil
	case <-ctx.Done():
		s.logger.Warn("Background service stop timeout", logging.Field{Key: "service", Value: s.name})
		return ctx.Err()
	}
}

// ShouldStop 报告是否已收到停止信号
func (s *BackgroundService) ShouldStop() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}

// StopChan 返回停止通道，用于在 select 中监听
func (s *BackgroundService) StopChan() <-chan struct{} {
	return s.stopCh
}

// Done 标记服务已退出
func (s *BackgroundService) Done() {
	s.doneOnce.Do(func() { close(s.doneCh) })
}

// TimedHostedService 以固定间隔执行任务，任务失败只记录日志。
type TimedHostedService struct {
	*BackgroundService
	interval time.Duration
	task     func(ctx context.Context) error
}

// NewTimedHostedService 创建定时托管服务
func NewTimedHostedService(name string, interval time.Duration, task func(ctx context.Context) error, logger logging.Logger) *TimedHostedService {
	return &TimedHostedService{
		BackgroundService: NewBackgroundService(name, logger),
		interval:          interval,
		task:              task,
	}
}

// Start 按间隔执行任务直到停止
func (s *TimedHostedService) Start(ctx context.Context) error {
	defer s.Done()
	s.logger.Info("Timed service running",
		logging.Field{Key: "service", Value: s.name},
		logging.Field{Key: "interval", Value: s.interval.String()})

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := s.task(ctx); err != nil {
				s.logger.Error("Timed service task failed",
					logging.Field{Key: "service", Value: s.name},
					logging.Field{Key: "error", Value: err.Error()})
			}
		case <-s.stopCh:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
