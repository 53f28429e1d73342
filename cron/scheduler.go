package cron

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/gocrud/beans/di"
	"github.com/gocrud/beans/logging"
	"github.com/robfig/cron/v3"
)

// JobInfo 描述一个已调度的任务
type JobInfo struct {
	Name string
	Spec string
	Next time.Time
	Prev time.Time
}

type entry struct {
	id   cron.EntryID
	spec string
}

// Scheduler 包装 *cron.Cron，按名称管理任务。
// 它是托管服务：上下文刷新后启动，关闭时等待正在运行的任务结束。
type Scheduler struct {
	cron    *cron.Cron
	logger  logging.Logger
	factory di.BeanFactory
	pending []jobDefinition

	mu      sync.RWMutex
	entries map[string]entry
	running bool
}

// NewScheduler 按选项创建调度器
func NewScheduler(logger logging.Logger, opts Options) (*Scheduler, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	loc := time.UTC
	if opts.Location != "" {
		l, err := time.LoadLocation(opts.Location)
		if err != nil {
			return nil, fmt.Errorf("cron: invalid location '%s': %w", opts.Location, err)
		}
		loc = l
	}

	adapter := newCronLogger(logger)
	cronOpts := []cron.Option{cron.WithLocation(loc)}
	// 只在启用时输出 cron 库的调度日志
	if opts.Verbose {
		cronOpts = append(cronOpts, cron.WithLogger(adapter))
	}
	wrappers := []cron.JobWrapper{cron.Recover(adapter)}
	if opts.SkipIfStillRunning {
		wrappers = append(wrappers, cron.SkipIfStillRunning(adapter))
	}
	cronOpts = append(cronOpts, cron.WithChain(wrappers...))
	if opts.Seconds {
		cronOpts = append(cronOpts, cron.WithSeconds())
	}

	return &Scheduler{
		cron:    cron.New(cronOpts...),
		logger:  logger,
		entries: make(map[string]entry),
	}, nil
}

func (s *Scheduler) Name() string { return "cron" }

// SetBeanFactory 接收工厂，用于解析任务函数的参数
func (s *Scheduler) SetBeanFactory(factory di.BeanFactory) {
	s.factory = factory
}

// AfterPropertiesSet 注册通过选项声明的任务，表达式无效时上下文刷新失败
func (s *Scheduler) AfterPropertiesSet() error {
	for _, def := range s.pending {
		fn, err := s.wrapHandler(def.name, def.handler)
		if err != nil {
			return err
		}
		if err := s.AddFunc(def.spec, def.name, fn); err != nil {
			return err
		}
	}
	s.pending = nil
	return nil
}

// AddFunc 添加定时任务
// spec: cron 表达式，如 "0 */5 * * * *" (每5分钟) 或 "@every 1h"
func (s *Scheduler) AddFunc(spec, name string, fn func()) error {
	return s.AddJob(spec, name, cron.FuncJob(fn))
}

// AddJob 以名称添加任务，名称重复时返回错误
func (s *Scheduler) AddJob(spec, name string, job cron.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[name]; exists {
		return fmt.Errorf("cron: job '%s' already scheduled", name)
	}

	id, err := s.cron.AddJob(spec, cron.FuncJob(func() {
		started := time.Now()
		s.logger.Debug("Cron job started", logging.Field{Key: "job", Value: name})
		job.Run()
		s.logger.Debug("Cron job completed",
			logging.Field{Key: "job", Value: name},
			logging.Field{Key: "elapsed", Value: time.Since(started).String()})
	}))
	if err != nil {
		return fmt.Errorf("cron: failed to add job '%s': %w", name, err)
	}

	s.entries[name] = entry{id: id, spec: spec}
	s.logger.Info("Cron job registered",
		logging.Field{Key: "job", Value: name},
		logging.Field{Key: "spec", Value: spec})
	return nil
}

// Remove 移除任务，返回任务是否存在
func (s *Scheduler) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, exists := s.entries[name]
	if !exists {
		return false
	}
	s.cron.Remove(e.id)
	delete(s.entries, name)
	s.logger.Info("Cron job removed", logging.Field{Key: "job", Value: name})
	return true
}

// Jobs 按名称排序返回全部任务
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]JobInfo, 0, len(s.entries))
	for name, e := range s.entries {
		ce := s.cron.Entry(e.id)
		out = append(out, JobInfo{Name: name, Spec: e.spec, Next: ce.Next, Prev: ce.Prev})
	}
	slices.SortFunc(out, func(a, b JobInfo) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	return out
}

// Start 启动调度并立即返回
func (s *Scheduler) Start(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	s.running = true
	s.cron.Start()
	s.logger.Info("Cron scheduler started", logging.Field{Key: "jobs", Value: len(s.entries)})
	return nil
}

// Stop 停止调度，等待正在执行的任务结束或 ctx 超时
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("Cron scheduler stopping")
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("cron: running jobs did not finish: %w", ctx.Err())
	}
}

// Destroy 在容器销毁时停止调度，最多等待 10 秒
func (s *Scheduler) Destroy() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.Stop(ctx)
}

// cronLogger 适配器：将框架日志接口适配到 cron 的日志接口
type cronLogger struct {
	logger logging.Logger
}

func newCronLogger(logger logging.Logger) cron.Logger {
	return &cronLogger{logger: logger}
}

func (l *cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, convertToFields(keysAndValues)...)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...any) {
	fields := convertToFields(keysAndValues)
	fields = append(fields, logging.Field{Key: "error", Value: err.Error()})
	l.logger.Error(msg, fields...)
}

func convertToFields(keysAndValues []any) []logging.Field {
	fields := make([]logging.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields = append(fields, logging.Field{Key: fmt.Sprint(keysAndValues[i]), Value: keysAndValues[i+1]})
	}
	return fields
}
