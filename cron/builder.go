package cron

import (
	"fmt"

	"github.com/gocrud/beans/config"
	"github.com/gocrud/beans/di"
	"github.com/gocrud/beans/logging"
)

const (
	// SchedulerBeanName 是调度器的 Bean 名称
	SchedulerBeanName = "cron.scheduler"
	// RegistrarBeanName 是 JobRegistrar 的 Bean 名称
	RegistrarBeanName = "cron.jobRegistrar"
)

// Options 调度器选项，可以从配置节绑定
type Options struct {
	// Location 时区，默认 UTC
	Location string `json:"location"`
	// Seconds 启用秒级精度（默认分钟级）
	Seconds bool `json:"seconds"`
	// Verbose 输出 cron 库内部的调度日志
	Verbose bool `json:"verbose"`
	// SkipIfStillRunning 上一次执行未结束时跳过本次执行
	SkipIfStillRunning bool `json:"skipIfStillRunning"`
}

// Builder 收集调度器选项与任务。同一个上下文中多次应用 cron.New 共享一个 Builder。
type Builder struct {
	options    Options
	section    string
	jobs       []jobDefinition
	registered bool
}

// NewBuilder 创建 Cron 构建器
func NewBuilder() *Builder {
	return &Builder{options: Options{Location: "UTC"}}
}

// WithSeconds 启用秒级精度
func (b *Builder) WithSeconds() *Builder {
	b.options.Seconds = true
	return b
}

// WithLocation 设置时区
func (b *Builder) WithLocation(location string) *Builder {
	b.options.Location = location
	return b
}

// EnableCronLogger 启用 cron 库的内部调度日志
func (b *Builder) EnableCronLogger() *Builder {
	b.options.Verbose = true
	return b
}

// SkipIfStillRunning 同一任务不并发执行
func (b *Builder) SkipIfStillRunning() *Builder {
	b.options.SkipIfStillRunning = true
	return b
}

// FromConfiguration 在创建调度器时从配置节读取选项，配置值覆盖代码中的设置
func (b *Builder) FromConfiguration(section string) *Builder {
	b.section = section
	return b
}

// AddJob 添加任务。handler 可以是 func()、func() error，
// 或参数从容器按类型解析的函数。
//
// 示例：
//
//	builder.AddJob("0 */5 * * * *", "sync-data", func(svc *DataService) error {
//	    return svc.Sync()
//	})
func (b *Builder) AddJob(spec, name string, handler any) *Builder {
	b.jobs = append(b.jobs, jobDefinition{spec: spec, name: name, handler: handler})
	return b
}

// Jobs 返回已声明的任务名称
func (b *Builder) Jobs() []string {
	names := make([]string, len(b.jobs))
	for i, j := range b.jobs {
		names[i] = j.name
	}
	return names
}

// newScheduler 在容器中创建调度器
func (b *Builder) newScheduler(logger logging.Logger, cfg config.Configuration) (*Scheduler, error) {
	opts := b.options
	if b.section != "" {
		if _, ok := cfg.Lookup(b.section); ok {
			if err := cfg.Bind(b.section, &opts); err != nil {
				return nil, fmt.Errorf("cron: %w", err)
			}
		}
	}
	s, err := NewScheduler(logger.WithCategory("cron"), opts)
	if err != nil {
		return nil, err
	}
	s.pending = append([]jobDefinition(nil), b.jobs...)
	return s, nil
}

// register 注册调度器与 JobRegistrar，只执行一次
func (b *Builder) register(reg di.BeanDefinitionRegistry) error {
	if b.registered {
		return nil
	}
	if err := reg.RegisterBeanDefinition(SchedulerBeanName, di.DefineFunc(b.newScheduler,
		di.WithDescription("cron scheduler"))); err != nil {
		return err
	}
	if err := reg.RegisterBeanDefinition(RegistrarBeanName, di.DefineFunc(NewJobRegistrar,
		di.WithDescription("schedules ScheduledJob beans"))); err != nil {
		return err
	}
	b.registered = true
	return nil
}
