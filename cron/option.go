package cron

import (
	"github.com/gocrud/beans/core"
)

// BuilderOption 用于配置 Cron Builder
type BuilderOption func(*Builder)

// WithSeconds 启用秒级精度
func WithSeconds() BuilderOption {
	return func(b *Builder) {
		b.WithSeconds()
	}
}

// WithLocation 设置时区
func WithLocation(location string) BuilderOption {
	return func(b *Builder) {
		b.WithLocation(location)
	}
}

// EnableCronLogger 启用 cron 库的内部调度日志
func EnableCronLogger() BuilderOption {
	return func(b *Builder) {
		b.EnableCronLogger()
	}
}

// SkipIfStillRunning 上一次执行未结束时跳过本次执行
func SkipIfStillRunning() BuilderOption {
	return func(b *Builder) {
		b.SkipIfStillRunning()
	}
}

// FromConfiguration 从配置节读取调度器选项，例如 "cron"
func FromConfiguration(section string) BuilderOption {
	return func(b *Builder) {
		b.FromConfiguration(section)
	}
}

// AddJob 添加任务
func AddJob(spec, name string, handler any) BuilderOption {
	return func(b *Builder) {
		b.AddJob(spec, name, handler)
	}
}

// New 启用 Cron 能力：注册调度器（托管服务）与 JobRegistrar。
// 多次调用共享同一个调度器，选项依次叠加。
func New(opts ...BuilderOption) core.Option {
	return func(ac *core.ApplicationContext) error {
		builder := core.GetOrCreateFeature(ac, NewBuilder)
		for _, opt := range opts {
			opt(builder)
		}
		return builder.register(ac.Factory)
	}
}

// Schedule 添加一个任务，相当于 New(AddJob(spec, name, handler))
func Schedule(spec, name string, handler any) core.Option {
	return New(AddJob(spec, name, handler))
}
