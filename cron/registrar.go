package cron

import (
	"context"
	"fmt"
)

// ScheduledJob 由希望被自动调度的 Bean 实现
type ScheduledJob interface {
	// Spec 返回 cron 表达式
	Spec() string
	Run()
}

// JobRegistrar 在 Bean 初始化完成后把实现 ScheduledJob 的 Bean 加入调度器，
// 任务以 Bean 名称命名。
type JobRegistrar struct {
	scheduler *Scheduler
}

func NewJobRegistrar(scheduler *Scheduler) *JobRegistrar {
	return &JobRegistrar{scheduler: scheduler}
}

func (r *JobRegistrar) PostProcessBeforeInitialization(_ context.Context, bean any, _ string) (any, error) {
	return bean, nil
}

func (r *JobRegistrar) PostProcessAfterInitialization(_ context.Context, bean any, name string) (any, error) {
	job, ok := bean.(ScheduledJob)
	if !ok {
		return bean, nil
	}
	if err := r.scheduler.AddJob(job.Spec(), name, job); err != nil {
		return nil, fmt.Errorf("cron: failed to schedule bean '%s': %w", name, err)
	}
	return bean, nil
}
