package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/gocrud/beans/config"
	"github.com/gocrud/beans/core"
	"github.com/gocrud/beans/di"
	"github.com/gocrud/beans/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(t *testing.T, opts Options) *Scheduler {
	t.Helper()
	s, err := NewScheduler(logging.NewNop(), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Destroy() })
	return s
}

func TestScheduler_RunsJobs(t *testing.T) {
	s := newTestScheduler(t, Options{Seconds: true})
	var runs atomic.Int32
	require.NoError(t, s.AddFunc("* * * * * *", "tick", func() { runs.Add(1) }))
	require.NoError(t, s.Start(context.Background()))

	assert.Eventually(t, func() bool { return runs.Load() > 0 }, 3*time.Second, 20*time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))
	// 重复停止没有副作用
	require.NoError(t, s.Stop(context.Background()))
}

func TestScheduler_JobManagement(t *testing.T) {
	s := newTestScheduler(t, Options{})
	require.NoError(t, s.AddFunc("@every 1h", "b", func() {}))
	require.NoError(t, s.AddFunc("0 2 * * *", "a", func() {}))

	err := s.AddFunc("@every 1h", "a", func() {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already scheduled")

	err = s.AddFunc("not a spec", "broken", func() {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")

	jobs := s.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "a", jobs[0].Name)
	assert.Equal(t, "0 2 * * *", jobs[0].Spec)

	assert.True(t, s.Remove("a"))
	assert.False(t, s.Remove("a"))
	assert.Len(t, s.Jobs(), 1)
}

func TestScheduler_InvalidLocation(t *testing.T) {
	_, err := NewScheduler(nil, Options{Location: "Mars/Olympus"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid location")
}

func TestScheduler_RecoversFromPanics(t *testing.T) {
	s := newTestScheduler(t, Options{Seconds: true})
	var after atomic.Bool
	require.NoError(t, s.AddFunc("* * * * * *", "panicky", func() { panic("boom") }))
	require.NoError(t, s.AddFunc("* * * * * *", "healthy", func() { after.Store(true) }))
	require.NoError(t, s.Start(context.Background()))
	assert.Eventually(t, after.Load, 3*time.Second, 20*time.Millisecond)
}

type reportService struct {
	calls atomic.Int32
}

func (r *reportService) Generate() error {
	r.calls.Add(1)
	return errors.New("report failed")
}

func TestWrapHandler(t *testing.T) {
	f := di.NewBeanFactory()
	svc := &reportService{}
	require.NoError(t, f.RegisterSingleton("reports", svc))

	s := newTestScheduler(t, Options{})
	s.SetBeanFactory(f)

	fn, err := s.wrapHandler("report", func(ctx context.Context, r *reportService) error {
		require.NotNil(t, ctx)
		return r.Generate()
	})
	require.NoError(t, err)
	fn()
	assert.EqualValues(t, 1, svc.calls.Load())

	_, err = s.wrapHandler("bad", "not a function")
	assert.Error(t, err)

	noFactory := newTestScheduler(t, Options{})
	_, err = noFactory.wrapHandler("orphan", func(*reportService) {})
	assert.Error(t, err)
}

type cleanupJob struct {
	runs atomic.Int32
}

func (j *cleanupJob) Spec() string { return "@every 1h" }
func (j *cleanupJob) Run()         { j.runs.Add(1) }

func TestNew_RegistersSchedulerAndJobs(t *testing.T) {
	cfg := config.NewConfigurationBuilder().AddInMemory(map[string]any{
		"cron": map[string]any{"seconds": true, "location": "Asia/Shanghai"},
	}).MustBuild()

	ac, err := core.NewApplicationContext(
		core.WithLogger(logging.NewNop()),
		core.WithConfiguration(cfg),
		New(FromConfiguration("cron"), AddJob("*/30 * * * * *", "heartbeat", func() {})),
		Schedule("0 0 * * * *", "hourly", func() error { return nil }),
		core.WithBean("cleanup", &cleanupJob{}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ac.Close(context.Background()) })

	builder, ok := core.GetFeature[*Builder](ac)
	require.True(t, ok)
	assert.Equal(t, []string{"heartbeat", "hourly"}, builder.Jobs())

	require.NoError(t, ac.Refresh(context.Background()))

	s, err := core.Bean[*Scheduler](ac, SchedulerBeanName)
	require.NoError(t, err)
	names := make([]string, 0, 3)
	for _, j := range s.Jobs() {
		names = append(names, j.Name)
	}
	assert.Equal(t, []string{"cleanup", "heartbeat", "hourly"}, names)
	assert.Equal(t, "Asia/Shanghai", s.cron.Location().String())
}

func TestNew_InvalidSpecFailsRefresh(t *testing.T) {
	ac, err := core.NewApplicationContext(
		core.WithLogger(logging.NewNop()),
		New(AddJob("whenever", "broken", func() {})),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ac.Close(context.Background()) })

	err = ac.Refresh(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}
