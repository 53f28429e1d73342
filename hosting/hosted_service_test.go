package hosting

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gocrud/beans/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingService struct {
	name    string
	journal *journal
	startFn func(ctx context.Context) error
	stopErr error
}

type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(s string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, s)
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

func (s *recordingService) Name() string { return s.name }

func (s *recordingService) Start(ctx context.Context) error {
	s.journal.add("start:" + s.name)
	if s.startFn != nil {
		return s.startFn(ctx)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *recordingService) Stop(context.Context) error {
	s.journal.add("stop:" + s.name)
	return s.stopErr
}

func TestManager_StopsInReverseOrder(t *testing.T) {
	j := &journal{}
	m := NewHostedServiceManager(logging.NewNop())
	a := &recordingService{name: "a", journal: j}
	b := &recordingService{name: "b", journal: j, stopErr: errors.New("b failed")}
	m.Add(a)
	m.Add(b)
	m.Add(a)
	assert.Equal(t, 2, m.Len())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := m.StartAll(ctx)
	assert.Eventually(t, func() bool { return len(j.list()) == 2 }, time.Second, 5*time.Millisecond)

	err := m.StopAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b failed")

	cancel()
	require.NoError(t, m.Wait(context.Background()))
	assert.Equal(t, []string{"stop:b", "stop:a"}, j.list()[2:])

	select {
	case err := <-errCh:
		t.Fatalf("unexpected error %v", err)
	default:
	}

	// 未启动时不会再次停止
	assert.NoError(t, m.StopAll(context.Background()))
}

func TestManager_ReportsStartFailure(t *testing.T) {
	j := &journal{}
	boom := errors.New("boom")
	m := NewHostedServiceManager(nil)
	m.Add(&recordingService{name: "bad", journal: j, startFn: func(context.Context) error { return boom }})

	errCh := m.StartAll(context.Background())
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "bad")
	case <-time.After(time.Second):
		t.Fatal("start failure was not reported")
	}
}

func TestBackgroundService_StopIsIdempotent(t *testing.T) {
	svc := NewBackgroundService("bg", nil)
	done := make(chan error, 1)
	go func() { done <- svc.Start(context.Background()) }()

	require.NoError(t, svc.Stop(context.Background()))
	require.NoError(t, svc.Stop(context.Background()))
	assert.True(t, svc.ShouldStop())
	assert.NoError(t, <-done)
}

func TestBackgroundService_StopTimeout(t *testing.T) {
	svc := NewBackgroundService("never-started", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, svc.Stop(ctx), context.DeadlineExceeded)
}

func TestTimedHostedService(t *testing.T) {
	var runs atomic.Int32
	svc := NewTimedHostedService("tick", 5*time.Millisecond, func(context.Context) error {
		if runs.Add(1) == 1 {
			return errors.New("first run fails")
		}
		return nil
	}, nil)
	assert.Equal(t, "tick", ServiceName(svc))

	go func() { _ = svc.Start(context.Background()) }()
	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
	require.NoError(t, svc.Stop(context.Background()))
}
