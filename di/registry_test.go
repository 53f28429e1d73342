package di

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type slotValue struct {
	N int
}

func TestSlotTransitions(t *testing.T) {
	r := NewSingletonRegistry(nil)
	raw := &slotValue{N: 1}

	obj, err := r.GetSingleton(context.Background(), "a", func(ctx context.Context) (any, error) {
		assert.True(t, r.IsSingletonCurrentlyInCreation("a"))
		r.AddSingletonFactory("a", func(context.Context) (any, error) { return raw, nil })
		assert.Equal(t, SlotFactoryInstalled, r.Tier("a"))

		early, err := r.Singleton(ctx, "a")
		require.NoError(t, err)
		assert.Same(t, raw, early)
		assert.Equal(t, SlotEarlyExposed, r.Tier("a"))
		assert.Same(t, raw, r.EarlySingleton("a"))
		return raw, nil
	})
	require.NoError(t, err)
	assert.Same(t, raw, obj)
	assert.Equal(t, SlotFinal, r.Tier("a"))
	assert.False(t, r.IsSingletonCurrentlyInCreation("a"))
	assert.Nil(t, r.EarlySingleton("a"))
}

func TestSingletonLookupNeverCreates(t *testing.T) {
	r := NewSingletonRegistry(nil)
	obj, err := r.Singleton(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, obj)
	assert.Equal(t, SlotEmpty, r.Tier("missing"))
}

func TestReentrantCreation(t *testing.T) {
	r := NewSingletonRegistry(nil)
	_, err := r.GetSingleton(context.Background(), "a", func(ctx context.Context) (any, error) {
		return r.GetSingleton(ctx, "a", func(context.Context) (any, error) { return &slotValue{}, nil })
	})
	require.Error(t, err)
	assert.True(t, IsErrorCode(err, ErrCodeReentrantCreation))
	assert.Equal(t, SlotEmpty, r.Tier("a"))
}

func TestCreationTokenExpiresWithLock(t *testing.T) {
	r := NewSingletonRegistry(nil)
	var captured context.Context
	_, err := r.GetSingleton(context.Background(), "a", func(ctx context.Context) (any, error) {
		captured = ctx
		assert.True(t, r.ownsCreationLock(ctx))
		assert.True(t, r.carriesCreationToken(ctx))
		return &slotValue{}, nil
	})
	require.NoError(t, err)
	assert.False(t, r.ownsCreationLock(captured))
	assert.True(t, r.carriesCreationToken(captured))

	// 其他 goroutine 持有锁时，旧 ctx 同样不被视为持有者
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := r.GetSingleton(context.Background(), "b", func(context.Context) (any, error) {
			close(started)
			<-release
			return &slotValue{}, nil
		})
		done <- err
	}()
	<-started
	assert.False(t, r.ownsCreationLock(captured))
	close(release)
	require.NoError(t, <-done)

	// 旧 ctx 重新获取锁，而不是绕过它
	obj, err := r.GetSingleton(captured, "c", func(ctx context.Context) (any, error) {
		assert.True(t, r.ownsCreationLock(ctx))
		assert.False(t, r.ownsCreationLock(captured))
		return &slotValue{N: 3}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, obj.(*slotValue).N)
}

func TestFailedCreationRemovesSlot(t *testing.T) {
	r := NewSingletonRegistry(nil)
	_, err := r.GetSingleton(context.Background(), "a", func(ctx context.Context) (any, error) {
		r.AddSingletonFactory("a", func(context.Context) (any, error) { return &slotValue{}, nil })
		return nil, errors.New("boom")
	})
	require.EqualError(t, err, "boom")
	assert.Equal(t, SlotEmpty, r.Tier("a"))
	assert.False(t, r.IsSingletonCurrentlyInCreation("a"))
}

func TestConcurrentReaderWaitsForFinal(t *testing.T) {
	r := NewSingletonRegistry(nil)
	final := &slotValue{N: 42}
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		_, _ = r.GetSingleton(context.Background(), "a", func(context.Context) (any, error) {
			r.AddSingletonFactory("a", func(context.Context) (any, error) { return &slotValue{N: -1}, nil })
			close(started)
			<-release
			return final, nil
		})
	}()

	<-started
	result := make(chan any, 1)
	go func() {
		obj, _ := r.Singleton(context.Background(), "a")
		result <- obj
	}()
	close(release)

	assert.Same(t, final, <-result)
	<-done
}

func TestRegisterSingletonConflict(t *testing.T) {
	r := NewSingletonRegistry(nil)
	require.NoError(t, r.RegisterSingleton("a", &slotValue{}))
	err := r.RegisterSingleton("a", &slotValue{})
	assert.True(t, IsErrorCode(err, ErrCodeConflict))
	assert.True(t, IsErrorCode(r.RegisterSingleton("b", nil), ErrCodeInvalidDefinition))
}

func TestDependentTracking(t *testing.T) {
	r := NewSingletonRegistry(nil)
	r.RegisterDependentBean("db", "repo")
	r.RegisterDependentBean("repo", "service")
	r.RegisterDependentBean("db", "repo")

	assert.Equal(t, []string{"repo"}, r.DependentBeans("db"))
	assert.Equal(t, []string{"db"}, r.DependenciesForBean("repo"))
	assert.True(t, r.isDependent("db", "service"))
	assert.False(t, r.isDependent("service", "db"))
}

func TestDestroySingletonsReverseOrderAndPanics(t *testing.T) {
	r := NewSingletonRegistry(nil)
	var order []string
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, r.RegisterSingleton(name, &slotValue{}))
		r.RegisterDisposableBean(name, DisposableFunc(func() error {
			order = append(order, name)
			if name == "b" {
				panic("b exploded")
			}
			return nil
		}))
	}

	err := r.DestroySingletons()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b exploded")
	assert.Equal(t, []string{"c", "b", "a"}, order)
	assert.Empty(t, r.SingletonNames())
	assert.False(t, r.ContainsSingleton("a"))
}

func TestSlotStateString(t *testing.T) {
	assert.Equal(t, "Empty", SlotEmpty.String())
	assert.Equal(t, "FactoryInstalled", SlotFactoryInstalled.String())
	assert.Equal(t, "EarlyExposed", SlotEarlyExposed.String())
	assert.Equal(t, "Final", SlotFinal.String())
}
