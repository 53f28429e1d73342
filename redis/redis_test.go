package redis

import (
	"context"
	"testing"
	"time"

	"github.com/gocrud/beans/config"
	"github.com/gocrud/beans/core"
	"github.com/gocrud/beans/di"
	"github.com/gocrud/beans/logging"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientOptions(t *testing.T) {
	opts := NewDefaultOptions("cache")
	require.NoError(t, opts.Validate())

	ro := opts.ToRedis()
	assert.Equal(t, "localhost:6379", ro.Addr)
	assert.Equal(t, "cache", ro.ClientName)
	assert.Equal(t, 5*time.Second, ro.DialTimeout)

	opts.Addr = ""
	assert.Error(t, opts.Validate())
	opts = NewDefaultOptions("x")
	opts.DB = -1
	assert.Error(t, opts.Validate())
}

func TestBuilder_AccumulatesErrors(t *testing.T) {
	b := NewBuilder().
		AddClient("default", nil).
		AddClient("default", nil).
		AddClient("broken", func(o *ClientOptions) { o.Addr = "" })

	err := b.Build(config.NewConfiguration(nil), di.NewBeanFactory())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already configured")
	assert.Contains(t, err.Error(), "redis addr is required")
}

func TestNew_RegistersLazyClients(t *testing.T) {
	cfg := config.NewConfigurationBuilder().AddInMemory(map[string]any{
		"redis": map[string]any{"clients": map[string]any{
			"sessions": map[string]any{"addr": "127.0.0.1:6380", "db": 2, "readTimeout": "1s"},
		}},
	}).MustBuild()

	ac, err := core.NewApplicationContext(
		core.WithLogger(logging.NewNop()),
		core.WithConfiguration(cfg),
		New(
			WithClient("default", func(o *ClientOptions) { o.Addr = "127.0.0.1:6390" }),
			FromConfiguration("redis:clients"),
		),
	)
	require.NoError(t, err)
	require.NoError(t, ac.Refresh(context.Background()))

	// 刷新后客户端尚未创建
	assert.False(t, ac.Factory.Registry().ContainsSingleton("redis.default"))
	assert.False(t, ac.Factory.Registry().ContainsSingleton("redis.sessions"))

	primary, err := core.BeanOf[*goredis.Client](ac)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:6390", primary.Options().Addr)

	sessions, err := Client(ac, "sessions")
	require.NoError(t, err)
	assert.Equal(t, 2, sessions.Options().DB)
	assert.Equal(t, time.Second, sessions.Options().ReadTimeout)

	require.NoError(t, ac.Close(context.Background()))
	// 关闭后客户端不可再用
	assert.ErrorIs(t, primary.Ping(context.Background()).Err(), goredis.ErrClosed)
}
