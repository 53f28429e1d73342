package mongodb

import (
	"context"
	"testing"
	"time"

	"github.com/gocrud/beans/config"
	"github.com/gocrud/beans/core"
	"github.com/gocrud/beans/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientOptions_Validate(t *testing.T) {
	opts := NewDefaultOptions("default")
	require.NoError(t, opts.Validate())

	opts.URI = "localhost:27017"
	assert.Error(t, opts.Validate())

	opts = NewDefaultOptions("default")
	opts.MinPoolSize, opts.MaxPoolSize = 10, 5
	assert.Error(t, opts.Validate())
}

func TestClientOptions_ToDriver(t *testing.T) {
	opts := NewDefaultOptions("default")
	opts.AppName = "orders"
	driver := opts.ToDriver()
	require.NotNil(t, driver.AppName)
	assert.Equal(t, "orders", *driver.AppName)
	require.NotNil(t, driver.ServerSelectionTimeout)
	assert.Equal(t, 5*time.Second, *driver.ServerSelectionTimeout)
}

func TestNew_LazyClientWithDefaultDatabase(t *testing.T) {
	cfg := config.NewConfigurationBuilder().AddInMemory(map[string]any{
		"mongodb": map[string]any{"clients": map[string]any{
			"archive": map[string]any{"uri": "mongodb://127.0.0.1:27018", "database": "archive"},
		}},
	}).MustBuild()

	ac, err := core.NewApplicationContext(
		core.WithLogger(logging.NewNop()),
		core.WithConfiguration(cfg),
		New(
			WithClient("default", "mongodb://127.0.0.1:27017", WithDatabase("orders")),
			FromConfiguration("mongodb:clients"),
		),
	)
	require.NoError(t, err)
	require.NoError(t, ac.Refresh(context.Background()))
	assert.False(t, ac.Factory.Registry().ContainsSingleton("mongodb.default"))

	// 驱动在首次操作前不会连接服务器
	client, err := core.BeanOf[*Client](ac)
	require.NoError(t, err)
	assert.Equal(t, "default", client.Name())
	require.NotNil(t, client.DB())
	assert.Equal(t, "orders", client.DB().Name())

	coll, err := client.Collection("items")
	require.NoError(t, err)
	assert.Equal(t, "items", coll.Name())

	archive, err := Get(ac, "archive")
	require.NoError(t, err)
	assert.Equal(t, "archive", archive.DB().Name())

	require.NoError(t, ac.Close(context.Background()))
}

func TestCollectionWithoutDefaultDatabase(t *testing.T) {
	client, err := NewClient(nil, *NewDefaultOptions("bare"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Destroy() })

	assert.Nil(t, client.DB())
	_, err = client.Collection("items")
	assert.Error(t, err)
}
