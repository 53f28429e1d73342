package database

import (
	"context"
	"testing"

	"github.com/gocrud/beans/config"
	"github.com/gocrud/beans/core"
	"github.com/gocrud/beans/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type user struct {
	gorm.Model
	Name string
}

type auditEntry struct {
	ID     uint `gorm:"primaryKey"`
	Action string
}

func TestOptions_Validate(t *testing.T) {
	opts := NewDefaultOptions("default")
	assert.Error(t, opts.Validate(), "dsn is required")

	opts.DSN = "file:validate?mode=memory"
	require.NoError(t, opts.Validate())

	opts.Driver = "postgres"
	require.NoError(t, opts.Validate())

	opts.Driver = "oracle"
	assert.ErrorContains(t, opts.Validate(), "not registered")

	opts.Dialector = sqlite.Open("file:validate?mode=memory")
	assert.NoError(t, opts.Validate())
}

func TestRegisterDriver(t *testing.T) {
	RegisterDriver("sqlite-alias", sqlite.Open)
	opts := NewDefaultOptions("alias")
	opts.Driver = "sqlite-alias"
	opts.DSN = "file:alias?mode=memory&cache=shared"
	require.NoError(t, opts.Validate())

	db, err := Open(nil, *opts)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", db.Dialector.Name())
	require.NoError(t, db.Destroy())
}

func TestNew_OpensLazilyAndMigrates(t *testing.T) {
	cfg := config.NewConfigurationBuilder().AddInMemory(map[string]any{
		"database": map[string]any{"connections": map[string]any{
			"audit": map[string]any{
				"driver":       "sqlite",
				"dsn":          "file:audit?mode=memory&cache=shared",
				"maxOpenConns": 1,
			},
		}},
	}).MustBuild()

	ac, err := core.NewApplicationContext(
		core.WithLogger(logging.NewNop()),
		core.WithConfiguration(cfg),
		New(
			WithDSN("default", "sqlite", "file:users?mode=memory&cache=shared", WithModels(&user{})),
			FromConfiguration("database:connections", &auditEntry{}),
		),
	)
	require.NoError(t, err)
	require.NoError(t, ac.Refresh(context.Background()))
	assert.False(t, ac.Factory.Registry().ContainsSingleton("database.default"))

	db, err := core.BeanOf[*DB](ac)
	require.NoError(t, err)
	assert.Equal(t, "default", db.Name())

	require.NoError(t, db.Create(&user{Name: "alice"}).Error)
	var found user
	require.NoError(t, db.First(&found, "name = ?", "alice").Error)
	assert.Equal(t, "alice", found.Name)

	audit, err := Get(ac, "audit")
	require.NoError(t, err)
	require.NoError(t, audit.Create(&auditEntry{Action: "login"}).Error)
	var count int64
	require.NoError(t, audit.Model(&auditEntry{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	require.NoError(t, ac.Close(context.Background()))
	assert.Error(t, sqlDB.Ping())
}

func TestNew_InvalidOptionsFailRegistration(t *testing.T) {
	_, err := core.NewApplicationContext(
		core.WithLogger(logging.NewNop()),
		New(WithDSN("default", "oracle", "scott/tiger")),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database configuration errors")
}
