package config

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueStore(t *testing.T) {
	store := NewValueStore()
	assert.Empty(t, store.Load())

	store.Store(map[string]any{"key": "value"})
	assert.Equal(t, "value", store.Load()["key"])

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Load()
		}()
	}
	wg.Wait()
}

func TestPathCache(t *testing.T) {
	cache := &PathCache{}

	parts := cache.Segments("a:b.c")
	assert.Equal(t, []string{"a", "b", "c"}, parts)
	assert.Equal(t, parts, cache.Segments("a:b.c"))
	assert.Empty(t, cache.Segments(""))
}

func TestBuilder_LaterSourcesOverride(t *testing.T) {
	cfg, err := NewConfigurationBuilder().
		AddInMemory(map[string]any{
			"server": map[string]any{"host": "localhost", "port": 8080},
			"name":   "base",
		}).
		AddInMemory(map[string]any{
			"server": map[string]any{"port": 9090},
		}).
		Build()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Get("server:host"))
	assert.Equal(t, "9090", cfg.Get("server.port"))
	assert.Equal(t, "base", cfg.Get("name"))
	assert.Equal(t, "", cfg.Get("missing"))
	assert.Equal(t, "fallback", cfg.GetWithDefault("missing", "fallback"))
}

func TestConfiguration_TypedAccessors(t *testing.T) {
	cfg := NewConfiguration(map[string]any{
		"port":    "8080",
		"debug":   "true",
		"timeout": "1500ms",
		"name":    "svc",
	})

	port, err := cfg.GetInt("port")
	require.NoError(t, err)
	assert.Equal(t, 8080, port)

	debug, err := cfg.GetBool("debug")
	require.NoError(t, err)
	assert.True(t, debug)

	timeout, err := cfg.GetDuration("timeout")
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, timeout)

	_, err = cfg.GetInt("name")
	assert.Error(t, err)
	_, err = cfg.GetInt("absent")
	assert.Error(t, err)
}

func TestConfiguration_SectionAndGetAllAreCopies(t *testing.T) {
	src := map[string]any{"db": map[string]any{"dsn": "file::memory:"}}
	cfg := NewConfiguration(src)

	src["db"].(map[string]any)["dsn"] = "mutated"
	assert.Equal(t, "file::memory:", cfg.GetSection("db").Get("dsn"))

	all := cfg.GetAll()
	all["db"].(map[string]any)["dsn"] = "mutated"
	assert.Equal(t, "file::memory:", cfg.Get("db:dsn"))

	assert.Empty(t, cfg.GetSection("nothing").GetAll())
}

type serverOptions struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

func TestBindAndLoad(t *testing.T) {
	cfg := NewConfiguration(map[string]any{
		"server": map[string]any{"host": "0.0.0.0", "port": 80},
	})

	var opts serverOptions
	require.NoError(t, cfg.Bind("server", &opts))
	assert.Equal(t, serverOptions{Host: "0.0.0.0", Port: 80}, opts)

	loaded, err := Load[serverOptions](cfg, "server")
	require.NoError(t, err)
	assert.Equal(t, opts, loaded)

	_, err = Load[serverOptions](cfg, "missing")
	assert.Error(t, err)
	assert.Panics(t, func() { MustLoad[serverOptions](cfg, "missing") })
}

func TestFileSources(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "app.json")
	yamlPath := filepath.Join(dir, "app.yaml")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"server":{"host":"json","port":1}}`), 0o600))
	require.NoError(t, os.WriteFile(yamlPath, []byte("server:\n  port: 2\nfeatures:\n  - a\n  - b\n"), 0o600))

	cfg, err := NewConfigurationBuilder().
		AddJsonFile(jsonPath).
		AddYamlFile(yamlPath).
		AddYamlFile(filepath.Join(dir, "absent.yaml"), true).
		Build()
	require.NoError(t, err)

	assert.Equal(t, "json", cfg.Get("server:host"))
	port, err := cfg.GetInt("server:port")
	require.NoError(t, err)
	assert.Equal(t, 2, port)

	_, err = NewConfigurationBuilder().AddJsonFile(filepath.Join(dir, "absent.json")).Build()
	assert.Error(t, err)
}

func TestEnvironmentVariableSource(t *testing.T) {
	t.Setenv("BEANSTEST_SERVER_PORT", "7070")
	t.Setenv("BEANSTEST_SERVER_TLS", "false")
	t.Setenv("BEANSTEST_MODE", "0755")

	cfg, err := NewConfigurationBuilder().AddEnvironmentVariables("BEANSTEST_").Build()
	require.NoError(t, err)

	v, ok := cfg.Lookup("server:port")
	require.True(t, ok)
	assert.Equal(t, 7070, v)

	tls, err := cfg.GetBool("server.tls")
	require.NoError(t, err)
	assert.False(t, tls)

	mode, _ := cfg.Lookup("mode")
	assert.Equal(t, 755, mode)
}

type switchSource struct {
	mu   sync.Mutex
	data map[string]any
	err  error
}

func (s *switchSource) Name() string { return "switch" }

func (s *switchSource) Load() (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[string]any)
	mergeMaps(out, s.data)
	return out, nil
}

func (s *switchSource) set(data map[string]any, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data, s.err = data, err
}

func TestReload_UpdatesOptions(t *testing.T) {
	src := &switchSource{data: map[string]any{"server": map[string]any{"host": "a", "port": 1}}}
	cfg, err := NewConfigurationBuilder().Add(src).Build()
	require.NoError(t, err)

	cache := NewOptionsCache[serverOptions](cfg, "server")
	monitor := NewOptionMonitor(cache)
	assert.Equal(t, "a", monitor.Value().Host)

	var seen []string
	monitor.OnChange(func(o serverOptions) { seen = append(seen, o.Host) })

	src.set(map[string]any{"server": map[string]any{"host": "b", "port": 2}}, nil)
	require.NoError(t, cfg.Reload())
	assert.Equal(t, serverOptions{Host: "b", Port: 2}, monitor.Value())
	assert.Equal(t, []string{"b"}, seen)

	snapshot := cache.Snapshot()
	assert.Equal(t, monitor.Value(), snapshot)
	assert.NoError(t, cache.Err())
}

func TestReload_FailureKeepsPreviousData(t *testing.T) {
	src := &switchSource{data: map[string]any{"name": "before"}}
	cfg, err := NewConfigurationBuilder().Add(src).Build()
	require.NoError(t, err)

	reloaded := 0
	cfg.OnReload(func() { reloaded++ })

	boom := errors.New("boom")
	src.set(nil, boom)
	err = cfg.Reload()
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "before", cfg.Get("name"))
	assert.Zero(t, reloaded)
}

func TestNewOption(t *testing.T) {
	opt := NewOption(serverOptions{Port: 1})
	assert.Equal(t, 1, opt.Value().Port)
}

func TestDecodeValue(t *testing.T) {
	assert.Equal(t, float64(3), decodeValue([]byte("3")))
	assert.Equal(t, map[string]any{"a": "b"}, decodeValue([]byte("a: b")))
	assert.Equal(t, "plain text", decodeValue([]byte("plain text")))
}

func BenchmarkConfigGet(b *testing.B) {
	cfg := NewConfigurationBuilder().AddInMemory(map[string]any{
		"server": map[string]any{"host": "localhost", "port": 8080},
	}).MustBuild()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cfg.Get("server:host")
	}
}
