package config

import (
	"testing"

	"github.com/gocrud/beans/di"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapLookup(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestPlaceholderResolver(t *testing.T) {
	props := mapLookup(map[string]string{
		"host":     "localhost",
		"port":     "8080",
		"url":      "http://${host}:${port}",
		"env":      "prod",
		"prod.url": "https://example.com",
		"a":        "${b}",
		"b":        "${a}",
	})
	strict := NewPlaceholderResolver(false)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "no placeholders", "no placeholders"},
		{"simple", "${host}", "localhost"},
		{"recursive value", "${url}/api", "http://localhost:8080/api"},
		{"default used", "${timeout:30s}", "30s"},
		{"default ignored", "${port:9090}", "8080"},
		{"empty default", "[${missing:}]", "[]"},
		{"nested key", "${${env}.url}", "https://example.com"},
		{"escaped", `\${host}`, "${host}"},
		{"unterminated", "${host", "${host"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := strict.Replace(tt.in, props)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := strict.Replace("${a}", props)
	assert.ErrorIs(t, err, ErrCircularPlaceholder)

	_, err = strict.Replace("x=${nope}", props)
	assert.ErrorIs(t, err, ErrUnresolvablePlaceholder)

	lenient := NewPlaceholderResolver(true)
	got, err := lenient.Replace("${nope} and ${host}", props)
	require.NoError(t, err)
	assert.Equal(t, "${nope} and localhost", got)

	assert.True(t, strict.ContainsPlaceholder("${x}"))
	assert.False(t, strict.ContainsPlaceholder("$x"))
}

func TestEnvironment_SourceOrdering(t *testing.T) {
	env := NewEnvironment()
	env.AddLast(NewMapPropertySource("b", map[string]any{"k": "b"}))
	env.AddFirst(NewMapPropertySource("a", map[string]any{"k": "a"}))
	require.NoError(t, env.AddAfter("a", NewMapPropertySource("mid", map[string]any{"k": "mid"})))
	require.NoError(t, env.AddBefore("a", NewMapPropertySource("top", map[string]any{})))

	names := func() []string {
		var out []string
		for _, s := range env.PropertySources() {
			out = append(out, s.Name())
		}
		return out
	}
	assert.Equal(t, []string{"top", "a", "mid", "b"}, names())

	v, ok := env.Property("k")
	require.True(t, ok)
	assert.Equal(t, "a", v)

	// 重复添加会移动而不是复制
	env.AddLast(NewMapPropertySource("a", map[string]any{"k": "a2"}))
	assert.Equal(t, []string{"top", "mid", "b", "a"}, names())
	assert.Equal(t, "mid", env.PropertyOrDefault("k", ""))

	assert.Error(t, env.AddBefore("absent", NewMapPropertySource("x", nil)))
	assert.Error(t, env.AddAfter("b", NewMapPropertySource("b", nil)))
	assert.Error(t, env.Replace("absent", NewMapPropertySource("x", nil)))

	require.NoError(t, env.Replace("mid", NewMapPropertySource("mid", map[string]any{"k": "replaced"})))
	assert.Equal(t, "replaced", env.PropertyOrDefault("k", ""))

	removed := env.Remove("mid")
	require.NotNil(t, removed)
	assert.Equal(t, "mid", removed.Name())
	assert.Nil(t, env.Remove("mid"))
	assert.False(t, env.Contains("mid"))
	assert.True(t, env.Contains("top"))
	assert.NotNil(t, env.Get("b"))
}

func TestEnvironment_Properties(t *testing.T) {
	cfg := NewConfiguration(map[string]any{
		"server": map[string]any{"port": 8080, "debug": true, "timeout": "2s"},
		"app":    map[string]any{"url": "http://host:${server.port}"},
	})
	env := NewEnvironment(NewConfigurationPropertySource("application", cfg))

	assert.Equal(t, "8080", env.PropertyOrDefault("server.port", ""))
	assert.Equal(t, "http://host:8080", env.PropertyOrDefault("app.url", ""))

	port, err := env.PropertyInt("server:port")
	require.NoError(t, err)
	assert.Equal(t, 8080, port)

	debug, err := env.PropertyBool("server.debug")
	require.NoError(t, err)
	assert.True(t, debug)

	timeout, err := env.PropertyDuration("server.timeout")
	require.NoError(t, err)
	assert.Equal(t, "2s", timeout.String())

	// 子节不是属性
	assert.False(t, env.ContainsProperty("server"))

	_, err = env.RequiredProperty("missing")
	assert.Error(t, err)
}

func TestEnvironment_SystemEnvironment(t *testing.T) {
	t.Setenv("BEANS_TEST_DATASOURCE_URL", "sqlite://test")
	env := NewStandardEnvironment()

	v, ok := env.Property("beans.test.datasource-url")
	require.True(t, ok)
	assert.Equal(t, "sqlite://test", v)
}

func TestEnvironment_Placeholders(t *testing.T) {
	env := NewEnvironment(NewMapPropertySource("m", map[string]any{"name": "beans", "port": 80}))

	assert.Equal(t, "beans:80", env.ResolvePlaceholders("${name}:${port}"))
	assert.Equal(t, "${unknown}", env.ResolvePlaceholders("${unknown}"))

	_, err := env.ResolveRequiredPlaceholders("${unknown}")
	assert.ErrorIs(t, err, ErrUnresolvablePlaceholder)

	out, err := env.Resolve("${unknown:fallback}")
	require.NoError(t, err)
	assert.Equal(t, "fallback", out)
}

func TestEnvironment_Profiles(t *testing.T) {
	env := NewEnvironment()
	assert.Empty(t, env.ActiveProfiles())
	assert.Equal(t, []string{DefaultProfile}, env.DefaultProfiles())
	assert.True(t, env.AcceptsProfiles("default"))
	assert.True(t, env.AcceptsProfiles())
	assert.False(t, env.AcceptsProfiles("prod"))
	assert.True(t, env.AcceptsProfiles("!prod"))

	env.AddFirst(NewMapPropertySource("props", map[string]any{ActiveProfilesProperty: "dev, test"}))
	assert.Equal(t, []string{"dev", "test"}, env.ActiveProfiles())
	assert.False(t, env.AcceptsProfiles("default"))
	assert.True(t, env.AcceptsProfiles("prod", "test"))
	assert.False(t, env.AcceptsProfiles("!dev"))

	env.SetActiveProfiles("prod")
	assert.Equal(t, []string{"prod"}, env.ActiveProfiles())
	env.AddActiveProfile("eu")
	env.AddActiveProfile("prod")
	assert.Equal(t, []string{"prod", "eu"}, env.ActiveProfiles())

	env.SetDefaultProfiles("local")
	assert.Equal(t, []string{"local"}, env.DefaultProfiles())
}

func TestEnvironment_Merge(t *testing.T) {
	parent := NewEnvironment(
		NewMapPropertySource("shared", map[string]any{"k": "parent"}),
		NewMapPropertySource("parentOnly", map[string]any{"p": "1"}),
	)
	parent.SetActiveProfiles("cloud")

	child := NewEnvironment(NewMapPropertySource("shared", map[string]any{"k": "child"}))
	child.SetActiveProfiles("dev")
	child.Merge(parent)

	assert.Equal(t, "child", child.PropertyOrDefault("k", ""))
	assert.Equal(t, "1", child.PropertyOrDefault("p", ""))
	assert.Equal(t, []string{"dev", "cloud"}, child.ActiveProfiles())
}

type dataSource struct {
	URL  string
	Pool int
}

func TestEnvironment_ResolvesBeanProperties(t *testing.T) {
	env := NewEnvironment(NewMapPropertySource("m", map[string]any{"db.url": "sqlite://app.db"}))
	factory := di.NewBeanFactory(di.WithValueResolver(env))

	require.NoError(t, factory.RegisterBeanDefinition("dataSource", di.Define[*dataSource](
		di.WithProperty("URL", "${db.url}"),
		di.WithProperty("Pool", "${db.pool:4}"),
	)))

	ds, err := di.Get[*dataSource](factory, "dataSource")
	require.NoError(t, err)
	assert.Equal(t, "sqlite://app.db", ds.URL)
	assert.Equal(t, 4, ds.Pool)

	require.NoError(t, factory.RegisterBeanDefinition("broken", di.Define[*dataSource](
		di.WithProperty("URL", "${db.missing}"),
	)))
	_, err = di.Get[*dataSource](factory, "broken")
	assert.ErrorIs(t, err, ErrUnresolvablePlaceholder)
}
