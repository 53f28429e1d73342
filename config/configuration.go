package config

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cast"
	"go.uber.org/multierr"
)

// Configuration 是分层键值配置的只读视图。
// 键支持 "a:b:c" 与 "a.b.c" 两种写法。
type Configuration interface {
	// Get 获取配置值的字符串形式，不存在时返回空字符串
	Get(key string) string
	// Lookup 获取原始值并报告其是否存在
	Lookup(key string) (any, bool)
	GetWithDefault(key, defaultValue string) string
	GetInt(key string) (int, error)
	GetBool(key string) (bool, error)
	GetDuration(key string) (time.Duration, error)
	// GetSection 返回子节，不存在时返回空配置
	GetSection(key string) Configuration
	// Bind 将 key 处的配置绑定到结构体，key 为空时绑定全部
	Bind(key string, target any) error
	// GetAll 返回全部配置的副本
	GetAll() map[string]any
}

// ConfigurationSource 配置源接口
type ConfigurationSource interface {
	Load() (map[string]any, error)
	Name() string
}

// ConfigurationBuilder 按添加顺序合并配置源，后添加的覆盖先添加的。
type ConfigurationBuilder struct {
	sources []ConfigurationSource
	mu      sync.RWMutex
}

// NewConfigurationBuilder 创建配置构建器
func NewConfigurationBuilder() *ConfigurationBuilder {
	return &ConfigurationBuilder{}
}

// Add 添加配置源
func (b *ConfigurationBuilder) Add(source ConfigurationSource) *ConfigurationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sources = append(b.sources, source)
	return b
}

// AddJsonFile 添加 JSON 文件配置源
func (b *ConfigurationBuilder) AddJsonFile(path string, optional ...bool) *ConfigurationBuilder {
	return b.Add(&JsonFileSource{Path: path, Optional: len(optional) > 0 && optional[0]})
}

// AddYamlFile 添加 YAML 文件配置源
func (b *ConfigurationBuilder) AddYamlFile(path string, optional ...bool) *ConfigurationBuilder {
	return b.Add(&YamlFileSource{Path: path, Optional: len(optional) > 0 && optional[0]})
}

// AddEnvironmentVariables 添加环境变量配置源
func (b *ConfigurationBuilder) AddEnvironmentVariables(prefix string) *ConfigurationBuilder {
	return b.Add(&EnvironmentVariableSource{Prefix: prefix})
}

// AddInMemory 添加内存配置源
func (b *ConfigurationBuilder) AddInMemory(data map[string]any) *ConfigurationBuilder {
	return b.Add(&InMemorySource{Data: data})
}

// AddEtcd 添加 etcd 配置源
func (b *ConfigurationBuilder) AddEtcd(opts EtcdOptions) *ConfigurationBuilder {
	if opts.Timeout == 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 5 * time.Second
	}
	return b.Add(&EtcdSource{Options: opts})
}

// Build 加载全部配置源并返回可重新加载的配置。
func (b *ConfigurationBuilder) Build() (*ReloadableConfiguration, error) {
	b.mu.RLock()
	sources := append([]ConfigurationSource(nil), b.sources...)
	b.mu.RUnlock()

	c := &ReloadableConfiguration{
		configuration: configuration{store: NewValueStore()},
		sources:       sources,
	}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// MustBuild 与 Build 相同，失败时 panic。
func (b *ConfigurationBuilder) MustBuild() *ReloadableConfiguration {
	c, err := b.Build()
	if err != nil {
		panic(err)
	}
	return c
}

// ReloadableConfiguration 是由配置源构建的根配置，Reload 会原子替换全部数据。
type ReloadableConfiguration struct {
	configuration

	sources   []ConfigurationSource
	mu        sync.Mutex
	listeners []func()
}

// Reload 重新加载全部配置源并通知监听者。任一配置源失败时保留旧数据。
func (c *ReloadableConfiguration) Reload() error {
	data := make(map[string]any)
	var errs error
	for _, source := range c.sources {
		loaded, err := source.Load()
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("config: failed to load source %s: %w", source.Name(), err))
			continue
		}
		mergeMaps(data, loaded)
	}
	if errs != nil {
		return errs
	}
	c.store.Store(data)

	c.mu.Lock()
	listeners := append([]func(){}, c.listeners...)
	c.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
	return nil
}

// OnReload 注册重新加载后的回调。
func (c *ReloadableConfiguration) OnReload(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// NewConfiguration 直接从数据创建配置。
func NewConfiguration(data map[string]any) Configuration {
	store := NewValueStore()
	copied := make(map[string]any, len(data))
	mergeMaps(copied, data)
	store.Store(copied)
	return &configuration{store: store}
}

// configuration 配置实现，读取无锁
type configuration struct {
	store *ValueStore
}

func (c *configuration) Get(key string) string {
	value, ok := c.Lookup(key)
	if !ok || value == nil {
		return ""
	}
	s, err := cast.ToStringE(value)
	if err != nil {
		return fmt.Sprintf("%v", value)
	}
	return s
}

func (c *configuration) Lookup(key string) (any, bool) {
	return lookupPath(c.store.Load(), key)
}

func (c *configuration) GetWithDefault(key, defaultValue string) string {
	if value := c.Get(key); value != "" {
		return value
	}
	return defaultValue
}

func (c *configuration) GetInt(key string) (int, error) {
	value, ok := c.Lookup(key)
	if !ok {
		return 0, fmt.Errorf("config: key %s not found", key)
	}
	i, err := cast.ToIntE(value)
	if err != nil {
		return 0, fmt.Errorf("config: key %s: %w", key, err)
	}
	return i, nil
}

func (c *configuration) GetBool(key string) (bool, error) {
	value, ok := c.Lookup(key)
	if !ok {
		return false, fmt.Errorf("config: key %s not found", key)
	}
	b, err := cast.ToBoolE(value)
	if err != nil {
		return false, fmt.Errorf("config: key %s: %w", key, err)
	}
	return b, nil
}

func (c *configuration) GetDuration(key string) (time.Duration, error) {
	value, ok := c.Lookup(key)
	if !ok {
		return 0, fmt.Errorf("config: key %s not found", key)
	}
	d, err := cast.ToDurationE(value)
	if err != nil {
		return 0, fmt.Errorf("config: key %s: %w", key, err)
	}
	return d, nil
}

func (c *configuration) GetSection(key string) Configuration {
	value, _ := c.Lookup(key)
	m, ok := value.(map[string]any)
	if !ok {
		m = map[string]any{}
	}
	return NewConfiguration(m)
}

// Bind 通过 JSON 编解码将配置绑定到结构体
func (c *configuration) Bind(key string, target any) error {
	data, ok := c.Lookup(key)
	if !ok {
		return fmt.Errorf("config: key %s not found", key)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("config: failed to marshal %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("config: failed to bind %s: %w", key, err)
	}
	return nil
}

func (c *configuration) GetAll() map[string]any {
	result := make(map[string]any)
	mergeMaps(result, c.store.Load())
	return result
}

// lookupPath 按路径查找，路径为空时返回根节点
func lookupPath(data map[string]any, path string) (any, bool) {
	if path == "" {
		return data, true
	}
	current := any(data)
	for _, part := range globalPathCache.Segments(path) {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		if current, ok = m[part]; !ok {
			return nil, false
		}
	}
	return current, true
}

// mergeMaps 深度合并，src 覆盖 dst，嵌套 map 会被复制
func mergeMaps(dst, src map[string]any) {
	for k, v := range src {
		srcMap, isMap := v.(map[string]any)
		if !isMap {
			dst[k] = v
			continue
		}
		dstMap, ok := dst[k].(map[string]any)
		if !ok {
			dstMap = make(map[string]any, len(srcMap))
			dst[k] = dstMap
		}
		mergeMaps(dstMap, srcMap)
	}
}
