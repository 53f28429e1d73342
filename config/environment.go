package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cast"
)

const (
	// ActiveProfilesProperty 指定激活的 profile，逗号分隔
	ActiveProfilesProperty = "beans.profiles.active"
	// DefaultProfilesProperty 指定没有激活 profile 时使用的 profile
	DefaultProfilesProperty = "beans.profiles.default"
	// DefaultProfile 是未配置时的默认 profile 名称
	DefaultProfile = "default"
)

// PropertySource 是命名的属性来源。
type PropertySource interface {
	Name() string
	Property(key string) (any, bool)
}

// MapPropertySource 以扁平 map 提供属性，键按原样匹配。
type MapPropertySource struct {
	name   string
	values map[string]any
}

func NewMapPropertySource(name string, values map[string]any) *MapPropertySource {
	return &MapPropertySource{name: name, values: values}
}

func (s *MapPropertySource) Name() string { return s.name }

func (s *MapPropertySource) Property(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

// ConfigurationPropertySource 将 Configuration 适配为属性来源，
// 键中的 "." 与 ":" 都作为层级分隔符。
type ConfigurationPropertySource struct {
	name string
	cfg  Configuration
}

func NewConfigurationPropertySource(name string, cfg Configuration) *ConfigurationPropertySource {
	return &ConfigurationPropertySource{name: name, cfg: cfg}
}

func (s *ConfigurationPropertySource) Name() string { return s.name }

func (s *ConfigurationPropertySource) Property(key string) (any, bool) {
	v, ok := s.cfg.Lookup(key)
	if !ok {
		return nil, false
	}
	// 子节不是属性值
	if _, isMap := v.(map[string]any); isMap {
		return nil, false
	}
	return v, true
}

// SystemEnvironmentPropertySource 从进程环境变量读取属性，
// 依次尝试 key、把 "." 与 "-" 换成 "_" 的 key 以及其大写形式。
type SystemEnvironmentPropertySource struct{}

func (SystemEnvironmentPropertySource) Name() string { return "systemEnvironment" }

func (SystemEnvironmentPropertySource) Property(key string) (any, bool) {
	relaxed := strings.NewReplacer(".", "_", "-", "_").Replace(key)
	for _, k := range []string{key, relaxed, strings.ToUpper(relaxed)} {
		if v, ok := os.LookupEnv(k); ok {
			return v, true
		}
	}
	return nil, false
}

// Environment 由有序的属性来源与 profile 组成，排在前面的来源优先。
// 它实现了 Bean 工厂的值解析接口，使属性值中的 ${...} 在注入时被替换。
type Environment struct {
	mu              sync.RWMutex
	sources         []PropertySource
	activeProfiles  []string
	defaultProfiles []string

	strict  *PlaceholderResolver
	lenient *PlaceholderResolver
}

// NewEnvironment 按优先级从高到低创建环境。
func NewEnvironment(sources ...PropertySource) *Environment {
	return &Environment{
		sources: slices.Clone(sources),
		strict:  NewPlaceholderResolver(false),
		lenient: NewPlaceholderResolver(true),
	}
}

// NewStandardEnvironment 创建以系统环境变量为最低优先级来源的环境。
func NewStandardEnvironment() *Environment {
	return NewEnvironment(SystemEnvironmentPropertySource{})
}

// ---------- 属性来源 ----------

func (e *Environment) indexOf(name string) int {
	return slices.IndexFunc(e.sources, func(s PropertySource) bool { return s.Name() == name })
}

func (e *Environment) removeIfPresent(name string) {
	if i := e.indexOf(name); i >= 0 {
		e.sources = slices.Delete(e.sources, i, i+1)
	}
}

// AddFirst 以最高优先级添加来源，同名来源会被替换。
func (e *Environment) AddFirst(source PropertySource) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.removeIfPresent(source.Name())
	e.sources = slices.Insert(e.sources, 0, source)
}

// AddLast 以最低优先级添加来源，同名来源会被替换。
func (e *Environment) AddLast(source PropertySource) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.removeIfPresent(source.Name())
	e.sources = append(e.sources, source)
}

// AddBefore 将来源添加到 relative 之前。
func (e *Environment) AddBefore(relative string, source PropertySource) error {
	return e.addRelative(relative, source, 0)
}

// AddAfter 将来源添加到 relative 之后。
func (e *Environment) AddAfter(relative string, source PropertySource) error {
	return e.addRelative(relative, source, 1)
}

func (e *Environment) addRelative(relative string, source PropertySource, offset int) error {
	if source == nil {
		return fmt.Errorf("config: property source must not be nil")
	}
	if source.Name() == relative {
		return fmt.Errorf("config: property source '%s' cannot be added relative to itself", relative)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.removeIfPresent(source.Name())
	i := e.indexOf(relative)
	if i < 0 {
		return fmt.Errorf("config: property source '%s' does not exist", relative)
	}
	e.sources = slices.Insert(e.sources, i+offset, source)
	return nil
}

// Replace 替换同名来源。
func (e *Environment) Replace(name string, source PropertySource) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	i := e.indexOf(name)
	if i < 0 {
		return fmt.Errorf("config: property source '%s' does not exist", name)
	}
	e.sources[i] = source
	return nil
}

// Remove 移除并返回同名来源，不存在时返回 nil。
func (e *Environment) Remove(name string) PropertySource {
	e.mu.Lock()
	defer e.mu.Unlock()
	i := e.indexOf(name)
	if i < 0 {
		return nil
	}
	s := e.sources[i]
	e.sources = slices.Delete(e.sources, i, i+1)
	return s
}

func (e *Environment) Get(name string) PropertySource {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if i := e.indexOf(name); i >= 0 {
		return e.sources[i]
	}
	return nil
}

func (e *Environment) Contains(name string) bool {
	return e.Get(name) != nil
}

// PropertySources 按优先级返回全部来源。
func (e *Environment) PropertySources() []PropertySource {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.sources)
}

// Merge 将 parent 的来源追加到末尾（同名来源保留自身的），并合并激活的 profile。
func (e *Environment) Merge(parent *Environment) {
	for _, s := range parent.PropertySources() {
		if !e.Contains(s.Name()) {
			e.AddLast(s)
		}
	}
	parentActive := parent.ActiveProfiles()
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, p := range parentActive {
		if !slices.Contains(e.activeProfiles, p) {
			e.activeProfiles = append(e.activeProfiles, p)
		}
	}
}

// ---------- 属性 ----------

// RawProperty 返回第一个包含 key 的来源中的原始值。
func (e *Environment) RawProperty(key string) (any, bool) {
	for _, s := range e.PropertySources() {
		if v, ok := s.Property(key); ok {
			return v, true
		}
	}
	return nil, false
}

// Property 返回属性的字符串形式，值中的占位符会被解析，无法解析的保留原样。
func (e *Environment) Property(key string) (string, bool) {
	v, ok := e.RawProperty(key)
	if !ok {
		return "", false
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		s = fmt.Sprintf("%v", v)
	}
	return e.ResolvePlaceholders(s), true
}

// PropertyOrDefault 返回属性，不存在时返回 defaultValue。
func (e *Environment) PropertyOrDefault(key, defaultValue string) string {
	if v, ok := e.Property(key); ok {
		return v
	}
	return defaultValue
}

// RequiredProperty 返回属性，不存在时返回错误。
func (e *Environment) RequiredProperty(key string) (string, error) {
	v, ok := e.Property(key)
	if !ok {
		return "", fmt.Errorf("config: required property '%s' not found", key)
	}
	return v, nil
}

func (e *Environment) ContainsProperty(key string) bool {
	_, ok := e.RawProperty(key)
	return ok
}

func (e *Environment) PropertyInt(key string) (int, error) {
	s, err := e.RequiredProperty(key)
	if err != nil {
		return 0, err
	}
	return cast.ToIntE(s)
}

func (e *Environment) PropertyBool(key string) (bool, error) {
	s, err := e.RequiredProperty(key)
	if err != nil {
		return false, err
	}
	return cast.ToBoolE(s)
}

func (e *Environment) PropertyDuration(key string) (time.Duration, error) {
	s, err := e.RequiredProperty(key)
	if err != nil {
		return 0, err
	}
	return cast.ToDurationE(s)
}

// ---------- 占位符 ----------

func (e *Environment) lookup(key string) (string, bool) {
	v, ok := e.RawProperty(key)
	if !ok {
		return "", false
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		s = fmt.Sprintf("%v", v)
	}
	return s, true
}

// ResolvePlaceholders 替换 text 中的占位符，无法解析且没有默认值的保留原样。
func (e *Environment) ResolvePlaceholders(text string) string {
	out, err := e.lenient.Replace(text, e.lookup)
	if err != nil {
		return text
	}
	return out
}

// ResolveRequiredPlaceholders 替换 text 中的占位符，任何无法解析的占位符都是错误。
func (e *Environment) ResolveRequiredPlaceholders(text string) (string, error) {
	return e.strict.Replace(text, e.lookup)
}

// Resolve 用于 Bean 属性值的占位符解析。
func (e *Environment) Resolve(value string) (string, error) {
	return e.ResolveRequiredPlaceholders(value)
}

// ---------- Profile ----------

// SetActiveProfiles 显式设置激活的 profile，覆盖 beans.profiles.active 属性。
func (e *Environment) SetActiveProfiles(profiles ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.activeProfiles = normalizeProfiles(profiles)
}

func (e *Environment) AddActiveProfile(profile string) {
	active := e.ActiveProfiles()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.activeProfiles = normalizeProfiles(append(active, profile))
}

func (e *Environment) SetDefaultProfiles(profiles ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.defaultProfiles = normalizeProfiles(profiles)
}

// ActiveProfiles 返回显式设置的 profile，没有时读取 beans.profiles.active。
func (e *Environment) ActiveProfiles() []string {
	e.mu.RLock()
	active := slices.Clone(e.activeProfiles)
	e.mu.RUnlock()
	if len(active) > 0 {
		return active
	}
	if v, ok := e.Property(ActiveProfilesProperty); ok {
		return normalizeProfiles(strings.Split(v, ","))
	}
	return nil
}

// DefaultProfiles 返回没有激活 profile 时生效的 profile，默认为 "default"。
func (e *Environment) DefaultProfiles() []string {
	e.mu.RLock()
	defaults := slices.Clone(e.defaultProfiles)
	e.mu.RUnlock()
	if len(defaults) > 0 {
		return defaults
	}
	if v, ok := e.Property(DefaultProfilesProperty); ok {
		if p := normalizeProfiles(strings.Split(v, ",")); len(p) > 0 {
			return p
		}
	}
	return []string{DefaultProfile}
}

// AcceptsProfiles 报告任一给定 profile 是否生效，"!p" 表示 p 未生效。
// 空列表总是接受。
func (e *Environment) AcceptsProfiles(profiles ...string) bool {
	if len(normalizeProfiles(profiles)) == 0 {
		return true
	}
	for _, p := range profiles {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if negated, ok := strings.CutPrefix(p, "!"); ok {
			if !e.isProfileActive(negated) {
				return true
			}
			continue
		}
		if e.isProfileActive(p) {
			return true
		}
	}
	return false
}

func (e *Environment) isProfileActive(profile string) bool {
	active := e.ActiveProfiles()
	if len(active) > 0 {
		return slices.Contains(active, profile)
	}
	return slices.Contains(e.DefaultProfiles(), profile)
}

func normalizeProfiles(profiles []string) []string {
	out := make([]string, 0, len(profiles))
	for _, p := range profiles {
		if p = strings.TrimSpace(p); p != "" && !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	return out
}
