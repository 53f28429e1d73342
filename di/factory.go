package di

import (
	"context"
	"reflect"
	"slices"
	"sync"

	"github.com/gocrud/beans/logging"
)

// BeanFactory 是按名称或类型获取 Bean 的基础接口。
type BeanFactory interface {
	GetBean(name string) (any, error)
	// GetBeanWithContext 使用 ctx 获取 Bean。在 Bean 创建过程中发起的嵌套获取
	// 必须传递创建时收到的 ctx，请求/会话作用域也从 ctx 中读取当前上下文。
	GetBeanWithContext(ctx context.Context, name string) (any, error)
	GetBeanOfType(name string, requiredType reflect.Type) (any, error)
	GetBeanByType(requiredType reflect.Type) (any, error)
	// GetBeanWithArgs 使用显式构造参数创建或获取 Bean。
	GetBeanWithArgs(name string, args ...any) (any, error)
	ContainsBean(name string) bool
	IsSingleton(name string) (bool, error)
	IsPrototype(name string) (bool, error)
	Type(name string) (reflect.Type, error)
}

// ListableBeanFactory 可以枚举全部 Bean。
type ListableBeanFactory interface {
	BeanFactory
	BeanDefinitionNames() []string
	BeanNamesForType(t reflect.Type) []string
	BeansOfType(t reflect.Type) (map[string]any, error)
}

// BeanDefinitionRegistry 保存 Bean 定义与别名。
type BeanDefinitionRegistry interface {
	RegisterBeanDefinition(name string, def *BeanDefinition) error
	RemoveBeanDefinition(name string) error
	BeanDefinition(name string) (*BeanDefinition, error)
	ContainsBeanDefinition(name string) bool
	BeanDefinitionNames() []string
	RegisterAlias(name, alias string) error
}

// ValueResolver 解析属性值中的 ${...} 占位符。
type ValueResolver interface {
	Resolve(value string) (string, error)
}

// FactoryOption 配置 DefaultBeanFactory。
type FactoryOption func(*DefaultBeanFactory)

// WithLogger 设置工厂使用的日志记录器。
func WithLogger(logger logging.Logger) FactoryOption {
	return func(f *DefaultBeanFactory) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithParent 设置父工厂，本工厂找不到的 Bean 会委托给它。
func WithParent(parent BeanFactory) FactoryOption {
	return func(f *DefaultBeanFactory) {
		f.parent = parent
	}
}

// WithTypeConverter 替换默认类型转换器。
func WithTypeConverter(c TypeConverter) FactoryOption {
	return func(f *DefaultBeanFactory) {
		if c != nil {
			f.converter = c
		}
	}
}

// WithValueResolver 设置占位符解析器。
func WithValueResolver(r ValueResolver) FactoryOption {
	return func(f *DefaultBeanFactory) {
		f.valueResolver = r
	}
}

// WithDefinitionOverriding 允许同名 Bean 定义覆盖已有定义。
func WithDefinitionOverriding(allow bool) FactoryOption {
	return func(f *DefaultBeanFactory) {
		f.allowOverriding = allow
	}
}

// DefaultBeanFactory 是完整的 Bean 工厂：定义注册、作用域、三级缓存单例、
// 构造函数注入、属性填充、后置处理与销毁。
type DefaultBeanFactory struct {
	registry *SingletonRegistry
	resolver *constructorResolver
	logger   logging.Logger

	mu              sync.RWMutex
	definitions     map[string]*BeanDefinition
	definitionNames []string
	aliases         map[string]string
	postProcessors  []BeanPostProcessor
	scopes          map[string]Scope
	resolvable      map[reflect.Type]any
	valueResolver   ValueResolver
	converter       TypeConverter
	parent          BeanFactory
	allowOverriding bool

	accessors accessorCache
}

// NewBeanFactory 创建 Bean 工厂。
func NewBeanFactory(opts ...FactoryOption) *DefaultBeanFactory {
	f := &DefaultBeanFactory{
		logger:      logging.NewNop(),
		definitions: make(map[string]*BeanDefinition),
		aliases:     make(map[string]string),
		scopes:      make(map[string]Scope),
		resolvable:  make(map[reflect.Type]any),
		converter:   NewSimpleTypeConverter(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.registry = NewSingletonRegistry(f.logger)
	f.resolver = &constructorResolver{factory: f}
	f.scopes[ScopeSingleton] = &singletonScope{registry: f.registry}
	f.scopes[ScopePrototype] = prototypeScope{}

	for _, t := range []reflect.Type{
		TypeOf[BeanFactory](),
		TypeOf[ListableBeanFactory](),
		TypeOf[BeanDefinitionRegistry](),
		TypeOf[*DefaultBeanFactory](),
	} {
		f.resolvable[t] = f
	}
	return f
}

// Registry 返回底层单例注册表。
func (f *DefaultBeanFactory) Registry() *SingletonRegistry {
	return f.registry
}

// Logger 返回工厂的日志记录器。
func (f *DefaultBeanFactory) Logger() logging.Logger {
	return f.logger
}

// SetLogger 替换工厂与单例注册表的日志记录器，只能在创建任何 Bean 之前调用。
func (f *DefaultBeanFactory) SetLogger(logger logging.Logger) {
	if logger == nil {
		return
	}
	f.logger = logger
	f.registry.logger = logger
}

// Parent 返回父工厂。
func (f *DefaultBeanFactory) Parent() BeanFactory {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.parent
}

// SetParent 设置父工厂。
func (f *DefaultBeanFactory) SetParent(parent BeanFactory) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.parent = parent
}

// SetValueResolver 设置占位符解析器。
func (f *DefaultBeanFactory) SetValueResolver(r ValueResolver) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.valueResolver = r
}

func (f *DefaultBeanFactory) typeConverter() TypeConverter {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.converter
}

// ---------- 定义注册 ----------

// RegisterBeanDefinition 注册 Bean 定义。name 为空时按类型名生成。
// 注册表保存的是定义的副本，之后对 def 的修改不会生效。
func (f *DefaultBeanFactory) RegisterBeanDefinition(name string, def *BeanDefinition) error {
	if def == nil {
		return newError(ErrCodeInvalidDefinition, name, "bean definition must not be nil")
	}
	d := def.clone()
	if err := d.resolveType(); err != nil {
		return wrapError(err, ErrCodeInvalidDefinition, name, "invalid bean definition")
	}
	if name == "" {
		name = typeBeanName(d.Type)
		if name == "" {
			return newError(ErrCodeInvalidDefinition, "", "cannot derive a bean name for anonymous type %v", d.Type)
		}
	}
	if d.Type.Kind() != reflect.Interface {
		d.accessor = f.accessors.accessorFor(d.Type)
		for _, pv := range d.Properties {
			if _, ok := d.accessor.setter(pv.Name); !ok {
				return newError(ErrCodeInvalidDefinition, name, "no writable property '%s' on %v", pv.Name, d.Type)
			}
		}
	}

	f.mu.Lock()
	if _, ok := f.definitions[name]; ok {
		if !f.allowOverriding {
			f.mu.Unlock()
			return newError(ErrCodeConflict, name, "bean definition already registered")
		}
		f.logger.Info("Overriding bean definition", logging.Field{Key: "bean", Value: name})
	} else {
		if target, ok := f.aliases[name]; ok {
			f.mu.Unlock()
			return newError(ErrCodeConflict, name, "name is already used as an alias for '%s'", target)
		}
		f.definitionNames = append(f.definitionNames, name)
	}
	f.definitions[name] = d
	f.mu.Unlock()

	f.logger.Debug("Registered bean definition",
		logging.Field{Key: "bean", Value: name},
		logging.Field{Key: "type", Value: d.Type.String()},
		logging.Field{Key: "scope", Value: d.ScopeName()})
	return nil
}

// Register 以类型名约定生成名称注册定义，返回使用的名称。
func (f *DefaultBeanFactory) Register(def *BeanDefinition) (string, error) {
	d := def.clone()
	if err := d.resolveType(); err != nil {
		return "", wrapError(err, ErrCodeInvalidDefinition, "", "invalid bean definition")
	}
	name := typeBeanName(d.Type)
	return name, f.RegisterBeanDefinition(name, d)
}

// RemoveBeanDefinition 移除定义，已创建的单例会被销毁。
func (f *DefaultBeanFactory) RemoveBeanDefinition(name string) error {
	f.mu.Lock()
	if _, ok := f.definitions[name]; !ok {
		f.mu.Unlock()
		return newError(ErrCodeDefinitionNotFound, name, "no bean definition to remove")
	}
	delete(f.definitions, name)
	f.definitionNames = slices.DeleteFunc(f.definitionNames, func(n string) bool { return n == name })
	f.mu.Unlock()
	return f.registry.DestroySingleton(name)
}

// BeanDefinition 返回已注册定义的副本。
func (f *DefaultBeanFactory) BeanDefinition(name string) (*BeanDefinition, error) {
	def, ok := f.definition(f.canonicalName(name))
	if !ok {
		return nil, newError(ErrCodeDefinitionNotFound, name, "no bean definition found")
	}
	return def.clone(), nil
}

func (f *DefaultBeanFactory) definition(name string) (*BeanDefinition, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	def, ok := f.definitions[name]
	return def, ok
}

// ContainsBeanDefinition 报告是否存在该名称的定义。
func (f *DefaultBeanFactory) ContainsBeanDefinition(name string) bool {
	_, ok := f.definition(f.canonicalName(name))
	return ok
}

// BeanDefinitionNames 按注册顺序返回定义名称。
func (f *DefaultBeanFactory) BeanDefinitionNames() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Clone(f.definitionNames)
}

// RegisterAlias 为 name 注册别名。
func (f *DefaultBeanFactory) RegisterAlias(name, alias string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if alias == name {
		delete(f.aliases, alias)
		return nil
	}
	if _, ok := f.definitions[alias]; ok {
		return newError(ErrCodeConflict, alias, "cannot register alias for '%s': a bean definition uses this name", name)
	}
	if existing, ok := f.aliases[alias]; ok && existing != name {
		return newError(ErrCodeConflict, alias, "alias already points to '%s'", existing)
	}
	for cur, ok := f.aliases[name]; ok; cur, ok = f.aliases[cur] {
		if cur == alias {
			return newError(ErrCodeConflict, alias, "circular alias: '%s' already resolves to '%s'", name, alias)
		}
	}
	f.aliases[alias] = name
	return nil
}

// Aliases 返回指向 name 的全部别名。
func (f *DefaultBeanFactory) Aliases(name string) []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var out []string
	for alias, target := range f.aliases {
		if target == name {
			out = append(out, alias)
		}
	}
	slices.Sort(out)
	return out
}

func (f *DefaultBeanFactory) canonicalName(name string) string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for {
		target, ok := f.aliases[name]
		if !ok {
			return name
		}
		name = target
	}
}

// ---------- 扩展点 ----------

// RegisterSingleton 注册外部创建的单例对象。
func (f *DefaultBeanFactory) RegisterSingleton(name string, obj any) error {
	return f.registry.RegisterSingleton(name, obj)
}

// RegisterResolvableDependency 注册一个不作为 Bean 存在、但可按类型注入的对象。
func (f *DefaultBeanFactory) RegisterResolvableDependency(t reflect.Type, value any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolvable[t] = value
}

func (f *DefaultBeanFactory) resolvableDependency(t reflect.Type) (any, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.resolvable[t]
	return v, ok
}

// RegisterScope 注册自定义作用域。singleton 与 prototype 不可替换。
func (f *DefaultBeanFactory) RegisterScope(name string, scope Scope) error {
	if name == ScopeSingleton || name == ScopePrototype {
		return newError(ErrCodeConflict, "", "cannot replace built-in scope '%s'", name)
	}
	if scope == nil {
		return newError(ErrCodeInvalidDefinition, "", "scope '%s' must not be nil", name)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scopes[name] = scope
	return nil
}

// RegisteredScope 返回已注册的作用域。
func (f *DefaultBeanFactory) RegisteredScope(name string) (Scope, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	s, ok := f.scopes[name]
	return s, ok
}

// AddBeanPostProcessor 添加后置处理器，已存在的同一处理器会被移到末尾。
func (f *DefaultBeanFactory) AddBeanPostProcessor(pp BeanPostProcessor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.postProcessors = slices.DeleteFunc(f.postProcessors, func(p BeanPostProcessor) bool {
		return sameIdentity(p, pp)
	})
	f.postProcessors = append(f.postProcessors, pp)
}

// BeanPostProcessorCount 返回已注册的后置处理器数量。
func (f *DefaultBeanFactory) BeanPostProcessorCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.postProcessors)
}

func (f *DefaultBeanFactory) beanPostProcessors() []BeanPostProcessor {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Clone(f.postProcessors)
}

// ---------- 获取 ----------

func (f *DefaultBeanFactory) GetBean(name string) (any, error) {
	return f.doGetBean(context.Background(), name, nil, nil)
}

func (f *DefaultBeanFactory) GetBeanWithContext(ctx context.Context, name string) (any, error) {
	return f.doGetBean(ctx, name, nil, nil)
}

func (f *DefaultBeanFactory) GetBeanOfType(name string, requiredType reflect.Type) (any, error) {
	return f.doGetBean(context.Background(), name, requiredType, nil)
}

func (f *DefaultBeanFactory) GetBeanWithArgs(name string, args ...any) (any, error) {
	return f.doGetBean(context.Background(), name, nil, args)
}

func (f *DefaultBeanFactory) GetBeanByType(requiredType reflect.Type) (any, error) {
	return f.GetBeanByTypeWithContext(context.Background(), requiredType)
}

// GetBeanByTypeWithContext 获取唯一可赋值给 requiredType 的 Bean。
// 多个候选时若恰好一个标记为 primary 则选择它，否则返回 ErrCodeAmbiguousMatch。
func (f *DefaultBeanFactory) GetBeanByTypeWithContext(ctx context.Context, requiredType reflect.Type) (any, error) {
	names := f.BeanNamesForType(requiredType)
	switch len(names) {
	case 0:
		if parent := f.Parent(); parent != nil {
			return parent.GetBeanByType(requiredType)
		}
		return nil, newError(ErrCodeDefinitionNotFound, "", "no bean of type %v is defined", requiredType)
	case 1:
		return f.doGetBean(ctx, names[0], requiredType, nil)
	}
	name, err := f.determineCandidate("", names, &DependencyDescriptor{Type: requiredType, Required: true})
	if err != nil {
		return nil, err
	}
	return f.doGetBean(ctx, name, requiredType, nil)
}

// ContainsBean 报告本工厂或父工厂中是否存在该名称的定义或单例。
func (f *DefaultBeanFactory) ContainsBean(name string) bool {
	n := f.canonicalName(name)
	if _, ok := f.definition(n); ok || f.registry.ContainsSingleton(n) {
		return true
	}
	if parent := f.Parent(); parent != nil {
		return parent.ContainsBean(name)
	}
	return false
}

func (f *DefaultBeanFactory) IsSingleton(name string) (bool, error) {
	n := f.canonicalName(name)
	if def, ok := f.definition(n); ok {
		return def.IsSingleton(), nil
	}
	if f.registry.ContainsSingleton(n) {
		return true, nil
	}
	if parent := f.Parent(); parent != nil {
		return parent.IsSingleton(name)
	}
	return false, newError(ErrCodeDefinitionNotFound, name, "no bean named '%s' is defined", name)
}

func (f *DefaultBeanFactory) IsPrototype(name string) (bool, error) {
	n := f.canonicalName(name)
	if def, ok := f.definition(n); ok {
		return def.IsPrototype(), nil
	}
	if f.registry.ContainsSingleton(n) {
		return false, nil
	}
	if parent := f.Parent(); parent != nil {
		return parent.IsPrototype(name)
	}
	return false, newError(ErrCodeDefinitionNotFound, name, "no bean named '%s' is defined", name)
}

// Type 返回 Bean 的类型，已创建的单例返回其实际类型。
func (f *DefaultBeanFactory) Type(name string) (reflect.Type, error) {
	n := f.canonicalName(name)
	if f.registry.ContainsSingleton(n) {
		if obj, _ := f.registry.Singleton(context.Background(), n); obj != nil {
			return reflect.TypeOf(obj), nil
		}
	}
	if def, ok := f.definition(n); ok {
		return def.Type, nil
	}
	if parent := f.Parent(); parent != nil {
		return parent.Type(name)
	}
	return nil, newError(ErrCodeDefinitionNotFound, name, "no bean named '%s' is defined", name)
}

// BeanNamesForType 按注册顺序返回类型可赋值给 t 的 Bean 名称，
// 包括手动注册的单例。不查询父工厂。
func (f *DefaultBeanFactory) BeanNamesForType(t reflect.Type) []string {
	var names []string
	for _, name := range f.BeanDefinitionNames() {
		def, ok := f.definition(name)
		if !ok {
			continue
		}
		if def.Type.AssignableTo(t) {
			names = append(names, name)
			continue
		}
		if f.registry.ContainsSingleton(name) {
			if obj, _ := f.registry.Singleton(context.Background(), name); obj != nil && reflect.TypeOf(obj).AssignableTo(t) {
				names = append(names, name)
			}
		}
	}
	for _, name := range f.registry.SingletonNames() {
		if _, ok := f.definition(name); ok || slices.Contains(names, name) {
			continue
		}
		if obj, _ := f.registry.Singleton(context.Background(), name); obj != nil && reflect.TypeOf(obj).AssignableTo(t) {
			names = append(names, name)
		}
	}
	return names
}

// BeansOfType 获取全部类型可赋值给 t 的 Bean。
func (f *DefaultBeanFactory) BeansOfType(t reflect.Type) (map[string]any, error) {
	return f.BeansOfTypeWithContext(context.Background(), t)
}

// BeansOfTypeWithContext 与 BeansOfType 相同，使用 ctx 获取每个 Bean。
func (f *DefaultBeanFactory) BeansOfTypeWithContext(ctx context.Context, t reflect.Type) (map[string]any, error) {
	names := f.BeanNamesForType(t)
	out := make(map[string]any, len(names))
	for _, name := range names {
		obj, err := f.doGetBean(ctx, name, nil, nil)
		if err != nil {
			return nil, err
		}
		out[name] = obj
	}
	return out, nil
}

// doGetBean 是所有获取路径的实现：
// 别名归一 -> 单例缓存 -> 父工厂 -> depends-on -> 按作用域创建 -> 类型检查。
func (f *DefaultBeanFactory) doGetBean(ctx context.Context, name string, requiredType reflect.Type, args []any) (any, error) {
	beanName := f.canonicalName(name)

	var bean any
	if len(args) == 0 {
		shared, err := f.registry.Singleton(ctx, beanName)
		if err != nil {
			return nil, err
		}
		bean = shared
	}

	if bean == nil {
		def, ok := f.definition(beanName)
		if !ok {
			if parent := f.Parent(); parent != nil {
				return f.getFromParent(ctx, parent, name, requiredType, args)
			}
			return nil, newError(ErrCodeDefinitionNotFound, beanName, "no bean named '%s' is defined", beanName)
		}

		for _, dep := range def.DependsOn {
			depName := f.canonicalName(dep)
			if f.registry.isDependent(beanName, depName) {
				return nil, newError(ErrCodeCircularReference, beanName,
					"circular depends-on relationship between '%s' and '%s'", beanName, depName)
			}
			f.registry.RegisterDependentBean(depName, beanName)
			if _, err := f.doGetBean(ctx, depName, nil, nil); err != nil {
				return nil, wrapError(err, ErrCodeUnresolvableDependency, beanName, "depends-on bean '%s' failed", depName)
			}
		}

		var err error
		switch {
		case def.IsSingleton():
			bean, err = f.registry.GetSingleton(ctx, beanName, func(ctx context.Context) (any, error) {
				return f.createBean(ctx, beanName, def, args)
			})
		case def.IsPrototype():
			bean, err = f.createPrototype(ctx, beanName, def, args)
		default:
			scope, ok := f.RegisteredScope(def.Scope)
			if !ok {
				return nil, newError(ErrCodeScopeNotFound, beanName, "no scope registered for name '%s'", def.Scope)
			}
			bean, err = scope.Get(ctx, beanName, func(ctx context.Context) (any, error) {
				return f.createBean(ctx, beanName, def, args)
			})
		}
		if err != nil {
			return nil, err
		}
	}

	if requiredType != nil && !reflect.TypeOf(bean).AssignableTo(requiredType) {
		return nil, newError(ErrCodeTypeMismatch, beanName,
			"bean is of type %T, not assignable to %v", bean, requiredType)
	}
	return bean, nil
}

func (f *DefaultBeanFactory) getFromParent(ctx context.Context, parent BeanFactory, name string, requiredType reflect.Type, args []any) (any, error) {
	switch {
	case len(args) > 0:
		return parent.GetBeanWithArgs(name, args...)
	case requiredType != nil:
		return parent.GetBeanOfType(name, requiredType)
	default:
		return parent.GetBeanWithContext(ctx, name)
	}
}

// prototypeKey 是 ctx 中原型创建链的键。
type prototypeKey struct{}

type creationPath struct {
	name   string
	parent *creationPath
}

func (p *creationPath) contains(name string) bool {
	for cur := p; cur != nil; cur = cur.parent {
		if cur.name == name {
			return true
		}
	}
	return false
}

// createPrototype 创建原型实例。同一调用链中再次请求同名原型视为不可解析的循环。
func (f *DefaultBeanFactory) createPrototype(ctx context.Context, name string, def *BeanDefinition, args []any) (any, error) {
	path, _ := ctx.Value(prototypeKey{}).(*creationPath)
	if path.contains(name) {
		return nil, newError(ErrCodeReentrantCreation, name,
			"prototype bean is currently in creation: is there an unresolvable circular reference?")
	}
	ctx = context.WithValue(ctx, prototypeKey{}, &creationPath{name: name, parent: path})
	return f.createBean(ctx, name, def, args)
}

// ---------- 启动与销毁 ----------

// PostProcessBeanFactory 依次调用工厂后置处理器。
func (f *DefaultBeanFactory) PostProcessBeanFactory(processors ...BeanFactoryPostProcessor) error {
	for _, p := range processors {
		if err := p.PostProcessBeanFactory(f); err != nil {
			return wrapError(err, ErrCodePostProcessor, "", "bean factory post-processor %T failed", p)
		}
	}
	return nil
}

// PreInstantiateSingletons 按注册顺序创建全部非懒加载单例。
func (f *DefaultBeanFactory) PreInstantiateSingletons(ctx context.Context) error {
	if err := f.validateDependsOn(); err != nil {
		return err
	}
	for _, name := range f.BeanDefinitionNames() {
		def, ok := f.definition(name)
		if !ok || !def.IsSingleton() || def.LazyInit {
			continue
		}
		if _, err := f.doGetBean(ctx, name, nil, nil); err != nil {
			return err
		}
	}
	return nil
}

// DestroySingletons 按注册逆序销毁全部单例。
func (f *DefaultBeanFactory) DestroySingletons() error {
	return f.registry.DestroySingletons()
}

// DestroyScopedBean 从其作用域中移除并销毁 Bean。
func (f *DefaultBeanFactory) DestroyScopedBean(ctx context.Context, name string) error {
	def, ok := f.definition(f.canonicalName(name))
	if !ok {
		return newError(ErrCodeDefinitionNotFound, name, "no bean named '%s' is defined", name)
	}
	if def.IsSingleton() || def.IsPrototype() {
		return newError(ErrCodeScopeNotFound, name, "bean is not in a custom scope")
	}
	scope, ok := f.RegisteredScope(def.Scope)
	if !ok {
		return newError(ErrCodeScopeNotFound, name, "no scope registered for name '%s'", def.Scope)
	}
	obj := scope.Remove(ctx, name)
	if obj == nil {
		return nil
	}
	if a := newDisposableBeanAdapter(name, obj, def); a != nil {
		if err := a.Destroy(); err != nil {
			return wrapError(err, ErrCodeDestroy, name, "destroy failed")
		}
	}
	return nil
}

// sameIdentity 比较两个对象是否为同一实例，不可比较的值视为不同。
func sameIdentity(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	switch ta.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Chan, reflect.UnsafePointer:
		return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
	}
	if ta.Comparable() {
		return a == b
	}
	return false
}
