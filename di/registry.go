package di

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/gocrud/beans/logging"
	"go.uber.org/multierr"
)

// ObjectFactory 按需生产对象。ctx 携带创建链路信息，必须原样传递给嵌套的获取调用。
type ObjectFactory func(ctx context.Context) (any, error)

// SlotState 是单例槽位的暴露状态，对应三级缓存。
type SlotState int

const (
	// SlotEmpty 槽位不存在。
	SlotEmpty SlotState = iota
	// SlotFactoryInstalled 三级缓存：仅持有早期引用工厂。
	SlotFactoryInstalled
	// SlotEarlyExposed 二级缓存：早期引用已被观察到。
	SlotEarlyExposed
	// SlotFinal 一级缓存：完成初始化的单例。
	SlotFinal
)

func (s SlotState) String() string {
	switch s {
	case SlotEmpty:
		return "Empty"
	case SlotFactoryInstalled:
		return "FactoryInstalled"
	case SlotEarlyExposed:
		return "EarlyExposed"
	case SlotFinal:
		return "Final"
	default:
		return "Unknown"
	}
}

type singletonSlot struct {
	state   SlotState
	object  any
	factory ObjectFactory
}

// Disposable 是销毁回调。
type Disposable interface {
	Destroy() error
}

// DisposableFunc 将函数适配为 Disposable。
type DisposableFunc func() error

func (f DisposableFunc) Destroy() error {
	return f()
}

// lockOwner 作为 context 键，值为获取创建锁时发放的令牌。
type lockOwner struct {
	registry *SingletonRegistry
}

// creationToken 标识一次创建锁的持有。锁释放后令牌失效，携带旧令牌的 ctx 按普通调用方处理。
type creationToken struct {
	registry *SingletonRegistry
}

// SingletonRegistry 是按名称索引的单例槽位表。
//
// 单例创建由 creationMu 全局串行化；同一调用链上的嵌套创建通过 ctx 中的
// 令牌重入，令牌必须与 owner 一致。其他 goroutine 会阻塞直到一级缓存就绪。
// mu 只保护槽位表本身，运行用户代码时从不持有。
type SingletonRegistry struct {
	creationMu sync.Mutex
	owner      atomic.Pointer[creationToken]

	mu              sync.RWMutex
	slots           map[string]*singletonSlot
	singletonOrder  []string
	inCreation      map[string]struct{}
	disposables     map[string]Disposable
	disposableOrder []string
	dependents      map[string][]string
	dependencies    map[string][]string

	logger logging.Logger
}

// NewSingletonRegistry 创建单例注册表。
func NewSingletonRegistry(logger logging.Logger) *SingletonRegistry {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &SingletonRegistry{
		slots:        make(map[string]*singletonSlot),
		inCreation:   make(map[string]struct{}),
		disposables:  make(map[string]Disposable),
		dependents:   make(map[string][]string),
		dependencies: make(map[string][]string),
		logger:       logger,
	}
}

func (r *SingletonRegistry) ownsCreationLock(ctx context.Context) bool {
	tok, _ := ctx.Value(lockOwner{r}).(*creationToken)
	return tok != nil && tok == r.owner.Load()
}

// carriesCreationToken 报告 ctx 是否来自某次创建，不论令牌是否仍然有效。
func (r *SingletonRegistry) carriesCreationToken(ctx context.Context) bool {
	_, ok := ctx.Value(lockOwner{r}).(*creationToken)
	return ok
}

// acquireCreationLock 获取创建锁并返回携带新令牌的 ctx，release 使令牌失效并释放锁。
func (r *SingletonRegistry) acquireCreationLock(ctx context.Context) (context.Context, func()) {
	r.creationMu.Lock()
	tok := &creationToken{registry: r}
	r.owner.Store(tok)
	return context.WithValue(ctx, lockOwner{r}, tok), func() {
		r.owner.Store(nil)
		r.creationMu.Unlock()
	}
}

// Singleton 查找单例，从不触发创建。
// 一级缓存命中直接返回；若该名称正在创建中，依次尝试二级与三级缓存，
// 三级工厂被调用后其结果提升到二级缓存。未找到时返回 nil。
func (r *SingletonRegistry) Singleton(ctx context.Context, name string) (any, error) {
	r.mu.RLock()
	if slot, ok := r.slots[name]; ok && slot.state == SlotFinal {
		obj := slot.object
		r.mu.RUnlock()
		return obj, nil
	}
	_, creating := r.inCreation[name]
	r.mu.RUnlock()
	if !creating {
		return nil, nil
	}

	if !r.ownsCreationLock(ctx) {
		// 由其他 goroutine 创建中：等待其完成后只读取一级缓存。
		r.creationMu.Lock()
		defer r.creationMu.Unlock()
		r.mu.RLock()
		defer r.mu.RUnlock()
		if slot, ok := r.slots[name]; ok && slot.state == SlotFinal {
			return slot.object, nil
		}
		return nil, nil
	}

	r.mu.RLock()
	slot, ok := r.slots[name]
	if !ok {
		r.mu.RUnlock()
		return nil, nil
	}
	switch slot.state {
	case SlotEarlyExposed, SlotFinal:
		obj := slot.object
		r.mu.RUnlock()
		return obj, nil
	}
	factory := slot.factory
	r.mu.RUnlock()
	if factory == nil {
		return nil, nil
	}

	early, err := factory(ctx)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	slot, ok = r.slots[name]
	if !ok {
		return early, nil
	}
	switch slot.state {
	case SlotFactoryInstalled:
		slot.state = SlotEarlyExposed
		slot.object = early
		slot.factory = nil
	case SlotEarlyExposed, SlotFinal:
		early = slot.object
	}
	return early, nil
}

// GetSingleton 返回单例，不存在时在全局创建锁内调用 factory 创建并提交到一级缓存。
// 同一名称在创建过程中被再次标记会返回 ErrCodeReentrantCreation。
func (r *SingletonRegistry) GetSingleton(ctx context.Context, name string, factory ObjectFactory) (any, error) {
	if !r.ownsCreationLock(ctx) {
		var release func()
		ctx, release = r.acquireCreationLock(ctx)
		defer release()
	}

	r.mu.RLock()
	if slot, ok := r.slots[name]; ok && slot.state == SlotFinal {
		obj := slot.object
		r.mu.RUnlock()
		return obj, nil
	}
	r.mu.RUnlock()

	if err := r.beforeCreation(name); err != nil {
		return nil, err
	}
	obj, err := factory(ctx)
	r.afterCreation(name)
	if err != nil {
		r.mu.Lock()
		delete(r.slots, name)
		r.mu.Unlock()
		return nil, err
	}
	r.addSingleton(name, obj)
	return obj, nil
}

func (r *SingletonRegistry) beforeCreation(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.inCreation[name]; ok {
		return newError(ErrCodeReentrantCreation, name,
			"requested bean is currently in creation: is there an unresolvable circular reference?")
	}
	r.inCreation[name] = struct{}{}
	return nil
}

func (r *SingletonRegistry) afterCreation(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inCreation, name)
}

func (r *SingletonRegistry) addSingleton(name string, obj any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !slices.Contains(r.singletonOrder, name) {
		r.singletonOrder = append(r.singletonOrder, name)
	}
	r.slots[name] = &singletonSlot{state: SlotFinal, object: obj}
}

// RegisterSingleton 注册外部创建的单例对象。
func (r *SingletonRegistry) RegisterSingleton(name string, obj any) error {
	if obj == nil {
		return newError(ErrCodeInvalidDefinition, name, "singleton object must not be nil")
	}
	r.mu.RLock()
	slot, ok := r.slots[name]
	r.mu.RUnlock()
	if ok && slot.state == SlotFinal {
		return newError(ErrCodeConflict, name, "could not register object %T: singleton already bound", obj)
	}
	r.addSingleton(name, obj)
	return nil
}

// AddSingletonFactory 安装三级缓存工厂，仅在一级缓存无记录时生效，并清除残留的二级记录。
func (r *SingletonRegistry) AddSingletonFactory(name string, factory ObjectFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if slot, ok := r.slots[name]; ok && slot.state == SlotFinal {
		return
	}
	r.slots[name] = &singletonSlot{state: SlotFactoryInstalled, factory: factory}
}

// EarlySingleton 返回已被观察到的早期引用（二级缓存），不会调用三级工厂。
func (r *SingletonRegistry) EarlySingleton(name string) any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if slot, ok := r.slots[name]; ok && slot.state == SlotEarlyExposed {
		return slot.object
	}
	return nil
}

// Tier 返回名称当前所在的缓存层级。
func (r *SingletonRegistry) Tier(name string) SlotState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if slot, ok := r.slots[name]; ok {
		return slot.state
	}
	return SlotEmpty
}

// ContainsSingleton 报告一级缓存中是否存在该名称。
func (r *SingletonRegistry) ContainsSingleton(name string) bool {
	return r.Tier(name) == SlotFinal
}

// SingletonNames 按注册顺序返回已完成的单例名称。
func (r *SingletonRegistry) SingletonNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.singletonOrder)
}

// IsSingletonCurrentlyInCreation 报告该名称是否处于创建中。
func (r *SingletonRegistry) IsSingletonCurrentlyInCreation(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.inCreation[name]
	return ok
}

// RegisterDisposableBean 按插入顺序记录销毁回调。
func (r *SingletonRegistry) RegisterDisposableBean(name string, d Disposable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.disposables[name]; !ok {
		r.disposableOrder = append(r.disposableOrder, name)
	}
	r.disposables[name] = d
}

// RegisterDependentBean 记录 dependent 依赖于 bean。
func (r *SingletonRegistry) RegisterDependentBean(bean, dependent string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !slices.Contains(r.dependents[bean], dependent) {
		r.dependents[bean] = append(r.dependents[bean], dependent)
	}
	if !slices.Contains(r.dependencies[dependent], bean) {
		r.dependencies[dependent] = append(r.dependencies[dependent], bean)
	}
}

// DependentBeans 返回依赖于 name 的 Bean 名称。
func (r *SingletonRegistry) DependentBeans(name string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.dependents[name])
}

// DependenciesForBean 返回 name 所依赖的 Bean 名称。
func (r *SingletonRegistry) DependenciesForBean(name string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.dependencies[name])
}

// isDependent 判断 dependent 是否（传递地）依赖于 bean。
func (r *SingletonRegistry) isDependent(bean, dependent string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	visited := make(map[string]bool)
	var visit func(string) bool
	visit = func(current string) bool {
		if visited[current] {
			return false
		}
		visited[current] = true
		for _, d := range r.dependents[current] {
			if d == dependent || visit(d) {
				return true
			}
		}
		return false
	}
	return visit(bean)
}

// DestroySingleton 移除单个单例并执行其销毁回调。
func (r *SingletonRegistry) DestroySingleton(name string) error {
	r.mu.Lock()
	delete(r.slots, name)
	r.singletonOrder = slices.DeleteFunc(r.singletonOrder, func(n string) bool { return n == name })
	d, ok := r.disposables[name]
	if ok {
		delete(r.disposables, name)
		r.disposableOrder = slices.DeleteFunc(r.disposableOrder, func(n string) bool { return n == name })
	}
	r.mu.Unlock()
	if !ok {
		return nil
	}
	if err := safeDestroy(d); err != nil {
		r.logger.Error("Destroy method on bean failed",
			logging.Field{Key: "bean", Value: name},
			logging.Field{Key: "error", Value: err.Error()})
		return wrapError(err, ErrCodeDestroy, name, "destroy failed")
	}
	r.logger.Debug("Bean destroyed", logging.Field{Key: "bean", Value: name})
	return nil
}

// DestroySingletons 按注册的逆序销毁所有可销毁单例。
// 单个失败不会中断其余销毁，所有失败合并后返回；最后清空全部槽位与创建标记。
func (r *SingletonRegistry) DestroySingletons() error {
	r.mu.RLock()
	names := slices.Clone(r.disposableOrder)
	r.mu.RUnlock()

	r.logger.Debug(fmt.Sprintf("Destroying %d disposable singletons", len(names)))

	var errs error
	for i := len(names) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, r.DestroySingleton(names[i]))
	}

	r.mu.Lock()
	clear(r.slots)
	clear(r.inCreation)
	clear(r.disposables)
	clear(r.dependents)
	clear(r.dependencies)
	r.singletonOrder = nil
	r.disposableOrder = nil
	r.mu.Unlock()
	return errs
}

func safeDestroy(d Disposable) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("destroy panicked: %v", rec)
		}
	}()
	return d.Destroy()
}
