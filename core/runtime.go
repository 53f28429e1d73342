package core

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/gocrud/beans/aop"
	"github.com/gocrud/beans/config"
	"github.com/gocrud/beans/di"
	"github.com/gocrud/beans/hosting"
	"github.com/gocrud/beans/logging"
)

// ConfigurationPropertySourceName 是应用配置在环境中的属性来源名称
const ConfigurationPropertySourceName = "configuration"

// ApplicationContext 是框架的状态容器：持有 Bean 工厂、环境、生命周期与事件多播器，
// 并负责刷新与关闭的完整流程。
type ApplicationContext struct {
	// Features 存放集成模块在构建阶段共享的特性（例如 cron 的调度器）
	Features FeatureCollection

	// Factory 核心 Bean 工厂
	Factory *di.DefaultBeanFactory

	// Environment 属性来源与 profile
	Environment *config.Environment

	// Lifecycle 启动与停止钩子
	Lifecycle *LifecycleEvents

	// Logger 应用日志记录器
	Logger logging.Logger

	// ErrorHandler 处理运行期间的严重错误（例如托管服务异常退出），默认记录日志
	ErrorHandler func(err error)

	configuration         *config.ReloadableConfiguration
	loggerFactory         logging.LoggerFactory
	multicaster           *EventMulticaster
	hosted                *hosting.HostedServiceManager
	postProcessors        []di.BeanPostProcessor
	factoryPostProcessors []di.BeanFactoryPostProcessor
	autoProxy             *aop.AutoProxyCreator
	shutdownTimeout       time.Duration

	mu          sync.Mutex
	state       contextState
	startupTime time.Time
	runCtx      context.Context
	runCancel   context.CancelFunc

	shutdownCh   chan struct{}
	shutdownOnce sync.Once
	closeOnce    sync.Once
	closeErr     error
	hookOnce     sync.Once
}

type contextState int

const (
	stateCreated contextState = iota
	stateRefreshing
	stateActive
	stateFailed
	stateClosed
)

// NewApplicationContext 创建上下文并依次应用选项。选项失败时返回第一个错误。
// 返回的上下文尚未刷新。
func NewApplicationContext(opts ...Option) (*ApplicationContext, error) {
	logger := logging.NewLogger()
	ac := &ApplicationContext{
		Factory:         di.NewBeanFactory(di.WithLogger(logger.WithCategory("di"))),
		Environment:     config.NewStandardEnvironment(),
		Lifecycle:       NewLifecycle(),
		Logger:          logger,
		multicaster:     NewEventMulticaster(),
		shutdownTimeout: 30 * time.Second,
		shutdownCh:      make(chan struct{}),
	}
	ac.hosted = hosting.NewHostedServiceManager(logger.WithCategory("hosting"))
	ac.Lifecycle.logger = logger
	ac.ErrorHandler = func(err error) {
		ac.Logger.Error("Runtime error", logging.Field{Key: "error", Value: err.Error()})
	}
	ac.Factory.SetValueResolver(ac.Environment)

	if err := ac.Apply(opts...); err != nil {
		return nil, err
	}
	if err := ac.registerInfrastructure(); err != nil {
		return nil, err
	}
	return ac, nil
}

// Apply 依次应用选项
func (ac *ApplicationContext) Apply(opts ...Option) error {
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(ac); err != nil {
			return err
		}
	}
	return nil
}

func (ac *ApplicationContext) setLogger(logger logging.Logger) {
	if logger == nil {
		return
	}
	ac.Logger = logger
	ac.Factory.SetLogger(logger.WithCategory("di"))
	ac.hosted = hosting.NewHostedServiceManager(logger.WithCategory("hosting"))
	ac.Lifecycle.logger = logger
}

func (ac *ApplicationContext) setConfiguration(cfg *config.ReloadableConfiguration) {
	ac.configuration = cfg
	ac.Environment.AddFirst(config.NewConfigurationPropertySource(ConfigurationPropertySourceName, cfg))
}

// registerInfrastructure 让上下文自身、环境与配置可以被注入
func (ac *ApplicationContext) registerInfrastructure() error {
	f := ac.Factory
	f.RegisterResolvableDependency(reflect.TypeOf(ac), ac)
	f.RegisterResolvableDependency(reflect.TypeOf(ac.Environment), ac.Environment)
	f.RegisterResolvableDependency(di.TypeOf[logging.Logger](), ac.Logger)
	f.RegisterResolvableDependency(di.TypeOf[config.Configuration](), ac.Configuration())
	if ac.configuration != nil {
		f.RegisterResolvableDependency(reflect.TypeOf(ac.configuration), ac.configuration)
	}
	f.RegisterResolvableDependency(di.TypeOf[EventPublisher](), ac)
	return nil
}

// Configuration 返回应用配置，未配置时返回空配置
func (ac *ApplicationContext) Configuration() config.Configuration {
	if ac.configuration == nil {
		return config.NewConfiguration(nil)
	}
	return ac.configuration
}

// ReloadableConfiguration 返回可重新加载的配置，未配置时为 nil
func (ac *ApplicationContext) ReloadableConfiguration() *config.ReloadableConfiguration {
	return ac.configuration
}

// StartupTime 返回最近一次刷新完成的时间
func (ac *ApplicationContext) StartupTime() time.Time {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	return ac.startupTime
}

// IsActive 报告上下文是否已刷新且尚未关闭
func (ac *ApplicationContext) IsActive() bool {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	return ac.state == stateActive
}

// Shutdown 请求应用退出，Run 会随之关闭上下文
func (ac *ApplicationContext) Shutdown() {
	ac.shutdownOnce.Do(func() { close(ac.shutdownCh) })
}

// Done 返回一个通道，当应用需要退出时该通道会关闭
func (ac *ApplicationContext) Done() <-chan struct{} {
	return ac.shutdownCh
}

// GetBean 按名称获取 Bean
func (ac *ApplicationContext) GetBean(name string) (any, error) {
	return ac.Factory.GetBean(name)
}

// ContainsBean 报告是否存在给定名称的 Bean
func (ac *ApplicationContext) ContainsBean(name string) bool {
	return ac.Factory.ContainsBean(name)
}

// Bean 按名称获取类型为 T 的 Bean
func Bean[T any](ac *ApplicationContext, name string) (T, error) {
	return di.Get[T](ac.Factory, name)
}

// BeanOf 按类型获取唯一（或 Primary）的 Bean
func BeanOf[T any](ac *ApplicationContext) (T, error) {
	return di.GetByType[T](ac.Factory)
}

// MustBeanOf 与 BeanOf 相同，失败时 panic
func MustBeanOf[T any](ac *ApplicationContext) T {
	v, err := BeanOf[T](ac)
	if err != nil {
		panic(fmt.Sprintf("core: failed to get bean of type %v: %v", di.TypeOf[T](), err))
	}
	return v
}
