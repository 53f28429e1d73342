package core

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gocrud/beans/aop"
	"github.com/gocrud/beans/config"
	"github.com/gocrud/beans/di"
	"github.com/gocrud/beans/logging"
)

// Option 修改 ApplicationContext 的配置，这是框架唯一的扩展点。
// 集成模块（redis、cron、web 等）都以 Option 的形式接入。
type Option func(ac *ApplicationContext) error

// WithBeans 在注册阶段向工厂声明 Bean。
//
// 示例：
//
//	core.WithBeans(func(reg di.BeanDefinitionRegistry) error {
//		return reg.RegisterBeanDefinition("repo", di.Define[*Repo]())
//	})
func WithBeans(register func(reg di.BeanDefinitionRegistry) error) Option {
	return func(ac *ApplicationContext) error {
		return register(ac.Factory)
	}
}

// WithDefinition 注册单个 Bean 定义。
func WithDefinition(name string, def *di.BeanDefinition) Option {
	return func(ac *ApplicationContext) error {
		return ac.Factory.RegisterBeanDefinition(name, def)
	}
}

// WithBean 按约定注册 Bean，target 可以是构造函数、实例或 reflect.Type，name 为空时按类型名生成。
func WithBean(name string, target any, opts ...di.Option) Option {
	return func(ac *ApplicationContext) error {
		_, err := di.RegisterAuto(ac.Factory, name, target, opts...)
		return err
	}
}

// WithConfiguration 使用已构建的配置。配置会作为优先级最高的属性来源加入环境。
func WithConfiguration(cfg *config.ReloadableConfiguration) Option {
	return func(ac *ApplicationContext) error {
		if cfg == nil {
			return fmt.Errorf("core: configuration must not be nil")
		}
		ac.setConfiguration(cfg)
		return nil
	}
}

// WithConfigFile 从文件加载配置，按扩展名选择 JSON 或 YAML，并叠加以 envPrefix 开头的环境变量。
func WithConfigFile(path string, envPrefix string) Option {
	return WithConfigurationBuilder(func(b *config.ConfigurationBuilder) {
		if isYAML(path) {
			b.AddYamlFile(path)
		} else {
			b.AddJsonFile(path)
		}
		if envPrefix != "" {
			b.AddEnvironmentVariables(envPrefix)
		}
	})
}

// WithConfigurationBuilder 通过构建器组装配置源。
func WithConfigurationBuilder(configure func(b *config.ConfigurationBuilder)) Option {
	return func(ac *ApplicationContext) error {
		b := config.NewConfigurationBuilder()
		configure(b)
		cfg, err := b.Build()
		if err != nil {
			return fmt.Errorf("core: failed to build configuration: %w", err)
		}
		ac.setConfiguration(cfg)
		return nil
	}
}

// WithProperties 以最高优先级添加一组扁平属性，键形如 "server.port"。
func WithProperties(name string, props map[string]any) Option {
	return func(ac *ApplicationContext) error {
		ac.Environment.AddFirst(config.NewMapPropertySource(name, props))
		return nil
	}
}

// WithLogger 设置应用日志记录器。
func WithLogger(logger logging.Logger) Option {
	return func(ac *ApplicationContext) error {
		ac.setLogger(logger)
		return nil
	}
}

// WithLogging 通过构建器配置日志，日志工厂在上下文关闭时被关闭。
func WithLogging(configure func(b *logging.LoggingBuilder)) Option {
	return func(ac *ApplicationContext) error {
		b := logging.NewLoggingBuilder()
		configure(b)
		factory, err := b.TryBuild()
		if err != nil {
			return fmt.Errorf("core: failed to build logging: %w", err)
		}
		ac.loggerFactory = factory
		ac.setLogger(factory.CreateLogger("Application"))
		return nil
	}
}

// WithProfiles 设置激活的 profile。
func WithProfiles(profiles ...string) Option {
	return func(ac *ApplicationContext) error {
		ac.Environment.SetActiveProfiles(profiles...)
		return nil
	}
}

// WithScope 注册自定义作用域。
func WithScope(name string, scope di.Scope) Option {
	return func(ac *ApplicationContext) error {
		return ac.Factory.RegisterScope(name, scope)
	}
}

// WithPostProcessor 添加 Bean 后置处理器，它们先于 Bean 形式声明的后置处理器生效。
func WithPostProcessor(pp ...di.BeanPostProcessor) Option {
	return func(ac *ApplicationContext) error {
		ac.postProcessors = append(ac.postProcessors, pp...)
		return nil
	}
}

// WithFactoryPostProcessor 添加工厂后置处理器，在实例化任何 Bean 之前修改定义。
func WithFactoryPostProcessor(pp ...di.BeanFactoryPostProcessor) Option {
	return func(ac *ApplicationContext) error {
		ac.factoryPostProcessors = append(ac.factoryPostProcessors, pp...)
		return nil
	}
}

// WithListener 注册事件监听器。
func WithListener(listeners ...ApplicationListener) Option {
	return func(ac *ApplicationContext) error {
		for _, l := range listeners {
			ac.multicaster.AddListener(l)
		}
		return nil
	}
}

// WithAutoProxy 启用自动代理：匹配 Advisor 的 Bean 在初始化后被替换为代理。
// Advisor 既可以通过 aop.WithAdvisors 固定传入，也可以声明为 *aop.Advisor 类型的 Bean。
func WithAutoProxy(opts ...aop.AutoProxyOption) Option {
	return func(ac *ApplicationContext) error {
		opts = append([]aop.AutoProxyOption{aop.WithLogger(ac.Logger.WithCategory("aop"))}, opts...)
		creator := aop.NewAutoProxyCreator(opts...)
		creator.SetBeanFactory(ac.Factory)
		ac.autoProxy = creator
		ac.postProcessors = append(ac.postProcessors, creator)
		return nil
	}
}

// WithShutdownTimeout 设置 Run 结束时关闭上下文的超时。
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(ac *ApplicationContext) error {
		if timeout <= 0 {
			return fmt.Errorf("core: shutdown timeout must be positive")
		}
		ac.shutdownTimeout = timeout
		return nil
	}
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
