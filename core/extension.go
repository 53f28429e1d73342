package core

import (
	"fmt"

	"github.com/gocrud/beans/di"
	"github.com/gocrud/beans/logging"
)

// Extension 定义可复用的应用扩展。
// 扩展必须实现 BeanRegistrar 或 ContextConfigurator 之一（或两者都实现）。
type Extension interface {
	// Name 返回扩展的名称，用于日志记录和错误信息
	Name() string
}

// BeanRegistrar 向工厂声明 Bean
type BeanRegistrar interface {
	RegisterBeans(reg di.BeanDefinitionRegistry) error
}

// ContextConfigurator 配置上下文本身，例如添加后置处理器或生命周期钩子
type ContextConfigurator interface {
	ConfigureContext(ac *ApplicationContext) error
}

// WithExtension 应用扩展：先配置上下文，再注册 Bean
func WithExtension(ext Extension) Option {
	return func(ac *ApplicationContext) error {
		if err := validateExtension(ext); err != nil {
			return err
		}
		if cc, ok := ext.(ContextConfigurator); ok {
			if err := cc.ConfigureContext(ac); err != nil {
				return fmt.Errorf("core: extension '%s': %w", ext.Name(), err)
			}
		}
		if br, ok := ext.(BeanRegistrar); ok {
			if err := br.RegisterBeans(ac.Factory); err != nil {
				return fmt.Errorf("core: extension '%s': %w", ext.Name(), err)
			}
		}
		ac.Logger.Debug("Extension applied", logging.Field{Key: "extension", Value: ext.Name()})
		return nil
	}
}

// validateExtension 检查扩展是否实现了支持的接口
func validateExtension(ext Extension) error {
	_, isRegistrar := ext.(BeanRegistrar)
	_, isConfigurator := ext.(ContextConfigurator)
	if !isRegistrar && !isConfigurator {
		return fmt.Errorf("core: extension '%s' does not implement any supported interfaces (BeanRegistrar, ContextConfigurator); "+
			"check that the method signatures exactly match the interface definitions", ext.Name())
	}
	return nil
}
