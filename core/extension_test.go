package core

import (
	"context"
	"errors"
	"testing"

	"github.com/gocrud/beans/di"
	"github.com/gocrud/beans/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// EmptyExtension 未实现任何接口
type EmptyExtension struct{}

func (e *EmptyExtension) Name() string { return "Empty" }

// RegistrarOnlyExtension 仅实现 BeanRegistrar
type RegistrarOnlyExtension struct{}

func (e *RegistrarOnlyExtension) Name() string { return "RegistrarOnly" }
func (e *RegistrarOnlyExtension) RegisterBeans(reg di.BeanDefinitionRegistry) error {
	return reg.RegisterBeanDefinition("fromRegistrar", di.Define[*devOnly]())
}

// ConfiguratorOnlyExtension 仅实现 ContextConfigurator
type ConfiguratorOnlyExtension struct {
	started bool
}

func (e *ConfiguratorOnlyExtension) Name() string { return "ConfiguratorOnly" }
func (e *ConfiguratorOnlyExtension) ConfigureContext(ac *ApplicationContext) error {
	ac.Lifecycle.OnStart(func(context.Context) error {
		e.started = true
		return nil
	})
	return nil
}

// FullExtension 同时实现两个接口，配置上下文先于注册 Bean
type FullExtension struct {
	calls []string
}

func (e *FullExtension) Name() string { return "Full" }
func (e *FullExtension) ConfigureContext(*ApplicationContext) error {
	e.calls = append(e.calls, "configure")
	return nil
}
func (e *FullExtension) RegisterBeans(di.BeanDefinitionRegistry) error {
	e.calls = append(e.calls, "register")
	return nil
}

// FailingExtension 注册 Bean 失败
type FailingExtension struct{}

func (e *FailingExtension) Name() string { return "Failing" }
func (e *FailingExtension) RegisterBeans(di.BeanDefinitionRegistry) error {
	return errors.New("registry unavailable")
}

func TestWithExtension_ErrorWhenNoInterfaceImplemented(t *testing.T) {
	_, err := NewApplicationContext(WithLogger(logging.NewNop()), WithExtension(&EmptyExtension{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extension 'Empty' does not implement any supported interfaces")
}

func TestWithExtension_RegistrarOnly(t *testing.T) {
	ac := newTestContext(t, WithExtension(&RegistrarOnlyExtension{}))
	assert.True(t, ac.ContainsBean("fromRegistrar"))
}

func TestWithExtension_ConfiguratorOnly(t *testing.T) {
	ext := &ConfiguratorOnlyExtension{}
	ac := newTestContext(t, WithExtension(ext))
	require.NoError(t, ac.Refresh(context.Background()))
	assert.True(t, ext.started)
}

func TestWithExtension_Full(t *testing.T) {
	ext := &FullExtension{}
	newTestContext(t, WithExtension(ext))
	assert.Equal(t, []string{"configure", "register"}, ext.calls)
}

func TestWithExtension_Multiple(t *testing.T) {
	full := &FullExtension{}
	ac := newTestContext(t,
		WithExtension(&RegistrarOnlyExtension{}),
		WithExtension(full),
	)
	assert.True(t, ac.ContainsBean("fromRegistrar"))
	assert.Len(t, full.calls, 2)
}

func TestWithExtension_RegistrationFailure(t *testing.T) {
	_, err := NewApplicationContext(WithLogger(logging.NewNop()), WithExtension(&FailingExtension{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extension 'Failing'")
	assert.Contains(t, err.Error(), "registry unavailable")
}
