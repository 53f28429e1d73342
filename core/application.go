package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gocrud/beans/di"
	"github.com/gocrud/beans/hosting"
	"github.com/gocrud/beans/logging"
	"go.uber.org/multierr"
)

var (
	// ErrAlreadyRefreshed 表示上下文已经刷新过。上下文只能刷新一次。
	ErrAlreadyRefreshed = errors.New("core: application context has already been refreshed")
	// ErrContextClosed 表示上下文已经关闭
	ErrContextClosed = errors.New("core: application context is closed")
)

// Refresh 完成上下文的启动：
//
//  1. 按激活的 profile 过滤 Bean 定义
//  2. 调用 BeanFactoryPostProcessor
//  3. 注册 BeanPostProcessor
//  4. 加载 Advisor（启用自动代理时）
//  5. 注册 ApplicationListener Bean
//  6. 创建全部非懒加载单例
//  7. 发布 ContextRefreshedEvent
//  8. 执行启动钩子并启动托管服务
//
// 任一步骤失败时已创建的单例会被销毁，上下文不可再用。
func (ac *ApplicationContext) Refresh(ctx context.Context) (err error) {
	if err := ac.prepareRefresh(); err != nil {
		return err
	}
	started := time.Now()
	ac.Logger.Info("Refreshing application context",
		logging.Field{Key: "profiles", Value: ac.Environment.ActiveProfiles()})

	defer func() {
		if err != nil {
			ac.cancelRefresh(err)
		}
	}()

	if err = ac.filterDefinitionsByProfile(); err != nil {
		return err
	}
	if err = ac.invokeBeanFactoryPostProcessors(ctx); err != nil {
		return err
	}
	if err = ac.registerBeanPostProcessors(ctx); err != nil {
		return err
	}
	if ac.autoProxy != nil {
		if err = ac.autoProxy.LoadAdvisors(ctx); err != nil {
			return fmt.Errorf("core: failed to load advisors: %w", err)
		}
	}
	if err = ac.registerListeners(ctx); err != nil {
		return err
	}
	if err = ac.Factory.PreInstantiateSingletons(ctx); err != nil {
		return err
	}
	if err = ac.finishRefresh(ctx); err != nil {
		return err
	}

	ac.Logger.Info("Application context refreshed",
		logging.Field{Key: "beans", Value: len(ac.Factory.BeanDefinitionNames())},
		logging.Field{Key: "elapsed", Value: time.Since(started).String()})
	return nil
}

func (ac *ApplicationContext) prepareRefresh() error {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	switch ac.state {
	case stateCreated:
	case stateClosed:
		return ErrContextClosed
	default:
		return ErrAlreadyRefreshed
	}
	ac.state = stateRefreshing
	ac.runCtx, ac.runCancel = context.WithCancel(context.Background())
	return nil
}

func (ac *ApplicationContext) cancelRefresh(cause error) {
	ac.Logger.Error("Application context refresh failed", logging.Field{Key: "error", Value: cause.Error()})
	ac.runCancel()
	if err := ac.hosted.StopAll(context.Background()); err != nil {
		ac.Logger.Warn("Failed to stop hosted services after refresh failure",
			logging.Field{Key: "error", Value: err.Error()})
	}
	if err := ac.Factory.DestroySingletons(); err != nil {
		ac.Logger.Warn("Failed to destroy singletons after refresh failure",
			logging.Field{Key: "error", Value: err.Error()})
	}
	ac.mu.Lock()
	ac.state = stateFailed
	ac.mu.Unlock()
}

// filterDefinitionsByProfile 移除 profile 不匹配的定义
func (ac *ApplicationContext) filterDefinitionsByProfile() error {
	for _, name := range ac.Factory.BeanDefinitionNames() {
		def, err := ac.Factory.BeanDefinition(name)
		if err != nil {
			return err
		}
		if len(def.Profiles) == 0 || ac.Environment.AcceptsProfiles(def.Profiles...) {
			continue
		}
		ac.Logger.Debug("Skipping bean for inactive profile",
			logging.Field{Key: "bean", Value: name},
			logging.Field{Key: "profiles", Value: def.Profiles})
		if err := ac.Factory.RemoveBeanDefinition(name); err != nil {
			return err
		}
	}
	return nil
}

func (ac *ApplicationContext) invokeBeanFactoryPostProcessors(ctx context.Context) error {
	processors := append([]di.BeanFactoryPostProcessor(nil), ac.factoryPostProcessors...)
	for _, name := range ac.Factory.BeanNamesForType(di.TypeOf[di.BeanFactoryPostProcessor]()) {
		obj, err := ac.Factory.GetBeanWithContext(ctx, name)
		if err != nil {
			return err
		}
		processors = append(processors, obj.(di.BeanFactoryPostProcessor))
	}
	return ac.Factory.PostProcessBeanFactory(processors...)
}

// registerBeanPostProcessors 先注册选项传入的处理器，再按定义顺序注册 Bean 形式的处理器
func (ac *ApplicationContext) registerBeanPostProcessors(ctx context.Context) error {
	for _, pp := range ac.postProcessors {
		ac.Factory.AddBeanPostProcessor(pp)
	}
	for _, name := range ac.Factory.BeanNamesForType(di.TypeOf[di.BeanPostProcessor]()) {
		obj, err := ac.Factory.GetBeanWithContext(ctx, name)
		if err != nil {
			return err
		}
		ac.Factory.AddBeanPostProcessor(obj.(di.BeanPostProcessor))
	}
	return nil
}

func (ac *ApplicationContext) registerListeners(ctx context.Context) error {
	for _, name := range ac.Factory.BeanNamesForType(di.TypeOf[ApplicationListener]()) {
		if def, err := ac.Factory.BeanDefinition(name); err == nil && !def.IsSingleton() {
			continue
		}
		obj, err := ac.Factory.GetBeanWithContext(ctx, name)
		if err != nil {
			return err
		}
		ac.multicaster.AddListener(obj.(ApplicationListener))
	}
	return nil
}

func (ac *ApplicationContext) finishRefresh(ctx context.Context) error {
	ac.mu.Lock()
	ac.startupTime = time.Now()
	ac.state = stateActive
	runCtx := ac.runCtx
	ac.mu.Unlock()

	if err := ac.Publish(ctx, ContextRefreshedEvent{BaseEvent: NewBaseEvent(ac), Context: ac}); err != nil {
		return err
	}
	if err := ac.Lifecycle.Start(ctx); err != nil {
		return err
	}
	return ac.startHostedServices(ctx, runCtx)
}

// startHostedServices 启动全部实现 HostedService 的单例 Bean。
// 服务异常退出会交给 ErrorHandler 并请求应用退出。
func (ac *ApplicationContext) startHostedServices(ctx, runCtx context.Context) error {
	for _, name := range ac.Factory.BeanNamesForType(di.TypeOf[hosting.HostedService]()) {
		def, err := ac.Factory.BeanDefinition(name)
		if err == nil && (!def.IsSingleton() || def.LazyInit) {
			continue
		}
		obj, err := ac.Factory.GetBeanWithContext(ctx, name)
		if err != nil {
			return err
		}
		ac.hosted.Add(obj.(hosting.HostedService))
	}
	if ac.hosted.Len() == 0 {
		return nil
	}

	errCh := ac.hosted.StartAll(runCtx)
	go func() {
		select {
		case err := <-errCh:
			ac.ErrorHandler(err)
			ac.Shutdown()
		case <-runCtx.Done():
		}
	}()
	return nil
}

// Publish 同步地将事件分发给支持它的监听器
func (ac *ApplicationContext) Publish(ctx context.Context, event ApplicationEvent) error {
	return ac.multicaster.Multicast(ctx, event)
}

// Close 关闭上下文：发布 ContextClosedEvent，逆序停止托管服务与生命周期钩子，最后销毁单例。
// 重复调用返回第一次关闭的结果。
func (ac *ApplicationContext) Close(ctx context.Context) error {
	ac.closeOnce.Do(func() {
		ac.closeErr = ac.doClose(ctx)
	})
	return ac.closeErr
}

func (ac *ApplicationContext) doClose(ctx context.Context) error {
	ac.mu.Lock()
	wasActive := ac.state == stateActive
	ac.state = stateClosed
	cancel := ac.runCancel
	ac.mu.Unlock()

	ac.Logger.Info("Closing application context")
	var errs error
	if wasActive {
		if err := ac.Publish(ctx, ContextClosedEvent{BaseEvent: NewBaseEvent(ac), Context: ac}); err != nil {
			ac.Logger.Warn("Listener failed on close", logging.Field{Key: "error", Value: err.Error()})
		}
		errs = multierr.Append(errs, ac.hosted.StopAll(ctx))
	}
	if cancel != nil {
		cancel()
	}
	if wasActive {
		if err := ac.hosted.Wait(ctx); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("core: hosted services did not exit: %w", err))
		}
		errs = multierr.Append(errs, ac.Lifecycle.Stop(ctx))
	}
	errs = multierr.Append(errs, ac.Factory.DestroySingletons())
	ac.Shutdown()

	if errs != nil {
		ac.Logger.Error("Application context closed with errors", logging.Field{Key: "error", Value: errs.Error()})
	} else {
		ac.Logger.Info("Application context closed")
	}
	if ac.loggerFactory != nil {
		errs = multierr.Append(errs, ac.loggerFactory.Close())
	}
	return errs
}

// RegisterShutdownHook 在收到 SIGINT 或 SIGTERM 时关闭上下文。只会注册一次。
func (ac *ApplicationContext) RegisterShutdownHook() {
	ac.hookOnce.Do(func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			defer signal.Stop(sigCh)
			select {
			case sig := <-sigCh:
				ac.Logger.Info("Received shutdown signal", logging.Field{Key: "signal", Value: sig.String()})
				ctx, cancel := context.WithTimeout(context.Background(), ac.shutdownTimeout)
				defer cancel()
				_ = ac.Close(ctx)
			case <-ac.Done():
			}
		}()
	})
}

// Run 刷新上下文（若尚未刷新）并阻塞，直到收到退出信号、ctx 被取消或调用 Shutdown，
// 然后在超时内关闭上下文。
func (ac *ApplicationContext) Run(ctx context.Context) error {
	ac.mu.Lock()
	needsRefresh := ac.state == stateCreated
	ac.mu.Unlock()
	if needsRefresh {
		if err := ac.Refresh(ctx); err != nil {
			return err
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		ac.Logger.Info("Received shutdown signal", logging.Field{Key: "signal", Value: sig.String()})
	case <-ctx.Done():
		ac.Logger.Info("Context cancelled")
	case <-ac.Done():
		ac.Logger.Info("Application stop requested")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ac.shutdownTimeout)
	defer cancel()
	return ac.Close(shutdownCtx)
}
