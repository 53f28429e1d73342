package web

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/gocrud/beans/core"
)

// BuilderOption 用于配置 Web Builder
type BuilderOption func(*Builder)

// WithAddr 设置监听地址，例如 ":8080" 或 "127.0.0.1:0"
func WithAddr(addr string) BuilderOption {
	return func(b *Builder) {
		b.UseAddr(addr)
	}
}

// WithPort 设置端口
func WithPort(port int) BuilderOption {
	return func(b *Builder) {
		b.UsePort(port)
	}
}

// WithControllers 添加控制器
func WithControllers(controllers ...any) BuilderOption {
	return func(b *Builder) {
		b.AddControllers(controllers...)
	}
}

// WithMiddleware 添加全局中间件
func WithMiddleware(middleware ...gin.HandlerFunc) BuilderOption {
	return func(b *Builder) {
		b.Use(middleware...)
	}
}

// FromConfiguration 从配置节读取服务选项
func FromConfiguration(section string) BuilderOption {
	return func(b *Builder) {
		b.FromConfiguration(section)
	}
}

// Configure 直接配置 Builder，例如注册路由
func Configure(fn func(b *Builder)) BuilderOption {
	return fn
}

// New 启用 Web 能力：注册 "request" 与 "session" 作用域、Gin 引擎与 HTTP 服务。
// 服务作为托管服务在上下文刷新后启动。
func New(opts ...BuilderOption) core.Option {
	return func(ac *core.ApplicationContext) error {
		if _, exists := core.GetFeature[*Builder](ac); exists {
			return errors.New("web: already enabled")
		}
		builder := NewBuilder()
		builder.Use(RequestLogger(ac.Logger.WithCategory("web")))
		for _, opt := range opts {
			opt(builder)
		}

		// 注册为 Feature，便于其他模块追加路由
		ac.Features.Set(builder)

		if err := builder.register(ac.Factory); err != nil {
			return err
		}
		ac.Lifecycle.OnStop(func(context.Context) error {
			return builder.session.Close()
		})
		return nil
	}
}
