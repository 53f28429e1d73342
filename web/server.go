package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gocrud/beans/config"
	"github.com/gocrud/beans/di"
	"github.com/gocrud/beans/logging"
)

// Controller 简单的控制器接口标记，实现它的 Bean 在服务启动时挂载路由
type Controller interface {
	// MountRoutes 注册路由
	MountRoutes(router gin.IRouter)
}

// ServerOptions HTTP 服务选项，可以从配置节绑定
type ServerOptions struct {
	Addr              string          `json:"addr"`
	ReadTimeout       config.Duration `json:"readTimeout"`
	ReadHeaderTimeout config.Duration `json:"readHeaderTimeout"`
	WriteTimeout      config.Duration `json:"writeTimeout"`
	IdleTimeout       config.Duration `json:"idleTimeout"`
}

// Server 是运行 *gin.Engine 的托管服务
type Server struct {
	engine  *gin.Engine
	opts    ServerOptions
	logger  logging.Logger
	factory di.BeanFactory

	mu     sync.Mutex
	server *http.Server
	addr   string
	ready  chan struct{}
}

// NewServer 创建服务
func NewServer(engine *gin.Engine, opts ServerOptions, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}
	return &Server{
		engine: engine,
		opts:   opts,
		logger: logger,
		ready:  make(chan struct{}),
	}
}

func (s *Server) Name() string { return "web" }

// SetBeanFactory 接收工厂，用于在启动时查找控制器
func (s *Server) SetBeanFactory(factory di.BeanFactory) {
	s.factory = factory
}

// Engine 返回 Gin 引擎
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Addr 返回实际监听地址 (e.g., "[::]:50234")，仅在 Ready 关闭后有效
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Ready 在开始监听后关闭
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Start 挂载控制器并阻塞服务，直到 Stop 被调用或发生错误
func (s *Server) Start(ctx context.Context) error {
	if err := s.mapControllers(ctx); err != nil {
		return fmt.Errorf("web: failed to map controllers: %w", err)
	}

	// 同步监听，确保端口可用
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("web: failed to listen on %s: %w", s.opts.Addr, err)
	}

	srv := &http.Server{
		Handler:           s.engine,
		ReadTimeout:       s.opts.ReadTimeout.Std(),
		ReadHeaderTimeout: s.opts.ReadHeaderTimeout.Std(),
		WriteTimeout:      s.opts.WriteTimeout.Std(),
		IdleTimeout:       s.opts.IdleTimeout.Std(),
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.mu.Lock()
	s.server = srv
	s.addr = ln.Addr().String()
	s.mu.Unlock()
	close(s.ready)

	s.logger.Info("Web server started", logging.Field{Key: "address", Value: ln.Addr().String()})

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("Web server error", logging.Field{Key: "error", Value: err.Error()})
		return err
	}
	return nil
}

// Stop 优雅关闭，等待进行中的请求完成或 ctx 超时
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	s.logger.Info("Stopping web server")
	if err := srv.Shutdown(ctx); err != nil {
		s.logger.Error("Failed to shutdown web server gracefully",
			logging.Field{Key: "error", Value: err.Error()})
		return err
	}
	s.logger.Info("Web server stopped")
	return nil
}

// mapControllers 从容器解析全部 Controller Bean 并注册路由
func (s *Server) mapControllers(ctx context.Context) error {
	lf, ok := s.factory.(di.ListableBeanFactory)
	if !ok {
		return nil
	}
	for _, name := range lf.BeanNamesForType(di.TypeOf[Controller]()) {
		instance, err := s.factory.GetBeanWithContext(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to resolve controller '%s': %w", name, err)
		}
		instance.(Controller).MountRoutes(s.engine)
		s.logger.Debug("Mapped controller routes", logging.Field{Key: "controller", Value: name})
	}
	return nil
}
