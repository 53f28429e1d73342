package web

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gocrud/beans/config"
	"github.com/gocrud/beans/di"
	"github.com/gocrud/beans/logging"
)

const (
	// EngineBeanName 是 *gin.Engine 的 Bean 名称
	EngineBeanName = "web.engine"
	// ServerBeanName 是 *Server 的 Bean 名称
	ServerBeanName = "web.server"
)

// Builder Web 主机构建器（基于 Gin）
type Builder struct {
	engine      *gin.Engine
	options     ServerOptions
	section     string
	controllers []any
	request     *RequestScope
	session     *SessionScope
}

// NewBuilder 创建 Web 构建器。引擎默认使用 Recovery 与作用域中间件。
func NewBuilder() *Builder {
	// 设置 Gin 为发布模式（默认）
	gin.SetMode(gin.ReleaseMode)

	b := &Builder{
		engine:  gin.New(),
		options: ServerOptions{Addr: ":8080"},
		request: NewRequestScope(),
		session: NewSessionScope(),
	}
	b.engine.Use(gin.Recovery(), Middleware(b.request, b.session))
	return b
}

// UseAddr 设置监听地址
func (b *Builder) UseAddr(addr string) *Builder {
	b.options.Addr = addr
	return b
}

// UsePort 设置端口
func (b *Builder) UsePort(port int) *Builder {
	b.options.Addr = fmt.Sprintf(":%d", port)
	return b
}

// UseOptions 替换全部服务选项
func (b *Builder) UseOptions(opts ServerOptions) *Builder {
	b.options = opts
	return b
}

// FromConfiguration 在创建服务时从配置节读取选项，例如 "server"
func (b *Builder) FromConfiguration(section string) *Builder {
	b.section = section
	return b
}

// Use 使用全局中间件
func (b *Builder) Use(middleware ...gin.HandlerFunc) *Builder {
	b.engine.Use(middleware...)
	return b
}

// AddControllers 注册控制器
// 传入参数可以是：
// 1. 控制器的构造函数 (例如 NewUserController) -> 推荐，支持构造函数注入
// 2. 控制器实例指针 (例如 &UserController{})
// 控制器作为单例 Bean 注册，服务启动时挂载路由
func (b *Builder) AddControllers(controllers ...any) *Builder {
	b.controllers = append(b.controllers, controllers...)
	return b
}

// Get 注册 GET 路由
func (b *Builder) Get(path string, handlers ...gin.HandlerFunc) *Builder {
	b.engine.GET(path, handlers...)
	return b
}

// Post 注册 POST 路由
func (b *Builder) Post(path string, handlers ...gin.HandlerFunc) *Builder {
	b.engine.POST(path, handlers...)
	return b
}

// Put 注册 PUT 路由
func (b *Builder) Put(path string, handlers ...gin.HandlerFunc) *Builder {
	b.engine.PUT(path, handlers...)
	return b
}

// Delete 注册 DELETE 路由
func (b *Builder) Delete(path string, handlers ...gin.HandlerFunc) *Builder {
	b.engine.DELETE(path, handlers...)
	return b
}

// Group 创建路由组
func (b *Builder) Group(relativePath string, handlers ...gin.HandlerFunc) *gin.RouterGroup {
	return b.engine.Group(relativePath, handlers...)
}

// StaticFS 服务静态文件系统
func (b *Builder) StaticFS(relativePath string, fs http.FileSystem) *Builder {
	b.engine.StaticFS(relativePath, fs)
	return b
}

// NoRoute 处理 404
func (b *Builder) NoRoute(handlers ...gin.HandlerFunc) *Builder {
	b.engine.NoRoute(handlers...)
	return b
}

// Engine 获取 Gin 引擎（用于高级定制）
func (b *Builder) Engine() *gin.Engine {
	return b.engine
}

// RequestScope 返回请求作用域
func (b *Builder) RequestScope() *RequestScope {
	return b.request
}

// SessionScope 返回会话作用域
func (b *Builder) SessionScope() *SessionScope {
	return b.session
}

func (b *Builder) newServer(engine *gin.Engine, logger logging.Logger, cfg config.Configuration) (*Server, error) {
	opts := b.options
	if b.section != "" {
		if _, ok := cfg.Lookup(b.section); ok {
			if err := cfg.Bind(b.section, &opts); err != nil {
				return nil, fmt.Errorf("web: %w", err)
			}
		}
	}
	return NewServer(engine, opts, logger.WithCategory("web")), nil
}

// register 注册作用域、引擎、服务与控制器
func (b *Builder) register(f *di.DefaultBeanFactory) error {
	if err := f.RegisterScope(ScopeRequest, b.request); err != nil {
		return err
	}
	if err := f.RegisterScope(ScopeSession, b.session); err != nil {
		return err
	}
	if err := f.RegisterBeanDefinition(EngineBeanName, di.NewBeanDefinition(nil,
		di.WithInstance(b.engine), di.WithDescription("gin engine"))); err != nil {
		return err
	}
	if err := f.RegisterBeanDefinition(ServerBeanName, di.DefineFunc(b.newServer,
		di.WithDescription("http server"))); err != nil {
		return err
	}
	for _, ctrl := range b.controllers {
		name, err := di.RegisterAuto(f, "", ctrl, di.WithSingleton())
		if err != nil {
			return fmt.Errorf("web: failed to register controller %T: %w", ctrl, err)
		}
		typ, err := f.Type(name)
		if err != nil {
			return err
		}
		if !typ.Implements(di.TypeOf[Controller]()) {
			return fmt.Errorf("web: %v does not implement web.Controller", typ)
		}
	}
	return nil
}
