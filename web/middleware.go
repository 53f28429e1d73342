package web

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocrud/beans/di"
	"github.com/gocrud/beans/logging"
	"github.com/google/uuid"
)

// SessionCookieName 是保存会话标识的 Cookie
const SessionCookieName = "BEANSSESSION"

// Middleware 为每个请求绑定请求作用域与会话作用域。
// 会话标识来自 BEANSSESSION Cookie，不存在时生成新的标识并写回。
// 请求结束后执行请求作用域的销毁回调，失败记录到 c.Errors。
func Middleware(request *RequestScope, session *SessionScope) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(SessionCookieName)
		if err != nil || id == "" {
			id = uuid.NewString()
			c.SetCookie(SessionCookieName, id, 0, "/", "", false, true)
		}

		ctx := WithSessionID(c.Request.Context(), id)
		ctx = request.Bind(ctx)
		c.Request = c.Request.WithContext(ctx)
		defer func() {
			if err := request.Complete(ctx); err != nil {
				_ = c.Error(err)
			}
		}()

		c.Next()
	}
}

// RequestLogger 以结构化字段记录每个请求
func RequestLogger(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		fields := []logging.Field{
			{Key: "method", Value: c.Request.Method},
			{Key: "path", Value: c.Request.URL.Path},
			{Key: "status", Value: c.Writer.Status()},
			{Key: "elapsed", Value: time.Since(started).String()},
		}
		if len(c.Errors) > 0 {
			fields = append(fields, logging.Field{Key: "error", Value: c.Errors.String()})
			logger.Warn("Request completed with errors", fields...)
			return
		}
		logger.Debug("Request completed", fields...)
	}
}

// BeanOf 在当前请求的 context 中按类型获取 Bean，请求与会话作用域的 Bean 由此取得
func BeanOf[T any](c *gin.Context, f *di.DefaultBeanFactory) (T, error) {
	var zero T
	obj, err := f.GetBeanByTypeWithContext(c.Request.Context(), di.TypeOf[T]())
	if err != nil {
		return zero, err
	}
	return obj.(T), nil
}

// Bean 在当前请求的 context 中按名称获取 Bean
func Bean[T any](c *gin.Context, f *di.DefaultBeanFactory, name string) (T, error) {
	var zero T
	obj, err := f.GetBeanWithContext(c.Request.Context(), name)
	if err != nil {
		return zero, err
	}
	v, ok := obj.(T)
	if !ok {
		return zero, fmt.Errorf("web: bean '%s' is %T, not %v", name, obj, di.TypeOf[T]())
	}
	return v, nil
}
