package web

import (
	"context"
	"errors"
	"sync"

	"github.com/gocrud/beans/di"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

const (
	// ScopeRequest 是请求作用域的名称
	ScopeRequest = "request"
	// ScopeSession 是会话作用域的名称
	ScopeSession = "session"
	// DefaultSessionID 是上下文中没有会话标识时使用的会话
	DefaultSessionID = "default-session"
)

// ErrNoRequest 表示在请求之外获取请求作用域的 Bean
var ErrNoRequest = errors.New("web: no request bound to context")

type requestKey struct{}

type sessionKey struct{}

// RequestScope 将 Bean 保存在随 context 传递的请求存储中。
// 每个请求由 Bind 开始，由 Complete 结束。
type RequestScope struct{}

func NewRequestScope() *RequestScope {
	return &RequestScope{}
}

// Bind 为新请求创建存储，以 uuid 作为会话标识
func (s *RequestScope) Bind(ctx context.Context) context.Context {
	return context.WithValue(ctx, requestKey{}, di.NewSimpleScope(uuid.NewString()))
}

// Complete 按逆序执行请求内 Bean 的销毁回调
func (s *RequestScope) Complete(ctx context.Context) error {
	bucket := s.bucket(ctx)
	if bucket == nil {
		return nil
	}
	return bucket.Destroy()
}

func (s *RequestScope) bucket(ctx context.Context) *di.SimpleScope {
	bucket, _ := ctx.Value(requestKey{}).(*di.SimpleScope)
	return bucket
}

func (s *RequestScope) Get(ctx context.Context, name string, factory di.ObjectFactory) (any, error) {
	bucket := s.bucket(ctx)
	if bucket == nil {
		return nil, ErrNoRequest
	}
	return bucket.Get(ctx, name, factory)
}

func (s *RequestScope) Remove(ctx context.Context, name string) any {
	if bucket := s.bucket(ctx); bucket != nil {
		return bucket.Remove(ctx, name)
	}
	return nil
}

func (s *RequestScope) RegisterDestructionCallback(ctx context.Context, name string, callback func()) {
	if bucket := s.bucket(ctx); bucket != nil {
		bucket.RegisterDestructionCallback(ctx, name, callback)
	}
}

func (s *RequestScope) ConversationID(ctx context.Context) string {
	if bucket := s.bucket(ctx); bucket != nil {
		return bucket.ConversationID(ctx)
	}
	return ""
}

// WithSessionID 返回携带会话标识的 context
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

// SessionID 返回 context 中的会话标识，没有时为 DefaultSessionID
func SessionID(ctx context.Context) string {
	if id, ok := ctx.Value(sessionKey{}).(string); ok && id != "" {
		return id
	}
	return DefaultSessionID
}

// SessionScope 按会话标识在内存中保存 Bean，直到 EndSession
type SessionScope struct {
	mu       sync.Mutex
	sessions map[string]*di.SimpleScope
}

func NewSessionScope() *SessionScope {
	return &SessionScope{sessions: make(map[string]*di.SimpleScope)}
}

func (s *SessionScope) session(ctx context.Context, create bool) *di.SimpleScope {
	id := SessionID(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket, ok := s.sessions[id]
	if !ok && create {
		bucket = di.NewSimpleScope(id)
		s.sessions[id] = bucket
	}
	return bucket
}

func (s *SessionScope) Get(ctx context.Context, name string, factory di.ObjectFactory) (any, error) {
	return s.session(ctx, true).Get(ctx, name, factory)
}

func (s *SessionScope) Remove(ctx context.Context, name string) any {
	if bucket := s.session(ctx, false); bucket != nil {
		return bucket.Remove(ctx, name)
	}
	return nil
}

func (s *SessionScope) RegisterDestructionCallback(ctx context.Context, name string, callback func()) {
	s.session(ctx, true).RegisterDestructionCallback(ctx, name, callback)
}

func (s *SessionScope) ConversationID(ctx context.Context) string {
	return SessionID(ctx)
}

// Len 返回活动会话的数量
func (s *SessionScope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// EndSession 结束会话并执行其中 Bean 的销毁回调
func (s *SessionScope) EndSession(id string) error {
	s.mu.Lock()
	bucket, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return bucket.Destroy()
}

// Close 结束全部会话
func (s *SessionScope) Close() error {
	s.mu.Lock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	var errs error
	for _, id := range ids {
		errs = multierr.Append(errs, s.EndSession(id))
	}
	return errs
}
