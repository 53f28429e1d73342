package di_test

import (
	"context"
	"testing"

	"github.com/gocrud/beans/di"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// conversationScope 从 ctx 中取出当前会话对应的 SimpleScope。
type conversationScope struct{}

type conversationKey struct{}

func withConversation(ctx context.Context, s *di.SimpleScope) context.Context {
	return context.WithValue(ctx, conversationKey{}, s)
}

func (conversationScope) current(ctx context.Context) *di.SimpleScope {
	s, _ := ctx.Value(conversationKey{}).(*di.SimpleScope)
	return s
}

func (c conversationScope) Get(ctx context.Context, name string, factory di.ObjectFactory) (any, error) {
	return c.current(ctx).Get(ctx, name, factory)
}

func (c conversationScope) Remove(ctx context.Context, name string) any {
	return c.current(ctx).Remove(ctx, name)
}

func (c conversationScope) RegisterDestructionCallback(ctx context.Context, name string, cb func()) {
	c.current(ctx).RegisterDestructionCallback(ctx, name, cb)
}

func (c conversationScope) ConversationID(ctx context.Context) string {
	return c.current(ctx).ConversationID(ctx)
}

func TestCustomScopeSharesWithinContext(t *testing.T) {
	var log []string
	f := di.NewBeanFactory()
	require.NoError(t, f.RegisterScope("conversation", conversationScope{}))
	require.NoError(t, f.RegisterBeanDefinition("cart", di.DefineFunc(func() *closer {
		return &closer{name: "cart", log: &log}
	}, di.WithScope("conversation"))))

	s1 := di.NewSimpleScope("c1")
	s2 := di.NewSimpleScope("c2")
	ctx1 := withConversation(context.Background(), s1)
	ctx2 := withConversation(context.Background(), s2)

	a, err := f.GetBeanWithContext(ctx1, "cart")
	require.NoError(t, err)
	b, err := f.GetBeanWithContext(ctx1, "cart")
	require.NoError(t, err)
	c, err := f.GetBeanWithContext(ctx2, "cart")
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, 1, s1.Len())

	require.NoError(t, s1.Destroy())
	assert.Equal(t, []string{"cart"}, log)
	assert.Equal(t, 0, s1.Len())

	// 单例销毁不影响作用域对象
	require.NoError(t, f.DestroySingletons())
	assert.Equal(t, []string{"cart"}, log)
	assert.Equal(t, 1, s2.Len())
}

func TestDestroyScopedBean(t *testing.T) {
	var log []string
	f := di.NewBeanFactory()
	require.NoError(t, f.RegisterScope("conversation", conversationScope{}))
	require.NoError(t, f.RegisterBeanDefinition("cart", di.DefineFunc(func() *closer {
		return &closer{name: "cart", log: &log}
	}, di.WithScope("conversation"))))

	s := di.NewSimpleScope("c1")
	ctx := withConversation(context.Background(), s)
	_, err := f.GetBeanWithContext(ctx, "cart")
	require.NoError(t, err)

	require.NoError(t, f.DestroyScopedBean(ctx, "cart"))
	assert.Equal(t, []string{"cart"}, log)
	assert.Equal(t, 0, s.Len())

	require.NoError(t, s.Destroy())
	assert.Equal(t, []string{"cart"}, log)
}

func TestSimpleScopeDestroyReverseOrder(t *testing.T) {
	s := di.NewSimpleScope("order")
	ctx := context.Background()
	var order []string
	for _, name := range []string{"a", "b", "c"} {
		_, err := s.Get(ctx, name, func(context.Context) (any, error) { return &Repo{DSN: name}, nil })
		require.NoError(t, err)
		s.RegisterDestructionCallback(ctx, name, func() { order = append(order, name) })
	}
	s.RegisterDestructionCallback(ctx, "panics", func() { panic("bad callback") })

	err := s.Destroy()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad callback")
	assert.Equal(t, []string{"c", "b", "a"}, order)
	assert.Equal(t, "order", s.ConversationID(ctx))
}
