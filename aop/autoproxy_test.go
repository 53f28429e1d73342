package aop_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/gocrud/beans/aop"
	"github.com/gocrud/beans/di"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type plainBean struct{}

func (plainBean) Name() string { return "plain" }

func TestAutoProxyCreator(t *testing.T) {
	var journal []string
	f := di.NewBeanFactory()
	f.AddBeanPostProcessor(aop.NewAutoProxyCreator(
		aop.WithBindings(greeterBindings()),
		aop.WithAdvisors(aop.NewAdvisor(aop.NameMatch("Greet"), before(&journal, "audit"))),
	))
	require.NoError(t, f.RegisterBeanDefinition("greeter", di.Define[*englishGreeter]()))
	require.NoError(t, f.RegisterBeanDefinition("plain", di.Define[*plainBean]()))

	g, err := di.Get[Greeter](f, "greeter")
	require.NoError(t, err)
	assert.IsType(t, greeterProxy{}, g)
	out, err := g.Greet("gopher")
	require.NoError(t, err)
	assert.Equal(t, "Hello, gopher", out)
	assert.Equal(t, []string{"audit:Greet"}, journal)

	// 没有匹配方法的 Bean 不会被代理
	plain, err := f.GetBean("plain")
	require.NoError(t, err)
	assert.IsType(t, &plainBean{}, plain)

	// 单例代理只创建一次
	again, err := di.Get[Greeter](f, "greeter")
	require.NoError(t, err)
	assert.Equal(t, g, again)
}

func TestAutoProxyWithoutBindingUsesDynamicProxy(t *testing.T) {
	f := di.NewBeanFactory()
	f.AddBeanPostProcessor(aop.NewAutoProxyCreator(
		aop.WithAdvisors(aop.NewAdvisor(aop.NameMatch("Greet"), aop.Before(func(reflect.Method, []any, any) error { return nil }))),
	))
	require.NoError(t, f.RegisterBeanDefinition("greeter", di.Define[*englishGreeter]()))

	obj, err := f.GetBean("greeter")
	require.NoError(t, err)
	p, ok := obj.(*aop.Proxy)
	require.True(t, ok)
	out, err := aop.Call[string](p, "Greet", "go")
	require.NoError(t, err)
	assert.Equal(t, "Hello, go", out)
}

type Ping interface {
	Ping() string
}

type Pong interface {
	Pong() string
}

type pingService struct {
	Partner Pong
}

func (s *pingService) Ping() string { return "ping" }

type pongService struct {
	Partner Ping
}

func (s *pongService) Pong() string { return "pong" }

type pingProxy struct {
	p *aop.Proxy
}

func (x pingProxy) Ping() string { return aop.MustCall[string](x.p, "Ping") }

func TestEarlyProxyInCircularReference(t *testing.T) {
	var journal []string
	bindings := aop.NewBindings()
	aop.Bind[Ping](bindings, func(p *aop.Proxy) Ping { return pingProxy{p} })

	f := di.NewBeanFactory()
	f.AddBeanPostProcessor(aop.NewAutoProxyCreator(
		aop.WithBindings(bindings),
		aop.WithAdvisors(aop.NewAdvisor(aop.NameMatch("Ping"), before(&journal, "trace"))),
	))
	require.NoError(t, f.RegisterBeanDefinition("ping", di.Define[*pingService](di.WithRef("Partner", "pong"))))
	require.NoError(t, f.RegisterBeanDefinition("pong", di.Define[*pongService](di.WithRef("Partner", "ping"))))

	ping, err := f.GetBean("ping")
	require.NoError(t, err)
	pong, err := di.Get[*pongService](f, "pong")
	require.NoError(t, err)

	// pong 持有的早期引用就是最终暴露的代理
	assert.IsType(t, pingProxy{}, ping)
	assert.Equal(t, ping, pong.Partner)
	assert.Equal(t, "ping", pong.Partner.Ping())
	assert.Equal(t, []string{"trace:Ping"}, journal)
}

func TestAdvisorBeansAreDiscovered(t *testing.T) {
	var journal []string
	f := di.NewBeanFactory()
	apc := aop.NewAutoProxyCreator(aop.WithBindings(greeterBindings()))
	apc.SetBeanFactory(f)
	f.AddBeanPostProcessor(apc)

	second := aop.NewAdvisor(aop.TruePointcut, before(&journal, "second"))
	second.Order = 2
	first := aop.NewAdvisor(aop.MustParseExpression("execution(* aop_test.*.Greet(..))"), before(&journal, "first"))
	first.Order = 1
	require.NoError(t, f.RegisterBeanDefinition("second", di.Define[*aop.Advisor](di.WithInstance(second))))
	require.NoError(t, f.RegisterBeanDefinition("first", di.Define[*aop.Advisor](di.WithInstance(first))))
	require.NoError(t, f.RegisterBeanDefinition("greeter", di.Define[*englishGreeter]()))

	require.NoError(t, apc.LoadAdvisors(context.Background()))

	// Advisor Bean 本身不会被代理
	adv, err := f.GetBean("first")
	require.NoError(t, err)
	assert.Same(t, first, adv)

	g, err := di.Get[Greeter](f, "greeter")
	require.NoError(t, err)
	_, err = g.Greet("x")
	require.NoError(t, err)
	assert.Equal(t, []string{"first:Greet", "second:Greet"}, journal)
}

// Cart 是会话级购物车
type Cart interface {
	Add(ctx context.Context, item string) (int, error)
}

type cart struct {
	items []string
}

func (c *cart) Add(_ context.Context, item string) (int, error) {
	c.items = append(c.items, item)
	return len(c.items), nil
}

type cartProxy struct {
	p *aop.Proxy
}

func (c cartProxy) Add(ctx context.Context, item string) (int, error) {
	return aop.Call[int](c.p, "Add", ctx, item)
}

type checkout struct {
	cart Cart
}

func newCheckout(c Cart) *checkout { return &checkout{cart: c} }

type conversationKey struct{}

// conversationScope 从 ctx 中取出当前会话
type conversationScope struct{}

func (conversationScope) current(ctx context.Context) *di.SimpleScope {
	return ctx.Value(conversationKey{}).(*di.SimpleScope)
}

func (s conversationScope) Get(ctx context.Context, name string, factory di.ObjectFactory) (any, error) {
	return s.current(ctx).Get(ctx, name, factory)
}

func (s conversationScope) Remove(ctx context.Context, name string) any {
	return s.current(ctx).Remove(ctx, name)
}

func (s conversationScope) RegisterDestructionCallback(ctx context.Context, name string, cb func()) {
	s.current(ctx).RegisterDestructionCallback(ctx, name, cb)
}

func (s conversationScope) ConversationID(ctx context.Context) string {
	return s.current(ctx).ConversationID(ctx)
}

func TestScopedProxy(t *testing.T) {
	f := di.NewBeanFactory()
	require.NoError(t, f.RegisterScope("conversation", conversationScope{}))
	require.NoError(t, f.RegisterBeanDefinition("cart", di.DefineFunc(func() *cart { return &cart{} },
		di.WithScope("conversation"))))
	require.NoError(t, f.RegisterBeanDefinition("checkout", di.DefineFunc(newCheckout)))

	bindings := aop.NewBindings()
	aop.Bind[Cart](bindings, func(p *aop.Proxy) Cart { return cartProxy{p} })
	require.NoError(t, aop.ScopedProxy(f, "cart", aop.NewProxyFactory(bindings, nil), di.TypeOf[Cart]()))
	assert.True(t, f.ContainsBeanDefinition(aop.ScopedTargetName("cart")))

	// 单例在没有会话的情况下注入代理
	co, err := di.Get[*checkout](f, "checkout")
	require.NoError(t, err)
	assert.IsType(t, cartProxy{}, co.cart)

	s1, s2 := di.NewSimpleScope("c1"), di.NewSimpleScope("c2")
	ctx1 := context.WithValue(context.Background(), conversationKey{}, s1)
	ctx2 := context.WithValue(context.Background(), conversationKey{}, s2)

	n, err := co.cart.Add(ctx1, "apple")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = co.cart.Add(ctx1, "pear")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = co.cart.Add(ctx2, "plum")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, s1.Len())

	err = aop.ScopedProxy(f, "checkout", nil, nil)
	assert.Error(t, err)
}
