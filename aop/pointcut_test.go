package aop_test

import (
	"reflect"
	"testing"

	"github.com/gocrud/beans/aop"
	"github.com/gocrud/beans/di"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func method(t *testing.T, typ reflect.Type, name string) reflect.Method {
	t.Helper()
	m, ok := typ.MethodByName(name)
	require.True(t, ok, name)
	return m
}

func TestNameMatchPointcut(t *testing.T) {
	typ := reflect.TypeOf(&englishGreeter{})
	pc := aop.NameMatch("Gre*", "Close")

	assert.True(t, pc.MatchesType(typ))
	assert.True(t, pc.MatchesMethod(method(t, typ, "Greet"), typ))
	assert.False(t, pc.MatchesMethod(method(t, typ, "Prefix"), typ))
}

func TestTypePointcut(t *testing.T) {
	typ := reflect.TypeOf(&englishGreeter{})

	byIface := aop.TypeMatch(di.TypeOf[Greeter]())
	assert.True(t, byIface.MatchesType(typ))
	assert.True(t, byIface.MatchesMethod(method(t, typ, "Greet"), typ))
	// 接口切点只匹配接口声明的方法
	assert.False(t, byIface.MatchesMethod(method(t, typ, "Prefix"), typ))

	byStruct := aop.TypeMatch(reflect.TypeOf(englishGreeter{}))
	assert.True(t, byStruct.MatchesType(typ))
	assert.True(t, byStruct.MatchesMethod(method(t, typ, "Prefix"), typ))

	other := aop.TypeMatch(reflect.TypeOf(counterBean{}))
	assert.False(t, other.MatchesType(typ))
}

func TestExpressionPointcut(t *testing.T) {
	typ := reflect.TypeOf(&englishGreeter{})
	greet := method(t, typ, "Greet")
	prefix := method(t, typ, "Prefix")

	tests := []struct {
		expr      string
		typeMatch bool
		greet     bool
		prefix    bool
	}{
		{"execution(* aop_test.*Greeter.Gre*(..))", true, true, false},
		{"execution(* *.*.*(..))", true, true, true},
		{"execution(string aop_test.englishGreeter.*(..))", true, true, true},
		{"execution(int aop_test.englishGreeter.*(..))", true, false, false},
		{"execution(* aop_test.englishGreeter.*())", true, false, true},
		{"execution(* aop_test.englishGreeter.*(*))", true, true, false},
		{"execution(* github.com/gocrud/beans/aop_test.englishGreeter.Greet(..))", true, true, false},
		{"execution(* service.*Service.Find*(..))", false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			pc, err := aop.ParseExpression(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.typeMatch, pc.MatchesType(typ))
			assert.Equal(t, tt.greet, pc.MatchesMethod(greet, typ))
			assert.Equal(t, tt.prefix, pc.MatchesMethod(prefix, typ))
		})
	}
}

func TestParseExpressionErrors(t *testing.T) {
	for _, expr := range []string{
		"call(* a.B.c(..))",
		"execution(a.B.c(..))",
		"execution(* a.B.c)",
		"execution(* B.c(..))",
		"execution(* a.[.c(..))",
	} {
		_, err := aop.ParseExpression(expr)
		assert.Error(t, err, expr)
	}
	assert.Panics(t, func() { aop.MustParseExpression("nope") })
}

func TestTruePointcut(t *testing.T) {
	typ := reflect.TypeOf(&englishGreeter{})
	assert.True(t, aop.TruePointcut.MatchesType(typ))
	assert.True(t, aop.TruePointcut.MatchesMethod(method(t, typ, "Prefix"), typ))
}
