package aop

import (
	"fmt"
	"path"
	"reflect"
	"strings"
)

// ClassFilter 判断目标类型是否可能被增强。
type ClassFilter interface {
	MatchesType(t reflect.Type) bool
}

// MethodMatcher 判断目标类型上的某个方法是否被增强。
type MethodMatcher interface {
	MatchesMethod(m reflect.Method, t reflect.Type) bool
}

// Pointcut 由类型过滤与方法匹配组成。
type Pointcut interface {
	ClassFilter
	MethodMatcher
}

// Advisor 将切点与通知绑定。Order 较小的先执行。
type Advisor struct {
	Pointcut Pointcut
	Advice   Advice
	Order    int
}

// NewAdvisor 创建 Advisor，pointcut 为 nil 时匹配全部方法。
func NewAdvisor(pointcut Pointcut, advice Advice) *Advisor {
	return &Advisor{Pointcut: pointcut, Advice: advice}
}

func (a *Advisor) matches(m reflect.Method, t reflect.Type) bool {
	if a.Pointcut == nil {
		return true
	}
	return a.Pointcut.MatchesType(t) && a.Pointcut.MatchesMethod(m, t)
}

// matchesAny 报告 t 上是否至少有一个方法被匹配。
func (a *Advisor) matchesAny(t reflect.Type) bool {
	if a.Pointcut != nil && !a.Pointcut.MatchesType(t) {
		return false
	}
	for i := 0; i < t.NumMethod(); i++ {
		if a.matches(t.Method(i), t) {
			return true
		}
	}
	return false
}

type truePointcut struct{}

func (truePointcut) MatchesType(reflect.Type) bool                  { return true }
func (truePointcut) MatchesMethod(reflect.Method, reflect.Type) bool { return true }

// TruePointcut 匹配所有类型的所有方法。
var TruePointcut Pointcut = truePointcut{}

// NameMatchPointcut 按方法名匹配，支持 path.Match 风格的通配符。
type NameMatchPointcut struct {
	Patterns []string
}

// NameMatch 创建方法名切点。
func NameMatch(patterns ...string) *NameMatchPointcut {
	return &NameMatchPointcut{Patterns: patterns}
}

func (p *NameMatchPointcut) MatchesType(reflect.Type) bool { return true }

func (p *NameMatchPointcut) MatchesMethod(m reflect.Method, _ reflect.Type) bool {
	for _, pattern := range p.Patterns {
		if ok, _ := path.Match(pattern, m.Name); ok {
			return true
		}
	}
	return false
}

// TypePointcut 匹配给定类型。接口类型只匹配接口中声明的方法。
type TypePointcut struct {
	Types []reflect.Type
}

// TypeMatch 创建类型切点。
func TypeMatch(types ...reflect.Type) *TypePointcut {
	return &TypePointcut{Types: types}
}

func (p *TypePointcut) MatchesType(t reflect.Type) bool {
	for _, want := range p.Types {
		if typeMatches(t, want) {
			return true
		}
	}
	return false
}

func (p *TypePointcut) MatchesMethod(m reflect.Method, t reflect.Type) bool {
	for _, want := range p.Types {
		if !typeMatches(t, want) {
			continue
		}
		if want.Kind() != reflect.Interface {
			return true
		}
		if _, ok := want.MethodByName(m.Name); ok {
			return true
		}
	}
	return false
}

func typeMatches(t, want reflect.Type) bool {
	switch {
	case t == want:
		return true
	case want.Kind() == reflect.Interface:
		return t.Implements(want)
	case t.Kind() == reflect.Ptr:
		return t.Elem() == want
	}
	return false
}

// ExpressionPointcut 是简化的 execution 表达式：
//
//	execution(<返回类型> <包>.<类型>.<方法>(<参数>))
//
// 各段支持 path.Match 通配符，参数为 ".." 时匹配任意个数，
// 为空时要求无参数，否则按逗号分隔的个数匹配。
//
// 示例：
//
//	execution(* service.*Service.Find*(..))
type ExpressionPointcut struct {
	Expression string

	result    string
	pkg       string
	typeName  string
	method    string
	anyArgs   bool
	argsCount int
}

// ParseExpression 解析 execution 表达式。
func ParseExpression(expr string) (*ExpressionPointcut, error) {
	e := strings.TrimSpace(expr)
	body, ok := strings.CutPrefix(e, "execution(")
	if !ok || !strings.HasSuffix(body, ")") {
		return nil, fmt.Errorf("aop: expression %q must have the form execution(...)", expr)
	}
	body = strings.TrimSpace(strings.TrimSuffix(body, ")"))

	result, signature, ok := strings.Cut(body, " ")
	if !ok {
		return nil, fmt.Errorf("aop: expression %q is missing a return type pattern", expr)
	}
	signature = strings.TrimSpace(signature)

	open := strings.Index(signature, "(")
	if open < 0 || !strings.HasSuffix(signature, ")") {
		return nil, fmt.Errorf("aop: expression %q is missing a parameter list", expr)
	}
	declaring, args := signature[:open], strings.TrimSpace(signature[open+1:len(signature)-1])

	parts := strings.Split(declaring, ".")
	if len(parts) < 3 {
		return nil, fmt.Errorf("aop: expression %q must name <package>.<type>.<method>", expr)
	}

	p := &ExpressionPointcut{
		Expression: expr,
		result:     result,
		method:     parts[len(parts)-1],
		typeName:   parts[len(parts)-2],
		pkg:        strings.Join(parts[:len(parts)-2], "."),
	}
	switch args {
	case "..":
		p.anyArgs = true
	case "":
	default:
		p.argsCount = len(strings.Split(args, ","))
	}
	for _, pattern := range []string{p.result, p.pkg, p.typeName, p.method} {
		if _, err := path.Match(pattern, ""); err != nil {
			return nil, fmt.Errorf("aop: invalid pattern %q in %q: %w", pattern, expr, err)
		}
	}
	return p, nil
}

// MustParseExpression 与 ParseExpression 相同，失败时 panic。
func MustParseExpression(expr string) *ExpressionPointcut {
	p, err := ParseExpression(expr)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *ExpressionPointcut) MatchesType(t reflect.Type) bool {
	base := t
	if base.Kind() == reflect.Ptr {
		base = base.Elem()
	}
	if !glob(p.typeName, base.Name()) {
		return false
	}
	pkgPath := base.PkgPath()
	return glob(p.pkg, pkgPath) || glob(p.pkg, path.Base(pkgPath))
}

func (p *ExpressionPointcut) MatchesMethod(m reflect.Method, t reflect.Type) bool {
	if !glob(p.method, m.Name) {
		return false
	}
	ft := m.Type
	// 从具体类型取得的方法第一个参数是接收者
	params := ft.NumIn()
	if m.Func.IsValid() {
		params--
	}
	if !p.anyArgs && params != p.argsCount {
		return false
	}
	if p.result == "*" {
		return true
	}
	outs := ft.NumOut()
	if outs > 0 && ft.Out(outs-1) == errorType {
		outs--
	}
	if outs == 0 {
		return p.result == "void"
	}
	return glob(p.result, ft.Out(0).String())
}

func (p *ExpressionPointcut) String() string {
	return p.Expression
}

func glob(pattern, name string) bool {
	if pattern == "*" {
		return true
	}
	ok, _ := path.Match(pattern, name)
	return ok
}
