package aop

import (
	"fmt"
	"reflect"
	"slices"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// MethodInvocation 是一次被拦截的方法调用，游标从 -1 开始沿拦截链推进。
type MethodInvocation struct {
	Target any
	Method reflect.Method
	Args   []any

	chain  []Advice
	cursor int
}

func newMethodInvocation(target any, method reflect.Method, args []any, chain []Advice) *MethodInvocation {
	return &MethodInvocation{
		Target: target,
		Method: method,
		Args:   args,
		chain:  chain,
		cursor: -1,
	}
}

// Proceed 执行下一个通知，链尾调用目标方法。
// 返回值不包含末尾的 error，该错误作为调用失败返回。
func (mi *MethodInvocation) Proceed() ([]any, error) {
	if mi.cursor == len(mi.chain)-1 {
		return mi.invokeTarget()
	}
	mi.cursor++
	advice := mi.chain[mi.cursor]

	switch advice.Kind {
	case AdviceBefore:
		if advice.before == nil {
			return nil, fmt.Errorf("%w: %s advice has no handler", ErrUnknownAdvice, advice.Kind)
		}
		if err := advice.before.Before(mi.Method, mi.Args, mi.Target); err != nil {
			return nil, err
		}
		return mi.Proceed()

	case AdviceAfterReturning:
		if advice.afterReturning == nil {
			return nil, fmt.Errorf("%w: %s advice has no handler", ErrUnknownAdvice, advice.Kind)
		}
		results, err := mi.Proceed()
		if err != nil {
			return results, err
		}
		// 通知只能观察返回值，修改副本不影响调用方
		if err := advice.afterReturning.AfterReturning(slices.Clone(results), mi.Method, mi.Args, mi.Target); err != nil {
			return nil, err
		}
		return results, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownAdvice, advice.Kind)
	}
}

func (mi *MethodInvocation) invokeTarget() ([]any, error) {
	ft := mi.Method.Type
	in, err := argValues(ft, mi.Args)
	if err != nil {
		return nil, fmt.Errorf("aop: %T.%s: %w", mi.Target, mi.Method.Name, err)
	}
	out := mi.Method.Func.Call(append([]reflect.Value{reflect.ValueOf(mi.Target)}, in...))
	return splitResults(ft, out)
}

// argValues 按方法签名转换参数，ft 的第一个参数是接收者。
func argValues(ft reflect.Type, args []any) ([]reflect.Value, error) {
	n := ft.NumIn() - 1
	variadic := ft.IsVariadic()
	if (!variadic && len(args) != n) || (variadic && len(args) < n-1) {
		return nil, fmt.Errorf("expects %d arguments, got %d", n, len(args))
	}
	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		var pt reflect.Type
		if variadic && i >= n-1 {
			pt = ft.In(n).Elem()
		} else {
			pt = ft.In(i + 1)
		}
		if arg == nil {
			in[i] = reflect.Zero(pt)
			continue
		}
		v := reflect.ValueOf(arg)
		if !v.Type().AssignableTo(pt) {
			return nil, fmt.Errorf("argument %d: %T is not assignable to %v", i, arg, pt)
		}
		in[i] = v
	}
	return in, nil
}

func splitResults(ft reflect.Type, out []reflect.Value) ([]any, error) {
	var err error
	if n := len(out); n > 0 && ft.Out(n-1) == errorType {
		if e := out[n-1]; !e.IsNil() {
			err = e.Interface().(error)
		}
		out = out[:n-1]
	}
	results := make([]any, len(out))
	for i, v := range out {
		results[i] = v.Interface()
	}
	return results, err
}
