package di

import (
	"fmt"
	"reflect"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Param 描述构造函数参数的元数据。
// Go 无法在运行时获得参数名，因此名称与限定名需要显式声明。
type Param struct {
	Name      string
	Qualifier string
	Optional  bool
}

// Constructor 是一个候选构造函数，形如 func(deps...) T 或 func(deps...) (T, error)。
type Constructor struct {
	fn     reflect.Value
	fnType reflect.Type
	params []Param
	err    error
}

// Ctor 包装构造函数。
func Ctor(fn any) *Constructor {
	c := &Constructor{}
	if fn == nil {
		c.err = fmt.Errorf("constructor is nil")
		return c
	}
	c.fn = reflect.ValueOf(fn)
	c.fnType = c.fn.Type()
	if c.fnType.Kind() != reflect.Func {
		c.err = fmt.Errorf("constructor must be a function, got %v", c.fnType)
		return c
	}
	c.params = make([]Param, c.fnType.NumIn())
	return c
}

// Params 按顺序声明参数名。
func (c *Constructor) Params(names ...string) *Constructor {
	for i, name := range names {
		if i < len(c.params) {
			c.params[i].Name = name
		}
	}
	return c
}

// Qualify 为第 index 个参数指定依赖的 Bean 名称。
func (c *Constructor) Qualify(index int, beanName string) *Constructor {
	if index >= 0 && index < len(c.params) {
		c.params[index].Qualifier = beanName
	}
	return c
}

// Optional 将第 index 个参数标记为可选，无法解析时注入零值。
func (c *Constructor) Optional(index int) *Constructor {
	if index >= 0 && index < len(c.params) {
		c.params[index].Optional = true
	}
	return c
}

// NumParams 返回参数个数。
func (c *Constructor) NumParams() int {
	return len(c.params)
}

// ParamType 返回第 i 个参数的类型。
func (c *Constructor) ParamType(i int) reflect.Type {
	return c.fnType.In(i)
}

// ResultType 返回构造结果的类型。
func (c *Constructor) ResultType() reflect.Type {
	return c.fnType.Out(0)
}

func (c *Constructor) validate() error {
	if c.err != nil {
		return c.err
	}
	if c.fnType.IsVariadic() {
		return fmt.Errorf("variadic constructor %v is not supported", c.fnType)
	}
	switch c.fnType.NumOut() {
	case 1:
	case 2:
		if c.fnType.Out(1) != errorType {
			return fmt.Errorf("second result of %v must be error", c.fnType)
		}
	default:
		return fmt.Errorf("constructor %v must return (T) or (T, error)", c.fnType)
	}
	return nil
}

func (c *Constructor) descriptor(i int) *DependencyDescriptor {
	p := c.params[i]
	return &DependencyDescriptor{
		Type:           c.fnType.In(i),
		Required:       !p.Optional,
		ParameterName:  p.Name,
		DependencyName: p.Qualifier,
		Index:          i,
	}
}

// invoke 调用构造函数，检查尾部 error 与空结果。
func (c *Constructor) invoke(args []reflect.Value) (obj any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("constructor panicked: %v", r)
		}
	}()
	results := c.fn.Call(args)
	if len(results) == 2 && !results[1].IsNil() {
		return nil, results[1].Interface().(error)
	}
	first := results[0]
	switch first.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if first.IsNil() {
			return nil, fmt.Errorf("constructor returned nil instance")
		}
	}
	return first.Interface(), nil
}

// invokeLifecycleMethod 按名称调用无参方法，方法可以返回 error。
func invokeLifecycleMethod(bean any, name string) (err error) {
	m := reflect.ValueOf(bean).MethodByName(name)
	if !m.IsValid() {
		return fmt.Errorf("method %s not found on %T", name, bean)
	}
	mt := m.Type()
	if mt.NumIn() != 0 {
		return fmt.Errorf("method %s on %T must take no arguments", name, bean)
	}
	if mt.NumOut() > 1 || (mt.NumOut() == 1 && mt.Out(0) != errorType) {
		return fmt.Errorf("method %s on %T must return nothing or error", name, bean)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("method %s panicked: %v", name, r)
		}
	}()
	out := m.Call(nil)
	if len(out) == 1 && !out[0].IsNil() {
		return out[0].Interface().(error)
	}
	return nil
}
