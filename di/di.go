package di

import (
	"fmt"
	"reflect"
)

// RegisterAuto 智能注册 Bean，返回使用的 Bean 名称。
// name 为空时按类型名首字母小写生成。
//
// 支持的输入 target 类型:
//  1. func(...) (T, error?) -> 以构造函数创建，声明类型为第一个返回值。
//  2. *Struct / 其他非函数值 -> 作为预先构建的实例注册，跳过实例化阶段，其余生命周期照常执行。
//  3. reflect.Type         -> 零参实例化（结构体指针），依赖通过属性填充。
func RegisterAuto(f *DefaultBeanFactory, name string, target any, opts ...Option) (string, error) {
	var def *BeanDefinition
	switch t := target.(type) {
	case nil:
		return "", newError(ErrCodeInvalidDefinition, name, "auto-registration target must not be nil")
	case reflect.Type:
		def = NewBeanDefinition(t, opts...)
	case *Constructor:
		def = DefineFunc(t, opts...)
	default:
		if reflect.TypeOf(target).Kind() == reflect.Func {
			def = DefineFunc(target, opts...)
		} else {
			def = NewBeanDefinition(nil, append([]Option{WithInstance(target)}, opts...)...)
		}
	}

	d := def.clone()
	if err := d.resolveType(); err != nil {
		return "", wrapError(err, ErrCodeInvalidDefinition, name, "unsupported auto-registration target %T", target)
	}
	if name == "" {
		name = typeBeanName(d.Type)
	}
	if err := f.RegisterBeanDefinition(name, d); err != nil {
		return "", err
	}
	return name, nil
}

// Register 注册类型为 T 的 Bean 并以类型名约定命名，失败时 panic。
// 适用于在程序启动阶段集中声明的定义。
func Register[T any](f *DefaultBeanFactory, opts ...Option) string {
	name, err := RegisterAuto(f, "", TypeOf[T](), opts...)
	if err != nil {
		panic(fmt.Sprintf("di: failed to register %v: %v", TypeOf[T](), err))
	}
	return name
}
