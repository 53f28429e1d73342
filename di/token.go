package di

import (
	"fmt"
	"reflect"
)

// TypeOf 获取类型 T 的 reflect.Type（泛型辅助函数）
//
// 示例：
//
//	userServiceType := di.TypeOf[UserService]()
//	names := factory.BeanNamesForType(userServiceType)
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Get 按名称获取 Bean，并要求其可赋值给 T。
//
// 示例：
//
//	svc, err := di.Get[*UserService](factory, "userService")
func Get[T any](f BeanFactory, name string) (T, error) {
	var zero T
	obj, err := f.GetBeanOfType(name, TypeOf[T]())
	if err != nil {
		return zero, err
	}
	return obj.(T), nil
}

// GetByType 获取唯一可赋值给 T 的 Bean。
func GetByType[T any](f BeanFactory) (T, error) {
	var zero T
	obj, err := f.GetBeanByType(TypeOf[T]())
	if err != nil {
		return zero, err
	}
	return obj.(T), nil
}

// MustGet 与 Get 相同，失败时 panic。
func MustGet[T any](f BeanFactory, name string) T {
	v, err := Get[T](f, name)
	if err != nil {
		panic(fmt.Sprintf("di: MustGet[%v](%q): %v", TypeOf[T](), name, err))
	}
	return v
}

// BeansOf 返回所有可赋值给 T 的 Bean，键为 Bean 名称。
func BeansOf[T any](f ListableBeanFactory) (map[string]T, error) {
	beans, err := f.BeansOfType(TypeOf[T]())
	if err != nil {
		return nil, err
	}
	out := make(map[string]T, len(beans))
	for name, obj := range beans {
		out[name] = obj.(T)
	}
	return out, nil
}
