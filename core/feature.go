package core

import (
	"reflect"
	"sync"
)

// FeatureCollection 是按类型索引的特性集合，
// 集成模块用它在多个 Option 之间共享构建期状态。
type FeatureCollection struct {
	features sync.Map
}

// Set 以值的动态类型注册特性
func (fc *FeatureCollection) Set(feature any) {
	fc.features.Store(reflect.TypeOf(feature), feature)
}

// Get 获取一个特性
func (fc *FeatureCollection) Get(typ reflect.Type) (any, bool) {
	return fc.features.Load(typ)
}

// GetFeature 获取类型为 T 的特性，不存在时返回零值与 false
func GetFeature[T any](ac *ApplicationContext) (T, bool) {
	var zero T
	// T 为接口时 reflect.TypeOf(zero) 为 nil
	if val, ok := ac.Features.Get(reflect.TypeOf((*T)(nil)).Elem()); ok {
		return val.(T), true
	}
	return zero, false
}

// GetOrCreateFeature 获取类型为 T 的特性，不存在时用 create 创建并保存
func GetOrCreateFeature[T any](ac *ApplicationContext, create func() T) T {
	if v, ok := GetFeature[T](ac); ok {
		return v
	}
	v := create()
	ac.Features.Set(v)
	return v
}
