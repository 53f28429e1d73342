package config

import (
	"sync/atomic"
)

// ValueStore 以原子指针保存配置树，读取无锁，重新加载时整体替换
type ValueStore struct {
	value atomic.Pointer[map[string]any]
}

func NewValueStore() *ValueStore {
	s := &ValueStore{}
	s.Store(map[string]any{})
	return s
}

// Load 返回当前快照，调用方不得修改
func (s *ValueStore) Load() map[string]any {
	if p := s.value.Load(); p != nil {
		return *p
	}
	return nil
}

func (s *ValueStore) Store(data map[string]any) {
	s.value.Store(&data)
}
