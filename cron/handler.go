package cron

import (
	"context"
	"fmt"
	"reflect"

	"github.com/gocrud/beans/logging"
)

// jobDefinition 任务定义
type jobDefinition struct {
	spec    string
	name    string
	handler any
}

var (
	errorType   = reflect.TypeFor[error]()
	contextType = reflect.TypeFor[context.Context]()
)

// wrapHandler 将任务处理器适配为 func()。支持 func()、func() error，
// 以及参数从容器按类型解析的任意函数（context.Context 参数得到 Background）。
// 最后一个返回值为 error 时失败会被记录。
func (s *Scheduler) wrapHandler(name string, handler any) (func(), error) {
	switch h := handler.(type) {
	case func():
		return h, nil
	case func() error:
		return func() { s.report(name, h()) }, nil
	}

	fv := reflect.ValueOf(handler)
	ft := fv.Type()
	if ft.Kind() != reflect.Func {
		return nil, fmt.Errorf("cron: handler of job '%s' must be a function, got %v", name, ft)
	}
	for i := 0; i < ft.NumIn(); i++ {
		if ft.In(i) != contextType && s.factory == nil {
			return nil, fmt.Errorf("cron: job '%s' needs a bean factory to resolve %v", name, ft.In(i))
		}
	}

	return func() {
		args := make([]reflect.Value, ft.NumIn())
		for i := range args {
			pt := ft.In(i)
			if pt == contextType {
				args[i] = reflect.ValueOf(context.Background())
				continue
			}
			obj, err := s.factory.GetBeanByType(pt)
			if err != nil {
				s.logger.Error("Failed to resolve cron job parameter",
					logging.Field{Key: "job", Value: name},
					logging.Field{Key: "index", Value: i},
					logging.Field{Key: "type", Value: pt.String()},
					logging.Field{Key: "error", Value: err.Error()})
				return
			}
			args[i] = reflect.ValueOf(obj)
		}
		out := fv.Call(args)
		if n := len(out); n > 0 && ft.Out(n-1) == errorType && !out[n-1].IsNil() {
			s.report(name, out[n-1].Interface().(error))
		}
	}, nil
}

func (s *Scheduler) report(name string, err error) {
	if err != nil {
		s.logger.Error("Cron job failed",
			logging.Field{Key: "job", Value: name},
			logging.Field{Key: "error", Value: err.Error()})
	}
}
