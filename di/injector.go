package di

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

// propertySetter 描述一个可写属性：SetXxx 方法或导出字段。
type propertySetter struct {
	name         string
	typ          reflect.Type
	methodName   string
	returnsError bool
	fieldIndex   []int
}

// propertyAccessor 是某个类型预先计算的属性写入表。
type propertyAccessor struct {
	typ     reflect.Type
	setters map[string]*propertySetter
}

// accessorCache 按类型缓存属性写入表，由 Bean 工厂持有。
type accessorCache struct {
	m sync.Map
}

func (c *accessorCache) accessorFor(t reflect.Type) *propertyAccessor {
	if v, ok := c.m.Load(t); ok {
		return v.(*propertyAccessor)
	}
	a := buildAccessor(t)
	actual, _ := c.m.LoadOrStore(t, a)
	return actual.(*propertyAccessor)
}

// buildAccessor 收集 t 上的 SetXxx(v) 方法与导出字段，方法优先。
// 字段可通过 `bean:"name"` 标签指定属性名。
func buildAccessor(t reflect.Type) *propertyAccessor {
	a := &propertyAccessor{typ: t, setters: make(map[string]*propertySetter)}

	st := t
	if st.Kind() == reflect.Ptr {
		st = st.Elem()
	}
	if st.Kind() == reflect.Struct && t.Kind() == reflect.Ptr {
		for _, f := range reflect.VisibleFields(st) {
			if !f.IsExported() || f.Anonymous {
				continue
			}
			name := decapitalize(f.Name)
			if tag, ok := f.Tag.Lookup("bean"); ok {
				if tag == "-" {
					continue
				}
				if tag != "" {
					name = tag
				}
			}
			a.setters[name] = &propertySetter{name: name, typ: f.Type, fieldIndex: f.Index}
		}
	}

	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if !strings.HasPrefix(m.Name, "Set") || len(m.Name) <= 3 {
			continue
		}
		// 方法类型包含接收者
		mt := m.Type
		if mt.NumIn() != 2 {
			continue
		}
		if mt.NumOut() > 1 || (mt.NumOut() == 1 && mt.Out(0) != errorType) {
			continue
		}
		name := decapitalize(m.Name[3:])
		a.setters[name] = &propertySetter{
			name:         name,
			typ:          mt.In(1),
			methodName:   m.Name,
			returnsError: mt.NumOut() == 1,
		}
	}
	return a
}

func (a *propertyAccessor) setter(name string) (*propertySetter, bool) {
	s, ok := a.setters[name]
	if !ok {
		s, ok = a.setters[decapitalize(name)]
	}
	return s, ok
}

// set 将已转换的值写入 target。
func (s *propertySetter) set(target reflect.Value, value reflect.Value) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("setting property %s panicked: %v", s.name, r)
		}
	}()
	if s.methodName != "" {
		out := target.MethodByName(s.methodName).Call([]reflect.Value{value})
		if s.returnsError && !out[0].IsNil() {
			return out[0].Interface().(error)
		}
		return nil
	}
	if target.Kind() != reflect.Ptr || target.IsNil() {
		return fmt.Errorf("cannot set field %s on non-pointer %v", s.name, target.Type())
	}
	field := target.Elem().FieldByIndex(s.fieldIndex)
	field.Set(value)
	return nil
}

// decapitalize 将首字母转为小写，全大写前缀保持原样（URL -> URL）。
func decapitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	if size < len(s) {
		next, _ := utf8.DecodeRuneInString(s[size:])
		if unicode.IsUpper(r) && unicode.IsUpper(next) {
			return s
		}
	}
	return string(unicode.ToLower(r)) + s[size:]
}

// typeBeanName 返回类型名按首字母小写约定得到的 Bean 名称。
func typeBeanName(t reflect.Type) string {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Name() == "" {
		return ""
	}
	return decapitalize(t.Name())
}
