package di

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// TypeConverter 将值转换为目标类型。
type TypeConverter interface {
	Convert(value any, target reflect.Type) (reflect.Value, error)
}

var durationType = reflect.TypeOf(time.Duration(0))

// SimpleTypeConverter 是默认的类型转换器：
// 可赋值的值原样使用，指针与值之间互相适配，字符串按目标类型解析，
// 数值类型之间按 Go 的转换规则转换，切片逐元素转换。
type SimpleTypeConverter struct{}

// NewSimpleTypeConverter 创建默认类型转换器。
func NewSimpleTypeConverter() *SimpleTypeConverter {
	return &SimpleTypeConverter{}
}

func (c *SimpleTypeConverter) Convert(value any, target reflect.Type) (reflect.Value, error) {
	if value == nil {
		if nillable(target.Kind()) {
			return reflect.Zero(target), nil
		}
		return reflect.Value{}, c.mismatch(value, target, nil)
	}
	v := reflect.ValueOf(value)
	if v.Type().AssignableTo(target) {
		return v, nil
	}
	if target.Kind() == reflect.Ptr && v.Type().AssignableTo(target.Elem()) {
		p := reflect.New(target.Elem())
		p.Elem().Set(v)
		return p, nil
	}
	if v.Kind() == reflect.Ptr && !v.IsNil() && v.Elem().Type().AssignableTo(target) {
		return v.Elem(), nil
	}
	if s, ok := value.(string); ok {
		return c.fromString(s, target)
	}
	if s, ok := value.(Literal); ok {
		return c.fromString(string(s), target)
	}

	switch {
	case target == durationType:
		d, err := cast.ToDurationE(value)
		if err != nil {
			return reflect.Value{}, c.mismatch(value, target, err)
		}
		return reflect.ValueOf(d), nil
	case isNumeric(target.Kind()) && isNumeric(v.Kind()):
		return v.Convert(target), nil
	case target.Kind() == reflect.String:
		s, err := cast.ToStringE(value)
		if err != nil {
			return reflect.Value{}, c.mismatch(value, target, err)
		}
		return reflect.ValueOf(s).Convert(target), nil
	case target.Kind() == reflect.Bool:
		b, err := cast.ToBoolE(value)
		if err != nil {
			return reflect.Value{}, c.mismatch(value, target, err)
		}
		return reflect.ValueOf(b).Convert(target), nil
	case target.Kind() == reflect.Slice && (v.Kind() == reflect.Slice || v.Kind() == reflect.Array):
		out := reflect.MakeSlice(target, v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			elem, err := c.Convert(v.Index(i).Interface(), target.Elem())
			if err != nil {
				return reflect.Value{}, err
			}
			out.Index(i).Set(elem)
		}
		return out, nil
	}
	return reflect.Value{}, c.mismatch(value, target, nil)
}

func (c *SimpleTypeConverter) fromString(s string, target reflect.Type) (reflect.Value, error) {
	if target == durationType {
		d, err := cast.ToDurationE(strings.TrimSpace(s))
		if err != nil {
			return reflect.Value{}, c.mismatch(s, target, err)
		}
		return reflect.ValueOf(d), nil
	}
	out := reflect.New(target).Elem()
	switch target.Kind() {
	case reflect.String:
		out.SetString(s)
	case reflect.Bool:
		b, err := parseBool(s)
		if err != nil {
			return reflect.Value{}, c.mismatch(s, target, err)
		}
		out.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := cast.ToInt64E(strings.TrimSpace(s))
		if err != nil {
			return reflect.Value{}, c.mismatch(s, target, err)
		}
		if out.OverflowInt(n) {
			return reflect.Value{}, c.mismatch(s, target, fmt.Errorf("value overflows %v", target))
		}
		out.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := cast.ToUint64E(strings.TrimSpace(s))
		if err != nil {
			return reflect.Value{}, c.mismatch(s, target, err)
		}
		if out.OverflowUint(n) {
			return reflect.Value{}, c.mismatch(s, target, fmt.Errorf("value overflows %v", target))
		}
		out.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := cast.ToFloat64E(strings.TrimSpace(s))
		if err != nil {
			return reflect.Value{}, c.mismatch(s, target, err)
		}
		out.SetFloat(f)
	case reflect.Slice:
		parts := strings.Split(s, ",")
		slice := reflect.MakeSlice(target, 0, len(parts))
		for _, part := range parts {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			elem, err := c.fromString(part, target.Elem())
			if err != nil {
				return reflect.Value{}, err
			}
			slice = reflect.Append(slice, elem)
		}
		return slice, nil
	case reflect.Ptr:
		elem, err := c.fromString(s, target.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		p := reflect.New(target.Elem())
		p.Elem().Set(elem)
		return p, nil
	default:
		return reflect.Value{}, c.mismatch(s, target, nil)
	}
	return out, nil
}

func (c *SimpleTypeConverter) mismatch(value any, target reflect.Type, cause error) error {
	if cause != nil {
		return wrapError(cause, ErrCodeTypeMismatch, "", "cannot convert %T(%v) to %v", value, value, target)
	}
	return newError(ErrCodeTypeMismatch, "", "cannot convert %T(%v) to %v", value, value, target)
}

// parseBool 支持 true/false、yes/no、on/off、1/0、y/n，不区分大小写。
func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "on", "1", "y":
		return true, nil
	case "false", "no", "off", "0", "n":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean value %q", s)
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func nillable(k reflect.Kind) bool {
	switch k {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return true
	}
	return false
}
