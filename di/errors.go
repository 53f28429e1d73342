package di

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode 标识容器错误的类别。
type ErrorCode string

const (
	ErrCodeDefinitionNotFound     ErrorCode = "DEFINITION_NOT_FOUND"
	ErrCodeAmbiguousMatch         ErrorCode = "AMBIGUOUS_MATCH"
	ErrCodeUnresolvableDependency ErrorCode = "UNRESOLVABLE_DEPENDENCY"
	ErrCodeConstructorSelection   ErrorCode = "CONSTRUCTOR_SELECTION"
	ErrCodeInstantiation          ErrorCode = "INSTANTIATION"
	ErrCodePropertyPopulation     ErrorCode = "PROPERTY_POPULATION"
	ErrCodeInitMethod             ErrorCode = "INIT_METHOD"
	ErrCodeDestroy                ErrorCode = "DESTROY"
	ErrCodeReentrantCreation      ErrorCode = "REENTRANT_CREATION"
	ErrCodeCircularReference      ErrorCode = "CIRCULAR_REFERENCE"
	ErrCodeEarlyReferenceMismatch ErrorCode = "EARLY_REFERENCE_MISMATCH"
	ErrCodeInvalidDefinition      ErrorCode = "INVALID_DEFINITION"
	ErrCodeTypeMismatch           ErrorCode = "TYPE_MISMATCH"
	ErrCodeScopeNotFound          ErrorCode = "SCOPE_NOT_FOUND"
	ErrCodeConflict               ErrorCode = "CONFLICT"
	ErrCodePostProcessor          ErrorCode = "POST_PROCESSOR"
)

// BeanError 是容器返回的结构化错误，携带错误代码与出错的 Bean 名称。
// 嵌套创建失败时，Cause 指向下游 Bean 的 BeanError。
type BeanError struct {
	Code    ErrorCode
	Bean    string
	Message string
	Cause   error
}

func (e *BeanError) Error() string {
	var b strings.Builder
	b.WriteString("di: ")
	if e.Bean != "" {
		fmt.Fprintf(&b, "bean '%s': ", e.Bean)
	}
	b.WriteString(e.Message)
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *BeanError) Unwrap() error {
	return e.Cause
}

// Is 支持 errors.Is(err, &BeanError{Code: ...})，Bean 为空时只比较代码。
func (e *BeanError) Is(target error) bool {
	t, ok := target.(*BeanError)
	if !ok {
		return false
	}
	return t.Code == e.Code && (t.Bean == "" || t.Bean == e.Bean)
}

func newError(code ErrorCode, bean string, format string, args ...any) *BeanError {
	return &BeanError{Code: code, Bean: bean, Message: fmt.Sprintf(format, args...)}
}

func wrapError(cause error, code ErrorCode, bean string, format string, args ...any) *BeanError {
	return &BeanError{Code: code, Bean: bean, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// IsErrorCode 判断错误链中是否存在指定代码的 BeanError。
func IsErrorCode(err error, code ErrorCode) bool {
	return errors.Is(err, &BeanError{Code: code})
}

// CodeOf 返回错误链中最外层 BeanError 的代码，不存在时返回空字符串。
func CodeOf(err error) ErrorCode {
	var be *BeanError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}
