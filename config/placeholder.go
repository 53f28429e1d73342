package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnresolvablePlaceholder 表示占位符没有对应的属性且没有默认值。
	ErrUnresolvablePlaceholder = errors.New("config: unresolvable placeholder")
	// ErrCircularPlaceholder 表示占位符的解析结果再次引用了自身。
	ErrCircularPlaceholder = errors.New("config: circular placeholder reference")
)

const (
	DefaultPlaceholderPrefix = "${"
	DefaultPlaceholderSuffix = "}"
	DefaultValueSeparator    = ":"
)

// PlaceholderResolver 替换文本中的 ${key} 与 ${key:default}。
//
// 占位符可以嵌套（${${env}.url}），属性值中的占位符会被递归解析，
// 以 \ 转义的前缀按字面保留。
type PlaceholderResolver struct {
	Prefix         string
	Suffix         string
	ValueSeparator string
	// IgnoreUnresolvable 为 true 时无法解析的占位符原样保留，否则返回错误
	IgnoreUnresolvable bool
}

// NewPlaceholderResolver 使用默认的前后缀创建解析器。
func NewPlaceholderResolver(ignoreUnresolvable bool) *PlaceholderResolver {
	return &PlaceholderResolver{
		Prefix:             DefaultPlaceholderPrefix,
		Suffix:             DefaultPlaceholderSuffix,
		ValueSeparator:     DefaultValueSeparator,
		IgnoreUnresolvable: ignoreUnresolvable,
	}
}

// ContainsPlaceholder 报告文本中是否可能包含占位符。
func (r *PlaceholderResolver) ContainsPlaceholder(text string) bool {
	return strings.Contains(text, r.Prefix) && strings.Contains(text, r.Suffix)
}

// Replace 使用 lookup 替换 text 中的全部占位符。
func (r *PlaceholderResolver) Replace(text string, lookup func(key string) (string, bool)) (string, error) {
	if !strings.Contains(text, r.Prefix) {
		return text, nil
	}
	return r.parse(text, lookup, map[string]struct{}{})
}

func (r *PlaceholderResolver) parse(text string, lookup func(string) (string, bool), visiting map[string]struct{}) (string, error) {
	var b strings.Builder
	i := 0
	for i < len(text) {
		start := strings.Index(text[i:], r.Prefix)
		if start < 0 {
			b.WriteString(text[i:])
			break
		}
		start += i

		if start > 0 && text[start-1] == '\\' {
			b.WriteString(text[i : start-1])
			b.WriteString(r.Prefix)
			i = start + len(r.Prefix)
			continue
		}
		b.WriteString(text[i:start])

		end := r.findEnd(text, start+len(r.Prefix))
		if end < 0 {
			b.WriteString(text[start:])
			break
		}
		original := text[start+len(r.Prefix) : end]
		if _, ok := visiting[original]; ok {
			return "", fmt.Errorf("%w: '%s'", ErrCircularPlaceholder, original)
		}
		visiting[original] = struct{}{}

		key, err := r.parse(original, lookup, visiting)
		if err != nil {
			return "", err
		}
		value, ok := lookup(key)
		if !ok && r.ValueSeparator != "" {
			if k, def, found := strings.Cut(key, r.ValueSeparator); found {
				if value, ok = lookup(k); !ok {
					value, ok = def, true
				}
			}
		}

		switch {
		case ok:
			resolved, err := r.parse(value, lookup, visiting)
			if err != nil {
				return "", err
			}
			b.WriteString(resolved)
		case r.IgnoreUnresolvable:
			b.WriteString(text[start : end+len(r.Suffix)])
		default:
			return "", fmt.Errorf("%w '%s' in value %q", ErrUnresolvablePlaceholder, original, text)
		}
		delete(visiting, original)
		i = end + len(r.Suffix)
	}
	return b.String(), nil
}

// findEnd 返回与 from 之前的前缀配对的后缀位置，跳过嵌套的占位符
func (r *PlaceholderResolver) findEnd(text string, from int) int {
	depth := 0
	for i := from; i < len(text); {
		switch {
		case strings.HasPrefix(text[i:], r.Prefix):
			depth++
			i += len(r.Prefix)
		case strings.HasPrefix(text[i:], r.Suffix):
			if depth == 0 {
				return i
			}
			depth--
			i += len(r.Suffix)
		default:
			i++
		}
	}
	return -1
}
