package di

import (
	"strings"
)

// validateDependsOn 在预实例化之前检查 depends-on 关系图。
// 引用了未定义的 Bean 或存在环时返回错误。
func (f *DefaultBeanFactory) validateDependsOn() error {
	names := f.BeanDefinitionNames()
	edges := make(map[string][]string, len(names))
	for _, name := range names {
		def, ok := f.definition(name)
		if !ok {
			continue
		}
		for _, dep := range def.DependsOn {
			depName := f.canonicalName(dep)
			if !f.ContainsBean(depName) {
				return newError(ErrCodeDefinitionNotFound, name, "depends-on bean '%s' is not defined", dep)
			}
			edges[name] = append(edges[name], depName)
		}
	}

	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	var stack []string

	var visit func(string) error
	visit = func(u string) error {
		visited[u] = true
		onStack[u] = true
		stack = append(stack, u)

		for _, v := range edges[u] {
			if !visited[v] {
				if err := visit(v); err != nil {
					return err
				}
			} else if onStack[v] {
				cycle := append(cycleFrom(stack, v), v)
				return newError(ErrCodeCircularReference, u,
					"circular depends-on relationship: %s", strings.Join(cycle, " -> "))
			}
		}

		stack = stack[:len(stack)-1]
		onStack[u] = false
		return nil
	}

	for _, name := range names {
		if !visited[name] {
			if err := visit(name); err != nil {
				return err
			}
		}
	}
	return nil
}

func cycleFrom(stack []string, start string) []string {
	for i, n := range stack {
		if n == start {
			return append([]string(nil), stack[i:]...)
		}
	}
	return stack
}
