package di

import (
	"context"
	"reflect"
	"slices"
	"strings"

	"github.com/gocrud/beans/logging"
)

var (
	contextType             = reflect.TypeOf((*context.Context)(nil)).Elem()
	beanFactoryType         = TypeOf[BeanFactory]()
	listableBeanFactoryType = TypeOf[ListableBeanFactory]()
)

// constructorResolver 选择构造函数并解析其参数。
type constructorResolver struct {
	factory *DefaultBeanFactory
}

// instantiate 产生原始对象。
//  1. 没有候选构造函数：使用零参构造（结构体指针类型的 reflect.New）。
//  2. 提供显式参数：选择第一个参数个数一致且类型可转换的构造函数。
//  3. 否则按参数个数降序逐个尝试自动装配。
func (r *constructorResolver) instantiate(ctx context.Context, name string, def *BeanDefinition, args []any) (any, error) {
	if def.Instance != nil {
		return def.Instance, nil
	}
	if len(def.Constructors) == 0 {
		if len(args) > 0 {
			return nil, newError(ErrCodeConstructorSelection, name,
				"%d explicit argument(s) given but no constructor is declared", len(args))
		}
		return r.instantiateZero(name, def)
	}
	if len(args) > 0 {
		return r.instantiateWithArgs(name, def.Constructors, args)
	}
	return r.autowireConstructor(ctx, name, def.Constructors)
}

func (r *constructorResolver) instantiateZero(name string, def *BeanDefinition) (any, error) {
	t := def.Type
	if t != nil && t.Kind() == reflect.Ptr && t.Elem().Kind() == reflect.Struct {
		return reflect.New(t.Elem()).Interface(), nil
	}
	return nil, newError(ErrCodeConstructorSelection, name, "no zero-argument constructor available for type %v", t)
}

func (r *constructorResolver) instantiateWithArgs(name string, ctors []*Constructor, args []any) (any, error) {
	conv := r.factory.typeConverter()
	for _, ctor := range ctors {
		if ctor.NumParams() != len(args) {
			continue
		}
		values := make([]reflect.Value, len(args))
		matched := true
		for i, arg := range args {
			v, err := conv.Convert(arg, ctor.ParamType(i))
			if err != nil {
				matched = false
				break
			}
			values[i] = v
		}
		if !matched {
			continue
		}
		obj, err := ctor.invoke(values)
		if err != nil {
			return nil, wrapError(err, ErrCodeInstantiation, name, "constructor %v failed", ctor.fnType)
		}
		return obj, nil
	}
	return nil, newError(ErrCodeConstructorSelection, name,
		"no constructor accepts the %d explicit argument(s) given", len(args))
}

func (r *constructorResolver) autowireConstructor(ctx context.Context, name string, ctors []*Constructor) (any, error) {
	sorted := slices.Clone(ctors)
	slices.SortStableFunc(sorted, func(a, b *Constructor) int {
		return b.NumParams() - a.NumParams()
	})

	var lastUnresolved error
	for _, ctor := range sorted {
		values, unresolved, err := r.resolveArguments(ctx, name, ctor)
		if err != nil {
			return nil, err
		}
		if unresolved != nil {
			r.factory.logger.Debug("Constructor candidate skipped",
				logging.Field{Key: "bean", Value: name},
				logging.Field{Key: "constructor", Value: ctor.fnType.String()},
				logging.Field{Key: "reason", Value: unresolved.Error()})
			lastUnresolved = unresolved
			continue
		}
		obj, err := ctor.invoke(values)
		if err != nil {
			return nil, wrapError(err, ErrCodeInstantiation, name, "constructor %v failed", ctor.fnType)
		}
		return obj, nil
	}
	return nil, wrapError(lastUnresolved, ErrCodeConstructorSelection, name,
		"none of %d constructor candidate(s) could be satisfied", len(ctors))
}

// resolveArguments 解析构造函数的全部参数。
// unresolved 非空表示某个必需参数没有候选 Bean，调用方应尝试下一个构造函数；
// err 非空表示致命错误（歧义、循环引用或依赖创建失败）。
func (r *constructorResolver) resolveArguments(ctx context.Context, name string, ctor *Constructor) ([]reflect.Value, error, error) {
	conv := r.factory.typeConverter()
	values := make([]reflect.Value, ctor.NumParams())
	for i := range values {
		desc := ctor.descriptor(i)
		obj, found, err := r.resolveParameter(ctx, name, desc)
		if err != nil {
			return nil, nil, err
		}
		if !found {
			if desc.Required {
				return nil, newError(ErrCodeUnresolvableDependency, name, "no bean available for %s", desc), nil
			}
			values[i] = reflect.Zero(desc.Type)
			continue
		}
		v, err := conv.Convert(obj, desc.Type)
		if err != nil {
			return nil, nil, wrapError(err, ErrCodeUnresolvableDependency, name, "bean '%s' cannot be injected into %s", desc.ResolvedName, desc)
		}
		values[i] = v
	}
	return values, nil, nil
}

// resolveParameter 按以下顺序解析一个参数：
// 可解析依赖 -> 声明的依赖名称 -> 唯一类型匹配 -> 多候选时的 primary/参数名/依赖名/类型名约定，
// 仍无法区分且恰有一个候选正在创建中时选它。选中的 Bean 正在创建中时注入其早期引用。
func (r *constructorResolver) resolveParameter(ctx context.Context, beanName string, desc *DependencyDescriptor) (any, bool, error) {
	f := r.factory
	if desc.Type == contextType {
		return ctx, true, nil
	}
	if v, ok := f.resolvableDependency(desc.Type); ok {
		if v == any(f) && (desc.Type == beanFactoryType || desc.Type == listableBeanFactoryType) {
			return f.BindContext(ctx), true, nil
		}
		return v, true, nil
	}

	candidates := f.BeanNamesForType(desc.Type)

	if desc.DependencyName != "" {
		if n := f.canonicalName(desc.DependencyName); slices.Contains(candidates, n) {
			obj, err := r.inject(ctx, beanName, n, desc)
			return obj, err == nil, err
		}
		if f.ContainsBean(desc.DependencyName) {
			obj, err := f.doGetBean(ctx, desc.DependencyName, nil, nil)
			if err != nil {
				return nil, false, err
			}
			if reflect.TypeOf(obj).AssignableTo(desc.Type) {
				return r.resolved(beanName, desc.DependencyName, desc, obj), true, nil
			}
		}
	}

	var target string
	switch len(candidates) {
	case 0:
		n := typeBeanName(desc.Type)
		if n != "" && f.ContainsBean(n) {
			obj, err := f.doGetBean(ctx, n, nil, nil)
			if err != nil {
				return nil, false, err
			}
			if reflect.TypeOf(obj).AssignableTo(desc.Type) {
				return r.resolved(beanName, n, desc, obj), true, nil
			}
		}
		if parent := f.Parent(); parent != nil {
			if obj, err := parent.GetBeanByType(desc.Type); err == nil {
				desc.ResolvedName = ""
				return obj, true, nil
			}
		}
		return nil, false, nil
	case 1:
		target = candidates[0]
	default:
		picked, err := f.determineCandidate(beanName, candidates, desc)
		if err != nil {
			// 名称规则无法区分时，唯一正在创建中的候选即当前调用链要回指的 Bean
			creating := slices.DeleteFunc(slices.Clone(candidates), func(c string) bool {
				return !f.registry.IsSingletonCurrentlyInCreation(c)
			})
			if len(creating) != 1 || !IsErrorCode(err, ErrCodeAmbiguousMatch) {
				return nil, false, err
			}
			picked = creating[0]
		}
		target = picked
	}

	obj, err := r.inject(ctx, beanName, target, desc)
	return obj, err == nil, err
}

// inject 获取已选定的 target；target 正在创建中时返回其早期引用，尚未暴露则为循环引用错误。
func (r *constructorResolver) inject(ctx context.Context, beanName, target string, desc *DependencyDescriptor) (any, error) {
	f := r.factory
	if !f.registry.IsSingletonCurrentlyInCreation(target) {
		obj, err := f.doGetBean(ctx, target, nil, nil)
		if err != nil {
			return nil, err
		}
		return r.resolved(beanName, target, desc, obj), nil
	}
	early, err := f.registry.Singleton(ctx, target)
	if err != nil {
		return nil, err
	}
	if early == nil {
		return nil, newError(ErrCodeCircularReference, beanName,
			"unresolvable circular reference: %s requires bean '%s' which is still being constructed", desc, target)
	}
	f.logger.Debug("Injecting early reference",
		logging.Field{Key: "bean", Value: beanName},
		logging.Field{Key: "dependency", Value: target})
	return r.resolved(beanName, target, desc, early), nil
}

func (r *constructorResolver) resolved(beanName, target string, desc *DependencyDescriptor, obj any) any {
	r.factory.registry.RegisterDependentBean(target, beanName)
	desc.ResolvedName = target
	return obj
}

// determineCandidate 在多个候选中选出一个：primary、参数名、依赖名、类型名约定，仍无法确定则报错。
func (f *DefaultBeanFactory) determineCandidate(beanName string, candidates []string, desc *DependencyDescriptor) (string, error) {
	var primaries []string
	for _, c := range candidates {
		if def, ok := f.definition(c); ok && def.Primary {
			primaries = append(primaries, c)
		}
	}
	if len(primaries) == 1 {
		return primaries[0], nil
	}
	if desc.ParameterName != "" && slices.Contains(candidates, desc.ParameterName) {
		return desc.ParameterName, nil
	}
	if desc.DependencyName != "" && slices.Contains(candidates, desc.DependencyName) {
		return desc.DependencyName, nil
	}
	if n := typeBeanName(desc.Type); n != "" && slices.Contains(candidates, n) {
		return n, nil
	}
	return "", newError(ErrCodeAmbiguousMatch, beanName,
		"expected a single matching bean for %s but found %d: %s", desc, len(candidates), strings.Join(candidates, ", "))
}
