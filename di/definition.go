package di

import (
	"fmt"
	"reflect"
	"slices"
)

// 内置作用域名称。
const (
	ScopeSingleton = "singleton"
	ScopePrototype = "prototype"
)

// BeanReference 是属性值中指向另一个 Bean 的引用，在属性填充时解析为实际对象。
type BeanReference struct {
	Name string
}

// Ref 创建一个 Bean 引用。
func Ref(name string) BeanReference {
	return BeanReference{Name: name}
}

// Literal 是不参与占位符解析的字符串值。
type Literal string

// PropertyValue 描述一次属性赋值。
type PropertyValue struct {
	Name  string
	Value any
}

// PropertyValues 是按声明顺序排列的属性赋值列表。
type PropertyValues []PropertyValue

// Get 按名称查找属性值。
func (pvs PropertyValues) Get(name string) (PropertyValue, bool) {
	for _, pv := range pvs {
		if pv.Name == name {
			return pv, true
		}
	}
	return PropertyValue{}, false
}

// BeanDefinition 是一个命名对象的声明式配方。
// 注册到 BeanDefinitionRegistry 后即被冻结，注册表持有的是它的副本。
type BeanDefinition struct {
	// Type 是 Bean 的声明类型，为空时由首个构造函数的返回类型推断。
	Type reflect.Type
	// Constructors 是候选构造函数。
	Constructors []*Constructor
	// ConstructorArgs 是显式构造参数，非空时按参数个数与类型选择构造函数。
	ConstructorArgs []any
	// Properties 是按顺序应用的属性赋值。
	Properties PropertyValues

	InitMethodName    string
	DestroyMethodName string

	// Scope 为空时视为 singleton。
	Scope string

	LazyInit    bool
	Primary     bool
	DependsOn   []string
	Profiles    []string
	Description string

	// Instance 是预先构建的对象，存在时跳过实例化阶段。
	Instance any

	// accessor 在注册时根据 Type 预先计算。
	accessor *propertyAccessor
}

// NewBeanDefinition 创建 Bean 定义。
func NewBeanDefinition(typ reflect.Type, opts ...Option) *BeanDefinition {
	def := &BeanDefinition{Type: typ}
	for _, opt := range opts {
		opt(def)
	}
	return def
}

// Define 以类型参数 T 作为声明类型创建 Bean 定义。
func Define[T any](opts ...Option) *BeanDefinition {
	return NewBeanDefinition(TypeOf[T](), opts...)
}

// DefineFunc 以构造函数的返回类型作为声明类型创建 Bean 定义。
func DefineFunc(fn any, opts ...Option) *BeanDefinition {
	def := NewBeanDefinition(nil, WithConstructor(fn))
	for _, opt := range opts {
		opt(def)
	}
	return def
}

// IsSingleton 报告该定义是否为单例作用域。
func (d *BeanDefinition) IsSingleton() bool {
	return d.Scope == "" || d.Scope == ScopeSingleton
}

// IsPrototype 报告该定义是否为原型作用域。
func (d *BeanDefinition) IsPrototype() bool {
	return d.Scope == ScopePrototype
}

// ScopeName 返回规范化后的作用域名称。
func (d *BeanDefinition) ScopeName() string {
	if d.Scope == "" {
		return ScopeSingleton
	}
	return d.Scope
}

func (d *BeanDefinition) clone() *BeanDefinition {
	c := *d
	c.Constructors = slices.Clone(d.Constructors)
	c.ConstructorArgs = slices.Clone(d.ConstructorArgs)
	c.Properties = slices.Clone(d.Properties)
	c.DependsOn = slices.Clone(d.DependsOn)
	c.Profiles = slices.Clone(d.Profiles)
	return &c
}

// resolveType 推断并校验声明类型。
func (d *BeanDefinition) resolveType() error {
	for i, ctor := range d.Constructors {
		if ctor == nil {
			return fmt.Errorf("constructor %d is nil", i)
		}
		if err := ctor.validate(); err != nil {
			return fmt.Errorf("constructor %d: %w", i, err)
		}
	}
	if d.Type == nil {
		switch {
		case d.Instance != nil:
			d.Type = reflect.TypeOf(d.Instance)
		case len(d.Constructors) > 0:
			d.Type = d.Constructors[0].ResultType()
		default:
			return fmt.Errorf("bean type is required")
		}
	}
	for i, ctor := range d.Constructors {
		if rt := ctor.ResultType(); !rt.AssignableTo(d.Type) {
			return fmt.Errorf("constructor %d returns %v, not assignable to %v", i, rt, d.Type)
		}
	}
	if d.Instance != nil && !reflect.TypeOf(d.Instance).AssignableTo(d.Type) {
		return fmt.Errorf("instance of %T is not assignable to %v", d.Instance, d.Type)
	}
	return nil
}

// DependencyDescriptor 描述一个注入点（构造函数参数）。
type DependencyDescriptor struct {
	Type           reflect.Type
	Required       bool
	ParameterName  string
	DependencyName string
	Index          int
	// ResolvedName 在解析成功后记录被注入的 Bean 名称。
	ResolvedName string
}

func (d *DependencyDescriptor) String() string {
	name := d.ParameterName
	if name == "" {
		name = fmt.Sprintf("#%d", d.Index)
	}
	return fmt.Sprintf("parameter %s (%v)", name, d.Type)
}
