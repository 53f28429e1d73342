package di

// Option 配置 Bean 定义。
type Option func(*BeanDefinition)

// WithScope 设置作用域名称。
func WithScope(scope string) Option {
	return func(d *BeanDefinition) {
		d.Scope = scope
	}
}

// WithSingleton 将作用域设置为 singleton（默认）。
func WithSingleton() Option {
	return WithScope(ScopeSingleton)
}

// WithPrototype 将作用域设置为 prototype，每次获取都创建新实例。
func WithPrototype() Option {
	return WithScope(ScopePrototype)
}

// WithConstructor 添加一个候选构造函数。
// fn 可以是普通函数，也可以是 Ctor 构建的 *Constructor。
func WithConstructor(fn any) Option {
	return func(d *BeanDefinition) {
		if c, ok := fn.(*Constructor); ok {
			d.Constructors = append(d.Constructors, c)
			return
		}
		d.Constructors = append(d.Constructors, Ctor(fn))
	}
}

// WithConstructorArgs 设置显式构造参数。
func WithConstructorArgs(args ...any) Option {
	return func(d *BeanDefinition) {
		d.ConstructorArgs = append(d.ConstructorArgs, args...)
	}
}

// WithProperty 添加属性赋值。value 可以是字面量、BeanReference 或含 ${...} 的字符串。
func WithProperty(name string, value any) Option {
	return func(d *BeanDefinition) {
		d.Properties = append(d.Properties, PropertyValue{Name: name, Value: value})
	}
}

// WithRef 添加指向另一个 Bean 的属性赋值。
func WithRef(name, beanName string) Option {
	return WithProperty(name, Ref(beanName))
}

// WithInitMethod 设置初始化方法名。
func WithInitMethod(name string) Option {
	return func(d *BeanDefinition) {
		d.InitMethodName = name
	}
}

// WithDestroyMethod 设置销毁方法名。
func WithDestroyMethod(name string) Option {
	return func(d *BeanDefinition) {
		d.DestroyMethodName = name
	}
}

// WithLazyInit 标记单例在预实例化阶段跳过。
func WithLazyInit() Option {
	return func(d *BeanDefinition) {
		d.LazyInit = true
	}
}

// WithPrimary 标记按类型解析出现多个候选时优先选择该 Bean。
func WithPrimary() Option {
	return func(d *BeanDefinition) {
		d.Primary = true
	}
}

// WithDependsOn 声明必须先于当前 Bean 创建的 Bean。
func WithDependsOn(names ...string) Option {
	return func(d *BeanDefinition) {
		d.DependsOn = append(d.DependsOn, names...)
	}
}

// WithProfiles 限定该定义只在指定 profile 激活时注册。
func WithProfiles(profiles ...string) Option {
	return func(d *BeanDefinition) {
		d.Profiles = append(d.Profiles, profiles...)
	}
}

// WithDescription 设置描述信息。
func WithDescription(desc string) Option {
	return func(d *BeanDefinition) {
		d.Description = desc
	}
}

// WithInstance 使用已创建的对象，跳过实例化，其余生命周期照常执行。
func WithInstance(v any) Option {
	return func(d *BeanDefinition) {
		d.Instance = v
	}
}
