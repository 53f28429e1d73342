package config

// Load 将配置节绑定为 T，section 为空时绑定整个配置。
//
// 示例：
//
//	opts, err := config.Load[ServerOptions](cfg, "server")
func Load[T any](cfg Configuration, section string) (T, error) {
	var t T
	err := cfg.Bind(section, &t)
	return t, err
}

// MustLoad 与 Load 相同，失败时 panic。
func MustLoad[T any](cfg Configuration, section string) T {
	t, err := Load[T](cfg, section)
	if err != nil {
		panic(err)
	}
	return t
}
