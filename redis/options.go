package redis

import (
	"errors"
	"time"

	"github.com/gocrud/beans/config"
	goredis "github.com/redis/go-redis/v9"
)

// ClientOptions Redis 客户端配置选项，JSON 标签用于从配置节绑定
type ClientOptions struct {
	Name         string          `json:"-"`
	Addr         string          `json:"addr"`
	Username     string          `json:"username"`
	Password     string          `json:"password"`
	DB           int             `json:"db"`
	PoolSize     int             `json:"poolSize"`
	MinIdleConns int             `json:"minIdleConns"`
	MaxRetries   int             `json:"maxRetries"`
	DialTimeout  config.Duration `json:"dialTimeout"`
	ReadTimeout  config.Duration `json:"readTimeout"`
	WriteTimeout config.Duration `json:"writeTimeout"`
	// PingOnCreate 创建客户端时执行 PING，失败则创建失败
	PingOnCreate bool `json:"pingOnCreate"`
}

// NewDefaultOptions 创建默认配置
func NewDefaultOptions(name string) *ClientOptions {
	return &ClientOptions{
		Name:         name,
		Addr:         "localhost:6379",
		PoolSize:     10,
		DialTimeout:  config.Duration(5 * time.Second),
		ReadTimeout:  config.Duration(3 * time.Second),
		WriteTimeout: config.Duration(3 * time.Second),
	}
}

// Validate 验证配置
func (o *ClientOptions) Validate() error {
	if o.Addr == "" {
		return errors.New("redis addr is required")
	}
	if o.DB < 0 {
		return errors.New("redis db must not be negative")
	}
	if o.PoolSize < 0 || o.MinIdleConns < 0 {
		return errors.New("redis pool sizes must not be negative")
	}
	return nil
}

// ToRedis 转换为 go-redis 的选项
func (o *ClientOptions) ToRedis() *goredis.Options {
	return &goredis.Options{
		Addr:         o.Addr,
		ClientName:   o.Name,
		Username:     o.Username,
		Password:     o.Password,
		DB:           o.DB,
		PoolSize:     o.PoolSize,
		MinIdleConns: o.MinIdleConns,
		MaxRetries:   o.MaxRetries,
		DialTimeout:  o.DialTimeout.Std(),
		ReadTimeout:  o.ReadTimeout.Std(),
		WriteTimeout: o.WriteTimeout.Std(),
	}
}
