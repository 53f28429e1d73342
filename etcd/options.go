package etcd

import (
	"errors"
	"time"

	"github.com/gocrud/beans/config"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
)

// ClientOptions etcd 客户端配置选项
type ClientOptions struct {
	Name               string          `json:"-"`
	Endpoints          []string        `json:"endpoints"`
	DialTimeout        config.Duration `json:"dialTimeout"`
	Username           string          `json:"username"`
	Password           string          `json:"password"`
	AutoSyncInterval   config.Duration `json:"autoSyncInterval"`
	MaxCallSendMsgSize int             `json:"maxCallSendMsgSize"`
	MaxCallRecvMsgSize int             `json:"maxCallRecvMsgSize"`
	// Logger 是 etcd 客户端内部使用的 zap 日志，默认不输出
	Logger *zap.Logger `json:"-"`
}

// NewDefaultOptions 创建默认配置
func NewDefaultOptions(name string) *ClientOptions {
	return &ClientOptions{
		Name:        name,
		Endpoints:   []string{"localhost:2379"},
		DialTimeout: config.Duration(5 * time.Second),
	}
}

// Validate 验证配置
func (o *ClientOptions) Validate() error {
	if len(o.Endpoints) == 0 {
		return errors.New("etcd endpoints are required")
	}
	if o.DialTimeout <= 0 {
		return errors.New("etcd dial timeout must be positive")
	}
	return nil
}

// ToConfig 转换为 clientv3.Config
func (o *ClientOptions) ToConfig() clientv3.Config {
	logger := o.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return clientv3.Config{
		Endpoints:          o.Endpoints,
		DialTimeout:        o.DialTimeout.Std(),
		Username:           o.Username,
		Password:           o.Password,
		AutoSyncInterval:   o.AutoSyncInterval.Std(),
		MaxCallSendMsgSize: o.MaxCallSendMsgSize,
		MaxCallRecvMsgSize: o.MaxCallRecvMsgSize,
		Logger:             logger,
	}
}
