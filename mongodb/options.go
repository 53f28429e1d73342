package mongodb

import (
	"errors"
	"strings"
	"time"

	"github.com/gocrud/beans/config"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ClientOptions MongoDB 客户端配置选项
type ClientOptions struct {
	Name string `json:"-"`
	URI  string `json:"uri"`
	// Database 是 Client.DB 返回的默认数据库
	Database               string          `json:"database"`
	AppName                string          `json:"appName"`
	MinPoolSize            uint64          `json:"minPoolSize"`
	MaxPoolSize            uint64          `json:"maxPoolSize"`
	ConnectTimeout         config.Duration `json:"connectTimeout"`
	ServerSelectionTimeout config.Duration `json:"serverSelectionTimeout"`
	// PingOnCreate 创建客户端时执行 ping，失败则创建失败
	PingOnCreate bool `json:"pingOnCreate"`
}

// NewDefaultOptions 创建默认配置
func NewDefaultOptions(name string) *ClientOptions {
	return &ClientOptions{
		Name:                   name,
		URI:                    "mongodb://localhost:27017",
		MaxPoolSize:            100,
		ConnectTimeout:         config.Duration(10 * time.Second),
		ServerSelectionTimeout: config.Duration(5 * time.Second),
	}
}

// Validate 验证配置
func (o *ClientOptions) Validate() error {
	if o.URI == "" {
		return errors.New("mongodb uri is required")
	}
	if !strings.HasPrefix(o.URI, "mongodb://") && !strings.HasPrefix(o.URI, "mongodb+srv://") {
		return errors.New("mongodb uri must start with mongodb:// or mongodb+srv://")
	}
	if o.MaxPoolSize > 0 && o.MinPoolSize > o.MaxPoolSize {
		return errors.New("mongodb minPoolSize must not exceed maxPoolSize")
	}
	return nil
}

// ToDriver 转换为驱动的客户端选项
func (o *ClientOptions) ToDriver() *options.ClientOptions {
	opts := options.Client().ApplyURI(o.URI)
	if o.AppName != "" {
		opts.SetAppName(o.AppName)
	}
	if o.MinPoolSize > 0 {
		opts.SetMinPoolSize(o.MinPoolSize)
	}
	if o.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(o.MaxPoolSize)
	}
	if o.ConnectTimeout > 0 {
		opts.SetConnectTimeout(o.ConnectTimeout.Std())
	}
	if o.ServerSelectionTimeout > 0 {
		opts.SetServerSelectionTimeout(o.ServerSelectionTimeout.Std())
	}
	return opts
}
