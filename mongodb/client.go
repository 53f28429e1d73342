package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/gocrud/beans/logging"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// Client 包装 *mongo.Client，记住默认数据库。容器销毁时断开连接。
type Client struct {
	*mongo.Client
	name     string
	database string
	logger   logging.Logger
}

// NewClient 按选项创建客户端。驱动在首次操作时才建立连接，除非启用 PingOnCreate。
func NewClient(logger logging.Logger, opts ClientOptions) (*Client, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	mc, err := mongo.Connect(opts.ToDriver())
	if err != nil {
		return nil, fmt.Errorf("mongodb: failed to create client '%s': %w", opts.Name, err)
	}
	c := &Client{Client: mc, name: opts.Name, database: opts.Database, logger: logger}

	if opts.PingOnCreate {
		ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout.Std())
		defer cancel()
		if err := mc.Ping(ctx, readpref.Primary()); err != nil {
			_ = mc.Disconnect(context.Background())
			return nil, fmt.Errorf("mongodb: ping '%s' failed: %w", opts.Name, err)
		}
	}
	logger.Info("MongoDB client created",
		logging.Field{Key: "name", Value: opts.Name},
		logging.Field{Key: "database", Value: opts.Database})
	return c, nil
}

// Name 返回客户端名称
func (c *Client) Name() string { return c.name }

// DB 返回默认数据库，未配置时返回 nil
func (c *Client) DB() *mongo.Database {
	if c.database == "" {
		return nil
	}
	return c.Database(c.database)
}

// Collection 返回默认数据库中的集合
func (c *Client) Collection(name string) (*mongo.Collection, error) {
	db := c.DB()
	if db == nil {
		return nil, fmt.Errorf("mongodb: client '%s' has no default database", c.name)
	}
	return db.Collection(name), nil
}

// Destroy 断开连接，最多等待 10 秒
func (c *Client) Destroy() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.Disconnect(ctx); err != nil {
		return fmt.Errorf("mongodb: failed to disconnect '%s': %w", c.name, err)
	}
	c.logger.Info("MongoDB client disconnected", logging.Field{Key: "name", Value: c.name})
	return nil
}
