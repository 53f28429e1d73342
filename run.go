package beans

import (
	"context"

	"github.com/gocrud/beans/core"
)

// Run 创建并刷新应用上下文，阻塞直到收到 SIGINT/SIGTERM 或某个托管服务请求退出，
// 然后在超时内关闭上下文。
func Run(opts ...core.Option) error {
	return RunContext(context.Background(), opts...)
}

// RunContext 与 Run 相同，ctx 被取消时也会触发关闭。
func RunContext(ctx context.Context, opts ...core.Option) error {
	ac, err := core.NewApplicationContext(opts...)
	if err != nil {
		return err
	}
	return ac.Run(ctx)
}
