// Package beans 是框架的入口。
//
// 最小示例：
//
//	func main() {
//		err := beans.Run(
//			core.WithConfigFile("config.yaml", "APP_"),
//			core.WithBean("", NewGreeter),
//			web.New(web.WithAddr(":8080")),
//		)
//		if err != nil {
//			log.Fatal(err)
//		}
//	}
package beans

import "github.com/gocrud/beans/core"

// New 创建尚未刷新的应用上下文
func New(opts ...core.Option) (*core.ApplicationContext, error) {
	return core.NewApplicationContext(opts...)
}
