package lu

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RouterGroup 路由组
type RouterGroup struct {
	group  *gin.RouterGroup
	engine *Engine
}

// ============ 路由组管理 ============

// Group 创建子路由组
func (rg *RouterGroup) Group(path string, middlewares ...HandlerFunc) *RouterGroup {
	handlers := WrapMiddlewares(middlewares...)
	return &RouterGroup{
		group:  rg.group.Group(path, handlers...),
		engine: rg.engine,
	}
}

// Use 注册中间件
func (rg *RouterGroup) Use(middlewares ...HandlerFunc) {
	handlers := WrapMiddlewares(middlewares...)
	rg.group.Use(handlers...)
}

// ============ 基础路由方法 ============

// GET 注册 GET 路由
func (rg *RouterGroup) GET(path string, handler HandlerFunc, middlewares ...HandlerFunc) {
	rg.handle(http.MethodGet, path, handler, middlewares)
}

// POST 注册 POST 路由
func (rg *RouterGroup) POST(path string, handler HandlerFunc, middlewares ...HandlerFunc) {
	rg.handle(http.MethodPost, path, handler, middlewares)
}

// PUT 注册 PUT 路由
func (rg *RouterGroup) PUT(path string, handler HandlerFunc, middlewares ...HandlerFunc) {
	rg.handle(http.MethodPut, path, handler, middlewares)
}

// DELETE 注册 DELETE 路由
func (rg *RouterGroup) DELETE(path string, handler HandlerFunc, middlewares ...HandlerFunc) {
	rg.handle(http.MethodDelete, path, handler, middlewares)
}

// PATCH 注册 PATCH 路由
func (rg *RouterGroup) PATCH(path string, handler HandlerFunc, middlewares ...HandlerFunc) {
	rg.handle(http.MethodPatch, path, handler, middlewares)
}

// HEAD 注册 HEAD 路由
func (rg *RouterGroup) HEAD(path string, handler HandlerFunc, middlewares ...HandlerFunc) {
	rg.handle(http.MethodHead, path, handler, middlewares)
}

// OPTIONS 注册 OPTIONS 路由
func (rg *RouterGroup) OPTIONS(path string, handler HandlerFunc, middlewares ...HandlerFunc) {
	rg.handle(http.MethodOptions, path, handler, middlewares)
}

// Any 注册所有 HTTP 方法的路由
func (rg *RouterGroup) Any(path string, handler HandlerFunc, middlewares ...HandlerFunc) {
	if len(middlewares) > 0 {
		handlers := append(WrapMiddlewares(middlewares...), WrapHandler(handler))
		rg.group.Any(path, handlers...)
	} else {
		rg.group.Any(path, WrapHandler(handler))
	}
}

// handle 注册单个 HTTP 方法的路由
func (rg *RouterGroup) handle(method, path string, handler HandlerFunc, middlewares []HandlerFunc) {
	if len(middlewares) > 0 {
		handlers := append(WrapMiddlewares(middlewares...), WrapHandler(handler))
		rg.group.Handle(method, path, handlers...)
	} else {
		rg.group.Handle(method, path, WrapHandler(handler))
	}
}

// ============ 静态文件服务 ============

// Static 注册静态文件服务（目录）
func (rg *RouterGroup) Static(relativePath, root string) {
	rg.group.Static(relativePath, root)
}

// StaticFile 注册静态文件服务（单个文件）
func (rg *RouterGroup) StaticFile(relativePath, filepath string) {
	rg.group.StaticFile(relativePath, filepath)
}

// StaticFS 注册静态文件系统服务
func (rg *RouterGroup) StaticFS(relativePath string, fs http.FileSystem) {
	rg.group.StaticFS(relativePath, fs)
}

// ============ 控制器挂载 ============

// Mount 将控制器声明的路由、钩子和 WebSocket 端点注册到当前路由组
// 任何声明错误（处理方法不存在、签名不符、路由冲突）都会在注册任何
// 路由之前返回，保证不会产生部分注册的控制器
func (rg *RouterGroup) Mount(ctrl Controller) error {
	return rg.engine.mount(rg, ctrl)
}

// MustMount 与 Mount 相同，注册失败时 panic
// 适合在 main 中挂载静态已知的控制器
func (rg *RouterGroup) MustMount(ctrl Controller) {
	if err := rg.Mount(ctrl); err != nil {
		panic(err)
	}
}
