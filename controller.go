package lu

import (
	"fmt"
	"net/http"
	"strings"
)

// Controller 控制器接口
// 实现者在 Routes 中声明自己的路由和钩子，通过 RouterGroup.Mount 挂载：
//
//	type WidgetController struct{}
//
//	func (w *WidgetController) Routes(b *lu.Routes) {
//		b.BeforeRequest("CheckAuth")
//		b.GET("/widgets", "List")
//		b.GET("/widgets/:id", "Show")
//		b.Socket("/widgets/stream", "Stream")
//	}
//
// 处理方法按名字解析：HTTP 路由和 before/after 钩子的签名为
// func(*lu.Context) error，WebSocket 路由和 connect/disconnect 钩子的
// 签名为 func(*ws.Conn) error。方法不存在或签名不符时 Mount 返回错误
type Controller interface {
	Routes(b *Routes)
}

// Routes 路由声明收集器
// 同一个处理方法只能承担一种角色（HTTP 路由、WebSocket 路由或某一类
// 钩子），冲突在 Mount 时作为致命错误返回
type Routes struct {
	routes  []Route
	sockets []SocketRoute
	hooks   map[HookKind][]string
	bases   []Controller
	markers map[string]string
	errs    []error
}

func newRoutes() *Routes {
	return &Routes{
		hooks:   make(map[HookKind][]string),
		markers: make(map[string]string),
	}
}

// ============ HTTP 路由 ============

// GET 声明 GET 路由
func (b *Routes) GET(path, handler string) { b.Handle(http.MethodGet, path, handler) }

// POST 声明 POST 路由
func (b *Routes) POST(path, handler string) { b.Handle(http.MethodPost, path, handler) }

// PUT 声明 PUT 路由
func (b *Routes) PUT(path, handler string) { b.Handle(http.MethodPut, path, handler) }

// PATCH 声明 PATCH 路由
func (b *Routes) PATCH(path, handler string) { b.Handle(http.MethodPatch, path, handler) }

// DELETE 声明 DELETE 路由
func (b *Routes) DELETE(path, handler string) { b.Handle(http.MethodDelete, path, handler) }

// Handle 声明任意 HTTP 方法的路由
func (b *Routes) Handle(method, path, handler string) {
	if !b.checkPath(path) || !b.mark(handler, "route") {
		return
	}
	b.routes = append(b.routes, Route{Method: strings.ToUpper(method), Path: path, Handler: handler})
}

// ============ WebSocket 路由 ============

// Socket 声明 WebSocket 路由
func (b *Routes) Socket(path, handler string) {
	if !b.checkPath(path) || !b.mark(handler, "socket") {
		return
	}
	b.sockets = append(b.sockets, SocketRoute{Path: path, Handler: handler})
}

// ============ 钩子 ============

// BeforeRequest 声明请求前钩子，按声明顺序执行
// 任何一个钩子返回错误时请求中止，处理方法和后续钩子不再执行
func (b *Routes) BeforeRequest(handler string) { b.hook(HookBeforeRequest, handler) }

// AfterRequest 声明请求后钩子，处理方法完成后执行（无论成败）
// 钩子失败仅记录日志，不影响响应和其他钩子
func (b *Routes) AfterRequest(handler string) { b.hook(HookAfterRequest, handler) }

// OnConnect 声明连接建立钩子
// 钩子返回 errors.ErrUnauthorized 时以策略违规状态码关闭连接，
// 返回其他错误时以内部错误状态码关闭，两种情况都不再调用处理方法
func (b *Routes) OnConnect(handler string) { b.hook(HookOnConnect, handler) }

// OnDisconnect 声明连接断开钩子，连接结束时执行且只执行一次
// 钩子失败仅记录日志
func (b *Routes) OnDisconnect(handler string) { b.hook(HookOnDisconnect, handler) }

func (b *Routes) hook(kind HookKind, handler string) {
	if !b.mark(handler, string(kind)) {
		return
	}
	b.hooks[kind] = append(b.hooks[kind], handler)
}

// ============ 控制器组合 ============

// Extend 继承另一个控制器的路由和钩子声明
// 被扩展控制器的声明总是排在当前控制器自身声明之前，与 Extend 的
// 调用位置无关
func (b *Routes) Extend(base Controller) {
	if base == nil {
		b.errs = append(b.errs, fmt.Errorf("lu: Extend 的控制器不能为 nil"))
		return
	}
	b.bases = append(b.bases, base)
}

// ============ 内部校验 ============

// mark 记录处理方法的角色，角色冲突时收集错误
func (b *Routes) mark(handler, role string) bool {
	if handler == "" {
		b.errs = append(b.errs, fmt.Errorf("lu: 处理方法名不能为空"))
		return false
	}
	if prev, ok := b.markers[handler]; ok && prev != role {
		b.errs = append(b.errs, fmt.Errorf("lu: 方法 %s 不能同时作为 %s 和 %s", handler, prev, role))
		return false
	}
	b.markers[handler] = role
	return true
}

func (b *Routes) checkPath(path string) bool {
	if !strings.HasPrefix(path, "/") {
		b.errs = append(b.errs, fmt.Errorf("lu: 路由路径必须以 / 开头: %q", path))
		return false
	}
	return true
}
