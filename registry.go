package lu

import (
	"fmt"
	"reflect"

	"go.uber.org/zap"

	"github.com/tokmz/lu/pkg/errors"
	"github.com/tokmz/lu/pkg/ws"
)

// hookKinds 按执行阶段排列的所有钩子类型
var hookKinds = []HookKind{HookBeforeRequest, HookAfterRequest, HookOnConnect, HookOnDisconnect}

// mount 构建控制器描述信息并注册到路由组
// 所有声明校验（方法存在性、签名、角色冲突、路由重复）都在注册任何
// 路由之前完成，失败时路由表保持不变
func (e *Engine) mount(rg *RouterGroup, ctrl Controller) error {
	desc, bind, err := buildController(ctrl)
	if err != nil {
		return err
	}

	for _, rt := range desc.Routes {
		rg.group.Handle(rt.Method, rt.Path, WrapHandler(e.httpAdapter(desc, bind, rt)))
	}
	for _, sr := range desc.SocketRoutes {
		rg.group.GET(sr.Path, WrapHandler(e.socketAdapter(desc, bind, sr)))
	}

	e.controllers = append(e.controllers, desc)
	e.log.Info("控制器已挂载",
		zap.String("controller", desc.Name),
		zap.Int("routes", len(desc.Routes)),
		zap.Int("sockets", len(desc.SocketRoutes)),
	)
	return nil
}

// buildController 收集控制器声明并绑定处理方法
func buildController(ctrl Controller) (*Descriptor, *binding, error) {
	if ctrl == nil {
		return nil, nil, fmt.Errorf("lu: 控制器不能为 nil")
	}

	name := controllerName(ctrl)
	decls, err := collectRoutes(ctrl, make(map[reflect.Type]bool))
	if err != nil {
		return nil, nil, err
	}

	// 同一控制器内 (方法, 路径) 必须唯一
	seenRoute := make(map[string]bool, len(decls.routes))
	for _, rt := range decls.routes {
		key := rt.Method + " " + rt.Path
		if seenRoute[key] {
			return nil, nil, fmt.Errorf("lu: 控制器 %s 重复声明路由 %s", name, key)
		}
		seenRoute[key] = true
	}

	// WebSocket 路径必须唯一
	seenSocket := make(map[string]bool, len(decls.sockets))
	for _, sr := range decls.sockets {
		if seenSocket[sr.Path] {
			return nil, nil, fmt.Errorf("lu: 控制器 %s 重复声明 WebSocket 路由 %s", name, sr.Path)
		}
		seenSocket[sr.Path] = true
	}

	bind, err := newBinding(ctrl, decls)
	if err != nil {
		return nil, nil, err
	}

	hooks := make(map[HookKind][]string, len(decls.hooks))
	for _, kind := range hookKinds {
		if names := decls.hooks[kind]; len(names) > 0 {
			hooks[kind] = append([]string(nil), names...)
		}
	}

	desc := &Descriptor{
		Name:         name,
		Routes:       append([]Route(nil), decls.routes...),
		SocketRoutes: append([]SocketRoute(nil), decls.sockets...),
		Hooks:        hooks,
	}
	return desc, bind, nil
}

// collectRoutes 递归收集控制器及其 Extend 链的声明
// 被扩展控制器的路由和钩子排在前面，角色冲突跨层级也会被检出
func collectRoutes(ctrl Controller, seen map[reflect.Type]bool) (*Routes, error) {
	t := reflect.TypeOf(ctrl)
	if seen[t] {
		return nil, fmt.Errorf("lu: 控制器 %s 存在循环 Extend", controllerName(ctrl))
	}
	seen[t] = true

	own := newRoutes()
	ctrl.Routes(own)

	merged := newRoutes()
	for _, base := range own.bases {
		bm, err := collectRoutes(base, seen)
		if err != nil {
			return nil, err
		}
		merged.mergeFrom(bm)
	}
	merged.mergeFrom(own)
	merged.errs = append(merged.errs, own.errs...)

	if len(merged.errs) > 0 {
		return nil, errors.Join(merged.errs...)
	}
	return merged, nil
}

// mergeFrom 将另一份声明按顺序并入，复用 mark 检测跨控制器的角色冲突
func (b *Routes) mergeFrom(other *Routes) {
	for _, rt := range other.routes {
		b.Handle(rt.Method, rt.Path, rt.Handler)
	}
	for _, sr := range other.sockets {
		b.Socket(sr.Path, sr.Handler)
	}
	for _, kind := range hookKinds {
		for _, name := range other.hooks[kind] {
			b.hook(kind, name)
		}
	}
}

// ============ 处理方法绑定 ============

var (
	httpHandlerType   = reflect.TypeOf((func(*Context) error)(nil))
	socketHandlerType = reflect.TypeOf((func(*ws.Conn) error)(nil))
)

// binding 保存控制器原型和处理方法的反射索引
// 每次请求通过 newInstance 创建新的控制器实例，处理方法不能依赖
// 跨请求的实例状态
type binding struct {
	proto   reflect.Value
	methods map[string]int
}

func newBinding(ctrl Controller, decls *Routes) (*binding, error) {
	proto := reflect.ValueOf(ctrl)
	if proto.Kind() == reflect.Pointer && proto.IsNil() {
		return nil, fmt.Errorf("lu: 控制器 %s 不能是 nil 指针", controllerName(ctrl))
	}

	b := &binding{
		proto:   proto,
		methods: make(map[string]int, len(decls.markers)),
	}

	// 按声明顺序校验，保证错误信息稳定
	for _, rt := range decls.routes {
		if err := b.resolve(ctrl, rt.Handler, httpHandlerType); err != nil {
			return nil, err
		}
	}
	for _, sr := range decls.sockets {
		if err := b.resolve(ctrl, sr.Handler, socketHandlerType); err != nil {
			return nil, err
		}
	}
	for _, kind := range hookKinds {
		want := httpHandlerType
		if kind == HookOnConnect || kind == HookOnDisconnect {
			want = socketHandlerType
		}
		for _, name := range decls.hooks[kind] {
			if err := b.resolve(ctrl, name, want); err != nil {
				return nil, err
			}
		}
	}
	return b, nil
}

// resolve 查找处理方法并校验签名
func (b *binding) resolve(ctrl Controller, name string, want reflect.Type) error {
	if _, ok := b.methods[name]; ok {
		return nil
	}
	m, ok := b.proto.Type().MethodByName(name)
	if !ok {
		return fmt.Errorf("lu: 控制器 %s 没有方法 %s（处理方法必须导出）", controllerName(ctrl), name)
	}
	got := b.proto.Method(m.Index).Type()
	if got != want {
		return fmt.Errorf("lu: 控制器 %s 方法 %s 签名应为 %s，实际为 %s",
			controllerName(ctrl), name, want, got)
	}
	b.methods[name] = m.Index
	return nil
}

// newInstance 创建控制器的新实例（原型的浅拷贝）
func (b *binding) newInstance() reflect.Value {
	if b.proto.Kind() == reflect.Pointer {
		clone := reflect.New(b.proto.Elem().Type())
		clone.Elem().Set(b.proto.Elem())
		return clone
	}
	// 值类型控制器在方法调用时天然拷贝接收者
	return b.proto
}

func (b *binding) callHTTP(inst reflect.Value, name string, c *Context) error {
	return inst.Method(b.methods[name]).Interface().(func(*Context) error)(c)
}

func (b *binding) callSocket(inst reflect.Value, name string, conn *ws.Conn) error {
	return inst.Method(b.methods[name]).Interface().(func(*ws.Conn) error)(conn)
}

// controllerName 返回控制器的类型名
func controllerName(ctrl Controller) string {
	t := reflect.TypeOf(ctrl)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "<nil>"
	}
	return t.Name()
}

// ============ 适配器 ============

// httpAdapter 构建 HTTP 路由适配器
// 执行顺序：before_request 钩子（首个失败即中止）-> 处理方法 ->
// after_request 钩子（失败仅记录日志）-> 响应处理方法的错误
func (e *Engine) httpAdapter(desc *Descriptor, bind *binding, rt Route) HandlerFunc {
	return func(c *Context) {
		inst := bind.newInstance()

		for _, name := range desc.Hooks[HookBeforeRequest] {
			if err := bind.callHTTP(inst, name, c); err != nil {
				c.RespondError(err)
				c.Abort()
				return
			}
		}

		handlerErr := bind.callHTTP(inst, rt.Handler, c)

		// 处理方法无论成败，after_request 钩子都要执行
		// 钩子失败不能掩盖处理方法的结果
		for _, name := range desc.Hooks[HookAfterRequest] {
			if err := bind.callHTTP(inst, name, c); err != nil {
				e.log.Error("after_request 钩子执行失败",
					zap.String("controller", desc.Name),
					zap.String("hook", name),
					zap.Error(err),
				)
			}
		}

		if handlerErr != nil {
			c.RespondError(handlerErr)
		}
	}
}

// socketAdapter 构建 WebSocket 路由适配器
// 无论处理方法如何退出，on_disconnect 钩子和连接注销都只执行一次
func (e *Engine) socketAdapter(desc *Descriptor, bind *binding, sr SocketRoute) HandlerFunc {
	return func(c *Context) {
		path := c.FullPath()
		if path == "" {
			path = sr.Path
		}

		conn, err := e.sockets.Upgrade(path, c.Writer(), c.Request())
		if err != nil {
			e.log.Warn("WebSocket 升级失败",
				zap.String("controller", desc.Name),
				zap.String("path", path),
				zap.Error(err),
			)
			return
		}

		inst := bind.newInstance()

		defer func() {
			if r := recover(); r != nil {
				e.log.Error("WebSocket 处理方法 panic",
					zap.String("controller", desc.Name),
					zap.String("path", path),
					zap.Any("error", r),
				)
				conn.Close(ws.CloseInternalErr)
			}
			for _, name := range desc.Hooks[HookOnDisconnect] {
				if err := bind.callSocket(inst, name, conn); err != nil {
					e.log.Error("on_disconnect 钩子执行失败",
						zap.String("controller", desc.Name),
						zap.String("hook", name),
						zap.Error(err),
					)
				}
			}
			e.sockets.Disconnect(path, conn)
		}()

		for _, name := range desc.Hooks[HookOnConnect] {
			if err := bind.callSocket(inst, name, conn); err != nil {
				if errors.Is(err, errors.ErrUnauthorized) {
					conn.Close(ws.ClosePolicyViolation)
				} else {
					e.log.Error("on_connect 钩子执行失败",
						zap.String("controller", desc.Name),
						zap.String("hook", name),
						zap.Error(err),
					)
					conn.Close(ws.CloseInternalErr)
				}
				return
			}
		}

		err = bind.callSocket(inst, sr.Handler, conn)
		switch {
		case err == nil:
			conn.Close(ws.CloseNormal)
		case ws.IsDisconnect(err):
			// 对端断开，连接已不可用，只需注销
		case errors.Is(err, errors.ErrUnauthorized):
			conn.Close(ws.ClosePolicyViolation)
		default:
			e.log.Error("WebSocket 处理方法执行失败",
				zap.String("controller", desc.Name),
				zap.String("path", path),
				zap.Error(err),
			)
			conn.Close(ws.CloseInternalErr)
		}
	}
}
