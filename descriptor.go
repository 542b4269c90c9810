package lu

// Route HTTP 路由声明：(方法, 路径) 绑定到控制器的一个处理方法
type Route struct {
	Method  string // HTTP 方法，如 GET、POST
	Path    string // 路由路径，支持 gin 风格参数（/items/:id）
	Handler string // 控制器处理方法名
}

// SocketRoute WebSocket 路由声明：路径绑定到控制器的一个连接处理方法
type SocketRoute struct {
	Path    string // 端点路径
	Handler string // 控制器处理方法名
}

// HookKind 钩子类型
type HookKind string

const (
	// HookBeforeRequest 请求前钩子，失败时中止请求
	HookBeforeRequest HookKind = "before_request"
	// HookAfterRequest 请求后钩子，失败时仅记录日志
	HookAfterRequest HookKind = "after_request"
	// HookOnConnect 连接建立钩子，失败时关闭连接并跳过处理方法
	HookOnConnect HookKind = "on_connect"
	// HookOnDisconnect 连接断开钩子，失败时仅记录日志
	HookOnDisconnect HookKind = "on_disconnect"
)

// Descriptor 控制器描述信息
// 挂载时构建一次，此后不可变，可通过 Engine.Controllers 查询
type Descriptor struct {
	// Name 控制器类型名
	Name string

	// Routes HTTP 路由，按声明顺序（被扩展的控制器声明在前）
	Routes []Route

	// SocketRoutes WebSocket 路由，按声明顺序
	SocketRoutes []SocketRoute

	// Hooks 各类钩子的处理方法名，按声明顺序（被扩展的控制器声明在前）
	Hooks map[HookKind][]string
}
