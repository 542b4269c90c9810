package ws

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tokmz/lu/pkg/logger"
)

// Config 管理器配置
type Config struct {
	// WriteWait 单次写操作超时
	WriteWait time.Duration

	// MaxMessageSize 最大消息大小（字节），0 表示不限制
	MaxMessageSize int64

	// Upgrader 升级器配置
	Upgrader UpgraderConfig

	// Logger 日志实例（默认静默）
	Logger logger.Logger

	// Metrics 监控（默认空实现）
	Metrics Metrics
}

// UpgraderConfig 升级器配置
type UpgraderConfig struct {
	ReadBufferSize    int                      // 读缓冲区大小
	WriteBufferSize   int                      // 写缓冲区大小
	HandshakeTimeout  time.Duration            // 握手超时时间
	CheckOrigin       func(*http.Request) bool // Origin 检查函数
	AllowedOrigins    []string                 // 允许的 Origin 白名单
	EnableCompression bool                     // 是否启用压缩
}

// defaultConfig 返回默认配置
func defaultConfig() *Config {
	return &Config{
		WriteWait:      10 * time.Second,
		MaxMessageSize: 512 * 1024, // 512KB
		Upgrader: UpgraderConfig{
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

// Option 配置选项
type Option func(*Config)

// WithLogger 设置日志实例
func WithLogger(log logger.Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

// WithMetrics 设置监控
func WithMetrics(metrics Metrics) Option {
	return func(c *Config) {
		c.Metrics = metrics
	}
}

// WithWriteWait 设置写超时
func WithWriteWait(d time.Duration) Option {
	return func(c *Config) {
		c.WriteWait = d
	}
}

// WithMaxMessageSize 设置最大消息大小
func WithMaxMessageSize(size int64) Option {
	return func(c *Config) {
		c.MaxMessageSize = size
	}
}

// WithCheckOrigin 设置 Origin 检查函数
func WithCheckOrigin(fn func(*http.Request) bool) Option {
	return func(c *Config) {
		c.Upgrader.CheckOrigin = fn
	}
}

// WithCheckOriginWhitelist 设置 Origin 白名单
// 示例：WithCheckOriginWhitelist([]string{"https://example.com"})
func WithCheckOriginWhitelist(allowedOrigins []string) Option {
	return func(c *Config) {
		c.Upgrader.AllowedOrigins = allowedOrigins
		c.Upgrader.CheckOrigin = createWhitelistChecker(allowedOrigins)
	}
}

// WithAllowAllOrigins 允许所有来源（仅用于开发环境）
func WithAllowAllOrigins() Option {
	return func(c *Config) {
		c.Upgrader.CheckOrigin = func(r *http.Request) bool {
			return true
		}
	}
}

// WithEnableCompression 启用压缩
func WithEnableCompression(enable bool) Option {
	return func(c *Config) {
		c.Upgrader.EnableCompression = enable
	}
}

// defaultCheckOrigin 默认 Origin 检查（同源策略）
// 空 Origin（非浏览器客户端）放行，跨源请求拒绝
func defaultCheckOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return origin == "http://"+r.Host || origin == "https://"+r.Host
}

// createWhitelistChecker 创建白名单检查器
func createWhitelistChecker(allowedOrigins []string) func(*http.Request) bool {
	whitelist := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		whitelist[origin] = true
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// 白名单模式下拒绝空 Origin
			return false
		}
		return whitelist[origin]
	}
}

// Upgrader WebSocket 升级器
type Upgrader struct {
	upgrader websocket.Upgrader
}

// NewUpgrader 创建升级器
func NewUpgrader(config UpgraderConfig) *Upgrader {
	checkOrigin := config.CheckOrigin
	if checkOrigin == nil {
		if len(config.AllowedOrigins) > 0 {
			checkOrigin = createWhitelistChecker(config.AllowedOrigins)
		} else {
			checkOrigin = defaultCheckOrigin
		}
	}

	return &Upgrader{
		upgrader: websocket.Upgrader{
			ReadBufferSize:    config.ReadBufferSize,
			WriteBufferSize:   config.WriteBufferSize,
			HandshakeTimeout:  config.HandshakeTimeout,
			CheckOrigin:       checkOrigin,
			EnableCompression: config.EnableCompression,
		},
	}
}

// Upgrade 升级 HTTP 连接为 WebSocket
func (u *Upgrader) Upgrade(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return u.upgrader.Upgrade(w, r, nil)
}
