package ws

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// transport 底层连接能力抽象（*websocket.Conn 天然满足）
type transport interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetReadLimit(limit int64)
	Close() error
	RemoteAddr() net.Addr
}

// Conn 一条活跃的 WebSocket 连接
// 每条连接持有进程内唯一的不透明标识，销毁后不会再出现在注册表中
type Conn struct {
	id      string
	path    string
	ws      transport
	manager *Manager
	request *http.Request

	// 元数据（鉴权结果、用户信息等）
	metadata sync.Map

	// gorilla 要求写操作串行化
	writeMu sync.Mutex

	closed    atomic.Bool
	closeOnce sync.Once
}

// NewConn 包装一条已升级的 WebSocket 连接
// 通常无需直接调用，Manager.Upgrade 会完成升级与注册
func NewConn(c *websocket.Conn, m *Manager, r *http.Request) *Conn {
	return newConn(c, m, r)
}

func newConn(t transport, m *Manager, r *http.Request) *Conn {
	conn := &Conn{
		id:      uuid.NewString(),
		ws:      t,
		manager: m,
		request: r,
	}
	if m != nil && m.config.MaxMessageSize > 0 {
		t.SetReadLimit(m.config.MaxMessageSize)
	}
	return conn
}

// ID 返回连接标识
func (c *Conn) ID() string {
	return c.id
}

// Path 返回连接被接受时的端点路径
func (c *Conn) Path() string {
	return c.path
}

// Request 返回发起握手的 HTTP 请求（可能为 nil）
func (c *Conn) Request() *http.Request {
	return c.request
}

// RemoteAddr 返回对端地址
func (c *Conn) RemoteAddr() string {
	if addr := c.ws.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

// IsClosed 检查连接是否已关闭
func (c *Conn) IsClosed() bool {
	return c.closed.Load()
}

// ReadText 阻塞读取一条文本消息
// 对端断开时返回的错误满足 IsDisconnect
func (c *Conn) ReadText() (string, error) {
	if c.closed.Load() {
		return "", ErrConnectionClosed
	}
	for {
		mt, data, err := c.ws.ReadMessage()
		if err != nil {
			return "", err
		}
		if mt == websocket.TextMessage {
			if c.manager != nil {
				c.manager.metrics.IncrementMessages(c.path)
			}
			return string(data), nil
		}
		// 忽略二进制帧，继续等待文本消息
	}
}

// ReadJSON 阻塞读取一条文本消息并反序列化
func (c *Conn) ReadJSON(v any) error {
	data, err := c.ReadText()
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), v)
}

// SendText 发送文本消息
func (c *Conn) SendText(msg string) error {
	if c.closed.Load() {
		return ErrConnectionClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, []byte(msg))
}

// SendJSON 序列化后发送文本消息
func (c *Conn) SendJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.SendText(string(data))
}

// JoinRoom 加入房间
func (c *Conn) JoinRoom(room string) {
	if c.manager != nil {
		c.manager.JoinRoom(c, room)
	}
}

// LeaveRoom 离开房间（未加入时为空操作）
func (c *Conn) LeaveRoom(room string) {
	if c.manager != nil {
		c.manager.LeaveRoom(c, room)
	}
}

// Rooms 返回已加入的房间
func (c *Conn) Rooms() []string {
	if c.manager == nil {
		return nil
	}
	return c.manager.RoomsOf(c)
}

// GetMetadata 获取元数据
func (c *Conn) GetMetadata(key string) (any, bool) {
	return c.metadata.Load(key)
}

// SetMetadata 设置元数据
func (c *Conn) SetMetadata(key string, value any) {
	c.metadata.Store(key, value)
}

// Close 以指定状态码关闭连接并从管理器注销
// 幂等：重复调用为空操作
func (c *Conn) Close(code int) error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)

		// 尽力发送关闭帧，失败不影响后续清理
		deadline := time.Now().Add(c.writeWait())
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(code, ""), deadline)

		err = c.ws.Close()

		if c.manager != nil {
			c.manager.Disconnect(c.path, c)
		}
	})
	return err
}

func (c *Conn) writeWait() time.Duration {
	if c.manager != nil && c.manager.config.WriteWait > 0 {
		return c.manager.config.WriteWait
	}
	return 10 * time.Second
}
