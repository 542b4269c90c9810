package ws

import (
	"context"
	"net/http"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tokmz/lu/pkg/logger"
)

// Manager WebSocket 连接管理器
// 维护三张索引：路径 -> 连接列表、房间 -> 连接集合、连接 -> 已加入房间。
// 所有变更在同一把锁下完成，房间正反向索引对外永远一致。
type Manager struct {
	mu        sync.RWMutex
	conns     map[string][]*Conn            // path -> 活跃连接
	rooms     map[string]map[*Conn]struct{} // room -> 连接集合
	connRooms map[*Conn]map[string]struct{} // 连接 -> 房间（反向索引）

	config   *Config
	upgrader *Upgrader
	log      logger.Logger
	metrics  Metrics
}

// NewManager 创建管理器
func NewManager(opts ...Option) *Manager {
	config := defaultConfig()
	for _, opt := range opts {
		opt(config)
	}

	if config.Logger == nil {
		config.Logger = logger.Nop()
	}
	if config.Metrics == nil {
		config.Metrics = &NoopMetrics{}
	}

	return &Manager{
		conns:     make(map[string][]*Conn),
		rooms:     make(map[string]map[*Conn]struct{}),
		connRooms: make(map[*Conn]map[string]struct{}),
		config:    config,
		upgrader:  NewUpgrader(config.Upgrader),
		log:       config.Logger,
		metrics:   config.Metrics,
	}
}

// Upgrade 将 HTTP 请求升级为 WebSocket 连接并注册到 path 下
// 握手失败时错误原样返回，不做处理
func (m *Manager) Upgrade(path string, w http.ResponseWriter, r *http.Request) (*Conn, error) {
	wsConn, err := m.upgrader.Upgrade(w, r)
	if err != nil {
		return nil, err
	}

	conn := newConn(wsConn, m, r)
	m.Accept(path, conn)
	return conn, nil
}

// Accept 将连接注册到 path 下
// 同一路径可以承载任意多条连接
func (m *Manager) Accept(path string, c *Conn) {
	m.mu.Lock()
	c.path = path
	m.conns[path] = append(m.conns[path], c)
	m.mu.Unlock()

	m.metrics.IncrementConnections()
	m.metrics.SetConnectionCount(m.TotalConnections())
	m.log.Info("websocket 已连接",
		zap.String("conn_id", c.id),
		zap.String("path", path),
		zap.String("remote", c.RemoteAddr()),
	)
}

// Disconnect 将连接从 path 及其加入的所有房间中注销
// 原子完成：观察者不会看到"已离开路径但仍在房间"的中间态。
// 幂等：对同一连接重复调用时第二次为空操作，不会报错
func (m *Manager) Disconnect(path string, c *Conn) {
	m.mu.Lock()

	list := m.conns[path]
	found := false
	for i, conn := range list {
		if conn == c {
			m.conns[path] = append(list[:i], list[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		m.mu.Unlock()
		return
	}
	if len(m.conns[path]) == 0 {
		delete(m.conns, path)
	}

	// 从所有房间移除并清空反向索引
	for room := range m.connRooms[c] {
		delete(m.rooms[room], c)
		if len(m.rooms[room]) == 0 {
			delete(m.rooms, room)
		}
	}
	delete(m.connRooms, c)
	roomCount := len(m.rooms)

	m.mu.Unlock()

	m.metrics.DecrementConnections()
	m.metrics.SetConnectionCount(m.TotalConnections())
	m.metrics.SetRoomCount(roomCount)
	m.log.Info("websocket 已断开",
		zap.String("conn_id", c.id),
		zap.String("path", path),
	)
}

// JoinRoom 将连接加入房间（同时维护正反向索引）
func (m *Manager) JoinRoom(c *Conn, room string) {
	m.mu.Lock()
	if m.rooms[room] == nil {
		m.rooms[room] = make(map[*Conn]struct{})
	}
	m.rooms[room][c] = struct{}{}

	if m.connRooms[c] == nil {
		m.connRooms[c] = make(map[string]struct{})
	}
	m.connRooms[c][room] = struct{}{}
	roomCount := len(m.rooms)
	m.mu.Unlock()

	m.metrics.SetRoomCount(roomCount)
	m.log.Debug("加入房间", zap.String("conn_id", c.id), zap.String("room", room))
}

// LeaveRoom 将连接移出房间，未加入时为空操作
func (m *Manager) LeaveRoom(c *Conn, room string) {
	m.mu.Lock()
	if _, ok := m.rooms[room][c]; !ok {
		m.mu.Unlock()
		return
	}
	delete(m.rooms[room], c)
	if len(m.rooms[room]) == 0 {
		delete(m.rooms, room)
	}
	delete(m.connRooms[c], room)
	if len(m.connRooms[c]) == 0 {
		delete(m.connRooms, c)
	}
	roomCount := len(m.rooms)
	m.mu.Unlock()

	m.metrics.SetRoomCount(roomCount)
	m.log.Debug("离开房间", zap.String("conn_id", c.id), zap.String("room", room))
}

// Broadcast 向 path 下的所有连接发送文本消息
// 发送目标为调用时刻的快照，之后新接入的连接不会收到本条消息。
// 单个连接发送失败只影响它自己：记录日志并隐式注销，广播继续
func (m *Manager) Broadcast(path, message string) {
	m.mu.RLock()
	targets := make([]*Conn, len(m.conns[path]))
	copy(targets, m.conns[path])
	m.mu.RUnlock()

	m.log.Debug("广播消息",
		zap.String("path", path),
		zap.Int("targets", len(targets)),
	)

	for _, c := range targets {
		if err := c.SendText(message); err != nil {
			m.metrics.IncrementSendErrors(path)
			m.log.Warn("广播发送失败，注销连接",
				zap.String("conn_id", c.id),
				zap.String("path", path),
				zap.Error(err),
			)
			m.Disconnect(path, c)
		}
	}
}

// SendToRoom 向房间内的所有连接发送文本消息
// 失败处理与 Broadcast 一致：失败的连接被隐式注销
func (m *Manager) SendToRoom(room, message string) {
	m.mu.RLock()
	targets := make([]*Conn, 0, len(m.rooms[room]))
	for c := range m.rooms[room] {
		targets = append(targets, c)
	}
	m.mu.RUnlock()

	m.log.Debug("房间消息",
		zap.String("room", room),
		zap.Int("targets", len(targets)),
	)

	for _, c := range targets {
		if err := c.SendText(message); err != nil {
			m.metrics.IncrementSendErrors(c.path)
			m.log.Warn("房间发送失败，注销连接",
				zap.String("conn_id", c.id),
				zap.String("room", room),
				zap.Error(err),
			)
			m.Disconnect(c.path, c)
		}
	}
}

// ConnectionCount 返回 path 下的连接数
func (m *Manager) ConnectionCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conns[path])
}

// TotalConnections 返回所有路径下的连接总数
func (m *Manager) TotalConnections() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := 0
	for _, list := range m.conns {
		total += len(list)
	}
	return total
}

// RoomSize 返回房间内的连接数
func (m *Manager) RoomSize(room string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms[room])
}

// RoomsOf 返回连接已加入的房间（按名称排序）
func (m *Manager) RoomsOf(c *Conn) []string {
	m.mu.RLock()
	rooms := make([]string, 0, len(m.connRooms[c]))
	for room := range m.connRooms[c] {
		rooms = append(rooms, room)
	}
	m.mu.RUnlock()

	sort.Strings(rooms)
	return rooms
}

// Shutdown 并发关闭所有被跟踪的连接
// 连接关闭时会自行从注册表注销
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.RLock()
	all := make([]*Conn, 0)
	for _, list := range m.conns {
		all = append(all, list...)
	}
	m.mu.RUnlock()

	var g errgroup.Group
	for _, c := range all {
		g.Go(func() error {
			return c.Close(CloseGoingAway)
		})
	}

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
