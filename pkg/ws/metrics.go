package ws

// Metrics 监控接口
type Metrics interface {
	// 连接指标
	IncrementConnections()
	DecrementConnections()
	SetConnectionCount(count int)

	// 消息指标
	IncrementMessages(path string)
	IncrementSendErrors(path string)

	// 房间指标
	SetRoomCount(count int)
}

// NoopMetrics 空实现（默认）
type NoopMetrics struct{}

func (m *NoopMetrics) IncrementConnections()           {}
func (m *NoopMetrics) DecrementConnections()           {}
func (m *NoopMetrics) SetConnectionCount(count int)    {}
func (m *NoopMetrics) IncrementMessages(path string)   {}
func (m *NoopMetrics) IncrementSendErrors(path string) {}
func (m *NoopMetrics) SetRoomCount(count int)          {}
