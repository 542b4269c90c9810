package ws

import (
	"errors"
	"io"
	"net"

	"github.com/gorilla/websocket"
)

// 错误定义
var (
	// ErrConnectionClosed 连接已关闭
	ErrConnectionClosed = errors.New("ws: connection closed")
)

// 关闭状态码（RFC 6455）
const (
	// CloseNormal 正常关闭
	CloseNormal = websocket.CloseNormalClosure
	// CloseGoingAway 服务端下线
	CloseGoingAway = websocket.CloseGoingAway
	// ClosePolicyViolation 策略违规（鉴权失败）
	ClosePolicyViolation = websocket.ClosePolicyViolation
	// CloseInternalErr 服务端内部错误
	CloseInternalErr = websocket.CloseInternalServerErr
)

// IsDisconnect 判断错误是否为对端断开（视为正常退出）
func IsDisconnect(err error) bool {
	if err == nil {
		return false
	}
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return true
	}
	return errors.Is(err, ErrConnectionClosed) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}
