// Package ws 为 Lu 框架提供 WebSocket 连接管理。
//
// Manager 按端点路径跟踪所有活跃连接，并以"房间"为单位提供动态分组，
// 支持路径级广播与房间级定向推送。所有注册表变更（Accept、Disconnect、
// JoinRoom、LeaveRoom）在同一把锁下完成，保证房间正反向索引在任意时刻
// 保持一致：room ∈ connRooms[c] 当且仅当 c ∈ rooms[room]。
//
// 基本用法：
//
//	manager := ws.NewManager(ws.WithLogger(log))
//
//	// 在路由中升级连接
//	conn, err := manager.Upgrade("/chat", c.Writer(), c.Request())
//	if err != nil {
//	    return
//	}
//	defer conn.Close(ws.CloseNormal)
//
//	// 加入房间并广播
//	manager.JoinRoom(conn, "lobby")
//	manager.SendToRoom("lobby", "hello")
//	manager.Broadcast("/chat", "hello everyone")
//
// 发送失败（对端断开、缓冲区异常等）不会中断本次广播，失败的连接会被
// 记录日志并从注册表中隐式注销。Disconnect 是幂等的：重复调用不会报错，
// 第二次调用是空操作。
//
// 关闭服务时调用 Shutdown 并发关闭所有被跟踪的连接：
//
//	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
//	defer cancel()
//	manager.Shutdown(ctx)
package ws
