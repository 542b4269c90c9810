package main

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/tokmz/lu"
	"github.com/tokmz/lu/pkg/errors"
	"github.com/tokmz/lu/pkg/logger"
	"github.com/tokmz/lu/pkg/mongo"
	"github.com/tokmz/lu/pkg/ws"
)

// Message 聊天消息文档
type Message struct {
	mongo.Model `bson:",inline"`
	Room        string `bson:"room" json:"room"`
	Text        string `bson:"text" json:"text"`
}

// BaseController 公共钩子，供业务控制器 Extend
type BaseController struct{}

func (b *BaseController) Routes(r *lu.Routes) {
	r.BeforeRequest("CheckAuth")
}

// CheckAuth 简单的 Token 校验钩子
func (b *BaseController) CheckAuth(c *lu.Context) error {
	if c.GetHeader("X-Token") == "" {
		return errors.ErrUnauthorized
	}
	return nil
}

// ChatController 聊天室控制器
type ChatController struct {
	BaseController
	messages *mongo.Repo[Message]
	sockets  *ws.Manager
}

func (cc *ChatController) Routes(r *lu.Routes) {
	r.Extend(&BaseController{})
	r.AfterRequest("Audit")

	r.GET("/messages", "List")
	r.POST("/messages", "Create")
	r.GET("/messages/:id", "Show")

	r.Socket("/stream", "Stream")
	r.OnConnect("Authorize")
	r.OnDisconnect("Farewell")
}

// List 分页查询消息
func (cc *ChatController) List(c *lu.Context) error {
	var q struct {
		Room    string `form:"room"`
		Page    int64  `form:"page"`
		PerPage int64  `form:"per_page"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		return errors.ErrBadRequest.WithError(err)
	}

	filter := bson.M{}
	if q.Room != "" {
		filter["room"] = q.Room
	}

	docs, err := cc.messages.Find(c.RequestContext(), filter, q.Page, q.PerPage)
	if err != nil {
		return err
	}
	total, err := cc.messages.Count(c.RequestContext(), filter)
	if err != nil {
		return err
	}
	c.Page(docs, uint64(total))
	return nil
}

// Create 发送一条消息并推送给房间内的连接
func (cc *ChatController) Create(c *lu.Context) error {
	var req struct {
		Room string `json:"room" binding:"required"`
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		return errors.ErrBadRequest.WithError(err)
	}

	doc := &Message{Room: req.Room, Text: req.Text}
	if err := cc.messages.Insert(c.RequestContext(), doc); err != nil {
		return err
	}

	cc.sockets.SendToRoom(req.Room, req.Text)
	c.Success(doc)
	return nil
}

// Show 按 ID 查询单条消息
func (cc *ChatController) Show(c *lu.Context) error {
	doc, err := cc.messages.FindByID(c.RequestContext(), c.Param("id"))
	if err != nil {
		return err
	}
	c.Success(doc)
	return nil
}

// Audit 请求后审计钩子
func (cc *ChatController) Audit(c *lu.Context) error {
	lu.SetContextTraceID(c, c.GetHeader("X-Request-Id"))
	return nil
}

// Authorize WebSocket 连接鉴权
func (cc *ChatController) Authorize(conn *ws.Conn) error {
	if conn.Request().URL.Query().Get("token") == "" {
		return errors.ErrUnauthorized
	}
	return nil
}

// Farewell 连接断开钩子
func (cc *ChatController) Farewell(conn *ws.Conn) error {
	cc.sockets.Broadcast(conn.Path(), "someone left")
	return nil
}

// Stream 聊天消息流
// 第一条消息作为房间名加入，此后所有消息转发给同房间的连接
func (cc *ChatController) Stream(conn *ws.Conn) error {
	room, err := conn.ReadText()
	if err != nil {
		return err
	}
	conn.JoinRoom(room)

	for {
		text, err := conn.ReadText()
		if err != nil {
			return err
		}
		cc.sockets.SendToRoom(room, text)
	}
}

func main() {
	logg, err := logger.NewDevelopment()
	if err != nil {
		log.Fatalf("创建日志实例失败: %v", err)
	}
	defer logg.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	dbm := mongo.NewManager()
	if err := dbm.Connect(ctx, "chat", &mongo.Config{
		URI:      "mongodb://localhost:27017",
		Database: "chat",
	}); err != nil {
		log.Fatalf("连接 MongoDB 失败: %v", err)
	}
	defer dbm.Close(context.Background())

	db, err := dbm.DB()
	if err != nil {
		log.Fatalf("获取数据库实例失败: %v", err)
	}

	app := lu.Default(
		lu.WithAddr(":8080"),
		lu.WithLogger(logg),
		lu.WithSocketOptions(ws.WithAllowAllOrigins()),
	)

	chat := &ChatController{
		messages: mongo.NewRepo[Message](db, "messages"),
		sockets:  app.Sockets(),
	}
	if err := app.Group("/chat").Mount(chat); err != nil {
		log.Fatalf("挂载控制器失败: %v", err)
	}

	if err := app.Run(); err != nil {
		log.Fatalf("服务器退出: %v", err)
	}
}
