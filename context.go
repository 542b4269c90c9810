package lu

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tokmz/lu/pkg/errors"
)

// Context 包装 gin.Context，提供增强的 API
// gin.Context 作为私有字段，避免暴露底层实现
type Context struct {
	ctx *gin.Context
}

// newContext 创建新的上下文
func newContext(c *gin.Context) *Context {
	return &Context{ctx: c}
}

// NewContext 创建新的上下文（公开方法，用于测试）
func NewContext(c *gin.Context) *Context {
	return &Context{ctx: c}
}

// ============ Gin Context 访问方法 ============

// Request 返回底层的 *http.Request
func (c *Context) Request() *http.Request {
	return c.ctx.Request
}

// Writer 返回底层的 http.ResponseWriter
func (c *Context) Writer() gin.ResponseWriter {
	return c.ctx.Writer
}

// Param 获取路径参数
func (c *Context) Param(key string) string {
	return c.ctx.Param(key)
}

// FullPath 获取路由模板路径（如 /users/:id）
func (c *Context) FullPath() string {
	return c.ctx.FullPath()
}

// Query 获取 URL 查询参数
func (c *Context) Query(key string) string {
	return c.ctx.Query(key)
}

// DefaultQuery 获取 URL 查询参数（带默认值）
func (c *Context) DefaultQuery(key, defaultValue string) string {
	return c.ctx.DefaultQuery(key, defaultValue)
}

// GetQuery 获取 URL 查询参数（返回是否存在）
func (c *Context) GetQuery(key string) (string, bool) {
	return c.ctx.GetQuery(key)
}

// PostForm 获取 POST 表单参数
func (c *Context) PostForm(key string) string {
	return c.ctx.PostForm(key)
}

// ShouldBind 绑定请求参数（不自动响应错误）
func (c *Context) ShouldBind(obj any) error {
	return c.ctx.ShouldBind(obj)
}

// ShouldBindJSON 绑定 JSON 请求体（不自动响应错误）
func (c *Context) ShouldBindJSON(obj any) error {
	return c.ctx.ShouldBindJSON(obj)
}

// ShouldBindQuery 绑定 URL 查询参数（不自动响应错误）
func (c *Context) ShouldBindQuery(obj any) error {
	return c.ctx.ShouldBindQuery(obj)
}

// ShouldBindUri 绑定路径参数（不自动响应错误）
func (c *Context) ShouldBindUri(obj any) error {
	return c.ctx.ShouldBindUri(obj)
}

// JSON 发送 JSON 响应
func (c *Context) JSON(code int, obj any) {
	c.ctx.JSON(code, obj)
}

// Set 设置上下文键值对
func (c *Context) Set(key string, value any) {
	c.ctx.Set(key, value)
}

// Get 获取上下文键值对
func (c *Context) Get(key string) (any, bool) {
	return c.ctx.Get(key)
}

// GetString 获取字符串类型的上下文值
func (c *Context) GetString(key string) string {
	return c.ctx.GetString(key)
}

// GetInt64 获取 int64 类型的上下文值
func (c *Context) GetInt64(key string) int64 {
	return c.ctx.GetInt64(key)
}

// Next 执行下一个中间件或处理函数
func (c *Context) Next() {
	c.ctx.Next()
}

// Abort 中止请求处理
func (c *Context) Abort() {
	c.ctx.Abort()
}

// AbortWithStatus 中止请求并设置状态码
func (c *Context) AbortWithStatus(code int) {
	c.ctx.AbortWithStatus(code)
}

// IsAborted 检查请求是否已中止
func (c *Context) IsAborted() bool {
	return c.ctx.IsAborted()
}

// ClientIP 获取客户端 IP
func (c *Context) ClientIP() string {
	return c.ctx.ClientIP()
}

// GetHeader 获取请求头
func (c *Context) GetHeader(key string) string {
	return c.ctx.GetHeader(key)
}

// Header 设置响应头
func (c *Context) Header(key, value string) {
	c.ctx.Header(key, value)
}

// ============ 请求绑定方法 ============

// Bind 自动绑定并验证请求参数（根据 Content-Type 自动选择）
// 绑定失败时自动响应错误，用户只需判断 err != nil 并 return
func (c *Context) Bind(obj any) error {
	if err := c.ctx.ShouldBind(obj); err != nil {
		wrappedErr := c.wrapBindError(err)
		c.RespondError(wrappedErr)
		return wrappedErr
	}
	return nil
}

// BindJSON 绑定 JSON 请求体
// 绑定失败时自动响应错误，用户只需判断 err != nil 并 return
func (c *Context) BindJSON(obj any) error {
	if err := c.ctx.ShouldBindJSON(obj); err != nil {
		wrappedErr := c.wrapBindError(err)
		c.RespondError(wrappedErr)
		return wrappedErr
	}
	return nil
}

// BindQuery 绑定 URL 查询参数
func (c *Context) BindQuery(obj any) error {
	if err := c.ctx.ShouldBindQuery(obj); err != nil {
		wrappedErr := c.wrapBindError(err)
		c.RespondError(wrappedErr)
		return wrappedErr
	}
	return nil
}

// BindURI 绑定路径参数
func (c *Context) BindURI(obj any) error {
	if err := c.ctx.ShouldBindUri(obj); err != nil {
		wrappedErr := c.wrapBindError(err)
		c.RespondError(wrappedErr)
		return wrappedErr
	}
	return nil
}

// wrapBindError 包装绑定错误
func (c *Context) wrapBindError(err error) error {
	return errors.ErrBadRequest.WithError(err)
}

// ============ 响应方法 ============

// Success 成功响应
func (c *Context) Success(data any) {
	c.respond(http.StatusOK, Success(data))
}

// Nil 成功响应（无数据）
func (c *Context) Nil() {
	c.Success(nil)
}

// Fail 失败响应
func (c *Context) Fail(code int, message string) {
	c.respond(http.StatusOK, Fail(code, message))
}

// RespondError 错误响应
func (c *Context) RespondError(err error) {
	var bizErr *errors.Error
	if errors.As(err, &bizErr) {
		resp := NewResponse(bizErr.Code, nil, bizErr.Message)
		c.respond(bizErr.HttpCode, resp)
		return
	}

	// 未知错误 - 使用 ErrServer 的错误码和 HTTP 状态码，但保留原始错误信息
	message := errors.ErrServer.Message
	if err != nil {
		message = err.Error()
	}
	resp := NewResponse(errors.ErrServer.Code, nil, message)
	c.respond(errors.ErrServer.HttpCode, resp)
}

// Page 分页响应
func (c *Context) Page(list any, total uint64) {
	c.respond(http.StatusOK, Success(NewPageResp(list, total)))
}

// respond 统一响应处理（自动添加 TraceID）
func (c *Context) respond(statusCode int, resp *Response) {
	if traceID := GetContextTraceID(c); traceID != "" {
		resp.WithTraceID(traceID)
	}
	c.JSON(statusCode, resp)
}

// RequestContext 返回标准库 context.Context，用于传递给 Service 层
func (c *Context) RequestContext() context.Context {
	return c.ctx.Request.Context()
}
