package lu

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/tokmz/lu/pkg/errors"
	"github.com/tokmz/lu/pkg/ws"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestEngine() *Engine {
	return New(WithMode(gin.TestMode))
}

// ============ 定义期错误 ============

type duplicateRouteController struct{}

func (c *duplicateRouteController) Routes(b *Routes) {
	b.GET("/widgets", "List")
	b.GET("/widgets", "ListAgain")
}
func (c *duplicateRouteController) List(ctx *Context) error      { return nil }
func (c *duplicateRouteController) ListAgain(ctx *Context) error { return nil }

func TestMountDuplicateRouteFails(t *testing.T) {
	e := newTestEngine()
	err := e.Mount(&duplicateRouteController{})
	if err == nil {
		t.Fatal("expected duplicate route error, got nil")
	}
	if got := len(e.engine.Routes()); got != 0 {
		t.Errorf("router should stay empty after failed mount, has %d routes", got)
	}
	if got := len(e.Controllers()); got != 0 {
		t.Errorf("controller registry should stay empty, has %d entries", got)
	}
}

type conflictingMarkerController struct{}

func (c *conflictingMarkerController) Routes(b *Routes) {
	b.GET("/things", "Thing")
	b.BeforeRequest("Thing")
}
func (c *conflictingMarkerController) Thing(ctx *Context) error { return nil }

func TestMountConflictingMarkersFails(t *testing.T) {
	e := newTestEngine()
	if err := e.Mount(&conflictingMarkerController{}); err == nil {
		t.Fatal("expected conflicting marker error, got nil")
	}
}

type unknownHandlerController struct{}

func (c *unknownHandlerController) Routes(b *Routes) {
	b.GET("/ghost", "Missing")
}

func TestMountUnknownHandlerFails(t *testing.T) {
	e := newTestEngine()
	err := e.Mount(&unknownHandlerController{})
	if err == nil {
		t.Fatal("expected unknown handler error, got nil")
	}
	if !strings.Contains(err.Error(), "Missing") {
		t.Errorf("error should name the missing method, got %v", err)
	}
}

type badSignatureController struct{}

func (c *badSignatureController) Routes(b *Routes) {
	b.GET("/bad", "Handle")
}
func (c *badSignatureController) Handle(ctx *Context) {} // 缺少 error 返回值

func TestMountBadSignatureFails(t *testing.T) {
	e := newTestEngine()
	if err := e.Mount(&badSignatureController{}); err == nil {
		t.Fatal("expected signature error, got nil")
	}
}

type duplicateSocketController struct{}

func (c *duplicateSocketController) Routes(b *Routes) {
	b.Socket("/stream", "StreamA")
	b.Socket("/stream", "StreamB")
}
func (c *duplicateSocketController) StreamA(conn *ws.Conn) error { return nil }
func (c *duplicateSocketController) StreamB(conn *ws.Conn) error { return nil }

func TestMountDuplicateSocketPathFails(t *testing.T) {
	e := newTestEngine()
	if err := e.Mount(&duplicateSocketController{}); err == nil {
		t.Fatal("expected duplicate socket path error, got nil")
	}
}

// ============ 钩子执行顺序 ============

type hookBaseController struct {
	calls *[]string
}

func (c *hookBaseController) Routes(b *Routes) {
	b.BeforeRequest("BaseBefore")
}
func (c *hookBaseController) BaseBefore(ctx *Context) error {
	*c.calls = append(*c.calls, "base_before")
	return nil
}

type hookOrderController struct {
	hookBaseController
}

func (c *hookOrderController) Routes(b *Routes) {
	b.GET("/hooks", "Handler")
	b.BeforeRequest("OwnBefore")
	b.AfterRequest("After")
	// Extend 放在最后，基类钩子仍应先执行
	b.Extend(&hookBaseController{})
}
func (c *hookOrderController) OwnBefore(ctx *Context) error {
	*c.calls = append(*c.calls, "own_before")
	return nil
}
func (c *hookOrderController) Handler(ctx *Context) error {
	*c.calls = append(*c.calls, "handler")
	ctx.Nil()
	return nil
}
func (c *hookOrderController) After(ctx *Context) error {
	*c.calls = append(*c.calls, "after")
	return nil
}

func TestHookOrderBaseFirst(t *testing.T) {
	e := newTestEngine()
	calls := []string{}
	ctrl := &hookOrderController{}
	ctrl.calls = &calls
	if err := e.Mount(ctrl); err != nil {
		t.Fatalf("mount failed: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/hooks", nil)
	e.engine.ServeHTTP(w, req)

	want := []string{"base_before", "own_before", "handler", "after"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", calls, want)
		}
	}
}

// ============ 钩子失败语义 ============

type failingController struct {
	calls     *[]string
	failHook  bool
	failAfter bool
}

func (c *failingController) Routes(b *Routes) {
	b.BeforeRequest("Before")
	b.GET("/run", "Handler")
	b.AfterRequest("After")
}
func (c *failingController) Before(ctx *Context) error {
	*c.calls = append(*c.calls, "before")
	if c.failHook {
		return errors.ErrForbidden
	}
	return nil
}
func (c *failingController) Handler(ctx *Context) error {
	*c.calls = append(*c.calls, "handler")
	return errors.New(9001, "handler blew up", 500)
}
func (c *failingController) After(ctx *Context) error {
	*c.calls = append(*c.calls, "after")
	if c.failAfter {
		return errors.New(9002, "after hook failed", 500)
	}
	return nil
}

func TestBeforeHookFailureAbortsRequest(t *testing.T) {
	e := newTestEngine()
	calls := []string{}
	if err := e.Mount(&failingController{calls: &calls, failHook: true}); err != nil {
		t.Fatalf("mount failed: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/run", nil)
	e.engine.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
	if len(calls) != 1 || calls[0] != "before" {
		t.Errorf("calls = %v, want [before] only", calls)
	}
}

func TestAfterHookRunsWhenHandlerFails(t *testing.T) {
	e := newTestEngine()
	calls := []string{}
	if err := e.Mount(&failingController{calls: &calls, failAfter: true}); err != nil {
		t.Fatalf("mount failed: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/run", nil)
	e.engine.ServeHTTP(w, req)

	// 处理方法失败后 after 钩子仍执行，且钩子自身的失败不影响响应
	want := []string{"before", "handler", "after"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if !strings.Contains(w.Body.String(), "handler blew up") {
		t.Errorf("response should carry the handler error, got %s", w.Body.String())
	}
}

// ============ 每请求独立实例 ============

type statefulController struct {
	hits    int
	observe *[]int
}

func (c *statefulController) Routes(b *Routes) {
	b.GET("/state", "Handler")
}
func (c *statefulController) Handler(ctx *Context) error {
	c.hits++
	*c.observe = append(*c.observe, c.hits)
	ctx.Nil()
	return nil
}

func TestFreshInstancePerRequest(t *testing.T) {
	e := newTestEngine()
	observed := []int{}
	if err := e.Mount(&statefulController{observe: &observed}); err != nil {
		t.Fatalf("mount failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/state", nil)
		e.engine.ServeHTTP(w, req)
	}

	// 每次请求都是原型的拷贝，计数器从不累积
	for i, v := range observed {
		if v != 1 {
			t.Fatalf("request %d saw hits = %d, want 1 (instance leaked across requests)", i, v)
		}
	}
}

// ============ 描述信息 ============

func TestDescriptorExposesDeclarations(t *testing.T) {
	e := newTestEngine()
	calls := []string{}
	ctrl := &hookOrderController{}
	ctrl.calls = &calls
	if err := e.Mount(ctrl); err != nil {
		t.Fatalf("mount failed: %v", err)
	}

	ds := e.Controllers()
	if len(ds) != 1 {
		t.Fatalf("controllers = %d, want 1", len(ds))
	}
	d := ds[0]
	if d.Name != "hookOrderController" {
		t.Errorf("name = %s, want hookOrderController", d.Name)
	}
	if len(d.Routes) != 1 || d.Routes[0].Method != http.MethodGet || d.Routes[0].Path != "/hooks" {
		t.Errorf("routes = %+v", d.Routes)
	}
	before := d.Hooks[HookBeforeRequest]
	if len(before) != 2 || before[0] != "BaseBefore" || before[1] != "OwnBefore" {
		t.Errorf("before hooks = %v, want [BaseBefore OwnBefore]", before)
	}
}

// ============ WebSocket 适配器 ============

type socketController struct {
	authorize     bool
	handlerErr    error
	handlerCalled *atomic.Int32
	disconnects   *atomic.Int32
}

func (c *socketController) Routes(b *Routes) {
	b.Socket("/stream", "Stream")
	b.OnConnect("Authorize")
	b.OnDisconnect("Closed")
}
func (c *socketController) Authorize(conn *ws.Conn) error {
	if !c.authorize {
		return errors.ErrUnauthorized
	}
	return nil
}
func (c *socketController) Stream(conn *ws.Conn) error {
	c.handlerCalled.Add(1)
	if c.handlerErr != nil {
		return c.handlerErr
	}
	// 读到对端关闭为止
	for {
		if _, err := conn.ReadText(); err != nil {
			return err
		}
	}
}
func (c *socketController) Closed(conn *ws.Conn) error {
	c.disconnects.Add(1)
	return nil
}

func dialSocket(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s failed: %v", url, err)
	}
	return conn
}

// readCloseCode 读取服务端发来的关闭帧状态码
func readCloseCode(t *testing.T, conn *websocket.Conn) int {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			if ce, ok := err.(*websocket.CloseError); ok {
				return ce.Code
			}
			t.Fatalf("expected close frame, got %v", err)
		}
	}
}

func waitCount(t *testing.T, c *atomic.Int32, want int32) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.Load() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("count = %d, want %d", c.Load(), want)
}

func newSocketTest(t *testing.T, ctrl *socketController) (*Engine, *httptest.Server) {
	t.Helper()
	e := newTestEngine()
	ctrl.handlerCalled = &atomic.Int32{}
	ctrl.disconnects = &atomic.Int32{}
	if err := e.Mount(ctrl); err != nil {
		t.Fatalf("mount failed: %v", err)
	}
	srv := httptest.NewServer(e.Handler())
	t.Cleanup(srv.Close)
	return e, srv
}

func TestSocketAuthFailureClosesWithPolicyViolation(t *testing.T) {
	ctrl := &socketController{authorize: false}
	_, srv := newSocketTest(t, ctrl)

	conn := dialSocket(t, srv, "/stream")
	defer conn.Close()

	if code := readCloseCode(t, conn); code != websocket.ClosePolicyViolation {
		t.Errorf("close code = %d, want %d", code, websocket.ClosePolicyViolation)
	}
	if ctrl.handlerCalled.Load() != 0 {
		t.Error("handler must not run when on_connect rejects the connection")
	}
	waitCount(t, ctrl.disconnects, 1)
}

func TestSocketHandlerErrorClosesWithInternalError(t *testing.T) {
	ctrl := &socketController{authorize: true, handlerErr: errors.New(9003, "stream failed", 500)}
	_, srv := newSocketTest(t, ctrl)

	conn := dialSocket(t, srv, "/stream")
	defer conn.Close()

	if code := readCloseCode(t, conn); code != websocket.CloseInternalServerErr {
		t.Errorf("close code = %d, want %d", code, websocket.CloseInternalServerErr)
	}
	waitCount(t, ctrl.handlerCalled, 1)
	waitCount(t, ctrl.disconnects, 1)
}

func TestSocketLifecycle(t *testing.T) {
	ctrl := &socketController{authorize: true}
	e, srv := newSocketTest(t, ctrl)

	conn := dialSocket(t, srv, "/stream")

	waitCount(t, ctrl.handlerCalled, 1)
	deadline := time.Now().Add(2 * time.Second)
	for e.Sockets().TotalConnections() != 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := e.Sockets().TotalConnections(); got != 1 {
		t.Fatalf("connections = %d, want 1", got)
	}

	// 客户端断开后，注销和 on_disconnect 钩子各执行一次
	conn.Close()
	waitCount(t, ctrl.disconnects, 1)

	deadline = time.Now().Add(2 * time.Second)
	for e.Sockets().TotalConnections() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := e.Sockets().TotalConnections(); got != 0 {
		t.Errorf("connections = %d after close, want 0", got)
	}
}
