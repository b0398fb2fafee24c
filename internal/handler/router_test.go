package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatrelay/internal/app/chat"
	"chatrelay/internal/app/session"
	"chatrelay/internal/app/user"
	"chatrelay/internal/configs"
	"chatrelay/internal/pkg/limiter"
	"chatrelay/internal/pkg/logx"
)

func TestMain(m *testing.M) {
	logx.SetOutput(io.Discard)
	os.Exit(m.Run())
}

type testServer struct {
	*httptest.Server
	registry *session.Registry
	hub      *chat.Hub
	deps     *AppDeps
}

func newTestConfig() *configs.AppConfig {
	return &configs.AppConfig{
		Environment:     "test",
		Port:            configs.DefaultPort,
		AllowedOrigins:  []string{"https://chat.example"},
		RegisterRate:    100,
		RegisterBurst:   100,
		ConnectRate:     100,
		ConnectBurst:    100,
		MaxMessageBytes: configs.DefaultMaxMessageBytes,
	}
}

func startServer(t *testing.T, cfg *configs.AppConfig) *testServer {
	t.Helper()

	registry := session.NewRegistry()
	hub := chat.NewHub(registry, cfg.MaxMessageBytes)
	go hub.Run()

	deps := NewAppDeps(hub, registry, cfg)
	srv := httptest.NewServer(Router(deps))
	t.Cleanup(func() {
		hub.Shutdown()
		srv.Close()
		deps.Close()
	})

	return &testServer{Server: srv, registry: registry, hub: hub, deps: deps}
}

type apiResponse struct {
	Status  string     `json:"status"`
	Message string     `json:"message"`
	User    *user.User `json:"user"`
	Service string     `json:"service"`
	Users   int        `json:"users"`
}

func postNewUser(t *testing.T, srv *testServer, body string) (int, apiResponse) {
	t.Helper()

	res, err := http.Post(srv.URL+"/new-user", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, "application/json", res.Header.Get("Content-Type"))

	var out apiResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	return res.StatusCode, out
}

type wireFrame struct {
	Type    chat.FrameType `json:"type"`
	Success bool           `json:"success"`
	Users   []user.User    `json:"users"`
	Message string         `json:"message"`
	User    *user.User     `json:"user"`
	Time    string         `json:"time"`
	Code    int            `json:"code"`
}

func dial(t *testing.T, srv *testServer, path string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, res, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	res.Body.Close()
	t.Cleanup(func() { conn.Close() })

	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) wireFrame {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var f wireFrame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func assertNoFrame(t *testing.T, conn *websocket.Conn) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(150*time.Millisecond)))
	_, data, err := conn.ReadMessage()
	assert.Error(t, err, "unexpected frame %s", data)
}

func writeFrame(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(v))
}

func names(users []user.User) []string {
	out := make([]string, 0, len(users))
	for _, u := range users {
		out = append(out, u.Name)
	}
	return out
}

func TestNewUser(t *testing.T) {
	srv := startServer(t, newTestConfig())

	code, body := postNewUser(t, srv, `{"name":"alice"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body.Status)
	require.NotNil(t, body.User)
	assert.Equal(t, "alice", body.User.Name)
	assert.NotEmpty(t, body.User.ID)

	code, body = postNewUser(t, srv, `{"name":"alice"}`)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "error", body.Status)
	assert.Equal(t, "This name is already taken!", body.Message)

	for _, missing := range []string{`{}`, `{"name":""}`, ``} {
		code, body = postNewUser(t, srv, missing)
		assert.Equal(t, http.StatusBadRequest, code, missing)
		assert.Equal(t, "error", body.Status)
		assert.Equal(t, "Name is required!", body.Message)
	}

	code, body = postNewUser(t, srv, `{"name":`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "error", body.Status)

	assert.Equal(t, 1, srv.registry.Len())
}

func TestNewUserRateLimited(t *testing.T) {
	cfg := newTestConfig()
	cfg.RegisterRate = 0.001
	cfg.RegisterBurst = 1
	srv := startServer(t, cfg)

	code, _ := postNewUser(t, srv, `{"name":"first"}`)
	assert.Equal(t, http.StatusOK, code)

	code, body := postNewUser(t, srv, `{"name":"second"}`)
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, "error", body.Status)
}

func TestHealth(t *testing.T) {
	srv := startServer(t, newTestConfig())
	srv.registry.PreRegister("alice")

	res, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer res.Body.Close()

	var body apiResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, serviceName, body.Service)
	assert.Equal(t, 1, body.Users)
}

func TestDuplicateNameViaHTTPThenSocket(t *testing.T) {
	srv := startServer(t, newTestConfig())

	code, created := postNewUser(t, srv, `{"name":"alice"}`)
	require.Equal(t, http.StatusOK, code)
	code, _ = postNewUser(t, srv, `{"name":"alice"}`)
	require.Equal(t, http.StatusConflict, code)

	conn := dial(t, srv, "/ws")
	assert.Equal(t, []user.User{*created.User}, readFrame(t, conn).Users)

	writeFrame(t, conn, map[string]string{"type": "login", "name": "alice"})

	ack := readFrame(t, conn)
	assert.Equal(t, chat.TypeLogin, ack.Type)
	assert.True(t, ack.Success)
	assert.Equal(t, []user.User{*created.User}, ack.Users)
	assert.Equal(t, 1, srv.registry.Len())
}

func TestConnectLoginDisconnectRosterPush(t *testing.T) {
	srv := startServer(t, newTestConfig())

	watcher := dial(t, srv, "/ws")
	first := readFrame(t, watcher)
	assert.Equal(t, chat.TypeUsers, first.Type)
	assert.Empty(t, first.Users)

	bob := dial(t, srv, "/")
	assert.Equal(t, chat.TypeUsers, readFrame(t, bob).Type)

	writeFrame(t, bob, map[string]string{"type": "login", "name": "bob"})

	ack := readFrame(t, bob)
	assert.Equal(t, chat.TypeLogin, ack.Type)
	assert.True(t, ack.Success)
	assert.Equal(t, []string{"bob"}, names(ack.Users))

	joined := readFrame(t, watcher)
	assert.Equal(t, chat.TypeUsers, joined.Type)
	assert.Equal(t, []string{"bob"}, names(joined.Users))

	require.NoError(t, bob.Close())

	left := readFrame(t, watcher)
	assert.Equal(t, chat.TypeUsers, left.Type)
	assert.Empty(t, left.Users)
	assert.Eventually(t, func() bool { return srv.hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, srv.registry.Len())
}

func TestChatStampingAndCompleteness(t *testing.T) {
	srv := startServer(t, newTestConfig())

	conns := make([]*websocket.Conn, 3)
	for i := range conns {
		conns[i] = dial(t, srv, "/ws")
		readFrame(t, conns[i])
	}

	writeFrame(t, conns[0], map[string]string{"type": "send", "message": "hi"})

	for _, conn := range conns {
		f := readFrame(t, conn)
		assert.Equal(t, chat.TypeSend, f.Type)
		assert.Equal(t, "hi", f.Message)
		assert.Nil(t, f.User)
		_, err := time.Parse(chat.TimeLayout, f.Time)
		assert.NoError(t, err)
		assertNoFrame(t, conn)
	}

	writeFrame(t, conns[1], map[string]string{"type": "login", "name": "carol"})
	readFrame(t, conns[1])
	for _, conn := range conns {
		readFrame(t, conn)
	}

	writeFrame(t, conns[1], map[string]string{"type": "send", "message": "stamped"})
	for _, conn := range conns {
		f := readFrame(t, conn)
		assert.Equal(t, "stamped", f.Message)
		require.NotNil(t, f.User)
		assert.Equal(t, "carol", f.User.Name)
	}
}

func TestMalformedFrameDoesNotAffectOthers(t *testing.T) {
	srv := startServer(t, newTestConfig())

	bad := dial(t, srv, "/ws")
	readFrame(t, bad)
	good := dial(t, srv, "/ws")
	readFrame(t, good)

	require.NoError(t, bad.WriteMessage(websocket.TextMessage, []byte("{not json")))
	errFrame := readFrame(t, bad)
	assert.Equal(t, chat.TypeError, errFrame.Type)
	assertNoFrame(t, good)

	writeFrame(t, bad, map[string]string{"type": "send", "message": "still alive"})
	assert.Equal(t, "still alive", readFrame(t, good).Message)
}

func TestWebSocketOriginCheck(t *testing.T) {
	srv := startServer(t, newTestConfig())
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, res, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	res.Body.Close()

	header = http.Header{"Origin": []string{"https://chat.example"}}
	conn, res, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	res.Body.Close()
	conn.Close()
}

func TestWebSocketRateLimited(t *testing.T) {
	cfg := newTestConfig()
	cfg.ConnectRate = 0.001
	cfg.ConnectBurst = 1
	srv := startServer(t, cfg)

	dial(t, srv, "/ws")

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, res, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, http.StatusTooManyRequests, res.StatusCode)
	res.Body.Close()
}

func TestAppDepsCloseStopsLimiters(t *testing.T) {
	registry := session.NewRegistry()
	deps := NewAppDeps(chat.NewHub(registry, 64), registry, newTestConfig())

	deps.Close()
	deps.Close()

	for _, l := range []*limiter.IPRateLimiter{deps.RegisterLimiter, deps.ConnectLimiter} {
		select {
		case <-l.Done():
		default:
			t.Fatal("limiter eviction goroutine still running after Close")
		}
	}
}
