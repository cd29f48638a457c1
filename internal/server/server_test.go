package server

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ndi-chaos-go/internal/config"
	"ndi-chaos-go/internal/types"
)

func testConfig() config.AppConfig {
	cfg := config.Default()
	cfg.Width = 640
	cfg.Height = 360
	cfg.FrameRate = 25
	cfg.HTTPPort = 9999
	return cfg
}

func TestHandleConfig(t *testing.T) {
	srv := New(testConfig(), nil, nil)

	req := httptest.NewRequest("GET", "/config", nil)
	rec := httptest.NewRecorder()
	srv.handleConfig(rec, req)
	require.Equal(t, 200, rec.Code)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, float64(640), payload["width"])
	assert.Equal(t, float64(360), payload["height"])
	assert.Equal(t, float64(25), payload["fps"])
	assert.Equal(t, float64(9999), payload["port"])
	assert.Equal(t, "Chaos", payload["name"])
}

func TestHandleStatus(t *testing.T) {
	srv := New(testConfig(), func() map[string]any {
		return map[string]any{"state": "Running", "frames_sent": 12}
	}, nil)

	rec := httptest.NewRecorder()
	srv.handleStatus(rec, httptest.NewRequest("GET", "/status", nil))
	require.Equal(t, 200, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "Running", payload["state"])
	assert.Equal(t, float64(12), payload["frames_sent"])
	assert.Equal(t, float64(0), payload["ws_clients"])
}

func TestHandleHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	New(testConfig(), nil, nil).handleHealth(rec, httptest.NewRequest("GET", "/healthz", nil))
	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestExecuteWithoutControl(t *testing.T) {
	res := New(testConfig(), nil, nil).execute("q")
	assert.False(t, res.OK)
	assert.Equal(t, "result", res.Type)
}

func dial(t *testing.T, srv *Server) (*websocket.Conn, func()) {
	t.Helper()
	handler, err := srv.Handler()
	require.NoError(t, err)
	ts := httptest.NewServer(handler)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn, func() {
		conn.Close()
		ts.Close()
	}
}

func TestWebsocketCommands(t *testing.T) {
	var (
		mu    sync.Mutex
		lines []string
	)
	srv := New(testConfig(), nil, func(line string) (string, error) {
		mu.Lock()
		lines = append(lines, line)
		mu.Unlock()
		if line == "bogus" {
			return "", errors.New("unknown command")
		}
		return "stall requested", nil
	})
	conn, closeAll := dial(t, srv)
	defer closeAll()

	var greeting map[string]any
	require.NoError(t, conn.ReadJSON(&greeting))
	assert.Equal(t, "config", greeting["type"])

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "command", "line": "s 100"}))
	var ok types.CommandResult
	require.NoError(t, conn.ReadJSON(&ok))
	assert.Equal(t, types.CommandResult{Type: "result", Line: "s 100", OK: true, Message: "stall requested"}, ok)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "command", "line": "bogus"}))
	var bad types.CommandResult
	require.NoError(t, conn.ReadJSON(&bad))
	assert.False(t, bad.OK)
	assert.Equal(t, "unknown command", bad.Message)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"s 100", "bogus"}, lines)
}

func TestWebsocketBroadcast(t *testing.T) {
	srv := New(testConfig(), nil, nil)
	conn, closeAll := dial(t, srv)
	defer closeAll()

	var greeting map[string]any
	require.NoError(t, conn.ReadJSON(&greeting))
	require.Eventually(t, func() bool { return srv.clientCount() == 1 }, time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	messages := make(chan any, 1)
	go srv.broadcast(ctx, messages)
	messages <- types.StatsMessage{Type: "stats", Stats: map[string]any{"frames_sent": 3}}

	var got types.StatsMessage
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "stats", got.Type)
	assert.Equal(t, float64(3), got.Stats["frames_sent"])
}

func TestHandleCommand(t *testing.T) {
	srv := New(testConfig(), nil, func(line string) (string, error) {
		return "ran " + line, nil
	})

	rec := httptest.NewRecorder()
	srv.handleCommand(rec, httptest.NewRequest("POST", "/command", strings.NewReader(`{"line":"t r"}`)))
	require.Equal(t, 200, rec.Code)
	var res types.CommandResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.OK)
	assert.Equal(t, "ran t r", res.Message)

	rec = httptest.NewRecorder()
	srv.handleCommand(rec, httptest.NewRequest("GET", "/command", nil))
	assert.Equal(t, 405, rec.Code)

	rec = httptest.NewRecorder()
	srv.handleCommand(rec, httptest.NewRequest("POST", "/command", strings.NewReader("not json")))
	assert.Equal(t, 400, rec.Code)
}
