package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"arena-shooter/internal/game"
	"arena-shooter/internal/input"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	*httptest.Server
	srv    *Server
	engine *fakeEngine
}

func newWSServer(t *testing.T) *testServer {
	t.Helper()
	f := &fakeEngine{}
	srv := NewServer(ServerOptions{Engine: f, RateLimit: testRateLimit})
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(func() {
		srv.Hub().CloseAll()
		ts.Close()
		srv.Stop()
	})
	return &testServer{Server: ts, srv: srv, engine: f}
}

func (ts *testServer) dial(t *testing.T, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	u := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	return websocket.DefaultDialer.Dial(u, header)
}

type received struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func readEvent(t *testing.T, conn *websocket.Conn) received {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg received
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestWebSocketWelcomeAndState(t *testing.T) {
	ts := newWSServer(t)
	ts.engine.publish(5)

	conn, _, err := ts.dial(t, nil)
	require.NoError(t, err)
	defer conn.Close()

	msg := readEvent(t, conn)
	require.Equal(t, EventWelcome, msg.Event)
	var welcome welcomeMessage
	require.NoError(t, json.Unmarshal(msg.Data, &welcome))
	assert.Equal(t, "fake-session", welcome.SessionID)
	assert.Equal(t, 60, welcome.TickRate)
	assert.Equal(t, 1280.0, welcome.Screen[0])

	msg = readEvent(t, conn)
	require.Equal(t, EventState, msg.Event)
	var snap game.GameSnapshot
	require.NoError(t, json.Unmarshal(msg.Data, &snap))
	assert.Equal(t, uint64(5), snap.TickNumber)

	// a new tick is pushed once, a repeated one is not
	ts.engine.publish(6)
	ts.srv.Hub().broadcastLatest()
	ts.srv.Hub().broadcastLatest()
	msg = readEvent(t, conn)
	require.Equal(t, EventState, msg.Event)
	require.NoError(t, json.Unmarshal(msg.Data, &snap))
	assert.Equal(t, uint64(6), snap.TickNumber)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(150*time.Millisecond)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}

func TestWebSocketInputReachesEngine(t *testing.T) {
	ts := newWSServer(t)

	conn, _, err := ts.dial(t, nil)
	require.NoError(t, err)
	defer conn.Close()
	readEvent(t, conn) // welcome

	sample := input.Sample{Fire: true, Sprint: true}
	sample.Move.Y = 1
	require.NoError(t, conn.WriteJSON(clientMessage{Type: "input", Input: &sample}))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, conn.WriteJSON(clientMessage{Type: "input"}))
	require.NoError(t, conn.WriteJSON(clientMessage{Type: "ping", SentAt: 42}))

	msg := readEvent(t, conn)
	require.Equal(t, EventPong, msg.Event)
	var pong pongMessage
	require.NoError(t, json.Unmarshal(msg.Data, &pong))
	assert.Equal(t, int64(42), pong.ClientTime)

	// messages are handled in order, so the input landed before the pong
	inputs := ts.engine.Inputs()
	require.Len(t, inputs, 1)
	assert.True(t, inputs[0].Fire)
	assert.Equal(t, 1.0, inputs[0].Move.Y)
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	ts := newWSServer(t)

	header := http.Header{}
	header.Set("Origin", "https://evil.example")
	_, resp, err := ts.dial(t, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Eventually(t, func() bool {
		return ts.srv.Hub().conns.Count("127.0.0.1") == 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, ts.srv.Hub().ClientCount())
}

func TestWebSocketPerIPLimit(t *testing.T) {
	ts := newWSServer(t)

	var conns []*websocket.Conn
	for i := 0; i < MaxWSConnectionsPerIP; i++ {
		conn, _, err := ts.dial(t, nil)
		require.NoError(t, err)
		conns = append(conns, conn)
	}
	_, resp, err := ts.dial(t, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	for _, c := range conns {
		c.Close()
	}
	require.Eventually(t, func() bool {
		return ts.srv.Hub().ClientCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, ts.srv.Hub().conns.Count("127.0.0.1"))

	conn, _, err := ts.dial(t, nil)
	require.NoError(t, err)
	conn.Close()
}

func TestHubCloseAllDisconnectsClients(t *testing.T) {
	ts := newWSServer(t)
	conn, _, err := ts.dial(t, nil)
	require.NoError(t, err)
	defer conn.Close()
	readEvent(t, conn)

	require.Equal(t, 1, ts.srv.Hub().ClientCount())
	ts.srv.Hub().CloseAll()
	assert.Equal(t, 0, ts.srv.Hub().ClientCount())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)

	// closing twice is harmless
	assert.NotPanics(t, ts.srv.Hub().CloseAll)
}

func TestHubRegisterHoldsTotalLimitUnderConcurrency(t *testing.T) {
	h := NewHub(&fakeEngine{}, nil, nil)
	h.limit = 3

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := &wsClient{ip: "10.0.0.1", send: make(chan []byte, 1)}
			if h.register(c) {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, accepted)
	assert.Equal(t, 3, h.ClientCount())
}

func TestWebSocketTotalLimit(t *testing.T) {
	ts := newWSServer(t)
	ts.srv.Hub().limit = 1

	conn, _, err := ts.dial(t, nil)
	require.NoError(t, err)
	defer conn.Close()
	readEvent(t, conn)

	_, resp, err := ts.dial(t, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, 1, ts.srv.Hub().conns.Count("127.0.0.1"))
}
