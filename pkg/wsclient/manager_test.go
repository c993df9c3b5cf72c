package wsclient_test

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZhanWeiKai/eatwhat/internal/core/domain"
	"github.com/ZhanWeiKai/eatwhat/pkg/stomp"
	"github.com/ZhanWeiKai/eatwhat/pkg/wsclient"
)

// serverConn is one accepted test-server connection after the CONNECT /
// CONNECTED / SUBSCRIBE exchange completed.
type serverConn struct {
	ws         *websocket.Conn
	subscribed map[string]string // subscription id -> destination
	inbound    chan *stomp.Frame
}

func (c *serverConn) send(t *testing.T, f *stomp.Frame) {
	t.Helper()
	require.NoError(t, c.ws.WriteMessage(websocket.TextMessage, f.Marshal()))
}

// testServer accepts websocket clients and performs the server half of
// the handshake, exposing each established connection on conns.
type testServer struct {
	srv   *httptest.Server
	conns chan *serverConn
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{conns: make(chan *serverConn, 4)}
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	ts.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn := &serverConn{ws: ws, subscribed: map[string]string{}, inbound: make(chan *stomp.Frame, 16)}
		// CONNECT then two SUBSCRIBE frames.
		for i := 0; i < 3; i++ {
			_, raw, err := ws.ReadMessage()
			if err != nil {
				return
			}
			frame, err := stomp.Parse(raw)
			if err != nil {
				return
			}
			switch frame.Command {
			case stomp.CommandConnect:
				ack := stomp.NewFrame(stomp.CommandConnected).SetHeader(stomp.HeaderVersion, "1.2")
				_ = ws.WriteMessage(websocket.TextMessage, ack.Marshal())
			case stomp.CommandSubscribe:
				conn.subscribed[frame.Header(stomp.HeaderSubscription)] = frame.Header(stomp.HeaderDestination)
			}
		}
		ts.conns <- conn
		for {
			_, raw, err := ws.ReadMessage()
			if err != nil {
				return
			}
			if frame, err := stomp.Parse(raw); err == nil {
				conn.inbound <- frame
			}
		}
	}))
	t.Cleanup(ts.srv.Close)
	return ts
}

func (ts *testServer) url() string {
	return "ws" + strings.TrimPrefix(ts.srv.URL, "http")
}

func (ts *testServer) accept(t *testing.T) *serverConn {
	t.Helper()
	select {
	case conn := <-ts.conns:
		return conn
	case <-time.After(2 * time.Second):
		t.Fatal("no connection established in time")
		return nil
	}
}

func waitState(t *testing.T, m *wsclient.Manager, want wsclient.State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("manager never reached state %s (now %s)", want, m.State())
}

func TestConnect(t *testing.T) {
	t.Run("performs the handshake and creates both standing subscriptions", func(t *testing.T) {
		ts := newTestServer(t)
		m := wsclient.NewManager(slog.Default(), wsclient.Options{
			URL:    ts.url(),
			UserID: "u1",
		}, wsclient.Handlers{})
		defer m.Disconnect()

		require.NoError(t, m.Connect())
		conn := ts.accept(t)

		assert.Equal(t, domain.UserTopic("u1"), conn.subscribed["sub-0"])
		assert.Equal(t, domain.TopicPresence, conn.subscribed["sub-status"])
		waitState(t, m, wsclient.StateConnected)
	})

	t.Run("connecting twice is a no-op", func(t *testing.T) {
		ts := newTestServer(t)
		m := wsclient.NewManager(slog.Default(), wsclient.Options{URL: ts.url(), UserID: "u1"}, wsclient.Handlers{})
		defer m.Disconnect()

		require.NoError(t, m.Connect())
		ts.accept(t)
		waitState(t, m, wsclient.StateConnected)

		assert.ErrorIs(t, m.Connect(), wsclient.ErrAlreadyConnected)
	})
}

func TestDispatch(t *testing.T) {
	t.Run("a push on the private subscription reaches OnPush", func(t *testing.T) {
		ts := newTestServer(t)
		pushes := make(chan domain.Push, 1)
		m := wsclient.NewManager(slog.Default(), wsclient.Options{URL: ts.url(), UserID: "u1"}, wsclient.Handlers{
			OnPush: func(p domain.Push) { pushes <- p },
		})
		defer m.Disconnect()
		require.NoError(t, m.Connect())
		conn := ts.accept(t)

		body, _ := json.Marshal(domain.Push{PushID: "p1", PusherID: "u2", PusherName: "Bob"})
		frame := stomp.NewFrame(stomp.CommandMessage).
			SetHeader(stomp.HeaderDestination, domain.UserTopic("u1")).
			SetHeader(stomp.HeaderSubscription, "sub-0")
		frame.Body = body
		conn.send(t, frame)

		select {
		case p := <-pushes:
			assert.Equal(t, "p1", p.PushID)
			assert.Equal(t, "Bob", p.PusherName)
		case <-time.After(2 * time.Second):
			t.Fatal("push never dispatched")
		}
	})

	t.Run("a presence event reaches OnPresence", func(t *testing.T) {
		ts := newTestServer(t)
		events := make(chan domain.PresenceEvent, 1)
		m := wsclient.NewManager(slog.Default(), wsclient.Options{URL: ts.url(), UserID: "u1"}, wsclient.Handlers{
			OnPresence: func(e domain.PresenceEvent) { events <- e },
		})
		defer m.Disconnect()
		require.NoError(t, m.Connect())
		conn := ts.accept(t)

		body, _ := json.Marshal(domain.PresenceEvent{UserID: "u2", Nickname: "Bob", Status: domain.StatusOnline})
		frame := stomp.NewFrame(stomp.CommandMessage).
			SetHeader(stomp.HeaderDestination, domain.TopicPresence).
			SetHeader(stomp.HeaderSubscription, "sub-status")
		frame.Body = body
		conn.send(t, frame)

		select {
		case e := <-events:
			assert.Equal(t, "u2", e.UserID)
			assert.Equal(t, domain.StatusOnline, e.Status)
		case <-time.After(2 * time.Second):
			t.Fatal("presence event never dispatched")
		}
	})

	t.Run("a malformed payload is dropped without dropping the transport", func(t *testing.T) {
		ts := newTestServer(t)
		pushes := make(chan domain.Push, 2)
		m := wsclient.NewManager(slog.Default(), wsclient.Options{URL: ts.url(), UserID: "u1"}, wsclient.Handlers{
			OnPush: func(p domain.Push) { pushes <- p },
		})
		defer m.Disconnect()
		require.NoError(t, m.Connect())
		conn := ts.accept(t)

		bad := stomp.NewFrame(stomp.CommandMessage).SetHeader(stomp.HeaderSubscription, "sub-0")
		bad.Body = []byte("not json")
		conn.send(t, bad)

		good := stomp.NewFrame(stomp.CommandMessage).SetHeader(stomp.HeaderSubscription, "sub-0")
		good.Body, _ = json.Marshal(domain.Push{PushID: "p2"})
		conn.send(t, good)

		select {
		case p := <-pushes:
			assert.Equal(t, "p2", p.PushID)
		case <-time.After(2 * time.Second):
			t.Fatal("transport died after a bad payload")
		}
		assert.Equal(t, wsclient.StateConnected, m.State())
	})
}

func TestReconnect(t *testing.T) {
	t.Run("a dropped connection is retried once after the fixed delay", func(t *testing.T) {
		ts := newTestServer(t)
		m := wsclient.NewManager(slog.Default(), wsclient.Options{
			URL:            ts.url(),
			UserID:         "u1",
			ReconnectDelay: 50 * time.Millisecond,
		}, wsclient.Handlers{})
		defer m.Disconnect()
		require.NoError(t, m.Connect())
		first := ts.accept(t)
		waitState(t, m, wsclient.StateConnected)

		_ = first.ws.Close()

		second := ts.accept(t)
		require.NotNil(t, second)
		assert.Equal(t, domain.UserTopic("u1"), second.subscribed["sub-0"])
		waitState(t, m, wsclient.StateConnected)
	})

	t.Run("an explicit disconnect suppresses reconnection", func(t *testing.T) {
		ts := newTestServer(t)
		m := wsclient.NewManager(slog.Default(), wsclient.Options{
			URL:            ts.url(),
			UserID:         "u1",
			ReconnectDelay: 30 * time.Millisecond,
		}, wsclient.Handlers{})
		require.NoError(t, m.Connect())
		conn := ts.accept(t)
		waitState(t, m, wsclient.StateConnected)

		m.Disconnect()

		// The server sees the DISCONNECT frame before the socket closes.
		select {
		case frame := <-conn.inbound:
			assert.Equal(t, stomp.CommandDisconnect, frame.Command)
		case <-time.After(2 * time.Second):
			t.Fatal("server never received DISCONNECT")
		}

		// And no new connection shows up after the reconnect delay.
		select {
		case <-ts.conns:
			t.Fatal("manager reconnected after an explicit disconnect")
		case <-time.After(150 * time.Millisecond):
		}
		assert.Equal(t, wsclient.StateDisconnected, m.State())
	})
}
